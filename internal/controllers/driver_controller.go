package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
)

// updateProfileInput lists the profile fields a driver may change.
type updateProfileInput struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// Me returns the caller with their HOS snapshot.
func (s *Server) Me(c *gin.Context) {
	driver, ok := s.currentDriver(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, driver)
}

// ListDrivers returns every driver for admins and only the caller otherwise.
func (s *Server) ListDrivers(c *gin.Context) {
	ctx := c.Request.Context()
	if !middleware.IsAdmin(c) {
		driver, ok := s.currentDriver(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.NewPage([]models.Driver{driver}))
		return
	}

	drivers, err := s.repo.ListDrivers(ctx)
	if err != nil {
		s.internalError(c, err, "could not list drivers")
		return
	}
	for i := range drivers {
		if err := s.snapshot(ctx, &drivers[i]); err != nil {
			s.internalError(c, err, "could not load driver snapshot")
			return
		}
	}
	c.JSON(http.StatusOK, models.NewPage(drivers))
}

func (s *Server) UpdateProfile(c *gin.Context) {
	var input updateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	driver, err := s.repo.DriverByID(ctx, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
		return
	}
	if input.Email != nil {
		driver.Email = *input.Email
	}
	if input.FirstName != nil {
		driver.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		driver.LastName = *input.LastName
	}
	if input.Phone != nil {
		driver.Phone = *input.Phone
	}
	if err := s.repo.SaveDriver(ctx, &driver); err != nil {
		s.internalError(c, err, "could not update driver")
		return
	}
	s.Me(c)
}

// ComplianceStatus reports one driver's standing. Drivers may only ask
// about themselves.
func (s *Server) ComplianceStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || (uint(id) != middleware.UserID(c) && !middleware.IsAdmin(c)) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	driver, err := s.loadDriver(c.Request.Context(), uint(id))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	if err != nil {
		s.internalError(c, err, "could not load driver")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"driver":                driver,
		"total_hours_8days":     driver.TotalHours8Days,
		"remaining_hours":       driver.RemainingHours8Days,
		"compliance_status":     driver.ComplianceStatus,
		"miles_since_last_fuel": driver.MilesSinceLastFuel,
		"needs_refuel":          driver.NeedsRefuel,
	})
}
