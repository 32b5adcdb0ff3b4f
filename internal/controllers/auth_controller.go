package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
)

const invalidCredentials = "No active account found with the given credentials"

// Register creates a driver account. The client logs in separately.
func (s *Server) Register(c *gin.Context) {
	var input models.RegisterData
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Password != input.Password2 {
		c.JSON(http.StatusBadRequest, fieldError("password", "Password fields didn't match."))
		return
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	driver := models.Driver{
		Username:      strings.TrimSpace(input.Username),
		Email:         input.Email,
		Password:      hashedPassword,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		LicenseNumber: input.LicenseNumber,
		Phone:         input.Phone,
		IsActive:      true,
	}
	if err := s.repo.CreateDriver(c.Request.Context(), &driver); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, fieldError("username", "A driver with that username or license number already exists."))
			return
		}
		s.internalError(c, err, "could not create driver")
		return
	}

	if err := s.snapshot(c.Request.Context(), &driver); err != nil {
		s.internalError(c, err, "could not load driver")
		return
	}
	s.log.WithFields(logrus.Fields{"driver_id": driver.ID, "username": driver.Username}).Info("Driver registered")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Driver registered successfully",
		"driver":  driver,
	})
}

// Login exchanges username and password for a token pair.
func (s *Server) Login(c *gin.Context) {
	var body models.Credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver, err := s.repo.DriverByUsername(c.Request.Context(), body.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": invalidCredentials})
		} else {
			s.internalError(c, err, "database error")
		}
		return
	}
	if !driver.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": invalidCredentials})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(driver.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": invalidCredentials})
		return
	}

	pair, err := s.tokens.Issue(driver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh trades a refresh token for a new pair.
func (s *Server) Refresh(c *gin.Context) {
	var body models.RefreshRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := s.tokens.Parse(body.Refresh, middleware.TokenRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired"})
		return
	}
	driver, err := s.repo.DriverByID(c.Request.Context(), claims.UserID)
	if err != nil || !driver.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired"})
		return
	}
	pair, err := s.tokens.Issue(driver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SeedAdmin creates an administrator account unless the username is taken.
func (s *Server) SeedAdmin(ctx context.Context, username, password string) error {
	_, err := s.repo.DriverByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return err
	}
	admin := models.Driver{
		Username:      username,
		Password:      hashedPassword,
		LicenseNumber: "ADMIN-" + strings.ToUpper(username),
		IsAdmin:       true,
		IsActive:      true,
	}
	if err := s.repo.CreateDriver(ctx, &admin); err != nil {
		return err
	}
	s.log.WithField("username", username).Info("Seeded admin account")
	return nil
}
