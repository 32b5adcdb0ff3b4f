package controllers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"driver_logbook/internal/hos"
	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
)

const dateLayout = "2006-01-02"

type generateReportInput struct {
	DriverID  any    `json:"driver_id"`
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
	Notes     string `json:"notes"`
}

// ListReports returns stored compliance reports, the caller's own unless
// they are an admin.
func (s *Server) ListReports(c *gin.Context) {
	ctx := c.Request.Context()
	reports, err := s.repo.ListReports(ctx, scope(c))
	if err != nil {
		s.internalError(c, err, "could not list reports")
		return
	}
	names := make(map[uint]string)
	for i := range reports {
		name, ok := names[reports[i].DriverID]
		if !ok {
			d, err := s.repo.DriverByID(ctx, reports[i].DriverID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				s.internalError(c, err, "could not load report driver")
				return
			}
			name = models.FullNameOf(d)
			names[reports[i].DriverID] = name
		}
		reports[i].DriverName = name
	}
	c.JSON(http.StatusOK, models.NewPage(reports))
}

// GenerateReport summarises a driver's completed trips and refuels over an
// inclusive date range and stores the result.
func (s *Server) GenerateReport(c *gin.Context) {
	var input generateReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	driverID, idOK := parseID(input.DriverID)
	if !idOK || input.DateStart == "" || input.DateEnd == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "driver_id, date_start, and date_end are required"})
		return
	}
	start, err := time.Parse(dateLayout, input.DateStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, fieldError("date_start", "Date has wrong format. Use YYYY-MM-DD."))
		return
	}
	end, err := time.Parse(dateLayout, input.DateEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, fieldError("date_end", "Date has wrong format. Use YYYY-MM-DD."))
		return
	}
	if driverID != middleware.UserID(c) && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	ctx := c.Request.Context()
	driver, err := s.repo.DriverByID(ctx, driverID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		return
	}
	if err != nil {
		s.internalError(c, err, "could not load driver")
		return
	}
	trips, err := s.repo.ListTrips(ctx, repository.TripFilter{
		DriverID: &driverID,
		Statuses: []models.TripStatus{models.TripCompleted},
	})
	if err != nil {
		s.internalError(c, err, "could not list trips")
		return
	}
	fuel, err := s.repo.ListFuelLogs(ctx, repository.FuelFilter{DriverID: &driverID})
	if err != nil {
		s.internalError(c, err, "could not list fuel logs")
		return
	}

	report := summarise(s.rules, trips, fuel, start, end)
	report.DriverID = driver.ID
	report.DateStart = input.DateStart
	report.DateEnd = input.DateEnd
	report.Notes = input.Notes
	if err := s.repo.CreateReport(ctx, &report); err != nil {
		s.internalError(c, err, "could not store report")
		return
	}
	report.DriverName = models.FullNameOf(driver)
	s.log.WithFields(logrus.Fields{
		"report_id":      report.ID,
		"driver_id":      driver.ID,
		"limit_exceeded": report.LimitExceeded,
	}).Info("Compliance report generated")
	c.JSON(http.StatusCreated, report)
}

// summarise builds the report body. Days are calendar days in UTC and both
// ends are inclusive.
func summarise(rules hos.Rules, trips []models.Trip, fuel []models.FuelLog, start, end time.Time) models.ComplianceReport {
	inRange := func(t time.Time) bool {
		day := t.UTC().Truncate(24 * time.Hour)
		return !day.Before(start) && !day.After(end)
	}

	var kept []models.Trip
	var hours, miles float64
	for _, t := range trips {
		if t.Status != models.TripCompleted || !inRange(t.StartTime) {
			continue
		}
		kept = append(kept, t)
		hours += hos.TripHours(t)
		miles += t.Distance.Float64()
	}

	var logs []models.FuelLog
	for _, l := range fuel {
		if inRange(l.Timestamp) {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.Before(logs[j].Timestamp) })

	violations := 0
	for i := 0; i+1 < len(logs); i++ {
		var between float64
		for _, t := range kept {
			if t.EndTime == nil {
				continue
			}
			if !t.EndTime.Before(logs[i].Timestamp) && t.EndTime.Before(logs[i+1].Timestamp) {
				between += t.Distance.Float64()
			}
		}
		if between > rules.RefuelMiles {
			violations++
		}
	}

	hours = hos.Round2(hours)
	return models.ComplianceReport{
		TotalHours:       models.Decimal(hours),
		TotalMiles:       models.Decimal(hos.Round2(miles)),
		TripCount:        len(kept),
		LimitExceeded:    hours > rules.HoursLimit,
		RefuelViolations: violations,
	}
}

// DashboardStats reports fleet-wide counters for admins.
func (s *Server) DashboardStats(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	ctx := c.Request.Context()
	drivers, err := s.repo.ListDrivers(ctx)
	if err != nil {
		s.internalError(c, err, "could not list drivers")
		return
	}
	trips, err := s.repo.ListTrips(ctx, repository.TripFilter{})
	if err != nil {
		s.internalError(c, err, "could not list trips")
		return
	}

	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	var stats models.DashboardStats
	for _, t := range trips {
		switch {
		case t.Status == models.TripInProgress:
			stats.ActiveTrips++
		case t.Status == models.TripCompleted && t.EndTime != nil &&
			t.EndTime.UTC().Truncate(24*time.Hour).Equal(today):
			stats.CompletedTripsToday++
		}
	}
	for i := range drivers {
		if !drivers[i].IsActive {
			continue
		}
		stats.TotalDrivers++
		if err := s.snapshot(ctx, &drivers[i]); err != nil {
			s.internalError(c, err, "could not compute driver hours")
			return
		}
		if drivers[i].TotalHours8Days.Float64() > s.rules.HoursLimit {
			stats.ComplianceViolations++
		}
		if drivers[i].NeedsRefuel {
			stats.DriversNeedingRefuel++
		}
	}
	c.JSON(http.StatusOK, stats)
}

// parseID accepts a JSON number or numeric string.
func parseID(v any) (uint, bool) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != float64(uint(id)) {
			return 0, false
		}
		return uint(id), true
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}
