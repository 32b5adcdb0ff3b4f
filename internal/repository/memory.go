package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"driver_logbook/internal/models"
)

// Memory is an in-process Repository.
type Memory struct {
	mu        sync.RWMutex
	drivers   map[uint]models.Driver
	trips     map[uint]models.Trip
	fuel      map[uint]models.FuelLog
	locations map[uint][]models.LocationUpdate
	reports   map[uint]models.ComplianceReport
	nextID    map[string]uint
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		drivers:   make(map[uint]models.Driver),
		trips:     make(map[uint]models.Trip),
		fuel:      make(map[uint]models.FuelLog),
		locations: make(map[uint][]models.LocationUpdate),
		reports:   make(map[uint]models.ComplianceReport),
		nextID:    make(map[string]uint),
		now:       time.Now,
	}
}

func (m *Memory) id(table string) uint {
	m.nextID[table]++
	return m.nextID[table]
}

func (m *Memory) CreateDriver(_ context.Context, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.drivers {
		if strings.EqualFold(existing.Username, d.Username) || existing.LicenseNumber == d.LicenseNumber {
			return ErrDuplicate
		}
	}
	d.ID = m.id("drivers")
	d.CreatedAt = m.now()
	d.UpdatedAt = d.CreatedAt
	m.drivers[d.ID] = *d
	return nil
}

func (m *Memory) DriverByID(_ context.Context, id uint) (models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return models.Driver{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) DriverByUsername(_ context.Context, username string) (models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if strings.EqualFold(d.Username, username) {
			return d, nil
		}
	}
	return models.Driver{}, ErrNotFound
}

func (m *Memory) ListDrivers(_ context.Context) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveDriver(_ context.Context, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.ID]; !ok {
		return ErrNotFound
	}
	d.UpdatedAt = m.now()
	m.drivers[d.ID] = *d
	return nil
}

func (m *Memory) CreateTrip(_ context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id("trips")
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = models.TripPending
	}
	m.trips[t.ID] = *t
	return nil
}

func (m *Memory) TripByID(_ context.Context, id uint) (models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return models.Trip{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) SaveTrip(_ context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = m.now()
	m.trips[t.ID] = *t
	return nil
}

func (m *Memory) ListTrips(_ context.Context, f TripFilter) ([]models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Trip, 0)
	for _, t := range m.trips {
		if f.DriverID != nil && t.DriverID != *f.DriverID {
			continue
		}
		if !statusIn(t.Status, f.Statuses) {
			continue
		}
		if f.StartedAfter != nil && t.StartTime.Before(*f.StartedAfter) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) CreateFuelLog(_ context.Context, l *models.FuelLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id("fuel_logs")
	l.CreatedAt = m.now()
	if l.Timestamp.IsZero() {
		l.Timestamp = l.CreatedAt
	}
	m.fuel[l.ID] = *l
	return nil
}

func (m *Memory) ListFuelLogs(_ context.Context, f FuelFilter) ([]models.FuelLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.FuelLog, 0)
	for _, l := range m.fuel {
		if f.DriverID != nil && l.DriverID != *f.DriverID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) AddLocation(_ context.Context, u *models.LocationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id("location_updates")
	u.CreatedAt = m.now()
	m.locations[u.TripID] = append(m.locations[u.TripID], *u)
	return nil
}

func (m *Memory) LastLocation(_ context.Context, tripID uint) (models.LocationUpdate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	updates := m.locations[tripID]
	if len(updates) == 0 {
		return models.LocationUpdate{}, ErrNotFound
	}
	return updates[len(updates)-1], nil
}

func (m *Memory) CreateReport(_ context.Context, r *models.ComplianceReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id("compliance_reports")
	r.GeneratedAt = m.now()
	m.reports[r.ID] = *r
	return nil
}

func (m *Memory) ListReports(_ context.Context, driverID *uint) ([]models.ComplianceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ComplianceReport, 0)
	for _, r := range m.reports {
		if driverID != nil && r.DriverID != *driverID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
