// Package dashboard assembles the driver and admin overview screens.
package dashboard

import (
	"context"
	"net/url"
	"strconv"

	"driver_logbook/internal/apiclient"
	"driver_logbook/internal/cache"
	"driver_logbook/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const recentTripLimit = 5

type Refresher interface {
	RefreshUser(ctx context.Context) (*models.Driver, error)
}

type DriverView struct {
	Driver      *models.Driver
	RecentTrips []models.Trip
}

type AdminView struct {
	Stats       models.DashboardStats
	Drivers     []models.Driver
	ActiveTrips []models.Trip
}

type Service struct {
	api       *apiclient.Client
	refresher Refresher
	log       *logrus.Entry

	recent *cache.Collection[models.Trip]
	admin  cache.Value[AdminView]
}

func NewService(api *apiclient.Client, refresher Refresher, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Service{api: api, refresher: refresher, log: log.WithField("component", "dashboard")}
	s.recent = cache.NewCollection("recent_trips", func(ctx context.Context) ([]models.Trip, error) {
		q := url.Values{"limit": {strconv.Itoa(recentTripLimit)}}
		page, err := apiclient.Get[models.Page[models.Trip]](ctx, api, "/trips/", apiclient.WithQuery(q))
		if err != nil {
			return nil, err
		}
		if len(page.Results) > recentTripLimit {
			page.Results = page.Results[:recentTripLimit]
		}
		return page.Results, nil
	}, log)
	return s
}

// LoadDriver never fails: a trip list error leaves the list empty and a
// profile error leaves Driver nil.
func (s *Service) LoadDriver(ctx context.Context) DriverView {
	var view DriverView
	_ = s.recent.Reload(ctx)
	view.RecentTrips = s.recent.Items()
	if s.refresher != nil {
		user, err := s.refresher.RefreshUser(ctx)
		if err != nil {
			s.log.WithError(err).Warn("Could not refresh driver for dashboard")
		} else {
			view.Driver = user
		}
	}
	return view
}

// LoadAdmin fetches stats, drivers and active trips in parallel. Any
// failure degrades to the last good view, or an empty one.
func (s *Service) LoadAdmin(ctx context.Context) (AdminView, error) {
	var view AdminView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := apiclient.Get[models.DashboardStats](gctx, s.api, "/dashboard/stats/")
		view.Stats = stats
		return err
	})
	g.Go(func() error {
		page, err := apiclient.Get[models.Page[models.Driver]](gctx, s.api, "/drivers/")
		view.Drivers = page.Results
		return err
	})
	g.Go(func() error {
		page, err := apiclient.Get[models.Page[models.Trip]](gctx, s.api, "/trips/active/")
		view.ActiveTrips = page.Results
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("Failed to load admin dashboard")
		prev, _ := s.admin.Get()
		return prev, err
	}
	s.admin.Set(view)
	return view, nil
}
