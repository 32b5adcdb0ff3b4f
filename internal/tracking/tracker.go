// Package tracking forwards device positions for an active trip to the API,
// at most once per interval.
package tracking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"driver_logbook/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const DefaultInterval = time.Second

// Sender delivers one sample for a trip.
type Sender interface {
	SendLocation(ctx context.Context, tripID uint, sample models.LocationSample) error
}

type Config struct {
	TripID   uint
	Source   PositionSource
	Sender   Sender
	Interval time.Duration
	Options  *WatchOptions
	Metrics  *Metrics
	Logger   *logrus.Entry
	Now      func() time.Time
}

type Stats struct {
	Sent      uint64
	Throttled uint64
	Failed    uint64
}

type Tracker struct {
	tripID   uint
	source   PositionSource
	sender   Sender
	interval time.Duration
	opts     WatchOptions
	metrics  *Metrics
	log      *logrus.Entry
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stop    func()
	cancel  context.CancelFunc

	sent, throttled, failed atomic.Uint64
}

func New(cfg Config) *Tracker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	opts := DefaultWatchOptions()
	if cfg.Options != nil {
		opts = *cfg.Options
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Tracker{
		tripID:   cfg.TripID,
		source:   cfg.Source,
		sender:   cfg.Sender,
		interval: interval,
		opts:     opts,
		metrics:  metrics,
		log:      log.WithFields(logrus.Fields{"component": "tracker", "trip_id": cfg.TripID}),
		now:      now,
	}
}

// Start subscribes to the position source. Calling it while running is a
// no-op. A missing source fails with ErrCapability.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	if t.source == nil {
		return ErrCapability
	}

	ctx, cancel := context.WithCancel(ctx)
	limiter := rate.NewLimiter(rate.Every(t.interval), 1)
	stop, err := t.source.Watch(ctx, t.opts,
		func(p Position) { t.handle(ctx, limiter, p) },
		func(err error) { t.log.WithError(err).Warn("Position watch error") },
	)
	if err != nil {
		cancel()
		return err
	}
	t.stop = stop
	t.cancel = cancel
	t.running = true
	t.log.Info("Tracking started")
	return nil
}

// Stop ends the subscription. Safe to call when not running.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop, cancel := t.stop, t.cancel
	wasRunning := t.running
	t.running, t.stop, t.cancel = false, nil, nil
	t.mu.Unlock()

	if !wasRunning {
		return
	}
	if stop != nil {
		stop()
	}
	cancel()
	t.log.WithFields(logrus.Fields{"sent": t.sent.Load(), "failed": t.failed.Load()}).Info("Tracking stopped")
}

func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tracker) Stats() Stats {
	return Stats{Sent: t.sent.Load(), Throttled: t.throttled.Load(), Failed: t.failed.Load()}
}

// handle runs on the source's goroutine. The limiter is measured on
// receive time.
func (t *Tracker) handle(ctx context.Context, limiter *rate.Limiter, p Position) {
	if ctx.Err() != nil {
		return
	}

	if !limiter.AllowN(t.now(), 1) {
		t.throttled.Add(1)
		t.metrics.Throttled.Inc()
		return
	}

	sample := SampleOf(p)
	if err := t.sender.SendLocation(ctx, t.tripID, sample); err != nil {
		t.failed.Add(1)
		t.metrics.Failed.Inc()
		t.log.WithError(err).Warn("Location update failed")
		return
	}
	t.sent.Add(1)
	t.metrics.Sent.Inc()
}

// SampleOf converts a fix into the API payload; recorded_at is the fix
// time, not the send time.
func SampleOf(p Position) models.LocationSample {
	lat, lng := p.Lat, p.Lng
	s := models.LocationSample{Lat: &lat, Lng: &lng, Accuracy: p.Accuracy, Speed: p.Speed}
	if !p.Timestamp.IsZero() {
		ts := p.Timestamp.UTC()
		s.RecordedAt = &ts
	}
	return s
}
