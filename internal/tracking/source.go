package tracking

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"driver_logbook/internal/geo"
	"driver_logbook/internal/models"
)

// ErrCapability means no position source is available on this platform.
var ErrCapability = errors.New("geolocation is not supported")

type Position struct {
	Lat       float64
	Lng       float64
	Accuracy  *float64
	Speed     *float64
	Timestamp time.Time
}

type WatchOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{HighAccuracy: true, MaximumAge: time.Second, Timeout: 10 * time.Second}
}

// PositionSource delivers fixes to onPosition until the returned stop func
// is called or ctx ends. onError receives non-fatal watch errors.
type PositionSource interface {
	Watch(ctx context.Context, opts WatchOptions, onPosition func(Position), onError func(error)) (stop func(), err error)
}

// SimulatedSource drives along a straight line from From to To, emitting a
// jittered fix every Interval and holding at To once reached.
type SimulatedSource struct {
	From     models.LatLng
	To       models.LatLng
	Steps    int
	Interval time.Duration
	// Jitter is the maximum offset in degrees applied to each fix.
	Jitter float64
	Rand   *rand.Rand
}

func (s *SimulatedSource) Watch(ctx context.Context, opts WatchOptions, onPosition func(Position), onError func(error)) (func(), error) {
	steps := s.Steps
	if steps <= 0 {
		steps = 20
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	rng := s.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	leg := geo.Distance(s.From, s.To) / float64(steps)
	speed := leg / interval.Seconds()
	accuracy := 5.0
	if !opts.HighAccuracy {
		accuracy = 50
	}

	ctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() { once.Do(cancel) }

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; {
			frac := float64(i) / float64(steps)
			p := geo.Interpolate(s.From, s.To, frac)
			if i < steps {
				p.Lat += (rng.Float64()*2 - 1) * s.Jitter
				p.Lng += (rng.Float64()*2 - 1) * s.Jitter
				i++
			}
			acc, spd := accuracy, speed
			if frac >= 1 {
				spd = 0
			}
			onPosition(Position{Lat: p.Lat, Lng: p.Lng, Accuracy: &acc, Speed: &spd, Timestamp: time.Now()})
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return stop, nil
}
