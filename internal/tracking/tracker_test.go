package tracking

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"driver_logbook/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type manualSource struct {
	watches int
	opts    WatchOptions
	emit    func(Position)
	stopped bool
}

func (m *manualSource) Watch(_ context.Context, opts WatchOptions, onPosition func(Position), _ func(error)) (func(), error) {
	m.watches++
	m.opts = opts
	m.emit = onPosition
	return func() { m.stopped = true }, nil
}

type recordingSender struct {
	mu      sync.Mutex
	samples []models.LocationSample
	err     error
}

func (r *recordingSender) SendLocation(_ context.Context, _ uint, s models.LocationSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.samples = append(r.samples, s)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func TestThrottleSendsAtMostOncePerInterval(t *testing.T) {
	src := &manualSource{}
	sender := &recordingSender{}
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := &clock{t: t0}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	tr := New(Config{TripID: 7, Source: src, Sender: sender, Metrics: metrics, Logger: quietLogger(), Now: clk.Now})
	require.NoError(t, tr.Start(context.Background()))

	for _, offset := range []time.Duration{0, 200 * time.Millisecond, 900 * time.Millisecond, 1100 * time.Millisecond} {
		clk.t = t0.Add(offset)
		src.emit(Position{Lat: 1, Lng: 2, Timestamp: clk.t})
	}

	require.Len(t, sender.samples, 2)
	assert.Equal(t, t0, *sender.samples[0].RecordedAt)
	assert.Equal(t, t0.Add(1100*time.Millisecond), *sender.samples[1].RecordedAt)
	assert.Equal(t, Stats{Sent: 2, Throttled: 2}, tr.Stats())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Sent))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Throttled))
}

func TestWatchUsesHighAccuracyDefaults(t *testing.T) {
	src := &manualSource{}
	tr := New(Config{Source: src, Sender: &recordingSender{}, Logger: quietLogger()})
	require.NoError(t, tr.Start(context.Background()))
	assert.Equal(t, WatchOptions{HighAccuracy: true, MaximumAge: time.Second, Timeout: 10 * time.Second}, src.opts)
}

func TestStartIsIdempotentAndStopIsSafe(t *testing.T) {
	src := &manualSource{}
	tr := New(Config{Source: src, Sender: &recordingSender{}, Logger: quietLogger()})

	tr.Stop()
	assert.False(t, tr.Running())

	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Start(context.Background()))
	assert.Equal(t, 1, src.watches)
	assert.True(t, tr.Running())

	tr.Stop()
	tr.Stop()
	assert.True(t, src.stopped)
	assert.False(t, tr.Running())
}

func TestStopIgnoresLateFixes(t *testing.T) {
	src := &manualSource{}
	sender := &recordingSender{}
	tr := New(Config{Source: src, Sender: sender, Logger: quietLogger()})
	require.NoError(t, tr.Start(context.Background()))
	tr.Stop()

	src.emit(Position{Lat: 1, Lng: 1})
	assert.Empty(t, sender.samples)
}

func TestMissingSourceIsCapabilityError(t *testing.T) {
	tr := New(Config{Sender: &recordingSender{}, Logger: quietLogger()})
	assert.ErrorIs(t, tr.Start(context.Background()), ErrCapability)
	assert.False(t, tr.Running())
}

func TestSendFailuresAreCountedNotSurfaced(t *testing.T) {
	src := &manualSource{}
	sender := &recordingSender{err: errors.New("503")}
	t0 := time.Now()
	clk := &clock{t: t0}
	tr := New(Config{Source: src, Sender: sender, Logger: quietLogger(), Now: clk.Now})
	require.NoError(t, tr.Start(context.Background()))

	src.emit(Position{Lat: 1, Lng: 1})
	clk.t = t0.Add(2 * time.Second)
	src.emit(Position{Lat: 1, Lng: 1})

	assert.Equal(t, Stats{Failed: 2}, tr.Stats())
	assert.True(t, tr.Running())
}

func TestSimulatedSourceReachesDestination(t *testing.T) {
	from := models.LatLng{Lat: 40.0, Lng: -74.0}
	to := models.LatLng{Lat: 40.01, Lng: -74.0}
	src := &SimulatedSource{From: from, To: to, Steps: 2, Interval: 5 * time.Millisecond}

	var mu sync.Mutex
	var got []Position
	done := make(chan struct{})
	stop, err := src.Watch(context.Background(), DefaultWatchOptions(), func(p Position) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p)
		if len(got) == 3 {
			close(done)
		}
	}, nil)
	require.NoError(t, err)
	defer stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("simulated source did not emit")
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	assert.InDelta(t, from.Lat, got[0].Lat, 1e-9)
	assert.InDelta(t, to.Lat, got[2].Lat, 1e-9)
	assert.Zero(t, *got[2].Speed)
	assert.Greater(t, *got[1].Speed, 0.0)
}
