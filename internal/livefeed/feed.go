// Package livefeed follows one trip's live location channel and keeps the
// latest driver position.
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"driver_logbook/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries     = 5
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 15 * time.Second
)

// FeedURL builds the trip channel URL from either the websocket base or the
// REST base. http(s) becomes ws(s) and a trailing /api is dropped.
func FeedURL(base string, tripID uint) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse feed base %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported feed scheme %q", u.Scheme)
	}
	path := strings.TrimRight(u.Path, "/")
	path = strings.TrimSuffix(path, "/api")
	u.Path = fmt.Sprintf("%s/ws/trips/%d/", path, tripID)
	u.RawQuery = ""
	return u.String(), nil
}

type Config struct {
	BaseURL string
	TripID  uint
	Header  http.Header
	Dialer  *websocket.Dialer
	// MaxRetries bounds reconnect attempts after a drop. Zero uses the
	// default.
	MaxRetries     uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *logrus.Entry
}

// Feed is one open trip channel. Updates delivers each accepted location
// event and is closed when the feed ends.
type Feed struct {
	url    string
	cfg    Config
	dialer *websocket.Dialer
	log    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	stale  chan struct{}

	updates chan models.LocationEvent

	mu      sync.Mutex
	conn    *websocket.Conn
	last    *models.LocationEvent
	isStale bool
	closed  bool

	closeOnce sync.Once
}

// Open dials the channel and starts reading. The first dial is not retried.
func Open(ctx context.Context, cfg Config) (*Feed, error) {
	target, err := FeedURL(cfg.BaseURL, cfg.TripID)
	if err != nil {
		return nil, err
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	f := &Feed{
		url:     target,
		cfg:     cfg,
		dialer:  dialer,
		log:     log.WithFields(logrus.Fields{"component": "livefeed", "trip_id": cfg.TripID}),
		done:    make(chan struct{}),
		stale:   make(chan struct{}),
		updates: make(chan models.LocationEvent, 32),
	}
	f.ctx, f.cancel = context.WithCancel(context.Background())

	conn, err := f.dial(ctx)
	if err != nil {
		f.cancel()
		return nil, err
	}
	f.setConn(conn)
	go f.run(conn)
	return f, nil
}

func (f *Feed) URL() string {
	return f.url
}

func (f *Feed) Updates() <-chan models.LocationEvent {
	return f.updates
}

// StaleC is closed once reconnection has been given up.
func (f *Feed) StaleC() <-chan struct{} {
	return f.stale
}

func (f *Feed) Stale() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isStale
}

// Done is closed when the read loop has exited.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Position is the last reported driver position.
func (f *Feed) Position() (models.LatLng, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return models.LatLng{}, false
	}
	return f.last.Position(), true
}

func (f *Feed) Last() (models.LocationEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return models.LocationEvent{}, false
	}
	return *f.last, true
}

// Close tears the channel down. It may be called any number of times.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		f.mu.Lock()
		f.closed = true
		conn := f.conn
		f.mu.Unlock()
		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		}
		<-f.done
	})
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := f.dialer.DialContext(ctx, f.url, f.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", f.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", f.url, err)
	}
	return conn, nil
}

// setConn publishes conn for Close. It reports false when the feed was
// closed in the meantime, in which case conn is closed here.
func (f *Feed) setConn(conn *websocket.Conn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		_ = conn.Close()
		return false
	}
	f.conn = conn
	return true
}

func (f *Feed) run(conn *websocket.Conn) {
	defer close(f.done)
	defer close(f.updates)

	for {
		err := f.readLoop(conn)
		if f.ctx.Err() != nil {
			return
		}
		f.log.WithError(err).Warn("Live feed dropped, reconnecting")

		next, err := f.reconnect()
		if err != nil {
			if f.ctx.Err() != nil {
				return
			}
			f.log.WithError(err).Error("Live feed gave up reconnecting")
			f.mu.Lock()
			f.isStale = true
			f.mu.Unlock()
			close(f.stale)
			return
		}
		if !f.setConn(next) {
			return
		}
		conn = next
		f.log.Info("Live feed reconnected")
	}
}

func (f *Feed) reconnect() (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.InitialBackoff
	b.MaxInterval = f.cfg.MaxBackoff
	return backoff.Retry(f.ctx, func() (*websocket.Conn, error) {
		return f.dial(f.ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(f.cfg.MaxRetries))
}

func (f *Feed) readLoop(conn *websocket.Conn) error {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev models.LocationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			f.log.WithError(err).Debug("Ignoring undecodable live message")
			continue
		}
		if !ev.IsLocationUpdate() {
			continue
		}
		f.mu.Lock()
		f.last = &ev
		f.mu.Unlock()
		select {
		case f.updates <- ev:
		default:
			f.log.Debug("Update consumer is behind, dropping event")
		}
	}
}
