package session

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// TokenHolder owns the in-memory token pair, mirrors it to storage and
// satisfies apiclient.Credentials.
type TokenHolder struct {
	mu      sync.RWMutex
	tokens  Tokens
	storage TokenStorage
	hooks   []func()
	log     *logrus.Entry
}

// NewTokenHolder hydrates the pair from storage. A storage read error is
// logged and treated as no session.
func NewTokenHolder(storage TokenStorage, log *logrus.Entry) *TokenHolder {
	if storage == nil {
		storage = NewMemoryStorage(Tokens{})
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &TokenHolder{storage: storage, log: log.WithField("component", "session")}
	t, err := storage.Load()
	if err != nil {
		h.log.WithError(err).Warn("Could not load persisted tokens")
	}
	h.tokens = t
	return h
}

func (h *TokenHolder) AccessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tokens.Access
}

func (h *TokenHolder) RefreshToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tokens.Refresh
}

func (h *TokenHolder) Tokens() Tokens {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tokens
}

func (h *TokenHolder) Set(t Tokens) error {
	h.mu.Lock()
	h.tokens = t
	h.mu.Unlock()
	return h.storage.Save(t)
}

// Clear drops the pair from memory and storage without running hooks.
func (h *TokenHolder) Clear() {
	h.mu.Lock()
	h.tokens = Tokens{}
	h.mu.Unlock()
	if err := h.storage.Clear(); err != nil {
		h.log.WithError(err).Error("Failed to clear persisted tokens")
	}
}

// Invalidate clears the pair and notifies every OnInvalidate hook. The
// gateway calls it on a 401.
func (h *TokenHolder) Invalidate() {
	h.Clear()
	h.mu.RLock()
	hooks := append([]func(){}, h.hooks...)
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (h *TokenHolder) OnInvalidate(fn func()) {
	h.mu.Lock()
	h.hooks = append(h.hooks, fn)
	h.mu.Unlock()
}
