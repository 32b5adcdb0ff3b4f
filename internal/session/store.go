// Package session tracks who is signed in: the persisted token pair and the
// driver profile fetched with it.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"driver_logbook/internal/apiclient"
	"driver_logbook/internal/models"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateAnonymous State = iota
	StateLoading
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// AuthenticationError is a rejected login.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Store is the identity side of the session. It clears itself whenever the
// token holder is invalidated.
type Store struct {
	api    *apiclient.Client
	tokens *TokenHolder
	log    *logrus.Entry

	mu    sync.RWMutex
	state State
	user  *models.Driver
}

func NewStore(api *apiclient.Client, tokens *TokenHolder, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Store{api: api, tokens: tokens, log: log.WithField("component", "session")}
	tokens.OnInvalidate(s.clearIdentity)
	return s
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the current identity, or nil when signed out.
func (s *Store) User() *models.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

func (s *Store) IsAdmin() bool {
	u := s.User()
	return u != nil && u.IsAdmin
}

// Init restores a persisted session. Tokens survive a network failure so a
// later retry can still use them; any other failure ends the session.
func (s *Store) Init(ctx context.Context) error {
	if s.tokens.AccessToken() == "" {
		s.setState(StateAnonymous, nil)
		return nil
	}
	s.setState(StateLoading, nil)
	user, err := s.fetchProfile(ctx)
	if err != nil {
		if apiclient.IsNetwork(err) {
			s.log.WithError(err).Warn("Profile unreachable, keeping stored tokens")
		} else {
			s.log.WithError(err).Warn("Stored session rejected")
			s.tokens.Clear()
		}
		s.setState(StateAnonymous, nil)
		return err
	}
	s.setState(StateAuthenticated, &user)
	return nil
}

func (s *Store) Login(ctx context.Context, creds models.Credentials) (*models.Driver, error) {
	pair, err := apiclient.Post[models.AuthResponse](ctx, s.api, "/auth/login/", creds, apiclient.WithoutAuth())
	if err != nil {
		if apiclient.StatusCode(err) == http.StatusUnauthorized || apiclient.StatusCode(err) == http.StatusBadRequest {
			return nil, &AuthenticationError{Err: err}
		}
		return nil, err
	}
	if err := s.tokens.Set(Tokens{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		s.log.WithError(err).Error("Failed to persist tokens")
	}

	s.setState(StateLoading, nil)
	user, err := s.fetchProfile(ctx)
	if err != nil {
		s.tokens.Clear()
		s.setState(StateAnonymous, nil)
		return nil, err
	}
	s.setState(StateAuthenticated, &user)
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("Signed in")
	return s.User(), nil
}

// Register creates the account and signs in with the same credentials.
func (s *Store) Register(ctx context.Context, data models.RegisterData) (*models.Driver, error) {
	if err := s.api.Do(ctx, http.MethodPost, "/auth/register/", data, nil, apiclient.WithoutAuth()); err != nil {
		return nil, err
	}
	return s.Login(ctx, models.Credentials{Username: data.Username, Password: data.Password})
}

// Logout is local only.
func (s *Store) Logout() {
	s.tokens.Clear()
	s.setState(StateAnonymous, nil)
}

// RefreshUser re-reads the profile. On failure the previous identity stays,
// except after a 401 which has already ended the session.
func (s *Store) RefreshUser(ctx context.Context) (*models.Driver, error) {
	user, err := s.fetchProfile(ctx)
	if err != nil {
		return nil, err
	}
	s.setState(StateAuthenticated, &user)
	return s.User(), nil
}

func (s *Store) fetchProfile(ctx context.Context) (models.Driver, error) {
	return apiclient.Get[models.Driver](ctx, s.api, "/drivers/me/")
}

func (s *Store) setState(state State, user *models.Driver) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.mu.Unlock()
}

func (s *Store) clearIdentity() {
	s.setState(StateAnonymous, nil)
}

// IsAuthError reports whether err is a rejected login.
func IsAuthError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}
