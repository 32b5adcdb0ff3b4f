package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	token       string
	invalidated int
}

func (f *fakeCreds) AccessToken() string { return f.token }
func (f *fakeCreds) Invalidate() {
	f.token = ""
	f.invalidated++
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestClient(t *testing.T, h http.HandlerFunc, creds Credentials, onUnauthorized func()) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:        srv.URL,
		Credentials:    creds,
		OnUnauthorized: onUnauthorized,
		Logger:         quietLogger(),
	})
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://logbook.example.com", "https://logbook.example.com/api"},
		{"https://logbook.example.com///", "https://logbook.example.com/api"},
		{"https://logbook.example.com/api/", "https://logbook.example.com/api"},
		{"http://localhost:8080/api", "http://localhost:8080/api"},
		{"http://localhost:8080/v2/api/", "http://localhost:8080/v2/api"},
		{"http://localhost:8080/apix", "http://localhost:8080/apix/api"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBaseURL(tt.in))
		})
	}
}

func TestGetAttachesBearerAndDecodes(t *testing.T) {
	creds := &fakeCreds{token: "abc"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/drivers/me/", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"id": 7, "username": "ana"}`))
	}, creds, nil)

	out, err := Get[struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}](context.Background(), c, "/drivers/me/")
	require.NoError(t, err)
	assert.Equal(t, 7, out.ID)
	assert.Equal(t, "ana", out.Username)
}

func TestWithoutAuthSkipsBearer(t *testing.T) {
	creds := &fakeCreds{token: "abc"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "1.5", r.URL.Query().Get("lat"))
		w.Write([]byte(`{}`))
	}, creds, nil)

	_, err := Get[map[string]any](context.Background(), c, "/search/reverse/",
		WithoutAuth(), WithQuery(url.Values{"lat": {"1.5"}}))
	require.NoError(t, err)
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	creds := &fakeCreds{token: "stale"}
	redirected := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
	}, creds, func() { redirected = true })

	_, err := Get[map[string]any](context.Background(), c, "/trips/")
	require.Error(t, err)
	assert.Equal(t, "Unauthorized", err.Error())
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, 401, StatusCode(err))
	assert.Equal(t, 1, creds.invalidated)
	assert.Empty(t, creds.token)
	assert.True(t, redirected)
}

func TestUnauthenticatedRequest401IsHTTPError(t *testing.T) {
	creds := &fakeCreds{token: "keep"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "No active account found with the given credentials"}`))
	}, creds, nil)

	_, err := Post[map[string]any](context.Background(), c, "/auth/login/", map[string]string{"username": "x"}, WithoutAuth())
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.Status)
	assert.Equal(t, "No active account found with the given credentials", httpErr.Message)
	assert.Zero(t, creds.invalidated)
	assert.Equal(t, "keep", creds.token)
}

func TestHTTPErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantKind    ErrorKind
		wantMessage string
	}{
		{"detail", "application/json", `{"detail": "Not found."}`, ErrorBodyDetail, "Not found."},
		{"message preferred over error", "application/json", `{"message": "bad", "error": "worse"}`, ErrorBodyMessage, "bad"},
		{"error key", "application/json", `{"error": "Trip is already completed"}`, ErrorBodyError, "Trip is already completed"},
		{"compliance", "application/json", `{"compliance_errors": ["a", "b"]}`, ErrorBodyCompliance, "a; b"},
		{"fields", "application/json", `{"username": ["taken"], "password": "short"}`, ErrorBodyFields, "password: short; username: taken"},
		{"list", "application/json", `["nope"]`, ErrorBodyFields, "nope"},
		{"json string", "application/json", `"plain"`, ErrorBodyText, "plain"},
		{"raw text", "text/plain", `Bad Gateway`, ErrorBodyText, "Bad Gateway"},
		{"empty", "text/plain", ``, ErrorBodyEmpty, "Request failed"},
		{"unknown", "application/json", `{"code": 12}`, ErrorBodyUnknown, "Request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}, nil, nil)

			_, err := Post[map[string]any](context.Background(), c, "/trips/", map[string]any{})
			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, 400, httpErr.Status)
			assert.Equal(t, tt.wantKind, httpErr.Body.Kind)
			assert.Equal(t, tt.wantMessage, httpErr.Error())
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Config{BaseURL: base, Logger: quietLogger()})
	_, err := Get[map[string]any](context.Background(), c, "/trips/")
	assert.True(t, IsNetwork(err))
	assert.Zero(t, StatusCode(err))
}

func TestEmptySuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}, nil, nil)

	out, err := Delete[map[string]any](context.Background(), c, "/trips/1/")
	require.NoError(t, err)
	assert.Nil(t, out)
}
