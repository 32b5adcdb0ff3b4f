// Package apiclient is the single chokepoint for outbound calls to the
// logbook API: base URL handling, bearer credentials, error decoding and
// session teardown on 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Credentials supplies the bearer token and is told when the server has
// rejected it.
type Credentials interface {
	AccessToken() string
	Invalidate()
}

type Config struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials Credentials
	// OnUnauthorized runs after the session was invalidated by a 401, the
	// place to send the user back to login.
	OnUnauthorized func()
	Logger         *logrus.Entry
}

type Client struct {
	baseURL        string
	http           *http.Client
	creds          Credentials
	onUnauthorized func()
	log            *logrus.Entry
}

var apiSegment = regexp.MustCompile(`/api(/|$)`)

// NormalizeBaseURL strips trailing slashes and makes sure the URL ends up
// under /api so endpoints starting with "/" concatenate cleanly.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !apiSegment.MatchString(base) {
		base += "/api"
	}
	return base
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		baseURL:        NormalizeBaseURL(cfg.BaseURL),
		http:           httpClient,
		creds:          cfg.Credentials,
		onUnauthorized: cfg.OnUnauthorized,
		log:            log.WithField("component", "apiclient"),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type requestOptions struct {
	requiresAuth bool
	query        url.Values
	header       http.Header
}

type Option func(*requestOptions)

// WithoutAuth sends the request without a bearer token.
func WithoutAuth() Option {
	return func(o *requestOptions) { o.requiresAuth = false }
}

func WithQuery(q url.Values) Option {
	return func(o *requestOptions) { o.query = q }
}

func WithHeader(key, value string) Option {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Set(key, value)
	}
}

// Do performs one request and decodes a successful body into out. A nil
// body is sent without payload; a nil out discards the response.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any, opts ...Option) error {
	ro := requestOptions{requiresAuth: true}
	for _, opt := range opts {
		opt(&ro)
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s: %w", method, endpoint, err)
		}
		payload = bytes.NewReader(b)
	}

	target := c.baseURL + endpoint
	if len(ro.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + ro.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	for k, vs := range ro.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if ro.requiresAuth && c.creds != nil {
		if token := c.creds.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	fields := logrus.Fields{
		"method":     method,
		"endpoint":   endpoint,
		"request_id": requestID,
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithFields(fields).Error("API request failed to reach server")
		return &NetworkError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.WithError(err).WithFields(fields).Error("API response body unreadable")
		return &NetworkError{Method: method, Endpoint: endpoint, Err: err}
	}
	fields["status"] = resp.StatusCode

	if resp.StatusCode == http.StatusUnauthorized && ro.requiresAuth {
		c.log.WithFields(fields).Warn("API rejected credentials, ending session")
		if c.creds != nil {
			c.creds.Invalidate()
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &UnauthorizedError{Endpoint: endpoint}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := DecodeErrorBody(raw)
		fields["body"] = string(raw)
		fields["body_kind"] = errBody.Kind.String()
		c.log.WithFields(fields).Error("API request failed")
		return &HTTPError{Status: resp.StatusCode, Message: errBody.Message(), Body: errBody}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func Get[T any](ctx context.Context, c *Client, endpoint string, opts ...Option) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, endpoint, nil, &out, opts...)
	return out, err
}

func Post[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...Option) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, endpoint, body, &out, opts...)
	return out, err
}

func Put[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...Option) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPut, endpoint, body, &out, opts...)
	return out, err
}

func Patch[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...Option) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPatch, endpoint, body, &out, opts...)
	return out, err
}

func Delete[T any](ctx context.Context, c *Client, endpoint string, opts ...Option) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodDelete, endpoint, nil, &out, opts...)
	return out, err
}
