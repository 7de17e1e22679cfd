package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sessionPath = "/api/auth/session"
	logoutPath  = "/api/auth/logout"
	// GoogleLoginPath starts the backend's OAuth flow.
	GoogleLoginPath = "/api/auth/google/login"
	// ProxyPrefix is the path prefix the shell forwards to the backend.
	ProxyPrefix = "/api/auth"
	// DefaultCookieName is the cookie the backend keeps its session in.
	DefaultCookieName = "refresh_token"
)

var (
	// ErrNoSession means the backend reported no active session.
	ErrNoSession = errors.New("no active session")
	// ErrMalformedSession means the backend answered 2xx with an unusable body.
	ErrMalformedSession = errors.New("malformed session response")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Code)
}

// Unwrap lets errors.Is(err, ErrNoSession) match any non-2xx answer.
func (e *StatusError) Unwrap() error { return ErrNoSession }

// Client talks to the auth backend's session endpoints. Credentials travel as
// cookies in the client's jar, the same way a browser would send them.
type Client struct {
	base       *url.URL
	http       *http.Client
	cookieName string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is kept as given.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout on the underlying http.Client. Zero
// means no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCookieName sets the name of the backend's session cookie.
func WithCookieName(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.cookieName = name
		}
	}
}

// WithSessionCookie names the backend's session cookie and seeds the jar with
// its value.
func WithSessionCookie(name, value string) ClientOption {
	return func(c *Client) {
		WithCookieName(name)(c)
		if value == "" || c.http.Jar == nil {
			return
		}
		c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: c.cookieName, Value: value, Path: "/"}})
	}
}

// NewClient returns a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse auth base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("auth base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{base: base, http: &http.Client{Jar: jar}, cookieName: DefaultCookieName}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CookieName is the name of the backend's session cookie.
func (c *Client) CookieName() string { return c.cookieName }

// ForRequest returns a client that speaks to the backend on behalf of the
// browser behind r. Its jar holds only the backend session cookie r carried,
// so each browser is checked with its own credential.
func (c *Client) ForRequest(r *http.Request) *Client {
	jar, _ := cookiejar.New(nil)
	hc := *c.http
	hc.Jar = jar
	if ck, err := r.Cookie(c.cookieName); err == nil && ck.Value != "" {
		jar.SetCookies(c.base, []*http.Cookie{{Name: ck.Name, Value: ck.Value, Path: "/"}})
	}
	return &Client{base: c.base, http: &hc, cookieName: c.cookieName}
}

// URL resolves a backend path against the client's base URL.
func (c *Client) URL(path string) string {
	return c.base.String() + path
}

type sessionResponse struct {
	AccessToken string         `json:"access_token"`
	User        map[string]any `json:"user"`
}

// FetchSession asks the backend who is signed in. Any non-2xx answer yields an
// error matching ErrNoSession.
func (c *Client) FetchSession(ctx context.Context) (*Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, sessionPath)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Op: "fetch session", Code: resp.StatusCode}
	}

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformedSession)
	}
	return NewIdentity(body.AccessToken, body.User), nil
}

// EndSession tells the backend to end the session. The response body is
// ignored.
func (c *Client) EndSession(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, logoutPath)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: "end session", Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.http.Do(req)
}
