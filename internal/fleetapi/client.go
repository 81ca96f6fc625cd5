package fleetapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	apperr "github.com/kioskfleet/kiosk-fleet-go/pkg/errors"
)

const requestTimeout = 30 * time.Second

// refreshSkew renews the access token slightly before its exp claim so a
// request does not race the expiry.
const refreshSkew = 30 * time.Second

// KioskIdentity authenticates the unattended downloader. The backend
// trusts these headers instead of a user bearer token.
type KioskIdentity struct {
	PosID   string
	KioskID string
	KioskNo int
}

// AdminSession holds the admin web credentials and the refresh-coalescing
// state. It is an explicit object injected into the client so the
// single-flight refresh behavior is testable in isolation.
type AdminSession struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	email        string
	name         string

	refreshing bool
	waiters    []chan error
}

// NewAdminSession creates a session from stored credentials.
func NewAdminSession(accessToken, refreshToken, email, name string) *AdminSession {
	s := &AdminSession{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		email:        email,
		name:         name,
	}
	if s.name == "" {
		s.name = "System"
	}
	return s
}

// AccessToken returns the current access token, which may be empty after
// the session has been cleared.
func (s *AdminSession) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// Tokens returns the current token pair for persistence between CLI
// invocations.
func (s *AdminSession) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// Actor returns the audit-attribution identity.
func (s *AdminSession) Actor() (email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email, s.name
}

// Clear drops all credentials. Used when authentication is unrecoverable.
func (s *AdminSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
}

func (s *AdminSession) set(res *LoginResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = res.AccessToken
	if res.RefreshToken != "" {
		s.refreshToken = res.RefreshToken
	}
	if res.Email != "" {
		s.email = res.Email
	}
	if res.DisplayName != "" {
		s.name = res.DisplayName
	}
}

// refreshFunc exchanges a refresh token for a new token pair.
type refreshFunc func(ctx context.Context, refreshToken string) (*LoginResult, error)

// refresh performs a single coalesced refresh. Concurrent callers while a
// refresh is in flight park on a continuation channel and all observe the
// same outcome; only one HTTP refresh ever runs at a time.
func (s *AdminSession) refresh(ctx context.Context, fn refreshFunc) error {
	s.mu.Lock()
	if s.refreshing {
		ch := make(chan error, 1)
		s.waiters = append(s.waiters, ch)
		s.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.refreshing = true
	token := s.refreshToken
	s.mu.Unlock()

	var err error
	var res *LoginResult
	if token == "" {
		err = apperr.ErrSessionExpired
	} else {
		res, err = fn(ctx, token)
	}

	s.mu.Lock()
	s.refreshing = false
	if err != nil {
		s.accessToken = ""
		s.refreshToken = ""
	} else {
		s.accessToken = res.AccessToken
		if res.RefreshToken != "" {
			s.refreshToken = res.RefreshToken
		}
	}
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}

// expiringSoon reports whether the bearer token's exp claim is within the
// refresh skew. The token is not verified here; only the server can do
// that, the client just avoids sending a token it knows is stale.
func expiringSoon(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now.Add(refreshSkew))
}

// Client talks to the fleet backend REST API. Exactly one of session or
// identity is set, selecting the admin or kiosk authentication scheme.
type Client struct {
	http     *resty.Client
	logger   *logrus.Logger
	session  *AdminSession
	identity *KioskIdentity
	now      func() time.Time
}

// NewAdminClient creates a client for the admin surface: bearer token plus
// actor headers, with one transparent refresh on 401.
func NewAdminClient(baseURL string, session *AdminSession, logger *logrus.Logger) *Client {
	return &Client{
		http:    newHTTP(baseURL),
		logger:  logger,
		session: session,
		now:     time.Now,
	}
}

// NewKioskClient creates a client for the unattended downloader, using
// kiosk identity headers instead of a bearer token.
func NewKioskClient(baseURL string, identity KioskIdentity, logger *logrus.Logger) *Client {
	return &Client{
		http:     newHTTP(baseURL),
		logger:   logger,
		identity: &identity,
		now:      time.Now,
	}
}

func newHTTP(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Message string `json:"message"`
}

// do executes one API call with authentication, error classification and,
// for admin sessions, a single refresh-and-retry on 401.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	for attempt := 0; ; attempt++ {
		if c.session != nil && expiringSoon(c.session.AccessToken(), c.now()) {
			if err := c.session.refresh(ctx, c.refreshTokens); err != nil {
				return apperr.ErrSessionExpired
			}
		}

		req := c.http.R().SetContext(ctx)
		c.authorize(req)
		if query != nil {
			req.SetQueryParamsFromValues(query)
		}
		if body != nil {
			req.SetBody(body)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return &apperr.NetworkError{Err: err}
		}

		status := resp.StatusCode()
		if status < 400 {
			if out != nil && len(resp.Body()) > 0 {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("failed to parse %s %s response: %w", method, path, err)
				}
			}
			return nil
		}

		if status == 401 && c.session != nil && attempt == 0 {
			c.logger.WithField("path", path).Debug("access token rejected, refreshing once")
			if err := c.session.refresh(ctx, c.refreshTokens); err != nil {
				c.session.Clear()
				return apperr.ErrSessionExpired
			}
			continue
		}
		if status == 401 || status == 403 {
			if c.session != nil {
				c.session.Clear()
			}
			return apperr.FromStatus(status, c.message(resp.Body()))
		}
		return apperr.FromStatus(status, c.message(resp.Body()))
	}
}

func (c *Client) message(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	return ""
}

func (c *Client) authorize(req *resty.Request) {
	switch {
	case c.session != nil:
		if token := c.session.AccessToken(); token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		email, name := c.session.Actor()
		req.SetHeader("X-User-Email", url.QueryEscape(email))
		req.SetHeader("X-User-Name", url.QueryEscape(name))
	case c.identity != nil:
		req.SetHeader("X-Kiosk-PosId", c.identity.PosID)
		req.SetHeader("X-Kiosk-Id", c.identity.KioskID)
		req.SetHeader("X-Kiosk-No", strconv.Itoa(c.identity.KioskNo))
	}
}

// refreshTokens calls the refresh endpoint outside the normal auth path
// so a stale bearer token cannot poison the refresh itself.
func (c *Client) refreshTokens(ctx context.Context, refreshToken string) (*LoginResult, error) {
	var res LoginResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"refreshToken": refreshToken}).
		SetResult(&res).
		Post("/auth/refresh")
	if err != nil {
		return nil, &apperr.NetworkError{Err: err}
	}
	if resp.IsError() {
		return nil, apperr.FromStatus(resp.StatusCode(), c.message(resp.Body()))
	}
	return &res, nil
}

// Login authenticates with email/password and stores the issued tokens in
// the session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if c.session == nil {
		return nil, fmt.Errorf("login requires an admin session")
	}
	var res LoginResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&res).
		Post("/auth/login")
	if err != nil {
		return nil, &apperr.NetworkError{Err: err}
	}
	if resp.IsError() {
		return nil, apperr.FromStatus(resp.StatusCode(), c.message(resp.Body()))
	}
	c.session.set(&res)
	return &res, nil
}
