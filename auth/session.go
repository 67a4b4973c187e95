// Package auth manages the KUIS session credential: it runs the fragile
// upstream login protocol, caches the resulting session cookie, and
// serializes renewal so concurrent fetchers never log in redundantly.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
	"github.com/KU-Stacks/ku-ring-backend-web/retrier"
)

// sessionCookieName is the cookie KUIS issues on a successful login.
const sessionCookieName = "JSESSIONID"

// loginResponse is the slice of the KUIS login body the manager cares
// about: acceptance is signalled by success inside the _METADATA_
// envelope, never by a top-level field. Anything else is a
// bad-credentials or changed-upstream answer, never a transient fault.
type loginResponse struct {
	Metadata struct {
		Success bool `json:"success"`
	} `json:"_METADATA_"`
}

// Manager obtains, caches and renews the KUIS session cookie.
type Manager struct {
	client *http.Client
	logger *slog.Logger
	policy retrier.Policy

	skeletonURL string
	loginURL    string
	id          string
	password    string

	mu      sync.Mutex
	session string
	group   singleflight.Group
}

// New creates a session manager. No login happens until Session is called.
func New(client *http.Client, skeletonURL, loginURL, id, password string, policy retrier.Policy, logger *slog.Logger) *Manager {
	return &Manager{
		client:      client,
		logger:      logger,
		policy:      policy,
		skeletonURL: skeletonURL,
		loginURL:    loginURL,
		id:          id,
		password:    password,
	}
}

// Session returns the cached session cookie, running the login protocol
// when nothing is cached. Concurrent callers during a renewal share one
// in-flight login.
func (m *Manager) Session(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.session != "" {
		cached := m.session
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("login", func() (any, error) {
		// A caller that queued behind a finished renewal takes the
		// fresh cookie instead of logging in again.
		m.mu.Lock()
		if m.session != "" {
			cached := m.session
			m.mu.Unlock()
			return cached, nil
		}
		m.mu.Unlock()

		session, err := m.login(ctx)
		if err != nil {
			return "", err
		}

		m.mu.Lock()
		m.session = session
		m.mu.Unlock()
		return session, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ForceRenew drops the cached credential; the next Session call re-runs
// the login protocol. Called by fetchers after an auth-rejected response.
func (m *Manager) ForceRenew() {
	m.mu.Lock()
	m.session = ""
	m.mu.Unlock()
	m.logger.Info("Session credential invalidated, next call will renew")
}

// login runs the full protocol: fetch the API skeleton descriptor, post a
// login request derived from it, verify the success marker, and pull the
// session cookie out of the response headers.
func (m *Manager) login(ctx context.Context) (string, error) {
	var session string

	err := m.policy.Do(ctx, "kuis_login", func() error {
		skeleton, err := m.fetchSkeleton(ctx)
		if err != nil {
			return err
		}

		cookie, err := m.submitLogin(ctx, skeleton)
		if err != nil {
			return err
		}

		session = cookie
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("KUIS login succeeded")
	return session, nil
}

func (m *Manager) fetchSkeleton(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.skeletonURL, http.NoBody)
	if err != nil {
		return "", apperror.Wrap(apperror.ErrAuthSkeletonFetch, err)
	}

	startTime := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn("API skeleton fetch failed",
			"url", m.skeletonURL,
			"duration_ms", time.Since(startTime).Milliseconds(),
			"error", err)
		return "", apperror.Wrap(apperror.ErrAuthSkeletonFetch, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			m.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", apperror.New(apperror.ErrAuthSkeletonFetch, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Wrap(apperror.ErrAuthSkeletonFetch, err)
	}

	m.logger.Info("API skeleton fetched",
		"url", m.skeletonURL,
		"bytes", len(body),
		"duration_ms", time.Since(startTime).Milliseconds())

	return strings.TrimSpace(string(body)), nil
}

func (m *Manager) submitLogin(ctx context.Context, skeleton string) (string, error) {
	body := buildLoginBody(skeleton, m.id, m.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loginURL, strings.NewReader(body))
	if err != nil {
		return "", apperror.Wrap(apperror.ErrAuthLoginTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	startTime := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn("Login request failed",
			"url", m.loginURL,
			"duration_ms", time.Since(startTime).Milliseconds(),
			"error", err)
		return "", apperror.Wrap(apperror.ErrAuthLoginTransport, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			m.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	m.logger.Info("Login request completed",
		"url", m.loginURL,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(startTime).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return "", apperror.New(apperror.ErrAuthLoginTransport, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Wrap(apperror.ErrAuthLoginTransport, err)
	}

	if len(respBody) == 0 {
		return "", apperror.New(apperror.ErrAuthEmptyBody, m.loginURL)
	}

	var decoded loginResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		m.logger.Warn("Login response is not the expected envelope", "bytes", len(respBody), "error", err)
		return "", apperror.New(apperror.ErrAuthBadResponse, "upstream login flow changed")
	}
	if !decoded.Metadata.Success {
		m.logger.Warn("Login response missing success marker", "bytes", len(respBody))
		return "", apperror.New(apperror.ErrAuthBadResponse, "credentials rejected or upstream login flow changed")
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie.Name + "=" + cookie.Value, nil
		}
	}

	return "", apperror.New(apperror.ErrAuthBadResponse, "success response carried no session cookie")
}

// buildLoginBody derives the login request body from the server-provided
// skeleton. The skeleton is an opaque form prefix; the configured identity
// is appended url-encoded.
func buildLoginBody(skeleton, id, password string) string {
	creds := url.Values{}
	creds.Set("user_id", id)
	creds.Set("user_pwd", password)

	if skeleton == "" {
		return creds.Encode()
	}
	return skeleton + "&" + creds.Encode()
}
