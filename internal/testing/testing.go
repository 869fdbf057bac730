// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Navigator records every URL it is asked to open.
type Navigator struct {
	mu   sync.Mutex
	URLs []string
	Err  error
}

func (n *Navigator) Navigate(_ context.Context, u string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.URLs = append(n.URLs, u)
	return n.Err
}

// Last returns the most recent URL, or "" when none was recorded.
func (n *Navigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.URLs) == 0 {
		return ""
	}
	return n.URLs[len(n.URLs)-1]
}

// TokenServer is a fake OAuth2 token endpoint.
//
// Authorization codes are single use. Codes starting with "bad" and the refresh token
// "revoked" are rejected with 400 invalid_grant.
type TokenServer struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []url.Values
	usedCodes map[string]bool
	seq       int

	// AccessToken overrides the generated access-N value when set.
	AccessToken string
	// RefreshToken is returned by the authorization_code grant when set.
	RefreshToken string
	// RotateRefresh makes the refresh_token grant return a new refresh-N token.
	RotateRefresh bool
	// ExpiresIn is reported in seconds; 0 omits the field.
	ExpiresIn int
	// Status forces every response to this status with an error body when non-zero.
	Status int
}

// NewTokenServer starts a [TokenServer] closed on test cleanup.
func NewTokenServer(t *testing.T) *TokenServer {
	t.Helper()
	s := &TokenServer{usedCodes: make(map[string]bool), ExpiresIn: 3600}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// TokenURL is the endpoint to configure as the token URL.
func (s *TokenServer) TokenURL() string { return s.URL + "/api/token" }

// Requests returns the form bodies received so far.
func (s *TokenServer) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.requests...)
}

// Hits is the number of requests received.
func (s *TokenServer) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Configure mutates server settings under its lock.
func (s *TokenServer) Configure(fn func(s *TokenServer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *TokenServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.PostForm)

	if s.Status != 0 {
		writeJSON(w, s.Status, map[string]any{"error": "server_error"})
		return
	}

	s.seq++
	body := map[string]any{
		"access_token": s.AccessToken,
		"token_type":   "Bearer",
		"scope":        "user-read-private",
	}
	if s.AccessToken == "" {
		body["access_token"] = fmt.Sprintf("access-%d", s.seq)
	}
	if s.ExpiresIn > 0 {
		body["expires_in"] = s.ExpiresIn
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		code := r.PostForm.Get("code")
		if s.usedCodes[code] || code == "" || (len(code) >= 3 && code[:3] == "bad") {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid authorization code"})
			return
		}
		s.usedCodes[code] = true
		if s.RefreshToken != "" {
			body["refresh_token"] = s.RefreshToken
		}
	case "refresh_token":
		if r.PostForm.Get("refresh_token") == "revoked" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Refresh token revoked"})
			return
		}
		if s.RotateRefresh {
			body["refresh_token"] = fmt.Sprintf("refresh-%d", s.seq)
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
		return
	}

	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
