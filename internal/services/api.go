package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/spotauth/internal/shared"
)

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

type apiErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Get performs an authenticated GET against path (relative to the API base URL, or an absolute
// pagination URL) and returns the raw response whatever its status.
func (c *SpotifyClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	fullURL, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(fullURL, 0, start)
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()
	c.observe(fullURL, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// getJSON performs [SpotifyClient.Get] and decodes a 2xx body into v.
func (c *SpotifyClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// checkStatus maps a non-2xx response to a shared sentinel.
func checkStatus(resp *APIResponse) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := http.StatusText(resp.StatusCode)
	var body apiErrorBody
	if json.Unmarshal(resp.Body, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", errNotFound, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
}

var errNotFound = fmt.Errorf("%w: not found", shared.ErrAPIRequest)

func isNotFound(err error) bool { return errors.Is(err, errNotFound) }

func (c *SpotifyClient) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		if u.Host != c.host {
			return "", fmt.Errorf("%w: refusing to send token to %s", shared.ErrInvalidArgument, u.Host)
		}
		return path, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path, nil
}

func (c *SpotifyClient) observe(fullURL string, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(endpointLabel(c.baseURL, fullURL), status, time.Since(start))
}

// endpointLabel reduces a URL to a low-cardinality label, e.g. "/playlists/{id}/tracks".
func endpointLabel(baseURL, fullURL string) string {
	p := strings.TrimPrefix(fullURL, baseURL)
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) >= 2 && parts[0] == "playlists" {
		parts[1] = "{id}"
	}
	return "/" + strings.Join(parts, "/")
}
