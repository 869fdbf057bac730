package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/spotauth/internal/shared"
)

// Exchanger completes sign-in with an authorization code.
type Exchanger interface {
	CompleteLogin(ctx context.Context, code string) error
}

// CallbackResult is the outcome of one authorization redirect.
type CallbackResult struct {
	Err error
}

// CallbackHandler handles the authorization redirect for the PKCE flow.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	exchanger  Exchanger
	state      string
	path       string
	resultChan chan CallbackResult
	once       sync.Once
	hit        bool
	mu         sync.Mutex
}

// NewCallbackHandler serves path, expects state back from the authorization server and passes
// the code to exchanger. An empty state disables the check.
func NewCallbackHandler(exchanger Exchanger, path, state string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		exchanger:  exchanger,
		state:      state,
		path:       path,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the authorization redirect.
//
// Requests carrying the wrong state are rejected without consuming the handler.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if h.state != "" && q.Get("state") != h.state {
		http.Error(w, shared.ErrStateMismatch.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, shared.ErrCallbackAlreadyTaken.Error(), http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	code := q.Get("code")
	if errParam := q.Get("error"); errParam != "" || code == "" {
		if errParam == "" {
			errParam = "missing code"
		}
		err := fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, errParam)
		if desc := q.Get("error_description"); desc != "" {
			err = fmt.Errorf("%w: %s - %s", shared.ErrAuthorizationDenied, errParam, desc)
		}
		h.Send(CallbackResult{Err: err})
		writePage(w, http.StatusBadRequest, "Authorization Failed", "You can close this window and try signing in again.")
		return
	}

	if err := h.exchanger.CompleteLogin(r.Context(), code); err != nil {
		h.Send(CallbackResult{Err: err})
		writePage(w, http.StatusBadGateway, "Token Exchange Failed", "Check the terminal for details.")
		return
	}

	h.Send(CallbackResult{})
	writePage(w, http.StatusOK, "Authorization Successful", "You can close this window and return to the terminal.")
}

// Send delivers the result (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

// Wait blocks until the callback delivers a result or ctx ends.
// A deadline maps to [shared.ErrTimeout].
func (h *CallbackHandler) Wait(ctx context.Context) error {
	select {
	case res := <-h.resultChan:
		return res.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
		}
		return ctx.Err()
	}
}

var page = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{if .OK}}#1DB954{{else}}#E22134{{end}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func writePage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, struct {
		Title, Message string
		OK             bool
	}{title, message, status == http.StatusOK})
}
