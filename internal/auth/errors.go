package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/spotauth/internal/shared"
	"golang.org/x/oauth2"
)

var (
	ErrTokenExchangeFailed = shared.ErrTokenExchangeFailed
	ErrRefreshFailed       = shared.ErrRefreshFailed
	ErrNoRefreshToken      = shared.ErrNoRefreshToken
	ErrNotAuthenticated    = shared.ErrNotAuthenticated
)

// StatusError reports a failed token endpoint call.
//
// Kind is [ErrTokenExchangeFailed] or [ErrRefreshFailed]. StatusCode is 0 when no response was received.
type StatusError struct {
	Kind       error
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: status %d %s", e.Kind, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func newStatusError(kind, err error) *StatusError {
	se := &StatusError{Kind: kind, Err: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		se.StatusCode = re.Response.StatusCode
	}
	return se
}
