package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrUnknownDriver      = fmt.Errorf("unknown store driver")

	// PKCE and token lifecycle errors
	ErrEntropyUnavailable  = fmt.Errorf("entropy source unavailable")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrRefreshFailed       = fmt.Errorf("refresh failed")
	ErrNoRefreshToken      = fmt.Errorf("no refresh_token available")
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrTimeout             = fmt.Errorf("operation timed out")

	// Callback errors
	ErrStateMismatch        = fmt.Errorf("invalid state parameter")
	ErrAuthorizationDenied  = fmt.Errorf("authorization denied")
	ErrCallbackAlreadyTaken = fmt.Errorf("callback already processed")

	// API and service errors
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
