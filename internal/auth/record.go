package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// Keys of the persisted token record.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresIn    = "expires_in"
	KeyExpiresAt    = "expires_at"
	KeyCodeVerifier = "code_verifier"
)

// RecordKeys lists every key owned by the token record.
var RecordKeys = []string{KeyAccessToken, KeyRefreshToken, KeyExpiresIn, KeyExpiresAt, KeyCodeVerifier}

// ExpiryMargin is subtracted from the server-reported lifetime so tokens are renewed before they lapse.
const ExpiryMargin = 15 * time.Second

// State is the lifecycle position of the token record.
type State int

const (
	StateLoggedOut State = iota
	StatePendingAuthorization
	StateAuthenticated
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged out"
	case StatePendingAuthorization:
		return "pending authorization"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Record is the decoded token record. Zero values mean the key is absent or unparsable.
type Record struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	ExpiresAt    time.Time
	CodeVerifier string
}

// Expired reports whether the access token is missing, has no recorded expiry, or now is at or past ExpiresAt.
func (r Record) Expired(now time.Time) bool {
	return r.AccessToken == "" || r.ExpiresAt.IsZero() || !now.Before(r.ExpiresAt)
}

// State derives the lifecycle state at now.
func (r Record) State(now time.Time) State {
	switch {
	case r.AccessToken != "" && !r.Expired(now):
		return StateAuthenticated
	case r.AccessToken != "":
		return StateExpired
	case r.CodeVerifier != "":
		return StatePendingAuthorization
	default:
		return StateLoggedOut
	}
}

// Token converts the record to an [oauth2.Token] for bearer use.
func (r Record) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       r.ExpiresAt,
		ExpiresIn:    int64(r.ExpiresIn / time.Second),
	}
}

func decodeRecord(kv map[string]string) Record {
	r := Record{
		AccessToken:  kv[KeyAccessToken],
		RefreshToken: kv[KeyRefreshToken],
		CodeVerifier: kv[KeyCodeVerifier],
	}
	if secs, err := strconv.ParseInt(kv[KeyExpiresIn], 10, 64); err == nil && secs > 0 {
		r.ExpiresIn = time.Duration(secs) * time.Second
	}
	if ms, err := strconv.ParseInt(kv[KeyExpiresAt], 10, 64); err == nil && ms > 0 {
		r.ExpiresAt = time.UnixMilli(ms)
	}
	return r
}

// tokenEntries renders a token response into store entries, keeping refreshToken when the response omits one.
func tokenEntries(tok *oauth2.Token, refreshToken string, now time.Time) map[string]string {
	secs := expiresIn(tok)

	var expiresAt int64
	if secs > 0 {
		expiresAt = now.Add(time.Duration(secs)*time.Second - ExpiryMargin).UnixMilli()
	}

	entries := map[string]string{
		KeyAccessToken: tok.AccessToken,
		KeyExpiresIn:   strconv.FormatInt(secs, 10),
		KeyExpiresAt:   strconv.FormatInt(expiresAt, 10),
	}
	if tok.RefreshToken != "" {
		entries[KeyRefreshToken] = tok.RefreshToken
	} else if refreshToken != "" {
		entries[KeyRefreshToken] = refreshToken
	}
	return entries
}

// expiresIn returns the lifetime in seconds reported by the token endpoint, or 0 when absent.
func expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	switch v := tok.Extra(KeyExpiresIn).(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}
