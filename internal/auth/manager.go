package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/spotauth/internal/pkce"
	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/store"
)

// Operation names passed to [Observer].
const (
	OpBeginLogin    = "begin_login"
	OpCompleteLogin = "complete_login"
	OpRefresh       = "refresh"
	OpLogout        = "logout"
)

// Navigator sends the user agent to the authorization URL.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

// Observer is notified after every record-mutating operation.
type Observer interface {
	Observe(op string, err error)
}

// Clock returns the current time.
type Clock func() time.Time

// Config holds the public-client settings for the authorization server.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string
	TokenURL    string
}

// ConfigFrom maps the [shared.SpotifyConfig] section onto a [Config].
func ConfigFrom(c shared.SpotifyConfig) Config {
	return Config{
		ClientID:    c.ClientID,
		RedirectURI: c.RedirectURI,
		Scopes:      c.Scopes,
		AuthURL:     c.AuthURL,
		TokenURL:    c.TokenURL,
	}
}

// Options wires a [Manager]. Store is required; the rest default.
type Options struct {
	Config     Config
	Store      store.Store
	Generator  *pkce.Generator
	Navigator  Navigator
	HTTPClient *http.Client
	Clock      Clock
	Logger     *log.Logger
	Observer   Observer
}

// Manager runs the PKCE token lifecycle against a [store.Store].
type Manager struct {
	oauth     *oauth2.Config
	store     store.Store
	generator *pkce.Generator
	navigator Navigator
	client    *http.Client
	now       Clock
	logger    *log.Logger
	observer  Observer

	mu sync.Mutex
}

// NewManager validates opts and returns a ready [Manager].
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: token store", shared.ErrMissingConfig)
	}
	if opts.Config.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}

	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:    opts.Config.ClientID,
			RedirectURL: opts.Config.RedirectURI,
			Scopes:      opts.Config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.Config.AuthURL,
				TokenURL:  opts.Config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:     opts.Store,
		generator: opts.Generator,
		navigator: opts.Navigator,
		client:    opts.HTTPClient,
		now:       opts.Clock,
		logger:    opts.Logger,
		observer:  opts.Observer,
	}

	if m.generator == nil {
		m.generator = pkce.NewGenerator()
	}
	if m.navigator == nil {
		m.navigator = shared.Browser{}
	}
	if m.client == nil {
		m.client = http.DefaultClient
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}

	return m, nil
}

// AuthorizationURL builds the authorization redirect for a challenge. An empty state is omitted.
func (m *Manager) AuthorizationURL(state, challenge string) string {
	return m.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", pkce.MethodS256),
		oauth2.SetAuthURLParam("code_challenge", challenge),
	)
}

// BeginLogin stores a fresh code_verifier, builds the authorization URL and hands it to the Navigator.
//
// The URL is returned even when navigation fails so the caller can show it to the user.
// After a successful return the caller should wait for the redirect rather than continue the flow.
func (m *Manager) BeginLogin(ctx context.Context, state string) (authURL string, err error) {
	defer func() { m.observe(OpBeginLogin, err) }()

	m.mu.Lock()
	pair, err := m.generator.GenerateVerifierAndChallenge()
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	err = m.store.Set(ctx, map[string]string{KeyCodeVerifier: pair.Verifier})
	m.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to persist code_verifier: %w", err)
	}

	authURL = m.AuthorizationURL(state, pair.Challenge)
	m.logger.Debug("authorization url built", "state", state != "")

	if err := m.navigator.Navigate(ctx, authURL); err != nil {
		return authURL, fmt.Errorf("failed to open authorization url: %w", err)
	}
	return authURL, nil
}

// CompleteLogin exchanges an authorization code and the stored verifier for tokens.
//
// The record is only written when the token endpoint succeeds. A reused or invalid code
// yields a [*StatusError] matching [ErrTokenExchangeFailed].
func (m *Manager) CompleteLogin(ctx context.Context, code string) (err error) {
	defer func() { m.observe(OpCompleteLogin, err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load(ctx)
	if err != nil {
		return err
	}

	tok, err := m.oauth.Exchange(m.httpContext(ctx), code, oauth2.VerifierOption(current.CodeVerifier))
	if err != nil {
		se := newStatusError(ErrTokenExchangeFailed, err)
		m.logger.Warn("token exchange failed", "status", se.StatusCode)
		return se
	}

	if err := m.store.Set(ctx, tokenEntries(tok, current.RefreshToken, m.now())); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	m.logger.Info("signed in", "expires_in", expiresIn(tok))
	return nil
}

// Refresh mints a new access token from the stored refresh token.
//
// Without a refresh token it fails with [ErrNoRefreshToken] before any network call.
// When the response omits refresh_token the stored one is kept.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) (err error) {
	defer func() { m.observe(OpRefresh, err) }()

	current, err := m.load(ctx)
	if err != nil {
		return err
	}
	if current.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	src := m.oauth.TokenSource(m.httpContext(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		se := newStatusError(ErrRefreshFailed, err)
		m.logger.Warn("token refresh failed", "status", se.StatusCode)
		return se
	}

	if err := m.store.Set(ctx, tokenEntries(tok, current.RefreshToken, m.now())); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	m.logger.Debug("token refreshed", "expires_in", expiresIn(tok))
	return nil
}

// CurrentAccessToken returns the stored access token, if any.
func (m *Manager) CurrentAccessToken(ctx context.Context) (string, bool) {
	r, err := m.Record(ctx)
	if err != nil || r.AccessToken == "" {
		return "", false
	}
	return r.AccessToken, true
}

// IsExpired reports true when there is no access token, no recorded expiry, or the expiry has passed.
// A store read failure counts as expired.
func (m *Manager) IsExpired(ctx context.Context) bool {
	r, err := m.Record(ctx)
	if err != nil {
		return true
	}
	return r.Expired(m.now())
}

// Logout removes every key of the record in one operation. Calling it on an empty record is a no-op.
func (m *Manager) Logout(ctx context.Context) (err error) {
	defer func() { m.observe(OpLogout, err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, RecordKeys...); err != nil {
		return fmt.Errorf("failed to clear token record: %w", err)
	}
	m.logger.Info("token record cleared")
	return nil
}

// EnsureFreshToken refreshes when an access token exists, has expired, and a refresh token is stored.
// Otherwise it does nothing.
func (m *Manager) EnsureFreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.load(ctx)
	if err != nil {
		return err
	}
	if r.AccessToken == "" || !r.Expired(m.now()) || r.RefreshToken == "" {
		return nil
	}

	m.logger.Debug("access token expired, refreshing")
	return m.refresh(ctx)
}

// State reports the current lifecycle state. A store read failure reports [StateLoggedOut].
func (m *Manager) State(ctx context.Context) State {
	r, err := m.Record(ctx)
	if err != nil {
		return StateLoggedOut
	}
	return r.State(m.now())
}

// Record returns a snapshot of the persisted token record.
func (m *Manager) Record(ctx context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// Token renews the record if needed and returns the access token as an [oauth2.Token].
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	if err := m.EnsureFreshToken(ctx); err != nil {
		return nil, err
	}

	r, err := m.Record(ctx)
	if err != nil {
		return nil, err
	}
	if r.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return r.Token(), nil
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time { return m.now() }

func (m *Manager) load(ctx context.Context) (Record, error) {
	kv, err := m.store.Load(ctx, RecordKeys...)
	if err != nil {
		return Record{}, fmt.Errorf("failed to load token record: %w", err)
	}
	return decodeRecord(kv), nil
}

func (m *Manager) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

func (m *Manager) observe(op string, err error) {
	if m.observer != nil {
		m.observer.Observe(op, err)
	}
}
