package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/spotauth/internal/pkce"
	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/store"
	tu "github.com/desertthunder/spotauth/internal/testing"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (o *recordingObserver) Observe(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

type fixture struct {
	manager   *Manager
	store     *store.Memory
	server    *tu.TokenServer
	clock     *tu.Clock
	navigator *tu.Navigator
	observer  *recordingObserver
}

func newFixture(t *testing.T, seed map[string]string) *fixture {
	t.Helper()

	f := &fixture{
		store:     store.NewMemoryFrom(seed),
		server:    tu.NewTokenServer(t),
		clock:     tu.NewClock(t0),
		navigator: &tu.Navigator{},
		observer:  &recordingObserver{},
	}

	m, err := NewManager(Options{
		Config: Config{
			ClientID:    "client-123",
			RedirectURI: "http://127.0.0.1:3000/callback",
			Scopes:      []string{"user-read-private", "playlist-read-private"},
			AuthURL:     "https://accounts.example.com/authorize",
			TokenURL:    f.server.TokenURL(),
		},
		Store:      f.store,
		Navigator:  f.navigator,
		HTTPClient: f.server.Client(),
		Clock:      f.clock.Now,
		Logger:     log.New(io.Discard),
		Observer:   f.observer,
	})
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestNewManager(t *testing.T) {
	t.Run("requires a store", func(t *testing.T) {
		_, err := NewManager(Options{Config: Config{ClientID: "id"}})
		assert.ErrorIs(t, err, shared.ErrMissingConfig)
	})

	t.Run("requires a client id", func(t *testing.T) {
		_, err := NewManager(Options{Store: store.NewMemory()})
		assert.ErrorIs(t, err, shared.ErrMissingCredentials)
	})
}

func TestBeginLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("persists verifier and navigates", func(t *testing.T) {
		f := newFixture(t, nil)

		authURL, err := f.manager.BeginLogin(ctx, "xyz")
		require.NoError(t, err)
		assert.Equal(t, authURL, f.navigator.Last())

		rec, err := f.manager.Record(ctx)
		require.NoError(t, err)
		require.Len(t, rec.CodeVerifier, pkce.VerifierLength)
		assert.Equal(t, StatePendingAuthorization, f.manager.State(ctx))

		u, err := url.Parse(authURL)
		require.NoError(t, err)
		assert.Equal(t, "accounts.example.com", u.Host)

		q := u.Query()
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, "client-123", q.Get("client_id"))
		assert.Equal(t, "user-read-private playlist-read-private", q.Get("scope"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.Equal(t, pkce.Challenge(rec.CodeVerifier), q.Get("code_challenge"))
		assert.Equal(t, "http://127.0.0.1:3000/callback", q.Get("redirect_uri"))
		assert.Equal(t, "xyz", q.Get("state"))
	})

	t.Run("omits empty state", func(t *testing.T) {
		f := newFixture(t, nil)

		authURL, err := f.manager.BeginLogin(ctx, "")
		require.NoError(t, err)

		u, _ := url.Parse(authURL)
		_, ok := u.Query()["state"]
		assert.False(t, ok)
	})

	t.Run("fresh verifier per attempt", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.manager.BeginLogin(ctx, "")
		require.NoError(t, err)
		first, _ := f.manager.Record(ctx)

		_, err = f.manager.BeginLogin(ctx, "")
		require.NoError(t, err)
		second, _ := f.manager.Record(ctx)

		assert.NotEqual(t, first.CodeVerifier, second.CodeVerifier)
		assert.Len(t, f.navigator.URLs, 2)
	})

	t.Run("navigation failure still returns url", func(t *testing.T) {
		f := newFixture(t, nil)
		f.navigator.Err = errors.New("no display")

		authURL, err := f.manager.BeginLogin(ctx, "")
		assert.Error(t, err)
		assert.NotEmpty(t, authURL)
		assert.Equal(t, StatePendingAuthorization, f.manager.State(ctx))
	})

	t.Run("entropy failure stores nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		f.manager.generator = pkce.NewGenerator(pkce.WithEntropy(bytes.NewReader(nil)))

		_, err := f.manager.BeginLogin(ctx, "")
		assert.ErrorIs(t, err, pkce.ErrEntropyUnavailable)
		assert.Empty(t, f.store.Snapshot())
		assert.Empty(t, f.navigator.URLs)
	})
}

func TestCompleteLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("stores token and computes expiry", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyCodeVerifier: "verifier-abc"})
		f.server.Configure(func(s *tu.TokenServer) {
			s.AccessToken = "A"
			s.RefreshToken = "R"
		})

		require.NoError(t, f.manager.CompleteLogin(ctx, "code-1"))

		tok, ok := f.manager.CurrentAccessToken(ctx)
		assert.True(t, ok)
		assert.Equal(t, "A", tok)

		snap := f.store.Snapshot()
		assert.Equal(t, "R", snap[KeyRefreshToken])
		assert.Equal(t, "3600", snap[KeyExpiresIn])
		assert.Equal(t, t0.Add(3585*time.Second).UnixMilli(), mustParseInt(t, snap[KeyExpiresAt]))

		f.clock.Set(t0.Add(3000 * time.Second))
		assert.False(t, f.manager.IsExpired(ctx))
		assert.Equal(t, StateAuthenticated, f.manager.State(ctx))

		f.clock.Set(t0.Add(3584 * time.Second))
		assert.False(t, f.manager.IsExpired(ctx))

		f.clock.Set(t0.Add(3585 * time.Second))
		assert.True(t, f.manager.IsExpired(ctx))

		f.clock.Set(t0.Add(3586 * time.Second))
		assert.True(t, f.manager.IsExpired(ctx))
		assert.Equal(t, StateExpired, f.manager.State(ctx))
	})

	t.Run("sends the exchange form", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyCodeVerifier: "verifier-abc"})

		require.NoError(t, f.manager.CompleteLogin(ctx, "code-1"))

		reqs := f.server.Requests()
		require.Len(t, reqs, 1)
		form := reqs[0]
		assert.Equal(t, "client-123", form.Get("client_id"))
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
		assert.Equal(t, "code-1", form.Get("code"))
		assert.Equal(t, "http://127.0.0.1:3000/callback", form.Get("redirect_uri"))
		assert.Equal(t, "verifier-abc", form.Get("code_verifier"))
		assert.Empty(t, form.Get("client_secret"))
	})

	t.Run("missing verifier is sent empty", func(t *testing.T) {
		f := newFixture(t, nil)

		_ = f.manager.CompleteLogin(ctx, "code-1")

		reqs := f.server.Requests()
		require.Len(t, reqs, 1)
		v, ok := reqs[0]["code_verifier"]
		assert.True(t, ok)
		assert.Equal(t, []string{""}, v)
	})

	t.Run("second call with same code fails without downgrade", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyCodeVerifier: "verifier-abc"})
		f.server.Configure(func(s *tu.TokenServer) { s.RefreshToken = "R" })

		require.NoError(t, f.manager.CompleteLogin(ctx, "code-1"))
		after := f.store.Snapshot()

		err := f.manager.CompleteLogin(ctx, "code-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, ErrTokenExchangeFailed, se.Kind)

		assert.Equal(t, after, f.store.Snapshot())
	})

	t.Run("failure writes nothing", func(t *testing.T) {
		seed := map[string]string{KeyCodeVerifier: "verifier-abc"}
		f := newFixture(t, seed)

		err := f.manager.CompleteLogin(ctx, "bad-code")
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
		assert.Equal(t, seed, f.store.Snapshot())
		assert.Equal(t, StatePendingAuthorization, f.manager.State(ctx))
	})

	t.Run("server error status is reported", func(t *testing.T) {
		f := newFixture(t, nil)
		f.server.Configure(func(s *tu.TokenServer) { s.Status = http.StatusServiceUnavailable })

		err := f.manager.CompleteLogin(ctx, "code-1")
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
		assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("transport failure has no status", func(t *testing.T) {
		f := newFixture(t, nil)
		f.server.Close()

		err := f.manager.CompleteLogin(ctx, "code-1")
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
		assert.Equal(t, 0, StatusCode(err))
		assert.Empty(t, f.store.Snapshot())
	})

	t.Run("missing expires_in counts as expired", func(t *testing.T) {
		f := newFixture(t, nil)
		f.server.Configure(func(s *tu.TokenServer) { s.ExpiresIn = 0 })

		require.NoError(t, f.manager.CompleteLogin(ctx, "code-1"))

		snap := f.store.Snapshot()
		assert.Equal(t, "0", snap[KeyExpiresIn])
		assert.Equal(t, "0", snap[KeyExpiresAt])
		assert.True(t, f.manager.IsExpired(ctx))
		assert.Equal(t, StateExpired, f.manager.State(ctx))
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("no refresh token makes no request", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyAccessToken: "A"})

		err := f.manager.Refresh(ctx)
		assert.ErrorIs(t, err, ErrNoRefreshToken)
		assert.Equal(t, 0, f.server.Hits())
	})

	t.Run("keeps refresh token when omitted", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyAccessToken: "old", KeyRefreshToken: "R"})

		require.NoError(t, f.manager.Refresh(ctx))

		reqs := f.server.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "refresh_token", reqs[0].Get("grant_type"))
		assert.Equal(t, "R", reqs[0].Get("refresh_token"))
		assert.Equal(t, "client-123", reqs[0].Get("client_id"))

		snap := f.store.Snapshot()
		assert.Equal(t, "access-1", snap[KeyAccessToken])
		assert.Equal(t, "R", snap[KeyRefreshToken])
		assert.Equal(t, StateAuthenticated, f.manager.State(ctx))
	})

	t.Run("replaces rotated refresh token", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyAccessToken: "old", KeyRefreshToken: "R"})
		f.server.Configure(func(s *tu.TokenServer) { s.RotateRefresh = true })

		require.NoError(t, f.manager.Refresh(ctx))
		assert.Equal(t, "refresh-1", f.store.Snapshot()[KeyRefreshToken])
	})

	t.Run("failure leaves record untouched", func(t *testing.T) {
		seed := map[string]string{KeyAccessToken: "old", KeyRefreshToken: "revoked", KeyExpiresAt: "1"}
		f := newFixture(t, seed)

		err := f.manager.Refresh(ctx)
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
		assert.Equal(t, seed, f.store.Snapshot())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{
		KeyAccessToken:  "A",
		KeyRefreshToken: "R",
		KeyExpiresIn:    "3600",
		KeyExpiresAt:    "1",
		KeyCodeVerifier: "v",
		"unrelated":     "kept",
	})

	require.NoError(t, f.manager.Logout(ctx))

	_, ok := f.manager.CurrentAccessToken(ctx)
	assert.False(t, ok)
	assert.Equal(t, StateLoggedOut, f.manager.State(ctx))
	assert.Equal(t, map[string]string{"unrelated": "kept"}, f.store.Snapshot())

	assert.NoError(t, f.manager.Logout(ctx))
}

func TestIsExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("empty record", func(t *testing.T) {
		f := newFixture(t, nil)
		assert.True(t, f.manager.IsExpired(ctx))
		assert.Equal(t, StateLoggedOut, f.manager.State(ctx))
	})

	t.Run("expiry without access token", func(t *testing.T) {
		future := t0.Add(time.Hour).UnixMilli()
		f := newFixture(t, map[string]string{KeyExpiresAt: formatInt(future)})
		assert.True(t, f.manager.IsExpired(ctx))
	})

	t.Run("unparsable expiry", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyAccessToken: "A", KeyExpiresAt: "soon"})
		assert.True(t, f.manager.IsExpired(ctx))
	})
}

func TestEnsureFreshToken(t *testing.T) {
	ctx := context.Background()
	future := formatInt(t0.Add(time.Hour).UnixMilli())
	past := formatInt(t0.Add(-time.Minute).UnixMilli())

	tests := []struct {
		name      string
		seed      map[string]string
		wantHits  int
		wantToken string
	}{
		{"fresh token is left alone", map[string]string{KeyAccessToken: "A", KeyRefreshToken: "R", KeyExpiresAt: future}, 0, "A"},
		{"expired token is refreshed", map[string]string{KeyAccessToken: "A", KeyRefreshToken: "R", KeyExpiresAt: past}, 1, "access-1"},
		{"expired without refresh token", map[string]string{KeyAccessToken: "A", KeyExpiresAt: past}, 0, "A"},
		{"refresh token without access token", map[string]string{KeyRefreshToken: "R"}, 0, ""},
		{"empty record", nil, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.seed)

			require.NoError(t, f.manager.EnsureFreshToken(ctx))
			assert.Equal(t, tt.wantHits, f.server.Hits())

			tok, _ := f.manager.CurrentAccessToken(ctx)
			assert.Equal(t, tt.wantToken, tok)
		})
	}

	t.Run("propagates refresh failure", func(t *testing.T) {
		f := newFixture(t, map[string]string{KeyAccessToken: "A", KeyRefreshToken: "revoked", KeyExpiresAt: past})
		assert.ErrorIs(t, f.manager.EnsureFreshToken(ctx), ErrRefreshFailed)
	})
}

func TestToken(t *testing.T) {
	ctx := context.Background()

	t.Run("not authenticated", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.manager.Token(ctx)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("renews before returning", func(t *testing.T) {
		past := formatInt(t0.Add(-time.Minute).UnixMilli())
		f := newFixture(t, map[string]string{KeyAccessToken: "A", KeyRefreshToken: "R", KeyExpiresAt: past})

		tok, err := f.manager.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-1", tok.AccessToken)
		assert.Equal(t, "Bearer", tok.Type())
		assert.Equal(t, "R", tok.RefreshToken)
	})
}

func TestObserver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, _ = f.manager.BeginLogin(ctx, "")
	_ = f.manager.CompleteLogin(ctx, "code-1")
	_ = f.manager.Refresh(ctx)
	_ = f.manager.Logout(ctx)

	assert.Equal(t, []string{OpBeginLogin, OpCompleteLogin, OpRefresh, OpLogout}, f.observer.ops)
	assert.NoError(t, f.observer.errs[0])
	assert.NoError(t, f.observer.errs[1])
	assert.ErrorIs(t, f.observer.errs[2], ErrNoRefreshToken)
	assert.NoError(t, f.observer.errs[3])
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	past := formatInt(t0.Add(-time.Minute).UnixMilli())
	f := newFixture(t, map[string]string{KeyAccessToken: "A", KeyRefreshToken: "R", KeyExpiresAt: past})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.manager.EnsureFreshToken(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.server.Hits(), "only the first caller should refresh")
	assert.True(t, strings.HasPrefix(f.store.Snapshot()[KeyAccessToken], "access-"))
}
