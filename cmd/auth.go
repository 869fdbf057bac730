package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotauth/internal/auth"
	"github.com/desertthunder/spotauth/internal/server"
	"github.com/desertthunder/spotauth/internal/shared"
)

// StatusReport is the JSON shape of `spotauth status`.
type StatusReport struct {
	State            string     `json:"state"`
	Authenticated    bool       `json:"authenticated"`
	HasRefreshToken  bool       `json:"has_refresh_token"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	ExpiresInSeconds int64      `json:"expires_in_seconds"`
}

// Login starts a local callback listener, sends the user to the authorization page and waits for the redirect.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.deps(); err != nil {
		return err
	}
	spotify := r.cfg().Credentials.Spotify

	addr, err := spotify.CallbackAddr()
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	handler := server.NewCallbackHandler(r.manager, spotify.CallbackPath(), state)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(shared.WithLogger(r.logger, "component", "callback")))
	router.Handler(handler)

	srv, err := server.Listen(addr, router, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			r.logger.Warn("failed to stop callback listener", "error", err)
		}
	}()

	r.noBrowser = cmd.Bool("no-browser")
	if authURL, err := r.manager.BeginLogin(ctx, state); err != nil {
		if authURL == "" {
			return err
		}
		r.logger.Warn("continuing without browser", "error", err)
	}

	r.logger.Info("waiting for authorization", "redirect_uri", spotify.RedirectURI)

	waitCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()
	if err := handler.Wait(waitCtx); err != nil {
		return err
	}

	user, err := r.spotify.Me(ctx)
	if err != nil {
		r.logger.Warn("signed in but could not fetch profile", "error", err)
		return r.writePlain("✓ Signed in\n")
	}
	return r.writePlain("✓ Signed in\nHello, %s!\n", user.Greeting())
}

// Logout deletes every key of the token record.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := r.deps(); err != nil {
		return err
	}
	if err := r.manager.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("Logged out.\n")
}

// Refresh forces a refresh regardless of expiry.
func (r *Runner) Refresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.deps(); err != nil {
		return err
	}
	if err := r.manager.Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("Token refreshed.\n")
}

// Status reports the sign-in state derived from the stored record.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if err := r.deps(); err != nil {
		return err
	}

	rec, err := r.manager.Record(ctx)
	if err != nil {
		return err
	}
	now := r.manager.Now()
	state := rec.State(now)

	report := StatusReport{
		State:           state.String(),
		Authenticated:   state == auth.StateAuthenticated,
		HasRefreshToken: rec.RefreshToken != "",
	}
	if !rec.ExpiresAt.IsZero() {
		at := rec.ExpiresAt
		report.ExpiresAt = &at
		if remaining := rec.ExpiresAt.Sub(now); remaining > 0 {
			report.ExpiresInSeconds = int64(remaining / time.Second)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Spotify Session")
	r.writePlain("State:         %s\n", report.State)
	r.writePlain("Refresh token: %s\n", yesNo(report.HasRefreshToken))
	if report.ExpiresAt != nil {
		r.writePlain("Expires at:    %s\n", report.ExpiresAt.Local().Format(time.RFC3339))
		r.writePlain("Expires in:    %s\n", (time.Duration(report.ExpiresInSeconds) * time.Second).String())
	}
	if state == auth.StateLoggedOut || state == auth.StatePendingAuthorization {
		r.writePlain("\nRun `spotauth login` to sign in.\n")
	}
	return nil
}

// Token prints the current access token, refreshing it first when expired.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	if err := r.deps(); err != nil {
		return err
	}
	r.ensureFresh(ctx)

	tok, ok := r.manager.CurrentAccessToken(ctx)
	if !ok {
		return shared.ErrNotAuthenticated
	}
	return r.writePlain("%s\n", tok)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

