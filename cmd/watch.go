package main

import (
	"context"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotauth/internal/server"
	"github.com/desertthunder/spotauth/internal/shared"
)

// Watch keeps the access token fresh until ctx ends, exposing metrics and a health check meanwhile.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if err := r.deps(); err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.cfg().Server.Addr()
	}
	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = 30 * time.Second
	}

	logger := shared.WithLogger(r.logger, "component", "watch")

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(logger))
	router.Handle(http.MethodGet, "/metrics", r.metrics.Handler())
	router.Handle(http.MethodGet, "/healthz", server.HealthHandler())

	srv, err := server.Listen(addr, router, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to stop listener", "error", err)
		}
	}()

	r.writePlain("Watching token, metrics on http://%s/metrics\n", srv.Addr())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping")
			return nil
		case err := <-srv.Done():
			return err
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick refreshes an expired token and publishes the resulting expiry.
func (r *Runner) tick(ctx context.Context) {
	r.ensureFresh(ctx)

	rec, err := r.manager.Record(ctx)
	if err != nil {
		r.logger.Warn("failed to read token record", "error", err)
		return
	}
	r.metrics.SetExpiry(rec.ExpiresAt)
	r.logger.Debug("token checked", "state", rec.State(r.manager.Now()), "expires_at", rec.ExpiresAt)
}
