package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotauth/internal/services"
	"github.com/desertthunder/spotauth/internal/shared"
)

// withReauth runs fn and, when the API rejects the token, forces one refresh and retries.
func withReauth[T any](ctx context.Context, r *Runner, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !errors.Is(err, shared.ErrUnauthorized) {
		return v, err
	}

	r.logger.Warn("access token rejected, refreshing", "error", err)
	if rerr := r.manager.Refresh(ctx); rerr != nil {
		var zero T
		return zero, errors.Join(err, rerr)
	}
	return fn(ctx)
}

// Me prints the signed-in user's profile.
func (r *Runner) Me(ctx context.Context, cmd *cli.Command) error {
	if err := r.deps(); err != nil {
		return err
	}
	r.ensureFresh(ctx)

	user, err := withReauth(ctx, r, r.spotify.Me)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("Hello, %s!\n\n", user.Greeting())
	r.writePlain("ID:        %s\n", user.ID)
	if user.Email != "" {
		r.writePlain("Email:     %s\n", user.Email)
	}
	if user.Country != "" {
		r.writePlain("Country:   %s\n", user.Country)
	}
	if user.Product != "" {
		r.writePlain("Product:   %s\n", user.Product)
	}
	r.writePlain("Followers: %d\n", user.Followers)
	return nil
}

// Playlists lists the user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))

	if err := r.deps(); err != nil {
		return err
	}
	r.ensureFresh(ctx)

	r.logger.Debug("listing playlists", "limit", limit)

	playlists, err := withReauth(ctx, r, func(ctx context.Context) ([]services.Playlist, error) {
		return r.spotify.Playlists(ctx, limit)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// Tracks lists the tracks of the playlist given by --id.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")

	if err := r.deps(); err != nil {
		return err
	}
	r.ensureFresh(ctx)

	tracks, err := withReauth(ctx, r, func(ctx context.Context) ([]services.Track, error) {
		return r.spotify.PlaylistTracks(ctx, playlistID)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Tracks: %d\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist, track.Title)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
	}

	return nil
}
