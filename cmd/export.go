package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotauth/internal/services"
	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/tasks"
)

// Export writes the selected playlists (all by default) with their tracks to disk.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringSlice("id")

	if err := r.deps(); err != nil {
		return err
	}
	r.ensureFresh(ctx)

	all, err := withReauth(ctx, r, func(ctx context.Context) ([]services.Playlist, error) {
		return r.spotify.Playlists(ctx, 0)
	})
	if err != nil {
		return err
	}

	selected := all
	if len(ids) > 0 {
		selected = make([]services.Playlist, 0, len(ids))
		for _, id := range ids {
			i := slices.IndexFunc(all, func(p services.Playlist) bool { return p.ID == id })
			if i < 0 {
				return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
			}
			selected = append(selected, all[i])
		}
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Info(u.Message, "phase", u.Phase)
		}
	}()

	exporter := tasks.NewExporter(r.spotify, shared.WithLogger(r.logger, "component", "export"))
	result, err := exporter.BulkExport(ctx, progress, selected, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  r.cfg().HTTP.RequestsPerSecond,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d of %d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", res.PlaylistName, res.ErrorMessage)
		}
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}
