package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spotauth/internal/services"
	"github.com/desertthunder/spotauth/internal/shared"
)

type fakeSource struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
}

func (f *fakeSource) PlaylistTracks(ctx context.Context, id string) ([]services.Track, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if err := f.failOn[id]; err != nil {
		return nil, err
	}
	return []services.Track{
		{ID: id + "-t1", Title: "First", Artist: "A", Duration: time.Minute},
		{ID: id + "-t2", Title: "Second", Artist: "B", Duration: 2 * time.Minute},
	}, nil
}

func playlists(n int) []services.Playlist {
	out := make([]services.Playlist, n)
	for i := range out {
		out[i] = services.Playlist{ID: fmt.Sprintf("playlist%d", i+1), Name: fmt.Sprintf("Playlist %d", i+1), TrackCount: 2}
	}
	return out
}

func newTestExporter(src TrackSource) *Exporter {
	return NewExporter(src, shared.NewLogger(io.Discard))
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name          string
		format        string
		playlistCount int
		filesEach     int
		firstFile     string
	}{
		{"single playlist json export", "json", 1, 1, "playlist1.json"},
		{"multiple playlists csv export", "csv", 3, 2, "playlist1_tracks.csv"},
		{"markdown export", "markdown", 2, 1, filepath.Join("playlist1", "README.md")},
		{"text export", "txt", 2, 1, "playlist1_tracks.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := &fakeSource{}

			result, err := newTestExporter(src).BulkExport(context.Background(), nil, playlists(tt.playlistCount), BulkExportOpts{
				Format:     tt.format,
				OutputDir:  dir,
				NumWorkers: 2,
				RateLimit:  1000,
			})
			if err != nil {
				t.Fatalf("BulkExport failed: %v", err)
			}

			if result.SuccessfulExports != tt.playlistCount || result.FailedExports != 0 {
				t.Errorf("expected %d successes, got %d (failed %d)", tt.playlistCount, result.SuccessfulExports, result.FailedExports)
			}
			if len(result.Results) != tt.playlistCount {
				t.Fatalf("expected %d results, got %d", tt.playlistCount, len(result.Results))
			}
			for i, res := range result.Results {
				if res.PlaylistID != fmt.Sprintf("playlist%d", i+1) {
					t.Errorf("results out of order: %d is %s", i, res.PlaylistID)
				}
				if len(res.Files) != tt.filesEach {
					t.Errorf("%s: expected %d files, got %v", res.PlaylistID, tt.filesEach, res.Files)
				}
				if res.TrackCount != 2 {
					t.Errorf("%s: expected 2 tracks, got %d", res.PlaylistID, res.TrackCount)
				}
			}
			if _, err := os.Stat(filepath.Join(dir, tt.firstFile)); err != nil {
				t.Errorf("expected %s to exist: %v", tt.firstFile, err)
			}
			if len(src.calls) != tt.playlistCount {
				t.Errorf("expected %d track fetches, got %d", tt.playlistCount, len(src.calls))
			}
		})
	}
}

func TestBulkExport_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{failOn: map[string]error{"playlist2": shared.ErrPlaylistNotFound}}
	progress := make(chan ProgressUpdate, 32)

	result, err := newTestExporter(src).BulkExport(context.Background(), progress, playlists(3), BulkExportOpts{
		OutputDir: dir,
		RateLimit: 1000,
	})
	if err != nil {
		t.Fatalf("BulkExport failed: %v", err)
	}

	if result.Format != "json" {
		t.Errorf("expected default json format, got %q", result.Format)
	}
	if result.SuccessfulExports != 2 || result.FailedExports != 1 {
		t.Errorf("expected 2/1, got %d/%d", result.SuccessfulExports, result.FailedExports)
	}

	failed := result.Results[1]
	if failed.Success || !errors.Is(failed.Error, shared.ErrPlaylistNotFound) || failed.ErrorMessage == "" {
		t.Errorf("unexpected failed result %+v", failed)
	}

	data, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var manifest map[string]any
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if manifest["failed_exports"] != float64(1) || manifest["total_playlists"] != float64(3) {
		t.Errorf("unexpected manifest %v", manifest)
	}

	close(progress)
	phases := map[Phase]int{}
	for u := range progress {
		phases[u.Phase]++
		if u.Message == "" {
			t.Error("progress update without message")
		}
	}
	if phases[FetchTracks] != 3 || phases[ExportPlaylist] != 3 || phases[WriteManifest] != 1 {
		t.Errorf("unexpected progress phases %v", phases)
	}
}

func TestBulkExport_Validation(t *testing.T) {
	t.Run("nil source", func(t *testing.T) {
		_, err := newTestExporter(nil).BulkExport(context.Background(), nil, playlists(1), BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := newTestExporter(&fakeSource{}).BulkExport(context.Background(), nil, playlists(1), BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty playlist set still writes a manifest", func(t *testing.T) {
		result, err := newTestExporter(&fakeSource{}).BulkExport(context.Background(), nil, nil, BulkExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("BulkExport failed: %v", err)
		}
		if result.TotalPlaylists != 0 || result.ManifestPath == "" {
			t.Errorf("unexpected result %+v", result)
		}
	})
}

func TestBulkExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{}
	result, err := newTestExporter(src).BulkExport(ctx, nil, playlists(5), BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 1000})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || len(src.calls) != 0 {
		t.Errorf("no fetches expected after cancellation, got %d", len(src.calls))
	}
}

func TestSendProgressDoesNotBlock(t *testing.T) {
	e := newTestExporter(&fakeSource{})
	full := make(chan ProgressUpdate)

	done := make(chan struct{})
	go func() {
		e.sendProgress(full, manifestUpdate("x"))
		e.sendProgress(nil, manifestUpdate("x"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendProgress blocked")
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{FetchTracks: "fetch_tracks", ExportPlaylist: "export_playlist", WriteManifest: "write_manifest", Phase(99): ""} {
		if p.String() != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, p.String(), want)
		}
	}
}
