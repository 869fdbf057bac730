package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/spotauth/internal/formatter"
	"github.com/desertthunder/spotauth/internal/services"
	"github.com/desertthunder/spotauth/internal/shared"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestName     = "export_manifest.json"
)

// TrackSource fetches the tracks of a playlist.
type TrackSource interface {
	PlaylistTracks(ctx context.Context, playlistID string) ([]services.Track, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: spotify_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Track fetches per second (default: 5)
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	TrackCount   int      `json:"track_count"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`

	index int
}

// BulkExportResult summarizes a bulk export and is written as the manifest.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	ExportedAt        time.Time              `json:"exported_at"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

type exportJob struct {
	index  int
	export *formatter.PlaylistExport
}

// Exporter writes playlists and their tracks to disk.
type Exporter struct {
	source TrackSource
	logger *log.Logger
	now    func() time.Time
}

// NewExporter creates an Exporter reading tracks from source.
func NewExporter(source TrackSource, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{source: source, logger: logger, now: time.Now}
}

func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// BulkExport exports playlists concurrently with rate limiting and progress tracking.
//
// Track fetches happen one at a time at opts.RateLimit, file writes run on opts.NumWorkers
// workers. A failed playlist is recorded in the result and does not stop the others. Results
// keep the order of playlists.
func (e *Exporter) BulkExport(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlists []services.Playlist,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: track source not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidArgument, opts.Format)
	}

	startedAt := e.now()
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("spotify_export_%d", startedAt.Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(playlists)
	result := &BulkExportResult{
		Format:          opts.Format,
		ExportedAt:      startedAt,
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, total)
	results := make(chan PlaylistExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(&wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, pl := range playlists {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(progress, fetchingTracksUpdate(i+1, total, pl.Name))

			tracks, err := e.source.PlaylistTracks(ctx, pl.ID)
			if err != nil {
				e.logger.Warn("failed to fetch tracks", "playlist", pl.ID, "error", err)
				results <- PlaylistExportResult{
					PlaylistID:   pl.ID,
					PlaylistName: pl.Name,
					Error:        fmt.Errorf("failed to fetch tracks: %w", err),
					index:        i,
				}
				continue
			}

			jobs <- exportJob{
				index:  i,
				export: &formatter.PlaylistExport{Playlist: pl, Tracks: tracks, ExportedAt: startedAt},
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.ErrorMessage = res.Error.Error()
			result.FailedExports++
			e.sendProgress(progress, exportFailedUpdate(completed, total, res.PlaylistName, res.Error))
		} else {
			result.SuccessfulExports++
			e.sendProgress(progress, exportCompletedUpdate(completed, total, res.PlaylistName, len(res.Files)))
		}
		result.Results = append(result.Results, res)
	}

	slices.SortFunc(result.Results, func(a, b PlaylistExportResult) int { return a.index - b.index })

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(progress, manifestUpdate(manifestPath))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker is a worker goroutine that writes playlists from the jobs channel.
func (e *Exporter) exportWorker(
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		pl := job.export.Playlist
		res := PlaylistExportResult{
			PlaylistID:   pl.ID,
			PlaylistName: pl.Name,
			TrackCount:   len(job.export.Tracks),
			index:        job.index,
		}

		files, err := formatter.Write(job.export, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		} else {
			res.Success = true
			res.Files = files
		}
		results <- res
	}
}
