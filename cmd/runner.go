package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotauth/internal/auth"
	"github.com/desertthunder/spotauth/internal/metrics"
	"github.com/desertthunder/spotauth/internal/services"
	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/store"
	"github.com/desertthunder/spotauth/internal/ui"
)

// SpotifyAPI is the subset of [services.SpotifyClient] the commands use.
type SpotifyAPI interface {
	ui.Library
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies not supplied through [RunnerOpts] are built on first use from the loaded config.
type Runner struct {
	config     *shared.Config
	configPath string
	store      store.Store
	ownsStore  bool
	manager    *auth.Manager
	spotify    SpotifyAPI
	metrics    *metrics.Collector
	navigator  auth.Navigator
	noBrowser  bool
	clock      auth.Clock
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      store.Store
	Manager    *auth.Manager
	Spotify    SpotifyAPI
	Metrics    *metrics.Collector
	Navigator  auth.Navigator
	Clock      auth.Clock
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.Browser{}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		manager:    opts.Manager,
		spotify:    opts.Spotify,
		metrics:    opts.Metrics,
		navigator:  opts.Navigator,
		clock:      opts.Clock,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, logoutCommand, refreshCommand, statusCommand, tokenCommand,
		meCommand, playlistsCommand, tracksCommand, exportCommand, apiCommand, tuiCommand, watchCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config named by --config (defaults when the file is absent) and applies --log-level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			r.config = shared.DefaultConfig()
		}
	}

	level := cmd.String("log-level")
	if level == "" {
		level = r.config.Log.Level
	}
	ll, err := shared.ParseLogLevel(level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, ll)

	return ctx, nil
}

// After releases resources opened by the command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close closes the store if the runner opened it.
func (r *Runner) Close() error {
	if r.ownsStore && r.store != nil {
		err := r.store.Close()
		r.store = nil
		r.ownsStore = false
		return err
	}
	return nil
}

// SetLogger replaces the runner's logger (the TUI sends logs to a file).
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// deps builds the store, metrics, auth manager and API client that were not injected.
func (r *Runner) deps() error {
	config := r.cfg()

	if r.store == nil {
		s, err := store.Open(config.Database)
		if err != nil {
			return fmt.Errorf("failed to open token store: %w", err)
		}
		r.store = s
		r.ownsStore = true
	}

	if r.metrics == nil {
		r.metrics = metrics.New()
	}

	if r.manager == nil {
		if err := config.Validate(); err != nil {
			return err
		}

		hc := *r.httpClient
		if config.HTTP.Timeout.Duration > 0 {
			hc.Timeout = config.HTTP.Timeout.Duration
		}

		m, err := auth.NewManager(auth.Options{
			Config:     auth.ConfigFrom(config.Credentials.Spotify),
			Store:      r.store,
			Navigator:  auth.NavigatorFunc(r.navigate),
			HTTPClient: &hc,
			Clock:      r.clock,
			Logger:     shared.WithLogger(r.logger, "component", "auth"),
			Observer:   r.metrics,
		})
		if err != nil {
			return err
		}
		r.manager = m
	}

	if r.spotify == nil {
		client, err := services.NewSpotifyClient(config.Credentials.Spotify.APIURL, r.manager,
			services.WithHTTPClient(r.httpClient),
			services.WithRateLimit(config.HTTP.RequestsPerSecond),
			services.WithRequestObserver(r.metrics),
		)
		if err != nil {
			return err
		}
		r.spotify = client
	}

	return nil
}

// ensureFresh renews an expired token before a command runs. Failures are logged, not returned.
func (r *Runner) ensureFresh(ctx context.Context) {
	if err := r.manager.EnsureFreshToken(ctx); err != nil {
		r.logger.Warn("automatic token refresh failed", "error", err)
	}
}

// navigate prints the authorization URL and, unless disabled, opens it in the browser.
func (r *Runner) navigate(ctx context.Context, url string) error {
	r.writePlain("Open this URL to authorize spotauth:\n\n  %s\n\n", url)
	if r.noBrowser {
		return nil
	}
	if err := r.navigator.Navigate(ctx, url); err != nil {
		r.logger.Warn("could not open browser, open the URL manually", "error", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// hint returns a follow-up suggestion for errors the user can fix by signing in.
func hint(err error) string {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		return "the access token was rejected, run `spotauth login`"
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrNoRefreshToken):
		return "not signed in, run `spotauth login`"
	case errors.Is(err, shared.ErrRefreshFailed):
		return "the refresh token may have been revoked, run `spotauth login`"
	default:
		return ""
	}
}
