// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// loginCommand runs the authorization code flow with PKCE
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to Spotify in the browser",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the authorization redirect",
				Value: 2 * time.Minute,
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Remove the stored token record",
		Action: r.Logout,
	}
}

func refreshCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "refresh",
		Usage:  "Exchange the refresh token for a new access token",
		Action: r.Refresh,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the sign-in state and token expiry",
		Flags:  jsonFlags(),
		Action: r.Status,
	}
}

func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "token",
		Usage:  "Print a valid access token, refreshing it when expired",
		Action: r.Token,
	}
}

func meCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "me",
		Usage:  "Show the signed-in Spotify profile",
		Flags:  jsonFlags(),
		Action: r.Me,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your Spotify playlists",
		Flags: append(jsonFlags(), &cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of playlists to return",
			Value: 50,
		}),
		Action: r.Playlists,
	}
}

func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "List the tracks of a playlist",
		Flags: append(jsonFlags(), &cli.StringFlag{
			Name:     "id",
			Usage:    "Playlist ID",
			Required: true,
		}),
		Action: r.Tracks,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export playlists with their tracks to files",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "id",
				Usage: "Playlist ID to export (repeatable; default all)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default spotify_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent file writers",
				Value: 5,
			},
		},
		Action: r.Export,
	}
}

func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Call the Web API with the stored token",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "GET a path relative to the API base URL",
				ArgsUsage: "<path>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse playlists interactively",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to load",
				Value: 50,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File receiving log output while the TUI runs",
				Value: "./tmp/spotauth.log",
			},
		},
		Action: r.TUI,
	}
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the access token fresh and serve /metrics and /healthz",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "How often to check the token",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to [server] host and port)",
			},
		},
		Action: r.Watch,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file or prepare the token store",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Open the configured store and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rollback", Usage: "Roll back the latest sqlite migration instead"},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
