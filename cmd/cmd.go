// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/vibemix/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and cover storage",
		Action: r.Setup,
	}
}

// spotifyCommand handles the Spotify session.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:   "status",
				Usage:  "Show whether a Spotify session is stored and valid",
				Action: r.SpotifyStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify session",
				Action: r.SpotifyLogout,
			},
		},
	}
}

// generateCommand generates a single playlist.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate a playlist from emojis and a vibe",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "emoji",
				Aliases: []string{"e"},
				Usage:   "Emoji describing the mood (repeatable)",
			},
			&cli.IntFlag{
				Name:    "songs",
				Aliases: []string{"n"},
				Usage:   "Number of songs (1-50)",
				Value:   20,
			},
			&cli.StringFlag{
				Name:     "vibe",
				Aliases:  []string{"v"},
				Usage:    "Free text description of the vibe",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "stream",
				Usage: "Print progress while tracks are found",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Save the playlist to the library",
			},
			&cli.BoolFlag{
				Name:  "publish",
				Usage: "Create the playlist in your Spotify account",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Ignore a cached result for the same request",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Generate,
	}
}

// batchCommand generates several playlists from a file.
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Generate one playlist per line of a file (emojis | songs | vibe)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the request file",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent generations (max 5)",
				Value: 2,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Generations started per second",
				Value: 1.0,
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Save every generated playlist to the library",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Ignore cached results",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Batch,
	}
}

// libraryCommand manages saved playlists.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Manage saved playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved playlists, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LibraryList,
			},
			{
				Name:  "save",
				Usage: "Save a playlist from a JSON export file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a JSON export",
						Required: true,
					},
				},
				Action: r.LibrarySave,
			},
			{
				Name:  "delete",
				Usage: "Delete a saved playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
				},
				Action: r.LibraryDelete,
			},
			{
				Name:  "edit",
				Usage: "Edit a saved playlist's name, description or cover",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "New name",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "New description",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "New cover image URL",
					},
				},
				Action: r.LibraryEdit,
			},
			{
				Name:   "backfill",
				Usage:  "Copy expiring cover images to durable storage",
				Action: r.LibraryBackfill,
			},
		},
	}
}

// exportCommand exports a saved playlist.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a saved playlist (" + strings.Join(formatter.SupportedFormats(), ", ") + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Playlist ID to export",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format",
				Value: "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (prints to stdout when empty)",
			},
		},
		Action: r.Export,
	}
}

// importCommand imports a playlist file into the library.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a JSON or CSV playlist into the library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "json or csv (detected from the extension when empty)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Validate and print the playlist without saving",
			},
		},
		Action: r.Import,
	}
}

// healthCommand probes external services.
func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check Spotify and OpenAI connectivity",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Health,
	}
}

// serveCommand runs the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the OAuth callback, durable covers and /health",
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive generation.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist generation",
		Action:  r.TUI,
	}
}
