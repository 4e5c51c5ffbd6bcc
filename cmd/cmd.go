// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the HTTP service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.host and server.port)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// userCommand handles account operations.
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Account management",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "handle",
						Aliases:  []string{"arobase"},
						Usage:    "Public handle, starting with @",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.UserRegister,
			},
		},
	}
}

// extractCommand resolves a media URL without the web service.
func extractCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Print the media description for a URL",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "url",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Usage:   "Source platform (tiktok, youtube, instagram, ...)",
				Value:   "youtube",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Requested format (mp4 or mp3)",
				Value:   "mp4",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Extract,
	}
}

// playlistCommand handles read-only playlist operations for an account.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List an account's playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "handle",
						Usage:    "Owner handle",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "export",
				Usage: "Export one playlist, or all of an account's playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "handle",
						Usage:    "Owner handle",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Playlist ID to export",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every playlist of the account",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, text or m3u",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (single playlist) or directory (--all)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent workers for --all",
						Value: 4,
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}
