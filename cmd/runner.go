package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mdx/internal/access"
	"github.com/desertthunder/mdx/internal/blobstore"
	"github.com/desertthunder/mdx/internal/identity"
	"github.com/desertthunder/mdx/internal/playlists"
	"github.com/desertthunder/mdx/internal/repositories"
	"github.com/desertthunder/mdx/internal/services"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is resolved from the --config flag when a command runs.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) command() *cli.Command {
	return &cli.Command{
		Name:    "mdx",
		Usage:   "Look up media links and share playlists of them",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars(shared.ConfigEnv),
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, userCommand, extractCommand, playlistCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the config file once, before any command action runs.
//
// A missing file means defaults; the log level is applied from the result.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config != nil {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	config, err := shared.ResolveConfig(r.configPath)
	if err != nil {
		return ctx, err
	}

	shared.ConfigureLogger(r.logger, config.Log.Level)
	r.config = config
	return ctx, nil
}

// openStore opens the configured database, applies pending migrations and returns the repositories.
func (r *Runner) openStore(ctx context.Context) (*repositories.Store, *sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	applied, err := shared.RunMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		r.logger.Info("applied migrations", "count", applied)
	}

	return repositories.NewStore(db), db, nil
}

// app bundles the domain services built over one database.
type app struct {
	db        *sql.DB
	store     *repositories.Store
	identity  *identity.Service
	playlists *playlists.Service
	access    *access.Controller
}

func (a *app) Close() error {
	return a.db.Close()
}

// openApp wires the domain services. blobs may be nil for commands that never upload.
func (r *Runner) openApp(ctx context.Context, blobs blobstore.Store) (*app, error) {
	store, db, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}

	return &app{
		db:        db,
		store:     store,
		identity:  identity.NewService(store.Users, r.config.Auth.BcryptCost, r.logger),
		playlists: playlists.NewService(store, blobs, r.logger),
		access:    access.NewController(store, r.logger),
	}, nil
}

// gateway builds the extraction gateway from the extractor settings.
func (r *Runner) gateway() *services.Gateway {
	cfg := r.config.Extractor
	return services.NewGateway(
		services.NewTikTokService(cfg.TikTok.APIURL, r.httpClient, cfg.TikTok.RateLimit),
		services.NewYTDLPService(cfg.YTDLP.Executable),
		cfg.Timeout.Duration,
		r.logger,
	)
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
