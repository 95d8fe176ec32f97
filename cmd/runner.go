package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/cache"
	"github.com/desertthunder/vibemix/internal/library"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/repositories"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/storage"
	"github.com/desertthunder/vibemix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built lazily on first use so commands only require the credentials they touch.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	session *services.Session
	vendor  services.MusicVendor
	openai  *services.OpenAIClient
	text    services.TextGenerator
	images  services.ImageGenerator
	engine  *tasks.PlaylistEngine
	library *library.Gateway
	covers  *storage.FileStore
	userID  string
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB, Vendor, Text and Images replace the services built from configuration when set.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	Vendor     services.MusicVendor
	Text       services.TextGenerator
	Images     services.ImageGenerator
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		vendor:     opts.Vendor,
		text:       opts.Text,
		images:     opts.Images,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, generateCommand, batchCommand, libraryCommand,
		exportCommand, importCommand, healthCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, overlays the environment and applies --verbose.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := r.config.ApplyEnv(".env"); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// SetLogger replaces the runner's logger, used when the TUI takes over the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.engine != nil {
		r.engine.Close()
	}
	if r.library != nil {
		r.library.Close()
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) spotifySession() (*services.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml or SPOTIFY_ID/SPOTIFY_SECRET", shared.ErrMissingCredentials)
	}
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	r.session = services.NewSession(services.SpotifyOAuthConfig(creds), repositories.NewTokenRepository(db), r.logger)
	return r.session, nil
}

func (r *Runner) musicVendor() (services.MusicVendor, error) {
	if r.vendor != nil {
		return r.vendor, nil
	}
	session, err := r.spotifySession()
	if err != nil {
		return nil, err
	}
	r.vendor = services.NewSpotifyService(session.HTTPClient(), r.config.Credentials.Spotify.BaseURL, r.logger)
	return r.vendor, nil
}

func (r *Runner) generators() (services.TextGenerator, services.ImageGenerator, error) {
	if r.text != nil && r.images != nil {
		return r.text, r.images, nil
	}
	client, err := services.NewOpenAIClient(r.config.Credentials.OpenAI, r.logger)
	if err != nil {
		return nil, nil, err
	}
	r.openai = client
	if r.text == nil {
		r.text = client
	}
	if r.images == nil {
		r.images = client
	}
	return r.text, r.images, nil
}

func (r *Runner) pipeline() (*tasks.PlaylistEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	vendor, err := r.musicVendor()
	if err != nil {
		return nil, err
	}
	text, images, err := r.generators()
	if err != nil {
		return nil, err
	}
	r.engine = tasks.NewPlaylistEngine(text, images, vendor, r.config.Generation, r.logger)
	return r.engine, nil
}

func (r *Runner) coverStore() (*storage.FileStore, error) {
	if r.covers != nil {
		return r.covers, nil
	}
	store, err := storage.NewFileStore(r.config.Storage, r.logger)
	if err != nil {
		return nil, err
	}
	r.covers = store
	return store, nil
}

func (r *Runner) gateway() (*library.Gateway, error) {
	if r.library != nil {
		return r.library, nil
	}
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	var objects storage.ObjectStore
	if store, err := r.coverStore(); err != nil {
		r.logger.Warn("durable cover storage disabled", "error", err)
	} else {
		objects = store
	}

	ttl := time.Duration(r.config.Cache.TTLSeconds) * time.Second
	lists := cache.New[[]*models.PlaylistData](ttl, r.config.Cache.MaxSize)
	opts := library.BackfillOpts{RateLimit: r.config.Backfill.RateLimit, NumWorkers: r.config.Backfill.NumWorkers}

	r.library = library.NewGateway(repositories.NewPlaylistRepository(db), objects, lists, opts, r.logger)
	return r.library, nil
}

// currentUser resolves the Spotify user the library is scoped to.
func (r *Runner) currentUser(ctx context.Context) (string, error) {
	if r.userID != "" {
		return r.userID, nil
	}
	vendor, err := r.musicVendor()
	if err != nil {
		return "", err
	}
	id, err := vendor.CurrentUserID(ctx)
	if err != nil {
		return "", err
	}
	r.userID = id
	return id, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
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
