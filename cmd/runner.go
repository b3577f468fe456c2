package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/session"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const httpTimeout = 30 * time.Second

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	store       repositories.TokenStore
	session     server.Session
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(ctx context.Context, url string) error
	getenv      func(string) string

	db     *sql.DB
	memory bool
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store and Session are built from the config on first use when left nil.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Store       repositories.TokenStore
	Session     server.Session
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(ctx context.Context, url string) error
	Getenv      func(string) string
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: httpTimeout}
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		store:       opts.Store,
		session:     opts.Session,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		getenv:      opts.Getenv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, authCommand, statusCommand, controlCommand, setupCommand, logoutCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before applies the global flags: log level, config file (when present) and SPOTIPY_* overrides.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(cmd.String("log-level")))
	r.memory = cmd.Bool("memory")

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	r.config.ApplyEnv(r.getenv)
	return ctx, nil
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// tokenStore opens the token cache on first use.
func (r *Runner) tokenStore() (repositories.TokenStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	if r.memory {
		r.logger.Warn("using in-memory token store; the token is lost on exit")
		r.store = repositories.NewMemoryTokenStore(nil)
		return r.store, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}
	r.db = db
	r.store = repositories.NewTokenRepository(db)
	return r.store, nil
}

func (r *Runner) oauthConfig() (*oauth2.Config, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	return services.NewOAuthConfig(r.config.Credentials.Spotify.Map())
}

// sessionGate builds the gate over the token store on first use.
func (r *Runner) sessionGate() (server.Session, error) {
	if r.session != nil {
		return r.session, nil
	}

	config, err := r.oauthConfig()
	if err != nil {
		return nil, err
	}

	store, err := r.tokenStore()
	if err != nil {
		return nil, err
	}

	r.session = session.NewTokenGate(session.TokenGateOpts{
		Config:  config,
		Store:   store,
		Limiter: services.NewLimiter(r.config.Spotify.RateLimit, r.config.Spotify.Burst),
		BaseURL: r.config.Spotify.APIURL,
		Base:    r.httpClient,
		Logger:  r.logger,
	})
	return r.session, nil
}

// currentClient returns the session's client, or [shared.ErrNotAuthenticated].
func (r *Runner) currentClient(ctx context.Context) (services.Player, error) {
	gate, err := r.sessionGate()
	if err != nil {
		return nil, err
	}

	player, ok := gate.CurrentClient(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: run 'nowplaying auth' first", shared.ErrNotAuthenticated)
	}
	return player, nil
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

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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
	return r.writePlain(format+"\n", args...)
}

// exitError maps a failed control onto the sentinel matching its status.
func exitError(status int, message string) error {
	var sentinel error
	switch status {
	case http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	case http.StatusBadRequest:
		sentinel = shared.ErrInvalidArgument
	default:
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

var errNoToken = errors.New("no token received")
