package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tdx/internal/auth"
	"github.com/desertthunder/tdx/internal/dashboard"
	"github.com/desertthunder/tdx/internal/repositories"
	"github.com/desertthunder/tdx/internal/services"
	"github.com/desertthunder/tdx/internal/session"
	"github.com/desertthunder/tdx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session (database, token store, auth provider, task client) is opened lazily by [Runner.withSession]
// so that commands like setup can run before anything exists on disk.
type Runner struct {
	config     *shared.Config
	configPath string
	loadConfig bool
	logger     *log.Logger
	output     io.Writer
	input      *bufio.Reader
	transport  http.RoundTripper
	storage    session.Storage
	db         *sql.DB
	store      *session.Store
	client     *services.TaskClient
	provider   *auth.Provider
	ctrl       *dashboard.Controller
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader

	// Storage replaces the SQLite-backed token store.
	Storage session.Storage

	// Transport is the base round tripper for service calls.
	Transport http.RoundTripper
}

// NewRunner creates a new Runner with the provided configuration.
//
// When no Config is given it is loaded from the --config path before the first command runs.
func NewRunner(opts RunnerOpts) *Runner {
	loadConfig := opts.Config == nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loadConfig: loadConfig,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      bufio.NewReader(opts.Input),
		transport:  opts.Transport,
		storage:    opts.Storage,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, tasksCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.loadConfig {
		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
		}
		r.config = config
		r.loadConfig = false
	}

	level := shared.ParseLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, nil
}

// SetLogger replaces the logger used by the runner and any session opened afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// withSession opens local storage, restores the stored session and returns ctx carrying the [auth.Provider].
func (r *Runner) withSession(ctx context.Context) (context.Context, error) {
	if r.provider != nil {
		return auth.WithProvider(ctx, r.provider), nil
	}

	timeout, err := r.config.API.HTTPTimeout()
	if err != nil {
		return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}

	if r.storage == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return ctx, fmt.Errorf("failed to open local storage: %w", err)
		}
		r.db = db
		r.storage = repositories.NewLocalStorage(db)
	}

	r.store = session.NewStore(r.storage, shared.WithLogger(r.logger, "component", "session"))
	r.client = services.NewTaskClient(services.Options{
		BaseURL:           r.config.API.BaseURL,
		Timeout:           timeout,
		RequestsPerSecond: r.config.API.RequestsPerSecond,
		Transport:         r.transport,
		Token:             r.store.Token,
		Logger:            shared.WithLogger(r.logger, "component", "services"),
	})
	r.provider = auth.NewProvider(r.store, r.client, shared.WithLogger(r.logger, "component", "auth"))
	r.ctrl = dashboard.NewController(r.provider, r.client, shared.WithLogger(r.logger, "component", "dashboard"))

	r.provider.Init()
	r.logger.Debug("session ready", "api", r.client.BaseURL())

	return auth.WithProvider(ctx, r.provider), nil
}

// withDashboard requires a signed-in session and loads the task list.
func (r *Runner) withDashboard(ctx context.Context) (context.Context, error) {
	ctx, err := r.withSession(ctx)
	if err != nil {
		return ctx, err
	}

	if err := r.ctrl.Mount(ctx); err != nil {
		if r.ctrl.Error() != "" {
			return ctx, fmt.Errorf("%s: %w", r.ctrl.Error(), err)
		}
		return ctx, fmt.Errorf("%w: run 'tdx auth login' first", err)
	}
	return ctx, nil
}

// Close releases the local database, if one was opened.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

// controllerError decorates err with the message the controller placed in its error slot.
func (r *Runner) controllerError(err error) error {
	if msg := r.ctrl.Error(); msg != "" {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}

// prompt writes question and reads one trimmed line of input.
func (r *Runner) prompt(question string) (string, error) {
	r.writePlain("%s", question)
	line, err := r.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm implements [dashboard.Confirmer] by asking on the terminal. Only "y" or "yes" confirm.
func (r *Runner) Confirm(question string) bool {
	answer, err := r.prompt(question + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
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

var _ dashboard.Confirmer = (*Runner)(nil)
