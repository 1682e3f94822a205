// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"dxtest-cli/internal/config"
	"dxtest-cli/internal/container"
	"dxtest-cli/internal/issue"
	"dxtest-cli/internal/provision"
	"dxtest-cli/internal/runner"
	"dxtest-cli/internal/suite"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type (
	// App is the composition root of the CLI layer. Command handlers get
	// their configuration, executor and provisioner through it.
	App struct {
		stdout     io.Writer
		stderr     io.Writer
		loadConfig func(config.LoadOptions) (*config.Config, error)
		lookPath   container.LookPathFunc
		executor   runner.Executor
		flags      globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Stdout     io.Writer
		Stderr     io.Writer
		LoadConfig func(config.LoadOptions) (*config.Config, error)
		LookPath   container.LookPathFunc
		// Executor replaces the process runner.
		Executor runner.Executor
	}

	globalFlags struct {
		verbose     bool
		configPath  string
		projectRoot string
		engine      string
	}

	// session is everything one command invocation needs.
	session struct {
		cfg    *config.Config
		logger *log.Logger
		exec   runner.Executor
		// env is nil for sessions created without an engine.
		env *suite.Env
	}
)

// NewApp creates an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		loadConfig: deps.LoadConfig,
		lookPath:   deps.LookPath,
		executor:   deps.Executor,
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.loadConfig == nil {
		app.loadConfig = config.Load
	}
	return app
}

// config loads the configuration and applies the global flags on top.
func (a *App) config() (*config.Config, error) {
	cfg, err := a.loadConfig(config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		ProjectRoot:    a.flags.projectRoot,
	})
	if err != nil {
		return nil, err
	}
	if a.flags.verbose {
		cfg.Verbose = true
	}
	if a.flags.engine != "" {
		cfg.ContainerEngine = config.ContainerEngine(a.flags.engine)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newSession builds the per-invocation services. withEngine also detects
// the container engine and wires the provisioner.
func (a *App) newSession(withEngine bool) (*session, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	level := log.WarnLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: "dxtest", Level: level})

	exec := a.executor
	if exec == nil {
		exec = runner.New(runner.WithConsole(a.stdout), runner.WithLogger(logger.WithPrefix("runner")))
	}
	s := &session{cfg: cfg, logger: logger, exec: exec}
	if !withEngine {
		return s, nil
	}

	cli, err := container.Detect(container.EngineType(cfg.ContainerEngine), a.lookPath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("detect container engine").
			WithResource(string(cfg.ContainerEngine)).
			WithSuggestion("Install Docker Engine with the compose plugin").
			WithSuggestion("Set DX_TEST_ENGINE=podman to use Podman instead").
			Wrap(err).
			BuildError()
	}
	if cli.Engine() != container.EngineType(cfg.ContainerEngine) {
		logger.Warn("preferred container engine not found, falling back", "preferred", cfg.ContainerEngine, "using", cli.Name())
	}

	prov := provision.New(exec, cli,
		provision.WithLogger(logger.WithPrefix("provision")),
		provision.WithProjectRoot(cfg.ProjectRoot),
		provision.WithInspectTimeout(cfg.Timeouts.Inspect.Duration()),
	)
	s.env = &suite.Env{
		Config:      cfg,
		Exec:        exec,
		CLI:         cli,
		Provisioner: prov,
		Logger:      logger.WithPrefix("suite"),
		Console:     a.stdout,
	}
	return s, nil
}

// runE adapts a handler so failures carry their issue catalog entry.
// A bare ExitError only reports a status and passes through untouched.
func (a *App) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			return err
		}
		svcErr := newServiceError(err, issueFor(err))
		renderServiceError(a.stderr, svcErr, a.flags.verbose)
		return svcErr
	}
}

// parseIdentity reads <component> <os> <version> from the front of args.
func parseIdentity(args []string) (provision.Identity, []string, error) {
	if len(args) < 3 {
		return provision.Identity{}, nil, errors.New("expected <component> <os> <version>")
	}
	id := provision.Identity{Component: args[0], OS: provision.OSFamily(args[1]), Version: args[2]}
	if err := id.Validate(); err != nil {
		return provision.Identity{}, nil, err
	}
	return id, args[3:], nil
}

// parseEnvPairs turns KEY=VALUE flags into a map.
func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env %q: want KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}
