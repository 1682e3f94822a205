// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dxtest-cli/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the optional config file looked up in the project root.
	ConfigFileName = "dxtest.cue"

	// LoadOperation is the operation of the ActionableError returned by Load.
	LoadOperation = "load configuration"

	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

type (
	// LoadOptions controls where Load looks for its inputs.
	LoadOptions struct {
		// ConfigFilePath is used exclusively when set (the --config flag).
		ConfigFilePath string
		// ProjectRoot overrides project-root discovery.
		ProjectRoot string
		// WorkDir is where project-root discovery starts; empty means os.Getwd.
		WorkDir string
		// LookupEnv replaces os.LookupEnv.
		LookupEnv func(key string) (string, bool)
	}

	envBinding struct {
		key    string
		env    string
		toggle bool
		number bool
	}
)

// envBindings is the environment surface. Empty values fall back to the
// file or default value.
var envBindings = []envBinding{
	{key: "verbose", env: "DX_TEST_VERBOSE", toggle: true},
	{key: "timeouts.script", env: "DX_TEST_GETTING_STARTED_TIMEOUT", number: true},
	{key: "build.nvidia_gpu", env: "DX_TEST_NVIDIA_GPU", toggle: true},
	{key: "build.internal", env: "DX_TEST_INTERNAL", toggle: true},
	{key: "build.no_cache", env: "DX_TEST_NO_CACHE", toggle: true},
	{key: "install.exclude_fw", env: "DX_EXCLUDE_FW", toggle: true},
	{key: "credentials.username", env: "DX_USERNAME"},
	{key: "credentials.password", env: "DX_PASSWORD"},
	{key: "volumes.local", env: "LOCAL_VOLUME_PATH"},
	{key: "volumes.docker", env: "DOCKER_VOLUME_PATH"},
	{key: "container_engine", env: "DX_TEST_ENGINE"},
}

// EnvVars returns the environment variables Load reads, keyed by config key.
func EnvVars() map[string]string {
	vars := make(map[string]string, len(envBindings))
	for _, b := range envBindings {
		vars[b.key] = b.env
	}
	return vars
}

// ParseToggle reports whether s is one of 1, true, yes or y, ignoring case
// and surrounding space. Anything else is false.
func ParseToggle(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

// Load builds the configuration. It never fails because a variable or the
// config file is absent; it fails for a malformed file, a non-numeric timeout
// or a value outside its domain.
func Load(opts LoadOptions) (*Config, error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	root, err := resolveProjectRoot(opts)
	if err != nil {
		return nil, loadError("", err, "Pass --project-root explicitly")
	}

	v := viper.New()
	setDefaults(v, root)

	cfgPath := opts.ConfigFilePath
	switch {
	case cfgPath != "":
		if !fileExists(cfgPath) {
			return nil, loadError(cfgPath, fmt.Errorf("config file not found: %s", cfgPath),
				"Verify the file path is correct",
				"Omit --config to run with defaults and DX_* variables")
		}
	case fileExists(filepath.Join(root, ConfigFileName)):
		cfgPath = filepath.Join(root, ConfigFileName)
	}
	if cfgPath != "" {
		if err := loadCUEIntoViper(v, cfgPath); err != nil {
			return nil, loadError(cfgPath, err,
				"Check that the file contains valid CUE syntax",
				"Run 'dxtest config show' to see the effective configuration")
		}
	}

	if err := applyEnv(v, lookupEnv); err != nil {
		return nil, loadError("", err, "Timeouts are whole seconds, e.g. DX_TEST_GETTING_STARTED_TIMEOUT=7200")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = root
	}
	if cfg.Volumes.Local == "" {
		cfg.Volumes.Local = cfg.ProjectRoot
	}

	if err := cfg.Validate(); err != nil {
		return nil, loadError(cfgPath, err, "Supported engines are docker and podman")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, root string) {
	d := DefaultConfig()
	v.SetDefault("container_engine", string(d.ContainerEngine))
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("project_root", root)
	v.SetDefault("timeouts.script", int(d.Timeouts.Script))
	v.SetDefault("timeouts.build", int(d.Timeouts.Build))
	v.SetDefault("timeouts.install", int(d.Timeouts.Install))
	v.SetDefault("timeouts.exec", int(d.Timeouts.Exec))
	v.SetDefault("timeouts.command", int(d.Timeouts.Command))
	v.SetDefault("timeouts.inspect", int(d.Timeouts.Inspect))
	v.SetDefault("build.nvidia_gpu", d.Build.NvidiaGPU)
	v.SetDefault("build.internal", d.Build.Internal)
	v.SetDefault("build.no_cache", d.Build.NoCache)
	v.SetDefault("build.compose_file", d.Build.ComposeFile)
	v.SetDefault("build.service", d.Build.Service)
	v.SetDefault("build.nvidia_gpu_overlay", d.Build.NvidiaGPUOverlay)
	v.SetDefault("build.internal_overlay", d.Build.InternalOverlay)
	v.SetDefault("install.exclude_fw", d.Install.ExcludeFW)
	v.SetDefault("volumes.local", "")
	v.SetDefault("volumes.docker", d.Volumes.Docker)
	v.SetDefault("credentials.username", "")
	v.SetDefault("credentials.password", "")
}

// applyEnv overrides keys from the environment with viper.Set, which takes
// precedence over the config file and the defaults.
func applyEnv(v *viper.Viper, lookupEnv func(string) (string, bool)) error {
	for _, b := range envBindings {
		raw, ok := lookupEnv(b.env)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		switch {
		case b.toggle:
			v.Set(b.key, ParseToggle(raw))
		case b.number:
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%s=%q is not a whole number of seconds", b.env, raw)
			}
			v.Set(b.key, n)
		default:
			v.Set(b.key, raw)
		}
	}
	return nil
}

func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// formatCUEError prefixes each CUE error with the file and its field path.
func formatCUEError(err error, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Error()
		if p := strings.Join(cueerrors.Path(e), "."); p != "" && !strings.HasPrefix(msg, p) {
			msg = p + ": " + msg
		}
		lines = append(lines, msg)
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", path, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", path, strings.Join(lines, "\n  "))
}

func loadError(resource string, cause error, suggestions ...string) error {
	ctx := issue.NewErrorContext().WithOperation(LoadOperation).Wrap(cause)
	if resource != "" {
		ctx.WithResource(resource)
	}
	for _, s := range suggestions {
		ctx.WithSuggestion(s)
	}
	return ctx.BuildError()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
