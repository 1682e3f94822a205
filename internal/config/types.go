// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ContainerEngineDocker drives containers through the docker CLI.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman drives containers through the podman CLI.
	ContainerEnginePodman ContainerEngine = "podman"

	// DefaultComposeFile is the base compose file of the local install image.
	DefaultComposeFile = "tests/docker/docker-compose.local.install.test.yml"
	// DefaultComposeService is the compose service that builds the image.
	DefaultComposeService = "dx-local-install-test"
	// DefaultNvidiaGPUOverlay adds GPU device reservations to the build.
	DefaultNvidiaGPUOverlay = "docker/docker-compose.nvidia_gpu.yml"
	// DefaultInternalOverlay switches the build to the internal network mirrors.
	DefaultInternalOverlay = "docker/docker-compose.internal.yml"
	// DefaultDockerVolumePath is where the project is mounted in containers.
	DefaultDockerVolumePath = "/deepx/workspace"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine names the container CLI.
	ContainerEngine string

	// Seconds is a timeout expressed in whole seconds, as in the environment
	// and the CUE file.
	Seconds int

	// Config is the harness configuration.
	Config struct {
		ContainerEngine ContainerEngine   `json:"container_engine" mapstructure:"container_engine" toml:"container_engine"`
		Verbose         bool              `json:"verbose" mapstructure:"verbose" toml:"verbose"`
		ProjectRoot     string            `json:"project_root" mapstructure:"project_root" toml:"project_root"`
		Timeouts        TimeoutsConfig    `json:"timeouts" mapstructure:"timeouts" toml:"timeouts"`
		Build           BuildConfig       `json:"build" mapstructure:"build" toml:"build"`
		Install         InstallConfig     `json:"install" mapstructure:"install" toml:"install"`
		Volumes         VolumesConfig     `json:"volumes" mapstructure:"volumes" toml:"volumes"`
		Credentials     CredentialsConfig `json:"credentials" mapstructure:"credentials" toml:"credentials"`
	}

	// TimeoutsConfig bounds each kind of process the harness starts.
	TimeoutsConfig struct {
		// Script bounds one getting-started script (DX_TEST_GETTING_STARTED_TIMEOUT).
		Script Seconds `json:"script" mapstructure:"script" toml:"script"`
		// Build bounds one image build.
		Build Seconds `json:"build" mapstructure:"build" toml:"build"`
		// Install bounds one install.sh run on the host or in a container.
		Install Seconds `json:"install" mapstructure:"install" toml:"install"`
		// Exec is the default for commands run inside a container.
		Exec Seconds `json:"exec" mapstructure:"exec" toml:"exec"`
		// Command is the default for host commands.
		Command Seconds `json:"command" mapstructure:"command" toml:"command"`
		// Inspect bounds the short engine queries (images -q, inspect, rm).
		Inspect Seconds `json:"inspect" mapstructure:"inspect" toml:"inspect"`
	}

	// BuildConfig selects the compose files of the image build.
	BuildConfig struct {
		NvidiaGPU        bool   `json:"nvidia_gpu" mapstructure:"nvidia_gpu" toml:"nvidia_gpu"`
		Internal         bool   `json:"internal" mapstructure:"internal" toml:"internal"`
		NoCache          bool   `json:"no_cache" mapstructure:"no_cache" toml:"no_cache"`
		ComposeFile      string `json:"compose_file" mapstructure:"compose_file" toml:"compose_file"`
		Service          string `json:"service" mapstructure:"service" toml:"service"`
		NvidiaGPUOverlay string `json:"nvidia_gpu_overlay" mapstructure:"nvidia_gpu_overlay" toml:"nvidia_gpu_overlay"`
		InternalOverlay  string `json:"internal_overlay" mapstructure:"internal_overlay" toml:"internal_overlay"`
	}

	// InstallConfig holds install.sh toggles.
	InstallConfig struct {
		// ExcludeFW passes --exclude-fw to the runtime installer.
		ExcludeFW bool `json:"exclude_fw" mapstructure:"exclude_fw" toml:"exclude_fw"`
	}

	// VolumesConfig is the workspace bind mount.
	VolumesConfig struct {
		Local  string `json:"local" mapstructure:"local" toml:"local"`
		Docker string `json:"docker" mapstructure:"docker" toml:"docker"`
	}

	// CredentialsConfig is passed through to builds and containers.
	CredentialsConfig struct {
		Username string `json:"username" mapstructure:"username" toml:"username"`
		Password string `json:"password" mapstructure:"password" toml:"password"`
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// String returns the engine name.
func (c ContainerEngine) String() string { return string(c) }

// Validate returns ErrInvalidContainerEngine for anything but docker or podman.
func (c ContainerEngine) Validate() error {
	switch c {
	case ContainerEngineDocker, ContainerEnginePodman:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: docker, podman)", ErrInvalidContainerEngine, string(c))
	}
}

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s) * time.Second
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks the values CUE cannot see because they came from the
// environment or the defaults.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ContainerEngine.Validate(); err != nil {
		errs = append(errs, err)
	}
	timeouts := []struct {
		key   string
		value Seconds
	}{
		{"timeouts.script", c.Timeouts.Script},
		{"timeouts.build", c.Timeouts.Build},
		{"timeouts.install", c.Timeouts.Install},
		{"timeouts.exec", c.Timeouts.Exec},
		{"timeouts.command", c.Timeouts.Command},
		{"timeouts.inspect", c.Timeouts.Inspect},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", t.key, t.value))
		}
	}
	if !strings.HasPrefix(c.Volumes.Docker, "/") {
		errs = append(errs, fmt.Errorf("volumes.docker %q must be an absolute container path", c.Volumes.Docker))
	}
	if c.Build.ComposeFile == "" || c.Build.Service == "" {
		errs = append(errs, errors.New("build.compose_file and build.service must be set"))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// ComposeFiles returns the base compose file followed by the enabled overlays.
func (c *Config) ComposeFiles() []string {
	files := []string{c.Build.ComposeFile}
	if c.Build.NvidiaGPU {
		files = append(files, c.Build.NvidiaGPUOverlay)
	}
	if c.Build.Internal {
		files = append(files, c.Build.InternalOverlay)
	}
	return files
}

// Redacted returns a copy with the password masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Credentials.Password != "" {
		out.Credentials.Password = "********"
	}
	return &out
}

// DefaultConfig returns the built-in defaults. ProjectRoot and Volumes.Local
// are filled in by Load.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEngineDocker,
		Timeouts: TimeoutsConfig{
			Script:  3600,
			Build:   1800,
			Install: 10800,
			Exec:    7200,
			Command: 1800,
			Inspect: 60,
		},
		Build: BuildConfig{
			ComposeFile:      DefaultComposeFile,
			Service:          DefaultComposeService,
			NvidiaGPUOverlay: DefaultNvidiaGPUOverlay,
			InternalOverlay:  DefaultInternalOverlay,
		},
		Volumes: VolumesConfig{
			Docker: DefaultDockerVolumePath,
		},
	}
}
