// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"io"
	"maps"
	"time"

	"dxtest-cli/internal/config"
	"dxtest-cli/internal/container"
	"dxtest-cli/internal/runner"
)

const (
	// DefaultBuildTimeout bounds one image build.
	DefaultBuildTimeout = 30 * time.Minute
	// DefaultExecTimeout bounds one command inside a container.
	DefaultExecTimeout = 2 * time.Hour
	// ContainerKillGrace is how long a command inside the container may
	// outlive the exec timeout before coreutils timeout kills it there.
	ContainerKillGrace = 30 * time.Second
	// DefaultInspectTimeout bounds the short engine queries.
	DefaultInspectTimeout = time.Minute
	// DefaultStartTimeout bounds `run -d`, which returns once the container started.
	DefaultStartTimeout = 5 * time.Minute
)

type (
	// Credentials are the SDK download credentials passed to builds and
	// containers. Empty fields are not passed at all.
	Credentials struct {
		Username string
		Password string
	}

	// BuildOptions configures EnsureImage.
	BuildOptions struct {
		// ComposeFiles is the base compose file followed by overlays.
		ComposeFiles []string
		// Service is the compose service to build.
		Service string
		NoCache bool
		Credentials
		// Env is applied last and wins over the synthesized build environment.
		Env     map[string]string
		Timeout time.Duration
		Mode    runner.OutputMode
		Console io.Writer
	}

	// RunOptions configures EnsureContainer.
	RunOptions struct {
		// Build is used when the image has to be built first.
		Build   BuildOptions
		Volumes []container.VolumeMount
		Env     map[string]string
		Credentials
		// Command keeps the container alive; defaults to tail -f /dev/null.
		Command []string
		Timeout time.Duration
	}

	// ExecOptions configures ExecInContainer.
	ExecOptions struct {
		Timeout time.Duration
		Mode    runner.OutputMode
		// Banner is announced on the console in live mode.
		Banner  string
		Console io.Writer
		TTY     bool
	}
)

// Env returns DX_USERNAME and DX_PASSWORD for the fields that are set.
func (c Credentials) Env() map[string]string {
	env := make(map[string]string, 2)
	if c.Username != "" {
		env["DX_USERNAME"] = c.Username
	}
	if c.Password != "" {
		env["DX_PASSWORD"] = c.Password
	}
	return env
}

// Complete reports whether both credentials are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// CredentialsFromConfig copies the credentials section.
func CredentialsFromConfig(cfg *config.Config) Credentials {
	return Credentials{Username: cfg.Credentials.Username, Password: cfg.Credentials.Password}
}

// BuildOptionsFromConfig derives build options from the configuration.
func BuildOptionsFromConfig(cfg *config.Config) BuildOptions {
	return BuildOptions{
		ComposeFiles: cfg.ComposeFiles(),
		Service:      cfg.Build.Service,
		NoCache:      cfg.Build.NoCache,
		Credentials:  CredentialsFromConfig(cfg),
		Timeout:      cfg.Timeouts.Build.Duration(),
		Mode:         runner.ModeFor(cfg.Verbose),
	}
}

// RunOptionsFromConfig derives run options, including the workspace mount
// and DOCKER_VOLUME_PATH, from the configuration.
func RunOptionsFromConfig(cfg *config.Config) RunOptions {
	return RunOptions{
		Build: BuildOptionsFromConfig(cfg),
		Volumes: []container.VolumeMount{{
			HostPath:      cfg.Volumes.Local,
			ContainerPath: cfg.Volumes.Docker,
		}},
		Env:         map[string]string{"DOCKER_VOLUME_PATH": cfg.Volumes.Docker},
		Credentials: CredentialsFromConfig(cfg),
	}
}

// ExecOptionsFromConfig returns exec options with the configured default
// timeout and output mode.
func ExecOptionsFromConfig(cfg *config.Config) ExecOptions {
	return ExecOptions{
		Timeout: cfg.Timeouts.Exec.Duration(),
		Mode:    runner.ModeFor(cfg.Verbose),
	}
}

func mergeInto(dst map[string]string, srcs ...map[string]string) map[string]string {
	for _, src := range srcs {
		maps.Copy(dst, src)
	}
	return dst
}
