// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"maps"
	"slices"
)

// DefaultKeepAlive keeps a detached container running with nothing to do.
var DefaultKeepAlive = []string{"tail", "-f", "/dev/null"}

type (
	// ComposeBuild describes `compose -f ... build [--no-cache] <service>`.
	ComposeBuild struct {
		// Files are passed as -f in order; later files override earlier ones.
		Files   []string
		Service string
		NoCache bool
	}

	// RunSpec describes a `run` invocation.
	RunSpec struct {
		Name    string
		Image   string
		Detach  bool
		Remove  bool
		WorkDir string
		Env     map[string]string
		Volumes []VolumeMount
		// Command follows the image. Empty means the image default.
		Command []string
	}

	// ExecSpec holds the options of an `exec` invocation.
	ExecSpec struct {
		Interactive bool
		TTY         bool
		WorkDir     string
		Env         map[string]string
	}
)

// Validate checks that at least one compose file and a service are named.
func (b ComposeBuild) Validate() error {
	var errs []error
	if len(b.Files) == 0 {
		errs = append(errs, errors.New("compose build needs at least one -f file"))
	}
	if b.Service == "" {
		errs = append(errs, errors.New("compose build needs a service name"))
	}
	return errors.Join(errs...)
}

// Validate checks the container name, the image and every volume.
func (r RunSpec) Validate() error {
	var errs []error
	if r.Image == "" {
		errs = append(errs, errors.New("run needs an image"))
	}
	for _, v := range r.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// VersionArgs prints the client version. It needs no running daemon, so it
// only checks that the engine CLI is installed.
//
// Generated command: <binary> --version
func (c *CLI) VersionArgs() []string {
	return []string{"--version"}
}

// ComposeVersionArgs checks that the compose plugin is installed.
func (c *CLI) ComposeVersionArgs() []string {
	return []string{"compose", "version"}
}

// ImageQueryArgs prints the ID of image, or nothing when it is absent. The
// command exits 0 either way.
//
// Generated command: <binary> images -q <image>
func (c *CLI) ImageQueryArgs(image string) []string {
	return []string{"images", "-q", image}
}

// InspectRunningArgs prints "true" for a running container and fails for an
// unknown one.
//
// Generated command: <binary> inspect -f {{.State.Running}} <name>
func (c *CLI) InspectRunningArgs(name string) []string {
	return []string{"inspect", "-f", "{{.State.Running}}", name}
}

// InspectArgs succeeds when a container (or image) called name exists in any state.
func (c *CLI) InspectArgs(name string) []string {
	return []string{"inspect", name}
}

// RemoveArgs removes a container, killing it first when force is set.
func (c *CLI) RemoveArgs(name string, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	return append(args, name)
}

// ComposeBuildArgs builds a compose service image.
//
// Generated command: <binary> compose -f <file>... build [--no-cache] <service>
func (c *CLI) ComposeBuildArgs(b ComposeBuild) []string {
	args := []string{"compose"}
	for _, f := range b.Files {
		args = append(args, "-f", f)
	}
	args = append(args, "build")
	if b.NoCache {
		args = append(args, "--no-cache")
	}
	return append(args, b.Service)
}

// RunArgs builds a run command. Environment entries are emitted in key order.
//
// Generated command: <binary> run [options] <image> [command...]
func (c *CLI) RunArgs(r RunSpec) []string {
	args := []string{"run"}
	if r.Detach {
		args = append(args, "-d")
	}
	if r.Remove {
		args = append(args, "--rm")
	}
	if r.Name != "" {
		args = append(args, "--name", r.Name)
	}
	if r.WorkDir != "" {
		args = append(args, "-w", r.WorkDir)
	}
	args = appendEnv(args, r.Env)
	for _, v := range r.Volumes {
		args = append(args, "-v", v.String())
	}
	args = append(args, r.Image)
	return append(args, r.Command...)
}

// ExecArgs builds an exec command for a running container.
//
// Generated command: <binary> exec [options] <name> <command...>
func (c *CLI) ExecArgs(name string, e ExecSpec, command []string) []string {
	args := []string{"exec"}
	if e.Interactive {
		args = append(args, "-i")
	}
	if e.TTY {
		args = append(args, "-t")
	}
	if e.WorkDir != "" {
		args = append(args, "-w", e.WorkDir)
	}
	args = appendEnv(args, e.Env)
	args = append(args, name)
	return append(args, command...)
}

func appendEnv(args []string, env map[string]string) []string {
	for _, k := range slices.Sorted(maps.Keys(env)) {
		args = append(args, "-e", k+"="+env[k])
	}
	return args
}
