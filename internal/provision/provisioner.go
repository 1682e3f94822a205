// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"dxtest-cli/internal/container"
	"dxtest-cli/internal/runner"

	"github.com/charmbracelet/log"
)

const (
	// DefaultDummyXAuthPath is touched and mounted when XAUTHORITY is unset.
	DefaultDummyXAuthPath = "/tmp/dummy"

	xauthTarget = "/tmp/.docker.xauth"
	targetUser  = "deepx"
	targetHome  = "/deepx"
)

type (
	// Option configures a Provisioner.
	Option func(*Provisioner)

	// Provisioner ensures images and containers exist for an Identity. All
	// engine commands go through the Executor.
	Provisioner struct {
		exec           runner.Executor
		cli            *container.CLI
		logger         *log.Logger
		projectRoot    string
		lookupEnv      func(string) (string, bool)
		touch          func(string) error
		dummyXAuth     string
		uid, gid       int
		inspectTimeout time.Duration
		startTimeout   time.Duration
	}
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provisioner) { p.logger = l }
}

// WithProjectRoot sets the directory compose builds run in.
func WithProjectRoot(dir string) Option {
	return func(p *Provisioner) { p.projectRoot = dir }
}

// WithLookupEnv replaces os.LookupEnv for reading the parent environment.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(p *Provisioner) { p.lookupEnv = fn }
}

// WithDummyXAuth sets the placeholder XAUTHORITY file and how it is created.
func WithDummyXAuth(path string, touch func(string) error) Option {
	return func(p *Provisioner) {
		p.dummyXAuth = path
		if touch != nil {
			p.touch = touch
		}
	}
}

// WithHostIDs sets HOST_UID and HOST_GID of the build.
func WithHostIDs(uid, gid int) Option {
	return func(p *Provisioner) {
		p.uid = uid
		p.gid = gid
	}
}

// WithInspectTimeout bounds images/inspect/rm queries.
func WithInspectTimeout(d time.Duration) Option {
	return func(p *Provisioner) { p.inspectTimeout = d }
}

// New creates a Provisioner.
func New(exec runner.Executor, cli *container.CLI, opts ...Option) *Provisioner {
	p := &Provisioner{
		exec:           exec,
		cli:            cli,
		lookupEnv:      os.LookupEnv,
		touch:          touchFile,
		dummyXAuth:     DefaultDummyXAuthPath,
		uid:            os.Getuid(),
		gid:            os.Getgid(),
		inspectTimeout: DefaultInspectTimeout,
		startTimeout:   DefaultStartTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "provision", Level: log.WarnLevel})
	}
	return p
}

// ImageExists reports whether the derived image is in the local image index.
// Any lookup failure is reported as false.
func (p *Provisioner) ImageExists(ctx context.Context, id Identity) bool {
	res, err := p.query(ctx, p.cli.ImageQueryArgs(id.ImageName()))
	if err != nil {
		p.logger.Debug("image query failed", "image", id.ImageName(), "err", err)
		return false
	}
	return res.ExitCode == 0 && strings.TrimSpace(res.Stdout) != ""
}

// IsContainerRunning reports whether the derived container is running. An
// absent container or a failed lookup is reported as false.
func (p *Provisioner) IsContainerRunning(ctx context.Context, id Identity) bool {
	res, err := p.query(ctx, p.cli.InspectRunningArgs(id.ContainerName()))
	if err != nil {
		p.logger.Debug("container inspect failed", "container", id.ContainerName(), "err", err)
		return false
	}
	return res.ExitCode == 0 && strings.TrimSpace(res.Stdout) == "true"
}

// ContainerExists reports whether a container with the derived name exists in
// any state.
func (p *Provisioner) ContainerExists(ctx context.Context, id Identity) bool {
	res, err := p.query(ctx, p.cli.InspectArgs(id.ContainerName()))
	return err == nil && res.ExitCode == 0
}

// EnsureImage builds the image unless it already exists. A failed build is
// reported through Result.ExitCode with a nil error, like any other command;
// errors are reserved for builds that could not start or timed out.
func (p *Provisioner) EnsureImage(ctx context.Context, id Identity, opts BuildOptions) (runner.Result, error) {
	if err := id.Validate(); err != nil {
		return runner.Result{ExitCode: ExitCodePrecondition}, err
	}
	if p.ImageExists(ctx, id) {
		p.logger.Debug("image already exists", "image", id.ImageName())
		return runner.Result{}, nil
	}

	build := container.ComposeBuild{Files: opts.ComposeFiles, Service: opts.Service, NoCache: opts.NoCache}
	if err := build.Validate(); err != nil {
		return runner.Result{ExitCode: ExitCodePrecondition}, err
	}

	env := p.BuildEnv(id, opts)
	if env["XAUTHORITY"] == p.dummyXAuth {
		if err := p.touch(p.dummyXAuth); err != nil {
			return runner.Result{ExitCode: ExitCodePrecondition}, fmt.Errorf("create placeholder XAUTHORITY %s: %w", p.dummyXAuth, err)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultBuildTimeout
	}

	p.logger.Info("building image", "image", id.ImageName(), "files", opts.ComposeFiles, "no_cache", opts.NoCache)
	return p.exec.Execute(ctx, runner.Request{
		Command: p.cli.Command(p.cli.ComposeBuildArgs(build)),
		Dir:     p.projectRoot,
		Env:     env,
		Timeout: timeout,
		Mode:    opts.Mode,
		Banner:  fmt.Sprintf("Building local install docker image for %s on %s:%s", id.Component, id.OS, id.Version),
		Console: opts.Console,
	})
}

// BuildEnv returns the environment overrides of the compose build for id.
// Unrelated parent variables are inherited by the runner and not listed.
func (p *Provisioner) BuildEnv(id Identity, opts BuildOptions) map[string]string {
	env := map[string]string{
		"COMPOSE_BAKE": "true",
		"HOST_UID":     strconv.Itoa(p.uid),
		"HOST_GID":     strconv.Itoa(p.gid),
		"TARGET_USER":  targetUser,
		"TARGET_HOME":  targetHome,
		"COMPONENT":    id.Component,
		"OS_TYPE":      string(id.OS),
		"VERSION":      id.Version,
		"VERSION_DASH": id.VersionDash(),
		"IMAGE_NAME":   id.ImageName(),

		id.OS.VersionEnvKey(): id.Version,
	}

	if xauth, ok := p.lookupEnv("XAUTHORITY"); ok && xauth != "" {
		env["XAUTHORITY_TARGET"] = xauthTarget
	} else {
		env["XAUTHORITY"] = p.dummyXAuth
		env["XAUTHORITY_TARGET"] = p.dummyXAuth
	}

	// compose warns about unset variables referenced by the file
	for _, key := range []string{"USE_INTRANET", "CA_FILE_NAME", "DISPLAY"} {
		if v, ok := p.lookupEnv(key); !ok || v == "" {
			env[key] = ""
		}
	}

	return mergeInto(env, opts.Credentials.Env(), opts.Env)
}

// EnsureContainer starts the container unless it is already running. The
// image is ensured first; a stopped or dead container with the same name is
// removed and recreated rather than restarted.
func (p *Provisioner) EnsureContainer(ctx context.Context, id Identity, opts RunOptions) (runner.Result, error) {
	if err := id.Validate(); err != nil {
		return runner.Result{ExitCode: ExitCodePrecondition}, err
	}
	if p.IsContainerRunning(ctx, id) {
		p.logger.Debug("container already running", "container", id.ContainerName())
		return runner.Result{}, nil
	}

	res, err := p.EnsureImage(ctx, id, opts.Build)
	if err != nil || !res.Success() {
		return res, err
	}
	if !p.ImageExists(ctx, id) {
		return runner.Result{ExitCode: ExitCodePrecondition}, &ResourceAbsentError{
			Kind: ResourceImage,
			Name: id.ImageName(),
			Hint: "the build succeeded but the image is not in the local index; check the compose image name",
			Err:  ErrImageMissing,
		}
	}

	if p.ContainerExists(ctx, id) {
		p.logger.Info("removing stale container", "container", id.ContainerName())
		res, err := p.query(ctx, p.cli.RemoveArgs(id.ContainerName(), true))
		if err != nil || !res.Success() {
			return res, err
		}
	}

	spec, err := p.runSpec(id, opts)
	if err != nil {
		return runner.Result{ExitCode: ExitCodePrecondition}, err
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = p.startTimeout
	}

	p.logger.Info("starting container", "container", id.ContainerName(), "image", id.ImageName())
	res, err = p.exec.Execute(ctx, runner.Request{
		Command: p.cli.Command(p.cli.RunArgs(spec)),
		Timeout: timeout,
	})
	if err != nil || !res.Success() {
		return res, err
	}

	if !p.IsContainerRunning(ctx, id) {
		return res, &ResourceAbsentError{
			Kind: ResourceContainer,
			Name: id.ContainerName(),
			Hint: "it exited right after start; see `" + p.cli.Name() + " logs " + id.ContainerName() + "`",
			Err:  ErrContainerNotRunning,
		}
	}
	return res, nil
}

func (p *Provisioner) runSpec(id Identity, opts RunOptions) (container.RunSpec, error) {
	env := mergeInto(map[string]string{"DEBIAN_FRONTEND": "noninteractive"}, opts.Credentials.Env(), opts.Env)
	command := opts.Command
	if len(command) == 0 {
		command = container.DefaultKeepAlive
	}
	spec := container.RunSpec{
		Name:    id.ContainerName(),
		Image:   id.ImageName(),
		Detach:  true,
		Env:     env,
		Volumes: opts.Volumes,
		Command: command,
	}
	return spec, spec.Validate()
}

// ExecInContainer runs command in the running container. When the container
// is not running the engine's exec is never invoked: the result carries
// ExitCodePrecondition and the error wraps ErrContainerNotRunning.
//
// A timeout only kills the local exec client, which does not stop the process
// inside the container. The command therefore runs under coreutils timeout,
// which kills its process group in the container ContainerKillGrace after the
// exec timeout.
func (p *Provisioner) ExecInContainer(ctx context.Context, id Identity, command []string, opts ExecOptions) (runner.Result, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultExecTimeout
	}
	if len(command) == 0 {
		argv := p.cli.Command(p.cli.ExecArgs(id.ContainerName(), container.ExecSpec{Interactive: true, TTY: opts.TTY}, command))
		return runner.Result{ExitCode: ExitCodePrecondition, Command: argv}, &runner.InvalidRequestError{Reason: "empty container command"}
	}
	argv := p.cli.Command(p.cli.ExecArgs(id.ContainerName(), container.ExecSpec{Interactive: true, TTY: opts.TTY}, BoundedCommand(command, timeout+ContainerKillGrace)))

	if !p.IsContainerRunning(ctx, id) {
		absent := &ResourceAbsentError{
			Kind: ResourceContainer,
			Name: id.ContainerName(),
			Hint: "start it with EnsureContainer first",
			Err:  ErrContainerNotRunning,
		}
		return runner.Result{
			ExitCode: ExitCodePrecondition,
			Output:   absent.Error() + "\n",
			Command:  argv,
		}, absent
	}

	banner := opts.Banner
	if banner != "" {
		banner += " in container: " + id.ContainerName()
	}
	return p.exec.Execute(ctx, runner.Request{
		Command: argv,
		Timeout: timeout,
		Mode:    opts.Mode,
		Banner:  banner,
		Console: opts.Console,
		TTY:     opts.TTY,
	})
}

// BoundedCommand prefixes command with `timeout -s KILL <seconds>`, rounding
// limit up to whole seconds.
func BoundedCommand(command []string, limit time.Duration) []string {
	secs := int64((limit + time.Second - 1) / time.Second)
	return append([]string{"timeout", "-s", "KILL", strconv.FormatInt(secs, 10) + "s"}, command...)
}

// ShellCommand wraps script for `bash -lc` so the login profile is sourced.
func ShellCommand(script string) []string {
	return []string{"bash", "-lc", script}
}

// PathExists reports whether file is a regular file inside the running container.
func (p *Provisioner) PathExists(ctx context.Context, id Identity, file string) bool {
	res, err := p.ExecInContainer(ctx, id, ShellCommand("test -f "+runner.QuoteArg(file)), ExecOptions{Timeout: p.inspectTimeout})
	return err == nil && res.ExitCode == 0
}

// WorkspaceMounted checks that the project checkout is visible in the
// container, either at mountPath or nested as mountPath/dx-all-suite. It
// returns the directory that holds <component>/install.sh.
func (p *Provisioner) WorkspaceMounted(ctx context.Context, id Identity, mountPath string) (string, error) {
	candidates := []string{mountPath, path.Join(mountPath, "dx-all-suite")}
	for _, dir := range candidates {
		if p.PathExists(ctx, id, path.Join(dir, id.Component, "install.sh")) {
			return dir, nil
		}
	}
	return "", &ResourceAbsentError{
		Kind: ResourceWorkspace,
		Name: mountPath,
		Hint: "restart the container with LOCAL_VOLUME_PATH set to the dx-all-suite checkout",
		Err:  ErrWorkspaceNotMounted,
	}
}

// query runs a short captured engine command.
func (p *Provisioner) query(ctx context.Context, args []string) (runner.Result, error) {
	return p.exec.Execute(ctx, runner.Request{
		Command: p.cli.Command(args),
		Timeout: p.inspectTimeout,
	})
}

// IsAbsent reports whether err is a ResourceAbsentError of kind.
func IsAbsent(err error, kind ResourceKind) bool {
	var absent *ResourceAbsentError
	return errors.As(err, &absent) && absent.Kind == kind
}

func touchFile(name string) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
