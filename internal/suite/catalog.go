// SPDX-License-Identifier: MPL-2.0

package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"dxtest-cli/internal/config"
	"dxtest-cli/internal/container"
	"dxtest-cli/internal/provision"
	"dxtest-cli/internal/report"
	"dxtest-cli/internal/runner"

	"github.com/charmbracelet/log"
)

// Suite names.
const (
	SanitySuite         = "sanity"
	DockerBuildSuite    = "docker-build"
	LocalInstallSuite   = "local-install"
	GettingStartedSuite = "getting-started"
)

// Markers attached to cases, usable in a Filter.
const (
	MarkerSanity         = "sanity"
	MarkerDockerInstall  = "docker_install"
	MarkerLocalInstall   = "local_install"
	MarkerGettingStarted = "getting_started"
	MarkerCompiler       = "compiler"
	MarkerRuntime        = "runtime"
)

const (
	dockerBuildScript = "docker_build.sh"
	gettingStartedDir = "getting-started"
)

// ErrUnknownSuite is returned by Lookup for a name not in the catalog.
var ErrUnknownSuite = errors.New("unknown suite")

// essentialDirs must exist under the project root.
var essentialDirs = []string{ComponentCompiler, ComponentRuntime, ComponentModelZoo, "docker"}

// Env is what the catalog cases run against.
type Env struct {
	Config      *config.Config
	Exec        runner.Executor
	CLI         *container.CLI
	Provisioner *provision.Provisioner
	Logger      *log.Logger
	// Console receives live output; nil uses the executor default.
	Console io.Writer
	// Stat replaces os.Stat for the filesystem checks.
	Stat func(string) (fs.FileInfo, error)
}

func (e *Env) stat(name string) (fs.FileInfo, error) {
	if e.Stat != nil {
		return e.Stat(name)
	}
	return os.Stat(name)
}

func (e *Env) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e *Env) mode() runner.OutputMode {
	return runner.ModeFor(e.Config.Verbose)
}

// run executes req and converts an unsuccessful result into a report.Failure.
func (e *Env) run(ctx context.Context, title string, req runner.Request) error {
	if req.Console == nil {
		req.Console = e.Console
	}
	res, err := e.Exec.Execute(ctx, req)
	if err == nil && res.Success() {
		return nil
	}
	return report.FailureFromResult(title, res, err)
}

// All returns every suite of the catalog in the order they are meant to run.
func All(env *Env) []Suite {
	return []Suite{Sanity(env), DockerBuild(env), LocalInstall(env), GettingStarted(env)}
}

// Lookup returns the suite called name.
func Lookup(env *Env, name string) (Suite, error) {
	for _, s := range All(env) {
		if s.Name == name {
			return s, nil
		}
	}
	return Suite{}, fmt.Errorf("%w: %q", ErrUnknownSuite, name)
}

// Sanity checks the host prerequisites: the container engine, compose and
// the project layout.
func Sanity(env *Env) Suite {
	markers := []string{MarkerSanity}
	query := func(title string, args []string) CaseFunc {
		return func(ctx context.Context) error {
			return env.run(ctx, title, runner.Request{
				Command: env.CLI.Command(args),
				Timeout: env.Config.Timeouts.Inspect.Duration(),
			})
		}
	}
	return Suite{
		Name: SanitySuite,
		Cases: []Case{
			{
				Name:    "sanity/engine-version",
				Markers: markers,
				Run:     query(env.CLI.Name()+" command not available", env.CLI.VersionArgs()),
			},
			{
				Name:    "sanity/compose-version",
				Markers: markers,
				Run:     query(env.CLI.Name()+" compose command not available", env.CLI.ComposeVersionArgs()),
			},
			{
				Name:    "sanity/project-structure",
				Markers: markers,
				Run: func(context.Context) error {
					var errs []error
					for _, dir := range essentialDirs {
						full := filepath.Join(env.Config.ProjectRoot, dir)
						if fi, err := env.stat(full); err != nil || !fi.IsDir() {
							errs = append(errs, fmt.Errorf("essential directory not found: %s", full))
						}
					}
					return errors.Join(errs...)
				},
			},
			{
				Name:    "sanity/docker-build-script",
				Markers: markers,
				Run: func(context.Context) error {
					file := filepath.Join(env.Config.ProjectRoot, dockerBuildScript)
					if _, err := env.stat(file); err != nil {
						return fmt.Errorf("%s not found at %s", dockerBuildScript, file)
					}
					return nil
				},
			},
		},
	}
}

// DockerBuildCommand returns the docker_build.sh invocation for id.
func DockerBuildCommand(cfg *config.Config, id provision.Identity) []string {
	cmd := []string{
		filepath.Join(cfg.ProjectRoot, dockerBuildScript),
		"--target=" + id.Component,
		fmt.Sprintf("--%s_version=%s", id.OS, id.Version),
	}
	if cfg.Build.Internal {
		cmd = append(cmd, "--internal")
	}
	return cmd
}

// DockerBuild builds the release image of every Matrix entry through
// docker_build.sh.
func DockerBuild(env *Env) Suite {
	s := Suite{Name: DockerBuildSuite}
	for _, id := range Matrix() {
		s.Cases = append(s.Cases, Case{
			Name:    "docker-build/" + id.String(),
			Markers: []string{MarkerDockerInstall, id.Component},
			Run: func(ctx context.Context) error {
				if !provision.CredentialsFromConfig(env.Config).Complete() {
					env.logger().Warn("DX_USERNAME or DX_PASSWORD not set")
				}
				return env.run(ctx, fmt.Sprintf("docker build failed: %s on %s:%s", id.Component, id.OS, id.Version), runner.Request{
					Command: DockerBuildCommand(env.Config, id),
					Dir:     env.Config.ProjectRoot,
					Env:     provision.CredentialsFromConfig(env.Config).Env(),
					Timeout: env.Config.Timeouts.Build.Duration(),
					Mode:    env.mode(),
					Banner:  fmt.Sprintf("Building %s on %s:%s", id.Component, id.OS, id.Version),
				})
			},
		})
	}
	return s
}

// InstallScript returns the shell script that installs id's component from
// the workspace directory dir inside the container.
func InstallScript(id provision.Identity, dir string, excludeFW bool) string {
	installer := path.Join(dir, id.Component, "install.sh")
	args := ""
	if id.Component == ComponentRuntime {
		args = " --all --sanity-check=n --exclude-driver"
		if excludeFW {
			args += " --exclude-fw"
		}
	}
	return fmt.Sprintf(
		"set -e; if [ -f %s ]; then cd %s; else echo '%s install.sh not found in container'; exit 2; fi; ./%s/install.sh%s",
		runner.QuoteArg(installer), runner.QuoteArg(dir), id.Component, id.Component, args,
	)
}

// LocalInstall builds the local-install image, starts its container and
// installs the component inside it, for every Matrix entry. dx-runtime also
// installs the NPU driver and runtime on the host first.
func LocalInstall(env *Env) Suite {
	s := Suite{Name: LocalInstallSuite}
	for _, id := range Matrix() {
		markers := []string{MarkerLocalInstall, id.Component}
		prefix := "local-install/" + id.String()
		s.Cases = append(s.Cases,
			Case{
				Name:    prefix + "/image",
				Markers: markers,
				Run: func(ctx context.Context) error {
					opts := provision.BuildOptionsFromConfig(env.Config)
					opts.Console = env.Console
					res, err := env.Provisioner.EnsureImage(ctx, id, opts)
					if err != nil || !res.Success() {
						return report.FailureFromResult(fmt.Sprintf("failed to build docker image for %s:%s", id.OS, id.Version), res, err)
					}
					return nil
				},
			},
			Case{
				Name:    prefix + "/container",
				Markers: markers,
				Run: func(ctx context.Context) error {
					opts := provision.RunOptionsFromConfig(env.Config)
					opts.Build.Console = env.Console
					res, err := env.Provisioner.EnsureContainer(ctx, id, opts)
					if err != nil || !res.Success() {
						return report.FailureFromResult("failed to start container "+id.ContainerName(), res, err)
					}
					return nil
				},
			},
			Case{
				Name:    prefix + "/install",
				Markers: markers,
				Run:     func(ctx context.Context) error { return installComponent(ctx, env, id) },
			},
		)
	}
	return s
}

func installComponent(ctx context.Context, env *Env, id provision.Identity) error {
	if !env.Provisioner.IsContainerRunning(ctx, id) {
		return &provision.ResourceAbsentError{
			Kind: provision.ResourceContainer,
			Name: id.ContainerName(),
			Hint: "run the container case first",
			Err:  provision.ErrContainerNotRunning,
		}
	}
	dir, err := env.Provisioner.WorkspaceMounted(ctx, id, env.Config.Volumes.Docker)
	if err != nil {
		return err
	}

	if id.Component == ComponentRuntime {
		for _, target := range []string{"dx_rt_npu_linux_driver", "dx_rt"} {
			err := env.run(ctx, target+" install failed", runner.Request{
				Command: []string{"./dx-runtime/install.sh", "--target=" + target},
				Dir:     env.Config.ProjectRoot,
				Timeout: env.Config.Timeouts.Install.Duration(),
				Mode:    env.mode(),
				Banner:  "Installing " + target,
			})
			if err != nil {
				return err
			}
		}
	}

	res, err := env.Provisioner.ExecInContainer(ctx, id,
		provision.ShellCommand(InstallScript(id, dir, env.Config.Install.ExcludeFW)),
		provision.ExecOptions{
			Timeout: env.Config.Timeouts.Install.Duration(),
			Mode:    env.mode(),
			Banner:  "Installing " + id.Component,
			Console: env.Console,
		})
	if err != nil || !res.Success() {
		return report.FailureFromResult(id.Component+" install failed", res, err).InContainer(id.ContainerName())
	}
	return nil
}

// gettingStartedScripts are run in order; the compiler flow first.
var gettingStartedScripts = []struct {
	marker string
	name   string
}{
	{MarkerCompiler, "compiler-0_install_dx-compiler.sh"},
	{MarkerCompiler, "compiler-1_download_onnx.sh"},
	{MarkerCompiler, "compiler-2_setup_calibration_dataset.sh"},
	{MarkerCompiler, "compiler-3_setup_output_path.sh"},
	{MarkerCompiler, "compiler-4_model_compile.sh"},
	{MarkerCompiler, "compiler-clean.sh"},
	{MarkerRuntime, "runtime-0_install_dx-runtime.sh"},
	{MarkerRuntime, "runtime-1_setup_input_path.sh"},
	{MarkerRuntime, "runtime-2_setup_assets.sh"},
	{MarkerRuntime, "runtime-3_run_example_using_dxrt.sh"},
	{MarkerRuntime, "runtime-clean.sh"},
}

// runtimeInstallScript is checked for existence and honors --exclude-fw.
const runtimeInstallScript = "runtime-0_install_dx-runtime.sh"

// GettingStarted runs the getting-started scripts on the host, in order.
func GettingStarted(env *Env) Suite {
	s := Suite{Name: GettingStartedSuite}
	dir := filepath.Join(env.Config.ProjectRoot, gettingStartedDir)
	for _, script := range gettingStartedScripts {
		file := filepath.Join(dir, script.name)
		s.Cases = append(s.Cases, Case{
			Name:    "getting-started/" + strings.TrimSuffix(script.name, ".sh"),
			Markers: []string{MarkerGettingStarted, script.marker},
			Run: func(ctx context.Context) error {
				cmd := []string{"bash", file}
				timeout := env.Config.Timeouts.Script.Duration()
				if script.name == runtimeInstallScript {
					if _, err := env.stat(file); err != nil {
						return fmt.Errorf("script not found: %s", file)
					}
					if env.Config.Install.ExcludeFW {
						cmd = append(cmd, "--exclude-fw")
					}
					timeout = env.Config.Timeouts.Install.Duration()
				}
				return env.run(ctx, "script failed: "+script.name, runner.Request{
					Command: cmd,
					Dir:     dir,
					Timeout: timeout,
					Mode:    env.mode(),
					Banner:  "Running script: " + script.name,
				})
			},
		})
	}
	return s
}
