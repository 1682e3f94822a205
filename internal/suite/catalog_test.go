// SPDX-License-Identifier: MPL-2.0

package suite

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"dxtest-cli/internal/config"
	"dxtest-cli/internal/container"
	"dxtest-cli/internal/provision"
	"dxtest-cli/internal/report"
	"dxtest-cli/internal/runner"
	"dxtest-cli/internal/testutil"

	"github.com/charmbracelet/log"
)

func newTestEnv(t *testing.T) (*Env, *runner.FakeExecutor) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ProjectRoot = t.TempDir()
	cfg.Volumes.Local = cfg.ProjectRoot

	fake := runner.NewFakeExecutor()
	cli := container.NewCLI(container.EngineTypeDocker)
	logger := log.New(io.Discard)
	return &Env{
		Config:      cfg,
		Exec:        fake,
		CLI:         cli,
		Provisioner: provision.New(fake, cli, provision.WithLogger(logger)),
		Logger:      logger,
		Console:     io.Discard,
	}, fake
}

func findCase(t *testing.T, s Suite, name string) Case {
	t.Helper()
	for _, c := range s.Cases {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("case %s not in suite %s", name, s.Name)
	return Case{}
}

func TestSanity(t *testing.T) {
	t.Parallel()
	env, fake := newTestEnv(t)
	for _, dir := range essentialDirs {
		testutil.MustMkdirAll(t, filepath.Join(env.Config.ProjectRoot, dir))
	}
	fake.SetResponse("docker compose version", runner.Result{ExitCode: 127, Output: "docker: 'compose' is not a docker command.\n"}, nil)

	sum := Run(context.Background(), Sanity(env), Filter{}, quiet())

	if first := fake.Calls()[0].Command; !slices.Equal(first, []string{"docker", "--version"}) {
		t.Errorf("engine check = %q, want the client-only docker --version", first)
	}

	want := map[string]report.Status{
		"sanity/engine-version":      report.StatusPassed,
		"sanity/compose-version":     report.StatusFailed,
		"sanity/project-structure":   report.StatusPassed,
		"sanity/docker-build-script": report.StatusFailed,
	}
	for _, o := range sum.Outcomes {
		if o.Status != want[o.Name] {
			t.Errorf("%s = %s, want %s (%s)", o.Name, o.Status, want[o.Name], o.Message)
		}
	}
	if !strings.Contains(sum.Outcomes[1].Message, "is not a docker command") {
		t.Errorf("compose failure lacks output: %q", sum.Outcomes[1].Message)
	}
}

func TestDockerBuildCommand(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	cfg.ProjectRoot = "/src/dx-all-suite"
	id := provision.Identity{Component: ComponentModelZoo, OS: provision.OSDebian, Version: "13"}

	want := []string{"/src/dx-all-suite/docker_build.sh", "--target=dx-modelzoo", "--debian_version=13"}
	if got := DockerBuildCommand(cfg, id); !slices.Equal(got, want) {
		t.Errorf("DockerBuildCommand() = %q, want %q", got, want)
	}
	cfg.Build.Internal = true
	if got := DockerBuildCommand(cfg, id); got[len(got)-1] != "--internal" {
		t.Errorf("DockerBuildCommand(internal) = %q", got)
	}
}

func TestDockerBuild_FailureExcerpt(t *testing.T) {
	t.Parallel()
	env, fake := newTestEnv(t)
	env.Config.Credentials.Username = "ci"
	fake.SetFallback(runner.Result{ExitCode: 1, Output: "#5 [2/9] RUN apt-get update\nE: cannot reach mirror\nERROR: process did not complete\n"}, nil)

	s := DockerBuild(env)
	if len(s.Cases) != 15 {
		t.Fatalf("len(Cases) = %d, want 15", len(s.Cases))
	}
	c := findCase(t, s, "docker-build/dx-runtime-ubuntu-18.04")
	err := c.Run(context.Background())

	var f *report.Failure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *report.Failure", err)
	}
	if !strings.Contains(f.Error(), "DOCKER BUILD FAILED: DX-RUNTIME ON UBUNTU:18.04") || !slices.Contains(f.Excerpt, "ERROR: process did not complete") {
		t.Errorf("failure = %s", f.Error())
	}

	req := fake.Calls()[0]
	if req.Dir != env.Config.ProjectRoot || req.Env["DX_USERNAME"] != "ci" || req.Timeout != env.Config.Timeouts.Build.Duration() {
		t.Errorf("request = %+v", req)
	}
}

func TestInstallScript(t *testing.T) {
	t.Parallel()
	runtime := provision.Identity{Component: ComponentRuntime, OS: provision.OSUbuntu, Version: "22.04"}
	compiler := provision.Identity{Component: ComponentCompiler, OS: provision.OSUbuntu, Version: "22.04"}

	got := InstallScript(runtime, "/deepx/workspace", true)
	want := "set -e; if [ -f /deepx/workspace/dx-runtime/install.sh ]; then cd /deepx/workspace; " +
		"else echo 'dx-runtime install.sh not found in container'; exit 2; fi; " +
		"./dx-runtime/install.sh --all --sanity-check=n --exclude-driver --exclude-fw"
	if got != want {
		t.Errorf("InstallScript(runtime) =\n%s\nwant\n%s", got, want)
	}
	if got := InstallScript(compiler, "/deepx/workspace/dx-all-suite", true); !strings.HasSuffix(got, "; ./dx-compiler/install.sh") ||
		!strings.Contains(got, "cd /deepx/workspace/dx-all-suite;") {
		t.Errorf("InstallScript(compiler) = %s", got)
	}
}

func TestLocalInstall_ContainerNotRunning(t *testing.T) {
	t.Parallel()
	env, fake := newTestEnv(t)

	c := findCase(t, LocalInstall(env), "local-install/dx-compiler-ubuntu-24.04/install")
	err := c.Run(context.Background())
	if !errors.Is(err, provision.ErrContainerNotRunning) {
		t.Fatalf("err = %v, want ErrContainerNotRunning", err)
	}
	if fake.Count("docker exec") != 0 {
		t.Error("exec ran against a stopped container")
	}
}

func TestLocalInstall_RuntimeInstallsHostFirst(t *testing.T) {
	t.Parallel()
	env, fake := newTestEnv(t)
	env.Config.Install.ExcludeFW = true
	fake.Handler = func(req runner.Request) (runner.Result, bool, error) {
		if len(req.Command) > 2 && req.Command[1] == "inspect" && req.Command[2] == "-f" {
			return runner.Result{Stdout: "true\n"}, true, nil
		}
		return runner.Result{}, false, nil
	}

	c := findCase(t, LocalInstall(env), "local-install/dx-runtime-debian-12/install")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("install case: %v", err)
	}

	var host [][]string
	var last runner.Request
	for _, req := range fake.Calls() {
		if req.Command[0] == "./dx-runtime/install.sh" {
			host = append(host, req.Command)
			if req.Dir != env.Config.ProjectRoot {
				t.Errorf("host install Dir = %q", req.Dir)
			}
		}
		last = req
	}
	if len(host) != 2 || host[0][1] != "--target=dx_rt_npu_linux_driver" || host[1][1] != "--target=dx_rt" {
		t.Errorf("host installs = %q", host)
	}
	script := last.Command[len(last.Command)-1]
	if last.Command[1] != "exec" || !strings.HasSuffix(script, "--exclude-driver --exclude-fw") {
		t.Errorf("final command = %q", last.Command)
	}
	if last.Timeout != env.Config.Timeouts.Install.Duration() {
		t.Errorf("install Timeout = %s", last.Timeout)
	}
}

func TestLocalInstall_CaseLayout(t *testing.T) {
	t.Parallel()
	env, _ := newTestEnv(t)
	s := LocalInstall(env)
	if len(s.Cases) != 45 {
		t.Fatalf("len(Cases) = %d, want 45", len(s.Cases))
	}
	got := []string{s.Cases[0].Name, s.Cases[1].Name, s.Cases[2].Name}
	want := []string{
		"local-install/dx-compiler-ubuntu-24.04/image",
		"local-install/dx-compiler-ubuntu-24.04/container",
		"local-install/dx-compiler-ubuntu-24.04/install",
	}
	if !slices.Equal(got, want) {
		t.Errorf("first cases = %q", got)
	}
}

func TestGettingStarted(t *testing.T) {
	t.Parallel()
	env, fake := newTestEnv(t)
	env.Config.Install.ExcludeFW = true
	s := GettingStarted(env)

	if len(s.Cases) != 11 || len(s.Select(Filter{Markers: []string{MarkerCompiler}})) != 6 {
		t.Fatalf("cases = %d", len(s.Cases))
	}

	install := findCase(t, s, "getting-started/runtime-0_install_dx-runtime")
	if err := install.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "script not found") {
		t.Fatalf("missing script err = %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Error("missing script was executed")
	}

	dir := filepath.Join(env.Config.ProjectRoot, gettingStartedDir)
	testutil.MustWriteScript(t, filepath.Join(dir, runtimeInstallScript), "")
	if err := install.Run(context.Background()); err != nil {
		t.Fatalf("install script: %v", err)
	}
	req := fake.Calls()[0]
	want := []string{"bash", filepath.Join(dir, runtimeInstallScript), "--exclude-fw"}
	if !slices.Equal(req.Command, want) || req.Dir != dir || req.Banner != "Running script: "+runtimeInstallScript {
		t.Errorf("request = %+v", req)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	env, _ := newTestEnv(t)
	if s, err := Lookup(env, LocalInstallSuite); err != nil || s.Name != LocalInstallSuite {
		t.Errorf("Lookup(local-install) = %v, %v", s.Name, err)
	}
	if _, err := Lookup(env, "nope"); !errors.Is(err, ErrUnknownSuite) {
		t.Errorf("Lookup(nope) = %v", err)
	}
}
