// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"slices"
	"testing"
)

func TestCLI_ComposeBuildArgs(t *testing.T) {
	t.Parallel()
	cli := NewCLI(EngineTypeDocker)

	tests := []struct {
		name     string
		build    ComposeBuild
		expected []string
	}{
		{
			name:     "base file only",
			build:    ComposeBuild{Files: []string{"tests/docker/docker-compose.local.install.test.yml"}, Service: "dx-local-install-test"},
			expected: []string{"compose", "-f", "tests/docker/docker-compose.local.install.test.yml", "build", "dx-local-install-test"},
		},
		{
			name: "overlays and no-cache",
			build: ComposeBuild{
				Files:   []string{"base.yml", "docker/docker-compose.nvidia_gpu.yml", "docker/docker-compose.internal.yml"},
				Service: "svc",
				NoCache: true,
			},
			expected: []string{
				"compose", "-f", "base.yml", "-f", "docker/docker-compose.nvidia_gpu.yml",
				"-f", "docker/docker-compose.internal.yml", "build", "--no-cache", "svc",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := cli.ComposeBuildArgs(tt.build); !slices.Equal(got, tt.expected) {
				t.Errorf("ComposeBuildArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestComposeBuild_Validate(t *testing.T) {
	t.Parallel()
	if err := (ComposeBuild{Files: []string{"a.yml"}, Service: "svc"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (ComposeBuild{}).Validate(); err == nil {
		t.Error("Validate() = nil for empty build")
	}
}

func TestCLI_RunArgs(t *testing.T) {
	t.Parallel()
	cli := NewCLI(EngineTypeDocker)

	spec := RunSpec{
		Name:   "dx-local-install-test-dx-runtime-24-04",
		Image:  "dx-local-install-test-dx-runtime-ubuntu-24-04",
		Detach: true,
		Env: map[string]string{
			"DOCKER_VOLUME_PATH": "/deepx/workspace",
			"DEBIAN_FRONTEND":    "noninteractive",
		},
		Volumes: []VolumeMount{{HostPath: "/src/dx-all-suite", ContainerPath: "/deepx/workspace"}},
		Command: DefaultKeepAlive,
	}
	expected := []string{
		"run", "-d", "--name", "dx-local-install-test-dx-runtime-24-04",
		"-e", "DEBIAN_FRONTEND=noninteractive",
		"-e", "DOCKER_VOLUME_PATH=/deepx/workspace",
		"-v", "/src/dx-all-suite:/deepx/workspace",
		"dx-local-install-test-dx-runtime-ubuntu-24-04",
		"tail", "-f", "/dev/null",
	}
	if got := cli.RunArgs(spec); !slices.Equal(got, expected) {
		t.Errorf("RunArgs() =\n%v\nwant\n%v", got, expected)
	}

	minimal := cli.RunArgs(RunSpec{Image: "alpine", Remove: true, WorkDir: "/w"})
	if want := []string{"run", "--rm", "-w", "/w", "alpine"}; !slices.Equal(minimal, want) {
		t.Errorf("RunArgs(minimal) = %v, want %v", minimal, want)
	}
}

func TestRunSpec_Validate(t *testing.T) {
	t.Parallel()
	err := RunSpec{Volumes: []VolumeMount{{HostPath: "/a", ContainerPath: "rel"}}}.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	if !errors.Is(err, ErrInvalidVolumeMount) {
		t.Errorf("Validate() = %v, want ErrInvalidVolumeMount in chain", err)
	}
}

func TestCLI_ExecArgs(t *testing.T) {
	t.Parallel()
	cli := NewCLI(EngineTypePodman)

	got := cli.ExecArgs("box", ExecSpec{Interactive: true}, []string{"bash", "-lc", "test -f /x"})
	want := []string{"exec", "-i", "box", "bash", "-lc", "test -f /x"}
	if !slices.Equal(got, want) {
		t.Errorf("ExecArgs() = %v, want %v", got, want)
	}

	got = cli.ExecArgs("box", ExecSpec{TTY: true, WorkDir: "/deepx", Env: map[string]string{"B": "2", "A": "1"}}, []string{"ls"})
	want = []string{"exec", "-t", "-w", "/deepx", "-e", "A=1", "-e", "B=2", "box", "ls"}
	if !slices.Equal(got, want) {
		t.Errorf("ExecArgs() = %v, want %v", got, want)
	}
}

func TestCLI_QueryArgs(t *testing.T) {
	t.Parallel()
	docker := NewCLI(EngineTypeDocker)

	tests := []struct {
		name     string
		got      []string
		expected []string
	}{
		{"images", docker.ImageQueryArgs("img"), []string{"images", "-q", "img"}},
		{"inspect running", docker.InspectRunningArgs("c"), []string{"inspect", "-f", "{{.State.Running}}", "c"}},
		{"inspect", docker.InspectArgs("c"), []string{"inspect", "c"}},
		{"rm force", docker.RemoveArgs("c", true), []string{"rm", "-f", "c"}},
		{"rm", docker.RemoveArgs("c", false), []string{"rm", "c"}},
		{"compose version", docker.ComposeVersionArgs(), []string{"compose", "version"}},
		{"docker version", docker.VersionArgs(), []string{"--version"}},
		{"podman version", NewCLI(EngineTypePodman).VersionArgs(), []string{"--version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !slices.Equal(tt.got, tt.expected) {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestCLI_CommandDoesNotAlias(t *testing.T) {
	t.Parallel()
	cli := NewCLI(EngineTypeDocker)
	args := cli.ImageQueryArgs("img")
	cmd := cli.Command(args)
	cmd[1] = "mutated"

	if args[0] != "images" {
		t.Error("Command() aliases the caller's slice")
	}
	if want := []string{"docker", "mutated", "-q", "img"}; !slices.Equal(cmd, want) {
		t.Errorf("Command() = %v", cmd)
	}
}
