// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies an entry in the issue catalog.
type Id int

const (
	EngineNotFoundId Id = iota + 1
	ImageBuildFailedId
	ContainerStartFailedId
	ContainerNotRunningId
	WorkspaceNotMountedId
	ScriptNotFoundId
	InstallFailedId
	CommandTimedOutId
	ConfigLoadFailedId
	CredentialsMissingId
)

type (
	// MarkdownMsg is Markdown text rendered for the user.
	MarkdownMsg string

	// HttpLink is an external documentation link.
	HttpLink string

	// Issue is a catalog entry with Markdown guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

// Id returns the catalog id.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw Markdown guidance.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Markdown returns the guidance plus a "See also" section when links exist.
func (i *Issue) Markdown() string {
	var b strings.Builder
	b.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		b.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			b.WriteString("- <")
			b.WriteString(string(link))
			b.WriteString(">\n")
		}
	}
	return b.String()
}

// Render renders the guidance with glamour using the given style ("dark",
// "light", "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

// Get returns the issue for id, or nil if unknown.
func Get(id Id) *Issue {
	return issues[id]
}

// Ids returns all catalog ids in ascending order.
func Ids() []Id {
	ids := make([]Id, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

var (
	render = glamour.Render

	issues = map[Id]*Issue{
		EngineNotFoundId: {
			id: EngineNotFoundId,
			mdMsg: `
# Container engine not found!

The harness drives images and containers through the ` + "`docker`" + ` (or ` + "`podman`" + `) CLI,
and neither binary could be used.

## Things you can try:
- Check the engine is installed and the daemon is running:
~~~
$ docker --version
$ docker compose version
~~~
- Select a different engine:
~~~
$ DX_TEST_ENGINE=podman dxtest suite run sanity
~~~`,
			docLinks: []HttpLink{"https://docs.docker.com/get-docker/"},
		},
		ImageBuildFailedId: {
			id: ImageBuildFailedId,
			mdMsg: `
# Image build failed!

` + "`docker compose build`" + ` exited with a non-zero status. The excerpt above shows
the last lines of the build log.

## Things you can try:
- Rebuild without the layer cache:
~~~
$ DX_TEST_NO_CACHE=1 dxtest image ensure <component> <os> <version>
~~~
- Re-run with ` + "`--verbose`" + ` to stream the build live
- Check the optional overlays (` + "`DX_TEST_NVIDIA_GPU`" + `, ` + "`DX_TEST_INTERNAL`" + `) match this host`,
		},
		ContainerStartFailedId: {
			id: ContainerStartFailedId,
			mdMsg: `
# Container failed to start!

The image exists but ` + "`docker run`" + ` did not leave a running container behind.

## Things you can try:
- Inspect the container logs:
~~~
$ docker logs <container>
~~~
- Remove the stale container and retry:
~~~
$ docker rm -f <container>
~~~`,
		},
		ContainerNotRunningId: {
			id: ContainerNotRunningId,
			mdMsg: `
# Container is not running!

Commands are only executed in a container that is already running. Starting it
is an explicit step.

## Things you can try:
~~~
$ dxtest container ensure <component> <os> <version>
~~~`,
		},
		WorkspaceNotMountedId: {
			id: WorkspaceNotMountedId,
			mdMsg: `
# Workspace is not mounted in the container!

The component's ` + "`install.sh`" + ` was not found under the mounted workspace.

## Things you can try:
- Point ` + "`LOCAL_VOLUME_PATH`" + ` at the repository root and recreate the container:
~~~
$ docker rm -f <container>
$ LOCAL_VOLUME_PATH=$PWD dxtest container ensure <component> <os> <version>
~~~`,
		},
		ScriptNotFoundId: {
			id: ScriptNotFoundId,
			mdMsg: `
# Script not found!

The getting-started or install script the case needs does not exist.

## Things you can try:
- Run from the repository root, or pass ` + "`--project-root`" + `
- Check the submodules are checked out:
~~~
$ git submodule update --init --recursive
~~~`,
		},
		InstallFailedId: {
			id: InstallFailedId,
			mdMsg: `
# Installation failed!

The install script exited with a non-zero status. Only its exit code decides
success; the excerpt above is for diagnosis.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to stream the installer output
- Skip the firmware step on hosts without a device: ` + "`DX_EXCLUDE_FW=1`",
		},
		CommandTimedOutId: {
			id: CommandTimedOutId,
			mdMsg: `
# Command timed out!

The process exceeded its time budget and its whole process group was killed.

## Things you can try:
- Raise the script budget (seconds):
~~~
$ DX_TEST_GETTING_STARTED_TIMEOUT=7200 dxtest suite run getting-started
~~~
- Check for prompts waiting on stdin`,
		},
		ConfigLoadFailedId: {
			id: ConfigLoadFailedId,
			mdMsg: `
# Failed to load configuration!

The harness reads ` + "`dxtest.cue`" + ` from the project root (or ` + "`--config`" + `) and the ` + "`DX_*`" + `
environment variables. Every value has a default, so the file is optional.

## Example configuration:
~~~cue
container_engine: "docker"
verbose: false
timeouts: {
	script: 3600
	build:  1800
}
build: {
	nvidia_gpu: false
	no_cache:   false
}
~~~`,
		},
		CredentialsMissingId: {
			id: CredentialsMissingId,
			mdMsg: `
# Download credentials are not set!

Some builds download SDK archives and need ` + "`DX_USERNAME`" + ` and ` + "`DX_PASSWORD`" + `.

## Things you can try:
~~~
$ export DX_USERNAME=... DX_PASSWORD=...
~~~`,
		},
	}
)
