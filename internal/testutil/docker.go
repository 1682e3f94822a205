// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// ContainerParallelEnv caps how many container-backed tests run at once.
const ContainerParallelEnv = "DXTEST_TEST_CONTAINER_PARALLEL"

// containerSlots is a process-wide semaphore for container-backed tests.
var containerSlots = sync.OnceValue(func() chan struct{} {
	return make(chan struct{}, containerParallelism())
})

func containerParallelism() int {
	if v := os.Getenv(ContainerParallelEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return min(runtime.GOMAXPROCS(0), 2)
}

// AcquireContainerSlot blocks until a container slot is free and releases it
// when the test finishes.
func AcquireContainerSlot(t testing.TB) {
	t.Helper()
	slots := containerSlots()
	slots <- struct{}{}
	t.Cleanup(func() { <-slots })
}

// SkipWithoutDocker skips t in -short mode, when the docker CLI is missing,
// or when no Docker daemon answers.
func SkipWithoutDocker(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container integration test in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker CLI not found")
	}
	if !dockerReachable() {
		t.Skip("docker daemon not reachable")
	}
}

// dockerReachable reports whether testcontainers can reach a Docker provider.
// The provider lookup panics on hosts without a socket.
func dockerReachable() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}
