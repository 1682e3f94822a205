// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package runner

import (
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

// ptyDetachGrace is how long runTTY waits for the reader after closing the
// master before it stops collecting.
const ptyDetachGrace = 200 * time.Millisecond

// ptyCollector echoes and accumulates terminal output until detached. Writes
// after detach are dropped so a reader still blocked on the master cannot
// touch a Result that has already been returned.
type ptyCollector struct {
	mu       sync.Mutex
	console  io.Writer
	out      strings.Builder
	detached bool
}

func (c *ptyCollector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.detached {
		c.out.Write(p)
		_, _ = c.console.Write(p)
	}
	return len(p), nil
}

func (c *ptyCollector) detach() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	return c.out.String()
}

// runTTY runs cmd on a pseudo-terminal. pty.Start makes the child a session
// leader, so killProcessGroup reaches everything it spawns. Reading the master
// normally ends with EIO once the last slave descriptor is closed. A
// descendant that moved to its own session can keep the slave open after the
// child is gone, so once the child has been reaped the reader gets waitDelay
// to drain before the master is closed under it.
func runTTY(cmd *exec.Cmd, console io.Writer, res *Result, waitDelay time.Duration) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return &StartError{Command: res.Command, Err: err}
	}
	var closeOnce sync.Once
	closeMaster := func() { closeOnce.Do(func() { _ = ptmx.Close() }) }
	defer closeMaster()

	collector := &ptyCollector{console: console}
	drained := make(chan struct{})
	go func() {
		_, _ = io.Copy(collector, ptmx)
		close(drained)
	}()

	// The pty holds no pipes of exec's own, so Wait returns as soon as the
	// child exits or is killed by cmd.Cancel on timeout.
	waitErr := cmd.Wait()

	select {
	case <-drained:
	case <-time.After(waitDelay):
		closeMaster()
		select {
		case <-drained:
		case <-time.After(ptyDetachGrace):
		}
	}
	res.Output = collector.detach()
	return waitErr
}
