// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// defaultWaitDelay bounds how long Wait keeps copying output after the
// process is gone, in case a detached grandchild still holds the pipes.
const defaultWaitDelay = 5 * time.Second

type (
	// ExecCommandFunc creates the exec.Cmd for a request. Tests replace it to
	// re-exec the test binary as a fake child process.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures a Runner.
	Option func(*Runner)

	// Runner executes Requests. It holds no per-call state and is safe for
	// concurrent use by independent callers.
	Runner struct {
		console     io.Writer
		logger      *log.Logger
		execCommand ExecCommandFunc
		environ     func() []string
		waitDelay   time.Duration
	}
)

// WithConsole sets where live-mode output and banners are echoed.
func WithConsole(w io.Writer) Option {
	return func(r *Runner) {
		r.console = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithExecCommand replaces exec.CommandContext.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *Runner) {
		r.execCommand = fn
	}
}

// WithEnviron replaces os.Environ as the base environment.
func WithEnviron(fn func() []string) Option {
	return func(r *Runner) {
		r.environ = fn
	}
}

// WithWaitDelay sets exec.Cmd.WaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.waitDelay = d
	}
}

// New creates a Runner that echoes to os.Stdout and inherits os.Environ.
func New(opts ...Option) *Runner {
	r := &Runner{
		console:     os.Stdout,
		execCommand: exec.CommandContext,
		environ:     os.Environ,
		waitDelay:   defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "runner", Level: log.WarnLevel})
	}
	return r
}

// Execute runs req and blocks until the process exits, the timeout fires or
// ctx is cancelled.
func (r *Runner) Execute(ctx context.Context, req Request) (Result, error) {
	res := Result{Command: slices.Clone(req.Command)}
	if err := req.Validate(); err != nil {
		res.ExitCode = ExitCodeStartFailure
		return res, err
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := r.execCommand(runCtx, req.Command[0], req.Command[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = MergeEnv(r.environ(), req.Env)
	cmd.WaitDelay = r.waitDelay
	cmd.Cancel = func() error { return killProcessGroup(cmd) }

	console := r.consoleFor(req)
	if req.Mode == OutputLive && req.Banner != "" {
		writeBanner(console, req.Banner)
	}

	r.logger.Debug("exec", "cmd", FormatCommand(req.Command), "dir", req.Dir, "mode", req.Mode, "timeout", req.Timeout)

	start := time.Now()
	var err error
	switch {
	case req.Mode == OutputLive && req.TTY:
		err = runTTY(cmd, console, &res, r.waitDelay)
	case req.Mode == OutputLive:
		err = runLive(cmd, console, &res)
	default:
		err = runCaptured(cmd, &res)
	}
	res.Duration = time.Since(start)

	res, err = r.classify(ctx, runCtx, req, res, err)

	if req.Mode == OutputLive && req.Banner != "" {
		writeSummary(console, req.Banner, res)
	}
	return res, err
}

// classify turns the raw Wait error into the Result/error contract.
func (r *Runner) classify(parent, runCtx context.Context, req Request, res Result, err error) (Result, error) {
	if err == nil {
		res.ExitCode = 0
		return res, nil
	}

	var startErr *StartError
	if errors.As(err, &startErr) {
		res.ExitCode = ExitCodeStartFailure
		r.logger.Error("command could not be started", "cmd", FormatCommand(req.Command), "err", startErr.Err)
		return res, startErr
	}

	if runCtx.Err() != nil {
		if parent.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.ExitCode = ExitCodeTimeout
			res.TimedOut = true
			res.Output = appendNote(res.Output, fmt.Sprintf("[dxtest] command timed out after %s; process group killed", req.Timeout))
			r.logger.Warn("command timed out", "cmd", FormatCommand(req.Command), "timeout", req.Timeout)
			return res, &TimeoutError{Command: res.Command, Timeout: req.Timeout}
		}
		res.ExitCode = ExitCodeCanceled
		res.Output = appendNote(res.Output, "[dxtest] command canceled; process group killed")
		return res, fmt.Errorf("%s canceled: %w", FormatCommand(req.Command), parent.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitStatus(exitErr)
		r.logger.Debug("command exited", "cmd", FormatCommand(req.Command), "exit", res.ExitCode)
		return res, nil
	}

	// I/O failure while collecting output; the exit status is unknown.
	res.ExitCode = 1
	return res, fmt.Errorf("wait for %s: %w", FormatCommand(req.Command), err)
}

func (r *Runner) consoleFor(req Request) io.Writer {
	if req.Console != nil {
		return req.Console
	}
	if r.console == nil {
		return io.Discard
	}
	return r.console
}

func runCaptured(cmd *exec.Cmd, res *Result) error {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return &StartError{Command: res.Command, Err: err}
	}
	err := wait(cmd)

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Output = JoinStreams(res.Stdout, res.Stderr)
	return err
}

func runLive(cmd *exec.Cmd, console io.Writer, res *Result) error {
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return &StartError{Command: res.Command, Err: err}
	}

	waitErr := make(chan error, 1)
	go func() {
		err := wait(cmd)
		_ = pw.Close()
		waitErr <- err
	}()

	var out strings.Builder
	streamLines(pr, console, &out)
	res.Output = out.String()
	return <-waitErr
}

// wait is cmd.Wait, except that a clean exit whose output was still held open
// by a detached descendant when WaitDelay expired counts as a clean exit. A
// non-zero exit is already reported as an *exec.ExitError.
func wait(cmd *exec.Cmd) error {
	err := cmd.Wait()
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		return nil
	}
	return err
}

// streamLines copies r to console line by line, keeping a verbatim copy in acc.
// It returns at EOF or on the first read error.
func streamLines(r io.Reader, console io.Writer, acc *strings.Builder) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			acc.WriteString(line)
			_, _ = io.WriteString(console, line)
		}
		if err != nil {
			return
		}
	}
}

func appendNote(output, note string) string {
	if output != "" && !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	return output + note + "\n"
}
