// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// helperCommand re-executes the test binary as a fake child process. The
// arguments after the name are interpreted by TestHelperProcess.
func helperCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	//nolint:gosec // test-only re-exec of the test binary
	return exec.CommandContext(ctx, os.Args[0], cs...)
}

func helperEnviron(extra ...string) func() []string {
	return func() []string {
		env := append([]string{}, os.Environ()...)
		env = append(env, "GO_WANT_HELPER_PROCESS=1")
		return append(env, extra...)
	}
}

func newTestRunner(opts ...Option) *Runner {
	base := []Option{
		WithConsole(io.Discard),
		WithLogger(log.New(io.Discard)),
		WithWaitDelay(time.Second),
	}
	return New(append(base, opts...)...)
}

func newHelperRunner(t *testing.T, extraEnv ...string) *Runner {
	t.Helper()
	return newTestRunner(WithExecCommand(helperCommand), WithEnviron(helperEnviron(extraEnv...)))
}

// TestHelperProcess is the fake child. Each argument is an operation:
//
//	out:<text>   write text and a newline to stdout
//	err:<text>   write text and a newline to stderr
//	env:<KEY>    write KEY=<value> to stdout
//	exit:<n>     exit with status n
//
// It is not a real test and returns immediately unless GO_WANT_HELPER_PROCESS=1.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "helper: missing command")
		os.Exit(2)
	}

	for _, op := range args[2:] {
		verb, arg, _ := strings.Cut(op, ":")
		switch verb {
		case "out":
			fmt.Fprintln(os.Stdout, arg)
		case "err":
			fmt.Fprintln(os.Stderr, arg)
		case "env":
			fmt.Fprintf(os.Stdout, "%s=%s\n", arg, os.Getenv(arg))
		case "exit":
			code, _ := strconv.Atoi(arg)
			os.Exit(code)
		default:
			fmt.Fprintf(os.Stderr, "helper: unknown op %q\n", op)
			os.Exit(2)
		}
	}
	os.Exit(0)
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
}

func TestExecute_CapturedSuccess(t *testing.T) {
	r := newHelperRunner(t)

	res, err := r.Execute(context.Background(), Request{
		Command: []string{"fake", "out:hello"},
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.ExitCode != 0 || !res.Success() {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Output != "hello\n" {
		t.Errorf("Output = %q, want %q", res.Output, "hello\n")
	}
	if res.Stdout != "hello\n" || res.Stderr != "" {
		t.Errorf("Stdout = %q, Stderr = %q", res.Stdout, res.Stderr)
	}
	if strings.Contains(res.Output, StreamSeparator) {
		t.Error("separator must not appear when stderr is empty")
	}
	if len(res.Command) != 2 || res.Command[0] != "fake" {
		t.Errorf("Command = %v, want echoed argv", res.Command)
	}
}

func TestExecute_CapturedNonZeroExit(t *testing.T) {
	r := newHelperRunner(t)

	res, err := r.Execute(context.Background(), Request{
		Command: []string{"fake", "out:partial", "err:boom: disk full", "exit:7"},
	})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", res.ExitCode)
	}
	if res.Success() {
		t.Error("Success() = true for exit 7")
	}
	if !strings.Contains(res.Output, "boom: disk full") {
		t.Errorf("Output missing stderr text: %q", res.Output)
	}
	want := "partial\n" + StreamSeparator + "\nboom: disk full\n"
	if res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}
}

func TestExecute_StderrOnly(t *testing.T) {
	r := newHelperRunner(t)

	res, err := r.Execute(context.Background(), Request{Command: []string{"fake", "err:only-err", "exit:3"}})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Output != "only-err\n" {
		t.Errorf("Output = %q, want stderr verbatim", res.Output)
	}
}

func TestExecute_EnvOverridesWin(t *testing.T) {
	r := newHelperRunner(t, "DX_SAMPLE=base", "DX_KEEP=kept")

	res, err := r.Execute(context.Background(), Request{
		Command: []string{"fake", "env:DX_SAMPLE", "env:DX_KEEP", "env:DX_NEW"},
		Env:     map[string]string{"DX_SAMPLE": "override", "DX_NEW": "fresh"},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	for _, want := range []string{"DX_SAMPLE=override", "DX_KEEP=kept", "DX_NEW=fresh"} {
		if !strings.Contains(res.Stdout, want) {
			t.Errorf("stdout missing %q: %q", want, res.Stdout)
		}
	}
}

func TestExecute_LiveEchoesAndCollects(t *testing.T) {
	r := newHelperRunner(t)
	var console bytes.Buffer

	res, err := r.Execute(context.Background(), Request{
		Command: []string{"fake", "out:line one", "err:line two", "exit:4"},
		Mode:    OutputLive,
		Console: &console,
		Banner:  "Installing dx-runtime",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.ExitCode != 4 {
		t.Errorf("ExitCode = %d, want 4", res.ExitCode)
	}
	for _, want := range []string{"line one\n", "line two\n"} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("Output missing %q: %q", want, res.Output)
		}
		if !strings.Contains(console.String(), want) {
			t.Errorf("console missing %q: %q", want, console.String())
		}
	}
	if res.Stdout != "" || res.Stderr != "" {
		t.Errorf("live mode must leave Stdout/Stderr empty, got %q / %q", res.Stdout, res.Stderr)
	}
	if strings.Contains(res.Output, "Installing dx-runtime") {
		t.Error("banner text leaked into Output")
	}
	if !strings.Contains(console.String(), "Installing dx-runtime") || !strings.Contains(console.String(), "exit code: 4") {
		t.Errorf("console missing banner or summary: %q", console.String())
	}
}

func TestExecute_LiveDiscardConsole(t *testing.T) {
	var runnerConsole bytes.Buffer
	r := newTestRunner(WithExecCommand(helperCommand), WithEnviron(helperEnviron()), WithConsole(&runnerConsole))

	res, err := r.Execute(context.Background(), Request{
		Command: []string{"fake", "out:quiet"},
		Mode:    OutputLive,
		Console: io.Discard,
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Output != "quiet\n" {
		t.Errorf("Output = %q", res.Output)
	}
	if runnerConsole.Len() != 0 {
		t.Errorf("request console must replace runner console, got %q", runnerConsole.String())
	}
}

func TestExecute_StartFailure(t *testing.T) {
	r := newTestRunner()

	res, err := r.Execute(context.Background(), Request{Command: []string{"dxtest-definitely-missing-binary"}})
	if !errors.Is(err, ErrStartFailure) {
		t.Fatalf("err = %v, want ErrStartFailure", err)
	}
	var se *StartError
	if !errors.As(err, &se) {
		t.Fatalf("err is not *StartError: %T", err)
	}
	if res.ExitCode != ExitCodeStartFailure {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, ExitCodeStartFailure)
	}
}

func TestExecute_MissingWorkingDirectory(t *testing.T) {
	skipWithoutShell(t)
	r := newTestRunner()

	_, err := r.Execute(context.Background(), Request{
		Command: []string{"sh", "-c", "true"},
		Dir:     filepath.Join(t.TempDir(), "does-not-exist"),
	})
	if !errors.Is(err, ErrStartFailure) {
		t.Fatalf("err = %v, want ErrStartFailure", err)
	}
}

func TestExecute_InvalidRequest(t *testing.T) {
	r := newTestRunner()

	tests := []struct {
		name string
		req  Request
	}{
		{"empty command", Request{}},
		{"empty executable", Request{Command: []string{""}}},
		{"negative timeout", Request{Command: []string{"true"}, Timeout: -time.Second}},
		{"unknown mode", Request{Command: []string{"true"}, Mode: OutputMode(9)}},
		{"tty without live", Request{Command: []string{"true"}, TTY: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Execute(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
			if res.ExitCode != ExitCodeStartFailure {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, ExitCodeStartFailure)
			}
		})
	}
}

func TestExecute_ShellExitAndStderr(t *testing.T) {
	skipWithoutShell(t)
	r := newTestRunner()

	res, err := r.Execute(context.Background(), Request{
		Command: []string{"sh", "-c", "echo building; echo 'ERROR: missing header' >&2; exit 7"},
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", res.ExitCode)
	}
	if !strings.Contains(res.Output, "ERROR: missing header") {
		t.Errorf("Output missing stderr: %q", res.Output)
	}
}

func TestExecute_Timeout(t *testing.T) {
	skipWithoutShell(t)
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}
	r := newTestRunner()

	for _, mode := range []OutputMode{OutputCaptured, OutputLive} {
		t.Run(mode.String(), func(t *testing.T) {
			start := time.Now()
			res, err := r.Execute(context.Background(), Request{
				Command: []string{"sh", "-c", "echo started; sleep 10"},
				Timeout: time.Second,
				Mode:    mode,
			})
			elapsed := time.Since(start)

			if !errors.Is(err, ErrTimeout) {
				t.Fatalf("err = %v, want ErrTimeout", err)
			}
			if res.ExitCode != ExitCodeTimeout || !res.TimedOut {
				t.Errorf("ExitCode = %d TimedOut = %v, want timeout result", res.ExitCode, res.TimedOut)
			}
			if !strings.Contains(res.Output, "started") {
				t.Errorf("output before the timeout was lost: %q", res.Output)
			}
			if !strings.Contains(res.Output, "timed out after 1s") {
				t.Errorf("Output missing timeout note: %q", res.Output)
			}
			if elapsed > 8*time.Second {
				t.Errorf("Execute took %s, the process was not killed promptly", elapsed)
			}
		})
	}
}

func TestExecute_TimeoutKillsProcessGroup(t *testing.T) {
	skipWithoutShell(t)
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}
	r := newTestRunner()
	pidFile := filepath.Join(t.TempDir(), "grandchild.pid")

	_, err := r.Execute(context.Background(), Request{
		Command: []string{"sh", "-c", fmt.Sprintf("sleep 10 & echo $! > %s; wait", QuoteArg(pidFile))},
		Timeout: time.Second,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse pid %q: %v", data, err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			_ = unix.Kill(pid, unix.SIGKILL)
			t.Fatalf("grandchild %d survived the timeout", pid)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// processAlive treats zombies as dead: they have exited and only wait to be reaped.
func processAlive(pid int) bool {
	if err := unix.Kill(pid, 0); errors.Is(err, unix.ESRCH) {
		return false
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return !os.IsNotExist(err)
	}
	// Format: pid (comm) state ...
	if i := strings.LastIndexByte(string(stat), ')'); i >= 0 && i+2 < len(stat) {
		return stat[i+2] != 'Z'
	}
	return true
}

func TestExecute_ParentCancel(t *testing.T) {
	skipWithoutShell(t)
	r := newTestRunner()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	res, err := r.Execute(ctx, Request{Command: []string{"sh", "-c", "sleep 10"}, Timeout: time.Minute})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("cancellation must not be reported as a timeout")
	}
	if res.ExitCode != ExitCodeCanceled || res.TimedOut {
		t.Errorf("ExitCode = %d TimedOut = %v", res.ExitCode, res.TimedOut)
	}
}

func TestExecute_TTY(t *testing.T) {
	skipWithoutShell(t)
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	_ = ptmx.Close()
	_ = tty.Close()

	r := newTestRunner()
	res, err := r.Execute(context.Background(), Request{
		Command: []string{"sh", "-c", "if [ -t 1 ]; then echo on-a-tty; fi; exit 5"},
		Mode:    OutputLive,
		TTY:     true,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.ExitCode != 5 {
		t.Errorf("ExitCode = %d, want 5", res.ExitCode)
	}
	if !strings.Contains(res.Output, "on-a-tty") {
		t.Errorf("Output = %q, want the child to see a terminal", res.Output)
	}
}

func skipWithoutSetsid(t *testing.T) {
	t.Helper()
	skipWithoutShell(t)
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
}

// killFromPIDFile reaps a descendant that left the child's process group.
func killFromPIDFile(t *testing.T, pidFile string) {
	t.Helper()
	t.Cleanup(func() {
		data, err := os.ReadFile(pidFile)
		if err != nil {
			return
		}
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			_ = unix.Kill(pid, unix.SIGKILL)
		}
	})
}

func TestExecute_DetachedDescendantKeepsCleanExit(t *testing.T) {
	skipWithoutSetsid(t)
	r := newTestRunner(WithWaitDelay(300 * time.Millisecond))

	for _, mode := range []OutputMode{OutputCaptured, OutputLive} {
		t.Run(mode.String(), func(t *testing.T) {
			pidFile := filepath.Join(t.TempDir(), "daemon.pid")
			killFromPIDFile(t, pidFile)

			res, err := r.Execute(context.Background(), Request{
				Command: []string{"sh", "-c", fmt.Sprintf("setsid sleep 30 & echo $! > %s; echo done", QuoteArg(pidFile))},
				Timeout: 30 * time.Second,
				Mode:    mode,
			})
			if err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			if res.ExitCode != 0 || res.TimedOut {
				t.Errorf("ExitCode = %d TimedOut = %v, want a clean exit", res.ExitCode, res.TimedOut)
			}
			if !strings.Contains(res.Output, "done") {
				t.Errorf("Output = %q", res.Output)
			}
		})
	}
}

func TestExecute_DetachedDescendantFailureKeepsStatus(t *testing.T) {
	skipWithoutSetsid(t)
	r := newTestRunner(WithWaitDelay(300 * time.Millisecond))
	pidFile := filepath.Join(t.TempDir(), "daemon.pid")
	killFromPIDFile(t, pidFile)

	res, err := r.Execute(context.Background(), Request{
		Command: []string{"sh", "-c", fmt.Sprintf("setsid sleep 30 & echo $! > %s; exit 4", QuoteArg(pidFile))},
		Timeout: 30 * time.Second,
	})
	if err != nil || res.ExitCode != 4 {
		t.Errorf("Execute() = exit %d, %v, want exit 4 and no error", res.ExitCode, err)
	}
}

func TestExecute_TTYTimeoutWithDetachedDescendant(t *testing.T) {
	skipWithoutSetsid(t)
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	_ = ptmx.Close()
	_ = tty.Close()

	r := newTestRunner(WithWaitDelay(300 * time.Millisecond))
	pidFile := filepath.Join(t.TempDir(), "daemon.pid")
	killFromPIDFile(t, pidFile)

	start := time.Now()
	res, err := r.Execute(context.Background(), Request{
		Command: []string{"sh", "-c", fmt.Sprintf("setsid sleep 20 & echo $! > %s; echo started; sleep 30", QuoteArg(pidFile))},
		Mode:    OutputLive,
		TTY:     true,
		Timeout: time.Second,
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) || !res.TimedOut || res.ExitCode != ExitCodeTimeout {
		t.Fatalf("Execute() = %+v, %v, want a timeout result", res, err)
	}
	if !strings.Contains(res.Output, "started") {
		t.Errorf("output before the timeout was lost: %q", res.Output)
	}
	if elapsed > 6*time.Second {
		t.Errorf("Execute took %s, the terminal reader outlived the timeout", elapsed)
	}
}
