// Package task runs external programs as isolated pipeline stages.
//
// A Command is always spawned from a discrete argument list, never through a
// shell. The Runner captures exit status and both output streams, and bounds
// the run with an optional timeout.
//
//	res, err := task.NewRunner().Run(ctx, task.Command{
//	    Path:    "mashup",
//	    Args:    []string{"Adele", "12", "30", "mashup_1a2b3c4d.mp3"},
//	    Timeout: 15 * time.Minute,
//	})
//	var exitErr *task.ExitError
//	if errors.As(err, &exitErr) {
//	    fmt.Println(exitErr.Result.Diagnostics())
//	}
package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultMaxOutput is the number of trailing bytes kept from each stream.
const DefaultMaxOutput = 64 * 1024

// ErrTimeout is returned when a command outlives its Timeout.
var ErrTimeout = errors.New("task timed out")

// Command describes one process invocation.
type Command struct {
	// Path is the program to run, looked up in PATH when it has no separator.
	Path string

	// Args are passed verbatim, one argv entry each.
	Args []string

	// Dir is the working directory. Empty uses the current one.
	Dir string

	// Env entries ("KEY=value") are added on top of the current environment.
	Env []string

	// Timeout bounds the run. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// String renders the command for logs.
func (c Command) String() string {
	parts := append([]string{filepath.Base(c.Path)}, c.Args...)
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\"'") {
			parts[i] = fmt.Sprintf("%q", p)
		}
	}
	return strings.Join(parts, " ")
}

// Result is what a finished process left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

// Diagnostics returns stderr, falling back to stdout when stderr is empty.
func (r *Result) Diagnostics() string {
	if r == nil {
		return ""
	}
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Command string
	Result  *Result
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Result.ExitCode)
}

// Runner spawns commands.
type Runner struct {
	// MaxOutput caps how much of each stream is kept. Zero uses DefaultMaxOutput.
	MaxOutput int

	// KillGrace is how long a cancelled process may take to exit after it
	// was interrupted before it is killed.
	KillGrace time.Duration
}

// NewRunner creates a Runner with default limits.
func NewRunner() *Runner {
	return &Runner{MaxOutput: DefaultMaxOutput, KillGrace: 5 * time.Second}
}

// Run executes cmd and waits for it.
//
// A Result is returned whenever the process started, even on failure.
// Errors:
//   - *ExitError when the process exits non-zero
//   - ErrTimeout when cmd.Timeout elapses
//   - ctx.Err() when the parent context is cancelled
//   - a wrapped start error when the program cannot be launched
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Path == "" {
		return nil, errors.New("task: empty command path")
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := &tailBuffer{max: limit}
	stderr := &tailBuffer{max: limit}

	c := exec.CommandContext(runCtx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = stdout
	c.Stderr = stderr
	c.Cancel = func() error { return interrupt(c.Process) }
	c.WaitDelay = r.KillGrace
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%s after %s: %w", cmd, cmd.Timeout, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Command: cmd.String(), Result: res}
	}
	if c.ProcessState == nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	return res, err
}

// interrupt asks p to stop so it can run its own cleanup. The process is
// killed once the Runner's KillGrace expires. Windows has no interrupt
// signal for child processes, so it is killed right away there.
func interrupt(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= b.max {
		b.buf.Reset()
		b.buf.Write(p[len(p)-b.max:])
		return n, nil
	}
	if over := b.buf.Len() + len(p) - b.max; over > 0 {
		b.buf.Next(over)
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) String() string {
	return b.buf.String()
}
