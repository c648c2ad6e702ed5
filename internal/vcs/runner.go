// Package vcs executes version-control commands with argument vectors and
// captured output. Commands are never joined into shell strings; the argv
// form is the injection-safety property the rest of accord relies on.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"accord/internal/logging"
)

// ErrOperation marks a failed version-control command: non-zero exit,
// missing binary, or a killed process. Callers check it with errors.Is.
var ErrOperation = errors.New("vcs operation failed")

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "git", "gh").
	Binary string

	// Args are the command-line arguments.
	Args []string

	// Dir is the directory to execute in.
	Dir string

	// Stdin provides input to the command's standard input.
	Stdin string

	// Timeout bounds the execution; zero means the runner default.
	Timeout time.Duration
}

// String returns the full command for display and logging.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Result captures everything a command produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Ok reports whether the command exited zero.
func (r Result) Ok() bool { return r.ExitCode == 0 }

// Runner executes commands. The single-method interface keeps git
// operations testable with a scripted fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands directly on the host using os/exec.
type ExecRunner struct {
	// DefaultTimeout applies when a Command carries no timeout.
	DefaultTimeout time.Duration
}

// NewExecRunner creates a runner with the given default timeout.
// A zero timeout falls back to 60 seconds.
func NewExecRunner(defaultTimeout time.Duration) *ExecRunner {
	if defaultTimeout <= 0 {
		defaultTimeout = 60 * time.Second
	}
	return &ExecRunner{DefaultTimeout: defaultTimeout}
}

// Run executes the command and captures its output. A non-zero exit is
// returned in the Result, not as an error; err is reserved for
// infrastructure failures (missing binary, timeout, cancellation).
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	timer := logging.StartTimer(logging.CategoryVCS, "command execution")
	defer timer.StopWithThreshold(10 * time.Second)

	logging.VCSDebug("Executing: %s (dir=%s)", cmd.String(), cmd.Dir)

	if cmd.Binary == "" {
		return Result{ExitCode: -1}, fmt.Errorf("%w: binary is required", ErrOperation)
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	err := execCmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			result.ExitCode = -1
			logging.Get(logging.CategoryVCS).Warn("Command killed (timeout %s): %s", timeout, cmd.String())
			return result, fmt.Errorf("%w: %s timed out after %s", ErrOperation, cmd.Binary, timeout)
		}
		if execCtx.Err() == context.Canceled {
			result.ExitCode = -1
			return result, fmt.Errorf("%w: %s canceled", ErrOperation, cmd.Binary)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Command ran, just returned non-zero. Not an infrastructure error.
			result.ExitCode = exitErr.ExitCode()
			logging.VCSDebug("Command exited non-zero: %s -> %d", cmd.String(), result.ExitCode)
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("%w: %s: %v", ErrOperation, cmd.Binary, err)
	}

	result.ExitCode = 0
	return result, nil
}
