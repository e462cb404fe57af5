package ssm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner runs an external program and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunError describes a program that could not be started or exited non-zero.
type RunError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s %s: exit code %d", e.Name, strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return e.Err
}

type ExecRunner struct {
	timeout time.Duration
	env     []string
}

// NewExecRunner returns a Runner backed by os/exec. A zero timeout
// leaves each call bounded only by the caller's context.
func NewExecRunner(timeout time.Duration, env ...string) *ExecRunner {
	return &ExecRunner{
		timeout: timeout,
		env:     env,
	}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), &RunError{
			Name:     name,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return stdout.Bytes(), nil
}
