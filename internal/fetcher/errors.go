package fetcher

import (
	"errors"
	"fmt"

	"github.com/metorial/kubefetch/internal/models"
)

var (
	ErrRemoteExecution = errors.New("remote command did not succeed")
	ErrPollTimeout     = errors.New("timed out waiting for command")
	ErrEmptyOutput     = errors.New("command output is empty")
	ErrDecode          = errors.New("decode command output")
)

type RemoteExecutionError struct {
	Status models.CommandStatus
	Output string
}

func (e *RemoteExecutionError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("command failed with status: %s", e.Status)
	}
	return fmt.Sprintf("command failed with status: %s\n%s", e.Status, e.Output)
}

func (e *RemoteExecutionError) Is(target error) bool {
	return target == ErrRemoteExecution
}

type PollTimeoutError struct {
	Attempts   int
	LastStatus models.CommandStatus
}

func (e *PollTimeoutError) Error() string {
	status := string(e.LastStatus)
	if status == "" {
		status = "no invocation"
	}
	return fmt.Sprintf("timeout waiting for command after %d attempts (last status: %s)", e.Attempts, status)
}

func (e *PollTimeoutError) Is(target error) bool {
	return target == ErrPollTimeout
}

// DecodeError carries a short prefix of the raw output for diagnosis.
type DecodeError struct {
	Strategy Strategy
	Prefix   string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s output: %v (raw output start: %q)", e.Strategy, e.Err, e.Prefix)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
