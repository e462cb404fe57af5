package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/metorial/kubefetch/internal/models"
	"github.com/metorial/kubefetch/internal/ssm"
)

func testPollConfig(maxAttempts int) PollConfig {
	return PollConfig{
		Interval:      time.Millisecond,
		MaxAttempts:   maxAttempts,
		ProgressEvery: 5,
	}
}

var pollRequest = models.CommandRequest{Region: "us-east-1", InstanceID: "i-0abc"}

func TestWaitSuccess(t *testing.T) {
	orch := &fakeOrchestrator{responses: []pollResponse{
		{},
		{},
		status(models.StatusPending),
		status(models.StatusInProgress),
		success("payload"),
	}}

	result, err := NewPoller(orch, testPollConfig(10)).Wait(context.Background(), pollRequest, "cmd-1")
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}

	if result.Output != "payload" {
		t.Errorf("Expected output payload, got %q", result.Output)
	}
	if result.Attempts != 5 || orch.polls != 5 {
		t.Errorf("Expected 5 attempts, got %d (polls %d)", result.Attempts, orch.polls)
	}
}

func TestWaitTimeoutUsesExactBudget(t *testing.T) {
	for _, budget := range []int{1, 3, 7} {
		orch := &fakeOrchestrator{responses: []pollResponse{status(models.StatusInProgress)}}

		_, err := NewPoller(orch, testPollConfig(budget)).Wait(context.Background(), pollRequest, "cmd-1")
		if !errors.Is(err, ErrPollTimeout) {
			t.Fatalf("budget %d: expected ErrPollTimeout, got %v", budget, err)
		}

		var timeoutErr *PollTimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("budget %d: expected *PollTimeoutError, got %T", budget, err)
		}
		if timeoutErr.Attempts != budget {
			t.Errorf("budget %d: error reports %d attempts", budget, timeoutErr.Attempts)
		}
		if timeoutErr.LastStatus != models.StatusInProgress {
			t.Errorf("budget %d: expected last status InProgress, got %s", budget, timeoutErr.LastStatus)
		}
		if orch.polls != budget {
			t.Errorf("budget %d: expected %d polls, got %d", budget, budget, orch.polls)
		}
	}
}

func TestWaitTimeoutWithoutInvocations(t *testing.T) {
	orch := &fakeOrchestrator{}

	_, err := NewPoller(orch, testPollConfig(4)).Wait(context.Background(), pollRequest, "cmd-1")
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("Expected ErrPollTimeout, got %v", err)
	}
	if orch.polls != 4 {
		t.Errorf("Expected 4 polls, got %d", orch.polls)
	}
}

func TestWaitTerminalFailureStopsImmediately(t *testing.T) {
	for _, s := range []models.CommandStatus{models.StatusFailed, models.StatusCancelled, models.StatusTimedOut} {
		orch := &fakeOrchestrator{responses: []pollResponse{
			status(models.StatusPending),
			failure(s, "sudo: a password is required"),
			success("never reached"),
		}}

		_, err := NewPoller(orch, testPollConfig(10)).Wait(context.Background(), pollRequest, "cmd-1")
		if !errors.Is(err, ErrRemoteExecution) {
			t.Fatalf("%s: expected ErrRemoteExecution, got %v", s, err)
		}

		var remoteErr *RemoteExecutionError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("%s: expected *RemoteExecutionError, got %T", s, err)
		}
		if remoteErr.Status != s {
			t.Errorf("Expected status %s, got %s", s, remoteErr.Status)
		}
		if remoteErr.Output != "sudo: a password is required" {
			t.Errorf("Expected diagnostic output, got %q", remoteErr.Output)
		}
		if orch.polls != 2 {
			t.Errorf("%s: expected polling to stop after 2 polls, got %d", s, orch.polls)
		}
	}
}

func TestWaitSwallowsMalformedResponses(t *testing.T) {
	malformed := pollResponse{err: fmt.Errorf("%w: unexpected end of JSON input", ssm.ErrMalformedResponse)}
	noPlugins := pollResponse{invocations: []models.Invocation{{Status: models.StatusSuccess}}}

	orch := &fakeOrchestrator{responses: []pollResponse{malformed, noPlugins, malformed, success("ok")}}

	result, err := NewPoller(orch, testPollConfig(10)).Wait(context.Background(), pollRequest, "cmd-1")
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if result.Output != "ok" || result.Attempts != 4 {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestWaitToolFailureIsFatal(t *testing.T) {
	toolErr := fmt.Errorf("%w: aws exited 255", ssm.ErrTool)
	orch := &fakeOrchestrator{responses: []pollResponse{{}, {err: toolErr}, success("ok")}}

	_, err := NewPoller(orch, testPollConfig(10)).Wait(context.Background(), pollRequest, "cmd-1")
	if !errors.Is(err, ssm.ErrTool) {
		t.Fatalf("Expected ErrTool, got %v", err)
	}
	if orch.polls != 2 {
		t.Errorf("Expected 2 polls, got %d", orch.polls)
	}
}

func TestWaitCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := &fakeOrchestrator{responses: []pollResponse{status(models.StatusInProgress)}}

	_, err := NewPoller(orch, PollConfig{Interval: time.Hour, MaxAttempts: 3}).Wait(ctx, pollRequest, "cmd-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if orch.polls != 0 {
		t.Errorf("Expected no polls, got %d", orch.polls)
	}
}

func TestNewPollerDefaults(t *testing.T) {
	p := NewPoller(&fakeOrchestrator{}, PollConfig{})

	if p.cfg.Interval != DefaultPollInterval {
		t.Errorf("Expected interval %s, got %s", DefaultPollInterval, p.cfg.Interval)
	}
	if p.cfg.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxAttempts, p.cfg.MaxAttempts)
	}
}
