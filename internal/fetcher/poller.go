package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/metorial/kubefetch/internal/models"
	"github.com/metorial/kubefetch/internal/ssm"
)

const (
	DefaultPollInterval  = 2 * time.Second
	DefaultMaxAttempts   = 90
	DefaultProgressEvery = 5
)

type PollConfig struct {
	Interval      time.Duration
	MaxAttempts   int
	ProgressEvery int
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:      DefaultPollInterval,
		MaxAttempts:   DefaultMaxAttempts,
		ProgressEvery: DefaultProgressEvery,
	}
}

// errStillPolling is returned by a poll attempt that observed no terminal state.
var errStillPolling = errors.New("command not finished")

type Poller struct {
	orch ssm.Orchestrator
	cfg  PollConfig
}

func NewPoller(orch ssm.Orchestrator, cfg PollConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Poller{orch: orch, cfg: cfg}
}

// PollResult is the outcome of a successful wait.
type PollResult struct {
	Output   string
	Attempts int
}

// Wait polls the invocation for handle until it reaches a terminal status or
// the attempt budget runs out. Success is the only non-error exit.
func (p *Poller) Wait(ctx context.Context, req models.CommandRequest, handle models.CommandHandle) (*PollResult, error) {
	attempts := 0
	var lastStatus models.CommandStatus
	var output string

	// The first poll waits one interval as well; the invocation record is
	// rarely visible immediately after submission.
	timer := time.NewTimer(p.cfg.Interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	operation := func() error {
		attempts++

		invocations, err := p.orch.ListInvocations(ctx, req, handle)
		if errors.Is(err, ssm.ErrMalformedResponse) {
			return fmt.Errorf("%w: %v", errStillPolling, err)
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		if len(invocations) == 0 {
			return errStillPolling
		}

		inv := invocations[0]
		lastStatus = inv.Status

		switch {
		case inv.Status == models.StatusSuccess:
			if !inv.HasOutput {
				return fmt.Errorf("%w: success reported without output record", errStillPolling)
			}
			output = inv.Output
			return nil

		case inv.Status.IsFailure():
			return backoff.Permanent(&RemoteExecutionError{Status: inv.Status, Output: inv.Output})
		}

		if p.cfg.ProgressEvery > 0 && attempts%p.cfg.ProgressEvery == 0 {
			log.Printf("Status: %s...", inv.Status)
		}
		return errStillPolling
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.Interval), uint64(p.cfg.MaxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, errStillPolling) {
			return nil, &PollTimeoutError{Attempts: attempts, LastStatus: lastStatus}
		}
		return nil, err
	}

	return &PollResult{Output: output, Attempts: attempts}, nil
}
