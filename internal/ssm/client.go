package ssm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/metorial/kubefetch/internal/models"
)

const (
	DefaultCLI          = "aws"
	DefaultDocumentName = "AWS-RunShellScript"
)

var (
	// ErrSubmission marks a failed or unparseable send-command call.
	ErrSubmission = errors.New("command submission failed")
	// ErrMalformedResponse marks a list response that could not be interpreted.
	// Pollers treat it as transient.
	ErrMalformedResponse = errors.New("malformed invocation response")
	// ErrTool marks a failed orchestration CLI call outside submission.
	ErrTool = errors.New("orchestration tool failed")
)

// Orchestrator schedules a shell command on a host and reports its invocations.
type Orchestrator interface {
	SendCommand(ctx context.Context, req models.CommandRequest) (models.CommandHandle, error)
	ListInvocations(ctx context.Context, req models.CommandRequest, handle models.CommandHandle) ([]models.Invocation, error)
}

// Client drives the AWS CLI's ssm subcommands.
type Client struct {
	runner  Runner
	cli     string
	profile string
}

func NewClient(runner Runner, cli, profile string) *Client {
	if cli == "" {
		cli = DefaultCLI
	}
	return &Client{
		runner:  runner,
		cli:     cli,
		profile: profile,
	}
}

type sendCommandResponse struct {
	Command struct {
		CommandID string `json:"CommandId"`
		Status    string `json:"Status"`
	} `json:"Command"`
}

type listInvocationsResponse struct {
	CommandInvocations []struct {
		InstanceID     string `json:"InstanceId"`
		Status         string `json:"Status"`
		CommandPlugins []struct {
			Name   string `json:"Name"`
			Status string `json:"Status"`
			Output string `json:"Output"`
		} `json:"CommandPlugins"`
	} `json:"CommandInvocations"`
}

func (c *Client) SendCommand(ctx context.Context, req models.CommandRequest) (models.CommandHandle, error) {
	params, err := json.Marshal(map[string][]string{"commands": {req.Command}})
	if err != nil {
		return "", fmt.Errorf("%w: encode parameters: %v", ErrSubmission, err)
	}

	document := req.DocumentName
	if document == "" {
		document = DefaultDocumentName
	}

	out, err := c.run(ctx, "send-command",
		"--region", req.Region,
		"--instance-ids", req.InstanceID,
		"--document-name", document,
		"--parameters", string(params),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	var resp sendCommandResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("%w: parse send-command output: %v", ErrSubmission, err)
	}
	if resp.Command.CommandID == "" {
		return "", fmt.Errorf("%w: send-command output has no Command.CommandId: %s", ErrSubmission, truncate(string(out), 200))
	}

	return models.CommandHandle(resp.Command.CommandID), nil
}

func (c *Client) ListInvocations(ctx context.Context, req models.CommandRequest, handle models.CommandHandle) ([]models.Invocation, error) {
	out, err := c.run(ctx, "list-command-invocations",
		"--region", req.Region,
		"--command-id", string(handle),
		"--instance-id", req.InstanceID,
		"--details",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTool, err)
	}

	return ParseInvocations(out)
}

// ParseInvocations decodes a list-command-invocations document. Only the
// first plugin's output is kept; AWS-RunShellScript has a single plugin.
func ParseInvocations(data []byte) ([]models.Invocation, error) {
	var resp listInvocationsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	invocations := make([]models.Invocation, 0, len(resp.CommandInvocations))
	for _, inv := range resp.CommandInvocations {
		if inv.Status == "" {
			return nil, fmt.Errorf("%w: invocation for %q has no Status", ErrMalformedResponse, inv.InstanceID)
		}

		record := models.Invocation{
			InstanceID: inv.InstanceID,
			Status:     models.CommandStatus(inv.Status),
		}
		if len(inv.CommandPlugins) > 0 {
			record.Output = inv.CommandPlugins[0].Output
			record.HasOutput = true
		}
		invocations = append(invocations, record)
	}

	return invocations, nil
}

func (c *Client) run(ctx context.Context, subcommand string, args ...string) ([]byte, error) {
	argv := []string{"ssm", subcommand}
	argv = append(argv, args...)
	argv = append(argv, "--output", "json")
	if c.profile != "" {
		argv = append(argv, "--profile", c.profile)
	}
	return c.runner.Run(ctx, c.cli, argv...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
