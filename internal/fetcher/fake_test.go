package fetcher

import (
	"context"
	"strings"

	"github.com/metorial/kubefetch/internal/models"
)

type pollResponse struct {
	invocations []models.Invocation
	err         error
}

type fakeOrchestrator struct {
	handle    models.CommandHandle
	sendErr   error
	responses []pollResponse
	sent      []models.CommandRequest
	polls     int
}

func (f *fakeOrchestrator) SendCommand(ctx context.Context, req models.CommandRequest) (models.CommandHandle, error) {
	f.sent = append(f.sent, req)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.handle, nil
}

// ListInvocations replays responses in order and repeats the last one.
func (f *fakeOrchestrator) ListInvocations(ctx context.Context, req models.CommandRequest, handle models.CommandHandle) ([]models.Invocation, error) {
	f.polls++
	if len(f.responses) == 0 {
		return nil, nil
	}
	i := f.polls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i].invocations, f.responses[i].err
}

func status(s models.CommandStatus) pollResponse {
	return pollResponse{invocations: []models.Invocation{{InstanceID: "i-0abc", Status: s}}}
}

func success(output string) pollResponse {
	return pollResponse{invocations: []models.Invocation{{
		InstanceID: "i-0abc",
		Status:     models.StatusSuccess,
		Output:     output,
		HasOutput:  true,
	}}}
}

func failure(s models.CommandStatus, output string) pollResponse {
	return pollResponse{invocations: []models.Invocation{{
		InstanceID: "i-0abc",
		Status:     s,
		Output:     output,
		HasOutput:  true,
	}}}
}

// scriptedRunner stands in for the aws binary, answering by subcommand.
type scriptedRunner struct {
	send  []byte
	lists [][]byte
	calls []string
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, strings.Join(args[:2], " "))
	if args[1] == "send-command" {
		return r.send, nil
	}

	n := 0
	for _, c := range r.calls {
		if strings.HasSuffix(c, "list-command-invocations") {
			n++
		}
	}
	if n > len(r.lists) {
		n = len(r.lists)
	}
	return r.lists[n-1], nil
}

func (r *scriptedRunner) count(subcommand string) int {
	n := 0
	for _, c := range r.calls {
		if strings.HasSuffix(c, subcommand) {
			n++
		}
	}
	return n
}
