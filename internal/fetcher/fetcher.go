package fetcher

import (
	"context"
	"fmt"
	"log"

	"github.com/metorial/kubefetch/internal/models"
	"github.com/metorial/kubefetch/internal/ssm"
)

type Config struct {
	Strategy    Strategy
	Poll        PollConfig
	OutputPath  string
	Placeholder string
}

func DefaultConfig() Config {
	return Config{
		Strategy:    StrategyBase64,
		Poll:        DefaultPollConfig(),
		OutputPath:  DefaultOutputPath,
		Placeholder: PlaceholderAddress,
	}
}

// Fetcher runs one remote command and turns its output into an artifact file.
type Fetcher struct {
	orch   ssm.Orchestrator
	poller *Poller
	cfg    Config
}

func New(orch ssm.Orchestrator, cfg Config) *Fetcher {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyBase64
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = DefaultOutputPath
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = PlaceholderAddress
	}

	return &Fetcher{
		orch:   orch,
		poller: NewPoller(orch, cfg.Poll),
		cfg:    cfg,
	}
}

type Result struct {
	Handle         models.CommandHandle
	Attempts       int
	Path           string
	ExportCommand  string
	MarkerFound    bool
	CurrentContext string
	Servers        []string
}

// Run submits req, waits for it and writes the rewritten artifact. Nothing
// is written on error. Once submission succeeds the Result is returned even
// alongside an error so callers can record the handle; Path is set only
// after the artifact is on disk.
func (f *Fetcher) Run(ctx context.Context, req models.CommandRequest, publicAddr string) (*Result, error) {
	if _, err := ParseStrategy(string(f.cfg.Strategy)); err != nil {
		return nil, err
	}
	if req.Command == "" {
		req.Command = f.cfg.Strategy.RemoteCommand("")
	}

	handle, err := f.orch.SendCommand(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("SSM Command ID: %s. Waiting for execution...", handle)

	result := &Result{Handle: handle}

	polled, err := f.poller.Wait(ctx, req, handle)
	if err != nil {
		return result, err
	}
	result.Attempts = polled.Attempts

	text, err := Decode(f.cfg.Strategy, polled.Output)
	if err != nil {
		return result, err
	}

	text = RewriteAddress(text, f.cfg.Placeholder, publicAddr)

	result.MarkerFound = HasMarker(text)

	// Extraction already anchored on the marker key.
	if !result.MarkerFound && f.cfg.Strategy != StrategyExtract {
		log.Printf("Warning: '%s' not found in decoded content. File might be invalid.", RequiredMarker)
	}

	if summary, err := InspectKubeconfig(text); err != nil {
		log.Printf("Warning: %v", err)
	} else {
		result.CurrentContext = summary.CurrentContext
		result.Servers = summary.Servers
	}

	if err := WriteArtifact(f.cfg.OutputPath, text); err != nil {
		return result, fmt.Errorf("save artifact: %w", err)
	}

	result.Path = f.cfg.OutputPath
	result.ExportCommand = ExportCommand(f.cfg.OutputPath)
	return result, nil
}
