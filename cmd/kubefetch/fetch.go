package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/metorial/kubefetch/internal/cli"
	"github.com/metorial/kubefetch/internal/discovery"
	"github.com/metorial/kubefetch/internal/fetcher"
	"github.com/metorial/kubefetch/internal/history"
	"github.com/metorial/kubefetch/internal/models"
	"github.com/metorial/kubefetch/internal/ssm"
)

type fetchOutput struct {
	ID             string   `json:"id,omitempty"`
	CommandID      string   `json:"command_id"`
	Attempts       int      `json:"attempts"`
	Path           string   `json:"path"`
	ExportCommand  string   `json:"export_command"`
	MarkerFound    bool     `json:"marker_found"`
	CurrentContext string   `json:"current_context,omitempty"`
	Servers        []string `json:"servers,omitempty"`
}

func runFetch(ctx context.Context, region, instanceID, addrArg string) error {
	strategy, err := fetcher.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	if maxAttempts <= 0 {
		return fmt.Errorf("--max-attempts must be positive, got %d", maxAttempts)
	}
	if pollInterval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", pollInterval)
	}

	publicAddr, err := resolveAddress(addrArg)
	if err != nil {
		return fmt.Errorf("resolve public address: %w", err)
	}

	log.Printf("Fetching Kubeconfig via SSM from %s (%s) in %s...", instanceID, publicAddr, region)

	command := remoteCommand
	if command == "" {
		command = strategy.RemoteCommand(sourcePath)
	}

	req := models.CommandRequest{
		Region:       region,
		InstanceID:   instanceID,
		Command:      command,
		DocumentName: documentName,
	}

	runner := ssm.NewExecRunner(callTimeout, "AWS_PAGER=")
	client := ssm.NewClient(runner, awsCLI, awsProfile)

	f := fetcher.New(client, fetcher.Config{
		Strategy: strategy,
		Poll: fetcher.PollConfig{
			Interval:      pollInterval,
			MaxAttempts:   maxAttempts,
			ProgressEvery: fetcher.DefaultProgressEvery,
		},
		OutputPath:  outputPath,
		Placeholder: fetcher.PlaceholderAddress,
	})

	record := &models.FetchRecord{
		Region:        region,
		InstanceID:    instanceID,
		PublicAddress: publicAddr,
		Strategy:      string(strategy),
		OriginHost:    history.OriginHost(),
		StartedAt:     time.Now(),
	}

	result, runErr := f.Run(ctx, req, publicAddr)
	recordFetch(record, result, runErr)

	if runErr != nil {
		return runErr
	}

	if outputJSON {
		return cli.FormatJSON(os.Stdout, fetchOutput{
			ID:             record.ID,
			CommandID:      string(result.Handle),
			Attempts:       result.Attempts,
			Path:           result.Path,
			ExportCommand:  result.ExportCommand,
			MarkerFound:    result.MarkerFound,
			CurrentContext: result.CurrentContext,
			Servers:        result.Servers,
		})
	}

	cli.Success(os.Stdout, "Success! Kubeconfig saved to %s", result.Path)
	for _, server := range result.Servers {
		fmt.Printf("Cluster server: %s\n", server)
	}
	fmt.Printf("Run: %s\n", result.ExportCommand)
	return nil
}

func resolveAddress(arg string) (string, error) {
	if !discovery.IsServiceRef(arg) {
		return arg, nil
	}

	resolver, err := discovery.NewResolver(consulAddr)
	if err != nil {
		return "", err
	}

	addr, err := resolver.Resolve(arg)
	if err != nil {
		return "", err
	}

	log.Printf("Resolved %s to %s", arg, addr)
	return addr, nil
}

// recordFetch stores the outcome in the history database. Failures are
// logged and never change the exit status of the fetch.
func recordFetch(record *models.FetchRecord, result *fetcher.Result, runErr error) {
	if historyPath == "" {
		return
	}

	record.FinishedAt = time.Now()
	record.Status = models.FetchSucceeded
	if result != nil {
		record.CommandID = string(result.Handle)
		record.Attempts = result.Attempts
		record.ArtifactPath = result.Path
	}
	if runErr != nil {
		record.Status = models.FetchFailed
		record.Error = runErr.Error()
	}

	db, err := history.NewDB(historyPath)
	if err != nil {
		cli.Warning(os.Stderr, "Warning: failed to open history database: %v", err)
		return
	}
	defer db.Close()

	if err := db.RecordFetch(record); err != nil {
		cli.Warning(os.Stderr, "Warning: failed to record fetch: %v", err)
	}
}
