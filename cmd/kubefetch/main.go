package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/metorial/kubefetch/internal/cli"
	"github.com/metorial/kubefetch/internal/fetcher"
	"github.com/spf13/cobra"
)

const (
	defaultCallTimeout = 60 * time.Second
	defaultConsulAddr  = "127.0.0.1:8500"
)

var (
	strategyName  string
	outputPath    string
	sourcePath    string
	remoteCommand string
	documentName  string
	pollInterval  time.Duration
	maxAttempts   int
	callTimeout   time.Duration
	awsCLI        string
	awsProfile    string
	historyPath   string
	consulAddr    string
	outputJSON    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		cli.Failure(os.Stderr, "Error: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kubefetch <region> <instance-id> <public-address>",
	Short: "Fetch a cluster kubeconfig through AWS Systems Manager",
	Long: `kubefetch runs a shell command on an EC2 instance through "aws ssm send-command",
waits for it to finish and turns its output into a local kubeconfig whose
loopback server address is replaced with the instance's public address.

The public address may be given as consul:<service> to resolve it from the
healthy instances of a Consul service.`,
	Example: `  kubefetch eu-west-1 i-0123456789abcdef0 203.0.113.9
  kubefetch --strategy gzip -o prod.yaml eu-west-1 i-0123456789abcdef0 consul:k3s-server`,
	Args:          cobra.ExactArgs(3),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runFetch(ctx, args[0], args[1], args[2])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&strategyName, "strategy", "S", getEnv("KUBEFETCH_STRATEGY", string(fetcher.StrategyBase64)),
		"Output decoding strategy: plain, base64, gzip or extract")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", getEnv("KUBEFETCH_OUTPUT", fetcher.DefaultOutputPath),
		"Path of the kubeconfig to write")
	rootCmd.Flags().StringVar(&sourcePath, "source", fetcher.DefaultSourcePath,
		"Kubeconfig path on the remote host")
	rootCmd.Flags().StringVar(&remoteCommand, "command", "",
		"Remote shell command (overrides the strategy's default command)")
	rootCmd.Flags().StringVar(&documentName, "document", "",
		"SSM document to run (default AWS-RunShellScript)")
	rootCmd.Flags().DurationVar(&pollInterval, "interval", getEnvDuration("KUBEFETCH_POLL_INTERVAL", fetcher.DefaultPollInterval),
		"Delay between status polls")
	rootCmd.Flags().IntVar(&maxAttempts, "max-attempts", getEnvInt("KUBEFETCH_MAX_ATTEMPTS", fetcher.DefaultMaxAttempts),
		"Number of status polls before giving up")
	rootCmd.Flags().DurationVar(&callTimeout, "call-timeout", defaultCallTimeout,
		"Timeout for a single aws CLI call")
	rootCmd.Flags().StringVar(&awsCLI, "aws-cli", getEnv("AWS_CLI", "aws"),
		"Path to the aws CLI binary")
	rootCmd.Flags().StringVar(&awsProfile, "profile", "",
		"AWS CLI profile to use")
	rootCmd.Flags().StringVar(&consulAddr, "consul", getEnv("CONSUL_HTTP_ADDR", defaultConsulAddr),
		"Consul address used to resolve consul:<service> addresses")

	rootCmd.PersistentFlags().StringVar(&historyPath, "history-db", getEnv("KUBEFETCH_HISTORY_DB", defaultHistoryPath()),
		"SQLite file recording fetches (empty disables history)")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(historyCmd)
}

func defaultHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/tmp"
	}
	return filepath.Join(homeDir, ".kubefetch", "history.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
