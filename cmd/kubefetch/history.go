package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/metorial/kubefetch/internal/cli"
	"github.com/metorial/kubefetch/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect previous fetches",
}

var listHistoryCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent fetches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListFetches(limit)
		if err != nil {
			return fmt.Errorf("list fetches: %w", err)
		}

		if outputJSON {
			return cli.FormatJSON(os.Stdout, records)
		}

		return cli.FormatFetchesTable(os.Stdout, records)
	},
}

var getHistoryCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a single fetch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		record, err := db.GetFetch(args[0])
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("fetch %s not found", args[0])
		}
		if errors.Is(err, history.ErrAmbiguousID) {
			return fmt.Errorf("fetch id %s matches more than one fetch, use a longer prefix", args[0])
		}
		if err != nil {
			return fmt.Errorf("get fetch: %w", err)
		}

		if outputJSON {
			return cli.FormatJSON(os.Stdout, record)
		}

		return cli.FormatFetchDetail(os.Stdout, record)
	},
}

func openHistory() (*history.DB, error) {
	if historyPath == "" {
		return nil, errors.New("history is disabled (--history-db is empty)")
	}
	return history.NewDB(historyPath)
}

func init() {
	listHistoryCmd.Flags().IntP("limit", "l", history.DefaultListLimit, "Number of fetches to show")

	historyCmd.AddCommand(listHistoryCmd)
	historyCmd.AddCommand(getHistoryCmd)
}
