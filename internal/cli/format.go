package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/metorial/kubefetch/internal/models"
)

func FormatJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func FormatFetchesTable(w io.Writer, records []models.FetchRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No fetches recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tINSTANCE\tREGION\tADDRESS\tSTRATEGY\tSTATUS\tATTEMPTS\tSTARTED")

	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(r.ID),
			r.InstanceID,
			r.Region,
			r.PublicAddress,
			r.Strategy,
			formatStatus(r.Status),
			r.Attempts,
			humanize.Time(r.StartedAt),
		)
	}

	return tw.Flush()
}

func FormatFetchDetail(w io.Writer, r *models.FetchRecord) error {
	fmt.Fprintf(w, "Fetch: %s\n", r.ID)
	fmt.Fprintf(w, "Status: %s\n", formatStatus(r.Status))
	fmt.Fprintf(w, "Instance: %s (%s)\n", r.InstanceID, r.Region)
	fmt.Fprintf(w, "Public Address: %s\n", r.PublicAddress)
	fmt.Fprintf(w, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(w, "Command ID: %s\n", orDash(r.CommandID))
	fmt.Fprintf(w, "Attempts: %d\n", r.Attempts)
	fmt.Fprintf(w, "Artifact: %s\n", orDash(r.ArtifactPath))
	fmt.Fprintf(w, "Origin Host: %s\n", orDash(r.OriginHost))
	fmt.Fprintf(w, "Started: %s\n", formatTime(r.StartedAt))
	fmt.Fprintf(w, "Duration: %s\n", formatDuration(r.FinishedAt.Sub(r.StartedAt)))

	if r.Error != "" {
		fmt.Fprintf(w, "\nError:\n%s\n", r.Error)
	}
	return nil
}

func Success(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgGreen, color.Bold).Fprintf(w, format+"\n", args...)
}

func Warning(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(w, format+"\n", args...)
}

func Failure(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(w, format+"\n", args...)
}

func formatStatus(status string) string {
	switch status {
	case models.FetchSucceeded:
		return color.GreenString(status)
	case models.FetchFailed:
		return color.RedString(status)
	}
	return status
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Second).String()
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
