package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"safetyhub/internal/persist"
)

// DismissalRecord is the JSON shape of one persisted dismissal.
type DismissalRecord struct {
	SourceID                string `json:"source_id"`
	IssueID                 string `json:"issue_id"`
	UserID                  int32  `json:"user_id"`
	FirstSeenAt             string `json:"first_seen_at"`
	IssueDismissedAt        string `json:"issue_dismissed_at,omitempty"`
	NotificationDismissedAt string `json:"notification_dismissed_at,omitempty"`
}

// InspectResult holds the inspect command output.
type InspectResult struct {
	Path    string            `json:"path"`
	Records []DismissalRecord `json:"records"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <db-path>",
		Short: "Inspect a dismissal database",
		Long: `Print the persisted dismissal records of a safetyhub SQLite database.

Only dismissal state is persisted across restarts; raw source data and
in-flight actions always start empty, so this is the complete durable
state of a deployment.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Opening would create an empty database; require an existing file.
	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error("E005", fmt.Sprintf("database not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	store, err := persist.Open(path)
	if err != nil {
		_ = formatter.Error("E004", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer store.Close()

	persisted, err := store.Load()
	if err != nil {
		_ = formatter.Error("E004", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load dismissals", err)
	}

	records := make([]DismissalRecord, 0, len(persisted))
	for _, rec := range persisted {
		records = append(records, DismissalRecord{
			SourceID:                rec.Key.SourceID,
			IssueID:                 rec.Key.IssueID,
			UserID:                  int32(rec.Key.UserID),
			FirstSeenAt:             rec.FirstSeenAt.UTC().Format(time.RFC3339),
			IssueDismissedAt:        formatOptionalInstant(rec.IssueDismissedAt),
			NotificationDismissedAt: formatOptionalInstant(rec.NotificationDismissedAt),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(InspectResult{Path: path, Records: records})
	}

	for _, rec := range records {
		fmt.Fprintf(formatter.Writer, "%s/%s/u%d first_seen=%s issue_dismissed_at=%s notification_dismissed_at=%s\n",
			rec.SourceID, rec.IssueID, rec.UserID,
			rec.FirstSeenAt, orDash(rec.IssueDismissedAt), orDash(rec.NotificationDismissedAt))
	}
	fmt.Fprintf(formatter.Writer, "%d record(s)\n", len(records))
	return nil
}

func formatOptionalInstant(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
