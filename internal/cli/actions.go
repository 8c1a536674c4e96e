package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/a2ui/internal/journal"
	"github.com/yolodolo42/a2ui/internal/outbound"
	"github.com/yolodolo42/a2ui/internal/ui"
)

var actionsCmd = &cobra.Command{
	Use:   "actions [RUN_ID]",
	Short: "Show the journal of sent actions",
	Long: `Actions lists the user actions this client delivered to an agent, newest
first, with their delivery status. Given a run id it shows that action's
full context.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runActions,
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.Flags().Int("limit", 20, "Number of actions to list (0 for all)")
}

func runActions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s := loadSettings()
	j, err := journal.Open(s.DataDir)
	if err != nil {
		return err
	}
	defer j.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return showAction(ctx, out, j, args[0])
	}
	limit, _ := cmd.Flags().GetInt("limit")
	return listActions(ctx, out, j, limit)
}

func listActions(ctx context.Context, w io.Writer, j *journal.Store, limit int) error {
	entries, err := j.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, ui.PendingStyle.Render("No actions sent yet."))
		return nil
	}
	fmt.Fprintln(w, renderTable(100, actionTable(entries)))
	return nil
}

func actionTable(entries []journal.Entry) table {
	t := table{
		Title:   "Actions",
		Headers: []string{"Run", "Action", "Surface", "Component", "Status", "Sent"},
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			e.RunID,
			e.Action,
			e.SurfaceID,
			e.SourceComponentID,
			statusLabel(e.Status),
			e.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return t
}

func statusLabel(s outbound.Status) string {
	if s == outbound.StatusSent {
		return ui.SymbolCheck + " " + string(s)
	}
	return ui.SymbolCross + " " + string(s)
}

func showAction(ctx context.Context, w io.Writer, j *journal.Store, runID string) error {
	e, err := j.Get(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no action with run id %s", runID)
	}
	if err != nil {
		return err
	}
	items := []kvItem{
		{Key: "Run", Value: e.RunID},
		{Key: "Thread", Value: e.ThreadID},
		{Key: "Action", Value: e.Action},
		{Key: "Surface", Value: e.SurfaceID},
		{Key: "Component", Value: e.SourceComponentID},
		{Key: "Context", Value: e.ContextJSON},
		{Key: "Status", Value: statusLabel(e.Status)},
	}
	if !e.Timestamp.IsZero() {
		items = append(items, kvItem{Key: "Timestamp", Value: e.Timestamp.Format(time.RFC3339)})
	}
	if e.Error != "" {
		items = append(items, kvItem{Key: "Error", Value: e.Error})
	}
	fmt.Fprintln(w, renderKV(100, "Action "+e.RunID, items))
	return nil
}
