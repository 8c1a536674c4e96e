package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/a2ui/internal/history"
	"github.com/yolodolo42/a2ui/internal/session"
	"github.com/yolodolo42/a2ui/internal/surface"
	"github.com/yolodolo42/a2ui/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history [SESSION]",
	Short: "List session logs or replay one",
	Long: `Without arguments, history lists the session logs under the data
directory. Given a session id or a log path, it replays the logged inbound
messages into a fresh session and shows which chat message created each
surface.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("render", false, "Also print the replayed surfaces")
	historyCmd.Flags().Int("width", 80, "Render width")
}

func runHistory(cmd *cobra.Command, args []string) error {
	s := loadSettings()
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listSessions(out, s.DataDir)
	}

	path := args[0]
	if !strings.ContainsRune(path, os.PathSeparator) && !strings.HasSuffix(path, ".jsonl") {
		path = history.Path(s.DataDir, path)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := session.New(session.Options{ID: "replay", Strict: s.Strict})
	if err != nil {
		return err
	}
	st, err := history.Replay(ctx, path, sess)
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}

	fmt.Fprintln(out, renderTable(80, originTable(sess.Registry())))
	fmt.Fprintf(out, "%d messages applied, %d failed, %d actions logged\n", st.Inbound, st.Failed, st.Actions)

	if render, _ := cmd.Flags().GetBool("render"); render {
		width, _ := cmd.Flags().GetInt("width")
		fmt.Fprintln(out)
		printSurfaces(out, sess.Registry(), width)
	}
	return nil
}

// originTable lists surfaces grouped by the chat message that created them.
func originTable(reg *surface.Registry) table {
	t := table{
		Title:   "Surfaces",
		Headers: []string{"Message", "Surface", "State", "Components"},
	}
	var surfaces []*surface.Surface
	for _, id := range reg.List() {
		if s, ok := reg.Get(id); ok {
			surfaces = append(surfaces, s)
		}
	}
	sort.SliceStable(surfaces, func(i, j int) bool {
		return surfaces[i].OriginMessageID < surfaces[j].OriginMessageID
	})
	for _, s := range surfaces {
		t.Rows = append(t.Rows, []string{
			s.OriginMessageID,
			s.ID,
			s.State.String(),
			strconv.Itoa(len(s.Components)),
		})
	}
	return t
}

func listSessions(w io.Writer, dataDir string) error {
	matches, err := filepath.Glob(filepath.Join(dataDir, "sessions", "*.jsonl"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, ui.PendingStyle.Render("No session logs in "+dataDir))
		return nil
	}

	t := table{Title: "Sessions", Headers: []string{"Session", "Started", "Records"}}
	for _, path := range matches {
		recs, err := history.Read(path)
		if err != nil {
			continue
		}
		started := ""
		if len(recs) > 0 {
			started = recs[0].TS
		}
		id := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		t.Rows = append(t.Rows, []string{id, started, strconv.Itoa(len(recs))})
	}
	sort.SliceStable(t.Rows, func(i, j int) bool { return t.Rows[i][1] > t.Rows[j][1] })
	fmt.Fprintln(w, renderTable(80, t))
	return nil
}
