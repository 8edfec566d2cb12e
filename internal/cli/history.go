package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearview/internal/history"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/render"
	"github.com/ppiankov/clearview/internal/tui"
)

var (
	historySearch  string
	historyVerdict string
	historyLimit   int
	historyJSON    bool
	historyOutput  string
	historyForce   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past fact-checks",
	Long: `Past fact-checks are kept locally, newest first, independent of the
service. Turn saving off with history.enabled: false.`,
}

var historyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List past fact-checks",
	Example: `  clearview history list
  clearview history list --search vaccine --verdict false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		entries := e.history.Filter(strings.TrimSpace(historySearch), strings.TrimSpace(historyVerdict))
		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[:historyLimit]
		}
		if historyJSON {
			return render.JSON(e.stdout, entries)
		}
		e.out.History(entries)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a past fact-check (full id or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		entry, err := findEntry(e.history, args[0])
		if err != nil {
			return err
		}
		return e.showEntry(entry)
	},
}

var historyBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Search and open past fact-checks interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		selected, err := tui.Browse(e.history.Entries())
		if err != nil {
			return fmt.Errorf("history browser: %w", err)
		}
		if selected == nil {
			return nil
		}
		return e.showEntry(*selected)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all past fact-checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if !historyForce {
			fmt.Fprintf(e.stderr, "Delete %d saved fact-checks? [y/N] ", e.history.Len())
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(e.stderr, "Aborted.")
				return nil
			}
		}
		if err := e.history.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, "History cleared.")
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export past fact-checks as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		export := struct {
			ExportedAt time.Time            `json:"exported_at"`
			Entries    []model.HistoryEntry `json:"entries"`
		}{
			ExportedAt: time.Now().UTC(),
			Entries:    e.history.Entries(),
		}
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		data = append(data, '\n')
		if err := e.writeFile(historyOutput, data); err != nil {
			return err
		}
		if historyOutput != "-" {
			fmt.Fprintf(e.stderr, "✓ Exported %d entries to %s\n", len(export.Entries), historyOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyBrowseCmd, historyClearCmd, historyExportCmd)

	historyListCmd.Flags().StringVarP(&historySearch, "search", "s", "", "only claims containing this text")
	historyListCmd.Flags().StringVar(&historyVerdict, "verdict", history.FilterAll, "only verdicts containing this text (all, true, false, ...)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show at most n entries")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "print the entry as JSON")
	historyClearCmd.Flags().BoolVarP(&historyForce, "yes", "y", false, "do not ask for confirmation")
	historyExportCmd.Flags().StringVarP(&historyOutput, "output", "o", "-", "output file (- for stdout)")
}

func (e *env) showEntry(entry model.HistoryEntry) error {
	rep := render.Report{Result: entry.Result(), HistoryID: entry.ID, CheckedAt: entry.CreatedAt}
	if historyJSON {
		return render.JSON(e.stdout, entry)
	}
	fmt.Fprintln(e.stdout, e.out.Styles().Muted.Render("Checked "+entry.CreatedAt.Local().Format("2006-01-02 15:04")))
	e.out.Report(rep)
	return nil
}

// findEntry resolves a full id or a unique id prefix
func findEntry(cache *history.Cache, id string) (model.HistoryEntry, error) {
	if entry, ok := cache.Find(id); ok {
		return entry, nil
	}
	var matches []model.HistoryEntry
	for _, e := range cache.Entries() {
		if strings.HasPrefix(e.ID, id) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return model.HistoryEntry{}, fmt.Errorf("no fact-check with id %q", id)
	case 1:
		return matches[0], nil
	default:
		return model.HistoryEntry{}, fmt.Errorf("id %q is ambiguous (%d matches)", id, len(matches))
	}
}
