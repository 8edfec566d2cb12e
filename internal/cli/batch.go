package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearview/internal/api"
	"github.com/ppiankov/clearview/internal/render"
	"github.com/ppiankov/clearview/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchJSON    bool
)

// batchCmd verifies every claim in a file
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check many claims from a file in parallel",
	Long: `Batch verifies claims concurrently:
- Read claims from the input file (one per line, # starts a comment)
- Verify them in parallel with a configurable worker count
- Save each result to the local history
- Optionally write a Markdown report per claim

Example:
  clearview batch claims.txt
  clearview batch claims.txt --concurrency 8 --output-dir ./reports
  clearview batch claims.txt --json > results.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write a Markdown report per claim to this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print all results as JSON")
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save results to history")
}

// batchItem is one line of JSON output
type batchItem struct {
	Claim     string         `json:"claim"`
	HistoryID string         `json:"history_id,omitempty"`
	Report    *render.Report `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	if err := e.requireLogin(); err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = e.cfg.Concurrency.Workers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(e.stderr, "\n")
	fmt.Fprintf(e.stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(e.stderr, "  Clear View Batch Verification\n")
	fmt.Fprintf(e.stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(e.stderr, "\n")
	fmt.Fprintf(e.stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(e.stderr, "  Workers:      %d\n", workers)
	if outputDir != "" {
		fmt.Fprintf(e.stderr, "  Output dir:   %s\n", outputDir)
	}
	fmt.Fprintf(e.stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(e.stderr, "\n")

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	processor := worker.NewBatchProcessor(e.client, workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	items := make([]batchItem, 0, len(results))

	for _, result := range results {
		item := batchItem{Claim: result.Claim}
		if result.Error != nil {
			failureCount++
			item.Error = api.Message(result.Error)
			items = append(items, item)
			fmt.Fprintf(e.stderr, "✗ %s: %s\n", render.Truncate(result.Claim, 60), item.Error)
			continue
		}

		successCount++
		withClaim(result.Result, result.Claim)
		rep := render.Report{Result: *result.Result, CheckedAt: time.Now()}
		if e.cfg.History.Enabled && !noSave {
			entry, err := e.history.Append(*result.Result)
			if err != nil {
				e.logger.Warn("result not saved to history", "claim", result.Claim, "error", err)
			}
			rep.HistoryID = entry.ID
			item.HistoryID = entry.ID
		}
		item.Report = &rep
		items = append(items, item)

		if outputDir != "" {
			path := filepath.Join(outputDir, fmt.Sprintf("%03d-%s.md", result.Index+1, slugify(result.Claim)))
			if err := os.WriteFile(path, []byte(render.Markdown(rep)), 0o644); err != nil {
				fmt.Fprintf(e.stderr, "✗ %s: failed to write Markdown: %v\n", render.Truncate(result.Claim, 60), err)
				continue
			}
		}

		fmt.Fprintf(e.stderr, "✓ %s (%s, %s)\n", render.Truncate(result.Claim, 60), result.Result.Verdict.Label(), render.Percent(result.Result.Confidence))
	}

	fmt.Fprintf(e.stderr, "\n")
	fmt.Fprintf(e.stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(e.stderr, "  Batch Complete\n")
	fmt.Fprintf(e.stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(e.stderr, "\n")
	fmt.Fprintf(e.stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(e.stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(e.stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(e.stderr, "\n")

	if batchJSON {
		return render.JSON(e.stdout, items)
	}
	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d claims failed", failureCount)
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a claim into a short file-name-safe slug
func slugify(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	if s == "" {
		return "claim"
	}
	return s
}
