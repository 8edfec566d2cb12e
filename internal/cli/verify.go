package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearview/internal/linkcheck"
	"github.com/ppiankov/clearview/internal/llm"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/render"
)

var (
	verifyLegacy  bool
	verifyExplain bool
	checkLinks    bool
	outJSON       bool
	outMD         string
	noSave        bool
)

// verifyCmd submits a claim for fact-checking
var verifyCmd = &cobra.Command{
	Use:   "verify <claim...>",
	Short: "Fact-check a claim",
	Long: `Verify submits a claim to the fact-checking service and prints the
verdict, confidence, reasoning and supporting sources. The result is saved to
the local history unless history is disabled or --no-save is given.

Use "-" as the claim to read it from stdin.

Example:
  clearview verify "Vaccines are safe"
  clearview verify "The minimum wage rose in 2024" --check-links --md result.md
  clearview verify "Coffee causes dehydration" --explain --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyLegacy, "legacy", false, "use the legacy /verify-news endpoint")
	verifyCmd.Flags().BoolVar(&verifyExplain, "explain", false, "add a plain-language explanation from the configured LLM")
	verifyCmd.Flags().BoolVar(&checkLinks, "check-links", false, "check that cited sources are reachable")
	verifyCmd.Flags().BoolVar(&outJSON, "json", false, "print the result as JSON")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "write a Markdown report to this path (- for stdout)")
	verifyCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the result to history")
}

func runVerify(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	claim, err := claimFromArgs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if err := e.requireLogin(); err != nil {
		return err
	}

	ctx := cmd.Context()
	e.logf("Verifying: %s\n", claim)

	var resp *model.VerificationResponse
	if verifyLegacy {
		resp, err = e.client.VerifyLegacy(ctx, claim)
	} else {
		resp, err = e.client.Verify(ctx, claim)
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	withClaim(resp, claim)

	rep := render.Report{Result: *resp, CheckedAt: time.Now()}

	if e.cfg.History.Enabled && !noSave {
		entry, err := e.history.Append(*resp)
		if err != nil {
			e.logger.Warn("result not saved to history", "error", err)
		}
		rep.HistoryID = entry.ID
	}

	if checkLinks || e.cfg.LinkCheck.Enabled {
		rep.Links = e.checkSources(ctx, *resp)
	}

	if verifyExplain {
		if rep.Explanation, err = e.explain(ctx, *resp); err != nil {
			return err
		}
	}

	if outMD != "" {
		if err := e.writeFile(outMD, []byte(render.Markdown(rep))); err != nil {
			return err
		}
		if outMD == "-" {
			return nil
		}
		e.logf("✓ Wrote Markdown report: %s\n", outMD)
	}

	if outJSON {
		return render.JSON(e.stdout, rep)
	}
	e.out.Report(rep)
	return nil
}

// withClaim fills in the submitted claim when the backend echoes none,
// so saved history stays searchable
func withClaim(resp *model.VerificationResponse, claim string) {
	if strings.TrimSpace(resp.Claim) == "" {
		resp.Claim = claim
	}
}

// claimFromArgs joins the arguments into one claim; "-" reads stdin
func claimFromArgs(args []string, stdin io.Reader) (string, error) {
	claim := strings.Join(args, " ")
	if claim == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read claim: %w", err)
		}
		claim = string(data)
	}
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return "", fmt.Errorf("claim must not be empty")
	}
	return claim, nil
}

func (e *env) checkSources(ctx context.Context, resp model.VerificationResponse) []linkcheck.Result {
	sources := resp.Sources()
	e.logf("Checking %d cited sources...\n", len(resp.SourceURLs()))
	checker := linkcheck.NewChecker(e.cfg.LinkCheck, e.cfg.API, e.limiter)
	return checker.Check(ctx, sources)
}

func (e *env) explain(ctx context.Context, resp model.VerificationResponse) (*llm.Explanation, error) {
	cfg := llm.ConfigFromModel(e.cfg.LLM)
	if cfg.Provider == "" {
		return nil, fmt.Errorf("--explain needs an LLM provider: set llm.provider (openai or ollama)")
	}
	explainer, err := llm.NewExplainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure LLM: %w", err)
	}
	e.logf("Generating explanation with %s...\n", explainer.ProviderName())
	return explainer.Explain(ctx, resp)
}
