package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// ErrCitationLeak is returned when a model cites a URL outside the allowlist
var ErrCitationLeak = errors.New("model cited a URL outside the result's sources")

// Provider generates plain-language explanations of verification results
type Provider interface {
	// Name returns the provider name
	Name() string

	// Explain explains a verdict using only the result's own sources
	Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error)

	// IsAvailable checks that the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// ExplainRequest is the input of an explanation
type ExplainRequest struct {
	Result model.VerificationResponse

	// SourceURLs is the strict allowlist of URLs the model may cite
	SourceURLs []string

	// Prompt overrides the default prompt
	Prompt string

	Model     string
	MaxTokens int
}

// ExplainResponse is the model output
type ExplainResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "" (disabled)
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout in seconds
	Timeout int

	// StrictEvidence rejects answers citing URLs outside the allowlist
	StrictEvidence bool

	MaxTokens int
}

// DefaultConfig returns the defaults (disabled)
func DefaultConfig() Config {
	return Config{
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      600,
	}
}

// BuildPrompt constructs the default explanation prompt
func BuildPrompt(result model.VerificationResponse, sourceURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are explaining the outcome of an automated fact-check to a non-expert reader.

RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. Do not cite or invent any other source.
3. Do not change or second-guess the verdict; explain how the cited sources bear on it.
4. If the sources are thin or conflicting, say so plainly.

Claim: %q
Verdict: %s
Confidence: %.0f%%
Conflicting sources: %t
Backend reasoning:
%s
`, joinURLs(sourceURLs), result.Claim, result.Verdict.Label(), result.Confidence*100, result.ConflictsFound, strings.TrimSpace(result.Reasoning))

	sources := result.Sources()
	if len(sources) > 0 {
		b.WriteString("\nSources:\n")
	}
	for i, s := range sources {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)", s.Title, s.URL)
		if s.TrustScore != nil {
			fmt.Fprintf(&b, " trust %.2f", *s.TrustScore)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nWrite a 3-4 sentence explanation in plain language.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No source URLs available)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 20 {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", u)
	}
	return b.String()
}
