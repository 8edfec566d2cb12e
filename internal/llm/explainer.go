package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// Explanation is an optional generated explanation attached to a result.
// It never changes the verdict.
type Explanation struct {
	Enabled        bool     `json:"enabled"`
	Provider       string   `json:"provider,omitempty"`
	Model          string   `json:"model,omitempty"`
	StrictEvidence bool     `json:"strict_evidence"`
	Text           string   `json:"text,omitempty"`
	CitedURLs      []string `json:"cited_urls,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Explainer wraps a provider; a nil provider disables it
type Explainer struct {
	provider Provider
	config   Config
}

// NewExplainer creates an explainer from configuration
func NewExplainer(config Config) (*Explainer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Explainer{provider: provider, config: config}, nil
}

// NewExplainerWithProvider creates an explainer around an existing provider
func NewExplainerWithProvider(provider Provider, config Config) *Explainer {
	return &Explainer{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (e *Explainer) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (e *Explainer) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// Explain explains result. It returns nil when disabled. Provider problems
// are reported as warnings on a disabled Explanation rather than as errors.
func (e *Explainer) Explain(ctx context.Context, result model.VerificationResponse) (*Explanation, error) {
	if !e.IsEnabled() {
		return nil, nil
	}

	out := &Explanation{
		Provider:       e.provider.Name(),
		StrictEvidence: e.config.StrictEvidence,
	}

	if !e.provider.IsAvailable(ctx) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("LLM provider %q is not available", out.Provider))
		return out, nil
	}

	urls := result.SourceURLs()
	resp, err := e.provider.Explain(ctx, ExplainRequest{
		Result:     result,
		SourceURLs: urls,
		Model:      e.config.Model,
		MaxTokens:  e.config.MaxTokens,
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("explanation failed: %v", err))
		return out, nil
	}

	out.Enabled = true
	out.Model = resp.Model
	out.Text = resp.Text
	out.CitedURLs = resp.CitedURLs
	if resp.TokensUsed > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	return out, nil
}

// Markdown renders the explanation as a separate, clearly labelled section
func (x *Explanation) Markdown() string {
	if x == nil || !x.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Explanation\n\n")
	b.WriteString("> GENERATED CONTENT. The verdict above was determined independently by the fact-checking service.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", x.Provider)
	if x.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", x.Model)
	}
	fmt.Fprintf(&b, "- **Strict Evidence Mode**: %t\n\n", x.StrictEvidence)

	if x.Text == "" {
		b.WriteString("_No explanation generated._\n")
	} else {
		b.WriteString(x.Text)
		b.WriteString("\n")
	}

	if len(x.Warnings) > 0 {
		b.WriteString("\n### Notes\n\n")
		for _, w := range x.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
