package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockProvider struct {
	name      string
	available bool
	response  *ExplainResponse
	err       error
	lastReq   ExplainRequest
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return m.available }

func TestNewExplainer_Disabled(t *testing.T) {
	e, err := NewExplainer(DefaultConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.IsEnabled() || e.ProviderName() != "" {
		t.Error("expected explainer to be disabled")
	}

	x, err := e.Explain(context.Background(), sampleResult())
	if err != nil || x != nil {
		t.Errorf("expected nil explanation when disabled, got %+v, %v", x, err)
	}
}

func TestExplainer_ProviderUnavailable(t *testing.T) {
	e := NewExplainerWithProvider(&mockProvider{name: "test"}, DefaultConfig())

	x, err := e.Explain(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if x.Enabled {
		t.Error("expected explanation to be marked disabled")
	}
	if len(x.Warnings) == 0 || !strings.Contains(x.Warnings[0], "not available") {
		t.Errorf("expected availability warning, got %v", x.Warnings)
	}
}

func TestExplainer_ProviderError(t *testing.T) {
	p := &mockProvider{name: "test", available: true, err: errors.New("boom")}
	x, err := NewExplainerWithProvider(p, DefaultConfig()).Explain(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if x.Enabled || len(x.Warnings) == 0 || !strings.Contains(x.Warnings[0], "boom") {
		t.Errorf("expected failure warning, got %+v", x)
	}
}

func TestExplainer_Success(t *testing.T) {
	p := &mockProvider{
		name:      "test",
		available: true,
		response:  &ExplainResponse{Text: "Plain words.", Model: "m", TokensUsed: 12},
	}
	x, err := NewExplainerWithProvider(p, DefaultConfig()).Explain(context.Background(), sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if !x.Enabled || x.Text != "Plain words." || x.Provider != "test" {
		t.Errorf("unexpected explanation %+v", x)
	}
	if len(p.lastReq.SourceURLs) != 1 || p.lastReq.SourceURLs[0] != "https://www.cdc.gov/vaccines" {
		t.Errorf("expected allowlist from the result's sources, got %v", p.lastReq.SourceURLs)
	}

	md := x.Markdown()
	for _, want := range []string{"## Explanation", "GENERATED CONTENT", "determined independently", "Plain words.", "Tokens used: 12"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q", want)
		}
	}
}

func TestExplanation_MarkdownDisabled(t *testing.T) {
	var nilX *Explanation
	if nilX.Markdown() != "" {
		t.Error("expected empty markdown for nil")
	}
	if (&Explanation{}).Markdown() != "" {
		t.Error("expected empty markdown when disabled")
	}
	if md := (&Explanation{Enabled: true, Provider: "p"}).Markdown(); !strings.Contains(md, "No explanation generated") {
		t.Errorf("expected placeholder, got %q", md)
	}
}

func TestBuildPrompt(t *testing.T) {
	result := sampleResult()
	prompt := BuildPrompt(result, result.SourceURLs())
	for _, want := range []string{"Vaccines are safe", "Mostly True", "85%", "https://www.cdc.gov/vaccines", "trust 0.95"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}

	if empty := BuildPrompt(result, nil); !strings.Contains(empty, "No source URLs available") {
		t.Error("expected empty-allowlist marker")
	}

	many := make([]string, 25)
	for i := range many {
		many[i] = "https://example.com/" + string(rune('a'+i))
	}
	if !strings.Contains(joinURLs(many), "and 5 more URLs") {
		t.Error("expected URL list to be truncated")
	}
}
