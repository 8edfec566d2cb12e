package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/clearview/internal/model"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-123",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			}},
			Usage: openai.Usage{TotalTokens: 100},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func sampleResult() model.VerificationResponse {
	return model.VerificationResponse{
		Claim:      "Vaccines are safe",
		Verdict:    "Mostly True",
		Confidence: 0.85,
		ExternalSources: []model.SourceRef{
			{Title: "CDC", URL: "https://www.cdc.gov/vaccines", TrustScore: model.Score(0.95)},
		},
		Reasoning: "Large studies show a strong safety record.",
	}
}

func TestOpenAIProvider_Explain_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Authorization Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("expected model gpt-4o-mini, got %s", req.Model)
		}
		if !strings.Contains(req.Messages[1].Content, "https://www.cdc.gov/vaccines") {
			t.Error("expected prompt to list the allowed URL")
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Content: "Safety data is strong (https://www.cdc.gov/vaccines)."},
			}},
			Usage: openai.Usage{TotalTokens: 42},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini", Timeout: 5, StrictEvidence: true})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	result := sampleResult()
	resp, err := provider.Explain(context.Background(), ExplainRequest{Result: result, SourceURLs: result.SourceURLs()})
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if len(resp.CitedURLs) != 1 || resp.CitedURLs[0] != "https://www.cdc.gov/vaccines" {
		t.Errorf("unexpected cited URLs: %v", resp.CitedURLs)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("expected 42 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Explain_CitationLeak(t *testing.T) {
	server := chatServer(t, "See https://random-blog.example/post for more.")
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5, StrictEvidence: true})
	result := sampleResult()
	_, err := provider.Explain(context.Background(), ExplainRequest{Result: result, SourceURLs: result.SourceURLs()})
	if !errors.Is(err, ErrCitationLeak) {
		t.Fatalf("expected ErrCitationLeak, got %v", err)
	}
}

func TestOpenAIProvider_Explain_LeakAllowedWhenNotStrict(t *testing.T) {
	server := chatServer(t, "See https://random-blog.example/post for more.")
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	if _, err := provider.Explain(context.Background(), ExplainRequest{Result: sampleResult()}); err != nil {
		t.Fatalf("expected no error without strict mode, got %v", err)
	}
}

func TestOpenAIProvider_Explain_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": {"message": "Internal Server Error", "type": "server_error"}}`},
		{"rate limit", http.StatusTooManyRequests, `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`},
		{"malformed", http.StatusOK, `{malformed json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
			if _, err := provider.Explain(context.Background(), ExplainRequest{Result: sampleResult()}); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestOpenAIProvider_Explain_HonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := provider.Explain(ctx, ExplainRequest{Result: sampleResult()}); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("expected provider to be available")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if provider.IsAvailable(context.Background()) {
		t.Error("expected provider to be unavailable on error")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"disabled", Config{}, "", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"openai without key", Config{Provider: "OpenAI"}, "", true},
		{"ollama", Config{Provider: "ollama", Model: "llama3.1"}, "ollama", false},
		{"ollama without model", Config{Provider: "ollama"}, "", true},
		{"unknown", Config{Provider: "gemini"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantName == "" {
				if p != nil {
					t.Errorf("expected nil provider, got %s", p.Name())
				}
				return
			}
			if p == nil || p.Name() != tt.wantName {
				t.Errorf("expected provider %s, got %v", tt.wantName, p)
			}
		})
	}
}

func TestOllamaProvider_UsesCompatEndpoint(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{Model: "llama3.1", BaseURL: server.URL + "/v1", Timeout: 5})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := provider.Explain(context.Background(), ExplainRequest{Result: sampleResult()})
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("expected /v1/chat/completions, got %s", gotPath)
	}
	if resp.Model != "llama3.1" {
		t.Errorf("expected model llama3.1, got %s", resp.Model)
	}
}

func TestExtractURLs(t *testing.T) {
	text := "See https://a.example/x, and (https://b.example/y). Again https://a.example/x."
	got := extractURLs(text)
	want := []string{"https://a.example/x", "https://b.example/y"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("url %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
