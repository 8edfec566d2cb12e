package llm

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultOllamaURL is Ollama's OpenAI-compatible endpoint
const DefaultOllamaURL = "http://localhost:11434/v1"

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"]+`)

// OpenAIProvider implements Provider over the OpenAI chat completions API.
// Any OpenAI-compatible server (Ollama included) works through BaseURL.
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIProvider creates an OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newCompatProvider("openai", config), nil
}

// NewOllamaProvider creates a provider for a local Ollama server. No API key is needed.
func NewOllamaProvider(config Config) (*OpenAIProvider, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model is required (e.g. llama3.1)")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultOllamaURL
	}
	if config.APIKey == "" {
		config.APIKey = "ollama"
	}
	return newCompatProvider("ollama", config), nil
}

func newCompatProvider(name string, config Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   name,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable lists models as a lightweight reachability check
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Explain generates an explanation with the chat completions API
func (p *OpenAIProvider) Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Result, req.SourceURLs)
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 600
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You explain fact-check results using only the evidence you are given.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	cited := extractURLs(text)

	if p.config.StrictEvidence {
		for _, u := range cited {
			if !slices.Contains(req.SourceURLs, u) {
				return nil, fmt.Errorf("%w: %s", ErrCitationLeak, u)
			}
		}
	}

	return &ExplainResponse{
		Text:       text,
		CitedURLs:  cited,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// extractURLs returns the distinct http(s) URLs in text
func extractURLs(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}
