package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// NewProvider creates a provider from configuration. It returns nil when no
// provider is configured.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:       c.Provider,
		Model:          c.Model,
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		Timeout:        c.Timeout,
		StrictEvidence: c.StrictEvidence,
		MaxTokens:      c.MaxTokens,
	}
}
