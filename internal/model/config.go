package model

import "time"

// Config holds the complete client configuration
type Config struct {
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LinkCheck    LinkCheckConfig    `yaml:"link_check" mapstructure:"link_check"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// APIConfig configures access to the fact-checking backend
type APIConfig struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UploadTimeout time.Duration `yaml:"upload_timeout" mapstructure:"upload_timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"` // empty = $NO_PROXY
}

// StorageConfig locates the local persistent storage
type StorageConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // empty = $HOME/.clearview/storage
}

// HistoryConfig controls the local fact-check history
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ConcurrencyConfig bounds parallel work in batch commands
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig limits outgoing requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LinkCheckConfig controls reachability checks of cited sources
type LinkCheckConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	Workers       int           `yaml:"workers" mapstructure:"workers"`

	// Hosts (and their subdomains) ranked as primary or secondary sources
	PrimaryDomains   []string `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string `yaml:"secondary_domains" mapstructure:"secondary_domains"`
}

// LLMConfig configures the optional plain-language explanation
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // "", openai, ollama
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"-" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	StrictEvidence bool   `yaml:"strict_evidence" mapstructure:"strict_evidence"`
}

// OutputConfig controls terminal output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	Color   bool `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       "http://localhost:8000",
			Timeout:       30 * time.Second,
			UploadTimeout: 60 * time.Second,
			UserAgent:     "ClearView-CLI/0.1 (+https://github.com/ppiankov/clearview)",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		LinkCheck: LinkCheckConfig{
			Enabled:       false,
			Timeout:       10 * time.Second,
			RespectRobots: true,
			Workers:       8,
			PrimaryDomains: []string{
				"who.int", "cdc.gov", "nih.gov", "europa.eu",
				"legislation.gov.uk", "doi.org", "arxiv.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "britannica.com", "reuters.com", "apnews.com", "bbc.co.uk",
			},
		},
		LLM: LLMConfig{
			Timeout:        30,
			MaxTokens:      600,
			StrictEvidence: true,
		},
		Output: OutputConfig{
			Color: true,
		},
	}
}
