package ai

import "strings"

const (
	DefaultLLMProvider       = "openai"
	DefaultLLMModel          = "gpt-4o-mini"
	DefaultEmbeddingProvider = "openai"
	DefaultEmbeddingModel    = "text-embedding-3-small"
)

// ProviderConfig carries the credentials and model selection a principal uses
// for generation and embedding. All fields are optional except the provider
// and model pairs, which default when absent.
type ProviderConfig struct {
	LLMProvider string `json:"llm_provider,omitempty"`
	LLMModel    string `json:"llm_model,omitempty"`
	LLMAPIKey   string `json:"llm_api_key,omitempty"`
	LLMBaseURL  string `json:"llm_base_url,omitempty"`

	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`
	EmbeddingAPIKey   string `json:"embedding_api_key,omitempty"`
	EmbeddingBaseURL  string `json:"embedding_base_url,omitempty"`
}

func (c ProviderConfig) IsZero() bool {
	return c == ProviderConfig{}
}

// WithDefaults fills the provider/model pairs that are absent.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if strings.TrimSpace(c.LLMProvider) == "" {
		c.LLMProvider = DefaultLLMProvider
	}
	if strings.TrimSpace(c.LLMModel) == "" {
		c.LLMModel = DefaultLLMModel
	}
	if strings.TrimSpace(c.EmbeddingProvider) == "" {
		c.EmbeddingProvider = DefaultEmbeddingProvider
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	return c
}

// Validate checks a guest-supplied config at ingress and returns per-field
// error messages, or nil when the config is acceptable.
func (c ProviderConfig) Validate() map[string]string {
	errs := map[string]string{}
	c = c.WithDefaults()

	switch strings.ToLower(c.LLMProvider) {
	case "openai":
		if c.LLMAPIKey != "" && !strings.HasPrefix(c.LLMAPIKey, "sk-") {
			errs["llm_api_key"] = "openai api keys start with sk-"
		}
	case "gemini", "ollama", "openrouter":
	default:
		errs["llm_provider"] = "unknown llm provider"
	}

	switch strings.ToLower(c.EmbeddingProvider) {
	case "openai":
		if c.EmbeddingAPIKey != "" && !strings.HasPrefix(c.EmbeddingAPIKey, "sk-") {
			errs["embedding_api_key"] = "openai api keys start with sk-"
		}
	case "gemini", "ollama", "openrouter":
	default:
		errs["embedding_provider"] = "unknown embedding provider"
	}

	if c.LLMBaseURL != "" && !strings.HasPrefix(c.LLMBaseURL, "http") {
		errs["llm_base_url"] = "base url must start with http"
	}
	if c.EmbeddingBaseURL != "" && !strings.HasPrefix(c.EmbeddingBaseURL, "http") {
		errs["embedding_base_url"] = "base url must start with http"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
