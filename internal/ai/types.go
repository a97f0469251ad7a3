package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider answers a chat exchange with a single completion.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// CatalogAdapter fetches the model identifiers a provider currently exposes.
// Implementations may fail on network or auth errors; the catalog cache is
// responsible for converting failures into fallback results.
type CatalogAdapter interface {
	FetchLLMModels(ctx context.Context, apiKey, baseURL string) ([]string, error)
	FetchEmbeddingModels(ctx context.Context, apiKey, baseURL string) ([]string, error)
}

const (
	CapabilityLLM       = "llm"
	CapabilityEmbedding = "embedding"
)
