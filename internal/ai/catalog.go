package ai

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	catalogTTL          = 300 * time.Second
	catalogFetchTimeout = 10 * time.Second
)

type catalogKey struct {
	provider   string
	capability string
}

type catalogEntry struct {
	models    []string
	fetchedAt time.Time
}

// Catalog caches the model identifiers each provider exposes, per capability.
// Entries live for five minutes. A stale or missing entry triggers a bounded
// upstream fetch through the provider's adapter; any fetch failure (timeout,
// network, auth, empty result) is converted into a static fallback list that
// is cached with the same TTL. Callers never see an upstream error.
//
// Concurrent refreshes of the same key may both hit the upstream; the
// snapshots are idempotent and last write wins, so the map mutex is held only
// around map access, never across a fetch.
type Catalog struct {
	mu       sync.RWMutex
	entries  map[catalogKey]catalogEntry
	adapters map[string]CatalogAdapter

	ttl time.Duration
	now func() time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{
		entries:  make(map[catalogKey]catalogEntry),
		adapters: make(map[string]CatalogAdapter),
		ttl:      catalogTTL,
		now:      time.Now,
	}
}

func (c *Catalog) RegisterAdapter(provider string, a CatalogAdapter) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapters[provider] = a
}

// ListModels returns the cached catalog for (provider, capability), fetching
// through the registered adapter when the entry is missing or stale.
func (c *Catalog) ListModels(ctx context.Context, provider, capability, apiKey, baseURL string) []string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	key := catalogKey{provider: provider, capability: capability}

	c.mu.RLock()
	entry, ok := c.entries[key]
	adapter := c.adapters[provider]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) <= c.ttl {
		return entry.models
	}

	if adapter == nil {
		// No adapter registered: serve the fallback without caching so a
		// later registration takes effect immediately.
		return fallbackModels(provider, capability)
	}

	fctx, cancel := context.WithTimeout(ctx, catalogFetchTimeout)
	defer cancel()

	models, err := c.fetch(fctx, adapter, capability, apiKey, baseURL)
	if err != nil || len(models) == 0 {
		models = fallbackModels(provider, capability)
	}

	c.mu.Lock()
	c.entries[key] = catalogEntry{models: models, fetchedAt: c.now()}
	c.mu.Unlock()

	return models
}

func (c *Catalog) fetch(ctx context.Context, adapter CatalogAdapter, capability, apiKey, baseURL string) ([]string, error) {
	if capability == CapabilityEmbedding {
		return adapter.FetchEmbeddingModels(ctx, apiKey, baseURL)
	}
	return adapter.FetchLLMModels(ctx, apiKey, baseURL)
}

func fallbackModels(provider, capability string) []string {
	if capability == CapabilityEmbedding {
		switch provider {
		case "gemini":
			return []string{"models/embedding-001"}
		case "ollama":
			return []string{"nomic-embed-text"}
		case "openrouter":
			return []string{"openai/text-embedding-3-small"}
		default:
			return []string{"text-embedding-3-small", "text-embedding-3-large"}
		}
	}
	switch provider {
	case "gemini":
		return []string{"gemini-2.5-pro", "gemini-2.0-flash-exp", "gemini-1.5-flash", "gemini-1.5-pro"}
	case "ollama":
		return []string{"llama3:latest"}
	case "openrouter":
		return []string{"openrouter/auto"}
	default:
		return []string{"gpt-4o", "gpt-4o-mini", "gpt-4o-mini-translate"}
	}
}
