package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reloadggg/chatbot-rag/internal/ai"
	"github.com/reloadggg/chatbot-rag/internal/common"
	"github.com/reloadggg/chatbot-rag/internal/httpapi/middleware"
)

var catalogProviders = []string{"openai", "gemini", "ollama", "openrouter"}

type providerEntry struct {
	Name      string   `json:"name"`
	Models    []string `json:"models"`
	Available bool     `json:"available"`
}

// ListProviders reports the model catalog per provider and capability.
//
// Credential precedence: the principal's own key applies when that provider
// is the one its config selects; otherwise the operator key for the provider
// is used. Ollama needs no key at all.
func (h *Handler) ListProviders(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	cfg, err := h.Auth.ResolveEffectiveConfig(c.Request.Context(), claims)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to resolve config")
		return
	}

	llm := make([]providerEntry, 0, len(catalogProviders))
	embedding := make([]providerEntry, 0, len(catalogProviders))
	for _, name := range catalogProviders {
		key, baseURL := h.credentialsFor(name, cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMBaseURL)
		llm = append(llm, providerEntry{
			Name:      name,
			Models:    h.Catalog.ListModels(c.Request.Context(), name, ai.CapabilityLLM, key, baseURL),
			Available: key != "" || name == "ollama",
		})

		key, baseURL = h.credentialsFor(name, cfg.EmbeddingProvider, cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL)
		embedding = append(embedding, providerEntry{
			Name:      name,
			Models:    h.Catalog.ListModels(c.Request.Context(), name, ai.CapabilityEmbedding, key, baseURL),
			Available: key != "" || name == "ollama",
		})
	}

	common.OK(c, gin.H{
		"llm_providers":       llm,
		"embedding_providers": embedding,
	})
}

func (h *Handler) credentialsFor(provider, selectedProvider, selectedKey, selectedBaseURL string) (key, baseURL string) {
	if selectedProvider == provider {
		key = selectedKey
		baseURL = selectedBaseURL
	}
	if key == "" {
		switch {
		case provider == h.Cfg.LLMProvider:
			key = h.Cfg.LLMAPIKey
		case provider == "gemini":
			key = h.Cfg.GeminiAPIKey
		}
	}
	if baseURL == "" {
		switch provider {
		case h.Cfg.LLMProvider:
			baseURL = h.Cfg.LLMBaseURL
		case "gemini":
			baseURL = h.Cfg.GeminiBaseURL
		case "ollama":
			baseURL = h.Cfg.OllamaBaseURL
		}
	}
	return key, baseURL
}
