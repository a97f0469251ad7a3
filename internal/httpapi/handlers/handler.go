package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reloadggg/chatbot-rag/internal/ai"
	"github.com/reloadggg/chatbot-rag/internal/auth"
	"github.com/reloadggg/chatbot-rag/internal/chat"
	"github.com/reloadggg/chatbot-rag/internal/common"
	"github.com/reloadggg/chatbot-rag/internal/config"
	"github.com/reloadggg/chatbot-rag/internal/session"
	"github.com/reloadggg/chatbot-rag/internal/store/rabbitmq"
	"github.com/reloadggg/chatbot-rag/internal/store/redisstore"
)

type Handler struct {
	DB            *gorm.DB
	Cfg           config.Config
	Auth          *auth.Manager
	Sessions      *session.Store
	Conversations *chat.Store
	ChatSvc       *chat.Service
	Catalog       *ai.Catalog

	// Jobs is nil when async queries are disabled; Redis is nil when no
	// redis address is configured (login throttling off).
	Jobs  *rabbitmq.Publisher
	Redis *redisstore.Store
}

func NewHandler(gdb *gorm.DB, cfg config.Config, jobs *rabbitmq.Publisher, rds *redisstore.Store) (*Handler, error) {
	codec, err := auth.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(gdb)
	conversations := chat.NewStore(gdb)
	mgr := auth.NewManager(codec, sessions, cfg.SystemPassword, OperatorConfig(cfg))

	registry := NewRegistry(cfg)
	svc := chat.NewService(conversations, registry, cfg.ChatContextWindowSize)

	return &Handler{
		DB:            gdb,
		Cfg:           cfg,
		Auth:          mgr,
		Sessions:      sessions,
		Conversations: conversations,
		ChatSvc:       svc,
		Catalog:       NewCatalog(),
		Jobs:          jobs,
		Redis:         rds,
	}, nil
}

// OperatorConfig builds the provider config system principals resolve to.
func OperatorConfig(cfg config.Config) ai.ProviderConfig {
	return ai.ProviderConfig{
		LLMProvider:       cfg.LLMProvider,
		LLMModel:          cfg.LLMModel,
		LLMAPIKey:         cfg.LLMAPIKey,
		LLMBaseURL:        cfg.LLMBaseURL,
		EmbeddingProvider: cfg.EmbeddingProvider,
		EmbeddingModel:    cfg.EmbeddingModel,
		EmbeddingAPIKey:   cfg.EmbeddingAPIKey,
		EmbeddingBaseURL:  cfg.EmbeddingBaseURL,
	}
}

// NewRegistry wires a chat provider factory per supported provider.
func NewRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("openai", func(model, apiKey, baseURL string) (ai.Provider, error) {
		return ai.NewOpenAIProvider(model, apiKey, baseURL), nil
	})
	reg.Register("gemini", func(model, apiKey, baseURL string) (ai.Provider, error) {
		if apiKey == "" {
			apiKey = cfg.GeminiAPIKey
		}
		if baseURL == "" {
			baseURL = cfg.GeminiBaseURL
		}
		return ai.NewGeminiProvider(model, apiKey, baseURL), nil
	})
	reg.Register("ollama", func(model, apiKey, baseURL string) (ai.Provider, error) {
		if baseURL == "" {
			baseURL = cfg.OllamaBaseURL
		}
		return ai.NewOllamaProvider(model, baseURL), nil
	})
	reg.Register("openrouter", func(model, apiKey, baseURL string) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(model, apiKey, baseURL), nil
	})
	return reg
}

// NewCatalog wires a catalog adapter per supported provider.
func NewCatalog() *ai.Catalog {
	cat := ai.NewCatalog()
	cat.RegisterAdapter("openai", ai.OpenAICatalog{})
	cat.RegisterAdapter("gemini", ai.NewGeminiCatalog())
	cat.RegisterAdapter("ollama", ai.NewOllamaCatalog())
	cat.RegisterAdapter("openrouter", ai.NewOpenRouterCatalog())
	return cat
}

func (h *Handler) Healthz(c *gin.Context) {
	common.OK(c, gin.H{
		"status":          "ok",
		"llm_model":       h.Cfg.LLMModel,
		"embedding_model": h.Cfg.EmbeddingModel,
	})
}

// authorizeSession applies the ownership rule: a guest may only address the
// session id embedded in its own claims; a system principal may address any.
func authorizeSession(claims *auth.Claims, sessionID string) bool {
	if claims.UserType == auth.UserTypeSystem {
		return true
	}
	return claims.UserType == auth.UserTypeGuest && claims.SessionID == sessionID
}

func forbidden(c *gin.Context) {
	common.Fail(c, http.StatusForbidden, 40301, "forbidden")
}
