package chat

import (
	"context"
	"errors"

	"github.com/reloadggg/chatbot-rag/internal/ai"
)

// ErrEmptyQuestion is returned when a question is blank after trimming.
var ErrEmptyQuestion = errors.New("question is empty")

// Service runs the question/answer round-trip for a conversation: append the
// user message, call the provider the effective config selects with a bounded
// history window, append the assistant reply.
type Service struct {
	store             *Store
	registry          *ai.Registry
	contextWindowSize int
}

func NewService(store *Store, registry *ai.Registry, contextWindowSize int) *Service {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	return &Service{store: store, registry: registry, contextWindowSize: contextWindowSize}
}

func (s *Service) Answer(ctx context.Context, sessionID, userType, question string, cfg ai.ProviderConfig) (reply string, assistantMsgID uint64, err error) {
	cfg = cfg.WithDefaults()

	provider, err := s.registry.Get(cfg.LLMProvider, cfg.LLMModel, cfg.LLMAPIKey, cfg.LLMBaseURL)
	if err != nil {
		return "", 0, err
	}

	userMsg, err := s.store.AppendMessage(ctx, sessionID, "user", question, userType)
	if err != nil {
		return "", 0, err
	}
	if userMsg == nil {
		return "", 0, ErrEmptyQuestion
	}

	recentDesc, err := s.store.ListRecentDesc(ctx, sessionID, s.contextWindowSize)
	if err != nil {
		return "", 0, err
	}

	// reverse to ASC (oldest -> newest) for the provider
	history := make([]ai.Message, 0, len(recentDesc))
	for i := len(recentDesc) - 1; i >= 0; i-- {
		m := recentDesc[i]
		history = append(history, ai.Message{Role: m.Role, Content: m.Content})
	}

	reply, err = provider.Chat(ctx, history)
	if err != nil {
		return "", 0, err
	}

	assistantMsg, err := s.store.AppendMessage(ctx, sessionID, "assistant", reply, userType)
	if err != nil {
		return "", 0, err
	}
	if assistantMsg == nil {
		return reply, 0, nil
	}
	return reply, assistantMsg.ID, nil
}
