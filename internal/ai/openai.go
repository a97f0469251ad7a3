package ai

import (
	"context"
	"errors"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider answers chat requests through the OpenAI API (or any
// OpenAI-compatible endpoint when a base URL is supplied).
type OpenAIProvider struct {
	Model  string
	client *openai.Client
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

func NewOpenAIProvider(model, apiKey, baseURL string) *OpenAIProvider {
	if strings.TrimSpace(model) == "" {
		model = DefaultLLMModel
	}
	return &OpenAIProvider{Model: model, client: newOpenAIClient(apiKey, baseURL)}
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.Model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAICatalog lists the models an OpenAI account can reach. Credentials
// vary per caller, so a client is built per fetch.
type OpenAICatalog struct{}

func (OpenAICatalog) FetchLLMModels(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	return fetchOpenAIModels(ctx, apiKey, baseURL, "gpt")
}

func (OpenAICatalog) FetchEmbeddingModels(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	return fetchOpenAIModels(ctx, apiKey, baseURL, "embedding")
}

func fetchOpenAIModels(ctx context.Context, apiKey, baseURL, substr string) ([]string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}

	list, err := newOpenAIClient(apiKey, baseURL).ListModels(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		if !strings.Contains(m.ID, substr) {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m.ID)
	}
	sort.Strings(out)
	return out, nil
}
