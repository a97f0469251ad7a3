package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewOpenRouterProvider(model, apiKey, baseURL string) *OpenRouterProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = "openrouter/auto"
	}
	return &OpenRouterProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type openRouterChatReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type openRouterChatResp struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return "", errors.New("openrouter: api key is required")
	}

	body, err := json.Marshal(openRouterChatReq{Model: p.Model, Messages: messages, Stream: false})
	if err != nil {
		return "", err
	}

	u := strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(detail))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("openrouter: %s", msg)
	}

	var decoded openRouterChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openrouter: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}

// OpenRouterCatalog lists the model ids exposed by the OpenRouter /models
// endpoint. The endpoint does not require credentials.
type OpenRouterCatalog struct {
	Client *http.Client
}

func NewOpenRouterCatalog() *OpenRouterCatalog {
	return &OpenRouterCatalog{Client: &http.Client{}}
}

type openRouterModelsResp struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (o *OpenRouterCatalog) FetchLLMModels(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	models, err := o.fetch(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	out := models[:0]
	for _, id := range models {
		if !strings.Contains(id, "embedding") {
			out = append(out, id)
		}
	}
	return out, nil
}

func (o *OpenRouterCatalog) FetchEmbeddingModels(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	models, err := o.fetch(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	out := models[:0]
	for _, id := range models {
		if strings.Contains(id, "embedding") {
			out = append(out, id)
		}
	}
	return out, nil
}

func (o *OpenRouterCatalog) fetch(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	u := strings.TrimRight(baseURL, "/") + "/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openrouter: status %d", resp.StatusCode)
	}

	var decoded openRouterModelsResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(decoded.Data))
	for _, m := range decoded.Data {
		if m.ID != "" {
			out = append(out, m.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}
