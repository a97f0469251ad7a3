package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestOllamaProviderChat(t *testing.T) {
	var gotReq ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResp{Message: Message{Role: "assistant", Content: "hi there"}})
	}))
	defer srv.Close()

	p := NewOllamaProvider("llama3:latest", srv.URL)
	reply, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if gotReq.Stream {
		t.Fatalf("expected non-streaming request")
	}
	if gotReq.Model != "llama3:latest" || len(gotReq.Messages) != 1 {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
}

func TestOllamaProviderChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResp{Error: "model not found"})
	}))
	defer srv.Close()

	p := NewOllamaProvider("missing:latest", srv.URL)
	if _, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatalf("expected upstream error")
	}
}

func TestOllamaCatalogFetchTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"nomic-embed-text"},{"name":""}]}`))
	}))
	defer srv.Close()

	cat := NewOllamaCatalog()
	got, err := cat.FetchLLMModels(context.Background(), "", srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []string{"llama3:latest", "nomic-embed-text"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// both capabilities serve the same tag list
	emb, err := cat.FetchEmbeddingModels(context.Background(), "", srv.URL)
	if err != nil {
		t.Fatalf("fetch embedding: %v", err)
	}
	if !reflect.DeepEqual(emb, want) {
		t.Fatalf("embedding got %v, want %v", emb, want)
	}
}

func TestOllamaCatalogStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cat := NewOllamaCatalog()
	if _, err := cat.FetchLLMModels(context.Background(), "", srv.URL); err == nil {
		t.Fatalf("expected status error")
	}
}
