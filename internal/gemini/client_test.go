package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1735689600,
		"model":   "gemini-2.0-flash",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerate_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer test-key, got %q", r.Header.Get("Authorization"))
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("**world**"))
	})

	got, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "**world**" {
		t.Errorf("expected '**world**', got %q", got)
	}
}

func TestGenerate_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded", "type": "unavailable"},
		})
	})

	_, err := c.Generate(context.Background(), "hi")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Model != "test-model" {
		t.Errorf("expected GenerationError for test-model, got %#v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one call, got %d", calls.Load())
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("   "))
	})

	if _, err := c.Generate(context.Background(), "hi"); !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration for blank content, got %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := completion("")
		body["choices"] = []any{}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	})

	if _, err := c.Generate(context.Background(), "hi"); !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration for no choices, got %v", err)
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: url + "/"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Generate(context.Background(), "hi"); !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration when unreachable, got %v", err)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
	c, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Model() != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, c.Model())
	}
}
