package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func anthropicResponse(blocks ...map[string]any) map[string]any {
	if blocks == nil {
		blocks = []map[string]any{}
	}
	return map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-3-5-haiku-20241022",
		"content":       blocks,
		"stop_reason":   "end_turn",
		"stop_sequence": "",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 2,
		},
	}
}

func TestAnthropicCompleteSeparatesSystemPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")

		var req struct {
			Model     string `json:"model"`
			MaxTokens int64  `json:"max_tokens"`
			System    []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.MaxTokens != anthropicDefaultMaxTokens {
			t.Fatalf("expected default max_tokens %d, got %d", anthropicDefaultMaxTokens, req.MaxTokens)
		}
		if len(req.System) != 1 || req.System[0].Text != "score strictly" {
			t.Fatalf("expected system prompt in top-level system field, got %#v", req.System)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "user" || req.Messages[1].Role != "assistant" {
			t.Fatalf("unexpected chat roles: %#v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(anthropicResponse(
			map[string]any{"type": "text", "text": " hello "},
			map[string]any{"type": "text", "text": "world"},
		))
	}))
	defer server.Close()

	client, err := newAnthropicClient("test-key", "claude-3-5-haiku-20241022", &clientOptions{baseURL: server.URL})
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "score strictly"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("expected combined trimmed text, got %q", got)
	}
}

func TestAnthropicCompleteEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(anthropicResponse())
	}))
	defer server.Close()

	client, err := newAnthropicClient("test-key", "claude-3-5-haiku-20241022", &clientOptions{baseURL: server.URL})
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "hello"}})
	if err == nil {
		t.Fatal("expected error for empty content, got nil")
	}
	if !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("expected 'empty response' in error, got %q", err.Error())
	}
}

func TestAnthropicMaxTokensOption(t *testing.T) {
	var captured int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var req struct {
			MaxTokens int64 `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		captured = req.MaxTokens

		_ = json.NewEncoder(w).Encode(anthropicResponse(map[string]any{"type": "text", "text": "ok"}))
	}))
	defer server.Close()

	client, err := newAnthropicClient("test-key", "claude-3-5-haiku-20241022", &clientOptions{baseURL: server.URL, maxTokens: 512})
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	if _, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hello"}}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if captured != 512 {
		t.Fatalf("expected max_tokens 512, got %d", captured)
	}
}
