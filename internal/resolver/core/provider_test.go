package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Jaden-Nix/swarmverify/config"
)

func TestNewLLMProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewLLMProvider(config.LLMConfig{Provider: "openai"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if _, err := NewLLMProvider(config.LLMConfig{Provider: "carrier-pigeon"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestOpenAIProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("authorization = %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("messages = %+v", req.Messages)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"OUTCOME: YES"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.LLMConfig{
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, "test-key")

	text, err := p.Generate(context.Background(), "system instruction", "user prompt", GenerateOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "OUTCOME: YES" {
		t.Fatalf("text = %q", text)
	}
}

func TestOpenAIProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.LLMConfig{Model: "m", BaseURL: srv.URL, Timeout: 5 * time.Second}, "k")
	if _, err := p.Generate(context.Background(), "s", "u", GenerateOptions{}); err == nil {
		t.Fatalf("expected error on 429")
	}
}
