package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/Jaden-Nix/swarmverify/config"
)

// ErrProviderUnavailable is the single configuration-fatal error class: the
// reasoning backend cannot be reached at all, so no resolution is possible.
var ErrProviderUnavailable = errors.New("reasoning backend unavailable or unconfigured")

// NewLLMProvider creates the reasoning-backend client from configuration.
func NewLLMProvider(cfg config.LLMConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case "", "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: no API key configured", ErrProviderUnavailable)
		}
		return NewOpenAIProvider(cfg, apiKey), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider type %q", ErrProviderUnavailable, cfg.Provider)
	}
}

// OpenAIProvider implements LLMProvider against an OpenAI-compatible chat
// completions endpoint.
type OpenAIProvider struct {
	cfg    config.LLMConfig
	apiKey string
	client *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(cfg config.LLMConfig, apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		cfg:    cfg,
		apiKey: apiKey,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Generate sends a system-instruction/user-prompt pair and returns the raw
// completion text.
func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error) {
	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type chatReq struct {
		Model       string    `json:"model"`
		Messages    []chatMsg `json:"messages"`
		Temperature float64   `json:"temperature,omitempty"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
	}

	temperature := p.cfg.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := p.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	var messages []chatMsg
	if systemPrompt != "" {
		messages = append(messages, chatMsg{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMsg{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatReq{
		Model:       p.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	baseURL := p.cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
