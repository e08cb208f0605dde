package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds settings for the language-understanding service
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// OpenAIClient implements ports.LanguageModel against the OpenAI chat API
type OpenAIClient struct {
	config Config
}

// NewOpenAIClient creates a client; the base URL defaults to api.openai.com
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	return &OpenAIClient{config: config}, nil
}

// ChatCompletion sends one system + one user message and returns the reply
// content. The call is bounded by the configured timeout; callers treat any
// error as a signal to degrade to the rule-based classifier.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type responseFormat struct {
		Type string `json:"type"`
	}
	type reqBody struct {
		Model          string          `json:"model"`
		Messages       []msg           `json:"messages"`
		Temperature    float64         `json:"temperature,omitempty"`
		MaxTokens      int             `json:"max_tokens,omitempty"`
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
	}
	body := reqBody{
		Model: c.config.Model,
		Messages: []msg{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:    c.config.Temperature,
		MaxTokens:      c.config.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.config.Timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d: %s", resp.StatusCode, string(respRaw))
	}

	type choice struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	type respBody struct {
		Choices []choice `json:"choices"`
	}
	var decoded respBody
	if err := json.Unmarshal(respRaw, &decoded); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// MockLanguageModel is a scriptable model for tests
type MockLanguageModel struct {
	Responses []string
	Error     error
	Calls     int
	Prompts   []string
}

func (m *MockLanguageModel) ChatCompletion(ctx context.Context, system, prompt string) (string, error) {
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)
	if m.Error != nil {
		return "", m.Error
	}
	idx := m.Calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	if idx < 0 {
		return "", fmt.Errorf("no scripted response")
	}
	return m.Responses[idx], nil
}
