package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"socialrelay/internal/httpx"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the sampling knobs sent with each completion.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completer produces one chat completion.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, opts Options) (string, error)
}

// OpenAIClient calls the chat completions endpoint of an OpenAI-compatible API.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	api     *httpx.Client
}

func NewOpenAIClient(baseURL, apiKey string, opts httpx.Options) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		api:     httpx.New("openai", opts),
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

var errEmptyCompletion = errors.New("openai: empty completion")

func (c *OpenAIClient) Complete(ctx context.Context, msgs []Message, opts Options) (string, error) {
	b, err := json.Marshal(chatRequest{
		Model:       opts.Model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	var out chatResponse
	if err := c.api.DoJSON(ctx, req, &out); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}
