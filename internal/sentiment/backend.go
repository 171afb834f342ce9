// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sentiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Request is what a backend needs to classify one study.
type Request struct {
	StudyID  string
	Title    string
	Abstract string
	Term     string
	Benefit  string
}

// Backend abstracts the language-classification service so tests can
// supply a mock.
type Backend interface {
	Classify(ctx context.Context, req Request) (types.SentimentResult, error)
}

// ErrNotConfigured is returned by NewBackend when no API key is set.
var ErrNotConfigured = errors.New("classifier not configured")

// NewBackend returns the backend selected by cfg.Provider.
func NewBackend(cfg types.ClassifierConfig, client *http.Client) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}

	switch cfg.Provider {
	case "", "claude":
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return &ClaudeBackend{APIKey: cfg.APIKey, Model: model, Client: client, MaxRetries: cfg.MaxRetries}, nil
	case "openai":
		model := cfg.Model
		if model == "" || model == types.DefaultEngineConfig().Classifier.Model {
			model = "gpt-4o-mini"
		}
		return &OpenAIBackend{APIKey: cfg.APIKey, Model: model, Client: client, MaxRetries: cfg.MaxRetries}, nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q (valid: claude, openai)", cfg.Provider)
	}
}

// Endpoints. Package-level vars for test substitution.
var (
	claudeAPIURL = "https://api.anthropic.com/v1/messages"
	openaiAPIURL = "https://api.openai.com/v1/chat/completions"
)

// ClaudeBackend classifies through the Anthropic Messages API.
type ClaudeBackend struct {
	APIKey     string
	Model      string
	Client     *http.Client
	MaxRetries int
}

type claudeRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Classify sends one classification prompt to Claude.
func (c *ClaudeBackend) Classify(ctx context.Context, req Request) (types.SentimentResult, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return types.SentimentResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	body, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: 256,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return types.SentimentResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(body))
	if err != nil {
		return types.SentimentResult{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	respBody, err := post(ctx, c.Client, httpReq, c.MaxRetries, "Claude")
	if err != nil {
		return types.SentimentResult{}, err
	}

	var cr claudeResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return types.SentimentResult{}, fmt.Errorf("%w: decoding Claude response: %v", errMalformed, err)
	}
	for _, block := range cr.Content {
		if block.Type != "text" {
			continue
		}
		return parseResponse(block.Text)
	}
	return types.SentimentResult{}, fmt.Errorf("%w: no text content in Claude response", errMalformed)
}

// OpenAIBackend classifies through the OpenAI chat completions API.
type OpenAIBackend struct {
	APIKey     string
	Model      string
	Client     *http.Client
	MaxRetries int
}

type openaiRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends one classification prompt to OpenAI.
func (o *OpenAIBackend) Classify(ctx context.Context, req Request) (types.SentimentResult, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return types.SentimentResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	or := openaiRequest{
		Model:    o.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	or.ResponseFormat.Type = "json_object"
	body, err := json.Marshal(or)
	if err != nil {
		return types.SentimentResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(body))
	if err != nil {
		return types.SentimentResult{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	respBody, err := post(ctx, o.Client, httpReq, o.MaxRetries, "OpenAI")
	if err != nil {
		return types.SentimentResult{}, err
	}

	var resp openaiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return types.SentimentResult{}, fmt.Errorf("%w: decoding OpenAI response: %v", errMalformed, err)
	}
	if len(resp.Choices) == 0 {
		return types.SentimentResult{}, fmt.Errorf("%w: empty OpenAI response", errMalformed)
	}
	return parseResponse(resp.Choices[0].Message.Content)
}

// post sends req with retries and returns the body of a 200 response.
func post(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, api string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, maxRetries, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s API: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s API returned %d: %s", api, resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
