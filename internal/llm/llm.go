// Package llm is a streaming client for OpenAI-compatible chat completion
// endpoints (OpenAI, Ollama, vLLM, LM Studio and other proxies).
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ChunkFunc is called for each text delta during streaming.
type ChunkFunc func(chunk string)

// Role values on the chat completion wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one completion call. System, when non-empty, is
// prepended to Messages as a system-role entry.
type ChatRequest struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int // 0 = provider default
}

// Usage reports token accounting when the provider includes it in the final
// stream chunk.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// wire types

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type streamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Client talks to a single OpenAI-compatible endpoint.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Client. baseURL is the API root, e.g.
// "http://localhost:11434/v1".
func New(baseURL, apiKey, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		// No global timeout: streaming responses can legitimately run for
		// minutes. Per-call deadlines come from the context.
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          10,
				IdleConnTimeout:       120 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 120 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:  logger.With("component", "llm"),
	}
}

// StreamChat sends a streaming completion request and invokes fn for every
// text delta. The returned Usage is nil unless the provider reported token
// counts. Errors from the endpoint are returned as *APIError.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, fn ChunkFunc) (*Usage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending streaming completion", "model", c.model, "messages", len(messages))
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{Kind: KindConnection, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	usage, err := c.readStream(resp.Body, fn)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("streaming completion done",
		"model", c.model, "duration_ms", time.Since(start).Milliseconds())
	return usage, nil
}

// readStream consumes SSE lines until [DONE] or EOF.
func (c *Client) readStream(r io.Reader, fn ChunkFunc) (*Usage, error) {
	var usage *Usage

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk streamResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Debug("skipping malformed stream chunk", "error", err)
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" && fn != nil {
				fn(choice.Delta.Content)
			}
		}
		if chunk.Usage != nil {
			u := *chunk.Usage
			usage = &u
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &APIError{Kind: KindStream, cause: err}
	}
	return usage, nil
}

// Complete runs a completion without exposing the stream, returning the
// concatenated text. Used for query rewriting and other internal prompts.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var sb strings.Builder
	if _, err := c.StreamChat(ctx, req, func(chunk string) {
		sb.WriteString(chunk)
	}); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}
