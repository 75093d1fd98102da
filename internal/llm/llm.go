// Package llm is a minimal client for OpenAI-compatible completion and
// embedding endpoints. It owns no retry policy; callers impose timeouts
// through the context and decide what to do with a ServiceError.
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

// Message is one chat turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ServiceError reports a failed call to the hosted service: transport
// failure, non-2xx status, or a response with no usable payload.
type ServiceError struct {
	Endpoint string
	Status   int
	Detail   string
	Err      error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("llm %s call failed", e.Endpoint)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Config holds client settings. BaseURL is the API root without a trailing
// slash, e.g. "https://api.openai.com/v1".
type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	Timeout    time.Duration
}

// Client talks to an OpenAI-compatible API over HTTP.
type Client struct {
	cfg   Config
	httpc *http.Client
}

// NewClient builds a client. The timeout bounds each individual call on top
// of whatever deadline the caller's context already carries.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the single text
// response.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	body, err := c.post(ctx, "/chat/completions", chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ServiceError{Endpoint: "chat/completions", Detail: "malformed response body", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ServiceError{Endpoint: "chat/completions", Detail: "response contained no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one embedding vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := c.post(ctx, "/embeddings", embedRequest{Model: c.cfg.EmbedModel, Input: texts})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ServiceError{Endpoint: "embeddings", Detail: "malformed response body", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &ServiceError{
			Endpoint: "embeddings",
			Detail:   fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	endpoint := strings.TrimPrefix(path, "/")

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint, Detail: "encoding request", Err: err}
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint, Detail: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ServiceError{Endpoint: endpoint, Status: resp.StatusCode, Detail: "reading response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{Endpoint: endpoint, Status: resp.StatusCode, Detail: snippet(body)}
	}
	return body, nil
}

// snippet trims a response body to a loggable size.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
