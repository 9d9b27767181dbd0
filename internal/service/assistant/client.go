package assistant

import (
	"context"
	"fmt"
	"time"

	xhttp "PulseFeed/pkg/http"
)

// Client is a single-shot chat completion client. One message in, one reply
// out; no conversation state is kept on this side.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *xhttp.Client
}

// NewClient builds a completion client with timeout and credentials.
func NewClient(baseURL, apiKey, model string, maxTokens int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		http:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one user message and returns the assistant reply.
// maxTokens <= 0 falls back to the configured default.
func (c *Client) Complete(ctx context.Context, message string, maxTokens int) (string, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return "", fmt.Errorf("assistant client not configured")
	}
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	req := completionRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: message}},
		MaxTokens: maxTokens,
	}

	var resp completionResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/v1/chat/completions",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.apiKey,
		},
		Body: req,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
