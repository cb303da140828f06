// internal/integration/openrouter/client.go
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "sells-service/internal/pkg/errors"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Referer     string
	Title       string
	Timeout     time.Duration
}

// Client calls the OpenRouter chat completions API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete returns the assistant reply for messages.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	data, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &xerrors.TransportError{Op: "openrouter completion", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &xerrors.TransportError{Op: "openrouter completion", Err: err}
	}

	var out completionResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode >= 300 {
		reason := http.StatusText(resp.StatusCode)
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			reason = out.Error.Message
		}
		return "", &xerrors.TransportError{
			Op:  "openrouter completion",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, reason),
		}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrUnexpectedShape, decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", xerrors.ErrUnexpectedShape)
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", xerrors.ErrUnexpectedShape)
	}
	return content, nil
}
