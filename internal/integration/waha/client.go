// internal/integration/waha/client.go
package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	xerrors "sells-service/internal/pkg/errors"
)

// Client talks to a WAHA (WhatsApp HTTP API) server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the WAHA server at baseURL.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

type chatRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
}

type presenceRequest struct {
	ChatID   string `json:"chatId"`
	Presence string `json:"presence"`
}

// SendText delivers a text message to chatID.
func (c *Client) SendText(ctx context.Context, session, chatID, text string) error {
	return c.post(ctx, "/api/sendText", sendTextRequest{Session: session, ChatID: chatID, Text: text})
}

// SendSeen marks the chat's messages as read.
func (c *Client) SendSeen(ctx context.Context, session, chatID string) error {
	return c.post(ctx, "/api/"+session+"/sendSeen", chatRequest{Session: session, ChatID: chatID})
}

// StartTyping shows the typing indicator in the chat.
func (c *Client) StartTyping(ctx context.Context, session, chatID string) error {
	return c.post(ctx, "/api/"+session+"/presence", presenceRequest{ChatID: chatID, Presence: "typing"})
}

// StopTyping clears the typing indicator.
func (c *Client) StopTyping(ctx context.Context, session, chatID string) error {
	return c.post(ctx, "/api/"+session+"/presence", presenceRequest{ChatID: chatID, Presence: "paused"})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &xerrors.TransportError{Op: "waha " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &xerrors.TransportError{
			Op:  "waha " + path,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
