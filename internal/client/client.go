// Package client talks to the dashboard REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// envelope mirrors the backend response package.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client calls the dashboard API under baseURL, e.g.
// http://localhost:8000/api/v1/dashboard. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// do sends the request and decodes the envelope's data into out. out may be
// nil when the caller only needs success.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Path: path, Message: reason(env)}
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusConflict:
		return &ValidationError{Message: reason(env), Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &TransportError{Method: method, Path: path, Status: resp.StatusCode}
	}

	if decodeErr != nil {
		return &UnexpectedShapeError{Path: path, Reason: "invalid JSON", Err: decodeErr}
	}
	if !env.Success {
		return &UnexpectedShapeError{Path: path, Reason: "success flag not set"}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &UnexpectedShapeError{Path: path, Reason: "missing data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &UnexpectedShapeError{Path: path, Reason: "invalid data", Err: err}
	}
	return nil
}

func reason(env envelope) string {
	if env.Error != "" {
		return env.Error
	}
	if env.Message != "" {
		return env.Message
	}
	return "no details"
}

// required returns an UnexpectedShapeError naming field when ok is false.
func required(path, field string, ok bool) error {
	if ok {
		return nil
	}
	return &UnexpectedShapeError{Path: path, Reason: "missing " + field}
}
