// Package tutorapi is the front-end's client for the tutor HTTP API.
package tutorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"llm-tutor/internal/domain"
)

// ErrMissingReply is returned when a chat response carries none of the reply
// fields the API variants are known to use.
var ErrMissingReply = errors.New("tutorapi: response has no reply text")

// replyPaths lists reply locations in order of preference. message.content is
// the canonical shape; the others cover the bundled main.py (message as a
// string), generated_text replies and the raw-text fallback.
var replyPaths = []string{"message.content", "message", "generated_text", "output"}

// HTTPStatusError is returned for any non-2xx API response.
type HTTPStatusError struct {
	StatusCode int
	Label      string
	Details    string
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Label != "" {
		msg += ": " + e.Label
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type chatRequest struct {
	Message domain.Message `json:"message"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tutorapi: base url must not be empty")
	}
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("tutorapi: invalid base url %q", baseURL)
	}
	// Script runs have no server-side limit, so the client does not set one
	// either; callers bound requests through ctx.
	c := &Client{baseURL: baseURL, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Initialize calls the initialization route. Any 2xx response counts as success.
func (c *Client) Initialize(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/initialization", nil)
	return err
}

// Chat sends one user message and returns the reply text.
func (c *Client) Chat(ctx context.Context, msg domain.Message) (string, error) {
	body, err := json.Marshal(chatRequest{Message: domain.Message{Role: domain.RoleUser, Content: msg.Content}})
	if err != nil {
		return "", fmt.Errorf("tutorapi: marshal request: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, "/api/chat", body)
	if err != nil {
		return "", err
	}
	return extractReply(raw)
}

// Reset asks the backend to reset the router conversation state.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/reset", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("tutorapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tutorapi: %s %s: %w", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("tutorapi: read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		statusErr := &HTTPStatusError{StatusCode: res.StatusCode}
		if gjson.ValidBytes(buf) {
			parsed := gjson.ParseBytes(buf)
			statusErr.Label = parsed.Get("error").String()
			statusErr.Details = parsed.Get("details").String()
		}
		return nil, statusErr
	}
	return buf, nil
}

func extractReply(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("tutorapi: decode response: invalid JSON")
	}
	parsed := gjson.ParseBytes(raw)
	for _, path := range replyPaths {
		v := parsed.Get(path)
		if v.Type != gjson.String {
			continue
		}
		if text := v.String(); strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", ErrMissingReply
}
