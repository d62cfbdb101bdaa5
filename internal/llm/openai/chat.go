package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ChatRequest is forwarded to the upstream chat completions endpoint.
// Messages are passed through untouched.
type ChatRequest struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

// UpstreamError is a non-2xx reply from the chat provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat upstream status %d: %s", e.Status, e.Message)
}

// ChatProxy relays chat completions using a server-side API key.
type ChatProxy struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewChatProxy returns nil when apiKey is empty.
func NewChatProxy(baseURL, apiKey string, timeout time.Duration) *ChatProxy {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ChatProxy{
		apiKey:     apiKey,
		endpoint:   completionsURL(baseURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward posts req upstream and returns the successful JSON body verbatim.
func (p *ChatProxy) Forward(ctx context.Context, req ChatRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chat upstream read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}
	if !json.Valid(body) {
		return nil, errors.New("chat upstream returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

// upstreamMessage prefers error.message, then message, then the raw body.
func upstreamMessage(body []byte) string {
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
