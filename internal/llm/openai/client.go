package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"career-curve/internal/llm"
	"career-curve/internal/shared/telemetry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Options configures Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// NoTemperatureModels lists models that reject temperature=0.
	NoTemperatureModels []string
}

// Client implements llm.Client against an OpenAI-compatible Chat Completions API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	noTemp     map[string]bool
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	noTemp := map[string]bool{}
	for _, m := range opts.NoTemperatureModels {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			noTemp[m] = true
		}
	}
	return &Client{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		endpoint:   completionsURL(opts.BaseURL),
		noTemp:     noTemp,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func completionsURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/chat/completions"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// errTemperatureUnsupported marks a provider rejection of temperature=0.
var errTemperatureUnsupported = errors.New("temperature unsupported")

// AnalyzeResume sends the scoring prompt and returns the model's JSON.
// Output that is not valid JSON gets one repair round.
func (c *Client) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	if rawFix, ok := llm.FixJSONFromContext(ctx); ok {
		return c.repair(ctx, input, []byte(rawFix))
	}

	messages := BuildPrompt(input, c.model)
	raw, err := c.complete(ctx, input.PromptVersion, messages)
	if err != nil {
		return nil, err
	}
	if json.Valid(raw) {
		return raw, nil
	}
	return c.repair(ctx, input, raw)
}

func (c *Client) repair(ctx context.Context, input llm.AnalyzeInput, raw []byte) (json.RawMessage, error) {
	fixed, err := c.complete(ctx, input.PromptVersion, buildFixPrompt(input, c.model, raw))
	if err != nil {
		return nil, err
	}
	if !json.Valid(fixed) {
		return nil, fmt.Errorf("invalid JSON from OpenAI")
	}
	return fixed, nil
}

// complete runs one completion. A provider rejecting temperature=0 gets a
// single retry without it.
func (c *Client) complete(ctx context.Context, promptVersion string, messages []Message) (json.RawMessage, error) {
	if sink, ok := llm.PromptHashSinkFromContext(ctx); ok && sink != nil {
		*sink = hashPromptString(promptStringFromMessages(messages))
	}

	withTemp := !c.omitTemperature()
	raw, u, err := c.send(ctx, messages, withTemp)
	if errors.Is(err, errTemperatureUnsupported) && withTemp {
		telemetry.Warn("llm.temperature_retry", map[string]any{"model": c.model})
		raw, u, err = c.send(ctx, messages, false)
	}
	if err != nil {
		return nil, err
	}
	logUsage(c.model, promptVersion, u)
	return raw, nil
}

func (c *Client) omitTemperature() bool {
	return isGPT5(c.model) || c.noTemp[strings.ToLower(strings.TrimSpace(c.model))]
}

func (c *Client) send(ctx context.Context, messages []Message, withTemp bool) (json.RawMessage, *usage, error) {
	reqMessages := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, chatMessage{Role: m.Role, Content: m.Content})
	}
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       reqMessages,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	if withTemp {
		temp := float32(0)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, fmt.Errorf("openai response parse (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		if isTemperatureError(parsed.Error.Message) {
			return nil, nil, fmt.Errorf("%w: %s", errTemperatureUnsupported, parsed.Error.Message)
		}
		return nil, nil, fmt.Errorf("openai error (status %d): %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, nil, fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, nil, fmt.Errorf("openai response empty content")
	}
	return json.RawMessage(content), parsed.Usage, nil
}

func isTemperatureError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "temperature") && (strings.Contains(msg, "unsupported") || strings.Contains(msg, "does not support"))
}

func logUsage(model, promptVersion string, u *usage) {
	fields := map[string]any{
		"model":          model,
		"prompt_version": promptVersion,
	}
	if u != nil {
		fields["prompt_tokens"] = u.PromptTokens
		fields["completion_tokens"] = u.CompletionTokens
		fields["total_tokens"] = u.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

func promptStringFromMessages(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func hashPromptString(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

var _ llm.Client = (*Client)(nil)
