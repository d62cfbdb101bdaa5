package interview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"career-curve/internal/llm/openai"
	"career-curve/internal/shared/server/respond"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 4000
)

// Forwarder relays a chat completion upstream.
type Forwarder interface {
	Forward(ctx context.Context, req openai.ChatRequest) (json.RawMessage, error)
}

// Handler proxies interview flashcard chats to the configured provider.
type Handler struct {
	Proxy Forwarder
}

// NewHandler accepts a nil proxy; chat requests then get 503.
func NewHandler(proxy Forwarder) *Handler {
	return &Handler{Proxy: proxy}
}

// RegisterRoutes attaches interview routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interview/chat", h.chat)
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	Temperature *float64          `json:"temperature"`
	MaxTokens   *int              `json:"max_tokens"`
}

func (h *Handler) chat(c *gin.Context) {
	if h.Proxy == nil {
		respond.Error(c, http.StatusServiceUnavailable, "chat_unconfigured", "CHAT_API_KEY is not configured", nil)
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Model) == "" || len(req.Messages) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "model and messages are required", nil)
		return
	}

	upstream := openai.ChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	if req.Temperature != nil {
		upstream.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		upstream.MaxTokens = *req.MaxTokens
	}

	out, err := h.Proxy.Forward(c.Request.Context(), upstream)
	if err != nil {
		var upErr *openai.UpstreamError
		if errors.As(err, &upErr) {
			respond.Error(c, upErr.Status, "upstream_error", upErr.Message, nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, "upstream_unreachable", "chat provider request failed", nil)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}
