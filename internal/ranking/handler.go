package ranking

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"career-curve/internal/shared/server/respond"
	"career-curve/internal/shared/util"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// Handler exposes read-only ledger views.
type Handler struct {
	Engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

// RegisterRoutes attaches ranking routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ranking/summary", h.summary)
	rg.GET("/ranking/recent", h.recent)
}

func (h *Handler) summary(c *gin.Context) {
	s, err := h.Engine.Summary(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusServiceUnavailable, "rank_unavailable", "score ledger is unavailable", nil)
		return
	}
	respond.OK(c, s)
}

type recentItem struct {
	Role      string    `json:"role"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) recent(c *gin.Context) {
	limit := defaultRecentLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	recs, err := h.Engine.Recent(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusServiceUnavailable, "rank_unavailable", "score ledger is unavailable", nil)
		return
	}
	items := make([]recentItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, recentItem{Role: util.MaskRole(r.Role), Score: r.Score, CreatedAt: r.CreatedAt})
	}
	respond.OK(c, gin.H{"items": items, "limit": limit})
}
