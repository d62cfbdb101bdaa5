package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRankingRouter(e *Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(e).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestSummaryEndpoint(t *testing.T) {
	r := newRankingRouter(NewEngine(seeded(2, 4, 9)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/ranking/summary", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var got Summary
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 3 || got.Min != 2 || got.Max != 9 || got.Mean != 5 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestSummaryEndpointLedgerDown(t *testing.T) {
	l := &scriptedLedger{MemoryLedger: NewMemoryLedger(), readErr: errors.New("down")}
	r := newRankingRouter(NewEngine(l))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/ranking/summary", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestRecentEndpointMasksRoles(t *testing.T) {
	mem := NewMemoryLedger()
	_ = mem.Append(context.Background(), ScoreRecord{Role: "Backend", Score: 6})
	_ = mem.Append(context.Background(), ScoreRecord{Role: "QA", Score: 8})
	r := newRankingRouter(NewEngine(mem))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/ranking/recent?limit=500", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Items []recentItem `json:"items"`
		Limit int          `json:"limit"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Limit != maxRecentLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxRecentLimit, body.Limit)
	}
	if len(body.Items) != 2 || body.Items[0].Role != "Q*" || body.Items[1].Role != "B*****d" {
		t.Fatalf("unexpected items: %+v", body.Items)
	}
}

func TestRecentEndpointRejectsBadLimit(t *testing.T) {
	r := newRankingRouter(NewEngine(NewMemoryLedger()))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/ranking/recent?limit=abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
