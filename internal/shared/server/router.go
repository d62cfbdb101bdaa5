package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"career-curve/internal/interview"
	"career-curve/internal/ranking"
	"career-curve/internal/shared/config"
	"career-curve/internal/shared/metrics"
	"career-curve/internal/shared/server/middleware"
	"career-curve/internal/shared/server/respond"
	"career-curve/internal/shared/storage/db"
	"career-curve/internal/submissions"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupAnalyze = "ANALYZE"
	healthDBTimeout  = 2 * time.Second
)

// RouterDeps carries the handlers mounted under /api/v1. DB is optional and
// only used by the health check.
type RouterDeps struct {
	Config            config.Config
	DB                *sql.DB
	SubmissionHandler *submissions.Handler
	RankingHandler    *ranking.Handler
	InterviewHandler  *interview.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		metrics.Middleware(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.AllowedOrigins()),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupAnalyze: {Rate: deps.Config.AnalyzeRate, Burst: deps.Config.AnalyzeBurst},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", health(deps.DB))
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.RegisterRoutes(api)
	}
	if deps.RankingHandler != nil {
		deps.RankingHandler.RegisterRoutes(api)
	}
	if deps.InterviewHandler != nil {
		deps.InterviewHandler.RegisterRoutes(api)
	}

	return r
}

// Only the endpoints that call an LLM are throttled.
func rateGroupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/analyze", "/api/v1/interview/chat":
		return rateGroupAnalyze
	default:
		return rateGroupDefault
	}
}

func health(sqlDB *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sqlDB == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		if err := db.Ping(c.Request.Context(), sqlDB, healthDBTimeout); err != nil {
			respond.Error(c, http.StatusServiceUnavailable, "db_unavailable", "database is unreachable", nil)
			return
		}
		respond.OK(c, gin.H{"ok": true, "db": "ok"})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
