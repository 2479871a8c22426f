package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/handler"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/response"
	"github.com/stemsi/exstem-qbank/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Paper   *handler.PaperHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// startLimiter may be nil, in which case session starts are not rate limited.
func SetupRouter(
	tokens *service.TokenService,
	startLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	// ─── 1. Author Group (Author JWT) ──────────────────────────────────
	authorAPI := router.Group("/api/v1/author")
	authorAPI.Use(middleware.RequireAuthorJWT(tokens))
	{
		authorAPI.POST("/papers/generate", handlers.Paper.GeneratePaper)
		authorAPI.GET("/papers/:paper_id", middleware.CacheControl(3600), handlers.Paper.GetPaper)
		authorAPI.POST("/papers/:paper_id/access-codes", handlers.Paper.IssueAccessCode)
		authorAPI.GET("/papers/:paper_id/monitor", handlers.Monitor.MonitorPaperSSE)
		authorAPI.GET("/sessions/:session_id/result", handlers.Paper.GetSessionResult)
	}

	// ─── 2. Learner Group (Learner JWT, never cached) ──────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(
		middleware.RequireLearnerJWT(tokens),
		middleware.NoStore(),
	)
	{
		start := []gin.HandlerFunc{handlers.Session.StartSession}
		if startLimiter != nil {
			start = append([]gin.HandlerFunc{startLimiter.Middleware()}, start...)
		}
		learnerAPI.POST("/sessions", start...)
		learnerAPI.GET("/sessions/:session_id", handlers.Session.GetSession)
		learnerAPI.PUT("/sessions/:session_id/answers/:question_id", handlers.Session.SubmitAnswer)
		learnerAPI.POST("/sessions/:session_id/submit", handlers.Session.SubmitSession)
		learnerAPI.GET("/stats", handlers.Session.GetStats)
	}

	// ─── 3. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(tokens))
	{
		ws.GET("/learner/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
