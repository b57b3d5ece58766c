package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/practice-backend-go/internal/handler"
	"github.com/jengzang/practice-backend-go/internal/middleware"
)

// Handlers groups the HTTP handlers wired into the router
type Handlers struct {
	Analysis *handler.AnalysisHandler
	Sessions *handler.SessionHandler
	Sync     *handler.SyncHandler
	Auth     *handler.AuthHandler

	Verifier    middleware.TokenVerifier
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
}

// SetupRouter 设置路由
func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Practice Backend API is running",
		})
	})

	auth := middleware.AuthRequired(h.Verifier)

	// API 路由组
	api := r.Group("/api/v1")
	{
		limited := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
			if h.RateLimiter == nil {
				return handlers
			}
			return append([]gin.HandlerFunc{middleware.RateLimit(h.RateLimiter)}, handlers...)
		}

		// 设备令牌
		api.POST("/auth/token", limited(h.Auth.IssueToken)...)

		// 录音分析
		api.POST("/analysis", limited(auth, h.Analysis.Analyze)...)

		// 练习记录
		sessions := api.Group("/sessions")
		{
			sessions.GET("", h.Sessions.GetSessions)
			sessions.GET("/unsynced", h.Sessions.GetUnsynced)
			sessions.GET("/stats", h.Sessions.GetStats)
			sessions.GET("/today", h.Sessions.GetToday)
			sessions.GET("/:id", h.Sessions.GetSessionByID)
			sessions.POST("", auth, h.Sessions.CreateSession)
			sessions.DELETE("/:id", auth, h.Sessions.DeleteSession)
			sessions.DELETE("", auth, h.Sessions.ClearSessions)
		}
		api.DELETE("/pieces/:piece_id/sessions/today", auth, h.Sessions.UncompleteToday)

		// 同步与排行
		api.POST("/sync", auth, h.Sync.Sync)
		api.GET("/rankings/today", h.Sync.GetTodayRankings)
	}

	return r
}
