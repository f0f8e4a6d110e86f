package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/movierec/internal/handler"
	"github.com/user/movierec/internal/middleware"
	"github.com/user/movierec/internal/repository"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler, secret string, users *repository.UserRepository) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 认证 ====================
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/token", h.Token)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireAuth(secret, users), h.Me)
	}

	// ==================== 检索 API v1 ====================
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequireAuth(secret, users))
	v1.Use(middleware.RequireScope("movie:read"))
	{
		v1.POST("/movies/search", h.SearchMovies)
	}

	// ==================== 推荐 API v2 ====================
	v2 := r.Group("/api/v2")
	v2.Use(middleware.RequireAuth(secret, users))
	v2.Use(middleware.RequireScope("movie:read"))
	{
		v2.POST("/movies/recommend", h.RecommendMovies)
		v2.GET("/user/recommendations", h.RecommendHistory)
		v2.POST("/user/recommendations/:tmdb_id/score", h.ScoreRecommendation)
	}

	// ==================== 管理后台 ====================
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuth(secret, users))
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/stats", h.AdminStats)

		admin.GET("/queue", h.AdminQueueList)
		admin.GET("/queue/counts", h.AdminQueueCounts)
		admin.POST("/queue/status", h.AdminQueueSetStatus)

		admin.GET("/users", h.AdminUserList)
		admin.PUT("/users/:email/scopes", h.AdminUserSetScopes)
		admin.PUT("/users/:email/status", h.AdminUserSetStatus)
	}
}
