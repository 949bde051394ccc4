package httpapi

import (
	"net/http"

	"github.com/edustack/edustack/internal/common"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/httpapi/handlers"
	"github.com/edustack/edustack/internal/httpapi/middleware"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg config.Config, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))

	// chat
	authGroup.POST("/chat/sessions", h.CreateChatSession)
	authGroup.GET("/chat/sessions", h.ListChatSessions)
	authGroup.POST("/chat/messages", h.SendChatMessage)
	authGroup.GET("/chat/sessions/:session_id/messages", h.ListChatMessages)

	// video generation
	authGroup.POST("/videos/generate", h.GenerateVideo)
	authGroup.GET("/videos/generation", h.GetGeneration)
	authGroup.GET("/videos", h.ListVideos)
	authGroup.POST("/videos/jobs", h.CreateVideoJob)
	authGroup.GET("/videos/jobs/:job_id", h.GetVideoJob)

	// usage stats
	authGroup.GET("/stats", h.GetStats)

	return r
}
