package handlers

import (
	"github.com/edustack/edustack/internal/chat"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/httpapi/middleware"
	"github.com/edustack/edustack/internal/jobs"
	"github.com/edustack/edustack/internal/pipeline"
	"github.com/edustack/edustack/internal/stats"
	"github.com/edustack/edustack/internal/store/rabbitmq"
	"github.com/edustack/edustack/internal/store/redisstore"
	"github.com/edustack/edustack/internal/video"
	"github.com/gin-gonic/gin"
)

// Handler carries the service dependencies; all of them are injected
// explicitly rather than looked up from ambient state.
type Handler struct {
	Cfg       config.Config
	ChatSvc   *chat.Service
	Videos    *video.Store
	Counters  *stats.Counters
	Runner    *pipeline.Runner
	Snapshots *redisstore.Store
	Jobs      *jobs.Repo
	Rabbit    *rabbitmq.Publisher
}

func NewHandler(cfg config.Config, chatSvc *chat.Service, videos *video.Store, counters *stats.Counters,
	runner *pipeline.Runner, snapshots *redisstore.Store, jobRepo *jobs.Repo, rabbit *rabbitmq.Publisher) *Handler {
	return &Handler{
		Cfg:       cfg,
		ChatSvc:   chatSvc,
		Videos:    videos,
		Counters:  counters,
		Runner:    runner,
		Snapshots: snapshots,
		Jobs:      jobRepo,
		Rabbit:    rabbit,
	}
}

func userIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}
