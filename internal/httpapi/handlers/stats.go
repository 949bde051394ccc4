package handlers

import (
	"net/http"

	"github.com/edustack/edustack/internal/common"
	"github.com/gin-gonic/gin"
)

func (h *Handler) GetStats(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	s, found := h.Counters.Get(c.Request.Context(), uid)
	if !found {
		// no activity recorded yet
		common.OK(c, gin.H{"stats": gin.H{
			"total_chat_sessions":    0,
			"total_videos_generated": 0,
		}})
		return
	}
	common.OK(c, gin.H{"stats": s})
}
