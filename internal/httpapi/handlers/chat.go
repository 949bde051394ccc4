package handlers

import (
	"errors"
	"net/http"

	"github.com/edustack/edustack/internal/chat"
	"github.com/edustack/edustack/internal/common"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/session"
	"github.com/gin-gonic/gin"
)

type createSessionReq struct {
	Title string `json:"title"`
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	sessionID, res, err := h.ChatSvc.StartSession(c.Request.Context(), uid, req.Title)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}

	common.OK(c, gin.H{
		"session_id": sessionID,
		"degraded":   !res.Committed(),
	})
}

type sendMessageReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	reply, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, session.ErrMissingUser) {
			common.Fail(c, http.StatusBadRequest, 10002, "invalid message")
			return
		}
		// generative-service failure: retry-eligible
		common.Fail(c, http.StatusBadGateway, 50201, "failed to generate a reply, please try again")
		return
	}

	common.OK(c, gin.H{
		"session_id": req.SessionID,
		"reply":      reply.Text,
		"message_id": reply.AssistantMsg.MessageID,
		"degraded":   persist.IsFallbackID(reply.AssistantMsg.MessageID),
	})
}

func (h *Handler) ListChatSessions(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	common.OK(c, gin.H{"sessions": h.ChatSvc.Sessions(c.Request.Context(), uid)})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		common.Fail(c, http.StatusBadRequest, 10003, "session_id required")
		return
	}
	common.OK(c, gin.H{"messages": h.ChatSvc.Messages(c.Request.Context(), sessionID)})
}
