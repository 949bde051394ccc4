package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/edustack/edustack/internal/common"
	"github.com/edustack/edustack/internal/jobs"
	"github.com/edustack/edustack/internal/pipeline"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type generateVideoReq struct {
	Topic string `json:"topic" binding:"required"`
}

// GenerateVideo starts an interactive generation run. The caller polls
// GetGeneration for progress.
func (h *Handler) GenerateVideo(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req generateVideoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.Runner.Start(c.Request.Context(), uid, req.Topic); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrBusy):
			common.Fail(c, http.StatusConflict, 40901, "a generation is already in progress")
		case errors.Is(err, pipeline.ErrEmptyTopic):
			common.Fail(c, http.StatusBadRequest, 10004, "topic is required")
		default:
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to start generation")
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "accepted",
		"data":    gin.H{"state": pipeline.StateGeneratingScript},
	})
}

// GetGeneration reports the caller's current (or last) run. When this
// instance has no run for the caller, the cross-process snapshot cache is
// consulted.
func (h *Handler) GetGeneration(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	run := h.Runner.Snapshot(uid)
	if run.State == pipeline.StateIdle && h.Snapshots != nil {
		if cached, err := h.Snapshots.RunSnapshot(c.Request.Context(), uid); err != nil {
			slog.Warn("run snapshot read failed", "user_id", uid, "err", err)
		} else if cached != nil {
			run = *cached
		}
	}

	common.OK(c, gin.H{"run": run, "busy": h.Runner.Busy(uid)})
}

func (h *Handler) ListVideos(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	common.OK(c, gin.H{"videos": h.Videos.List(c.Request.Context(), uid)})
}

// CreateVideoJob enqueues a generation run for the worker instead of
// running it in-process.
func (h *Handler) CreateVideoJob(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req generateVideoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10005, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &jobs.Job{
		ID:             jobID,
		UserID:         uid,
		Topic:          req.Topic,
		IdempotencyKey: idempoKeyPtr,
		Status:         jobs.StatusQueued,
	}

	j, created, err := h.Jobs.CreateOrGetExisting(c.Request.Context(), j)
	if err != nil {
		slog.Warn("create video job failed", "user_id", uid, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), j.ID); err != nil {
			slog.Warn("publish video job failed", "job_id", j.ID, "err", err)
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{"job_id": j.ID})
}

func (h *Handler) GetVideoJob(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.Jobs.GetByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if j.UserID != uid {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40402, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":           j.ID,
			"topic":        j.Topic,
			"status":       j.Status,
			"video_doc_id": j.VideoDocID,
			"error":        j.Error,
			"created_at":   j.CreatedAt,
			"updated_at":   j.UpdatedAt,
		},
	})
}
