package handler

import (
	"net/http"

	"eventpulse/internal/override"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OverrideHandler interface {
	ApplyOverride(c *gin.Context)
	ListOverrides(c *gin.Context)
}

type overrideHandler struct {
	controller *override.Controller
	logger     *zap.Logger
}

func NewOverrideHandler(controller *override.Controller, logger *zap.Logger) OverrideHandler {
	return &overrideHandler{controller: controller, logger: logger}
}

type ApplyOverrideRequest struct {
	DelayMinutes int    `json:"delay_minutes" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

// ApplyOverride handles POST /api/events/:id/override
// Shifts every pending message for the event by delay_minutes.
func (h *overrideHandler) ApplyOverride(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ApplyOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for override", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.controller.Apply(eventID, req.DelayMinutes, req.Reason)
	if err != nil {
		h.logger.Error("Failed to apply override", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply override"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ListOverrides handles GET /api/events/:id/override
// Returns the overrides already applied to the event, oldest first.
func (h *overrideHandler) ListOverrides(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.controller.History(eventID)
	if err != nil {
		h.logger.Error("Failed to load override history", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load override history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"overrides": entries})
}
