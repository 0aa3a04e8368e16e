package handler

import (
	"errors"
	"net/http"

	"eventpulse/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookHandler interface {
	IngestReply(c *gin.Context)
}

type webhookHandler struct {
	tracker *response.Tracker
	logger  *zap.Logger
}

func NewWebhookHandler(tracker *response.Tracker, logger *zap.Logger) WebhookHandler {
	return &webhookHandler{tracker: tracker, logger: logger}
}

type IngestReplyRequest struct {
	Address string `json:"address" binding:"required"`
	Body    string `json:"body" binding:"required"`
	EventID int64  `json:"event_id" binding:"required"`
}

// IngestReply handles POST /api/webhooks/reply
// Gateway callback for inbound replies; attributes the reply to the
// latest sent message for the address.
func (h *webhookHandler) IngestReply(c *gin.Context) {
	var req IngestReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON for reply webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.tracker.Ingest(response.Reply{
		Address: req.Address,
		Body:    req.Body,
		EventID: req.EventID,
	})
	if err != nil {
		if errors.Is(err, response.ErrNoMatchingMessage) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No sent message matches the reply address"})
			return
		}
		h.logger.Error("Failed to ingest reply", zap.Int64("event_id", req.EventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest reply"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
