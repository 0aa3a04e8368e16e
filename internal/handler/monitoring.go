package handler

import (
	"net/http"

	"eventpulse/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PendingCounter exposes the in-process queue depth.
type PendingCounter interface {
	Pending() int
}

type MonitoringHandler interface {
	QueueStatus(c *gin.Context)
	Matches(c *gin.Context)
}

type monitoringHandler struct {
	messages repository.MessageRepository
	matches  repository.PeerMatchRepository
	queue    PendingCounter
	logger   *zap.Logger
}

func NewMonitoringHandler(messages repository.MessageRepository, matches repository.PeerMatchRepository, queue PendingCounter, logger *zap.Logger) MonitoringHandler {
	return &monitoringHandler{messages: messages, matches: matches, queue: queue, logger: logger}
}

// QueueStatus handles GET /api/events/:id/queue-status
// Reports message counts broken down by message type and status,
// average send delay, and the current in-process queue depth.
func (h *monitoringHandler) QueueStatus(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	rows, err := h.messages.StatusCounts(eventID)
	if err != nil {
		h.logger.Error("Failed to load status counts", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load queue status"})
		return
	}

	avgDelay, err := h.messages.AvgSendDelaySeconds(eventID)
	if err != nil {
		h.logger.Error("Failed to compute send delay", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load queue status"})
		return
	}

	// Keyed by message type, then status. Types sharing a status must
	// stay distinguishable in the report.
	counts := make(map[string]map[string]int, len(rows))
	for _, sc := range rows {
		byStatus, ok := counts[sc.MessageType]
		if !ok {
			byStatus = make(map[string]int)
			counts[sc.MessageType] = byStatus
		}
		byStatus[sc.Status] += sc.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"counts":                 counts,
		"avg_send_delay_seconds": avgDelay,
		"queue_depth":            h.queue.Pending(),
	})
}

// Matches handles GET /api/events/:id/matches
// Lists the peer matches computed for the event, best score first.
func (h *monitoringHandler) Matches(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	matches, err := h.matches.GetMatchesByEvent(eventID)
	if err != nil {
		h.logger.Error("Failed to load peer matches", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
