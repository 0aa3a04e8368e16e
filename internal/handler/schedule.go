package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"eventpulse/internal/repository"
	"eventpulse/internal/scheduler"
	"eventpulse/internal/timing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ScheduleHandler interface {
	ScheduleEvent(c *gin.Context)
	ScheduleAttendee(c *gin.Context)
	CheckIn(c *gin.Context)
}

type scheduleHandler struct {
	scheduler *scheduler.Scheduler
	attendees repository.AttendeeRepository
	learning  repository.LearningEventRepository
	logger    *zap.Logger
}

func NewScheduleHandler(s *scheduler.Scheduler, attendees repository.AttendeeRepository, learning repository.LearningEventRepository, logger *zap.Logger) ScheduleHandler {
	return &scheduleHandler{scheduler: s, attendees: attendees, learning: learning, logger: logger}
}

// ScheduleEvent handles POST /api/events/:id/schedule
// Runs every agenda-anchored message family for the event. Safe to
// call again after an agenda regeneration.
func (h *scheduleHandler) ScheduleEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.scheduler.ScheduleEvent(eventID)
	if err != nil {
		if errors.Is(err, timing.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		h.logger.Error("Failed to schedule event", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ScheduleAttendee handles POST /api/events/:id/attendees/:attendeeID/schedule
// Runs the check-in reminder families for one attendee, typically at
// registration completion.
func (h *scheduleHandler) ScheduleAttendee(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	attendeeID, ok := pathID(c, "attendeeID")
	if !ok {
		return
	}

	result, err := h.scheduler.ScheduleAttendee(eventID, attendeeID)
	if err != nil {
		switch {
		case errors.Is(err, timing.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		case errors.Is(err, scheduler.ErrAttendeeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Attendee not found"})
		default:
			h.logger.Error("Failed to schedule attendee",
				zap.Int64("event_id", eventID), zap.Int64("attendee_id", attendeeID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule attendee"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// CheckIn handles POST /api/events/:id/checkin/:attendeeID
// Records the check-in instant. Checking in twice is a no-op reported
// back to the caller, not an error.
func (h *scheduleHandler) CheckIn(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	attendeeID, ok := pathID(c, "attendeeID")
	if !ok {
		return
	}

	attendee, err := h.attendees.GetAttendeeByID(attendeeID)
	if err != nil {
		h.logger.Error("Failed to load attendee", zap.Int64("attendee_id", attendeeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendee"})
		return
	}
	if attendee == nil || attendee.EventID != eventID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attendee not found"})
		return
	}

	updated, err := h.attendees.SetCheckedIn(attendeeID, time.Now())
	if err != nil {
		h.logger.Error("Failed to record check-in", zap.Int64("attendee_id", attendeeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record check-in"})
		return
	}
	if updated {
		h.learning.Record(eventID, "attendee_checked_in", map[string]interface{}{
			"attendee_id": attendeeID,
		})
		// A first check-in also backfills the agenda-anchored families
		// for late registrants who missed the event-wide pass. A failed
		// backfill does not invalidate the check-in itself.
		if result, err := h.scheduler.CatchUpAttendee(eventID, attendeeID); err != nil {
			h.logger.Error("Failed to backfill attendee schedule",
				zap.Int64("event_id", eventID), zap.Int64("attendee_id", attendeeID), zap.Error(err))
		} else if result.Scheduled > 0 {
			h.logger.Info("Backfilled attendee schedule on check-in",
				zap.Int64("event_id", eventID), zap.Int64("attendee_id", attendeeID),
				zap.Int("scheduled", result.Scheduled))
		}
	}

	c.JSON(http.StatusOK, gin.H{"checked_in": true, "already_checked_in": !updated})
}

// pathID parses an int64 path parameter, writing a 400 itself when the
// value is malformed.
func pathID(c *gin.Context, name string) (int64, bool) {
	idStr := c.Param(name)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
