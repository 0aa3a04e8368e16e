// Package override applies organizer-initiated bulk timing shifts to
// an event's pending messages, e.g. when the venue opens late or a
// session overruns.
package override

import (
	"time"

	"eventpulse/internal/models"
	"eventpulse/internal/queue"
	"eventpulse/internal/repository"
	"eventpulse/internal/scheduler"

	"go.uber.org/zap"
)

// Result summarizes one override application.
type Result struct {
	Shifted int `json:"shifted"`
	TooLate int `json:"too_late"`
}

// Controller shifts pending messages and keeps the in-process queue in
// step with the durable rows.
type Controller struct {
	messages  repository.MessageRepository
	overrides repository.OverrideLogRepository
	learning  repository.LearningEventRepository
	queue     scheduler.JobQueue
	logger    *zap.Logger
}

func NewController(
	messages repository.MessageRepository,
	overrides repository.OverrideLogRepository,
	learning repository.LearningEventRepository,
	jobQueue scheduler.JobQueue,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		messages:  messages,
		overrides: overrides,
		learning:  learning,
		queue:     jobQueue,
		logger:    logger,
	}
}

// Apply shifts every still-pending message for the event by
// delayMinutes and records the override. Messages that left the
// scheduled state between the read and the guarded update have already
// been handled and are counted as too-late, not failures.
func (c *Controller) Apply(eventID int64, delayMinutes int, reason string) (*Result, error) {
	pending, err := c.messages.GetScheduledByEvent(eventID)
	if err != nil {
		return nil, err
	}

	delta := time.Duration(delayMinutes) * time.Minute
	result := &Result{}
	for _, msg := range pending {
		newAt := msg.ScheduledAt.Add(delta)
		shifted, err := c.messages.Reschedule(msg.ID, newAt, msg.DelayMinutes+delayMinutes)
		if err != nil {
			return nil, err
		}
		if !shifted {
			result.TooLate++
			continue
		}
		// Replace the queued job so the timer fires at the new
		// instant. Cancel is pending-only, so a job mid-execution is
		// left alone; the guarded update above already failed for it.
		c.queue.Cancel(scheduler.MessageJobID(msg.ID))
		c.queue.Submit(queue.Job{
			ID:       scheduler.MessageJobID(msg.ID),
			Payload:  queue.Payload{Kind: scheduler.JobKindMessage, MessageID: msg.ID, EventID: eventID},
			RunAt:    newAt,
			Priority: scheduler.FamilyPriority(msg.MessageType),
		})
		result.Shifted++
	}

	if err := c.overrides.Append(eventID, delayMinutes, reason); err != nil {
		return nil, err
	}
	c.learning.Record(eventID, "override_applied", map[string]interface{}{
		"delay_minutes": delayMinutes,
		"reason":        reason,
		"shifted":       result.Shifted,
		"too_late":      result.TooLate,
	})
	c.logger.Info("Timing override applied",
		zap.Int64("event_id", eventID),
		zap.Int("delay_minutes", delayMinutes),
		zap.Int("shifted", result.Shifted),
		zap.Int("too_late", result.TooLate))
	return result, nil
}

// History returns the overrides applied to an event, oldest first.
func (c *Controller) History(eventID int64) ([]*models.OverrideEntry, error) {
	return c.overrides.GetByEvent(eventID)
}
