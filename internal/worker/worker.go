// Package worker consumes due message jobs: it re-checks conditional
// suppression, resolves content (generated at fire time, never at
// schedule time), invokes the delivery gateway, and persists the
// final message state. Each message is processed independently; a
// slow or failing send for one recipient never delays others.
package worker

import (
	"context"
	"fmt"
	"time"

	"eventpulse/internal/content"
	"eventpulse/internal/gateway"
	"eventpulse/internal/models"
	"eventpulse/internal/queue"
	"eventpulse/internal/repository"
	"eventpulse/internal/scheduler"

	"go.uber.org/zap"
)

// ContentComposer resolves final message text, falling back to a
// deterministic template so it never fails.
type ContentComposer interface {
	Compose(ctx context.Context, msgType, intent string, c content.Context) string
}

// Sender is the delivery gateway surface the worker depends on.
type Sender interface {
	Send(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Worker handles jobs of kind "message".
type Worker struct {
	messages    repository.MessageRepository
	attendees   repository.AttendeeRepository
	events      repository.EventRepository
	composer    ContentComposer
	sender      Sender
	learning    repository.LearningEventRepository
	logger      *zap.Logger
	clock       func() time.Time
	sendTimeout time.Duration
}

func NewWorker(
	messages repository.MessageRepository,
	attendees repository.AttendeeRepository,
	events repository.EventRepository,
	composer ContentComposer,
	sender Sender,
	learning repository.LearningEventRepository,
	sendTimeout time.Duration,
	logger *zap.Logger,
) *Worker {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Worker{
		messages:    messages,
		attendees:   attendees,
		events:      events,
		composer:    composer,
		sender:      sender,
		learning:    learning,
		logger:      logger,
		clock:       time.Now,
		sendTimeout: sendTimeout,
	}
}

// HandleJob processes one due message. Returning an error hands the
// job back to the queue's retry policy; terminal failures arrive at
// HandleFailure.
func (w *Worker) HandleJob(ctx context.Context, job queue.Job) error {
	msg, err := w.messages.GetMessageByID(job.Payload.MessageID)
	if err != nil {
		return err
	}
	if msg == nil {
		w.logger.Warn("Message job fired for a missing row, dropping", zap.Int64("message_id", job.Payload.MessageID))
		return nil
	}
	// Redelivery after a crash may fire a message that already
	// reached a terminal state; detect and no-op.
	if msg.Status != models.StatusScheduled {
		w.logger.Debug("Message already in terminal state, ignoring redelivery",
			zap.Int64("message_id", msg.ID), zap.String("status", msg.Status))
		return nil
	}

	p, err := msg.DecodePersonalization()
	if err != nil {
		w.skip(msg, "bad_personalization")
		return nil
	}

	var attendee *models.Attendee
	if msg.AttendeeID != nil {
		attendee, err = w.attendees.GetAttendeeByID(*msg.AttendeeID)
		if err != nil {
			return err
		}
		if attendee == nil {
			w.skip(msg, "attendee_not_found")
			return nil
		}
		if reason, suppressed := scheduler.SuppressionReason(msg.MessageType, attendee); suppressed {
			w.skip(msg, reason)
			return nil
		}
	}

	address := p.Recipient
	if attendee != nil {
		if contact := attendee.ContactFor(msg.Channel); contact != nil {
			address = *contact
		} else {
			address = ""
		}
	}
	if address == "" {
		w.skip(msg, models.SkipNoContact)
		return nil
	}

	text := ""
	if msg.Content != nil {
		text = *msg.Content
	}
	if text == "" {
		text = w.composer.Compose(ctx, msg.MessageType, p.Intent, w.buildContext(msg, attendee, p))
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	_, err = w.sender.Send(sendCtx, gateway.Request{
		RecipientAddress: address,
		Channel:          msg.Channel,
		Body:             text,
		Subject:          w.subjectFor(msg),
		MessageID:        msg.ID,
		EventID:          msg.EventID,
		AttendeeID:       msg.AttendeeID,
		MessageType:      msg.MessageType,
		Tags:             map[string]string{"message_type": msg.MessageType},
	})
	if err != nil {
		return fmt.Errorf("gateway delivery failed: %w", err)
	}

	sentAt := w.clock()
	updated, err := w.messages.MarkSent(msg.ID, sentAt, text)
	if err != nil {
		return err
	}
	if !updated {
		// A concurrent worker won the transition; the send is already
		// accounted for.
		w.logger.Warn("Message transitioned concurrently after send", zap.Int64("message_id", msg.ID))
		return nil
	}

	w.learning.Record(msg.EventID, "message_sent", map[string]interface{}{
		"message_id":   msg.ID,
		"message_type": msg.MessageType,
		"channel":      msg.Channel,
		"delay_sec":    sentAt.Sub(msg.ScheduledAt).Seconds(),
	})
	w.logger.Info("Message sent",
		zap.Int64("message_id", msg.ID),
		zap.String("message_type", msg.MessageType),
		zap.String("channel", msg.Channel))
	return nil
}

// HandleFailure persists the terminal failed state once the retry
// budget is exhausted.
func (w *Worker) HandleFailure(ctx context.Context, job queue.Job, jobErr error) {
	updated, err := w.messages.MarkFailed(job.Payload.MessageID, jobErr.Error())
	if err != nil {
		w.logger.Error("Failed to mark message failed",
			zap.Int64("message_id", job.Payload.MessageID), zap.Error(err))
		return
	}
	if updated {
		w.learning.Record(job.Payload.EventID, "message_failed", map[string]interface{}{
			"message_id": job.Payload.MessageID,
			"error":      jobErr.Error(),
		})
	}
}

func (w *Worker) skip(msg *models.ScheduledMessage, reason string) {
	updated, err := w.messages.MarkSkipped(msg.ID, reason)
	if err != nil {
		w.logger.Error("Failed to mark message skipped", zap.Int64("message_id", msg.ID), zap.Error(err))
		return
	}
	if updated {
		w.learning.Record(msg.EventID, "message_skipped", map[string]interface{}{
			"message_id":   msg.ID,
			"message_type": msg.MessageType,
			"reason":       reason,
		})
		w.logger.Info("Message skipped",
			zap.Int64("message_id", msg.ID),
			zap.String("message_type", msg.MessageType),
			zap.String("reason", reason))
	}
}

// buildContext reconstructs the content context from the stored
// personalization payload plus current attendee and event state.
func (w *Worker) buildContext(msg *models.ScheduledMessage, attendee *models.Attendee, p models.Personalization) content.Context {
	c := content.Context{
		SpeakerName:  p.SpeakerName,
		SessionTitle: p.SessionTitle,
		SponsorName:  p.SponsorName,
		Booth:        p.Booth,
		Offering:     p.Offering,
		PeerName:     p.PeerName,
		PeerCompany:  p.PeerCompany,
		MatchReason:  p.MatchReason,
	}
	if attendee != nil {
		c.AttendeeName = attendee.Name
	}
	// Booth assignments shift day-of; prefer the sponsor's current row
	// over the details captured at schedule time.
	if p.SponsorID != nil {
		if sp, err := w.events.GetSponsorByID(*p.SponsorID); err == nil && sp != nil {
			c.SponsorName = sp.Name
			c.Booth = sp.Booth
			c.Offering = sp.Offering
		}
	}
	if p.SessionStart != nil {
		minutes := int(p.SessionStart.Sub(w.clock()).Round(time.Minute) / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		c.MinutesUntil = minutes
	}

	event, err := w.events.GetEventByID(msg.EventID)
	if err != nil || event == nil {
		return c
	}
	c.EventName = event.Name
	c.EventLocation = event.Location
	return c
}

func (w *Worker) subjectFor(msg *models.ScheduledMessage) string {
	if msg.Channel != models.ChannelEmail {
		return ""
	}
	switch msg.MessageType {
	case models.TypeSponsorBatch:
		return "How did your day at the booth go?"
	default:
		return "A quick update from the event team"
	}
}
