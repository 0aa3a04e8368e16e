// Package scheduler computes per-recipient send instants from agenda
// anchors and enqueues delivery jobs. All message families share one
// configurable scheduler driven by the declarative table in
// families.go; the durable ScheduledMessage row is always persisted
// before its queue job is submitted.
package scheduler

import (
	"errors"
	"time"

	"eventpulse/internal/models"
	"eventpulse/internal/queue"
	"eventpulse/internal/repository"
	"eventpulse/internal/timing"

	"go.uber.org/zap"
)

// ErrAttendeeNotFound signals an unknown attendee; callers must not
// schedule anything.
var ErrAttendeeNotFound = errors.New("attendee not found")

// Result is the structured "what got scheduled" outcome. An event
// with no eligible recipients or no usable anchor is an expected
// configuration state, not an error.
type Result struct {
	Scheduled int    `json:"scheduled"`
	Skipped   int    `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
}

// Scheduler persists scheduled messages and submits their jobs.
type Scheduler struct {
	events    repository.EventRepository
	attendees repository.AttendeeRepository
	messages  repository.MessageRepository
	learning  repository.LearningEventRepository
	resolver  *timing.Resolver
	queue     JobQueue
	logger    *zap.Logger
	clock     func() time.Time
}

func NewScheduler(
	events repository.EventRepository,
	attendees repository.AttendeeRepository,
	messages repository.MessageRepository,
	learning repository.LearningEventRepository,
	resolver *timing.Resolver,
	jobQueue JobQueue,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		events:    events,
		attendees: attendees,
		messages:  messages,
		learning:  learning,
		resolver:  resolver,
		queue:     jobQueue,
		logger:    logger,
		clock:     time.Now,
	}
}

// Anchors resolves the timing sources for an event.
func (s *Scheduler) Anchors(eventID int64) (Anchors, error) {
	start, err := s.resolver.ResolveStart(eventID)
	if err != nil {
		return Anchors{}, err
	}

	items, err := s.events.GetAgendaItems(eventID)
	if err != nil {
		return Anchors{}, err
	}

	ax := Anchors{
		Start:   start,
		Profile: s.resolver.Profile(start, s.clock()),
	}
	for _, item := range items {
		switch item.ItemType {
		case models.AgendaSession:
			ax.Sessions = append(ax.Sessions, item)
		case models.AgendaBreak:
			ax.Breaks = append(ax.Breaks, item)
		case models.AgendaLunch:
			if ax.Lunch == nil {
				ax.Lunch = item
			}
		}
		if item.EndsAt.After(ax.LastEnd) {
			ax.LastEnd = item.EndsAt
		}
	}
	return ax, nil
}

// ScheduleEvent runs every agenda-anchored family for an event and
// submits the batch peer-matching job. Invoked when the agenda is
// (re)generated; safe to call repeatedly.
func (s *Scheduler) ScheduleEvent(eventID int64) (*Result, error) {
	ax, err := s.Anchors(eventID)
	if err != nil {
		return nil, err
	}

	attendees, err := s.attendees.GetAttendeesByEvent(eventID)
	if err != nil {
		return nil, err
	}
	sponsors, err := s.events.GetSponsors(eventID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, fam := range agendaFamilies {
		n, skipped, err := s.scheduleFamily(fam, eventID, ax, attendees, sponsors)
		if err != nil {
			return nil, err
		}
		result.Scheduled += n
		result.Skipped += skipped
	}

	if ax.Lunch != nil && len(attendees) > 0 {
		s.queue.Submit(queue.Job{
			ID:       MatchJobID(eventID),
			Payload:  queue.Payload{Kind: JobKindPeerMatch, EventID: eventID},
			RunAt:    MatchRunAt(ax.Lunch, ax.Profile),
			Priority: MatchJobPriority,
		})
	}

	if result.Scheduled == 0 {
		result.Reason = "no eligible recipients or agenda anchors"
	}

	s.learning.Record(eventID, "schedule_event", map[string]interface{}{
		"scheduled":   result.Scheduled,
		"skipped":     result.Skipped,
		"accelerated": ax.Profile.Accelerated,
	})
	s.logger.Info("Event scheduling run complete",
		zap.Int64("event_id", eventID),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("skipped", result.Skipped),
		zap.Bool("accelerated", ax.Profile.Accelerated))
	return result, nil
}

// ScheduleAttendee runs the check-in reminder families for one
// attendee. Invoked at registration completion.
func (s *Scheduler) ScheduleAttendee(eventID, attendeeID int64) (*Result, error) {
	ax, err := s.Anchors(eventID)
	if err != nil {
		return nil, err
	}

	attendee, err := s.attendees.GetAttendeeByID(attendeeID)
	if err != nil {
		return nil, err
	}
	if attendee == nil || attendee.EventID != eventID {
		return nil, ErrAttendeeNotFound
	}

	result := &Result{}
	for _, fam := range checkInFamilies {
		n, skipped, err := s.scheduleFamily(fam, eventID, ax, []*models.Attendee{attendee}, nil)
		if err != nil {
			return nil, err
		}
		result.Scheduled += n
		result.Skipped += skipped
	}
	if result.Scheduled == 0 {
		result.Reason = "no eligible recipients or agenda anchors"
	}
	return result, nil
}

// CatchUpAttendee runs the per-attendee agenda families for a single
// attendee. Invoked at check-in so a late registrant still receives
// session alerts and follow-ups without an operator re-running the
// event pass. Existence guards and past-anchor skips keep repeated
// invocations harmless.
func (s *Scheduler) CatchUpAttendee(eventID, attendeeID int64) (*Result, error) {
	ax, err := s.Anchors(eventID)
	if err != nil {
		return nil, err
	}

	attendee, err := s.attendees.GetAttendeeByID(attendeeID)
	if err != nil {
		return nil, err
	}
	if attendee == nil || attendee.EventID != eventID {
		return nil, ErrAttendeeNotFound
	}
	sponsors, err := s.events.GetSponsors(eventID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, fam := range agendaFamilies {
		if fam.PerSponsor {
			// Event-scoped batch family, nothing attendee-specific to
			// catch up.
			continue
		}
		n, skipped, err := s.scheduleFamily(fam, eventID, ax, []*models.Attendee{attendee}, sponsors)
		if err != nil {
			return nil, err
		}
		result.Scheduled += n
		result.Skipped += skipped
	}
	return result, nil
}

func (s *Scheduler) scheduleFamily(fam family, eventID int64, ax Anchors, attendees []*models.Attendee, sponsors []*models.Sponsor) (int, int, error) {
	targets := fam.Targets(ax)
	if len(targets) == 0 {
		return 0, 0, nil
	}

	if fam.PerSponsor {
		return s.scheduleSponsorFamily(fam, eventID, targets, sponsors)
	}

	scheduled, skipped := 0, 0
	now := s.clock()
	for _, att := range attendees {
		if !att.OptedIn(fam.Channel) || att.ContactFor(fam.Channel) == nil {
			skipped++
			continue
		}
		if fam.ProfileGated && !att.ProfileComplete {
			skipped++
			continue
		}
		for _, t := range targets {
			if !t.at.After(now) {
				// Anchor already in the past; a stale reminder is
				// worse than none.
				skipped++
				continue
			}
			var itemID *int64
			if t.item != nil {
				itemID = &t.item.ID
			}
			exists, err := s.messages.Exists(eventID, &att.ID, fam.Type, itemID)
			if err != nil {
				return scheduled, skipped, err
			}
			if exists {
				continue
			}

			p := s.personalization(fam.Type, t, sponsors, att)
			msg := &models.ScheduledMessage{
				EventID:      eventID,
				AttendeeID:   &att.ID,
				AgendaItemID: itemID,
				MessageType:  fam.Type,
				Channel:      fam.Channel,
				ScheduledAt:  t.at,
				Status:       models.StatusScheduled,
			}
			if err := msg.EncodePersonalization(p); err != nil {
				return scheduled, skipped, err
			}
			if err := s.enqueue(msg); err != nil {
				return scheduled, skipped, err
			}
			scheduled++
		}
	}
	return scheduled, skipped, nil
}

// scheduleSponsorFamily fans the end-of-day wrap-up out over sponsor
// contacts. Idempotence is per family: a prior run already wrote the
// batch, so any existing row short-circuits the whole family.
func (s *Scheduler) scheduleSponsorFamily(fam family, eventID int64, targets []target, sponsors []*models.Sponsor) (int, int, error) {
	exists, err := s.messages.Exists(eventID, nil, fam.Type, nil)
	if err != nil {
		return 0, 0, err
	}
	if exists {
		return 0, 0, nil
	}

	scheduled, skipped := 0, 0
	now := s.clock()
	for _, sp := range sponsors {
		if sp.ContactEmail == nil || *sp.ContactEmail == "" {
			skipped++
			continue
		}
		for _, t := range targets {
			if !t.at.After(now) {
				skipped++
				continue
			}
			msg := &models.ScheduledMessage{
				EventID:     eventID,
				MessageType: fam.Type,
				Channel:     fam.Channel,
				ScheduledAt: t.at,
				Status:      models.StatusScheduled,
			}
			p := models.Personalization{
				Intent:      "sponsor_day_wrapup",
				Recipient:   *sp.ContactEmail,
				SponsorName: sp.Name,
				Booth:       sp.Booth,
			}
			if err := msg.EncodePersonalization(p); err != nil {
				return scheduled, skipped, err
			}
			if err := s.enqueue(msg); err != nil {
				return scheduled, skipped, err
			}
			scheduled++
		}
	}
	return scheduled, skipped, nil
}

func (s *Scheduler) personalization(msgType string, t target, sponsors []*models.Sponsor, att *models.Attendee) models.Personalization {
	switch msgType {
	case models.TypeNightBefore, models.TypeOneHourBefore, models.TypeEventStart:
		return models.Personalization{Intent: "check_in_reminder"}
	case models.TypeSpeakerAlert:
		p := models.Personalization{Intent: "speaker_alert"}
		if t.item != nil {
			if t.item.SpeakerName != nil {
				p.SpeakerName = *t.item.SpeakerName
			}
			p.SessionTitle = t.item.Title
			start := t.item.StartsAt
			p.SessionStart = &start
		}
		return p
	case models.TypeSponsorRecommendation:
		p := models.Personalization{Intent: "sponsor_visit"}
		if len(sponsors) > 0 {
			// Deterministic spread of sponsors across attendees and
			// breaks.
			idx := att.ID
			if t.item != nil {
				idx += t.item.ID
			}
			sp := sponsors[int(idx)%len(sponsors)]
			p.SponsorID = &sp.ID
			p.SponsorName = sp.Name
			p.Booth = sp.Booth
			p.Offering = sp.Offering
		}
		return p
	case models.TypeAttendanceCheck:
		p := models.Personalization{Intent: "session_attendance"}
		if t.item != nil {
			p.SessionTitle = t.item.Title
		}
		return p
	case models.TypeEventFeedback:
		return models.Personalization{Intent: "event_feedback"}
	}
	return models.Personalization{}
}

// enqueue persists the message row, then submits its queue job keyed
// by the row id.
func (s *Scheduler) enqueue(msg *models.ScheduledMessage) error {
	if err := s.messages.CreateMessage(msg); err != nil {
		return err
	}
	s.queue.Submit(queue.Job{
		ID:       MessageJobID(msg.ID),
		Payload:  queue.Payload{Kind: JobKindMessage, MessageID: msg.ID, EventID: msg.EventID},
		RunAt:    msg.ScheduledAt,
		Priority: FamilyPriority(msg.MessageType),
	})
	return nil
}

// Reconcile re-submits a job for every row still in status
// 'scheduled' with a future send instant. Run at startup: the
// relational store is authoritative and the queue is rebuilt from it,
// never the reverse.
func (s *Scheduler) Reconcile() (int, error) {
	msgs, err := s.messages.GetFutureScheduled(s.clock())
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		s.queue.Submit(queue.Job{
			ID:       MessageJobID(msg.ID),
			Payload:  queue.Payload{Kind: JobKindMessage, MessageID: msg.ID, EventID: msg.EventID},
			RunAt:    msg.ScheduledAt,
			Priority: FamilyPriority(msg.MessageType),
		})
	}
	if len(msgs) > 0 {
		s.logger.Info("Reconciled scheduled messages into queue", zap.Int("count", len(msgs)))
	}
	return len(msgs), nil
}
