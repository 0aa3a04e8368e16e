// Package timing resolves an event's canonical start instant from a
// three-tier fallback over volatile agenda data and classifies the
// event timeline as normal or accelerated.
package timing

import (
	"errors"
	"time"

	"eventpulse/internal/repository"

	"go.uber.org/zap"
)

// ErrEventNotFound signals that no date is resolvable at all for the
// event. Callers must not schedule anything.
var ErrEventNotFound = errors.New("event not found")

// AcceleratedWindow is the default time-until-start below which an
// event is treated as a compressed testing/demo timeline.
const AcceleratedWindow = 2 * time.Hour

// TimelineProfile is an explicit classification of an event's
// timeline, passed into the scheduling functions so offset selection
// is never inferred from a global clock deep inside the scheduler.
type TimelineProfile struct {
	Accelerated bool
	// Now is the instant the profile was taken; clock-relative
	// accelerated anchors (the night-before family) are computed
	// from it.
	Now time.Time
}

// Resolver derives effective event start instants.
type Resolver struct {
	events           repository.EventRepository
	defaultStartHour int
	window           time.Duration
	logger           *zap.Logger
}

func NewResolver(events repository.EventRepository, defaultStartHour int, window time.Duration, logger *zap.Logger) *Resolver {
	if defaultStartHour <= 0 {
		defaultStartHour = 9
	}
	if window <= 0 {
		window = AcceleratedWindow
	}
	return &Resolver{events: events, defaultStartHour: defaultStartHour, window: window, logger: logger}
}

// ResolveStart resolves the event's effective start instant by
// trying, in order: the earliest explicit per-day schedule entry, the
// earliest agenda item's start, and the event's calendar date at the
// default hour.
func (r *Resolver) ResolveStart(eventID int64) (time.Time, error) {
	event, err := r.events.GetEventByID(eventID)
	if err != nil {
		return time.Time{}, err
	}
	if event == nil {
		return time.Time{}, ErrEventNotFound
	}

	entries, err := r.events.GetScheduleEntries(eventID)
	if err != nil {
		return time.Time{}, err
	}
	if len(entries) > 0 {
		return entries[0].StartsAt, nil
	}

	items, err := r.events.GetAgendaItems(eventID)
	if err != nil {
		return time.Time{}, err
	}
	if len(items) > 0 {
		return items[0].StartsAt, nil
	}

	if event.EventDate.IsZero() {
		return time.Time{}, ErrEventNotFound
	}

	d := event.EventDate
	start := time.Date(d.Year(), d.Month(), d.Day(), r.defaultStartHour, 0, 0, 0, d.Location())
	r.logger.Debug("Resolved event start from calendar date fallback",
		zap.Int64("event_id", eventID), zap.Time("start", start))
	return start, nil
}

// Profile classifies the timeline for a resolved start as seen from
// now: accelerated when the start is less than the configured window
// in the future.
func (r *Resolver) Profile(start, now time.Time) TimelineProfile {
	return TimelineProfile{
		Accelerated: start.Sub(now) < r.window,
		Now:         now,
	}
}
