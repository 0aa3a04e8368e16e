package scheduler

import (
	"time"

	"eventpulse/internal/models"
	"eventpulse/internal/timing"
)

// NightBeforeHour is the fixed evening hour for the night-before
// reminder on a normal timeline.
const NightBeforeHour = 19

// Anchors holds the resolved timing sources for one event, computed
// once per scheduling run and handed to every family.
type Anchors struct {
	Start    time.Time
	Profile  timing.TimelineProfile
	Sessions []*models.AgendaItem // session items, agenda order
	Breaks   []*models.AgendaItem
	Lunch    *models.AgendaItem // first lunch item, nil when absent
	LastEnd  time.Time          // last agenda item's end, zero when no agenda
}

// target is one concrete send instant produced by a family, with the
// agenda item it is anchored on (nil for event-level anchors).
type target struct {
	at   time.Time
	item *models.AgendaItem
}

// family is one row of the declarative scheduling table: anchor
// selection, channel, eligibility gating, and queue priority for one
// message type. The suppression predicates live in suppression.go and
// are evaluated at worker fire time, not here.
type family struct {
	Type         string
	Channel      string
	ProfileGated bool // requires a complete attendee profile
	PerSponsor   bool // fans out over sponsors instead of attendees
	Targets      func(ax Anchors) []target
}

// checkInFamilies are the attendee-scoped reminder families scheduled
// at registration time.
var checkInFamilies = []family{
	{
		Type:    models.TypeNightBefore,
		Channel: models.ChannelSMS,
		Targets: func(ax Anchors) []target {
			if ax.Profile.Accelerated {
				return []target{{at: ax.Profile.Now.Add(2 * time.Minute)}}
			}
			d := ax.Start.AddDate(0, 0, -1)
			at := time.Date(d.Year(), d.Month(), d.Day(), NightBeforeHour, 0, 0, 0, d.Location())
			return []target{{at: at}}
		},
	},
	{
		Type:    models.TypeOneHourBefore,
		Channel: models.ChannelSMS,
		Targets: func(ax Anchors) []target {
			if ax.Profile.Accelerated {
				return []target{{at: ax.Start.Add(-1 * time.Minute)}}
			}
			return []target{{at: ax.Start.Add(-1 * time.Hour)}}
		},
	},
	{
		Type:    models.TypeEventStart,
		Channel: models.ChannelSMS,
		Targets: func(ax Anchors) []target {
			return []target{{at: ax.Start}}
		},
	},
}

// agendaFamilies are the event-scoped families scheduled when the
// agenda is (re)generated.
var agendaFamilies = []family{
	{
		Type:    models.TypeSpeakerAlert,
		Channel: models.ChannelSMS,
		Targets: func(ax Anchors) []target {
			offset := -15 * time.Minute
			if ax.Profile.Accelerated {
				offset = -2 * time.Minute
			}
			var ts []target
			for _, s := range ax.Sessions {
				if s.SpeakerName == nil || *s.SpeakerName == "" {
					continue
				}
				ts = append(ts, target{at: s.StartsAt.Add(offset), item: s})
			}
			return ts
		},
	},
	{
		Type:         models.TypeSponsorRecommendation,
		Channel:      models.ChannelSMS,
		ProfileGated: true,
		Targets: func(ax Anchors) []target {
			offset := 2 * time.Minute
			if ax.Profile.Accelerated {
				offset = 1 * time.Minute
			}
			var ts []target
			for _, b := range ax.Breaks {
				ts = append(ts, target{at: b.StartsAt.Add(offset), item: b})
			}
			return ts
		},
	},
	{
		Type:    models.TypeAttendanceCheck,
		Channel: models.ChannelSMS,
		Targets: func(ax Anchors) []target {
			offset := 7 * time.Minute
			if ax.Profile.Accelerated {
				offset = 2 * time.Minute
			}
			var ts []target
			for _, s := range ax.Sessions {
				ts = append(ts, target{at: s.EndsAt.Add(offset), item: s})
			}
			return ts
		},
	},
	{
		Type:       models.TypeSponsorBatch,
		Channel:    models.ChannelEmail,
		PerSponsor: true,
		Targets: func(ax Anchors) []target {
			if ax.LastEnd.IsZero() {
				return nil
			}
			return []target{{at: ax.LastEnd}}
		},
	},
	{
		Type:    models.TypeEventFeedback,
		Channel: models.ChannelSMS,
		Targets: func(ax Anchors) []target {
			if ax.LastEnd.IsZero() {
				return nil
			}
			offset := 1 * time.Hour
			if ax.Profile.Accelerated {
				offset = 3 * time.Minute
			}
			return []target{{at: ax.LastEnd.Add(offset)}}
		},
	},
}

// MatchRunAt computes the batch peer-matching instant: lunch start
// minus a lead that leaves time to score and schedule introductions.
func MatchRunAt(lunch *models.AgendaItem, profile timing.TimelineProfile) time.Time {
	lead := 15 * time.Minute
	if profile.Accelerated {
		lead = 3 * time.Minute
	}
	return lunch.StartsAt.Add(-lead)
}

// IntroSendAt computes the peer-introduction send instant relative to
// lunch start.
func IntroSendAt(lunch *models.AgendaItem, profile timing.TimelineProfile) time.Time {
	offset := 5 * time.Minute
	if profile.Accelerated {
		offset = 2 * time.Minute
	}
	return lunch.StartsAt.Add(offset)
}
