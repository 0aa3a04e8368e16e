package scheduler

import (
	"context"
	"testing"
	"time"

	"eventpulse/internal/models"
	"eventpulse/internal/queue"
	"eventpulse/internal/timing"

	"go.uber.org/zap"
)

type fakePeerMatchRepo struct {
	matches []*models.PeerMatch
	nextID  int64
}

func (f *fakePeerMatchRepo) CreateMatch(match *models.PeerMatch) error {
	match.AttendeeAID, match.AttendeeBID = models.CanonicalPair(match.AttendeeAID, match.AttendeeBID)
	f.nextID++
	match.ID = f.nextID
	stored := *match
	f.matches = append(f.matches, &stored)
	return nil
}

func (f *fakePeerMatchRepo) PairExists(eventID, attendeeA, attendeeB int64) (bool, error) {
	a, b := models.CanonicalPair(attendeeA, attendeeB)
	for _, m := range f.matches {
		if m.EventID == eventID && m.AttendeeAID == a && m.AttendeeBID == b {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePeerMatchRepo) GetMatchesByEvent(eventID int64) ([]*models.PeerMatch, error) {
	return f.matches, nil
}

func (f *fakePeerMatchRepo) MarkIntroduced(id int64, at time.Time) error {
	for _, m := range f.matches {
		if m.ID == id && m.IntroducedAt == nil {
			m.IntroducedAt = &at
		}
	}
	return nil
}

func matchCandidate(id int64, name, locality, region string) *models.Attendee {
	checkedIn := time.Date(2026, 9, 12, 9, 30, 0, 0, time.UTC)
	phone := "+1214555010" + string(rune('0'+id))
	return &models.Attendee{
		ID:              id,
		EventID:         1,
		Name:            name,
		Company:         name + " LLC",
		Phone:           &phone,
		SMSOptIn:        true,
		ProfileComplete: true,
		CheckedInAt:     &checkedIn,
		FocusAreas:      "marketing,automation",
		Locality:        locality,
		Region:          region,
		RevenueBracket:  "1m_2m",
		TeamSize:        12,
	}
}

func newTestMatchmaker(events *fakeEventRepo, attendees *fakeAttendeeRepo, now time.Time) (*Matchmaker, *fakeMessageRepo, *fakePeerMatchRepo, *fakeQueue) {
	msgs := &fakeMessageRepo{}
	matches := &fakePeerMatchRepo{}
	q := &fakeQueue{}
	resolver := timing.NewResolver(events, 9, timing.AcceleratedWindow, zap.NewNop())
	m := NewMatchmaker(events, attendees, msgs, matches, &fakeLearningRepo{}, resolver, q, zap.NewNop())
	m.clock = func() time.Time { return now }
	return m, msgs, matches, q
}

func TestMatchmakerIntroducesCompatiblePairs(t *testing.T) {
	start := testEventStart()
	events := &fakeEventRepo{
		event:    &models.Event{ID: 1, EventDate: start},
		schedule: []*models.EventSchedule{{EventID: 1, StartsAt: start}},
		agenda:   agendaFixture(start),
	}
	attendees := &fakeAttendeeRepo{attendees: []*models.Attendee{
		matchCandidate(1, "Maria Lopez", "Dallas", "Texas"),
		matchCandidate(2, "Sam Carter", "Phoenix", "Arizona"),
	}}
	now := start.Add(time.Hour + 45*time.Minute)
	m, msgs, matches, q := newTestMatchmaker(events, attendees, now)

	err := m.HandleJob(context.Background(), queue.Job{
		ID:      MatchJobID(1),
		Payload: queue.Payload{Kind: JobKindPeerMatch, EventID: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches.matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches.matches))
	}
	match := matches.matches[0]
	if match.AttendeeAID != 1 || match.AttendeeBID != 2 {
		t.Errorf("expected canonical pair (1,2), got (%d,%d)", match.AttendeeAID, match.AttendeeBID)
	}
	if match.MatchScore < 0.6 {
		t.Errorf("accepted match below threshold: %v", match.MatchScore)
	}
	if match.IntroducedAt == nil {
		t.Error("match must be marked introduced")
	}

	intros := msgs.byType(models.TypePeerIntroduction)
	if len(intros) != 2 {
		t.Fatalf("expected an introduction for each side, got %d", len(intros))
	}
	for _, intro := range intros {
		p, err := intro.DecodePersonalization()
		if err != nil {
			t.Fatalf("bad personalization: %v", err)
		}
		if p.PeerName == "" || p.MatchReason == "" {
			t.Errorf("introduction missing peer details: %+v", p)
		}
		if q.jobByID(MessageJobID(intro.ID)) == nil {
			t.Errorf("no queue job for introduction %d", intro.ID)
		}
	}
}

func TestMatchmakerSkipsIncompatibleAndIneligible(t *testing.T) {
	start := testEventStart()
	events := &fakeEventRepo{
		event:    &models.Event{ID: 1, EventDate: start},
		schedule: []*models.EventSchedule{{EventID: 1, StartsAt: start}},
		agenda:   agendaFixture(start),
	}
	incompatible := matchCandidate(2, "Sam Carter", "Dallas", "Texas")
	incompatible.FocusAreas = "logistics"
	incompatible.RevenueBracket = "10m_plus"
	incompatible.TeamSize = 200
	notCheckedIn := matchCandidate(3, "Lee Park", "Austin", "Texas")
	notCheckedIn.CheckedInAt = nil
	attendees := &fakeAttendeeRepo{attendees: []*models.Attendee{
		matchCandidate(1, "Maria Lopez", "Dallas", "Texas"),
		incompatible,
		notCheckedIn,
	}}
	m, msgs, matches, _ := newTestMatchmaker(events, attendees, start.Add(time.Hour))

	err := m.HandleJob(context.Background(), queue.Job{
		ID:      MatchJobID(1),
		Payload: queue.Payload{Kind: JobKindPeerMatch, EventID: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches.matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches.matches))
	}
	if len(msgs.messages) != 0 {
		t.Errorf("expected no introductions, got %d", len(msgs.messages))
	}
}

func TestMatchmakerDoesNotRematchExistingPairs(t *testing.T) {
	start := testEventStart()
	events := &fakeEventRepo{
		event:    &models.Event{ID: 1, EventDate: start},
		schedule: []*models.EventSchedule{{EventID: 1, StartsAt: start}},
		agenda:   agendaFixture(start),
	}
	attendees := &fakeAttendeeRepo{attendees: []*models.Attendee{
		matchCandidate(1, "Maria Lopez", "Dallas", "Texas"),
		matchCandidate(2, "Sam Carter", "Phoenix", "Arizona"),
	}}
	m, msgs, matches, _ := newTestMatchmaker(events, attendees, start.Add(time.Hour))

	job := queue.Job{ID: MatchJobID(1), Payload: queue.Payload{Kind: JobKindPeerMatch, EventID: 1}}
	if err := m.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := m.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(matches.matches) != 1 {
		t.Errorf("expected the pair to be matched once, got %d", len(matches.matches))
	}
	if got := len(msgs.byType(models.TypePeerIntroduction)); got != 2 {
		t.Errorf("expected 2 introductions total, got %d", got)
	}
}

func TestMatchmakerWithoutLunchIsNoop(t *testing.T) {
	start := testEventStart()
	agenda := agendaFixture(start)
	events := &fakeEventRepo{
		event:    &models.Event{ID: 1, EventDate: start},
		schedule: []*models.EventSchedule{{EventID: 1, StartsAt: start}},
		agenda:   append(agenda[:2:2], agenda[3]),
	}
	attendees := &fakeAttendeeRepo{attendees: []*models.Attendee{
		matchCandidate(1, "Maria Lopez", "Dallas", "Texas"),
		matchCandidate(2, "Sam Carter", "Phoenix", "Arizona"),
	}}
	m, _, matches, _ := newTestMatchmaker(events, attendees, start.Add(time.Hour))

	err := m.HandleJob(context.Background(), queue.Job{
		ID:      MatchJobID(1),
		Payload: queue.Payload{Kind: JobKindPeerMatch, EventID: 1},
	})
	if err != nil {
		t.Fatalf("expected a missing lunch anchor to be tolerated, got %v", err)
	}
	if len(matches.matches) != 0 {
		t.Errorf("expected no matches without a lunch anchor, got %d", len(matches.matches))
	}
}
