package override

import (
	"testing"
	"time"

	"eventpulse/internal/models"
	"eventpulse/internal/queue"
	"eventpulse/internal/repository"
	"eventpulse/internal/scheduler"

	"go.uber.org/zap"
)

type fakeMessageStore struct {
	messages []*models.ScheduledMessage
}

func (f *fakeMessageStore) CreateMessage(msg *models.ScheduledMessage) error { return nil }
func (f *fakeMessageStore) GetMessageByID(id int64) (*models.ScheduledMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) Exists(eventID int64, attendeeID *int64, messageType string, agendaItemID *int64) (bool, error) {
	return false, nil
}
func (f *fakeMessageStore) GetScheduledByEvent(eventID int64) ([]*models.ScheduledMessage, error) {
	var out []*models.ScheduledMessage
	for _, m := range f.messages {
		if m.EventID == eventID && m.Status == models.StatusScheduled {
			out = append(out, m)
		}
	}
	return out, nil
}
func (f *fakeMessageStore) GetFutureScheduled(now time.Time) ([]*models.ScheduledMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) MarkSent(id int64, sentAt time.Time, content string) (bool, error) {
	return false, nil
}
func (f *fakeMessageStore) MarkSkipped(id int64, reason string) (bool, error) { return false, nil }
func (f *fakeMessageStore) MarkFailed(id int64, detail string) (bool, error)  { return false, nil }
func (f *fakeMessageStore) MarkResponded(id int64, responseText string, sentiment float64) (bool, error) {
	return false, nil
}
func (f *fakeMessageStore) Reschedule(id int64, newAt time.Time, delayMinutes int) (bool, error) {
	for _, m := range f.messages {
		if m.ID == id {
			if m.Status != models.StatusScheduled {
				return false, nil
			}
			m.ScheduledAt = newAt
			m.DelayMinutes = delayMinutes
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeMessageStore) GetLatestSentToAddress(eventID int64, address string) (*models.ScheduledMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) StatusCounts(eventID int64) ([]repository.StatusCount, error) {
	return nil, nil
}
func (f *fakeMessageStore) AvgSendDelaySeconds(eventID int64) (float64, error) { return 0, nil }

type fakeOverrideLog struct {
	entries []models.OverrideEntry
}

func (f *fakeOverrideLog) Append(eventID int64, delayMinutes int, reason string) error {
	f.entries = append(f.entries, models.OverrideEntry{EventID: eventID, DelayMinutes: delayMinutes, Reason: reason})
	return nil
}
func (f *fakeOverrideLog) GetByEvent(eventID int64) ([]*models.OverrideEntry, error) {
	var out []*models.OverrideEntry
	for i := range f.entries {
		if f.entries[i].EventID == eventID {
			out = append(out, &f.entries[i])
		}
	}
	return out, nil
}

type fakeLearningStore struct{ actions []string }

func (f *fakeLearningStore) Record(eventID int64, action string, payload map[string]interface{}) error {
	f.actions = append(f.actions, action)
	return nil
}

type fakeQueue struct {
	submitted []queue.Job
	cancelled []string
}

func (f *fakeQueue) Submit(job queue.Job) { f.submitted = append(f.submitted, job) }
func (f *fakeQueue) Cancel(jobID string) bool {
	f.cancelled = append(f.cancelled, jobID)
	return true
}

func TestApplyShiftsPendingMessages(t *testing.T) {
	base := time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)
	pendingA := &models.ScheduledMessage{ID: 1, EventID: 1, MessageType: models.TypeSpeakerAlert,
		ScheduledAt: base, Status: models.StatusScheduled}
	pendingB := &models.ScheduledMessage{ID: 2, EventID: 1, MessageType: models.TypeAttendanceCheck,
		ScheduledAt: base.Add(time.Hour), Status: models.StatusScheduled, DelayMinutes: 15}
	alreadySent := &models.ScheduledMessage{ID: 3, EventID: 1, MessageType: models.TypeNightBefore,
		ScheduledAt: base.Add(-time.Hour), Status: models.StatusSent}
	msgs := &fakeMessageStore{messages: []*models.ScheduledMessage{pendingA, pendingB, alreadySent}}
	overrides := &fakeOverrideLog{}
	learning := &fakeLearningStore{}
	q := &fakeQueue{}
	c := NewController(msgs, overrides, learning, q, zap.NewNop())

	result, err := c.Apply(1, 30, "venue opened late")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Shifted != 2 {
		t.Errorf("expected 2 shifted messages, got %d", result.Shifted)
	}

	if want := base.Add(30 * time.Minute); !pendingA.ScheduledAt.Equal(want) {
		t.Errorf("message 1 at %v, want %v", pendingA.ScheduledAt, want)
	}
	if pendingA.DelayMinutes != 30 {
		t.Errorf("message 1 accumulated delay %d, want 30", pendingA.DelayMinutes)
	}
	if pendingB.DelayMinutes != 45 {
		t.Errorf("message 2 accumulated delay %d, want 45", pendingB.DelayMinutes)
	}
	if !alreadySent.ScheduledAt.Equal(base.Add(-time.Hour)) {
		t.Error("terminal messages must not be shifted")
	}

	if len(q.cancelled) != 2 || len(q.submitted) != 2 {
		t.Errorf("expected cancel+resubmit per shifted message, got %d/%d", len(q.cancelled), len(q.submitted))
	}
	if q.submitted[0].ID != scheduler.MessageJobID(1) {
		t.Errorf("resubmitted job %s, want %s", q.submitted[0].ID, scheduler.MessageJobID(1))
	}
	if !q.submitted[0].RunAt.Equal(base.Add(30 * time.Minute)) {
		t.Errorf("resubmitted job fires at %v", q.submitted[0].RunAt)
	}

	if len(overrides.entries) != 1 || overrides.entries[0].DelayMinutes != 30 {
		t.Errorf("expected one override log entry, got %v", overrides.entries)
	}
}

func TestApplyCountsRacedMessagesAsTooLate(t *testing.T) {
	base := time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)
	raced := &models.ScheduledMessage{ID: 1, EventID: 1, MessageType: models.TypeSpeakerAlert,
		ScheduledAt: base, Status: models.StatusScheduled}
	msgs := &racingMessageStore{fakeMessageStore{messages: []*models.ScheduledMessage{raced}}}
	q := &fakeQueue{}
	c := NewController(msgs, &fakeOverrideLog{}, &fakeLearningStore{}, q, zap.NewNop())

	result, err := c.Apply(1, 30, "session overrun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Shifted != 0 || result.TooLate != 1 {
		t.Errorf("expected the raced message to count as too late, got %+v", result)
	}
	if len(q.submitted) != 0 {
		t.Error("no job may be submitted for a message that left the scheduled state")
	}
}

func TestHistoryReturnsAppliedOverrides(t *testing.T) {
	msgs := &fakeMessageStore{}
	overrides := &fakeOverrideLog{}
	c := NewController(msgs, overrides, &fakeLearningStore{}, &fakeQueue{}, zap.NewNop())

	if _, err := c.Apply(1, 30, "venue opened late"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, err := c.Apply(1, 15, "session overrun"); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if _, err := c.Apply(2, 10, "other event"); err != nil {
		t.Fatalf("third apply: %v", err)
	}

	entries, err := c.History(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries for event 1, got %d", len(entries))
	}
	if entries[0].DelayMinutes != 30 || entries[1].DelayMinutes != 15 {
		t.Errorf("history out of order: %+v, %+v", entries[0], entries[1])
	}
	if entries[1].Reason != "session overrun" {
		t.Errorf("unexpected reason %q", entries[1].Reason)
	}
}

// racingMessageStore simulates a worker winning the state transition
// between the override's read and its guarded reschedule.
type racingMessageStore struct {
	fakeMessageStore
}

func (f *racingMessageStore) Reschedule(id int64, newAt time.Time, delayMinutes int) (bool, error) {
	return false, nil
}
