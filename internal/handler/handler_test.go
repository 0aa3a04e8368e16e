package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventpulse/internal/models"
	"eventpulse/internal/override"
	"eventpulse/internal/queue"
	"eventpulse/internal/repository"
	"eventpulse/internal/scheduler"
	"eventpulse/internal/timing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakeMessageRepo struct {
	messages []*models.ScheduledMessage
	nextID   int64
	counts   []repository.StatusCount
	avgDelay float64
}

func (f *fakeMessageRepo) CreateMessage(msg *models.ScheduledMessage) error {
	f.nextID++
	msg.ID = f.nextID
	stored := *msg
	f.messages = append(f.messages, &stored)
	return nil
}
func (f *fakeMessageRepo) GetMessageByID(id int64) (*models.ScheduledMessage, error) {
	return nil, nil
}

func eqPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (f *fakeMessageRepo) Exists(eventID int64, attendeeID *int64, messageType string, agendaItemID *int64) (bool, error) {
	for _, m := range f.messages {
		if m.EventID == eventID && m.MessageType == messageType &&
			eqPtr(m.AttendeeID, attendeeID) && eqPtr(m.AgendaItemID, agendaItemID) {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeMessageRepo) GetScheduledByEvent(eventID int64) ([]*models.ScheduledMessage, error) {
	return nil, nil
}
func (f *fakeMessageRepo) GetFutureScheduled(now time.Time) ([]*models.ScheduledMessage, error) {
	return nil, nil
}
func (f *fakeMessageRepo) MarkSent(id int64, sentAt time.Time, content string) (bool, error) {
	return false, nil
}
func (f *fakeMessageRepo) MarkSkipped(id int64, reason string) (bool, error) { return false, nil }
func (f *fakeMessageRepo) MarkFailed(id int64, detail string) (bool, error)  { return false, nil }
func (f *fakeMessageRepo) MarkResponded(id int64, responseText string, sentiment float64) (bool, error) {
	return false, nil
}
func (f *fakeMessageRepo) Reschedule(id int64, newAt time.Time, delayMinutes int) (bool, error) {
	return false, nil
}
func (f *fakeMessageRepo) GetLatestSentToAddress(eventID int64, address string) (*models.ScheduledMessage, error) {
	return nil, nil
}
func (f *fakeMessageRepo) StatusCounts(eventID int64) ([]repository.StatusCount, error) {
	return f.counts, nil
}
func (f *fakeMessageRepo) AvgSendDelaySeconds(eventID int64) (float64, error) {
	return f.avgDelay, nil
}

type fakeMatchRepo struct {
	matches []*models.PeerMatch
}

func (f *fakeMatchRepo) CreateMatch(match *models.PeerMatch) error { return nil }
func (f *fakeMatchRepo) PairExists(eventID, attendeeA, attendeeB int64) (bool, error) {
	return false, nil
}
func (f *fakeMatchRepo) GetMatchesByEvent(eventID int64) ([]*models.PeerMatch, error) {
	return f.matches, nil
}
func (f *fakeMatchRepo) MarkIntroduced(id int64, at time.Time) error { return nil }

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

type fakeEventRepo struct {
	event  *models.Event
	agenda []*models.AgendaItem
}

func (f *fakeEventRepo) GetEventByID(id int64) (*models.Event, error) { return f.event, nil }
func (f *fakeEventRepo) GetScheduleEntries(eventID int64) ([]*models.EventSchedule, error) {
	return nil, nil
}
func (f *fakeEventRepo) GetAgendaItems(eventID int64) ([]*models.AgendaItem, error) {
	return f.agenda, nil
}
func (f *fakeEventRepo) GetAgendaItemsByType(eventID int64, itemType string) ([]*models.AgendaItem, error) {
	return nil, nil
}
func (f *fakeEventRepo) GetSponsors(eventID int64) ([]*models.Sponsor, error) { return nil, nil }
func (f *fakeEventRepo) GetSponsorByID(id int64) (*models.Sponsor, error)     { return nil, nil }

type fakeAttendeeRepo struct {
	attendees map[int64]*models.Attendee
}

func (f *fakeAttendeeRepo) GetAttendeeByID(id int64) (*models.Attendee, error) {
	return f.attendees[id], nil
}
func (f *fakeAttendeeRepo) GetAttendeesByEvent(eventID int64) ([]*models.Attendee, error) {
	return nil, nil
}
func (f *fakeAttendeeRepo) GetCheckedInAttendees(eventID int64) ([]*models.Attendee, error) {
	return nil, nil
}
func (f *fakeAttendeeRepo) SetCheckedIn(id int64, at time.Time) (bool, error) {
	a, ok := f.attendees[id]
	if !ok || a.CheckedInAt != nil {
		return false, nil
	}
	a.CheckedInAt = &at
	return true, nil
}

type fakeLearningRepo struct{ actions []string }

func (f *fakeLearningRepo) Record(eventID int64, action string, payload map[string]interface{}) error {
	f.actions = append(f.actions, action)
	return nil
}

type fakeJobQueue struct{ submitted []queue.Job }

func (f *fakeJobQueue) Submit(job queue.Job)     { f.submitted = append(f.submitted, job) }
func (f *fakeJobQueue) Cancel(jobID string) bool { return false }

type fakePending struct{ depth int }

func (f fakePending) Pending() int { return f.depth }

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func strPtr(s string) *string { return &s }

func TestQueueStatusCountsPerTypeAndStatus(t *testing.T) {
	msgs := &fakeMessageRepo{
		counts: []repository.StatusCount{
			{MessageType: models.TypeNightBefore, Status: models.StatusScheduled, Count: 3},
			{MessageType: models.TypeNightBefore, Status: models.StatusSent, Count: 2},
			{MessageType: models.TypeSpeakerAlert, Status: models.StatusSent, Count: 5},
			{MessageType: models.TypeSpeakerAlert, Status: models.StatusSkipped, Count: 1},
		},
		avgDelay: 4.5,
	}
	h := NewMonitoringHandler(msgs, &fakeMatchRepo{}, fakePending{depth: 8}, zap.NewNop())
	r := newTestRouter()
	r.GET("/api/events/:id/queue-status", h.QueueStatus)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events/1/queue-status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Counts     map[string]map[string]int `json:"counts"`
		AvgDelay   float64                   `json:"avg_send_delay_seconds"`
		QueueDepth int                       `json:"queue_depth"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got := resp.Counts[models.TypeNightBefore][models.StatusSent]; got != 2 {
		t.Errorf("night-before sent = %d, want 2", got)
	}
	if got := resp.Counts[models.TypeSpeakerAlert][models.StatusSent]; got != 5 {
		t.Errorf("speaker-alert sent = %d, want 5", got)
	}
	if got := resp.Counts[models.TypeNightBefore][models.StatusScheduled]; got != 3 {
		t.Errorf("night-before scheduled = %d, want 3", got)
	}
	if resp.AvgDelay != 4.5 {
		t.Errorf("avg delay = %v, want 4.5", resp.AvgDelay)
	}
	if resp.QueueDepth != 8 {
		t.Errorf("queue depth = %d, want 8", resp.QueueDepth)
	}
}

func TestQueueStatusRejectsMalformedID(t *testing.T) {
	h := NewMonitoringHandler(&fakeMessageRepo{}, &fakeMatchRepo{}, fakePending{}, zap.NewNop())
	r := newTestRouter()
	r.GET("/api/events/:id/queue-status", h.QueueStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/abc/queue-status", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", w.Code)
	}
}

func TestMatchesListsEventMatches(t *testing.T) {
	matches := &fakeMatchRepo{matches: []*models.PeerMatch{
		{ID: 1, EventID: 1, AttendeeAID: 1, AttendeeBID: 2, MatchScore: 0.92, MatchType: "ideal_peer"},
		{ID: 2, EventID: 1, AttendeeAID: 3, AttendeeBID: 5, MatchScore: 0.71, MatchType: "focus_area_match"},
	}}
	h := NewMonitoringHandler(&fakeMessageRepo{}, matches, fakePending{}, zap.NewNop())
	r := newTestRouter()
	r.GET("/api/events/:id/matches", h.Matches)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/1/matches", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Matches []models.PeerMatch `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(resp.Matches))
	}
	if resp.Matches[0].MatchType != "ideal_peer" || resp.Matches[0].MatchScore != 0.92 {
		t.Errorf("unexpected first match: %+v", resp.Matches[0])
	}
}

func TestListOverridesReturnsHistory(t *testing.T) {
	overrides := &fakeOverrideLog{}
	controller := override.NewController(&fakeMessageRepo{}, overrides, &fakeLearningRepo{}, &fakeJobQueue{}, zap.NewNop())
	if _, err := controller.Apply(1, 30, "venue opened late"); err != nil {
		t.Fatal(err)
	}
	h := NewOverrideHandler(controller, zap.NewNop())
	r := newTestRouter()
	r.GET("/api/events/:id/override", h.ListOverrides)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/1/override", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Overrides []models.OverrideEntry `json:"overrides"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Overrides) != 1 {
		t.Fatalf("expected 1 override entry, got %d", len(resp.Overrides))
	}
	if resp.Overrides[0].DelayMinutes != 30 || resp.Overrides[0].Reason != "venue opened late" {
		t.Errorf("unexpected entry: %+v", resp.Overrides[0])
	}
}

func checkInFixture(t *testing.T) (*gin.Engine, *fakeMessageRepo, *fakeAttendeeRepo, *fakeLearningRepo) {
	t.Helper()
	start := time.Now().UTC().AddDate(1, 0, 0).Truncate(time.Hour)
	events := &fakeEventRepo{
		event: &models.Event{ID: 1, EventDate: start},
		agenda: []*models.AgendaItem{
			{ID: 1, EventID: 1, Title: "Opening Keynote", ItemType: models.AgendaSession,
				StartsAt: start, EndsAt: start.Add(time.Hour), SpeakerName: strPtr("Jordan Reyes")},
		},
	}
	attendees := &fakeAttendeeRepo{attendees: map[int64]*models.Attendee{
		7: {ID: 7, EventID: 1, Name: "Maria Lopez", Phone: strPtr("+12145550101"), SMSOptIn: true},
	}}
	msgs := &fakeMessageRepo{}
	learning := &fakeLearningRepo{}
	resolver := timing.NewResolver(events, 9, timing.AcceleratedWindow, zap.NewNop())
	sched := scheduler.NewScheduler(events, attendees, msgs, learning, resolver, &fakeJobQueue{}, zap.NewNop())
	h := NewScheduleHandler(sched, attendees, learning, zap.NewNop())
	r := newTestRouter()
	r.POST("/api/events/:id/checkin/:attendeeID", h.CheckIn)
	return r, msgs, attendees, learning
}

func TestCheckInBackfillsAgendaMessages(t *testing.T) {
	r, msgs, attendees, learning := checkInFixture(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/events/1/checkin/7", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if attendees.attendees[7].CheckedInAt == nil {
		t.Fatal("check-in instant not recorded")
	}
	// Speaker alert and attendance check for the keynote, feedback at
	// the agenda end.
	if len(msgs.messages) != 3 {
		t.Fatalf("expected 3 backfilled messages, got %d", len(msgs.messages))
	}
	recorded := false
	for _, a := range learning.actions {
		if a == "attendee_checked_in" {
			recorded = true
		}
	}
	if !recorded {
		t.Errorf("expected attendee_checked_in learning record, got %v", learning.actions)
	}
}

func TestCheckInTwiceIsReportedNotRepeated(t *testing.T) {
	r, msgs, _, _ := checkInFixture(t)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/events/1/checkin/7", nil))
	created := len(msgs.messages)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/events/1/checkin/7", nil))

	if second.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", second.Code, second.Body.String())
	}
	var resp struct {
		CheckedIn        bool `json:"checked_in"`
		AlreadyCheckedIn bool `json:"already_checked_in"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.AlreadyCheckedIn {
		t.Error("second check-in must be reported as already checked in")
	}
	if len(msgs.messages) != created {
		t.Errorf("repeated check-in created messages: %d -> %d", created, len(msgs.messages))
	}
}

func TestCheckInUnknownAttendee(t *testing.T) {
	r, _, _, _ := checkInFixture(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/events/1/checkin/99", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", w.Code)
	}
}
