package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"eventpulse/internal/matching"
	"eventpulse/internal/models"
	"eventpulse/internal/queue"
	"eventpulse/internal/repository"
	"eventpulse/internal/timing"

	"go.uber.org/zap"
)

// Matching thresholds.
const (
	matchThreshold      = 0.6
	maxMatchesPerPerson = 3
)

// Matchmaker is the queue handler for the per-event batch
// peer-matching job. It runs at most once per event at a time thanks
// to the deterministic match:<event-id> job identity.
type Matchmaker struct {
	events    repository.EventRepository
	attendees repository.AttendeeRepository
	messages  repository.MessageRepository
	matches   repository.PeerMatchRepository
	learning  repository.LearningEventRepository
	resolver  *timing.Resolver
	queue     JobQueue
	logger    *zap.Logger
	clock     func() time.Time
}

func NewMatchmaker(
	events repository.EventRepository,
	attendees repository.AttendeeRepository,
	messages repository.MessageRepository,
	matches repository.PeerMatchRepository,
	learning repository.LearningEventRepository,
	resolver *timing.Resolver,
	jobQueue JobQueue,
	logger *zap.Logger,
) *Matchmaker {
	return &Matchmaker{
		events:    events,
		attendees: attendees,
		messages:  messages,
		matches:   matches,
		learning:  learning,
		resolver:  resolver,
		queue:     jobQueue,
		logger:    logger,
		clock:     time.Now,
	}
}

type scoredPair struct {
	a, b   *models.Attendee
	result matching.Result
}

// HandleJob scores all checked-in attendee pairs, keeps each
// attendee's best matches above the threshold, persists them, and
// schedules one introduction message per attendee per match.
func (m *Matchmaker) HandleJob(ctx context.Context, job queue.Job) error {
	eventID := job.Payload.EventID

	lunches, err := m.events.GetAgendaItemsByType(eventID, models.AgendaLunch)
	if err != nil {
		return err
	}
	if len(lunches) == 0 {
		m.logger.Warn("Peer matching fired without a lunch anchor, nothing to do", zap.Int64("event_id", eventID))
		return nil
	}
	lunch := lunches[0]

	start, err := m.resolver.ResolveStart(eventID)
	if err != nil {
		return err
	}
	profile := m.resolver.Profile(start, m.clock())
	introAt := IntroSendAt(lunch, profile)

	all, err := m.attendees.GetCheckedInAttendees(eventID)
	if err != nil {
		return err
	}
	var eligible []*models.Attendee
	for _, a := range all {
		if a.SMSOptIn && a.Phone != nil && a.ProfileComplete {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) < 2 {
		m.logger.Info("Not enough eligible attendees for peer matching",
			zap.Int64("event_id", eventID), zap.Int("eligible", len(eligible)))
		return nil
	}

	pairs, err := m.scorePairs(eventID, eligible)
	if err != nil {
		return err
	}
	accepted := selectTopPairs(pairs)

	created := 0
	for _, p := range accepted {
		match := &models.PeerMatch{
			EventID:     eventID,
			AttendeeAID: p.a.ID,
			AttendeeBID: p.b.ID,
			MatchScore:  p.result.Total,
			MatchType:   p.result.Type,
			MatchReason: p.result.Reason,
		}
		if err := m.matches.CreateMatch(match); err != nil {
			m.logger.Error("Failed to persist peer match",
				zap.Int64("event_id", eventID),
				zap.Int64("attendee_a", p.a.ID), zap.Int64("attendee_b", p.b.ID), zap.Error(err))
			continue
		}
		if err := m.scheduleIntro(eventID, p.a, p.b, p.result, introAt); err != nil {
			return err
		}
		if err := m.scheduleIntro(eventID, p.b, p.a, p.result, introAt); err != nil {
			return err
		}
		if err := m.matches.MarkIntroduced(match.ID, introAt); err != nil {
			m.logger.Warn("Failed to mark match introduced", zap.Int64("match_id", match.ID), zap.Error(err))
		}
		created++
	}

	m.learning.Record(eventID, "peer_matching", map[string]interface{}{
		"eligible": len(eligible),
		"pairs":    len(pairs),
		"matched":  created,
	})
	m.logger.Info("Peer matching run complete",
		zap.Int64("event_id", eventID),
		zap.Int("eligible", len(eligible)),
		zap.Int("matched", created))
	return nil
}

// HandleFailure records the terminal failure; there is no durable row
// to transition for a matching job.
func (m *Matchmaker) HandleFailure(ctx context.Context, job queue.Job, err error) {
	m.logger.Error("Peer matching job failed permanently",
		zap.Int64("event_id", job.Payload.EventID), zap.Error(err))
	m.learning.Record(job.Payload.EventID, "peer_matching_failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// scorePairs evaluates every unmatched pair. Pairs already matched
// for the event are skipped, which keeps re-runs from re-introducing
// the same people.
func (m *Matchmaker) scorePairs(eventID int64, attendees []*models.Attendee) ([]scoredPair, error) {
	profiles := make([]matching.Profile, len(attendees))
	for i, a := range attendees {
		profiles[i] = matching.ProfileFromAttendee(a)
	}

	var pairs []scoredPair
	for i := 0; i < len(attendees); i++ {
		for j := i + 1; j < len(attendees); j++ {
			exists, err := m.matches.PairExists(eventID, attendees[i].ID, attendees[j].ID)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}
			result := matching.Score(profiles[i], profiles[j])
			if result.Total < matchThreshold {
				continue
			}
			pairs = append(pairs, scoredPair{a: attendees[i], b: attendees[j], result: result})
		}
	}
	return pairs, nil
}

// selectTopPairs greedily accepts pairs in descending score order
// while both sides still have match capacity, so each attendee ends
// up with at most their top matches.
func selectTopPairs(pairs []scoredPair) []scoredPair {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].result.Total != pairs[j].result.Total {
			return pairs[i].result.Total > pairs[j].result.Total
		}
		if pairs[i].a.ID != pairs[j].a.ID {
			return pairs[i].a.ID < pairs[j].a.ID
		}
		return pairs[i].b.ID < pairs[j].b.ID
	})

	counts := make(map[int64]int)
	var accepted []scoredPair
	for _, p := range pairs {
		if counts[p.a.ID] >= maxMatchesPerPerson || counts[p.b.ID] >= maxMatchesPerPerson {
			continue
		}
		accepted = append(accepted, p)
		counts[p.a.ID]++
		counts[p.b.ID]++
	}
	return accepted
}

// scheduleIntro creates the introduction message telling `to` about
// `peer`. Pair uniqueness already guards idempotence, so no
// per-message existence check is needed here.
func (m *Matchmaker) scheduleIntro(eventID int64, to, peer *models.Attendee, result matching.Result, at time.Time) error {
	msg := &models.ScheduledMessage{
		EventID:     eventID,
		AttendeeID:  &to.ID,
		MessageType: models.TypePeerIntroduction,
		Channel:     models.ChannelSMS,
		ScheduledAt: at,
		Status:      models.StatusScheduled,
	}
	p := models.Personalization{
		Intent:      "peer_introduction",
		PeerName:    peer.Name,
		PeerCompany: peer.Company,
		MatchReason: result.Reason,
	}
	if err := msg.EncodePersonalization(p); err != nil {
		return err
	}
	if err := m.messages.CreateMessage(msg); err != nil {
		return fmt.Errorf("failed to create introduction message: %w", err)
	}
	m.queue.Submit(queue.Job{
		ID:       MessageJobID(msg.ID),
		Payload:  queue.Payload{Kind: JobKindMessage, MessageID: msg.ID, EventID: eventID},
		RunAt:    at,
		Priority: FamilyPriority(models.TypePeerIntroduction),
	})
	return nil
}
