package scheduler

import (
	"fmt"

	"eventpulse/internal/models"
	"eventpulse/internal/queue"
)

// Job payload kinds routed by the delayed job queue.
const (
	JobKindMessage   = "message"
	JobKindPeerMatch = "peer_match"
)

// JobQueue is the slice of the delayed job queue the scheduling side
// depends on.
type JobQueue interface {
	Submit(job queue.Job)
	Cancel(jobID string) bool
}

// MessageJobID derives the deterministic job identity for a scheduled
// message. Deriving it from the row id prevents duplicate pending
// executions when a scheduler is re-run.
func MessageJobID(messageID int64) string {
	return fmt.Sprintf("msg:%d", messageID)
}

// MatchJobID derives the single-flight job identity for an event's
// batch peer-matching run.
func MatchJobID(eventID int64) string {
	return fmt.Sprintf("match:%d", eventID)
}

// FamilyPriority returns the queue priority for a message family.
// Imminent, high-value types are serviced ahead of batch types when
// multiple jobs are due at once.
func FamilyPriority(messageType string) int {
	if p, ok := familyPriorities[messageType]; ok {
		return p
	}
	return 30
}

var familyPriorities = map[string]int{
	models.TypeEventStart:            90,
	models.TypeSpeakerAlert:          80,
	models.TypeOneHourBefore:         70,
	models.TypeNightBefore:           60,
	models.TypeAttendanceCheck:       50,
	models.TypeSponsorRecommendation: 40,
	models.TypePeerIntroduction:      40,
	models.TypeSponsorBatch:          20,
	models.TypeEventFeedback:         10,
}

// MatchJobPriority sits between reminder and batch families.
const MatchJobPriority = 35
