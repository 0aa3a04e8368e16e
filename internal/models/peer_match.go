package models

import "time"

// Match type classifications produced by the scoring engine.
const (
	MatchIdealPeer = "ideal_peer"
	MatchFocusArea = "focus_area_match"
	MatchScale     = "scale_match"
	MatchGeneral   = "general_match"
)

// PeerMatch is an unordered pair of attendees at one event. The two
// attendee ids are stored in canonical (min, max) order so the pair
// is unique per event; a pair is created at most once per event.
type PeerMatch struct {
	ID           int64      `db:"id" json:"id"`
	EventID      int64      `db:"event_id" json:"event_id"`
	AttendeeAID  int64      `db:"attendee_a_id" json:"attendee_a_id"` // always < attendee_b_id
	AttendeeBID  int64      `db:"attendee_b_id" json:"attendee_b_id"`
	MatchScore   float64    `db:"match_score" json:"match_score"` // [0,1]
	MatchType    string     `db:"match_type" json:"match_type"`
	MatchReason  string     `db:"match_reason" json:"match_reason"`
	IntroducedAt *time.Time `db:"introduced_at" json:"introduced_at,omitempty"`
	Responded    bool       `db:"responded" json:"responded"`
	Connected    bool       `db:"connected" json:"connected"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// CanonicalPair orders two attendee ids as (min, max).
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}
