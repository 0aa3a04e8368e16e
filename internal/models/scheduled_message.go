package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Message statuses. Transitions are monotonic:
// scheduled -> sent | skipped | failed, and sent -> responded.
// A message never returns to scheduled except via cancel + recreate.
const (
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusResponded = "responded"
)

// Delivery channels.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Message families.
const (
	TypeNightBefore           = "night_before"
	TypeOneHourBefore         = "one_hour_before"
	TypeEventStart            = "event_start"
	TypeSpeakerAlert          = "speaker_alert"
	TypeSponsorRecommendation = "sponsor_recommendation"
	TypePeerIntroduction      = "peer_introduction"
	TypeAttendanceCheck       = "attendance_check"
	TypeSponsorBatch          = "sponsor_batch"
	TypeEventFeedback         = "event_feedback"
)

// Skip reasons recorded in error_detail for skipped messages.
const (
	SkipAlreadyCheckedIn = "already_checked_in"
	SkipNotCheckedIn     = "not_checked_in"
	SkipNoContact        = "no_contact"
)

// ScheduledMessage is the central orchestration entity, the durable
// source of truth for every outbound message. The delayed job queue
// is a rebuildable index over rows still in status 'scheduled'.
type ScheduledMessage struct {
	ID              int64          `db:"id" json:"id"`
	EventID         int64          `db:"event_id" json:"event_id"`
	AttendeeID      *int64         `db:"attendee_id" json:"attendee_id,omitempty"` // nullable for non-attendee recipients
	AgendaItemID    *int64         `db:"agenda_item_id" json:"agenda_item_id,omitempty"`
	MessageType     string         `db:"message_type" json:"message_type"`
	Channel         string         `db:"channel" json:"channel"`
	ScheduledAt     time.Time      `db:"scheduled_at" json:"scheduled_at"`
	SentAt          *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	Content         *string        `db:"content" json:"content,omitempty"` // resolved at fire time
	Personalization types.JSONText `db:"personalization" json:"personalization,omitempty"`
	Status          string         `db:"status" json:"status"`
	ErrorDetail     *string        `db:"error_detail" json:"error_detail,omitempty"`
	ResponseText    *string        `db:"response_text" json:"response_text,omitempty"`
	Sentiment       *float64       `db:"sentiment" json:"sentiment,omitempty"`
	DelayMinutes    int            `db:"delay_minutes" json:"delay_minutes"` // accumulated override delta
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// Personalization is the structured payload stored alongside a
// scheduled message so the worker can rebuild content context at fire
// time without re-querying agenda state.
type Personalization struct {
	Intent       string     `json:"intent,omitempty"`
	Recipient    string     `json:"recipient,omitempty"` // for non-attendee recipients
	SpeakerName  string     `json:"speaker_name,omitempty"`
	SessionTitle string     `json:"session_title,omitempty"`
	SessionStart *time.Time `json:"session_start,omitempty"`
	SponsorID    *int64     `json:"sponsor_id,omitempty"`
	SponsorName  string     `json:"sponsor_name,omitempty"`
	Booth        string     `json:"booth,omitempty"`
	Offering     string     `json:"offering,omitempty"`
	PeerName     string     `json:"peer_name,omitempty"`
	PeerCompany  string     `json:"peer_company,omitempty"`
	MatchReason  string     `json:"match_reason,omitempty"`
}

// DecodePersonalization unmarshals the stored payload. An empty
// column yields a zero value, not an error.
func (m *ScheduledMessage) DecodePersonalization() (Personalization, error) {
	var p Personalization
	if len(m.Personalization) == 0 {
		return p, nil
	}
	err := json.Unmarshal(m.Personalization, &p)
	return p, err
}

// EncodePersonalization marshals the payload onto the message.
func (m *ScheduledMessage) EncodePersonalization(p Personalization) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	m.Personalization = types.JSONText(raw)
	return nil
}
