package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// LearningEvent is an append-only audit record of orchestration
// actions and outcomes. It is written for tuning and never read back
// into scheduling decisions.
type LearningEvent struct {
	ID        int64          `db:"id" json:"id"`
	EventID   int64          `db:"event_id" json:"event_id"`
	Action    string         `db:"action" json:"action"`
	Payload   types.JSONText `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// OverrideEntry is one row of the event-level override log.
type OverrideEntry struct {
	ID           int64     `db:"id" json:"id"`
	EventID      int64     `db:"event_id" json:"event_id"`
	DelayMinutes int       `db:"delay_minutes" json:"delay_minutes"`
	Reason       string    `db:"reason" json:"reason"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
