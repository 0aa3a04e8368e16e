package models

import "time"

// Event represents an event stored in the 'events' table.
// Events are created administratively and are read-only to the
// orchestration core.
type Event struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	EventDate time.Time `db:"event_date" json:"event_date"`
	Location  string    `db:"location" json:"location"`
	EndOfDay  *string   `db:"end_of_day" json:"end_of_day,omitempty"` // "HH:MM" agenda boundary, nullable
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EventSchedule is an explicit per-day schedule entry, the most
// precise timing source for an event day.
type EventSchedule struct {
	ID        int64     `db:"id" json:"id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	Day       time.Time `db:"day" json:"day"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Agenda item types.
const (
	AgendaSession      = "session"
	AgendaBreak        = "break"
	AgendaLunch        = "lunch"
	AgendaRegistration = "registration"
	AgendaClosing      = "closing"
)

// AgendaItem represents a row in the 'agenda_items' table. Used
// purely as a read-only timing source by the schedulers.
type AgendaItem struct {
	ID          int64     `db:"id" json:"id"`
	EventID     int64     `db:"event_id" json:"event_id"`
	Title       string    `db:"title" json:"title"`
	ItemType    string    `db:"item_type" json:"item_type"` // session, break, lunch, registration, closing
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"` // invariant: ends_at >= starts_at
	SpeakerName *string   `db:"speaker_name" json:"speaker_name,omitempty"`
	SponsorID   *int64    `db:"sponsor_id" json:"sponsor_id,omitempty"`
}

// Sponsor represents a partner organization with a booth at the event.
type Sponsor struct {
	ID           int64   `db:"id" json:"id"`
	EventID      int64   `db:"event_id" json:"event_id"`
	Name         string  `db:"name" json:"name"`
	Booth        string  `db:"booth" json:"booth"`
	ContactEmail *string `db:"contact_email" json:"contact_email,omitempty"`
	Offering     string  `db:"offering" json:"offering"`
}
