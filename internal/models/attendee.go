package models

import (
	"strings"
	"time"
)

// Attendee represents a business contact registered for an event,
// stored in the 'attendees' table. The profile attributes feed the
// compatibility scoring engine; contact channels are independently
// nullable.
type Attendee struct {
	ID              int64      `db:"id" json:"id"`
	EventID         int64      `db:"event_id" json:"event_id"`
	Name            string     `db:"name" json:"name"`
	Company         string     `db:"company" json:"company"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	Email           *string    `db:"email" json:"email,omitempty"`
	SMSOptIn        bool       `db:"sms_opt_in" json:"sms_opt_in"`
	EmailOptIn      bool       `db:"email_opt_in" json:"email_opt_in"`
	FocusAreas      string     `db:"focus_areas" json:"focus_areas"` // comma-separated tags
	Locality        string     `db:"locality" json:"locality"`
	Region          string     `db:"region" json:"region"`
	RevenueBracket  string     `db:"revenue_bracket" json:"revenue_bracket"` // heterogeneous encodings, see matching.ParseRevenueBracket
	TeamSize        int        `db:"team_size" json:"team_size"`
	Services        string     `db:"services" json:"services"` // comma-separated
	Title           string     `db:"title" json:"title"`
	ProfileComplete bool       `db:"profile_complete" json:"profile_complete"`
	CheckedInAt     *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"` // set exactly once
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// FocusAreaList splits the comma-separated focus areas into
// normalized tags.
func (a *Attendee) FocusAreaList() []string {
	return splitTags(a.FocusAreas)
}

// ServiceList splits the comma-separated services into normalized tags.
func (a *Attendee) ServiceList() []string {
	return splitTags(a.Services)
}

// ContactFor returns the address for the given channel, or nil when
// the attendee has no such contact detail.
func (a *Attendee) ContactFor(channel string) *string {
	switch channel {
	case ChannelSMS:
		return a.Phone
	case ChannelEmail:
		return a.Email
	}
	return nil
}

// OptedIn reports whether the attendee opted into the given channel.
func (a *Attendee) OptedIn(channel string) bool {
	switch channel {
	case ChannelSMS:
		return a.SMSOptIn
	case ChannelEmail:
		return a.EmailOptIn
	}
	return false
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
