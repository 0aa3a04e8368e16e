package matching

import (
	"math"
	"testing"

	"eventpulse/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreSymmetry(t *testing.T) {
	a := Profile{
		AttendeeID: 1,
		FocusAreas: []string{"marketing", "automation"},
		Locality:   "Dallas",
		Region:     "Texas",
		Revenue:    "1m_2m",
		TeamSize:   12,
		Title:      "Owner",
	}
	b := Profile{
		AttendeeID: 2,
		FocusAreas: []string{"automation", "hiring"},
		Locality:   "Phoenix",
		Region:     "Arizona",
		Revenue:    "under_1m",
		TeamSize:   5,
		Title:      "CEO",
	}

	ab := Score(a, b)
	ba := Score(b, a)
	if !almostEqual(ab.Total, ba.Total) {
		t.Errorf("Score is not symmetric: %v vs %v", ab.Total, ba.Total)
	}
	if ab.Type != ba.Type {
		t.Errorf("Match type is not symmetric: %q vs %q", ab.Type, ba.Type)
	}
}

func TestScoreAlignedProfilesInDifferentMarkets(t *testing.T) {
	a := Profile{
		AttendeeID: 1,
		FocusAreas: []string{"marketing", "automation"},
		Locality:   "Dallas",
		Region:     "Texas",
		Revenue:    "1m_2m",
		TeamSize:   12,
		Services:   []string{"consulting"},
		Title:      "Owner",
	}
	b := Profile{
		AttendeeID: 2,
		FocusAreas: []string{"marketing", "automation"},
		Locality:   "Phoenix",
		Region:     "Arizona",
		Revenue:    "1m_2m",
		TeamSize:   12,
		Services:   []string{"consulting"},
		Title:      "Founder",
	}

	r := Score(a, b)
	if r.Type != models.MatchIdealPeer {
		t.Errorf("expected %q, got %q (total %v, breakdown %v)", models.MatchIdealPeer, r.Type, r.Total, r.Breakdown)
	}
	if r.Total < 0.9 {
		t.Errorf("expected near-perfect total, got %v", r.Total)
	}
	if r.Reason == "" {
		t.Error("expected a non-empty reason")
	}
}

func TestScorePartialInterestOverlap(t *testing.T) {
	a := Profile{
		AttendeeID: 1,
		FocusAreas: []string{"marketing", "automation", "sales"},
		Locality:   "Dallas",
		Region:     "Texas",
		Revenue:    "1m_2m",
		TeamSize:   12,
	}
	b := Profile{
		AttendeeID: 2,
		FocusAreas: []string{"automation", "hiring", "finance"},
		Locality:   "Phoenix",
		Region:     "Arizona",
		Revenue:    "1m_2m",
		TeamSize:   15,
	}

	r := Score(a, b)
	if r.Total < 0.6 || r.Total > 0.8 {
		t.Errorf("expected total in [0.6, 0.8], got %v (breakdown %v)", r.Total, r.Breakdown)
	}
	if r.Type != models.MatchFocusArea {
		t.Errorf("expected %q, got %q", models.MatchFocusArea, r.Type)
	}
}

func TestScoreDisjointInterestsSameCity(t *testing.T) {
	a := Profile{
		AttendeeID: 1,
		FocusAreas: []string{"marketing"},
		Locality:   "Dallas",
		Region:     "Texas",
	}
	b := Profile{
		AttendeeID: 2,
		FocusAreas: []string{"logistics"},
		Locality:   "Dallas",
		Region:     "Texas",
	}

	r := Score(a, b)
	if r.Total >= 0.6 {
		t.Errorf("expected a low total, got %v", r.Total)
	}
	if r.Type != models.MatchGeneral {
		t.Errorf("expected %q, got %q", models.MatchGeneral, r.Type)
	}
}

func TestScoreMissingGeographyIsNeutral(t *testing.T) {
	a := Profile{AttendeeID: 1, FocusAreas: []string{"marketing"}}
	b := Profile{AttendeeID: 2, FocusAreas: []string{"marketing"}, Locality: "Dallas", Region: "Texas"}

	r := Score(a, b)
	if got := r.Breakdown["geography"]; !almostEqual(got, 0.7) {
		t.Errorf("expected neutral geography 0.7, got %v", got)
	}
}

func TestScoreEmptyInterestsScoreZero(t *testing.T) {
	a := Profile{AttendeeID: 1}
	b := Profile{AttendeeID: 2, FocusAreas: []string{"marketing"}}

	r := Score(a, b)
	if got := r.Breakdown["interest"]; got != 0 {
		t.Errorf("expected zero interest score, got %v", got)
	}
}

func TestTitleScore(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Owner", "owner", 1.0},
		{"CEO", "Founder", 0.8},
		{"Marketing Director", "VP Marketing", 0.8},
		{"Sales Lead", "Sales Associate", 0.5},
		{"Accountant", "Plumber", 0},
	}
	for _, tt := range tests {
		if got := titleScore(tt.a, tt.b); !almostEqual(got, tt.want) {
			t.Errorf("titleScore(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestProfileFromAttendee(t *testing.T) {
	att := &models.Attendee{
		ID:             7,
		FocusAreas:     "Marketing, Automation",
		Services:       "consulting",
		Locality:       "Dallas",
		Region:         "Texas",
		RevenueBracket: "1m_2m",
		TeamSize:       12,
		Title:          "Owner",
	}
	p := ProfileFromAttendee(att)
	if p.AttendeeID != 7 {
		t.Errorf("expected attendee id 7, got %d", p.AttendeeID)
	}
	if len(p.FocusAreas) != 2 || p.FocusAreas[0] != "marketing" {
		t.Errorf("expected normalized focus areas, got %v", p.FocusAreas)
	}
}
