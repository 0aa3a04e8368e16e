// Package matching computes weighted compatibility scores between
// attendee profiles. The engine is pure and deterministic: identical
// inputs always produce identical results, and Score(a, b) equals
// Score(b, a).
package matching

import (
	"math"
	"strings"

	"eventpulse/internal/models"
)

// Profile is the slice of an attendee relevant to scoring.
type Profile struct {
	AttendeeID int64
	FocusAreas []string
	Locality   string
	Region     string
	Revenue    string
	TeamSize   int
	Services   []string
	Title      string
}

// ProfileFromAttendee extracts a scoring profile from a stored attendee.
func ProfileFromAttendee(a *models.Attendee) Profile {
	return Profile{
		AttendeeID: a.ID,
		FocusAreas: a.FocusAreaList(),
		Locality:   a.Locality,
		Region:     a.Region,
		Revenue:    a.RevenueBracket,
		TeamSize:   a.TeamSize,
		Services:   a.ServiceList(),
		Title:      a.Title,
	}
}

// Result is a total score in [0,1], the per-factor breakdown, a
// discrete match-type classification, and a human-readable reason.
type Result struct {
	Total     float64
	Breakdown map[string]float64
	Type      string
	Reason    string
}

// Factor weights. When both sides carry a title the bonus factor is
// applicable and interest drops from 0.40 to 0.35; the leftover
// weight otherwise folds back into the largest factors.
var (
	weightsWithTitle = map[string]float64{
		"interest":  0.35,
		"geography": 0.25,
		"scale":     0.20,
		"services":  0.10,
		"title":     0.10,
	}
	weightsNoTitle = map[string]float64{
		"interest":  0.40,
		"geography": 0.25,
		"scale":     0.20,
		"services":  0.15,
	}
)

// Score computes the weighted compatibility between two profiles.
func Score(a, b Profile) Result {
	titleApplicable := strings.TrimSpace(a.Title) != "" && strings.TrimSpace(b.Title) != ""

	breakdown := map[string]float64{
		"interest":  interestScore(a.FocusAreas, b.FocusAreas),
		"geography": geographyScore(a, b),
		"scale":     scaleScore(a, b),
		"services":  servicesScore(a.Services, b.Services),
	}
	weights := weightsNoTitle
	if titleApplicable {
		breakdown["title"] = titleScore(a.Title, b.Title)
		weights = weightsWithTitle
	}

	var total float64
	for factor, w := range weights {
		total += breakdown[factor] * w
	}

	matchType := classify(breakdown)
	return Result{
		Total:     total,
		Breakdown: breakdown,
		Type:      matchType,
		Reason:    buildReason(breakdown, matchType),
	}
}

// interestScore boosts raw Jaccard similarity so that half-overlapping
// tag sets already count as strong alignment, capped at 1.
func interestScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return math.Min(1, 2*jaccard(a, b))
}

func jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for tag := range setA {
		if setB[tag] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// geographyScore rewards non-overlapping markets: attendees from the
// same city compete, attendees from different regions complement.
func geographyScore(a, b Profile) float64 {
	if (a.Locality == "" && a.Region == "") || (b.Locality == "" && b.Region == "") {
		return 0.7 // missing data: benefit of the doubt
	}
	if a.Region != "" && b.Region != "" && !strings.EqualFold(a.Region, b.Region) {
		return 1.0
	}
	if a.Locality != "" && strings.EqualFold(a.Locality, b.Locality) {
		return 0.2
	}
	if a.Region != "" && strings.EqualFold(a.Region, b.Region) {
		return 0.5
	}
	return 0.7
}

// scaleScore averages revenue-bracket proximity and team-size
// proximity, each banded by percentage difference.
func scaleScore(a, b Profile) float64 {
	return (revenueScore(a.Revenue, b.Revenue) + teamScore(a.TeamSize, b.TeamSize)) / 2
}

func revenueScore(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0.5
	}
	diff := pctDiff(ParseRevenueBracket(a), ParseRevenueBracket(b))
	switch {
	case diff < 20:
		return 1.0
	case diff < 50:
		return 0.8
	case diff < 100:
		return 0.6
	case diff < 200:
		return 0.4
	default:
		return 0.2
	}
}

func teamScore(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 0.5
	}
	diff := pctDiff(float64(a), float64(b))
	switch {
	case diff < 20:
		return 1.0
	case diff < 50:
		return 0.8
	case diff < 100:
		return 0.5
	case diff < 200:
		return 0.3
	default:
		return 0.1
	}
}

// pctDiff is the difference relative to the smaller value, in percent.
func pctDiff(a, b float64) float64 {
	if a == b {
		return 0
	}
	lo := math.Min(a, b)
	if lo <= 0 {
		return 1000
	}
	return math.Abs(a-b) / lo * 100
}

// servicesScore is the overlap of offered-services sets, with a
// neutral default when either side lists nothing.
func servicesScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	return jaccard(a, b)
}

// Title synonym clusters: titles in the same cluster score 0.8.
var titleClusters = map[string][]string{
	"executive":  {"owner", "ceo", "founder", "co-founder", "president", "principal"},
	"management": {"manager", "director", "vp", "vice president", "head"},
}

func titleScore(a, b string) float64 {
	ta := strings.ToLower(strings.TrimSpace(a))
	tb := strings.ToLower(strings.TrimSpace(b))
	if ta == tb {
		return 1.0
	}
	if ca, cb := titleCluster(ta), titleCluster(tb); ca != "" && ca == cb {
		return 0.8
	}
	if sharesWord(ta, tb) {
		return 0.5
	}
	return 0
}

func titleCluster(title string) string {
	for cluster, keywords := range titleClusters {
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				return cluster
			}
		}
	}
	return ""
}

func sharesWord(a, b string) bool {
	wordsA := strings.Fields(a)
	setB := toSet(strings.Fields(b))
	for _, w := range wordsA {
		if setB[w] {
			return true
		}
	}
	return false
}

func classify(breakdown map[string]float64) string {
	switch {
	case breakdown["interest"] > 0.8 && breakdown["geography"] > 0.8:
		return models.MatchIdealPeer
	case breakdown["interest"] > 0.6:
		return models.MatchFocusArea
	case breakdown["scale"] > 0.8:
		return models.MatchScale
	default:
		return models.MatchGeneral
	}
}

// buildReason assembles a human-readable reason from whichever
// factors scored highly, in a fixed order for determinism.
func buildReason(breakdown map[string]float64, matchType string) string {
	var phrases []string
	if breakdown["interest"] > 0.6 {
		phrases = append(phrases, "strong focus-area overlap")
	}
	if breakdown["geography"] >= 0.8 {
		phrases = append(phrases, "complementary markets")
	}
	if breakdown["scale"] > 0.8 {
		phrases = append(phrases, "similar business scale")
	}
	if breakdown["title"] >= 0.8 {
		phrases = append(phrases, "peer-level roles")
	}
	if len(phrases) == 0 {
		if matchType == models.MatchGeneral {
			return "potentially valuable connection"
		}
		return "compatible profiles"
	}
	return strings.Join(phrases, "; ")
}

func toSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}
