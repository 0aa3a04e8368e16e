package content

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"eventpulse/internal/models"
)

// Fallback returns the deterministic template for a message type. It
// is a pure function of its inputs, makes no external call, and its
// output always satisfies Validate for the type.
func Fallback(msgType, intent string, c Context) string {
	name := firstName(c.AttendeeName)
	event := c.EventName
	if strings.TrimSpace(event) == "" {
		event = "the event"
	}

	var text string
	switch msgType {
	case models.TypeNightBefore:
		text = fmt.Sprintf("Hi %s! %s kicks off tomorrow. Arrive a few minutes early so check-in is quick. See you there!", name, event)
	case models.TypeOneHourBefore:
		text = fmt.Sprintf("Hi %s, %s starts in about an hour and check-in is open. See you soon!", name, event)
	case models.TypeEventStart:
		text = fmt.Sprintf("%s is starting now! Head to registration to check in if you haven't yet, %s.", event, name)
	case models.TypeSpeakerAlert:
		minutes := c.MinutesUntil
		if minutes <= 0 {
			minutes = 15
		}
		text = fmt.Sprintf("Heads up %s: %s takes the stage in %d minutes with \"%s\". Grab a seat!",
			name, orDefault(c.SpeakerName, "the next speaker"), minutes, orDefault(c.SessionTitle, "the next session"))
	case models.TypeSponsorRecommendation:
		text = fmt.Sprintf("%s, worth a look during the break: %s at booth %s.", name,
			orDefault(c.SponsorName, "one of our partners"), orDefault(c.Booth, "near registration")) +
			Separator +
			fmt.Sprintf("They help businesses like yours with %s. Tell them we sent you!", orDefault(c.Offering, "growth"))
	case models.TypePeerIntroduction:
		text = fmt.Sprintf("%s, someone you should meet at lunch: %s%s.", name,
			orDefault(c.PeerName, "a fellow attendee"), companySuffix(c.PeerCompany)) +
			Separator +
			fmt.Sprintf("Why: %s. Look for them near the lunch tables!", orDefault(c.MatchReason, "you two have a lot in common"))
	case models.TypeAttendanceCheck:
		text = fmt.Sprintf("Quick check, %s: did you make it to \"%s\"? Reply YES or NO.",
			name, orDefault(c.SessionTitle, "the last session"))
	case models.TypeSponsorBatch:
		text = fmt.Sprintf("Hi %s, how did today at the booth go? Reply with a quick note - we'd love your impressions.",
			orDefault(c.SponsorName, "there"))
	case models.TypeEventFeedback:
		text = fmt.Sprintf("Thanks for being part of %s, %s! How was your day? A one-line reply helps us a lot.", event, name)
	default:
		if intent != "" {
			text = fmt.Sprintf("Hi %s, a quick note from the %s team: %s.", name, event, intent)
		} else {
			text = fmt.Sprintf("Hi %s, a quick note from the %s team. Reply here if we can help with anything.", name, event)
		}
	}

	return clampSegments(text)
}

// clampSegments trims each segment to the maximum length, cutting on
// a word boundary where possible.
func clampSegments(text string) string {
	segments := strings.Split(text, Separator)
	for i, seg := range segments {
		segments[i] = clamp(strings.TrimSpace(seg), MaxSegmentLen)
	}
	return strings.Join(segments, Separator)
}

func clamp(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "there"
	}
	if idx := strings.Index(full, " "); idx > 0 {
		return full[:idx]
	}
	return full
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func companySuffix(company string) string {
	if strings.TrimSpace(company) == "" {
		return ""
	}
	return " from " + company
}
