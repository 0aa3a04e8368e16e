package content

import (
	"fmt"
	"strings"

	"eventpulse/internal/models"
)

// SystemInstruction sets the role and tone for every generation.
const SystemInstruction = `You write short, warm, professional SMS and email messages for business conference attendees.
Rules:
- Write plain text only. No markdown, no emoji spam, at most one emoji.
- Each message segment must be between 20 and 160 characters.
- If asked for a two-part message, separate the parts with "|||".
- Never invent facts not present in the briefing.
- Do not wrap the message in quotation marks.`

// BuildPrompt assembles the type-specific prompt from the intent and
// personalization context.
func BuildPrompt(msgType, intent string, c Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Briefing:\n- Attendee: %s\n- Event: %s", orUnknown(c.AttendeeName), orUnknown(c.EventName))
	if c.EventLocation != "" {
		fmt.Fprintf(&b, "\n- Location: %s", c.EventLocation)
	}
	if intent != "" {
		fmt.Fprintf(&b, "\n- Intent: %s", intent)
	}

	switch msgType {
	case models.TypeNightBefore:
		b.WriteString("\n\nWrite one SMS reminding the attendee that the event starts tomorrow and to arrive early for check-in.")
	case models.TypeOneHourBefore:
		b.WriteString("\n\nWrite one SMS reminding the attendee the event starts in about an hour and that check-in is open.")
	case models.TypeEventStart:
		b.WriteString("\n\nWrite one SMS telling the attendee the event is starting now and where to check in.")
	case models.TypeSpeakerAlert:
		fmt.Fprintf(&b, "\n- Speaker: %s\n- Session: %s\n- Starts in: %d minutes", orUnknown(c.SpeakerName), orUnknown(c.SessionTitle), c.MinutesUntil)
		b.WriteString("\n\nWrite one SMS alerting the attendee that this session starts soon. You must state how many minutes remain.")
	case models.TypeSponsorRecommendation:
		fmt.Fprintf(&b, "\n- Sponsor: %s\n- Booth: %s\n- Offering: %s", orUnknown(c.SponsorName), orUnknown(c.Booth), c.Offering)
		b.WriteString("\n\nWrite a two-part SMS recommending the attendee visit this sponsor during the break. You must mention the booth. Separate the parts with \"|||\".")
	case models.TypePeerIntroduction:
		fmt.Fprintf(&b, "\n- Peer: %s (%s)\n- Why they match: %s", orUnknown(c.PeerName), c.PeerCompany, c.MatchReason)
		b.WriteString("\n\nWrite a two-part SMS introducing the attendee to this peer over lunch and why they should meet. Separate the parts with \"|||\".")
	case models.TypeAttendanceCheck:
		fmt.Fprintf(&b, "\n- Session just ended: %s", orUnknown(c.SessionTitle))
		b.WriteString("\n\nWrite one SMS asking whether the attendee made it to this session. The message must offer a clear YES or NO reply choice.")
	case models.TypeSponsorBatch:
		fmt.Fprintf(&b, "\n- Sponsor contact: %s", orUnknown(c.SponsorName))
		b.WriteString("\n\nWrite one short email body asking the sponsor how their day at the booth went and inviting a reply.")
	case models.TypeEventFeedback:
		b.WriteString("\n\nWrite one SMS thanking the attendee for coming and asking for a one-line impression of the day.")
	default:
		b.WriteString("\n\nWrite one short SMS for the attendee matching the intent.")
	}

	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
