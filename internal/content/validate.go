package content

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"eventpulse/internal/models"
)

// Per-segment length bounds for generated content.
const (
	MinSegmentLen = 20
	MaxSegmentLen = 160
)

// Validate applies the guardrails for a message type. A validation
// failure means the caller must use the fallback template; generation
// is never retried.
func Validate(msgType, text string) error {
	segments := strings.Split(text, Separator)
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		n := utf8.RuneCountInString(seg)
		if n < MinSegmentLen {
			return fmt.Errorf("segment %d too short: %d chars", i+1, n)
		}
		if n > MaxSegmentLen {
			return fmt.Errorf("segment %d too long: %d chars", i+1, n)
		}
	}

	lower := strings.ToLower(text)
	switch msgType {
	case models.TypeSponsorRecommendation:
		if !strings.Contains(lower, "booth") {
			return fmt.Errorf("sponsor message must mention a booth")
		}
	case models.TypeSpeakerAlert:
		if !strings.Contains(lower, "min") && !strings.Contains(lower, "hour") {
			return fmt.Errorf("speaker alert must mention a time duration")
		}
	case models.TypeAttendanceCheck:
		if !strings.Contains(lower, "yes") || !strings.Contains(lower, "no") {
			return fmt.Errorf("attendance check must offer a yes/no choice")
		}
	}
	return nil
}
