package scheduler

import "eventpulse/internal/models"

// SuppressionReason returns the conditional-skip reason for a message
// type given the recipient's state at fire time. The check runs at
// worker execution time, not at scheduling time, so a check-in
// between scheduling and firing is still honored.
func SuppressionReason(messageType string, att *models.Attendee) (string, bool) {
	switch messageType {
	case models.TypeOneHourBefore, models.TypeEventStart:
		if att.CheckedInAt != nil {
			return models.SkipAlreadyCheckedIn, true
		}
	case models.TypeAttendanceCheck, models.TypeEventFeedback:
		if att.CheckedInAt == nil {
			return models.SkipNotCheckedIn, true
		}
	}
	return "", false
}
