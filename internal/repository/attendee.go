package repository

import (
	"database/sql"
	"errors"
	"time"

	"eventpulse/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type AttendeeRepository interface {
	GetAttendeeByID(id int64) (*models.Attendee, error)
	GetAttendeesByEvent(eventID int64) ([]*models.Attendee, error)
	GetCheckedInAttendees(eventID int64) ([]*models.Attendee, error)
	SetCheckedIn(id int64, at time.Time) (bool, error)
}

type attendeeRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAttendeeRepository(db *sqlx.DB, logger *zap.Logger) AttendeeRepository {
	return &attendeeRepository{db: db, logger: logger}
}

const attendeeColumns = `id, event_id, name, company, phone, email, sms_opt_in, email_opt_in, focus_areas, locality, region, revenue_bracket, team_size, services, title, profile_complete, checked_in_at, created_at`

func (r *attendeeRepository) GetAttendeeByID(id int64) (*models.Attendee, error) {
	var attendee models.Attendee
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE id = $1`
	err := r.db.Get(&attendee, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &attendee, nil
}

func (r *attendeeRepository) GetAttendeesByEvent(eventID int64) ([]*models.Attendee, error) {
	var attendees []*models.Attendee
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE event_id = $1 ORDER BY id ASC`
	if err := r.db.Select(&attendees, query, eventID); err != nil {
		return nil, err
	}
	return attendees, nil
}

func (r *attendeeRepository) GetCheckedInAttendees(eventID int64) ([]*models.Attendee, error) {
	var attendees []*models.Attendee
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE event_id = $1 AND checked_in_at IS NOT NULL ORDER BY id ASC`
	if err := r.db.Select(&attendees, query, eventID); err != nil {
		return nil, err
	}
	return attendees, nil
}

// SetCheckedIn stamps the check-in timestamp exactly once. Returns
// false when the attendee was already checked in (or does not exist).
func (r *attendeeRepository) SetCheckedIn(id int64, at time.Time) (bool, error) {
	query := `UPDATE attendees SET checked_in_at = $1 WHERE id = $2 AND checked_in_at IS NULL`
	result, err := r.db.Exec(query, at, id)
	if err != nil {
		r.logger.Error("Failed to set check-in timestamp", zap.Int64("attendee_id", id), zap.Error(err))
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
