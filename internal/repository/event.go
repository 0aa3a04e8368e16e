package repository

import (
	"database/sql"
	"errors"

	"eventpulse/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type EventRepository interface {
	GetEventByID(id int64) (*models.Event, error)
	GetScheduleEntries(eventID int64) ([]*models.EventSchedule, error)
	GetAgendaItems(eventID int64) ([]*models.AgendaItem, error)
	GetAgendaItemsByType(eventID int64, itemType string) ([]*models.AgendaItem, error)
	GetSponsors(eventID int64) ([]*models.Sponsor, error)
	GetSponsorByID(id int64) (*models.Sponsor, error)
}

type eventRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewEventRepository(db *sqlx.DB, logger *zap.Logger) EventRepository {
	return &eventRepository{db: db, logger: logger}
}

func (r *eventRepository) GetEventByID(id int64) (*models.Event, error) {
	var event models.Event
	query := `SELECT id, name, event_date, location, end_of_day, created_at FROM events WHERE id = $1`
	err := r.db.Get(&event, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) GetScheduleEntries(eventID int64) ([]*models.EventSchedule, error) {
	var entries []*models.EventSchedule
	query := `SELECT id, event_id, day, starts_at, created_at FROM event_schedules WHERE event_id = $1 ORDER BY starts_at ASC`
	if err := r.db.Select(&entries, query, eventID); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *eventRepository) GetAgendaItems(eventID int64) ([]*models.AgendaItem, error) {
	var items []*models.AgendaItem
	query := `SELECT id, event_id, title, item_type, starts_at, ends_at, speaker_name, sponsor_id FROM agenda_items WHERE event_id = $1 ORDER BY starts_at ASC`
	if err := r.db.Select(&items, query, eventID); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *eventRepository) GetAgendaItemsByType(eventID int64, itemType string) ([]*models.AgendaItem, error) {
	var items []*models.AgendaItem
	query := `SELECT id, event_id, title, item_type, starts_at, ends_at, speaker_name, sponsor_id FROM agenda_items WHERE event_id = $1 AND item_type = $2 ORDER BY starts_at ASC`
	if err := r.db.Select(&items, query, eventID, itemType); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *eventRepository) GetSponsors(eventID int64) ([]*models.Sponsor, error) {
	var sponsors []*models.Sponsor
	query := `SELECT id, event_id, name, booth, contact_email, offering FROM sponsors WHERE event_id = $1 ORDER BY id ASC`
	if err := r.db.Select(&sponsors, query, eventID); err != nil {
		return nil, err
	}
	return sponsors, nil
}

func (r *eventRepository) GetSponsorByID(id int64) (*models.Sponsor, error) {
	var sponsor models.Sponsor
	query := `SELECT id, event_id, name, booth, contact_email, offering FROM sponsors WHERE id = $1`
	err := r.db.Get(&sponsor, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sponsor, nil
}
