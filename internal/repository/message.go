package repository

import (
	"database/sql"
	"errors"
	"time"

	"eventpulse/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// StatusCount is one row of the queue-status monitoring report.
type StatusCount struct {
	MessageType string `db:"message_type" json:"message_type"`
	Status      string `db:"status" json:"status"`
	Count       int    `db:"count" json:"count"`
}

type MessageRepository interface {
	CreateMessage(msg *models.ScheduledMessage) error
	GetMessageByID(id int64) (*models.ScheduledMessage, error)
	Exists(eventID int64, attendeeID *int64, messageType string, agendaItemID *int64) (bool, error)
	GetScheduledByEvent(eventID int64) ([]*models.ScheduledMessage, error)
	GetFutureScheduled(now time.Time) ([]*models.ScheduledMessage, error)
	MarkSent(id int64, sentAt time.Time, content string) (bool, error)
	MarkSkipped(id int64, reason string) (bool, error)
	MarkFailed(id int64, detail string) (bool, error)
	MarkResponded(id int64, responseText string, sentiment float64) (bool, error)
	Reschedule(id int64, newAt time.Time, delayMinutes int) (bool, error)
	GetLatestSentToAddress(eventID int64, address string) (*models.ScheduledMessage, error)
	StatusCounts(eventID int64) ([]StatusCount, error)
	AvgSendDelaySeconds(eventID int64) (float64, error)
}

type messageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewMessageRepository(db *sqlx.DB, logger *zap.Logger) MessageRepository {
	return &messageRepository{db: db, logger: logger}
}

const messageColumns = `id, event_id, attendee_id, agenda_item_id, message_type, channel, scheduled_at, sent_at, content, personalization, status, error_detail, response_text, sentiment, delay_minutes, created_at`

func (r *messageRepository) CreateMessage(msg *models.ScheduledMessage) error {
	query := `INSERT INTO scheduled_messages (event_id, attendee_id, agenda_item_id, message_type, channel, scheduled_at, content, personalization, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`
	return r.db.QueryRowx(query, msg.EventID, msg.AttendeeID, msg.AgendaItemID, msg.MessageType, msg.Channel,
		msg.ScheduledAt, msg.Content, msg.Personalization, msg.Status).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) GetMessageByID(id int64) (*models.ScheduledMessage, error) {
	var msg models.ScheduledMessage
	query := `SELECT ` + messageColumns + ` FROM scheduled_messages WHERE id = $1`
	err := r.db.Get(&msg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// Exists reports whether a message of the given family was already
// created for this recipient and anchor, regardless of its status.
// Schedulers use this to stay idempotent across re-invocations.
func (r *messageRepository) Exists(eventID int64, attendeeID *int64, messageType string, agendaItemID *int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM scheduled_messages
	          WHERE event_id = $1 AND message_type = $2
	            AND attendee_id IS NOT DISTINCT FROM $3
	            AND agenda_item_id IS NOT DISTINCT FROM $4`
	if err := r.db.Get(&count, query, eventID, messageType, attendeeID, agendaItemID); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *messageRepository) GetScheduledByEvent(eventID int64) ([]*models.ScheduledMessage, error) {
	var msgs []*models.ScheduledMessage
	query := `SELECT ` + messageColumns + ` FROM scheduled_messages WHERE event_id = $1 AND status = $2 ORDER BY scheduled_at ASC`
	if err := r.db.Select(&msgs, query, eventID, models.StatusScheduled); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetFutureScheduled returns every row still in status 'scheduled'
// whose scheduled instant is in the future. Used by the queue
// reconciliation pass after a restart: the relational store is
// authoritative, the queue is a rebuildable index.
func (r *messageRepository) GetFutureScheduled(now time.Time) ([]*models.ScheduledMessage, error) {
	var msgs []*models.ScheduledMessage
	query := `SELECT ` + messageColumns + ` FROM scheduled_messages WHERE status = $1 AND scheduled_at > $2 ORDER BY scheduled_at ASC`
	if err := r.db.Select(&msgs, query, models.StatusScheduled, now); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkSent transitions scheduled -> sent. The guard on the current
// status makes the transition idempotent: a worker that fires twice
// on the same message gets false the second time and must no-op.
func (r *messageRepository) MarkSent(id int64, sentAt time.Time, content string) (bool, error) {
	query := `UPDATE scheduled_messages SET status = $1, sent_at = $2, content = $3 WHERE id = $4 AND status = $5`
	return r.guardedExec(query, models.StatusSent, sentAt, content, id, models.StatusScheduled)
}

func (r *messageRepository) MarkSkipped(id int64, reason string) (bool, error) {
	query := `UPDATE scheduled_messages SET status = $1, error_detail = $2 WHERE id = $3 AND status = $4`
	return r.guardedExec(query, models.StatusSkipped, reason, id, models.StatusScheduled)
}

func (r *messageRepository) MarkFailed(id int64, detail string) (bool, error) {
	query := `UPDATE scheduled_messages SET status = $1, error_detail = $2 WHERE id = $3 AND status = $4`
	return r.guardedExec(query, models.StatusFailed, detail, id, models.StatusScheduled)
}

func (r *messageRepository) MarkResponded(id int64, responseText string, sentiment float64) (bool, error) {
	query := `UPDATE scheduled_messages SET status = $1, response_text = $2, sentiment = $3 WHERE id = $4 AND status = $5`
	return r.guardedExec(query, models.StatusResponded, responseText, sentiment, id, models.StatusSent)
}

// Reschedule shifts a still-scheduled message and records the
// accumulated override delta. Returns false when the row already
// reached a terminal state, which callers treat as success (the
// override arrived too late for that one message).
func (r *messageRepository) Reschedule(id int64, newAt time.Time, delayMinutes int) (bool, error) {
	query := `UPDATE scheduled_messages SET scheduled_at = $1, delay_minutes = $2 WHERE id = $3 AND status = $4`
	return r.guardedExec(query, newAt, delayMinutes, id, models.StatusScheduled)
}

func (r *messageRepository) guardedExec(query string, args ...interface{}) (bool, error) {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// GetLatestSentToAddress finds the most recent sent message to the
// given contact address for an event, for inbound reply routing.
func (r *messageRepository) GetLatestSentToAddress(eventID int64, address string) (*models.ScheduledMessage, error) {
	var msg models.ScheduledMessage
	query := `SELECT m.` + messageColumnsPrefixed + `
	          FROM scheduled_messages m
	          JOIN attendees a ON m.attendee_id = a.id
	          WHERE m.event_id = $1 AND m.status IN ($2, $3)
	            AND ((m.channel = 'sms' AND a.phone = $4) OR (m.channel = 'email' AND a.email = $4))
	          ORDER BY m.sent_at DESC, m.id DESC
	          LIMIT 1`
	err := r.db.Get(&msg, query, eventID, models.StatusSent, models.StatusResponded, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

const messageColumnsPrefixed = `id, m.event_id, m.attendee_id, m.agenda_item_id, m.message_type, m.channel, m.scheduled_at, m.sent_at, m.content, m.personalization, m.status, m.error_detail, m.response_text, m.sentiment, m.delay_minutes, m.created_at`

func (r *messageRepository) StatusCounts(eventID int64) ([]StatusCount, error) {
	var counts []StatusCount
	query := `SELECT message_type, status, COUNT(*) AS count FROM scheduled_messages WHERE event_id = $1 GROUP BY message_type, status ORDER BY message_type, status`
	if err := r.db.Select(&counts, query, eventID); err != nil {
		return nil, err
	}
	return counts, nil
}

// AvgSendDelaySeconds reports the average gap between actual and
// scheduled send instants across sent/responded messages.
func (r *messageRepository) AvgSendDelaySeconds(eventID int64) (float64, error) {
	var avg sql.NullFloat64
	query := `SELECT AVG(EXTRACT(EPOCH FROM (sent_at - scheduled_at))) FROM scheduled_messages WHERE event_id = $1 AND sent_at IS NOT NULL`
	if err := r.db.Get(&avg, query, eventID); err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
