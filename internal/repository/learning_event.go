package repository

import (
	"encoding/json"

	"eventpulse/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LearningEventRepository is an append-only audit log of
// orchestration actions. Entries are written for offline tuning and
// never read back into scheduling decisions.
type LearningEventRepository interface {
	Record(eventID int64, action string, payload map[string]interface{}) error
}

type learningEventRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewLearningEventRepository(db *sqlx.DB, logger *zap.Logger) LearningEventRepository {
	return &learningEventRepository{db: db, logger: logger}
}

func (r *learningEventRepository) Record(eventID int64, action string, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	query := `INSERT INTO learning_events (event_id, action, payload) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(query, eventID, action, raw); err != nil {
		// Telemetry must never break the pipeline; log and move on.
		r.logger.Warn("Failed to record learning event", zap.Int64("event_id", eventID), zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

type OverrideLogRepository interface {
	Append(eventID int64, delayMinutes int, reason string) error
	GetByEvent(eventID int64) ([]*models.OverrideEntry, error)
}

type overrideLogRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewOverrideLogRepository(db *sqlx.DB, logger *zap.Logger) OverrideLogRepository {
	return &overrideLogRepository{db: db, logger: logger}
}

func (r *overrideLogRepository) Append(eventID int64, delayMinutes int, reason string) error {
	query := `INSERT INTO override_log (event_id, delay_minutes, reason) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(query, eventID, delayMinutes, reason)
	return err
}

func (r *overrideLogRepository) GetByEvent(eventID int64) ([]*models.OverrideEntry, error) {
	var entries []*models.OverrideEntry
	query := `SELECT id, event_id, delay_minutes, reason, created_at FROM override_log WHERE event_id = $1 ORDER BY created_at ASC`
	if err := r.db.Select(&entries, query, eventID); err != nil {
		return nil, err
	}
	return entries, nil
}
