package repository

import (
	"time"

	"eventpulse/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type PeerMatchRepository interface {
	CreateMatch(match *models.PeerMatch) error
	PairExists(eventID, attendeeA, attendeeB int64) (bool, error)
	GetMatchesByEvent(eventID int64) ([]*models.PeerMatch, error)
	MarkIntroduced(id int64, at time.Time) error
}

type peerMatchRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPeerMatchRepository(db *sqlx.DB, logger *zap.Logger) PeerMatchRepository {
	return &peerMatchRepository{db: db, logger: logger}
}

// CreateMatch persists a pair in canonical (min, max) order so the
// unique constraint makes the pair exist at most once per event.
func (r *peerMatchRepository) CreateMatch(match *models.PeerMatch) error {
	match.AttendeeAID, match.AttendeeBID = models.CanonicalPair(match.AttendeeAID, match.AttendeeBID)
	query := `INSERT INTO peer_matches (event_id, attendee_a_id, attendee_b_id, match_score, match_type, match_reason)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.db.QueryRowx(query, match.EventID, match.AttendeeAID, match.AttendeeBID,
		match.MatchScore, match.MatchType, match.MatchReason).Scan(&match.ID, &match.CreatedAt)
}

func (r *peerMatchRepository) PairExists(eventID, attendeeA, attendeeB int64) (bool, error) {
	a, b := models.CanonicalPair(attendeeA, attendeeB)
	var count int
	query := `SELECT COUNT(*) FROM peer_matches WHERE event_id = $1 AND attendee_a_id = $2 AND attendee_b_id = $3`
	if err := r.db.Get(&count, query, eventID, a, b); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *peerMatchRepository) GetMatchesByEvent(eventID int64) ([]*models.PeerMatch, error) {
	var matches []*models.PeerMatch
	query := `SELECT id, event_id, attendee_a_id, attendee_b_id, match_score, match_type, match_reason, introduced_at, responded, connected, created_at
	          FROM peer_matches WHERE event_id = $1 ORDER BY match_score DESC`
	if err := r.db.Select(&matches, query, eventID); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *peerMatchRepository) MarkIntroduced(id int64, at time.Time) error {
	query := `UPDATE peer_matches SET introduced_at = $1 WHERE id = $2 AND introduced_at IS NULL`
	_, err := r.db.Exec(query, at, id)
	return err
}
