// Package response routes inbound replies back to the message that
// most plausibly prompted them. Replies carry no message reference, so
// attribution is by recipient address: the latest sent message to that
// address wins.
package response

import (
	"errors"

	"eventpulse/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoMatchingMessage signals a reply from an address that no sent
// message can be attributed to. The webhook surface maps it to a 404.
var ErrNoMatchingMessage = errors.New("no sent message matches the reply address")

// Reply is one inbound message from the gateway webhook.
type Reply struct {
	Address string `json:"address"`
	Body    string `json:"body"`
	EventID int64  `json:"event_id"`
}

// Outcome reports how a reply was attributed.
type Outcome struct {
	MessageID   int64   `json:"message_id"`
	MessageType string  `json:"message_type"`
	Sentiment   string  `json:"sentiment"`
	Score       float64 `json:"score"`
}

// Tracker attributes replies and transitions the matched message to
// the responded state.
type Tracker struct {
	messages repository.MessageRepository
	learning repository.LearningEventRepository
	logger   *zap.Logger
}

func NewTracker(messages repository.MessageRepository, learning repository.LearningEventRepository, logger *zap.Logger) *Tracker {
	return &Tracker{messages: messages, learning: learning, logger: logger}
}

// Ingest attributes one reply. A reply to a message that already
// recorded a response keeps the first response; the second reply is
// still logged for analysis.
func (t *Tracker) Ingest(r Reply) (*Outcome, error) {
	msg, err := t.messages.GetLatestSentToAddress(r.EventID, r.Address)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		t.logger.Warn("Reply from an address with no sent messages",
			zap.Int64("event_id", r.EventID), zap.String("address", r.Address))
		return nil, ErrNoMatchingMessage
	}

	label, score := Sentiment(r.Body)
	updated, err := t.messages.MarkResponded(msg.ID, r.Body, score)
	if err != nil {
		return nil, err
	}

	t.learning.Record(r.EventID, "reply_ingested", map[string]interface{}{
		"ingestion_id": uuid.New().String(),
		"message_id":   msg.ID,
		"message_type": msg.MessageType,
		"sentiment":    label,
		"first_reply":  updated,
	})
	t.logger.Info("Reply attributed",
		zap.Int64("message_id", msg.ID),
		zap.String("message_type", msg.MessageType),
		zap.String("sentiment", label),
		zap.Bool("first_reply", updated))

	return &Outcome{
		MessageID:   msg.ID,
		MessageType: msg.MessageType,
		Sentiment:   label,
		Score:       score,
	}, nil
}
