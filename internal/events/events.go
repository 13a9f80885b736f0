// Package events publishes account lifecycle events to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types.
const (
	TypeUserRegistered  = "user.registered"
	TypeUserLoggedIn    = "user.logged_in"
	TypeCartCarriedOver = "cart.carried_over"
)

// Event is one account lifecycle notification.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(eventType string, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that only logs.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Time("occurred_at", event.OccurredAt).
		Interface("data", event.Data).
		Msg("event published")
	return nil
}

var _ Publisher = (*LogPublisher)(nil)
