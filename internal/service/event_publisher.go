package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptvault-api/internal/observability"
	"github.com/noah-isme/promptvault-api/pkg/ai"
)

// EvaluationEvent is broadcast whenever a prompt receives a new evaluation.
type EvaluationEvent struct {
	PromptID    uint           `json:"prompt_id"`
	OwnerID     uint           `json:"owner_id"`
	Trigger     string         `json:"trigger"`
	BatchID     string         `json:"batch_id,omitempty"`
	Score       ai.PromptScore `json:"score"`
	Tags        []string       `json:"tags"`
	Provider    string         `json:"provider"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}

// EventPublisher delivers evaluation events to downstream consumers.
type EventPublisher interface {
	PublishEvaluation(ctx context.Context, event EvaluationEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher publishes to NATS when a connection is available and discards events otherwise.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if conn == nil || subject == "" {
		return noopEventPublisher{}
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishEvaluation(ctx context.Context, event EvaluationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		observability.EventsPublished().WithLabelValues("error").Inc()
		return err
	}

	observability.EventsPublished().WithLabelValues("ok").Inc()
	p.logger.Debug().Uint("prompt_id", event.PromptID).Str("trigger", event.Trigger).Msg("evaluation event published")
	return nil
}

type noopEventPublisher struct{}

func (noopEventPublisher) PublishEvaluation(context.Context, EvaluationEvent) error { return nil }
