// Package events publishes remediation and recovery events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event types emitted by the API.
const (
	TypeStudentSuspended  = "remediation.suspended"
	TypeStudentReinstated = "remediation.reinstated"
	TypeCapacityRelieved  = "remediation.relieved"
	TypeRecoveryResolved  = "recovery.resolved"
)

// Event is the envelope sent on the bus.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	ActorID    uint                   `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// New builds an event with a fresh id.
func New(eventType string, actorID uint, data map[string]interface{}) Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Data:       data,
	}
}

// Publisher sends events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

var _ Conn = (*nats.Conn)(nil)

type natsPublisher struct {
	conn   Conn
	prefix string
	logger zerolog.Logger
}

// NewNATSPublisher publishes each event on "<prefix>.<type>".
func NewNATSPublisher(conn Conn, prefix string, logger zerolog.Logger) Publisher {
	prefix = strings.Trim(strings.ReplaceAll(prefix, ":", "."), ".")
	if prefix == "" {
		prefix = "academy"
	}
	return &natsPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Subject returns the subject an event type is published on.
func (p *natsPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *natsPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.Subject(event.Type), payload); err != nil {
		p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish event")
		return err
	}
	return nil
}

type nopPublisher struct{}

// NewNopPublisher returns a publisher that drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, Event) error {
	return nil
}
