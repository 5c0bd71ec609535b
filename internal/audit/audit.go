package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event describes one committed state transition. Emission is at-least-once
// and fire-and-forget: a failed emit never blocks or rolls back the
// transition it describes.
type Event struct {
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	ActorID    uuid.UUID      `json:"actor_id,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Publisher is the transport half, satisfied by pkg/rabbitmq.Publisher.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

type publisherEmitter struct {
	pub    Publisher
	logger *zap.Logger
}

func NewEmitter(pub Publisher, logger *zap.Logger) Emitter {
	return &publisherEmitter{pub: pub, logger: logger}
}

func (e *publisherEmitter) Emit(_ context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := e.pub.Publish("audit."+ev.EntityType, ev); err != nil {
		// logged, never raised
		e.logger.Warn("audit emit failed",
			zap.String("action", ev.Action),
			zap.String("entity_type", ev.EntityType),
			zap.String("entity_id", ev.EntityID.String()),
			zap.Error(err),
		)
	}
}

// NopEmitter discards events; used in tests and when no broker is configured.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}

type actorKey struct{}

// WithActor attaches the acting user to the context so services can stamp
// audit events without threading actor ids through every call.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the acting user, or uuid.Nil when unset.
func ActorFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
