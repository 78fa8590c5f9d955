package events

import (
	"context"
	"time"

	"patient-caller-backend/internal/model"
)

// Type names a queue transition.
type Type string

const (
	TypeAdded    Type = "added"
	TypeCalled   Type = "called"
	TypeAttended Type = "attended"
)

// Event is a queue transition as seen by subscribers.
type Event struct {
	Type     Type          `json:"type"`
	Paciente model.Patient `json:"paciente"`
	At       time.Time     `json:"at"`
}

// Publisher receives queue events after they are committed. Publish must
// not block the caller for long.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event)

func (f PublisherFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

// Fanout publishes every event to each non-nil member in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, ev)
		}
	}
}
