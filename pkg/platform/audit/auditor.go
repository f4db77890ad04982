// Package audit records the transfer agent's action trail. Domain services
// emit Events through a Recorder; sinks (in-memory store, Kafka) persist or
// forward them.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	id "xftledger/pkg/domain"
	"xftledger/pkg/requestcontext"
)

// Auditor is the narrow interface domain services emit through.
type Auditor interface {
	Record(ctx context.Context, event Event) error
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject id.Address) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives events for forwarding; stores and publishers both satisfy it.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Recorder is the emission point used by domain services. Compliance events
// are written synchronously to every sink and fail the caller on error;
// operations events are queued for the background worker and dropped when
// the queue is full.
type Recorder struct {
	sinks []Sink
	inbox chan Event
}

func NewRecorder(queueSize int, sinks ...Sink) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Recorder{sinks: sinks, inbox: make(chan Event, queueSize)}
}

// Inbox exposes the operations queue for the Worker.
func (r *Recorder) Inbox() <-chan Event {
	return r.inbox
}

// Record emits one event. The event's category decides the path: compliance
// is fail-closed and synchronous, operations is fail-open and asynchronous.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Agent == "" {
		event.Agent = requestcontext.UserAgent(ctx)
	}

	if event.Category == CategoryCompliance {
		for _, sink := range r.sinks {
			if err := sink.Append(ctx, event); err != nil {
				return fmt.Errorf("record compliance event %s: %w", event.Action, err)
			}
		}
		return nil
	}
	select {
	case r.inbox <- event:
	default:
		// Queue full; operational events are droppable.
	}
	return nil
}

// NopRecorder discards everything; useful in tests and tools.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) error { return nil }
