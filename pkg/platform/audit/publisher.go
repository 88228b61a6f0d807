package audit

import (
	"context"

	"cohort/pkg/requestcontext"
)

// Publisher hands events to a buffered inbox consumed by a Worker. Emission is
// best-effort: a full inbox drops the event rather than blocking the request
// path.
type Publisher struct {
	inbox chan<- Event
}

func NewPublisher(inbox chan<- Event) *Publisher {
	return &Publisher{inbox: inbox}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		// Audit must never stall domain operations.
	}
	return nil
}
