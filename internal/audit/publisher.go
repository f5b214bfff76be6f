package audit

import (
	"context"
	"time"
)

// Publisher captures structured audit events. By default events are appended
// synchronously; WithAsyncBuffer switches to a buffered channel drained by a
// background worker, so hot paths never block on the store.
type Publisher struct {
	store Store

	inbox  chan Event
	done   chan struct{}
	closed chan struct{}
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given buffer size.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		p.closed = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event. In async mode a full buffer drops the event rather
// than blocking the caller; the trail is best-effort, the log line is not.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
	}
	return nil
}

// List returns the recorded events for an applicant.
func (p *Publisher) List(ctx context.Context, applicantID string) ([]Event, error) {
	return p.store.ListByApplicant(ctx, applicantID)
}

// Close stops the background worker after draining pending events.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	close(p.done)
	<-p.closed
}

func (p *Publisher) drain() {
	defer close(p.closed)
	for {
		select {
		case event := <-p.inbox:
			_ = p.store.Append(context.Background(), event)
		case <-p.done:
			for {
				select {
				case event := <-p.inbox:
					_ = p.store.Append(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}
