// Package stream routes generated answer tokens to the client that owns
// the request reference.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// EventKind is also the SSE event name.
type EventKind string

const (
	EventToken EventKind = "answer_token"
	EventEnd   EventKind = "answer_end"
	EventError EventKind = "answer_error"
)

// Event is one item of a reference's stream.
type Event struct {
	Kind      EventKind `json:"-"`
	Reference string    `json:"reference"`
	Token     string    `json:"token,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Terminal reports whether no event follows e.
func (e Event) Terminal() bool {
	return e.Kind != EventToken
}

var errBufferOverflow = errors.New("stream buffer overflow")

// mailbox holds the pending events of one reference.
type mailbox struct {
	mu         sync.Mutex
	events     []Event
	notify     chan struct{}
	done       bool
	producing  bool
	subscribed bool
	cancel     context.CancelFunc
	purge      *time.Timer
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Router keeps one ordered mailbox per reference. Producers never block on
// consumers: a mailbox that fills up is terminated with an error event and
// its producer is cancelled.
type Router struct {
	mu        sync.Mutex
	boxes     map[string]*mailbox
	buffer    int
	retention time.Duration
	logger    *slog.Logger
}

// NewRouter creates a router. buffer bounds the pending events per
// reference; retention is how long a finished, unconsumed stream is kept.
func NewRouter(buffer int, retention time.Duration, logger *slog.Logger) *Router {
	if buffer <= 0 {
		buffer = 4096
	}
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		boxes:     make(map[string]*mailbox),
		buffer:    buffer,
		retention: retention,
		logger:    logger,
	}
}

var _ port.TokenSink = (*Router)(nil)

func (r *Router) box(reference string) *mailbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boxes[reference]
	if !ok {
		b = newMailbox()
		r.boxes[reference] = b
	}
	return b
}

func (r *Router) remove(reference string, b *mailbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.boxes[reference] == b {
		delete(r.boxes, reference)
	}
}

// Attach claims reference for a new producer. cancel is invoked if the
// subscriber goes away before the stream finishes.
func (r *Router) Attach(reference string, cancel context.CancelFunc) error {
	if reference == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boxes[reference]
	if ok {
		b.mu.Lock()
		switch {
		case b.producing:
			b.mu.Unlock()
			return port.ErrReferenceInUse
		case b.done:
			// previous answer under this reference; start over
			if b.purge != nil {
				b.purge.Stop()
			}
			b.mu.Unlock()
		default:
			b.producing = true
			b.cancel = cancel
			b.mu.Unlock()
			return nil
		}
	}

	b = newMailbox()
	b.producing = true
	b.cancel = cancel
	r.boxes[reference] = b
	return nil
}

// Route appends a token to the reference's stream.
func (r *Router) Route(reference, token string) {
	if reference == "" {
		return
	}
	b := r.box(reference)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	if len(b.events) >= r.buffer {
		r.logger.Warn("token stream overflow", "reference", reference, "buffer", r.buffer)
		r.end(b, Event{Kind: EventError, Reference: reference, Error: errBufferOverflow.Error()})
		// The reference stays claimed until the producer calls Finish or StreamError.
		if b.cancel != nil {
			b.cancel()
			b.cancel = nil
		}
		return
	}
	b.events = append(b.events, Event{Kind: EventToken, Reference: reference, Token: token})
	b.signal()
}

// StreamError terminates the reference's stream with an error event.
func (r *Router) StreamError(reference string, err error) {
	if reference == "" {
		return
	}
	r.logger.Error("answer stream failed", "reference", reference, "error", err)

	b := r.box(reference)
	b.mu.Lock()
	defer b.mu.Unlock()
	r.end(b, Event{Kind: EventError, Reference: reference, Error: err.Error()})
	r.release(reference, b)
}

// Finish terminates the reference's stream successfully.
func (r *Router) Finish(reference string) {
	if reference == "" {
		return
	}
	b := r.box(reference)
	b.mu.Lock()
	defer b.mu.Unlock()
	r.end(b, Event{Kind: EventEnd, Reference: reference})
	r.release(reference, b)
}

// end appends the terminal event. b.mu must be held.
func (r *Router) end(b *mailbox, e Event) {
	if b.done {
		return
	}
	b.events = append(b.events, e)
	b.done = true
	b.signal()
}

// release gives up the producer's claim on a finished reference. b.mu must be held.
func (r *Router) release(reference string, b *mailbox) {
	b.producing = false
	b.cancel = nil
	if !b.subscribed && b.purge == nil {
		b.purge = time.AfterFunc(r.retention, func() {
			r.remove(reference, b)
		})
	}
}

// Subscribe opens the single consumer of reference. Events routed before
// the subscription are delivered first.
func (r *Router) Subscribe(reference string) (*Subscription, error) {
	b := r.box(reference)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed {
		return nil, port.ErrReferenceInUse
	}
	b.subscribed = true
	if b.purge != nil {
		b.purge.Stop()
		b.purge = nil
	}
	return &Subscription{router: r, reference: reference, box: b}, nil
}

// Active returns the number of references currently tracked.
func (r *Router) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boxes)
}

// Subscription reads one reference's events in order.
type Subscription struct {
	router    *Router
	reference string
	box       *mailbox
	ended     bool
	closeOnce sync.Once
}

// Next blocks until the next event is available. It returns io.EOF after
// the terminal event has been delivered.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	if s.ended {
		return Event{}, io.EOF
	}
	for {
		s.box.mu.Lock()
		if len(s.box.events) > 0 {
			e := s.box.events[0]
			s.box.events[0] = Event{}
			s.box.events = s.box.events[1:]
			s.box.mu.Unlock()
			if e.Terminal() {
				s.ended = true
			}
			return e, nil
		}
		s.box.mu.Unlock()

		select {
		case <-s.box.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close releases the reference. An unfinished producer is cancelled.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		b := s.box
		b.mu.Lock()
		b.subscribed = false
		var cancel context.CancelFunc
		release := !b.producing
		if !b.done {
			cancel = b.cancel
		}
		b.mu.Unlock()

		if cancel != nil {
			s.router.logger.Info("subscriber left before answer finished", "reference", s.reference)
			cancel()
		}
		if release {
			s.router.remove(s.reference, b)
		}
	})
}
