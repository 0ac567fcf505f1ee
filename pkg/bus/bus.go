// Package bus decouples run submission from run execution. The gateway
// publishes requests inbound; the dispatcher consumes them and publishes
// progress events outbound for any subscriber (websocket hub, TUI).
package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/04arvind/newla/pkg/agent"
)

var ErrBusClosed = errors.New("run bus closed")

// RunRequest is one queued build request.
type RunRequest struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Provider  string `json:"provider,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

type RunBus struct {
	requests chan RunRequest
	events   chan agent.Event
	done     chan struct{}
	closed   atomic.Bool
}

func NewRunBus() *RunBus {
	return &RunBus{
		requests: make(chan RunRequest, 100),
		events:   make(chan agent.Event, 100),
		done:     make(chan struct{}),
	}
}

func (b *RunBus) PublishRequest(ctx context.Context, req RunRequest) error {
	if err := b.publishStateErr(ctx); err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	case b.requests <- req:
		return nil
	}
}

func (b *RunBus) ConsumeRequest(ctx context.Context) (RunRequest, bool) {
	select {
	case req, ok := <-b.requests:
		return req, ok
	case <-b.done:
		return RunRequest{}, false
	case <-ctx.Done():
		return RunRequest{}, false
	}
}

func (b *RunBus) PublishEvent(ctx context.Context, event agent.Event) error {
	if err := b.publishStateErr(ctx); err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	case b.events <- event:
		return nil
	}
}

// TryPublishEvent publishes without blocking, dropping the event when the
// buffer is full. Progress events are advisory; a run must never stall on a
// slow subscriber.
func (b *RunBus) TryPublishEvent(event agent.Event) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.events <- event:
		return true
	default:
		return false
	}
}

func (b *RunBus) SubscribeEvents(ctx context.Context) (agent.Event, bool) {
	select {
	case event, ok := <-b.events:
		return event, ok
	case <-b.done:
		return agent.Event{}, false
	case <-ctx.Done():
		return agent.Event{}, false
	}
}

func (b *RunBus) publishStateErr(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (b *RunBus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
}
