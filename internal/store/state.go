package store

import (
	"context"

	"github.com/stemwave/api/internal/model"
)

// StateStore persists the current separation state per (owner, signal) and
// publishes every transition to subscribers.
//
// Set is an upsert and always succeeds; ownership existence is enforced one
// layer up, at the orchestrator. Subscribe delivers the current state first;
// if that state is terminal the channel closes after the single element,
// otherwise it follows later transitions until a terminal state or context
// cancellation. Delivery is at-least-once and may coalesce: a slow consumer
// observes the latest value, not the full history.
type StateStore interface {
	Set(ctx context.Context, owner, signalID string, state model.SignalState) error
	Get(ctx context.Context, owner, signalID string) (model.SignalState, error)
	Subscribe(ctx context.Context, owner, signalID string) (<-chan model.SignalState, error)
}

// pushLatest delivers state on a buffered channel, displacing an undelivered
// older value. Only the owning goroutine may call it.
func pushLatest(ch chan model.SignalState, state model.SignalState) {
	for {
		select {
		case ch <- state:
			return
		default:
			select {
			case <-ch: // drop the stale value
			default:
			}
		}
	}
}
