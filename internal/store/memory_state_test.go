package store

import (
	"context"
	"testing"
	"time"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/model"
)

func recvState(t *testing.T, feed <-chan model.SignalState) model.SignalState {
	t.Helper()
	select {
	case state, ok := <-feed:
		if !ok {
			t.Fatal("feed closed unexpectedly")
		}
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state")
		return ""
	}
}

func assertClosed(t *testing.T, feed <-chan model.SignalState) {
	t.Helper()
	select {
	case _, ok := <-feed:
		if ok {
			t.Fatal("expected feed to be closed, got another element")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed to close")
	}
}

func TestMemoryState_GetMissing(t *testing.T) {
	_, err := NewMemoryState().Get(context.Background(), "owner", "sig")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestMemoryState_SetSupersedes(t *testing.T) {
	ctx := context.Background()
	states := NewMemoryState()

	_ = states.Set(ctx, "owner", "sig", model.SignalStateQueued)
	_ = states.Set(ctx, "owner", "sig", model.SignalStateSeparating)

	state, err := states.Get(ctx, "owner", "sig")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if state != model.SignalStateSeparating {
		t.Errorf("expected Separating, got %s", state)
	}
}

func TestMemoryState_SubscribeDeliversCurrentThenTransitions(t *testing.T) {
	ctx := context.Background()
	states := NewMemoryState()
	_ = states.Set(ctx, "owner", "sig", model.SignalStateQueued)

	feed, err := states.Subscribe(ctx, "owner", "sig")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if state := recvState(t, feed); state != model.SignalStateQueued {
		t.Errorf("expected current state Queued first, got %s", state)
	}

	_ = states.Set(ctx, "owner", "sig", model.SignalStateSeparating)
	if state := recvState(t, feed); state != model.SignalStateSeparating {
		t.Errorf("expected Separating, got %s", state)
	}

	_ = states.Set(ctx, "owner", "sig", model.SignalStateComplete)
	if state := recvState(t, feed); state != model.SignalStateComplete {
		t.Errorf("expected Complete, got %s", state)
	}
	assertClosed(t, feed)
}

func TestMemoryState_SubscribeAfterTerminal(t *testing.T) {
	ctx := context.Background()
	states := NewMemoryState()
	_ = states.Set(ctx, "owner", "sig", model.SignalStateComplete)

	feed, err := states.Subscribe(ctx, "owner", "sig")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if state := recvState(t, feed); state != model.SignalStateComplete {
		t.Errorf("expected Complete, got %s", state)
	}
	assertClosed(t, feed)
}

func TestMemoryState_SubscribeCancelClosesFeed(t *testing.T) {
	states := NewMemoryState()
	_ = states.Set(context.Background(), "owner", "sig", model.SignalStateQueued)

	ctx, cancel := context.WithCancel(context.Background())
	feed, err := states.Subscribe(ctx, "owner", "sig")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	recvState(t, feed)

	cancel()
	assertClosed(t, feed)
}

func TestMemoryState_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	states := NewMemoryState()
	_ = states.Set(ctx, "alice", "sig", model.SignalStateQueued)

	if _, err := states.Get(ctx, "bob", "sig"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound for other owner, got %v", err)
	}
}
