package store

import (
	"context"
	"sync"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/model"
)

// MemoryState is an in-process StateStore used in tests and when Redis is
// not configured. It mirrors the RedisState subscribe semantics.
type MemoryState struct {
	mu     sync.Mutex
	states map[string]model.SignalState
	subs   map[string]map[*memorySub]bool
}

type memorySub struct {
	in chan model.SignalState
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		states: make(map[string]model.SignalState),
		subs:   make(map[string]map[*memorySub]bool),
	}
}

func (m *MemoryState) Set(ctx context.Context, owner, signalID string, state model.SignalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[memKey(owner, signalID)] = state
	for sub := range m.subs[signalID] {
		// single sender while the lock is held, so drop-then-send is safe
		select {
		case sub.in <- state:
		default:
			select {
			case <-sub.in:
			default:
			}
			sub.in <- state
		}
	}
	return nil
}

func (m *MemoryState) Get(ctx context.Context, owner, signalID string) (model.SignalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[memKey(owner, signalID)]
	if !ok {
		return "", apperr.New(apperr.KindNotFound, "signal state not found")
	}
	return state, nil
}

func (m *MemoryState) Subscribe(ctx context.Context, owner, signalID string) (<-chan model.SignalState, error) {
	sub := &memorySub{in: make(chan model.SignalState, 1)}

	m.mu.Lock()
	current := m.states[memKey(owner, signalID)]
	if !current.Terminal() {
		if m.subs[signalID] == nil {
			m.subs[signalID] = make(map[*memorySub]bool)
		}
		m.subs[signalID][sub] = true
	}
	m.mu.Unlock()

	out := make(chan model.SignalState, 1)
	go func() {
		defer close(out)
		defer m.unsubscribe(signalID, sub)

		if current != "" {
			pushLatest(out, current)
			if current.Terminal() {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case state := <-sub.in:
				pushLatest(out, state)
				if state.Terminal() {
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *MemoryState) unsubscribe(signalID string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subs, ok := m.subs[signalID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(m.subs, signalID)
		}
	}
}
