package store

import (
	"context"
	"sync"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/model"
)

// MemorySignals is an in-process SignalStore used in tests and when Redis is
// not configured.
type MemorySignals struct {
	mu      sync.RWMutex
	signals map[string]*model.Signal // key: owner + "/" + id
	stems   map[string]*model.Stem
}

func NewMemorySignals() *MemorySignals {
	return &MemorySignals{
		signals: make(map[string]*model.Signal),
		stems:   make(map[string]*model.Stem),
	}
}

func memKey(owner, id string) string { return owner + "/" + id }

func (m *MemorySignals) InsertSignal(ctx context.Context, sig *model.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sig
	cp.Stems = append([]model.StemRef(nil), sig.Stems...)
	m.signals[memKey(sig.Owner, sig.ID)] = &cp
	return nil
}

func (m *MemorySignals) GetSignal(ctx context.Context, owner, id string) (*model.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sig, ok := m.signals[memKey(owner, id)]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "signal not found")
	}
	cp := *sig
	cp.Stems = append([]model.StemRef(nil), sig.Stems...)
	return &cp, nil
}

func (m *MemorySignals) ListSignals(ctx context.Context, owner string) ([]*model.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Signal
	for _, sig := range m.signals {
		if sig.Owner != owner {
			continue
		}
		cp := *sig
		cp.Stems = append([]model.StemRef(nil), sig.Stems...)
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemorySignals) UpdateSignal(ctx context.Context, sig *model.Signal) error {
	return m.InsertSignal(ctx, sig)
}

func (m *MemorySignals) DeleteSignal(ctx context.Context, owner, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(owner, id)
	_, ok := m.signals[key]
	delete(m.signals, key)
	return ok, nil
}

func (m *MemorySignals) InsertStem(ctx context.Context, stem *model.Stem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *stem
	m.stems[memKey(stem.Owner, stem.ID)] = &cp
	return nil
}

func (m *MemorySignals) GetStem(ctx context.Context, owner, id string) (*model.Stem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stem, ok := m.stems[memKey(owner, id)]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "stem not found")
	}
	cp := *stem
	return &cp, nil
}

func (m *MemorySignals) UpdateStem(ctx context.Context, stem *model.Stem) error {
	return m.InsertStem(ctx, stem)
}

func (m *MemorySignals) DeleteStem(ctx context.Context, owner, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(owner, id)
	_, ok := m.stems[key]
	delete(m.stems, key)
	return ok, nil
}
