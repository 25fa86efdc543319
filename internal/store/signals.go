package store

import (
	"context"

	"github.com/stemwave/api/internal/model"
)

// SignalStore persists signal and stem metadata rows keyed by (owner, id).
// Lookups for unknown and not-owned rows are both apperr.KindNotFound.
type SignalStore interface {
	InsertSignal(ctx context.Context, sig *model.Signal) error
	GetSignal(ctx context.Context, owner, id string) (*model.Signal, error)
	ListSignals(ctx context.Context, owner string) ([]*model.Signal, error)
	// UpdateSignal replaces the stored row wholesale.
	UpdateSignal(ctx context.Context, sig *model.Signal) error
	// DeleteSignal reports whether a row was removed.
	DeleteSignal(ctx context.Context, owner, id string) (bool, error)

	InsertStem(ctx context.Context, stem *model.Stem) error
	GetStem(ctx context.Context, owner, id string) (*model.Stem, error)
	UpdateStem(ctx context.Context, stem *model.Stem) error
	DeleteStem(ctx context.Context, owner, id string) (bool, error)
}
