package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/client"
	"github.com/stemwave/api/internal/model"
	"github.com/stemwave/api/internal/store"
)

// SignalService is the orchestrator for signal and stem lifecycle. Every
// operation is owner-scoped; a per-signal mutex fences each multi-step
// mutation (blob op, stem row, stem-list rewrite) as one unit.
type SignalService struct {
	blobs    store.BlobStore
	signals  store.SignalStore
	states   store.StateStore
	prober   client.Prober
	enqueuer TaskEnqueuer
	locks    *keyedMutex
}

func NewSignalService(blobs store.BlobStore, signals store.SignalStore, states store.StateStore, prober client.Prober, enqueuer TaskEnqueuer) *SignalService {
	return &SignalService{
		blobs:    blobs,
		signals:  signals,
		states:   states,
		prober:   prober,
		enqueuer: enqueuer,
		locks:    newKeyedMutex(),
	}
}

// Create stores the uploaded signal, derives its metadata, persists the
// record in state Queued and enqueues the separation task. The blob is
// uploaded before probing, so a probe failure leaves it behind; orphans are
// reclaimed out of band rather than risking a record without a blob.
func (s *SignalService) Create(ctx context.Context, owner, filename string, data []byte, signalType model.SignalType) (*model.Signal, error) {
	id := uuid.New().String()

	if err := s.blobs.Upload(ctx, id, data, "application/octet-stream"); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store signal blob", err)
	}

	meta, err := s.prober.Probe(ctx, data, filename)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "error while processing file", err)
	}
	meta.SignalType = signalType

	now := time.Now().UTC()
	sig := &model.Signal{
		ID:        id,
		Owner:     owner,
		Metadata:  *meta,
		Stems:     []model.StemRef{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.signals.InsertSignal(ctx, sig); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to persist signal", err)
	}
	if err := s.states.Set(ctx, owner, id, model.SignalStateQueued); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to set signal state", err)
	}
	if err := s.enqueuer.EnqueueSeparation(ctx, owner, id); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to enqueue separation", err)
	}

	return sig, nil
}

// Get returns one signal. Unknown and not-owned are both NotFound.
func (s *SignalService) Get(ctx context.Context, owner, id string) (*model.Signal, error) {
	return s.signals.GetSignal(ctx, owner, id)
}

// List returns all signals of an owner.
func (s *SignalService) List(ctx context.Context, owner string) ([]*model.Signal, error) {
	return s.signals.ListSignals(ctx, owner)
}

// AttachStem adds a manually uploaded stem to a signal, using the same
// create discipline as the separation worker. Rejected with Conflict while
// the signal is still processing.
func (s *SignalService) AttachStem(ctx context.Context, owner, signalID, stemName, filename string, data []byte) (*model.Signal, error) {
	s.locks.Lock(signalID)
	defer s.locks.Unlock(signalID)

	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return nil, err
	}
	if err := s.requireTerminal(ctx, owner, signalID); err != nil {
		return nil, err
	}
	if sig.FindStem(stemName) >= 0 {
		return nil, apperr.New(apperr.KindConflict, fmt.Sprintf("stem %q already exists", stemName))
	}

	meta, err := s.prober.Probe(ctx, data, filename)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "error while processing file", err)
	}
	meta.SignalType = sig.Metadata.SignalType

	stem, err := s.SaveStem(ctx, owner, signalID, stemName, data, *meta, false)
	if err != nil {
		return nil, err
	}

	sig.Stems = append(sig.Stems, model.StemRef{Name: stemName, StemID: stem.ID})
	sig.UpdatedAt = time.Now().UTC()
	if err := s.signals.UpdateSignal(ctx, sig); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update stem list", err)
	}
	return sig, nil
}

// SaveStem persists one stem: blob first, metadata row second, so a row
// never references a missing blob. The caller appends the list entry. Used
// by both the attach path and the separation worker.
func (s *SignalService) SaveStem(ctx context.Context, owner, signalID, name string, data []byte, meta model.SignalMetadata, augmented bool) (*model.Stem, error) {
	key := store.StemKey(name, signalID)
	if augmented {
		key = store.AugmentedStemKey(name, signalID)
	}

	if err := s.blobs.Upload(ctx, key, data, "audio/wav"); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store stem blob", err)
	}

	stem := &model.Stem{
		ID:        key,
		SignalID:  signalID,
		Owner:     owner,
		Name:      name,
		Metadata:  meta,
		Augmented: augmented,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.signals.InsertStem(ctx, stem); err != nil {
		// the blob is orphaned here, which is acceptable; the inverse is not
		return nil, apperr.Wrap(apperr.KindInternal, "failed to persist stem", err)
	}
	return stem, nil
}

// ReplaceStemList rewrites a signal's stem list wholesale. It re-reads the
// signal first: a signal deleted mid-pipeline must not be resurrected, so a
// missing record surfaces as NotFound and nothing is written.
func (s *SignalService) ReplaceStemList(ctx context.Context, owner, signalID string, refs []model.StemRef) (*model.Signal, error) {
	s.locks.Lock(signalID)
	defer s.locks.Unlock(signalID)

	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return nil, err
	}

	sig.Stems = refs
	sig.UpdatedAt = time.Now().UTC()
	if err := s.signals.UpdateSignal(ctx, sig); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update stem list", err)
	}
	return sig, nil
}

// RenameStem renames a stem. The blob moves first; only then are the stem
// row and the signal's list entry rewritten. A metadata failure after a
// successful blob rename is a fatal inconsistency surfaced as Internal, not
// rolled back.
func (s *SignalService) RenameStem(ctx context.Context, owner, signalID, oldName, newName string) (*model.Signal, error) {
	s.locks.Lock(signalID)
	defer s.locks.Unlock(signalID)

	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return nil, err
	}
	idx := sig.FindStem(oldName)
	if idx < 0 {
		return nil, apperr.New(apperr.KindNotFound, "stem not found")
	}
	if newName == oldName {
		return sig, nil
	}
	if sig.FindStem(newName) >= 0 {
		return nil, apperr.New(apperr.KindConflict, fmt.Sprintf("stem %q already exists", newName))
	}

	oldID := sig.Stems[idx].StemID
	stem, err := s.signals.GetStem(ctx, owner, oldID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "stem row missing", err)
	}

	// Augmented variants keep their key suffix across renames.
	newID := store.StemKey(newName, sig.ID)
	if stem.Augmented {
		newID = store.AugmentedStemKey(newName, sig.ID)
	}

	if err := s.blobs.Rename(ctx, oldID, newID); err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "stem file not found", err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to rename stem blob", err)
	}

	stem.ID = newID
	stem.Name = newName
	if err := s.signals.InsertStem(ctx, stem); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to persist renamed stem", err)
	}
	if _, err := s.signals.DeleteStem(ctx, owner, oldID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to remove old stem row", err)
	}

	sig.Stems[idx] = model.StemRef{Name: newName, StemID: newID}
	sig.UpdatedAt = time.Now().UTC()
	if err := s.signals.UpdateSignal(ctx, sig); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update stem list", err)
	}
	return sig, nil
}

// DeleteStem removes one stem: blob first (an absent blob is tolerated for
// idempotency), then the metadata row, then the list entry. Returns false
// when the stem is already gone.
func (s *SignalService) DeleteStem(ctx context.Context, owner, signalID, name string) (bool, error) {
	s.locks.Lock(signalID)
	defer s.locks.Unlock(signalID)

	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return false, err
	}
	idx := sig.FindStem(name)
	if idx < 0 {
		return false, nil
	}

	stemID := sig.Stems[idx].StemID
	if err := s.blobs.Delete(ctx, stemID); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to delete stem blob", err)
	}
	if _, err := s.signals.DeleteStem(ctx, owner, stemID); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to delete stem row", err)
	}

	sig.Stems = append(sig.Stems[:idx], sig.Stems[idx+1:]...)
	sig.UpdatedAt = time.Now().UTC()
	if err := s.signals.UpdateSignal(ctx, sig); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to update stem list", err)
	}
	return true, nil
}

// Delete removes a signal and all of its stems. Blobs go before metadata
// rows, and the final Deleted state is set only after every row is gone.
func (s *SignalService) Delete(ctx context.Context, owner, signalID string) (bool, error) {
	s.locks.Lock(signalID)
	defer s.locks.Unlock(signalID)

	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return false, err
	}

	for _, ref := range sig.Stems {
		if err := s.blobs.Delete(ctx, ref.StemID); err != nil {
			return false, apperr.Wrap(apperr.KindInternal, "failed to delete stem blob", err)
		}
		if _, err := s.signals.DeleteStem(ctx, owner, ref.StemID); err != nil {
			return false, apperr.Wrap(apperr.KindInternal, "failed to delete stem row", err)
		}
	}

	if err := s.blobs.Delete(ctx, sig.ID); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to delete signal blob", err)
	}
	deleted, err := s.signals.DeleteSignal(ctx, owner, signalID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to delete signal row", err)
	}
	if deleted {
		if err := s.states.Set(ctx, owner, signalID, model.SignalStateDeleted); err != nil {
			log.Printf("Failed to set Deleted state for signal %s: %v", signalID, err)
		}
	}
	return deleted, nil
}

// Copy clones a terminal signal under a fresh ID, duplicating its source
// blob and every stem blob under new keys. All-or-nothing: a single stem
// copy failure tears the partial copy down.
func (s *SignalService) Copy(ctx context.Context, owner, signalID string) (*model.Signal, error) {
	s.locks.Lock(signalID)
	defer s.locks.Unlock(signalID)

	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return nil, err
	}
	if err := s.requireTerminal(ctx, owner, signalID); err != nil {
		return nil, err
	}

	newID := uuid.New().String()
	now := time.Now().UTC()
	newSig := &model.Signal{
		ID:        newID,
		Owner:     owner,
		Metadata:  sig.Metadata,
		Stems:     make([]model.StemRef, 0, len(sig.Stems)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var copiedBlobs, copiedRows []string
	cleanup := func() {
		for _, key := range copiedRows {
			if _, err := s.signals.DeleteStem(ctx, owner, key); err != nil {
				log.Printf("Copy cleanup: failed to delete stem row %s: %v", key, err)
			}
		}
		for _, key := range copiedBlobs {
			if err := s.blobs.Delete(ctx, key); err != nil {
				log.Printf("Copy cleanup: failed to delete blob %s: %v", key, err)
			}
		}
	}

	if err := s.blobs.Copy(ctx, sig.ID, newID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to copy signal blob", err)
	}
	copiedBlobs = append(copiedBlobs, newID)

	for _, ref := range sig.Stems {
		srcStem, err := s.signals.GetStem(ctx, owner, ref.StemID)
		if err != nil {
			cleanup()
			return nil, apperr.Wrap(apperr.KindInternal, "failed to read stem row", err)
		}

		newKey := store.StemKey(srcStem.Name, newID)
		if srcStem.Augmented {
			newKey = store.AugmentedStemKey(srcStem.Name, newID)
		}

		if err := s.blobs.Copy(ctx, ref.StemID, newKey); err != nil {
			cleanup()
			return nil, apperr.Wrap(apperr.KindInternal, "failed to copy stem blob", err)
		}
		copiedBlobs = append(copiedBlobs, newKey)

		newStem := *srcStem
		newStem.ID = newKey
		newStem.SignalID = newID
		newStem.CreatedAt = now
		if err := s.signals.InsertStem(ctx, &newStem); err != nil {
			cleanup()
			return nil, apperr.Wrap(apperr.KindInternal, "failed to persist copied stem", err)
		}
		copiedRows = append(copiedRows, newKey)

		newSig.Stems = append(newSig.Stems, model.StemRef{Name: ref.Name, StemID: newKey})
	}

	if err := s.signals.InsertSignal(ctx, newSig); err != nil {
		cleanup()
		return nil, apperr.Wrap(apperr.KindInternal, "failed to persist copied signal", err)
	}
	if err := s.states.Set(ctx, owner, newID, model.SignalStateComplete); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to set copied signal state", err)
	}
	return newSig, nil
}

// DownloadStem returns the stored bytes of one stem.
func (s *SignalService) DownloadStem(ctx context.Context, owner, signalID, name string) ([]byte, error) {
	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return nil, err
	}
	idx := sig.FindStem(name)
	if idx < 0 {
		return nil, apperr.New(apperr.KindNotFound, "stem not found")
	}

	data, err := s.blobs.Download(ctx, sig.Stems[idx].StemID)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "stem file not found", err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to download stem", err)
	}
	return data, nil
}

// DownloadSource returns the signal's own uploaded bytes. Used by the
// separation worker.
func (s *SignalService) DownloadSource(ctx context.Context, owner, signalID string) ([]byte, error) {
	data, err := s.blobs.Download(ctx, signalID)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "signal file not found", err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to download signal", err)
	}
	return data, nil
}

// State returns the current separation state.
func (s *SignalService) State(ctx context.Context, owner, signalID string) (model.SignalState, error) {
	return s.states.Get(ctx, owner, signalID)
}

// SetState upserts the current separation state, validating ownership
// first: the state store itself upserts unconditionally, so unknown owners
// are rejected here.
func (s *SignalService) SetState(ctx context.Context, owner, signalID string, state model.SignalState) error {
	if state != model.SignalStateDeleted {
		if _, err := s.signals.GetSignal(ctx, owner, signalID); err != nil {
			return err
		}
	}
	return s.states.Set(ctx, owner, signalID, state)
}

// Subscribe opens a state feed for one signal. NotFound when no state was
// ever recorded for (owner, signal).
func (s *SignalService) Subscribe(ctx context.Context, owner, signalID string) (<-chan model.SignalState, error) {
	if _, err := s.states.Get(ctx, owner, signalID); err != nil {
		return nil, err
	}
	return s.states.Subscribe(ctx, owner, signalID)
}

// SaveAugmentedStem stores an augmented variant of a stem and lists it under
// the derived "<name>_augment" entry, replacing a previous variant of the
// same stem.
func (s *SignalService) SaveAugmentedStem(ctx context.Context, owner, signalID, name string, data []byte, meta model.SignalMetadata) (*model.Signal, error) {
	s.locks.Lock(signalID)
	defer s.locks.Unlock(signalID)

	sig, err := s.signals.GetSignal(ctx, owner, signalID)
	if err != nil {
		return nil, err
	}
	if sig.FindStem(name) < 0 {
		return nil, apperr.New(apperr.KindNotFound, "stem not found")
	}

	stem, err := s.SaveStem(ctx, owner, signalID, name, data, meta, true)
	if err != nil {
		return nil, err
	}

	refName := name + "_augment"
	if sig.FindStem(refName) < 0 {
		sig.Stems = append(sig.Stems, model.StemRef{Name: refName, StemID: stem.ID})
	}
	sig.UpdatedAt = time.Now().UTC()
	if err := s.signals.UpdateSignal(ctx, sig); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update stem list", err)
	}
	return sig, nil
}

// requireTerminal rejects structural mutations while the pipeline still owns
// the signal.
func (s *SignalService) requireTerminal(ctx context.Context, owner, signalID string) error {
	state, err := s.states.Get(ctx, owner, signalID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// no state record means nothing is processing
			return nil
		}
		return err
	}
	if !state.Terminal() {
		return apperr.New(apperr.KindConflict, fmt.Sprintf("signal is still processing (state %s)", state))
	}
	return nil
}
