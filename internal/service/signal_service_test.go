package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/client"
	"github.com/stemwave/api/internal/model"
	"github.com/stemwave/api/internal/store"
)

const testOwner = "user-1"

// stubEnqueuer records enqueued signals instead of touching a queue.
type stubEnqueuer struct {
	enqueued []string
}

func (s *stubEnqueuer) EnqueueSeparation(ctx context.Context, owner, signalID string) error {
	s.enqueued = append(s.enqueued, signalID)
	return nil
}

type fixture struct {
	svc      *SignalService
	blobs    *store.MemoryBlob
	states   *store.MemoryState
	enqueuer *stubEnqueuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs := store.NewMemoryBlob()
	states := store.NewMemoryState()
	enqueuer := &stubEnqueuer{}
	svc := NewSignalService(blobs, store.NewMemorySignals(), states, client.LocalProber{}, enqueuer)
	return &fixture{svc: svc, blobs: blobs, states: states, enqueuer: enqueuer}
}

// testWAV returns a valid mono WAV file, one second at 100 Hz.
func testWAV() []byte {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i)
	}
	return audio.Encode(&audio.Buffer{SampleRate: 100, Channels: 1, Samples: samples})
}

func mustCreate(t *testing.T, f *fixture) *model.Signal {
	t.Helper()
	sig, err := f.svc.Create(context.Background(), testOwner, "take.wav", testWAV(), model.SignalTypeMusic)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return sig
}

// markComplete simulates the pipeline finishing so structural mutations are
// allowed.
func markComplete(t *testing.T, f *fixture, signalID string) {
	t.Helper()
	if err := f.states.Set(context.Background(), testOwner, signalID, model.SignalStateComplete); err != nil {
		t.Fatalf("failed to set state: %v", err)
	}
}

func TestCreate_QueuedWithEmptyStems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created := mustCreate(t, f)

	sig, err := f.svc.Get(ctx, testOwner, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(sig.Stems) != 0 {
		t.Errorf("expected empty stem list, got %d entries", len(sig.Stems))
	}
	if sig.Metadata.SignalType != model.SignalTypeMusic {
		t.Errorf("expected signal type Music, got %s", sig.Metadata.SignalType)
	}

	state, err := f.svc.State(ctx, testOwner, created.ID)
	if err != nil {
		t.Fatalf("state read failed: %v", err)
	}
	if state != model.SignalStateQueued {
		t.Errorf("expected Queued, got %s", state)
	}

	if len(f.enqueuer.enqueued) != 1 || f.enqueuer.enqueued[0] != created.ID {
		t.Errorf("expected one enqueued separation for %s, got %v", created.ID, f.enqueuer.enqueued)
	}
}

func TestCreate_InvalidFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), testOwner, "junk.wav", []byte("not audio"), model.SignalTypeMusic)
	if !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
	if len(f.enqueuer.enqueued) != 0 {
		t.Error("invalid upload must not be enqueued")
	}
}

func TestGet_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)

	if _, err := f.svc.Get(ctx, "someone-else", created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound for other owner, got %v", err)
	}
	if _, err := f.svc.Delete(ctx, "someone-else", created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound deleting as other owner, got %v", err)
	}

	// the signal is untouched
	if _, err := f.svc.Get(ctx, testOwner, created.ID); err != nil {
		t.Errorf("owner lost access after foreign delete attempt: %v", err)
	}
}

func TestAttachStem_ConflictWhileProcessing(t *testing.T) {
	f := newFixture(t)
	created := mustCreate(t, f)

	// still Queued
	_, err := f.svc.AttachStem(context.Background(), testOwner, created.ID, "vocals", "vocals.wav", testWAV())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestAttachStem_DuplicateName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	if _, err := f.svc.AttachStem(ctx, testOwner, created.ID, "vocals", "vocals.wav", testWAV()); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	_, err := f.svc.AttachStem(ctx, testOwner, created.ID, "vocals", "vocals.wav", testWAV())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected Conflict for duplicate stem name, got %v", err)
	}
}

func TestDeleteStem_TwiceReturnsTrueThenFalse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	if _, err := f.svc.AttachStem(ctx, testOwner, created.ID, "vocals", "vocals.wav", testWAV()); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	deleted, err := f.svc.DeleteStem(ctx, testOwner, created.ID, "vocals")
	if err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if !deleted {
		t.Error("first delete: expected true")
	}

	deleted, err = f.svc.DeleteStem(ctx, testOwner, created.ID, "vocals")
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if deleted {
		t.Error("second delete: expected false")
	}
}

func TestRenameStem_Observable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	wav := testWAV()
	if _, err := f.svc.AttachStem(ctx, testOwner, created.ID, "vocals", "vocals.wav", wav); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	sig, err := f.svc.RenameStem(ctx, testOwner, created.ID, "vocals", "lead")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	if sig.FindStem("vocals") >= 0 {
		t.Error("old name still listed after rename")
	}
	if sig.FindStem("lead") < 0 {
		t.Fatal("new name not listed after rename")
	}

	data, err := f.svc.DownloadStem(ctx, testOwner, created.ID, "lead")
	if err != nil {
		t.Fatalf("download under new name failed: %v", err)
	}
	if !bytes.Equal(data, wav) {
		t.Error("bytes under new name differ from the uploaded stem")
	}
	if _, err := f.svc.DownloadStem(ctx, testOwner, created.ID, "vocals"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound under old name, got %v", err)
	}
}

func TestRenameStem_TargetExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	for _, name := range []string{"vocals", "drums"} {
		if _, err := f.svc.AttachStem(ctx, testOwner, created.ID, name, name+".wav", testWAV()); err != nil {
			t.Fatalf("attach %s failed: %v", name, err)
		}
	}

	_, err := f.svc.RenameStem(ctx, testOwner, created.ID, "vocals", "drums")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestRenameStem_AugmentedVariantKeepsKeySuffix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	wav := testWAV()
	if _, err := f.svc.AttachStem(ctx, testOwner, created.ID, "vocals", "vocals.wav", wav); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if _, err := f.svc.SaveAugmentedStem(ctx, testOwner, created.ID, "vocals", wav, model.SignalMetadata{}); err != nil {
		t.Fatalf("save augmented stem failed: %v", err)
	}

	sig, err := f.svc.RenameStem(ctx, testOwner, created.ID, "vocals_augment", "lead_augment")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	idx := sig.FindStem("lead_augment")
	if idx < 0 {
		t.Fatal("renamed variant not listed")
	}
	wantKey := store.AugmentedStemKey("lead_augment", created.ID)
	if got := sig.Stems[idx].StemID; got != wantKey {
		t.Errorf("expected variant key %q, got %q", wantKey, got)
	}
	if data, err := f.svc.DownloadStem(ctx, testOwner, created.ID, "lead_augment"); err != nil {
		t.Fatalf("download renamed variant failed: %v", err)
	} else if !bytes.Equal(data, wav) {
		t.Error("bytes under new variant name differ from the stored variant")
	}
}

func TestDelete_RemovesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	for _, name := range []string{"vocals", "drums", "bass"} {
		if _, err := f.svc.AttachStem(ctx, testOwner, created.ID, name, name+".wav", testWAV()); err != nil {
			t.Fatalf("attach %s failed: %v", name, err)
		}
	}
	// 1 signal blob + 3 stem blobs
	if f.blobs.Len() != 4 {
		t.Fatalf("expected 4 blobs before delete, got %d", f.blobs.Len())
	}

	deleted, err := f.svc.Delete(ctx, testOwner, created.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !deleted {
		t.Error("expected deleted=true")
	}

	if f.blobs.Len() != 0 {
		t.Errorf("expected 0 blobs after delete, got %d", f.blobs.Len())
	}
	if _, err := f.svc.Get(ctx, testOwner, created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}

	state, err := f.svc.State(ctx, testOwner, created.ID)
	if err != nil {
		t.Fatalf("state read failed: %v", err)
	}
	if state != model.SignalStateDeleted {
		t.Errorf("expected Deleted, got %s", state)
	}

	if _, err := f.svc.Delete(ctx, testOwner, created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound on repeat delete, got %v", err)
	}
}

func TestCopy_ConflictWhileProcessing(t *testing.T) {
	f := newFixture(t)
	created := mustCreate(t, f)

	_, err := f.svc.Copy(context.Background(), testOwner, created.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestCopy_DuplicatesStems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	wav := testWAV()
	if _, err := f.svc.AttachStem(ctx, testOwner, created.ID, "vocals", "vocals.wav", wav); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	cp, err := f.svc.Copy(ctx, testOwner, created.ID)
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if cp.ID == created.ID {
		t.Fatal("copy kept the source ID")
	}
	if len(cp.Stems) != 1 || cp.Stems[0].Name != "vocals" {
		t.Fatalf("unexpected copied stem list: %v", cp.Stems)
	}

	data, err := f.svc.DownloadStem(ctx, testOwner, cp.ID, "vocals")
	if err != nil {
		t.Fatalf("download from copy failed: %v", err)
	}
	if !bytes.Equal(data, wav) {
		t.Error("copied stem bytes differ from source")
	}

	state, err := f.svc.State(ctx, testOwner, cp.ID)
	if err != nil {
		t.Fatalf("state read failed: %v", err)
	}
	if state != model.SignalStateComplete {
		t.Errorf("expected copied signal state Complete, got %s", state)
	}

	// deleting the copy leaves the source intact
	if _, err := f.svc.Delete(ctx, testOwner, cp.ID); err != nil {
		t.Fatalf("delete of copy failed: %v", err)
	}
	if _, err := f.svc.DownloadStem(ctx, testOwner, created.ID, "vocals"); err != nil {
		t.Errorf("source stem unreadable after deleting the copy: %v", err)
	}
}

func TestSubscribe_UnknownSignal(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Subscribe(context.Background(), testOwner, "no-such-signal")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestSubscribe_AfterCompleteYieldsOneElement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := mustCreate(t, f)
	markComplete(t, f, created.ID)

	feed, err := f.svc.Subscribe(ctx, testOwner, created.ID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	state, ok := <-feed
	if !ok {
		t.Fatal("feed closed without delivering the terminal state")
	}
	if state != model.SignalStateComplete {
		t.Errorf("expected Complete, got %s", state)
	}
	if _, ok := <-feed; ok {
		t.Error("expected exactly one element")
	}
}
