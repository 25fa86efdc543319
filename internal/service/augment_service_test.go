package service

import (
	"context"
	"testing"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/model"
)

func attachTestStem(t *testing.T, f *fixture, signalID, name string) {
	t.Helper()
	if _, err := f.svc.AttachStem(context.Background(), testOwner, signalID, name, name+".wav", testWAV()); err != nil {
		t.Fatalf("attach %s failed: %v", name, err)
	}
}

func TestAugment_ReturnsProcessedWAV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	aug := NewAugmentService(f.svc)

	created := mustCreate(t, f)
	markComplete(t, f, created.ID)
	attachTestStem(t, f, created.ID, "vocals")

	wav, persisted, err := aug.Apply(ctx, testOwner, &model.AugmentRequest{
		Augmentations: []model.AugmentOp{{
			SignalID:    created.ID,
			StemName:    "vocals",
			AugmentType: model.AugmentTypeVolume,
			StartTime:   0,
			EndTime:     1,
			Volume:      2.0,
		}},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if persisted != nil {
		t.Error("expected no persisted response without Persist")
	}

	buf, err := audio.Decode(wav)
	if err != nil {
		t.Fatalf("returned bytes are not a WAV file: %v", err)
	}
	src, _ := audio.Decode(testWAV())
	if buf.Samples[10] != src.Samples[10]*2 {
		t.Errorf("expected doubled sample, got %d", buf.Samples[10])
	}

	// the stored stem is untouched
	stored, err := f.svc.DownloadStem(ctx, testOwner, created.ID, "vocals")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	storedBuf, _ := audio.Decode(stored)
	if storedBuf.Samples[10] != src.Samples[10] {
		t.Error("augment modified the stored stem")
	}
}

func TestAugment_PersistStoresVariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	aug := NewAugmentService(f.svc)

	created := mustCreate(t, f)
	markComplete(t, f, created.ID)
	attachTestStem(t, f, created.ID, "vocals")

	wav, persisted, err := aug.Apply(ctx, testOwner, &model.AugmentRequest{
		Augmentations: []model.AugmentOp{{
			SignalID:    created.ID,
			StemName:    "vocals",
			AugmentType: model.AugmentTypeVolume,
			StartTime:   0,
			EndTime:     1,
			Volume:      0.5,
		}},
		Persist: true,
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if wav != nil {
		t.Error("expected no streamed bytes with Persist")
	}
	if persisted == nil || len(persisted.Stems) != 1 {
		t.Fatalf("expected one persisted stem, got %+v", persisted)
	}
	if persisted.Stems[0].Name != "vocals_augment" {
		t.Errorf("expected vocals_augment, got %s", persisted.Stems[0].Name)
	}

	sig, err := f.svc.Get(ctx, testOwner, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if sig.FindStem("vocals_augment") < 0 {
		t.Error("augmented variant not listed on the signal")
	}
	if _, err := f.svc.DownloadStem(ctx, testOwner, created.ID, "vocals_augment"); err != nil {
		t.Errorf("augmented variant not downloadable: %v", err)
	}

	// re-persisting replaces the variant instead of growing the list
	_, _, err = aug.Apply(ctx, testOwner, &model.AugmentRequest{
		Augmentations: []model.AugmentOp{{
			SignalID:    created.ID,
			StemName:    "vocals",
			AugmentType: model.AugmentTypeVolume,
			StartTime:   0,
			EndTime:     1,
			Volume:      3.0,
		}},
		Persist: true,
	})
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	sig, _ = f.svc.Get(ctx, testOwner, created.ID)
	count := 0
	for _, ref := range sig.Stems {
		if ref.Name == "vocals_augment" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one vocals_augment entry, got %d", count)
	}
}

func TestAugment_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	aug := NewAugmentService(f.svc)

	created := mustCreate(t, f)
	markComplete(t, f, created.ID)
	attachTestStem(t, f, created.ID, "vocals")

	// empty chain
	_, _, err := aug.Apply(ctx, testOwner, &model.AugmentRequest{})
	if !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("empty chain: expected InvalidInput, got %v", err)
	}

	// mixed signals
	_, _, err = aug.Apply(ctx, testOwner, &model.AugmentRequest{
		Augmentations: []model.AugmentOp{
			{SignalID: created.ID, StemName: "vocals", AugmentType: model.AugmentTypeVolume, Volume: 1},
			{SignalID: "other", StemName: "vocals", AugmentType: model.AugmentTypeVolume, Volume: 1},
		},
	})
	if !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("mixed signals: expected InvalidInput, got %v", err)
	}

	// unknown stem
	_, _, err = aug.Apply(ctx, testOwner, &model.AugmentRequest{
		Augmentations: []model.AugmentOp{
			{SignalID: created.ID, StemName: "drums", AugmentType: model.AugmentTypeVolume, Volume: 1},
		},
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown stem: expected NotFound, got %v", err)
	}
}
