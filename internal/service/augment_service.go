package service

import (
	"context"
	"fmt"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/augment"
	"github.com/stemwave/api/internal/model"
)

// AugmentService applies augment chains to stems of one signal, either
// streaming the processed audio back or persisting it as an augmented
// variant next to the original stem.
type AugmentService struct {
	signals *SignalService
}

func NewAugmentService(signals *SignalService) *AugmentService {
	return &AugmentService{signals: signals}
}

// Apply processes one augment request. All ops must target the same signal.
// Without Persist the first augmented stem is returned as WAV bytes; with
// Persist every augmented stem is stored and the updated refs are returned.
func (s *AugmentService) Apply(ctx context.Context, owner string, req *model.AugmentRequest) ([]byte, *model.AugmentPersistedResponse, error) {
	if len(req.Augmentations) == 0 {
		return nil, nil, apperr.New(apperr.KindInvalidInput, "empty augmentation not allowed")
	}

	signalID := req.Augmentations[0].SignalID
	for _, op := range req.Augmentations {
		if op.SignalID != signalID {
			return nil, nil, apperr.New(apperr.KindInvalidInput, "augment one signal at a time")
		}
	}

	sig, err := s.signals.Get(ctx, owner, signalID)
	if err != nil {
		return nil, nil, err
	}

	// group ops per stem, preserving request order within each stem
	groups := make(map[string][]model.AugmentOp)
	var order []string
	for _, op := range req.Augmentations {
		if _, seen := groups[op.StemName]; !seen {
			order = append(order, op.StemName)
		}
		groups[op.StemName] = append(groups[op.StemName], op)
	}

	persisted := &model.AugmentPersistedResponse{SignalID: signalID}
	for _, stemName := range order {
		if sig.FindStem(stemName) < 0 {
			return nil, nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("stem %q not found", stemName))
		}

		data, err := s.signals.DownloadStem(ctx, owner, signalID, stemName)
		if err != nil {
			return nil, nil, err
		}
		buf, err := audio.Decode(data)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to decode stored stem", err)
		}

		out, err := augment.Apply(buf, groups[stemName])
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.KindInvalidInput, "invalid augmentation", err)
		}
		encoded := audio.Encode(out)

		if !req.Persist {
			return encoded, nil, nil
		}

		meta := sig.Metadata
		meta.Extension = "wav"
		meta.SampleRate = out.SampleRate
		meta.Channels = out.Channels
		meta.SampleWidth = 2
		meta.Duration = out.Duration()

		updated, err := s.signals.SaveAugmentedStem(ctx, owner, signalID, stemName, encoded, meta)
		if err != nil {
			return nil, nil, err
		}
		if idx := updated.FindStem(stemName + "_augment"); idx >= 0 {
			persisted.Stems = append(persisted.Stems, updated.Stems[idx])
		}
	}

	return nil, persisted, nil
}
