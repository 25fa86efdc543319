package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/hibiken/asynq"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/client"
	"github.com/stemwave/api/internal/model"
	"github.com/stemwave/api/internal/service"
)

// SeparateWorker runs the staged separation pipeline for one signal per
// task: Separating → Separated → Saving → Complete, with any stage failure
// collapsing into a single Aborted transition. It never returns an error to
// asynq; no caller waits on task completion, so failures are visible only
// through the state feed.
type SeparateWorker struct {
	service   *service.SignalService
	separator client.Separator
	stems     int
}

// NewSeparateWorker creates a new separation worker. stems is the number of
// outputs requested from the separator per job.
func NewSeparateWorker(svc *service.SignalService, separator client.Separator, stems int) *SeparateWorker {
	if stems <= 0 {
		stems = 2
	}
	return &SeparateWorker{
		service:   svc,
		separator: separator,
		stems:     stems,
	}
}

// ProcessTask handles one separation task.
func (w *SeparateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.SeparateTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	signalID := payload.SignalID
	owner := payload.Owner
	log.Printf("Starting separation for signal %s", signalID)

	sig, err := w.service.Get(ctx, owner, signalID)
	if err != nil {
		// deleted before the task ran; nothing to abort
		log.Printf("Separation skipped, signal %s not found: %v", signalID, err)
		return nil
	}

	w.setState(ctx, owner, signalID, model.SignalStateSeparating)

	data, err := w.service.DownloadSource(ctx, owner, signalID)
	if err != nil {
		return w.abort(ctx, owner, signalID, "fetch", err)
	}
	buf, err := audio.Decode(data)
	if err != nil {
		return w.abort(ctx, owner, signalID, "decode", err)
	}

	separated, err := w.separator.Separate(ctx, buf, sig.Metadata.SignalType, w.stems)
	if err != nil {
		return w.abort(ctx, owner, signalID, "separate", err)
	}
	w.setState(ctx, owner, signalID, model.SignalStateSeparated)

	w.setState(ctx, owner, signalID, model.SignalStateSaving)
	names := make([]string, 0, len(separated))
	for name := range separated {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]model.StemRef, 0, len(names))
	for _, name := range names {
		stemBuf := separated[name]

		meta := sig.Metadata
		meta.Extension = "wav"
		meta.SampleRate = stemBuf.SampleRate
		meta.Channels = stemBuf.Channels
		meta.SampleWidth = 2
		meta.Duration = stemBuf.Duration()

		stem, err := w.service.SaveStem(ctx, owner, signalID, name, audio.Encode(stemBuf), meta, false)
		if err != nil {
			return w.abort(ctx, owner, signalID, "save", err)
		}
		refs = append(refs, model.StemRef{Name: name, StemID: stem.ID})
	}

	// the rewrite re-reads the signal first, so a job deleted while we were
	// separating stays deleted instead of being resurrected here
	if _, err := w.service.ReplaceStemList(ctx, owner, signalID, refs); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Printf("Signal %s deleted during separation, skipping completion", signalID)
			return nil
		}
		return w.abort(ctx, owner, signalID, "store", err)
	}

	w.setState(ctx, owner, signalID, model.SignalStateComplete)
	log.Printf("Separation for signal %s completed", signalID)
	return nil
}

func (w *SeparateWorker) abort(ctx context.Context, owner, signalID, stage string, cause error) error {
	log.Printf("Separation for signal %s aborted at stage %s: %v", signalID, stage, cause)
	w.setState(ctx, owner, signalID, model.SignalStateAborted)
	return nil
}

func (w *SeparateWorker) setState(ctx context.Context, owner, signalID string, state model.SignalState) {
	if err := w.service.SetState(ctx, owner, signalID, state); err != nil {
		log.Printf("Failed to set state %s for signal %s: %v", state, signalID, err)
	}
}
