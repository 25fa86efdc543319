// Package augment applies non-destructive edits to decoded stems. The result
// is always a new buffer; stored stems are never modified in place.
package augment

import (
	"fmt"

	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/model"
)

// Apply runs a chain of augment ops against a stem buffer and returns the
// augmented copy. Ops apply in order; later ops see earlier results.
func Apply(buf *audio.Buffer, ops []model.AugmentOp) (*audio.Buffer, error) {
	out := buf.Clone()
	for _, op := range ops {
		var err error
		switch op.AugmentType {
		case model.AugmentTypeVolume:
			err = applyVolume(out, op)
		case model.AugmentTypeCopy:
			err = applyCopy(out, op)
		default:
			err = fmt.Errorf("unknown augment type %q", op.AugmentType)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyVolume(buf *audio.Buffer, op model.AugmentOp) error {
	if op.Volume < 0 {
		return fmt.Errorf("volume must be non-negative, got %v", op.Volume)
	}
	start := buf.FrameIndex(op.StartTime)
	end := buf.FrameIndex(op.EndTime)
	for i := start; i < end; i++ {
		buf.Samples[i] = scaleSample(buf.Samples[i], op.Volume)
	}
	return nil
}

func applyCopy(buf *audio.Buffer, op model.AugmentOp) error {
	src := buf.Samples[buf.FrameIndex(op.StartTime):buf.FrameIndex(op.EndTime)]
	dstStart := buf.FrameIndex(op.CopyStartTime)
	dstEnd := buf.FrameIndex(op.CopyEndTime)
	if dstEnd < dstStart {
		return fmt.Errorf("copy destination interval is inverted")
	}
	dst := buf.Samples[dstStart:dstEnd]
	if len(dst) > len(src) {
		dst = dst[:len(src)]
	}
	copy(dst, src)
	return nil
}

func scaleSample(s int16, gain float64) int16 {
	v := float64(s) * gain
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
