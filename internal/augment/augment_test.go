package augment

import (
	"testing"

	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/model"
)

// monoBuffer returns one second of mono audio at 100 Hz with constant value v.
func monoBuffer(v int16) *audio.Buffer {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = v
	}
	return &audio.Buffer{SampleRate: 100, Channels: 1, Samples: samples}
}

func TestApply_Volume(t *testing.T) {
	buf := monoBuffer(1000)

	out, err := Apply(buf, []model.AugmentOp{{
		AugmentType: model.AugmentTypeVolume,
		StartTime:   0,
		EndTime:     0.5,
		Volume:      2.0,
	}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if out.Samples[0] != 2000 {
		t.Errorf("inside interval: expected 2000, got %d", out.Samples[0])
	}
	if out.Samples[49] != 2000 {
		t.Errorf("end of interval: expected 2000, got %d", out.Samples[49])
	}
	if out.Samples[50] != 1000 {
		t.Errorf("outside interval: expected 1000, got %d", out.Samples[50])
	}
	// input untouched
	if buf.Samples[0] != 1000 {
		t.Error("apply mutated the input buffer")
	}
}

func TestApply_VolumeClamps(t *testing.T) {
	buf := monoBuffer(30000)

	out, err := Apply(buf, []model.AugmentOp{{
		AugmentType: model.AugmentTypeVolume,
		StartTime:   0,
		EndTime:     1,
		Volume:      4.0,
	}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out.Samples[0] != 32767 {
		t.Errorf("expected clamp to 32767, got %d", out.Samples[0])
	}
}

func TestApply_VolumeRejectsNegativeGain(t *testing.T) {
	_, err := Apply(monoBuffer(1), []model.AugmentOp{{
		AugmentType: model.AugmentTypeVolume,
		StartTime:   0,
		EndTime:     1,
		Volume:      -1,
	}})
	if err == nil {
		t.Error("expected error for negative gain")
	}
}

func TestApply_Copy(t *testing.T) {
	buf := monoBuffer(0)
	for i := 0; i < 50; i++ {
		buf.Samples[i] = int16(i + 1)
	}

	out, err := Apply(buf, []model.AugmentOp{{
		AugmentType:   model.AugmentTypeCopy,
		StartTime:     0,
		EndTime:       0.5,
		CopyStartTime: 0.5,
		CopyEndTime:   1,
	}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	for i := 0; i < 50; i++ {
		if out.Samples[50+i] != out.Samples[i] {
			t.Fatalf("sample %d: expected %d, got %d", 50+i, out.Samples[i], out.Samples[50+i])
		}
	}
}

func TestApply_ChainOrder(t *testing.T) {
	buf := monoBuffer(100)

	// double the first half, then copy it over the second half; the copy
	// must see the doubled values
	out, err := Apply(buf, []model.AugmentOp{
		{
			AugmentType: model.AugmentTypeVolume,
			StartTime:   0,
			EndTime:     0.5,
			Volume:      2.0,
		},
		{
			AugmentType:   model.AugmentTypeCopy,
			StartTime:     0,
			EndTime:       0.5,
			CopyStartTime: 0.5,
			CopyEndTime:   1,
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if out.Samples[75] != 200 {
		t.Errorf("expected copied sample to carry the doubled value, got %d", out.Samples[75])
	}
}

func TestApply_UnknownType(t *testing.T) {
	_, err := Apply(monoBuffer(1), []model.AugmentOp{{AugmentType: "Reverse"}})
	if err == nil {
		t.Error("expected error for unknown augment type")
	}
}
