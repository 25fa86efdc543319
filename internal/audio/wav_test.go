package audio

import (
	"bytes"
	"testing"
)

// testBuffer returns a small stereo buffer with a recognizable ramp.
func testBuffer() *Buffer {
	samples := make([]int16, 2*200)
	for i := range samples {
		samples[i] = int16(i - 200)
	}
	return &Buffer{SampleRate: 100, Channels: 2, Samples: samples}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := testBuffer()

	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if out.SampleRate != in.SampleRate {
		t.Errorf("sample rate: expected %d, got %d", in.SampleRate, out.SampleRate)
	}
	if out.Channels != in.Channels {
		t.Errorf("channels: expected %d, got %d", in.Channels, out.Channels)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("samples: expected %d, got %d", len(in.Samples), len(out.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, in.Samples[i], out.Samples[i])
		}
	}
}

func TestProbe(t *testing.T) {
	buf := testBuffer()

	res, err := Probe(Encode(buf))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	if res.Extension != "wav" {
		t.Errorf("extension: expected wav, got %s", res.Extension)
	}
	if res.SampleRate != 100 {
		t.Errorf("sample rate: expected 100, got %d", res.SampleRate)
	}
	if res.Channels != 2 {
		t.Errorf("channels: expected 2, got %d", res.Channels)
	}
	if res.SampleWidth != 2 {
		t.Errorf("sample width: expected 2, got %d", res.SampleWidth)
	}
	// 200 frames at 100 Hz
	if res.Duration != 2.0 {
		t.Errorf("duration: expected 2.0, got %v", res.Duration)
	}
}

func TestProbe_RejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":       {},
		"short":       []byte("RIFF"),
		"not riff":    bytes.Repeat([]byte{0x42}, 64),
		"no chunks":   []byte("RIFF\x00\x00\x00\x00WAVE"),
		"wrong magic": []byte("RIFX\x24\x00\x00\x00WAVEfmt "),
	}

	for name, data := range cases {
		if _, err := Probe(data); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestDecode_RejectsNonPCM(t *testing.T) {
	data := Encode(testBuffer())
	data[20] = 3 // IEEE float format tag

	if _, err := Decode(data); err == nil {
		t.Error("expected error for non-PCM format")
	}
}

func TestFrameIndex_ClampsAndAligns(t *testing.T) {
	buf := testBuffer()

	if idx := buf.FrameIndex(-1); idx != 0 {
		t.Errorf("negative time: expected 0, got %d", idx)
	}
	if idx := buf.FrameIndex(1000); idx != len(buf.Samples) {
		t.Errorf("past end: expected %d, got %d", len(buf.Samples), idx)
	}
	// 0.5s at 100 Hz stereo is frame 50, sample index 100
	if idx := buf.FrameIndex(0.5); idx != 100 {
		t.Errorf("mid: expected 100, got %d", idx)
	}
}

func TestClone_Independent(t *testing.T) {
	buf := testBuffer()
	cp := buf.Clone()
	cp.Samples[0] = 12345

	if buf.Samples[0] == 12345 {
		t.Error("clone shares sample storage with original")
	}
}
