package client

import (
	"context"

	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/model"
)

// MockSeparator produces stems by cloning the source signal. Used when the
// separation service is not configured, so the pipeline stays exercisable in
// development.
type MockSeparator struct {
	MusicStems  []string
	SpeechStems []string
}

func NewMockSeparator(musicStems, speechStems []string) *MockSeparator {
	if len(musicStems) == 0 {
		musicStems = []string{"vocals", "accompaniment"}
	}
	if len(speechStems) == 0 {
		speechStems = []string{"speech", "noise"}
	}
	return &MockSeparator{
		MusicStems:  musicStems,
		SpeechStems: speechStems,
	}
}

func (m *MockSeparator) Separate(ctx context.Context, buf *audio.Buffer, signalType model.SignalType, stems int) (map[string]*audio.Buffer, error) {
	names := m.MusicStems
	if signalType == model.SignalTypeSpeech {
		names = m.SpeechStems
	}
	if stems > 0 && stems < len(names) {
		names = names[:stems]
	}

	out := make(map[string]*audio.Buffer, len(names))
	for _, name := range names {
		out[name] = buf.Clone()
	}
	return out, nil
}
