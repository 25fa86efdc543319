package model

import "time"

// SignalMetadata describes the source audio of a signal. It is derived once
// at upload time by probing the file and never mutated afterwards.
type SignalMetadata struct {
	Extension   string     `json:"extension"`
	SampleRate  int        `json:"sampleRate"`
	Duration    float64    `json:"duration"` // seconds
	Channels    int        `json:"channels"`
	SampleWidth int        `json:"sampleWidth"` // bytes per sample
	Filename    string     `json:"filename,omitempty"`
	SignalType  SignalType `json:"signalType"`
}

// StemRef is one entry of a signal's stem list.
type StemRef struct {
	Name   string `json:"name"`
	StemID string `json:"stemId"`
}

// Signal represents one uploaded audio signal and its separation lifecycle.
// The signal's own blob is stored under the signal ID; stem blobs are stored
// under keys derived from (stem name, signal ID).
type Signal struct {
	ID        string         `json:"id"`
	Owner     string         `json:"-"`
	Metadata  SignalMetadata `json:"metadata"`
	Stems     []StemRef      `json:"stems"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// StemNames returns the stem names in list order.
func (s *Signal) StemNames() []string {
	names := make([]string, 0, len(s.Stems))
	for _, ref := range s.Stems {
		names = append(names, ref.Name)
	}
	return names
}

// FindStem returns the index of the named stem, or -1.
func (s *Signal) FindStem(name string) int {
	for i, ref := range s.Stems {
		if ref.Name == name {
			return i
		}
	}
	return -1
}

// Stem represents one named derived output of a signal. ID doubles as the
// blob-store key of the stem's audio.
type Stem struct {
	ID        string         `json:"id"`
	SignalID  string         `json:"signalId"`
	Owner     string         `json:"-"`
	Name      string         `json:"name"`
	Metadata  SignalMetadata `json:"metadata"`
	Augmented bool           `json:"augmented,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SignalInResponse wraps a signal for API responses.
type SignalInResponse struct {
	Signal *Signal `json:"signal"`
}

// SignalStateResponse is the point-read state payload.
type SignalStateResponse struct {
	SignalID string      `json:"signalId"`
	State    SignalState `json:"state"`
}

// StemDeleteResponse reports the outcome of a stem delete.
type StemDeleteResponse struct {
	StemName string `json:"stemName"`
	Deleted  bool   `json:"deleted"`
}

// SignalDeleteResponse reports the outcome of a signal delete.
type SignalDeleteResponse struct {
	SignalID string `json:"signalId"`
	Deleted  bool   `json:"deleted"`
}
