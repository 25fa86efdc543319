package model

// Signal types
type SignalType string

const (
	SignalTypeMusic  SignalType = "Music"
	SignalTypeSpeech SignalType = "Speech"
)

var ValidSignalTypes = []SignalType{SignalTypeMusic, SignalTypeSpeech}

// ParseSignalType returns the matching signal type, or false.
func ParseSignalType(s string) (SignalType, bool) {
	for _, t := range ValidSignalTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Signal separation states. Exactly one current value exists per signal;
// transitions are upserts that supersede the previous value.
type SignalState string

const (
	SignalStateQueued     SignalState = "Queued"
	SignalStateSeparating SignalState = "Separating"
	SignalStateSeparated  SignalState = "Separated"
	SignalStateSaving     SignalState = "Saving"
	SignalStateComplete   SignalState = "Complete"
	SignalStateAborted    SignalState = "Aborted"
	SignalStateDeleted    SignalState = "Deleted"
)

// Terminal reports whether no further automatic transition occurs.
func (s SignalState) Terminal() bool {
	return s == SignalStateComplete || s == SignalStateAborted || s == SignalStateDeleted
}

// Augment types
type AugmentType string

const (
	AugmentTypeVolume AugmentType = "Volume"
	AugmentTypeCopy   AugmentType = "Copy"
)

var ValidAugmentTypes = []AugmentType{AugmentTypeVolume, AugmentTypeCopy}
