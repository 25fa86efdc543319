package model

// AugmentOp is one augmentation applied to a stem's audio. Volume scales the
// samples inside [StartTime, EndTime]; Copy duplicates that interval onto
// [CopyStartTime, CopyEndTime]. Times are seconds from the start of the stem.
type AugmentOp struct {
	SignalID    string      `json:"signalId" validate:"required"`
	StemName    string      `json:"stemName" validate:"required"`
	AugmentType AugmentType `json:"augmentType" validate:"required,oneof=Volume Copy"`
	StartTime   float64     `json:"startTime" validate:"gte=0"`
	EndTime     float64     `json:"endTime" validate:"gtefield=StartTime"`

	// Volume only: multiplier applied to the interval (1.0 = unchanged).
	Volume float64 `json:"volume,omitempty"`

	// Copy only: destination interval.
	CopyStartTime float64 `json:"copyStartTime,omitempty"`
	CopyEndTime   float64 `json:"copyEndTime,omitempty"`
}

// AugmentRequest applies a chain of augmentations to stems of one signal.
type AugmentRequest struct {
	Augmentations []AugmentOp `json:"augmentations" validate:"required,min=1,dive"`

	// Persist stores each augmented stem as an augmented-variant artifact
	// instead of only streaming the result back.
	Persist bool `json:"persist,omitempty"`
}

// AugmentPersistedResponse reports stored augmented variants.
type AugmentPersistedResponse struct {
	SignalID string    `json:"signalId"`
	Stems    []StemRef `json:"stems"`
}
