package track

// TrackStatus is the lifecycle state of a storage slot.
type TrackStatus uint8

const (
	// StatusInactive means the slot is vacant.
	StatusInactive TrackStatus = iota
	// StatusAlive means the slot holds a track that is being stepped.
	StatusAlive
	// StatusKilled means the track finished during the current step. The
	// slot becomes vacant when secondaries are extended at the end of it.
	StatusKilled
)

func (s TrackStatus) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusAlive:
		return "alive"
	case StatusKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// SimState is the simulation identity of the track in one slot.
type SimState struct {
	TrackID  TrackID
	ParentID TrackID
	EventID  EventID
	Status   TrackStatus
	NumSteps uint32
	Time     float64 // [s]
}

// SimInitializer is the identity part of an Initializer.
type SimInitializer struct {
	TrackID  TrackID
	ParentID TrackID
	EventID  EventID
	Time     float64
}

// Materialize returns the live sim state for a freshly initialized track.
func (s SimInitializer) Materialize() SimState {
	return SimState{
		TrackID:  s.TrackID,
		ParentID: s.ParentID,
		EventID:  s.EventID,
		Status:   StatusAlive,
		Time:     s.Time,
	}
}
