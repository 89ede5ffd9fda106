package track

import (
	"math"
	"strconv"
)

// TrackSlotID indexes a storage slot in [0, num_track_slots).
type TrackSlotID uint32

// TrackID identifies a track within its event.
type TrackID uint32

// EventID identifies an event in [0, max_events).
type EventID uint32

const (
	// NoSlot marks an absent slot (e.g. the parent slot of a primary).
	NoSlot TrackSlotID = math.MaxUint32
	// NoTrack marks an absent track (e.g. the parent of a primary).
	NoTrack TrackID = math.MaxUint32
)

// Valid reports whether the slot id refers to a real slot.
func (s TrackSlotID) Valid() bool { return s != NoSlot }

// Valid reports whether the track id refers to a real track.
func (t TrackID) Valid() bool { return t != NoTrack }

func (s TrackSlotID) String() string {
	if !s.Valid() {
		return "none"
	}
	return strconv.FormatUint(uint64(s), 10)
}

func (t TrackID) String() string {
	if !t.Valid() {
		return "none"
	}
	return strconv.FormatUint(uint64(t), 10)
}
