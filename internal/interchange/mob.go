package interchange

import (
	"github.com/google/uuid"

	"weft/internal/opentime"
)

// MobID is the stable unique identifier shared by every mob in a container.
type MobID = uuid.UUID

// NewMobID returns a fresh random mob identifier.
func NewMobID() MobID {
	return uuid.New()
}

// MobKind distinguishes the three mob roles in the interchange graph.
type MobKind int

const (
	// CompositionMob is an edited sequence.
	CompositionMob MobKind = iota
	// MasterMob renders a source through an effect chain.
	MasterMob
	// SourceMob references raw essence or another mob.
	SourceMob
)

func (k MobKind) String() string {
	switch k {
	case CompositionMob:
		return "composition"
	case MasterMob:
		return "master"
	case SourceMob:
		return "source"
	default:
		return "unknown"
	}
}

// MediaKind tags a slot's content channel.
type MediaKind int

const (
	PictureKind MediaKind = iota
	SoundKind
	OtherKind
)

func (k MediaKind) String() string {
	switch k {
	case PictureKind:
		return "picture"
	case SoundKind:
		return "sound"
	default:
		return "other"
	}
}

// Mob is one node of the interchange graph.
type Mob struct {
	ID       MobID
	Name     string
	Kind     MobKind
	TopLevel bool
	Slots    []*Slot

	// Descriptor is set on source mobs that reference playable essence.
	Descriptor *EssenceDescriptor
}

// Slot is a track-like channel within a mob holding one top-level segment.
type Slot struct {
	ID            int
	Name          string
	Media         MediaKind
	EditRate      opentime.Rational
	PhysicalTrack int
	Segment       Segment
	Markers       []Marker
}

// Slot returns the slot with the given ID, or nil.
func (m *Mob) Slot(id int) *Slot {
	for _, slot := range m.Slots {
		if slot.ID == id {
			return slot
		}
	}
	return nil
}

// AddSlot appends a slot and returns it for chaining.
func (m *Mob) AddSlot(slot *Slot) *Slot {
	m.Slots = append(m.Slots, slot)
	return slot
}

// StartTimecode returns the mob's start timecode from the primary physical
// track, if one is declared. Editorial tools use this slot as a global frame
// offset for the whole mob.
func (m *Mob) StartTimecode() *Timecode {
	for _, slot := range m.Slots {
		if slot.PhysicalTrack != 1 {
			continue
		}
		if tc := findTimecode(slot.Segment); tc != nil {
			return tc
		}
	}
	return nil
}

func findTimecode(seg Segment) *Timecode {
	switch s := seg.(type) {
	case *Timecode:
		return s
	case *Sequence:
		for _, item := range s.Items {
			if tc, ok := item.(*Timecode); ok {
				return tc
			}
		}
	}
	return nil
}

// EssenceDescriptor describes the raw media a source mob points at.
type EssenceDescriptor struct {
	Path       string
	SampleRate opentime.Rational
	Length     int64
}

// Marker annotates a slot position with a comment and color. AttachedSlotID
// and AttachedTrack record which timeline slot the marker describes; event
// slots carry markers on behalf of other slots.
type Marker struct {
	Position       int64
	Length         int64
	Comment        string
	Color          string
	AttachedSlotID int
	AttachedTrack  int
}
