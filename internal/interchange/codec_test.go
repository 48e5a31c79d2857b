package interchange

import (
	"path/filepath"
	"testing"

	"weft/internal/opentime"
)

func buildGraph() (*File, *Mob) {
	rate := opentime.NewRational(24, 1)

	file := NewFile()

	source := &Mob{
		ID:   NewMobID(),
		Name: "tape-01",
		Kind: SourceMob,
		Descriptor: &EssenceDescriptor{
			Path:       "file:///media/tape-01.mxf",
			SampleRate: rate,
			Length:     240,
		},
	}
	source.AddSlot(&Slot{
		ID:       1,
		Media:    PictureKind,
		EditRate: rate,
		Segment:  &SourceClip{Mob: MobID{}, SlotID: 0, Start: 0, Len: 240},
	})
	file.Add(source)

	master := &Mob{ID: NewMobID(), Name: "clip-01", Kind: MasterMob}
	master.AddSlot(&Slot{
		ID:       1,
		Media:    PictureKind,
		EditRate: rate,
		Segment:  &SourceClip{Mob: source.ID, SlotID: 1, Start: 0, Len: 240},
	})
	file.Add(master)

	comp := &Mob{ID: NewMobID(), Name: "edit", Kind: CompositionMob, TopLevel: true}
	seq := &Sequence{}
	seq.Append(&SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 24})
	seq.Append(&Filler{Len: 12})
	seq.Append(&OperationGroup{
		Op:     Operation{Name: "Motion Control", IsTimeWarp: true},
		Len:    24,
		Inputs: []Segment{&SourceClip{Mob: master.ID, SlotID: 1, Start: 24, Len: 48}},
		Params: []Parameter{{
			Name:   ParamSpeedOffsetMap,
			Interp: LinearInterp,
			Points: []ControlPoint{
				{Time: opentime.FromInt(0), Value: opentime.FromInt(0)},
				{Time: opentime.FromInt(24), Value: opentime.FromInt(48)},
			},
		}},
	})
	comp.AddSlot(&Slot{
		ID:       1,
		Name:     "V1",
		Media:    PictureKind,
		EditRate: rate,
		Segment:  seq,
		Markers: []Marker{{
			Position: 4,
			Length:   1,
			Comment:  "check exposure",
			Color:    "red",
		}},
	})
	file.Add(comp)
	return file, comp
}

func TestSaveLoadPreservesGraph(t *testing.T) {
	file, comp := buildGraph()
	path := filepath.Join(t.TempDir(), "edit.weft")

	if err := file.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Mobs) != 3 {
		t.Fatalf("expected 3 mobs, got %d", len(loaded.Mobs))
	}

	got := loaded.Mob(comp.ID)
	if got == nil || got.Kind != CompositionMob || !got.TopLevel {
		t.Fatalf("composition mob not preserved: %+v", got)
	}
	slot := got.Slot(1)
	if slot == nil || slot.Name != "V1" {
		t.Fatalf("slot not preserved: %+v", slot)
	}
	seq, ok := slot.Segment.(*Sequence)
	if !ok || len(seq.Items) != 3 {
		t.Fatalf("sequence not preserved: %#v", slot.Segment)
	}
	group, ok := seq.Items[2].(*OperationGroup)
	if !ok || !group.Op.IsTimeWarp {
		t.Fatalf("operation group not preserved: %#v", seq.Items[2])
	}
	param := group.Parameter(ParamSpeedOffsetMap)
	if param == nil || !param.Varying() || len(param.Points) != 2 {
		t.Fatalf("parameter curve not preserved: %+v", param)
	}
	if len(slot.Markers) != 1 || slot.Markers[0].Comment != "check exposure" {
		t.Fatalf("markers not preserved: %+v", slot.Markers)
	}
}

func TestMobReturnsNilForDanglingReference(t *testing.T) {
	file, _ := buildGraph()
	if mob := file.Mob(NewMobID()); mob != nil {
		t.Fatalf("expected nil for unknown mob, got %+v", mob)
	}
}

func TestRootMobHeuristic(t *testing.T) {
	file, comp := buildGraph()
	roots := file.RootMobs()
	if len(roots) != 1 || roots[0].ID != comp.ID {
		t.Fatalf("expected the top-level composition, got %+v", roots)
	}

	// Without a top-level flag the compositions still win over masters.
	comp.TopLevel = false
	roots = file.RootMobs()
	if len(roots) != 1 || roots[0].Kind != CompositionMob {
		t.Fatalf("expected composition fallback, got %+v", roots)
	}

	// A container with only master mobs falls back to those.
	masters := NewFile()
	master := &Mob{ID: NewMobID(), Kind: MasterMob}
	masters.Add(master)
	roots = masters.RootMobs()
	if len(roots) != 1 || roots[0].ID != master.ID {
		t.Fatalf("expected master fallback, got %+v", roots)
	}
}

func TestSequenceLengthSubtractsTransitions(t *testing.T) {
	seq := &Sequence{}
	seq.Append(&Filler{Len: 48})
	seq.Append(&Transition{Len: 12, CutPoint: 6})
	seq.Append(&Filler{Len: 48})
	if got := seq.Length(); got != 84 {
		t.Fatalf("sequence length = %d, want 84", got)
	}
}

func TestStartTimecode(t *testing.T) {
	rate := opentime.NewRational(24, 1)
	mob := &Mob{ID: NewMobID(), Kind: CompositionMob}
	mob.AddSlot(&Slot{
		ID:            2,
		Media:         OtherKind,
		EditRate:      rate,
		PhysicalTrack: 1,
		Segment:       &Timecode{Start: 86400, Len: 1440, Rate: rate},
	})
	tc := mob.StartTimecode()
	if tc == nil || tc.Start != 86400 {
		t.Fatalf("start timecode not found: %+v", tc)
	}
}
