package transcribe

import (
	"bytes"
	"testing"

	"weft/internal/interchange"
	"weft/internal/opentime"
	"weft/internal/timeline"
)

func rate24() opentime.Rational { return opentime.NewRational(24, 1) }

// addSourceChain builds a source mob plus its master mob and returns the
// master for referencing from composition slots.
func addSourceChain(file *interchange.File, name string, length int64, rate opentime.Rational) *interchange.Mob {
	source := &interchange.Mob{
		ID:   interchange.NewMobID(),
		Name: name + "-tape",
		Kind: interchange.SourceMob,
		Descriptor: &interchange.EssenceDescriptor{
			Path:       "file:///media/" + name + ".mxf",
			SampleRate: rate,
			Length:     length,
		},
	}
	source.AddSlot(&interchange.Slot{
		ID:       1,
		Media:    interchange.PictureKind,
		EditRate: rate,
		Segment:  &interchange.Filler{Len: length},
	})
	file.Add(source)

	master := &interchange.Mob{ID: interchange.NewMobID(), Name: name, Kind: interchange.MasterMob}
	master.AddSlot(&interchange.Slot{
		ID:       1,
		Media:    interchange.PictureKind,
		EditRate: rate,
		Segment:  &interchange.SourceClip{Mob: source.ID, SlotID: 1, Len: length},
	})
	file.Add(master)
	return master
}

// addComposition wraps the segments in a sequence on a single picture slot.
func addComposition(file *interchange.File, name string, rate opentime.Rational, segments ...interchange.Segment) *interchange.Mob {
	comp := &interchange.Mob{ID: interchange.NewMobID(), Name: name, Kind: interchange.CompositionMob, TopLevel: true}
	seq := &interchange.Sequence{}
	for _, seg := range segments {
		seq.Append(seg)
	}
	comp.AddSlot(&interchange.Slot{
		ID:       1,
		Name:     "V1",
		Media:    interchange.PictureKind,
		EditRate: rate,
		Segment:  seq,
	})
	file.Add(comp)
	return comp
}

func TestReadThreeItemTrack(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	addComposition(file, "edit", rate24(),
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 24},
		&interchange.Filler{Len: 12},
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 48, Len: 48},
	)

	tl, diags := Read(file, DefaultOptions())
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if tl.Name != "edit" || len(tl.Tracks) != 1 {
		t.Fatalf("timeline shape wrong: %q with %d tracks", tl.Name, len(tl.Tracks))
	}
	track := tl.Tracks[0]
	if track.Kind != timeline.VideoTrack || len(track.Items) != 3 {
		t.Fatalf("track shape wrong: %s with %d items", track.Kind, len(track.Items))
	}
	for i, want := range []int64{24, 12, 48} {
		if got := track.Items[i].Duration().Value; got != want {
			t.Fatalf("item %d duration = %d, want %d", i, got, want)
		}
	}
	clip := track.Items[0].(*timeline.Clip)
	if clip.Name != "clip-01" || clip.Source.Path != "file:///media/clip-01.mxf" {
		t.Fatalf("clip source not resolved: %+v", clip.Source)
	}
	if got := track.Duration().Value; got != 84 {
		t.Fatalf("track duration = %d, want 84", got)
	}
}

func TestReadTransitionConservesDuration(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	addComposition(file, "edit", rate24(),
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 48},
		&interchange.Transition{Len: 12, CutPoint: 6},
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 100, Len: 48},
	)

	tl, diags := Read(file, DefaultOptions())
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	track := tl.Tracks[0]
	if len(track.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(track.Items))
	}

	before := track.Items[0].(*timeline.Clip)
	after := track.Items[2].(*timeline.Clip)
	if before.Range.Duration.Value != 42 {
		t.Fatalf("preceding clip duration = %d, want 42", before.Range.Duration.Value)
	}
	if after.Range.Start.Value != 106 || after.Range.Duration.Value != 42 {
		t.Fatalf("following clip range = [%d, %d), want [106, 42)",
			after.Range.Start.Value, after.Range.Duration.Value)
	}
	tr := track.Items[1].(*timeline.Transition)
	if tr.InOffset.Value != 6 || tr.OutOffset.Value != 6 {
		t.Fatalf("transition offsets = %d/%d, want 6/6", tr.InOffset.Value, tr.OutOffset.Value)
	}
	// The declared sequence length is 48+48-12; the track must agree.
	if got := track.Duration().Value; got != 84 {
		t.Fatalf("track duration = %d, want 84", got)
	}
}

func TestReadMixedRateChainKeepsFrameBoundaries(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "pal-clip", 250, opentime.NewRational(25, 1))
	addComposition(file, "edit", rate24(),
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 12},
	)

	tl, diags := Read(file, DefaultOptions())
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	clip := tl.Tracks[0].Items[0].(*timeline.Clip)
	// 12 frames at 24 is exactly half a second; the clip lands on the 600
	// grid both rates divide into instead of truncating to 12 frames at 25.
	if !clip.Range.Duration.Rate.Equal(opentime.NewRational(600, 1)) {
		t.Fatalf("clip rate = %s, want the 600 common grid", clip.Range.Duration.Rate)
	}
	if !clip.Range.Duration.SecondsRational().Equal(opentime.NewRational(1, 2)) {
		t.Fatalf("clip duration = %s seconds, want exactly 1/2",
			clip.Range.Duration.SecondsRational())
	}
	if got := tl.Tracks[0].Duration().Value; got != 12 {
		t.Fatalf("track duration = %d frames, want 12", got)
	}
}

func TestReadDanglingReference(t *testing.T) {
	file := interchange.NewFile()
	addComposition(file, "edit", rate24(),
		&interchange.SourceClip{Mob: interchange.NewMobID(), SlotID: 1, Start: 5, Len: 30},
	)

	tl, diags := Read(file, DefaultOptions())
	clip := tl.Tracks[0].Items[0].(*timeline.Clip)
	if !clip.Source.Missing {
		t.Fatalf("expected a missing source placeholder, got %+v", clip.Source)
	}
	if clip.Range.Start.Value != 5 || clip.Range.Duration.Value != 30 {
		t.Fatalf("declared range not preserved: %+v", clip.Range)
	}
	if !hasDiag(diags, Reference) {
		t.Fatalf("expected a reference diagnostic, got %v", diags)
	}
}

func TestReadReferenceCycleTerminates(t *testing.T) {
	rate := rate24()
	file := interchange.NewFile()
	a := &interchange.Mob{ID: interchange.NewMobID(), Name: "a", Kind: interchange.MasterMob}
	b := &interchange.Mob{ID: interchange.NewMobID(), Name: "b", Kind: interchange.MasterMob}
	a.AddSlot(&interchange.Slot{
		ID: 1, Media: interchange.PictureKind, EditRate: rate,
		Segment: &interchange.SourceClip{Mob: b.ID, SlotID: 1, Len: 48},
	})
	b.AddSlot(&interchange.Slot{
		ID: 1, Media: interchange.PictureKind, EditRate: rate,
		Segment: &interchange.SourceClip{Mob: a.ID, SlotID: 1, Len: 48},
	})
	file.Add(a)
	file.Add(b)
	addComposition(file, "edit", rate,
		&interchange.SourceClip{Mob: a.ID, SlotID: 1, Start: 0, Len: 24},
	)

	tl, diags := Read(file, DefaultOptions())
	clip := tl.Tracks[0].Items[0].(*timeline.Clip)
	if !clip.Source.Missing {
		t.Fatalf("cycle should resolve to a missing source, got %+v", clip.Source)
	}
	if !hasDiag(diags, Reference) {
		t.Fatalf("expected a reference diagnostic, got %v", diags)
	}
}

func timeWarp(inner *interchange.SourceClip, length int64, points ...interchange.ControlPoint) *interchange.OperationGroup {
	return &interchange.OperationGroup{
		Op:     interchange.Operation{Name: interchange.OpMotionControl, IsTimeWarp: true},
		Len:    length,
		Inputs: []interchange.Segment{inner},
		Params: []interchange.Parameter{{
			Name:   interchange.ParamSpeedOffsetMap,
			Interp: interchange.LinearInterp,
			Points: points,
		}},
	}
}

func TestReadLinearSpeedScale(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	addComposition(file, "edit", rate24(),
		timeWarp(&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 24, Len: 48}, 24,
			interchange.ControlPoint{Time: opentime.FromInt(0), Value: opentime.FromInt(0)},
			interchange.ControlPoint{Time: opentime.FromInt(24), Value: opentime.FromInt(48)},
		),
	)

	tl, diags := Read(file, DefaultOptions())
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	clip := tl.Tracks[0].Items[0].(*timeline.Clip)
	if !clip.TimeScale.Equal(opentime.NewRational(2, 1)) {
		t.Fatalf("time scale = %s, want 2", clip.TimeScale)
	}
	if clip.Range.Start.Value != 24 || clip.Range.Duration.Value != 24 {
		t.Fatalf("clip range = [%d, %d), want footprint [24, 24)",
			clip.Range.Start.Value, clip.Range.Duration.Value)
	}
}

func TestReadFreezeFrame(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	addComposition(file, "edit", rate24(),
		timeWarp(&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 10, Len: 1}, 24,
			interchange.ControlPoint{Time: opentime.FromInt(0), Value: opentime.FromInt(0)},
			interchange.ControlPoint{Time: opentime.FromInt(24), Value: opentime.FromInt(0)},
		),
	)

	tl, _ := Read(file, DefaultOptions())
	clip := tl.Tracks[0].Items[0].(*timeline.Clip)
	if clip.TimeScale.Num != 0 || clip.TimeScale.Den != 1 {
		t.Fatalf("freeze frame scale = %+v, want 0/1", clip.TimeScale)
	}
	if !clip.Scaled() {
		t.Fatalf("freeze frame should report as scaled")
	}
}

func TestReadKeyframedCurve(t *testing.T) {
	points := []interchange.ControlPoint{
		{Time: opentime.FromInt(0), Value: opentime.FromInt(0)},
		{Time: opentime.FromInt(12), Value: opentime.FromInt(12)},
		{Time: opentime.FromInt(24), Value: opentime.FromInt(48)},
	}
	build := func() *interchange.File {
		file := interchange.NewFile()
		master := addSourceChain(file, "clip-01", 240, rate24())
		addComposition(file, "edit", rate24(),
			timeWarp(&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 48}, 24, points...),
		)
		return file
	}

	opts := DefaultOptions()
	opts.BakeKeyframedProperties = true
	tl, diags := Read(build(), opts)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	clip := tl.Tracks[0].Items[0].(*timeline.Clip)
	if len(clip.TimeMap) != 24 {
		t.Fatalf("time map has %d entries, want one per output frame (24)", len(clip.TimeMap))
	}
	for frame, want := range map[int]int64{0: 0, 6: 6, 12: 12, 18: 30, 23: 45} {
		if clip.TimeMap[frame] != want {
			t.Fatalf("time map[%d] = %d, want %d", frame, clip.TimeMap[frame], want)
		}
	}

	// Without baking the curve is dropped and reported.
	tl, diags = Read(build(), DefaultOptions())
	clip = tl.Tracks[0].Items[0].(*timeline.Clip)
	if len(clip.TimeMap) != 0 || clip.Scaled() {
		t.Fatalf("curve should be dropped without baking: %+v", clip)
	}
	if !hasDiag(diags, Structural) {
		t.Fatalf("expected a structural diagnostic, got %v", diags)
	}
}

func TestReadNestedComposition(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	inner := addComposition(file, "inner", rate24(),
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 48},
	)
	inner.TopLevel = false
	addComposition(file, "outer", rate24(),
		&interchange.SourceClip{Mob: inner.ID, SlotID: 1, Start: 0, Len: 24},
	)

	opts := DefaultOptions()
	opts.Simplify = false
	tl, diags := Read(file, opts)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	stack, ok := tl.Tracks[0].Items[0].(*timeline.Stack)
	if !ok {
		t.Fatalf("expected a nested stack, got %T", tl.Tracks[0].Items[0])
	}
	if stack.Name != "inner" || stack.Range == nil || stack.Range.Duration.Value != 24 {
		t.Fatalf("stack not trimmed to the reference: %+v", stack)
	}

	// Simplification collapses the single-clip nesting into a trimmed clip.
	tl, _ = Read(file, DefaultOptions())
	clip, ok := tl.Tracks[0].Items[0].(*timeline.Clip)
	if !ok {
		t.Fatalf("expected the stack to collapse, got %T", tl.Tracks[0].Items[0])
	}
	if clip.Range.Duration.Value != 24 {
		t.Fatalf("collapsed clip duration = %d, want 24", clip.Range.Duration.Value)
	}
}

func TestReadSelfNestingComposition(t *testing.T) {
	file := interchange.NewFile()
	comp := addComposition(file, "loop", rate24())
	seq := comp.Slots[0].Segment.(*interchange.Sequence)
	seq.Append(&interchange.SourceClip{Mob: comp.ID, SlotID: 1, Start: 0, Len: 24})

	tl, diags := Read(file, DefaultOptions())
	if len(tl.Tracks) != 1 {
		t.Fatalf("expected one track, got %d", len(tl.Tracks))
	}
	if !hasDiag(diags, Reference) {
		t.Fatalf("expected a reference diagnostic, got %v", diags)
	}
}

func TestReadSelectorPlaysAlternateMuted(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	addComposition(file, "edit", rate24(),
		&interchange.Selector{
			Selected: &interchange.Filler{Len: 24},
			Alternates: []interchange.Segment{
				&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 24},
			},
		},
	)

	tl, diags := Read(file, DefaultOptions())
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	clip := tl.Tracks[0].Items[0].(*timeline.Clip)
	if !clip.Muted {
		t.Fatalf("alternate should come through muted: %+v", clip)
	}
}

func TestReadAttachMarkers(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	comp := addComposition(file, "edit", rate24(),
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 24},
		&interchange.Filler{Len: 12},
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 48, Len: 48},
	)
	comp.Slots[0].Markers = []interchange.Marker{
		{Position: 30, Length: 1, Comment: "fix flash", Color: "red"},
		{Position: 200, Length: 1, Comment: "off the end"},
	}

	// Default: markers stay at track scope.
	tl, _ := Read(file, DefaultOptions())
	if got := len(tl.Tracks[0].Markers); got != 2 {
		t.Fatalf("expected 2 track markers, got %d", got)
	}

	opts := DefaultOptions()
	opts.AttachMarkers = true
	tl, _ = Read(file, opts)
	track := tl.Tracks[0]
	gap := track.Items[1].(*timeline.Gap)
	if len(gap.Markers) != 1 || gap.Markers[0].Name != "fix flash" {
		t.Fatalf("marker not re-homed onto the gap: %+v", gap.Markers)
	}
	if gap.Markers[0].At.Start.Value != 6 {
		t.Fatalf("marker position not item-local: %+v", gap.Markers[0].At)
	}
	// The marker past every item stays on the track.
	if len(track.Markers) != 1 || track.Markers[0].Name != "off the end" {
		t.Fatalf("unplaceable marker should stay on the track: %+v", track.Markers)
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	inner := addComposition(file, "inner", rate24(),
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 48},
		&interchange.Filler{Len: 12},
	)
	inner.TopLevel = false
	addComposition(file, "outer", rate24(),
		&interchange.SourceClip{Mob: inner.ID, SlotID: 1, Start: 0, Len: 24},
		&interchange.Filler{Len: 6},
	)

	tl, _ := Read(file, DefaultOptions())
	once, err := timeline.Encode(tl)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	simplify(tl)
	twice, err := timeline.Encode(tl)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("second simplification changed the tree:\n%s\nvs\n%s", once, twice)
	}
}

func TestReadGlobalStartTimecode(t *testing.T) {
	file := interchange.NewFile()
	master := addSourceChain(file, "clip-01", 240, rate24())
	comp := addComposition(file, "edit", rate24(),
		&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 0, Len: 24},
	)
	comp.AddSlot(&interchange.Slot{
		ID:            2,
		Name:          "TC",
		Media:         interchange.OtherKind,
		EditRate:      rate24(),
		PhysicalTrack: 1,
		Segment:       &interchange.Timecode{Start: 86400, Len: 24, Rate: rate24()},
	})

	tl, _ := Read(file, DefaultOptions())
	if tl.GlobalStart == nil || tl.GlobalStart.Value != 86400 || !tl.GlobalStart.Rate.Equal(rate24()) {
		t.Fatalf("global start not taken from the timecode slot: %+v", tl.GlobalStart)
	}
	// The timecode slot itself must not become a track.
	if len(tl.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tl.Tracks))
	}
}

func hasDiag(diags []Diagnostic, kind DiagKind) bool {
	for _, d := range diags {
		if d.Kind == kind {
			return true
		}
	}
	return false
}
