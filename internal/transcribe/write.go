package transcribe

import (
	"fmt"

	"github.com/google/uuid"

	"weft/internal/interchange"
	"weft/internal/opentime"
	"weft/internal/timeline"
)

// Write transcribes a timeline tree back into a mob graph. Every mob it
// emits carries a fresh identifier; master and source mobs are deduplicated
// per underlying source so a clip used twice yields one chain.
func Write(tl *timeline.Timeline, opts Options) (*interchange.File, []Diagnostic) {
	opts = opts.normalized()
	w := &writer{
		file:    interchange.NewFile(),
		opts:    opts,
		rec:     newRecorder(opts.Logger, opts.TranscribeLog),
		masters: make(map[uuid.UUID]*interchange.Mob),
	}
	w.writeComposition(tl.Name, tl.GlobalStart, tl.Tracks, true)
	return w.file, w.rec.diags
}

// WriteFile transcribes and saves. Only the save can fail.
func WriteFile(tl *timeline.Timeline, path string, opts Options) ([]Diagnostic, error) {
	file, diags := Write(tl, opts)
	if err := file.Save(path); err != nil {
		return diags, fmt.Errorf("write container: %w", err)
	}
	return diags, nil
}

type writer struct {
	file *interchange.File
	opts Options
	rec  *recorder

	// masters deduplicates emitted master mobs per source identity. The
	// source mob hangs off the master's slots, so it needs no map of its own.
	masters map[uuid.UUID]*interchange.Mob
}

// writeComposition emits one composition mob for a set of tracks and returns
// it. Nested stacks re-enter here with topLevel false.
func (w *writer) writeComposition(name string, globalStart *opentime.RationalTime, tracks []*timeline.Track, topLevel bool) *interchange.Mob {
	comp := w.file.Add(&interchange.Mob{
		ID:       interchange.NewMobID(),
		Name:     name,
		Kind:     interchange.CompositionMob,
		TopLevel: topLevel,
	})
	w.rec.step("composition mob %s (%s)", name, comp.ID)

	var longest int64
	var tcRate opentime.Rational
	for i, track := range tracks {
		slot := w.writeTrack(track, i+1)
		comp.AddSlot(slot)
		if length := slot.Segment.Length(); length > longest {
			longest = length
		}
		if tcRate.IsZero() {
			tcRate = slot.EditRate
		}
	}
	if tcRate.IsZero() {
		tcRate = w.opts.FallbackRate
	}

	var start int64
	if globalStart != nil {
		if !globalStart.Rate.IsZero() && !globalStart.Rate.Equal(tcRate) {
			if common, ok := opentime.CommonRate(tcRate, globalStart.Rate, w.opts.FallbackRate); ok {
				tcRate = common
			}
		}
		start = w.frames(*globalStart, tcRate, name)
	}
	comp.AddSlot(&interchange.Slot{
		ID:            len(tracks) + 1,
		Name:          "TC",
		Media:         interchange.OtherKind,
		EditRate:      tcRate,
		PhysicalTrack: 1,
		Segment:       &interchange.Timecode{Start: start, Len: longest, Rate: tcRate},
	})
	return comp
}

func (w *writer) writeTrack(track *timeline.Track, slotID int) *interchange.Slot {
	subject := fmt.Sprintf("track %q", track.Name)
	rate := w.slotRate(track, subject)
	seq := &interchange.Sequence{}
	for _, item := range track.Items {
		if seg := w.writeItem(item, rate, track.Kind, subject); seg != nil {
			seq.Append(seg)
		}
	}
	w.spliceTransitions(seq, subject)

	slot := &interchange.Slot{
		ID:       slotID,
		Name:     track.Name,
		Media:    slotMedia(track.Kind),
		EditRate: rate,
		Segment:  seq,
	}
	slot.Markers = w.writeMarkers(track, rate)
	return slot
}

// slotRate picks the slot's edit grid: the track rate, widened to the common
// rate of any clip whose range sits on a different grid so frame conversions
// into the slot stay exact.
func (w *writer) slotRate(track *timeline.Track, subject string) opentime.Rational {
	rate := track.Rate
	if rate.IsZero() {
		rate = w.opts.FallbackRate
	}
	for _, item := range track.Items {
		clip, ok := item.(*timeline.Clip)
		if !ok {
			continue
		}
		clipRate := clip.Range.Duration.Rate
		if clipRate.IsZero() || clipRate.Equal(rate) {
			continue
		}
		common, reconciled := opentime.CommonRate(rate, clipRate, w.opts.FallbackRate)
		if !reconciled {
			w.rec.rate(subject, "clip %q rate %s does not reconcile with track rate %s", clip.Name, clipRate, rate)
			continue
		}
		rate = common
	}
	return rate
}

func slotMedia(kind timeline.TrackKind) interchange.MediaKind {
	if kind == timeline.AudioTrack {
		return interchange.SoundKind
	}
	return interchange.PictureKind
}

// writeMarkers flattens track markers and item markers back to slot scope,
// item marker positions rewritten from item-local to track time.
func (w *writer) writeMarkers(track *timeline.Track, rate opentime.Rational) []interchange.Marker {
	var out []interchange.Marker
	for _, m := range track.Markers {
		out = append(out, slotMarker(m, 0, rate))
	}
	ranges := track.ItemRanges()
	for i, item := range track.Items {
		for _, m := range itemMarkers(item) {
			offset := rescaleTo(ranges[i].Start, rate).Value
			out = append(out, slotMarker(m, offset, rate))
		}
	}
	return out
}

func slotMarker(m timeline.Marker, offset int64, rate opentime.Rational) interchange.Marker {
	at := rescaleTo(m.At.Start, rate)
	length := rescaleTo(m.At.Duration, rate)
	return interchange.Marker{
		Position: at.Value + offset,
		Length:   length.Value,
		Comment:  m.Name,
		Color:    m.Color,
	}
}

func itemMarkers(item timeline.Item) []timeline.Marker {
	switch it := item.(type) {
	case *timeline.Clip:
		return it.Markers
	case *timeline.Gap:
		return it.Markers
	case *timeline.Stack:
		return it.Markers
	}
	return nil
}

func (w *writer) writeItem(item timeline.Item, rate opentime.Rational, kind timeline.TrackKind, subject string) interchange.Segment {
	switch it := item.(type) {
	case *timeline.Clip:
		return w.writeClip(it, rate, kind, subject)

	case *timeline.Gap:
		return &interchange.Filler{Len: w.frames(it.Dur, rate, subject)}

	case *timeline.Transition:
		in := w.frames(it.InOffset, rate, subject)
		out := w.frames(it.OutOffset, rate, subject)
		return &interchange.Transition{Len: in + out, CutPoint: in}

	case *timeline.Stack:
		return w.writeStack(it, rate, subject)

	default:
		w.rec.structural(subject, "unsupported item %T replaced by filler", item)
		return &interchange.Filler{Len: w.frames(item.Duration(), rate, subject)}
	}
}

// writeClip emits a source clip through a deduplicated master mob chain,
// wrapping it in a speed operation group when the clip is scaled and in a
// selector when it is muted.
func (w *writer) writeClip(clip *timeline.Clip, rate opentime.Rational, kind timeline.TrackKind, subject string) interchange.Segment {
	length := w.frames(clip.Range.Duration, rate, subject)

	var seg interchange.Segment
	if clip.Source.Missing {
		// Preserve the dangling reference as found so a later read reports
		// the same compromise instead of silently losing the clip.
		seg = &interchange.SourceClip{
			Mob:    clip.Source.ID,
			SlotID: 1,
			Start:  w.frames(clip.Range.Start, rate, subject),
			Len:    length,
		}
	} else {
		master, slotID := w.masterChain(clip.Source, kind)
		rel := clip.Range.Start.Sub(clip.Source.Available.Start)
		seg = &interchange.SourceClip{
			Mob:    master.ID,
			SlotID: slotID,
			Start:  w.frames(rel, rate, subject),
			Len:    length,
		}
	}

	if len(clip.TimeMap) > 0 {
		w.rec.structural(subject, "baked time map on %q not re-encoded as a curve", clip.Name)
	} else if clip.Scaled() {
		seg = wrapSpeed(seg, length, clip.Scale())
	}
	if clip.Muted {
		seg = &interchange.Selector{
			Selected:   &interchange.Filler{Len: length},
			Alternates: []interchange.Segment{seg},
		}
	}
	return seg
}

// wrapSpeed encodes a constant time scale as the two-point origin-anchored
// offset map curve the read path recognizes.
func wrapSpeed(seg interchange.Segment, length int64, scale opentime.Rational) interchange.Segment {
	return &interchange.OperationGroup{
		Op:     interchange.Operation{Name: interchange.OpMotionControl, IsTimeWarp: true},
		Len:    length,
		Inputs: []interchange.Segment{seg},
		Params: []interchange.Parameter{{
			Name:   interchange.ParamSpeedOffsetMap,
			Interp: interchange.LinearInterp,
			Points: []interchange.ControlPoint{
				{Time: opentime.FromInt(0), Value: opentime.FromInt(0)},
				{Time: opentime.FromInt(length), Value: opentime.FromInt(length).Mul(scale)},
			},
		}},
	}
}

// writeStack emits a nested composition mob and a source clip trimming it.
func (w *writer) writeStack(stack *timeline.Stack, rate opentime.Rational, subject string) interchange.Segment {
	nested := w.writeComposition(stack.Name, nil, stack.Tracks, false)

	var start, length int64
	if stack.Range != nil {
		start = w.frames(stack.Range.Start, rate, subject)
		length = w.frames(stack.Range.Duration, rate, subject)
	} else {
		length = rescaleTo(stack.Duration(), rate).Value
	}
	var seg interchange.Segment = &interchange.SourceClip{
		Mob:    nested.ID,
		SlotID: firstMediaSlot(nested),
		Start:  start,
		Len:    length,
	}
	if stack.Muted {
		seg = &interchange.Selector{
			Selected:   &interchange.Filler{Len: length},
			Alternates: []interchange.Segment{seg},
		}
	}
	return seg
}

func firstMediaSlot(mob *interchange.Mob) int {
	for _, slot := range mob.Slots {
		if slot.Media != interchange.OtherKind {
			return slot.ID
		}
	}
	return 1
}

// masterChain returns the master mob and slot for a source, emitting the
// master and its backing source mob on first use.
func (w *writer) masterChain(source timeline.SourceRef, kind timeline.TrackKind) (*interchange.Mob, int) {
	slotID := 1
	if kind == timeline.AudioTrack {
		slotID = 2
	}

	master, ok := w.masters[source.ID]
	if !ok {
		master = w.file.Add(&interchange.Mob{
			ID:   interchange.NewMobID(),
			Name: source.Name,
			Kind: interchange.MasterMob,
		})
		w.masters[source.ID] = master
		w.rec.step("master mob %s for source %q", master.ID, source.Name)
	}
	if slot := master.Slot(slotID); slot != nil {
		return master, slotID
	}

	srcMob := w.writeSourceMob(source, kind)
	rate := source.Available.Duration.Rate
	if rate.IsZero() {
		rate = w.opts.FallbackRate
	}
	master.AddSlot(&interchange.Slot{
		ID:       slotID,
		Name:     source.Name,
		Media:    slotMedia(kind),
		EditRate: rate,
		Segment: &interchange.SourceClip{
			Mob:    srcMob.ID,
			SlotID: 1,
			Start:  0,
			Len:    source.Available.Duration.Value,
		},
	})
	return master, slotID
}

// writeSourceMob emits the terminal mob: essence descriptor plus a physical
// timecode slot carrying the media's start offset.
func (w *writer) writeSourceMob(source timeline.SourceRef, kind timeline.TrackKind) *interchange.Mob {
	rate := source.Available.Duration.Rate
	if rate.IsZero() {
		rate = w.opts.FallbackRate
	}
	length := source.Available.Duration.Value
	start := source.Available.Start.Value

	mob := w.file.Add(&interchange.Mob{
		ID:   interchange.NewMobID(),
		Name: source.Name,
		Kind: interchange.SourceMob,
		Descriptor: &interchange.EssenceDescriptor{
			Path:       source.Path,
			SampleRate: rate,
			Length:     length,
		},
	})
	mob.AddSlot(&interchange.Slot{
		ID:       1,
		Name:     source.Name,
		Media:    slotMedia(kind),
		EditRate: rate,
		Segment:  &interchange.Filler{Len: length},
	})
	mob.AddSlot(&interchange.Slot{
		ID:            2,
		Name:          "TC",
		Media:         interchange.OtherKind,
		EditRate:      rate,
		PhysicalTrack: 1,
		Segment:       &interchange.Timecode{Start: start, Len: length, Rate: rate},
	})
	return mob
}

// spliceTransitions folds each transition's overlap back into its neighbors:
// the preceding segment regrows its tail by the out offset and the following
// one its head by the in offset, restoring the declared lengths the graph
// form expects. A transition that cannot be spliced is dropped.
func (w *writer) spliceTransitions(seq *interchange.Sequence, subject string) {
	items := seq.Items
	for i := 0; i < len(items); i++ {
		tr, ok := items[i].(*interchange.Transition)
		if !ok {
			continue
		}
		prev := neighborSegment(items, i, -1)
		next := neighborSegment(items, i, +1)
		out := tr.Len - tr.CutPoint
		if !canExtend(prev, out, false) || !canExtend(next, tr.CutPoint, true) {
			w.rec.structural(subject, "transition at segment %d has no neighbor to rejoin; dropped", i)
			items = append(items[:i], items[i+1:]...)
			i--
			continue
		}
		extendSegment(prev, out, false)
		extendSegment(next, tr.CutPoint, true)
	}
	seq.Items = items
}

func neighborSegment(items []interchange.Segment, i, dir int) interchange.Segment {
	for j := i + dir; j >= 0 && j < len(items); j += dir {
		if _, ok := items[j].(*interchange.Transition); !ok {
			return items[j]
		}
	}
	return nil
}

// canExtend reports whether the segment can regrow by off frames at its head
// or tail. Head growth needs source material before the clip's current start.
func canExtend(seg interchange.Segment, off int64, fromHead bool) bool {
	if off == 0 {
		return true
	}
	switch s := seg.(type) {
	case *interchange.SourceClip:
		return !fromHead || s.Start >= off
	case *interchange.Filler:
		return true
	case *interchange.OperationGroup:
		if len(s.Inputs) != 1 {
			return false
		}
		return canExtend(s.Inputs[0], off, fromHead)
	}
	return false
}

func extendSegment(seg interchange.Segment, off int64, fromHead bool) {
	if off == 0 {
		return
	}
	switch s := seg.(type) {
	case *interchange.SourceClip:
		if fromHead {
			s.Start -= off
		}
		s.Len += off
	case *interchange.Filler:
		s.Len += off
	case *interchange.OperationGroup:
		s.Len += off
		extendSegment(s.Inputs[0], off, fromHead)
	}
}

// frames rescales a time to the slot edit rate, recording a rate diagnostic
// when the conversion truncates.
func (w *writer) frames(t opentime.RationalTime, rate opentime.Rational, subject string) int64 {
	out, exact := t.Rescale(rate)
	if !exact {
		w.rec.rate(subject, "time %d/%s does not land on the %s edit rate", t.Value, t.Rate, rate)
	}
	return out.Value
}
