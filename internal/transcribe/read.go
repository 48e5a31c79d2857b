package transcribe

import (
	"fmt"
	"sort"

	"weft/internal/interchange"
	"weft/internal/opentime"
	"weft/internal/timeline"
)

// Read transcribes the mob graph into a timeline tree. Problems inside the
// graph never fail the call; they surface as ordered diagnostics alongside a
// best-effort tree.
func Read(file *interchange.File, opts Options) (*timeline.Timeline, []Diagnostic) {
	opts = opts.normalized()
	r := &reader{
		file:     file,
		opts:     opts,
		rec:      newRecorder(opts.Logger, opts.TranscribeLog),
		building: make(map[interchange.MobID]bool),
	}
	r.resolver = newResolver(file, r.rec, opts.FallbackRate)

	tl := &timeline.Timeline{}
	roots := file.RootMobs()
	if len(roots) == 0 {
		r.rec.structural("", "container holds no transcribable mobs")
		return tl, r.rec.diags
	}

	tl.Name = roots[0].Name
	for _, root := range roots {
		r.rec.step("transcribing root mob %s (%s)", root.Name, root.Kind)
		tl.Tracks = append(tl.Tracks, r.transcribeMob(root)...)
	}
	if tc := roots[0].StartTimecode(); tc != nil && !tc.Rate.IsZero() {
		start := opentime.FromFrames(tc.Start, tc.Rate)
		tl.GlobalStart = &start
	}

	if opts.Simplify {
		simplify(tl)
	}
	return tl, r.rec.diags
}

// ReadFile loads a container from disk and transcribes it. Only the load can
// fail.
func ReadFile(path string, opts Options) (*timeline.Timeline, []Diagnostic, error) {
	file, err := interchange.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read container: %w", err)
	}
	tl, diags := Read(file, opts)
	return tl, diags, nil
}

type reader struct {
	file     *interchange.File
	opts     Options
	resolver *resolver
	rec      *recorder

	// building guards against composition mobs that nest themselves.
	building map[interchange.MobID]bool
}

// transcribeMob turns one mob's slots into tracks: picture slots first, then
// sound, keeping the relative order within each kind.
func (r *reader) transcribeMob(mob *interchange.Mob) []*timeline.Track {
	slots := orderedSlots(mob.Slots)
	markers := collectMarkers(mob.Slots)

	var tracks []*timeline.Track
	for _, slot := range slots {
		track := r.transcribeSlot(mob, slot, markers[slot.ID])
		if track != nil {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// orderedSlots filters to media slots and orders picture before sound. Slots
// holding only timecode or event metadata are not content.
func orderedSlots(slots []*interchange.Slot) []*interchange.Slot {
	var media []*interchange.Slot
	for _, slot := range slots {
		if slot.Segment == nil {
			continue
		}
		if _, ok := slot.Segment.(*interchange.Timecode); ok {
			continue
		}
		if slot.Media == interchange.OtherKind {
			continue
		}
		media = append(media, slot)
	}
	sort.SliceStable(media, func(i, j int) bool {
		return media[i].Media < media[j].Media
	})
	return media
}

// collectMarkers gathers every slot's markers keyed by the slot they
// annotate. Event slots carry markers on behalf of other slots through the
// attachment fields.
func collectMarkers(slots []*interchange.Slot) map[int][]interchange.Marker {
	byTarget := make(map[int][]interchange.Marker)
	for _, slot := range slots {
		for _, m := range slot.Markers {
			target := m.AttachedSlotID
			if target == 0 {
				target = slot.ID
			}
			byTarget[target] = append(byTarget[target], m)
		}
	}
	return byTarget
}

func (r *reader) transcribeSlot(mob *interchange.Mob, slot *interchange.Slot, markers []interchange.Marker) *timeline.Track {
	track := &timeline.Track{
		Name: slot.Name,
		Kind: trackKind(slot.Media),
		Rate: slot.EditRate,
	}
	r.rec.step("slot %d (%s) -> %s track", slot.ID, slot.Media, track.Kind)

	children := []interchange.Segment{slot.Segment}
	if seq, ok := slot.Segment.(*interchange.Sequence); ok {
		children = seq.Items
	}
	subject := fmt.Sprintf("%s/slot %d", mob.Name, slot.ID)
	for _, child := range children {
		if item := r.transcribeSegment(child, slot, subject); item != nil {
			track.Append(item)
		}
	}
	r.fixupTransitions(track, subject)

	for _, m := range markers {
		track.Markers = append(track.Markers, timeline.Marker{
			Name:  m.Comment,
			Color: m.Color,
			At:    opentime.NewRange(m.Position, m.Length, slot.EditRate),
		})
	}
	if r.opts.AttachMarkers {
		attachTrackMarkers(track)
	}
	return track
}

func trackKind(media interchange.MediaKind) timeline.TrackKind {
	if media == interchange.SoundKind {
		return timeline.AudioTrack
	}
	return timeline.VideoTrack
}

// transcribeSegment converts one sequence child. A nil result means the
// segment contributes nothing (timecode declarations). Malformed segments
// degrade to gaps of the declared length so the track keeps its duration.
func (r *reader) transcribeSegment(seg interchange.Segment, slot *interchange.Slot, subject string) timeline.Item {
	switch s := seg.(type) {
	case *interchange.SourceClip:
		return r.transcribeClip(s, slot, subject)

	case *interchange.Filler:
		return &timeline.Gap{Dur: opentime.FromFrames(s.Len, slot.EditRate)}

	case *interchange.Transition:
		return &timeline.Transition{
			InOffset:  opentime.FromFrames(s.CutPoint, slot.EditRate),
			OutOffset: opentime.FromFrames(s.Len-s.CutPoint, slot.EditRate),
		}

	case *interchange.OperationGroup:
		return r.transcribeOperation(s, slot, subject)

	case *interchange.Selector:
		return r.transcribeSelector(s, slot, subject)

	case *interchange.Sequence:
		stack := &timeline.Stack{}
		inner := stack.AddTrack(&timeline.Track{Kind: trackKind(slot.Media), Rate: slot.EditRate})
		for _, child := range s.Items {
			if item := r.transcribeSegment(child, slot, subject); item != nil {
				inner.Append(item)
			}
		}
		r.fixupTransitions(inner, subject)
		return stack

	case *interchange.Timecode:
		return nil

	case *interchange.ScopeReference:
		r.rec.step("scope reference degraded to %d frame gap", s.Len)
		return &timeline.Gap{Dur: opentime.FromFrames(s.Len, slot.EditRate)}

	default:
		r.rec.structural(subject, "unsupported segment %T replaced by gap", seg)
		return &timeline.Gap{Dur: opentime.FromFrames(seg.Length(), slot.EditRate)}
	}
}

// transcribeClip resolves a source clip to either a clip over essence or, for
// references into composition mobs, a nested stack.
func (r *reader) transcribeClip(clip *interchange.SourceClip, slot *interchange.Slot, subject string) timeline.Item {
	if target := r.file.Mob(clip.Mob); target != nil && target.Kind == interchange.CompositionMob {
		return r.transcribeNested(clip, target, slot, subject)
	}

	res := r.resolver.resolve(clip, slot.EditRate)
	if res.Dangling {
		r.rec.reference(subject, "unresolved reference to mob %s", clip.Mob)
		return &timeline.Clip{
			Name:   res.Name,
			Source: timeline.SourceRef{ID: clip.Mob, Name: res.Name, Missing: true},
			Range:  res.Range,
		}
	}
	if !res.RateExact {
		r.rec.rate(subject, "edit rates along the chain to %s do not align exactly", res.Name)
	}
	r.rec.step("clip %q [%d+%d] -> %s", res.Name, res.Range.Start.Value, res.Range.Duration.Value, res.Path)
	return &timeline.Clip{
		Name: res.Name,
		Source: timeline.SourceRef{
			ID:        res.SourceID,
			Name:      res.Name,
			Path:      res.Path,
			Available: res.Available,
		},
		Range: res.Range,
	}
}

// transcribeNested re-transcribes a referenced composition mob as a stack
// trimmed to the referring clip's range.
func (r *reader) transcribeNested(clip *interchange.SourceClip, target *interchange.Mob, slot *interchange.Slot, subject string) timeline.Item {
	if r.building[target.ID] {
		r.rec.reference(subject, "composition %s nests itself", target.Name)
		return &timeline.Gap{Dur: opentime.FromFrames(clip.Len, slot.EditRate)}
	}
	r.building[target.ID] = true
	defer delete(r.building, target.ID)

	trim := opentime.NewRange(clip.Start, clip.Len, slot.EditRate)
	return &timeline.Stack{
		Name:   target.Name,
		Tracks: r.transcribeMob(target),
		Range:  &trim,
	}
}

// transcribeOperation handles effect wrappers. Time warps bake onto the inner
// clip; any other effect is dropped and its first input passes through.
func (r *reader) transcribeOperation(op *interchange.OperationGroup, slot *interchange.Slot, subject string) timeline.Item {
	if len(op.Inputs) == 0 {
		r.rec.structural(subject, "operation group %q has no inputs", op.Op.Name)
		return &timeline.Gap{Dur: opentime.FromFrames(op.Len, slot.EditRate)}
	}

	if !isTimeWarp(op) {
		r.rec.structural(subject, "effect %q dropped; input passes through", op.Op.Name)
		return r.transcribeSegment(op.Inputs[0], slot, subject)
	}

	speed := bakeSpeed(op, r.opts, r.rec, subject)
	item := r.transcribeSegment(op.Inputs[0], slot, subject)
	clip, ok := item.(*timeline.Clip)
	if !ok {
		r.rec.structural(subject, "time warp wraps a %T, not a clip; effect dropped", item)
		return item
	}
	clip.TimeScale = speed.scale
	clip.TimeMap = speed.timeMap
	// The group's own length is the clip's footprint on the track; the inner
	// clip length counts source frames once the warp is applied.
	footprint := opentime.FromFrames(op.Len, slot.EditRate)
	clip.Range.Duration = rescaleTo(footprint, clip.Range.Duration.Rate)
	if speed.scale.Den != 0 {
		r.rec.step("clip %q scaled %s", clip.Name, speed.scale)
	}
	return clip
}

// transcribeSelector follows the editorial choice. A selector whose selected
// branch is empty plays its first alternate muted, so the content survives
// the conversion without becoming visible.
func (r *reader) transcribeSelector(sel *interchange.Selector, slot *interchange.Slot, subject string) timeline.Item {
	if emptySegment(sel.Selected) && len(sel.Alternates) > 0 {
		item := r.transcribeSegment(sel.Alternates[0], slot, subject)
		switch alt := item.(type) {
		case *timeline.Clip:
			alt.Muted = true
		case *timeline.Stack:
			alt.Muted = true
		}
		return item
	}
	if sel.Selected == nil {
		r.rec.structural(subject, "selector has no selected segment")
		return &timeline.Gap{}
	}
	return r.transcribeSegment(sel.Selected, slot, subject)
}

func emptySegment(seg interchange.Segment) bool {
	switch seg.(type) {
	case nil, *interchange.Filler, *interchange.ScopeReference:
		return true
	}
	return false
}

// fixupTransitions rewrites transition overlaps into the neighboring items:
// the following item loses its head (the in offset) and the preceding one its
// tail (the out offset), so the transition occupies no track time of its own.
// A transition whose neighbor cannot absorb its offset is removed instead.
func (r *reader) fixupTransitions(track *timeline.Track, subject string) {
	items := track.Items
	for i := 0; i < len(items); i++ {
		tr, ok := items[i].(*timeline.Transition)
		if !ok {
			continue
		}
		prev := neighborItem(items, i, -1)
		next := neighborItem(items, i, +1)
		if !canTrim(prev, tr.OutOffset, false) || !canTrim(next, tr.InOffset, true) {
			r.rec.structural(subject, "transition at item %d has no neighbor to absorb its overlap; removed", i)
			items = append(items[:i], items[i+1:]...)
			i--
			continue
		}
		r.trimItem(prev, tr.OutOffset, false, subject)
		r.trimItem(next, tr.InOffset, true, subject)
	}
	track.Items = items
}

func neighborItem(items []timeline.Item, i, dir int) timeline.Item {
	for j := i + dir; j >= 0 && j < len(items); j += dir {
		if _, ok := items[j].(*timeline.Transition); !ok {
			return items[j]
		}
	}
	return nil
}

// canTrim reports whether the item can give up off frames from its head
// (fromHead) or tail. A zero offset needs no neighbor at all. Durations
// compare by exact value so a rate mismatch cannot misjudge the capacity.
func canTrim(item timeline.Item, off opentime.RationalTime, fromHead bool) bool {
	if off.Value == 0 {
		return true
	}
	if item == nil {
		return false
	}
	switch it := item.(type) {
	case *timeline.Clip:
		return it.Range.Duration.Cmp(off) >= 0
	case *timeline.Gap:
		return it.Dur.Cmp(off) >= 0
	case *timeline.Stack:
		return it.Range != nil && it.Range.Duration.Cmp(off) >= 0
	}
	return false
}

func rescaleTo(t opentime.RationalTime, rate opentime.Rational) opentime.RationalTime {
	out, _ := t.Rescale(rate)
	return out
}

// trimItem removes off from the item's head or tail. Head trims also advance
// a clip's source start so the surviving frames stay aligned. An offset that
// misses the item's grid rebases the item onto the common rate of both grids
// first, so the overlap never rounds away.
func (r *reader) trimItem(item timeline.Item, off opentime.RationalTime, fromHead bool, subject string) {
	if off.Value == 0 || item == nil {
		return
	}
	switch it := item.(type) {
	case *timeline.Clip:
		d, exact := r.trimOffset(off, &it.Range)
		if !exact {
			r.rec.rate(subject, "transition overlap does not land on clip %q frame boundaries", it.Name)
		}
		if fromHead {
			it.Range.Start.Value += d
		}
		it.Range.Duration.Value -= d
	case *timeline.Gap:
		d, exact := off.Rescale(it.Dur.Rate)
		if !exact {
			if common, ok := opentime.CommonRate(off.Rate, it.Dur.Rate, r.opts.FallbackRate); ok {
				it.Dur = rescaleTo(it.Dur, common)
				d, _ = off.Rescale(common)
			}
		}
		it.Dur.Value -= d.Value
	case *timeline.Stack:
		if it.Range == nil {
			return
		}
		d, _ := r.trimOffset(off, it.Range)
		if fromHead {
			it.Range.Start.Value += d
		}
		it.Range.Duration.Value -= d
	}
}

// trimOffset converts off into rng's rate. When the direct conversion would
// truncate, rng itself is rebased onto the common grid and the offset lands
// exactly there. The boolean is false only for irreconcilable rates.
func (r *reader) trimOffset(off opentime.RationalTime, rng *opentime.TimeRange) (int64, bool) {
	d, exact := off.Rescale(rng.Duration.Rate)
	if exact {
		return d.Value, true
	}
	common, ok := opentime.CommonRate(off.Rate, rng.Duration.Rate, r.opts.FallbackRate)
	if !ok {
		return d.Value, false
	}
	rng.Start = rescaleTo(rng.Start, common)
	rng.Duration = rescaleTo(rng.Duration, common)
	d, exact = off.Rescale(common)
	return d.Value, exact
}

// attachTrackMarkers re-homes each track marker onto the item whose occupied
// range contains the marker's position, rewriting the marker range into the
// item's local time. Markers landing between items stay on the track.
func attachTrackMarkers(track *timeline.Track) {
	if len(track.Markers) == 0 {
		return
	}
	ranges := track.ItemRanges()
	var remaining []timeline.Marker
	for _, m := range track.Markers {
		placed := false
		for i, item := range track.Items {
			if _, ok := item.(*timeline.Transition); ok {
				continue
			}
			if !ranges[i].Contains(m.At.Start) {
				continue
			}
			local := m
			local.At.Start = m.At.Start.Sub(ranges[i].Start)
			appendItemMarker(item, local)
			placed = true
			break
		}
		if !placed {
			remaining = append(remaining, m)
		}
	}
	track.Markers = remaining
}

func appendItemMarker(item timeline.Item, m timeline.Marker) {
	switch it := item.(type) {
	case *timeline.Clip:
		it.Markers = append(it.Markers, m)
	case *timeline.Gap:
		it.Markers = append(it.Markers, m)
	case *timeline.Stack:
		it.Markers = append(it.Markers, m)
	}
}
