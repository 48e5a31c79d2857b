package transcribe

import (
	"weft/internal/timeline"
)

// simplify collapses the synthetic nesting the graph form forces onto the
// tree: stacks holding one track with one item become that item, untrimmed
// single-track stacks inline into their parent track, and gap-only tracks
// vanish from stacks. Running it twice changes nothing.
func simplify(tl *timeline.Timeline) {
	for _, track := range tl.Tracks {
		simplifyTrack(track)
	}
}

func simplifyTrack(track *timeline.Track) {
	var out []timeline.Item
	for _, item := range track.Items {
		stack, ok := item.(*timeline.Stack)
		if !ok {
			out = append(out, item)
			continue
		}
		simplifyStack(stack)
		if replacement := collapseStack(stack); replacement != nil {
			out = append(out, replacement...)
			continue
		}
		out = append(out, stack)
	}
	track.Items = out
}

func simplifyStack(stack *timeline.Stack) {
	var kept []*timeline.Track
	for _, track := range stack.Tracks {
		simplifyTrack(track)
		if len(stack.Tracks) > 1 && gapOnly(track) {
			continue
		}
		kept = append(kept, track)
	}
	if len(kept) > 0 {
		stack.Tracks = kept
	}
}

func gapOnly(track *timeline.Track) bool {
	if len(track.Markers) > 0 {
		return false
	}
	for _, item := range track.Items {
		if _, ok := item.(*timeline.Gap); !ok {
			return false
		}
		if len(item.(*timeline.Gap).Markers) > 0 {
			return false
		}
	}
	return true
}

// collapseStack returns the items that replace the stack in its parent track,
// or nil when the stack must stay. Only stacks with no annotations of their
// own are candidates; a trim range is folded into a lone clip or gap.
func collapseStack(stack *timeline.Stack) []timeline.Item {
	if stack.Muted || len(stack.Markers) > 0 || len(stack.Tracks) != 1 {
		return nil
	}
	track := stack.Tracks[0]
	if len(track.Markers) > 0 {
		return nil
	}

	if len(track.Items) == 1 {
		item := track.Items[0]
		if stack.Range == nil {
			return []timeline.Item{item}
		}
		switch it := item.(type) {
		case *timeline.Clip:
			applyTrim(it, stack)
			return []timeline.Item{it}
		case *timeline.Gap:
			it.Dur = rescaleTo(stack.Range.Duration, it.Dur.Rate)
			return []timeline.Item{it}
		}
		return nil
	}
	if stack.Range == nil && len(track.Items) > 0 {
		return track.Items
	}
	return nil
}

// applyTrim narrows the clip to the stack's trim window, clamped so the clip
// never reaches past its original media range.
func applyTrim(clip *timeline.Clip, stack *timeline.Stack) {
	shift := rescaleTo(stack.Range.Start, clip.Range.Start.Rate)
	dur := rescaleTo(stack.Range.Duration, clip.Range.Duration.Rate)

	remaining := clip.Range.Duration.Value - shift.Value
	if remaining < 0 {
		remaining = 0
	}
	if dur.Value > remaining {
		dur.Value = remaining
	}
	clip.Range.Start.Value += shift.Value
	clip.Range.Duration.Value = dur.Value
}
