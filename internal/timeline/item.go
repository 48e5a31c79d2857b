package timeline

import "weft/internal/opentime"

// Item is one element of a track. The variant set is closed.
type Item interface {
	Duration() opentime.RationalTime
	isItem()
}

// Clip plays a trimmed range of a source reference. TimeScale is the ratio of
// source duration to played duration; the zero Rational means unscaled and a
// 0/1 scale is a freeze frame. TimeMap, when present, is a baked
// per-output-frame list of source frame indices and takes precedence over
// TimeScale for playback, though it is never re-encoded on the write path.
type Clip struct {
	Name      string
	Source    SourceRef
	Range     opentime.TimeRange
	TimeScale opentime.Rational
	TimeMap   []int64
	Markers   []Marker
	Muted     bool
}

func (c *Clip) Duration() opentime.RationalTime { return c.Range.Duration }
func (c *Clip) isItem()                         {}

// Scale returns the effective time-scale factor, 1/1 when unset.
func (c *Clip) Scale() opentime.Rational {
	if c.TimeScale.Den == 0 {
		return opentime.NewRational(1, 1)
	}
	return c.TimeScale
}

// Scaled reports whether the clip carries a non-identity speed.
func (c *Clip) Scaled() bool {
	return !c.Scale().Equal(opentime.NewRational(1, 1))
}

// Gap is empty space of a fixed duration.
type Gap struct {
	Dur     opentime.RationalTime
	Markers []Marker
}

func (g *Gap) Duration() opentime.RationalTime { return g.Dur }
func (g *Gap) isItem()                         {}

// Transition joins its two neighbors across a cut. InOffset frames were
// carved from the head of the following item and OutOffset from the tail of
// the preceding one, so the transition's full duration is InOffset+OutOffset
// while its own footprint on the track is zero.
type Transition struct {
	Name      string
	InOffset  opentime.RationalTime
	OutOffset opentime.RationalTime
}

func (t *Transition) Duration() opentime.RationalTime {
	return t.InOffset.Add(t.OutOffset)
}

func (t *Transition) isItem() {}

// Stack nests a set of parallel tracks inside a track, carrying an optional
// trim range over the nested content.
type Stack struct {
	Name    string
	Tracks  []*Track
	Range   *opentime.TimeRange
	Markers []Marker
	Muted   bool
}

// Duration is the stack's trimmed duration, or the longest child track when
// untrimmed.
func (s *Stack) Duration() opentime.RationalTime {
	if s.Range != nil {
		return s.Range.Duration
	}
	var longest opentime.RationalTime
	for _, track := range s.Tracks {
		if d := track.Duration(); d.Cmp(longest) > 0 {
			longest = d
		}
	}
	return longest
}

func (s *Stack) isItem() {}

// AddTrack appends a child track and returns it.
func (s *Stack) AddTrack(track *Track) *Track {
	s.Tracks = append(s.Tracks, track)
	return track
}
