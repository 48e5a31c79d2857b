package timeline

import (
	"github.com/google/uuid"

	"weft/internal/opentime"
)

// Timeline is the root of the host tree.
type Timeline struct {
	Name        string
	GlobalStart *opentime.RationalTime
	Tracks      []*Track
}

// AddTrack appends a track and returns it.
func (t *Timeline) AddTrack(track *Track) *Track {
	t.Tracks = append(t.Tracks, track)
	return track
}

// TrackKind tags a track's media type.
type TrackKind int

const (
	VideoTrack TrackKind = iota
	AudioTrack
)

func (k TrackKind) String() string {
	switch k {
	case VideoTrack:
		return "video"
	default:
		return "audio"
	}
}

// Track is an ordered, contiguous run of items at one rational rate.
type Track struct {
	Name    string
	Kind    TrackKind
	Rate    opentime.Rational
	Items   []Item
	Markers []Marker
}

// Append adds an item to the end of the track.
func (t *Track) Append(item Item) {
	t.Items = append(t.Items, item)
}

// Duration sums the visible item durations. Transitions overlap their
// neighbors and contribute nothing.
func (t *Track) Duration() opentime.RationalTime {
	var total int64
	for _, item := range t.Items {
		if _, ok := item.(*Transition); ok {
			continue
		}
		d, _ := item.Duration().Rescale(t.Rate)
		total += d.Value
	}
	return opentime.FromFrames(total, t.Rate)
}

// ItemRanges returns each item's occupied range in track time. A transition
// is assigned a zero-width range at its cut point.
func (t *Track) ItemRanges() []opentime.TimeRange {
	lengths := make([]int64, len(t.Items))
	for i, item := range t.Items {
		if _, ok := item.(*Transition); ok {
			continue
		}
		d, _ := item.Duration().Rescale(t.Rate)
		lengths[i] = d.Value
	}
	starts := opentime.CumulativeStarts(lengths, t.Rate)
	ranges := make([]opentime.TimeRange, len(t.Items))
	for i, start := range starts {
		ranges[i] = opentime.TimeRange{
			Start:    start,
			Duration: opentime.FromFrames(lengths[i], t.Rate),
		}
	}
	return ranges
}

// Marker annotates an item or track at a local time range.
type Marker struct {
	Name  string
	Color string
	At    opentime.TimeRange
}

// SourceRef points a clip at its underlying media.
type SourceRef struct {
	ID        uuid.UUID
	Name      string
	Path      string
	Available opentime.TimeRange
	Missing   bool
}
