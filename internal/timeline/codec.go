package timeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"weft/internal/opentime"
)

type timelineJSON struct {
	Name        string                 `json:"name,omitempty"`
	GlobalStart *opentime.RationalTime `json:"global_start,omitempty"`
	Tracks      []trackJSON            `json:"tracks"`
}

type trackJSON struct {
	Name    string            `json:"name,omitempty"`
	Kind    string            `json:"kind"`
	Rate    opentime.Rational `json:"rate"`
	Items   []itemJSON        `json:"items,omitempty"`
	Markers []markerJSON      `json:"markers,omitempty"`
}

type itemJSON struct {
	Kind      string                 `json:"kind"`
	Name      string                 `json:"name,omitempty"`
	Source    *sourceRefJSON         `json:"source,omitempty"`
	Range     *opentime.TimeRange    `json:"range,omitempty"`
	TimeScale *opentime.Rational     `json:"time_scale,omitempty"`
	TimeMap   []int64                `json:"time_map,omitempty"`
	Duration  *opentime.RationalTime `json:"duration,omitempty"`
	InOffset  *opentime.RationalTime `json:"in_offset,omitempty"`
	OutOffset *opentime.RationalTime `json:"out_offset,omitempty"`
	Tracks    []trackJSON            `json:"tracks,omitempty"`
	Markers   []markerJSON           `json:"markers,omitempty"`
	Muted     bool                   `json:"muted,omitempty"`
}

type sourceRefJSON struct {
	ID        string             `json:"id,omitempty"`
	Name      string             `json:"name,omitempty"`
	Path      string             `json:"path,omitempty"`
	Available opentime.TimeRange `json:"available"`
	Missing   bool               `json:"missing,omitempty"`
}

type markerJSON struct {
	Name  string             `json:"name,omitempty"`
	Color string             `json:"color,omitempty"`
	At    opentime.TimeRange `json:"at"`
}

// Encode renders the timeline as indented JSON.
func Encode(t *Timeline) ([]byte, error) {
	doc := timelineJSON{Name: t.Name, GlobalStart: t.GlobalStart}
	for _, track := range t.Tracks {
		doc.Tracks = append(doc.Tracks, encodeTrack(track))
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a timeline from its JSON form.
func Decode(data []byte) (*Timeline, error) {
	var doc timelineJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	t := &Timeline{Name: doc.Name, GlobalStart: doc.GlobalStart}
	for _, tj := range doc.Tracks {
		track, err := decodeTrack(tj)
		if err != nil {
			return nil, err
		}
		t.AddTrack(track)
	}
	return t, nil
}

// Load reads a timeline JSON file.
func Load(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open timeline %s: %w", path, err)
	}
	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Save writes the timeline JSON file.
func (t *Timeline) Save(path string) error {
	data, err := Encode(t)
	if err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write timeline %s: %w", path, err)
	}
	return nil
}

func encodeTrack(t *Track) trackJSON {
	tj := trackJSON{Name: t.Name, Kind: t.Kind.String(), Rate: t.Rate}
	for _, item := range t.Items {
		tj.Items = append(tj.Items, encodeItem(item))
	}
	for _, marker := range t.Markers {
		tj.Markers = append(tj.Markers, markerJSON(marker))
	}
	return tj
}

func decodeTrack(tj trackJSON) (*Track, error) {
	track := &Track{Name: tj.Name, Rate: tj.Rate}
	switch tj.Kind {
	case "video":
		track.Kind = VideoTrack
	case "audio":
		track.Kind = AudioTrack
	default:
		return nil, fmt.Errorf("decode timeline: unknown track kind %q", tj.Kind)
	}
	for _, ij := range tj.Items {
		item, err := decodeItem(ij)
		if err != nil {
			return nil, err
		}
		track.Append(item)
	}
	for _, mj := range tj.Markers {
		track.Markers = append(track.Markers, Marker(mj))
	}
	return track, nil
}

func encodeItem(item Item) itemJSON {
	switch it := item.(type) {
	case *Clip:
		ij := itemJSON{
			Kind:    "clip",
			Name:    it.Name,
			Range:   &it.Range,
			TimeMap: it.TimeMap,
			Muted:   it.Muted,
		}
		src := sourceRefJSON{
			Name:      it.Source.Name,
			Path:      it.Source.Path,
			Available: it.Source.Available,
			Missing:   it.Source.Missing,
		}
		if it.Source.ID != (uuid.UUID{}) {
			src.ID = it.Source.ID.String()
		}
		ij.Source = &src
		if it.TimeScale.Den != 0 {
			scale := it.TimeScale
			ij.TimeScale = &scale
		}
		for _, marker := range it.Markers {
			ij.Markers = append(ij.Markers, markerJSON(marker))
		}
		return ij
	case *Gap:
		ij := itemJSON{Kind: "gap", Duration: &it.Dur}
		for _, marker := range it.Markers {
			ij.Markers = append(ij.Markers, markerJSON(marker))
		}
		return ij
	case *Transition:
		in, out := it.InOffset, it.OutOffset
		return itemJSON{Kind: "transition", Name: it.Name, InOffset: &in, OutOffset: &out}
	case *Stack:
		ij := itemJSON{Kind: "stack", Name: it.Name, Muted: it.Muted}
		if it.Range != nil {
			ij.Range = it.Range
		}
		for _, track := range it.Tracks {
			ij.Tracks = append(ij.Tracks, encodeTrack(track))
		}
		for _, marker := range it.Markers {
			ij.Markers = append(ij.Markers, markerJSON(marker))
		}
		return ij
	default:
		return itemJSON{Kind: "unknown"}
	}
}

func decodeItem(ij itemJSON) (Item, error) {
	switch ij.Kind {
	case "clip":
		clip := &Clip{Name: ij.Name, TimeMap: ij.TimeMap, Muted: ij.Muted}
		if ij.Range != nil {
			clip.Range = *ij.Range
		}
		if ij.TimeScale != nil {
			clip.TimeScale = *ij.TimeScale
		}
		if ij.Source != nil {
			clip.Source = SourceRef{
				Name:      ij.Source.Name,
				Path:      ij.Source.Path,
				Available: ij.Source.Available,
				Missing:   ij.Source.Missing,
			}
			if ij.Source.ID != "" {
				id, err := uuid.Parse(ij.Source.ID)
				if err != nil {
					return nil, fmt.Errorf("decode timeline: clip source id %q: %w", ij.Source.ID, err)
				}
				clip.Source.ID = id
			}
		}
		for _, mj := range ij.Markers {
			clip.Markers = append(clip.Markers, Marker(mj))
		}
		return clip, nil
	case "gap":
		gap := &Gap{}
		if ij.Duration != nil {
			gap.Dur = *ij.Duration
		}
		for _, mj := range ij.Markers {
			gap.Markers = append(gap.Markers, Marker(mj))
		}
		return gap, nil
	case "transition":
		tr := &Transition{Name: ij.Name}
		if ij.InOffset != nil {
			tr.InOffset = *ij.InOffset
		}
		if ij.OutOffset != nil {
			tr.OutOffset = *ij.OutOffset
		}
		return tr, nil
	case "stack":
		stack := &Stack{Name: ij.Name, Muted: ij.Muted}
		if ij.Range != nil {
			r := *ij.Range
			stack.Range = &r
		}
		for _, tj := range ij.Tracks {
			track, err := decodeTrack(tj)
			if err != nil {
				return nil, err
			}
			stack.AddTrack(track)
		}
		for _, mj := range ij.Markers {
			stack.Markers = append(stack.Markers, Marker(mj))
		}
		return stack, nil
	default:
		return nil, fmt.Errorf("decode timeline: unknown item kind %q", ij.Kind)
	}
}
