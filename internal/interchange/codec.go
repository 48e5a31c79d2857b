package interchange

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"weft/internal/opentime"
)

// Container encoding. Each segment is serialized as an envelope with a kind
// tag so the polymorphic graph survives the trip through JSON.

type fileJSON struct {
	Mobs []mobJSON `json:"mobs"`
}

type mobJSON struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	Kind       string       `json:"kind"`
	TopLevel   bool         `json:"top_level,omitempty"`
	Slots      []slotJSON   `json:"slots,omitempty"`
	Descriptor *essenceJSON `json:"descriptor,omitempty"`
}

type slotJSON struct {
	ID            int               `json:"id"`
	Name          string            `json:"name,omitempty"`
	Media         string            `json:"media"`
	EditRate      opentime.Rational `json:"edit_rate"`
	PhysicalTrack int               `json:"physical_track,omitempty"`
	Segment       *segmentJSON      `json:"segment,omitempty"`
	Markers       []markerJSON      `json:"markers,omitempty"`
}

type essenceJSON struct {
	Path       string            `json:"path,omitempty"`
	SampleRate opentime.Rational `json:"sample_rate"`
	Length     int64             `json:"length"`
}

type markerJSON struct {
	Position       int64  `json:"position"`
	Length         int64  `json:"length,omitempty"`
	Comment        string `json:"comment,omitempty"`
	Color          string `json:"color,omitempty"`
	AttachedSlotID int    `json:"attached_slot_id,omitempty"`
	AttachedTrack  int    `json:"attached_track,omitempty"`
}

type segmentJSON struct {
	Kind       string             `json:"kind"`
	Length     int64              `json:"length,omitempty"`
	Items      []*segmentJSON     `json:"items,omitempty"`
	Mob        string             `json:"mob,omitempty"`
	SlotID     int                `json:"slot_id,omitempty"`
	Start      int64              `json:"start,omitempty"`
	CutPoint   int64              `json:"cut_point,omitempty"`
	Operation  *operationJSON     `json:"operation,omitempty"`
	Inputs     []*segmentJSON     `json:"inputs,omitempty"`
	Params     []parameterJSON    `json:"params,omitempty"`
	Selected   *segmentJSON       `json:"selected,omitempty"`
	Alternates []*segmentJSON     `json:"alternates,omitempty"`
	Rate       *opentime.Rational `json:"rate,omitempty"`
}

type operationJSON struct {
	Name       string `json:"name"`
	IsTimeWarp bool   `json:"is_time_warp,omitempty"`
}

type parameterJSON struct {
	Name   string             `json:"name"`
	Value  *opentime.Rational `json:"value,omitempty"`
	Interp string             `json:"interp,omitempty"`
	Points []controlPointJSON `json:"points,omitempty"`
}

type controlPointJSON struct {
	Time  opentime.Rational `json:"time"`
	Value opentime.Rational `json:"value"`
}

// Load reads a container file and rebuilds the mob arena. Failures here are
// fatal to a conversion: there is no graph to degrade to.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	var doc fileJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode container %s: %w", path, err)
	}
	file := NewFile()
	for _, mj := range doc.Mobs {
		mob, err := decodeMob(mj)
		if err != nil {
			return nil, fmt.Errorf("decode container %s: %w", path, err)
		}
		file.Add(mob)
	}
	return file, nil
}

// Save writes the container atomically: a temp file in the destination
// directory is renamed over the target, so readers never observe a partial
// container.
func (f *File) Save(path string) error {
	doc := fileJSON{Mobs: make([]mobJSON, 0, len(f.Mobs))}
	for _, mob := range f.Mobs {
		doc.Mobs = append(doc.Mobs, encodeMob(mob))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode container: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".weft-*.tmp")
	if err != nil {
		return fmt.Errorf("stage container %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write container %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write container %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit container %s: %w", path, err)
	}
	return nil
}

func encodeMob(m *Mob) mobJSON {
	mj := mobJSON{
		ID:       m.ID.String(),
		Name:     m.Name,
		Kind:     m.Kind.String(),
		TopLevel: m.TopLevel,
	}
	if m.Descriptor != nil {
		mj.Descriptor = &essenceJSON{
			Path:       m.Descriptor.Path,
			SampleRate: m.Descriptor.SampleRate,
			Length:     m.Descriptor.Length,
		}
	}
	for _, slot := range m.Slots {
		sj := slotJSON{
			ID:            slot.ID,
			Name:          slot.Name,
			Media:         slot.Media.String(),
			EditRate:      slot.EditRate,
			PhysicalTrack: slot.PhysicalTrack,
			Segment:       encodeSegment(slot.Segment),
		}
		for _, marker := range slot.Markers {
			sj.Markers = append(sj.Markers, markerJSON(marker))
		}
		mj.Slots = append(mj.Slots, sj)
	}
	return mj
}

func decodeMob(mj mobJSON) (*Mob, error) {
	id, err := uuid.Parse(mj.ID)
	if err != nil {
		return nil, fmt.Errorf("mob id %q: %w", mj.ID, err)
	}
	mob := &Mob{ID: id, Name: mj.Name, TopLevel: mj.TopLevel}
	switch mj.Kind {
	case "composition":
		mob.Kind = CompositionMob
	case "master":
		mob.Kind = MasterMob
	case "source":
		mob.Kind = SourceMob
	default:
		return nil, fmt.Errorf("mob %s: unknown kind %q", mj.ID, mj.Kind)
	}
	if mj.Descriptor != nil {
		mob.Descriptor = &EssenceDescriptor{
			Path:       mj.Descriptor.Path,
			SampleRate: mj.Descriptor.SampleRate,
			Length:     mj.Descriptor.Length,
		}
	}
	for _, sj := range mj.Slots {
		slot := &Slot{
			ID:            sj.ID,
			Name:          sj.Name,
			EditRate:      sj.EditRate,
			PhysicalTrack: sj.PhysicalTrack,
		}
		switch sj.Media {
		case "picture":
			slot.Media = PictureKind
		case "sound":
			slot.Media = SoundKind
		default:
			slot.Media = OtherKind
		}
		if sj.Segment != nil {
			seg, err := decodeSegment(sj.Segment)
			if err != nil {
				return nil, fmt.Errorf("mob %s slot %d: %w", mj.ID, sj.ID, err)
			}
			slot.Segment = seg
		}
		for _, marker := range sj.Markers {
			slot.Markers = append(slot.Markers, Marker(marker))
		}
		mob.AddSlot(slot)
	}
	return mob, nil
}

func encodeSegment(seg Segment) *segmentJSON {
	if seg == nil {
		return nil
	}
	switch s := seg.(type) {
	case *Sequence:
		sj := &segmentJSON{Kind: "sequence"}
		for _, item := range s.Items {
			sj.Items = append(sj.Items, encodeSegment(item))
		}
		return sj
	case *SourceClip:
		return &segmentJSON{
			Kind:   "source_clip",
			Mob:    s.Mob.String(),
			SlotID: s.SlotID,
			Start:  s.Start,
			Length: s.Len,
		}
	case *Filler:
		return &segmentJSON{Kind: "filler", Length: s.Len}
	case *Transition:
		return &segmentJSON{Kind: "transition", Length: s.Len, CutPoint: s.CutPoint}
	case *OperationGroup:
		sj := &segmentJSON{
			Kind:      "operation_group",
			Length:    s.Len,
			Operation: &operationJSON{Name: s.Op.Name, IsTimeWarp: s.Op.IsTimeWarp},
		}
		for _, input := range s.Inputs {
			sj.Inputs = append(sj.Inputs, encodeSegment(input))
		}
		for _, param := range s.Params {
			pj := parameterJSON{Name: param.Name, Interp: param.Interp.String()}
			if param.Varying() {
				for _, pt := range param.Points {
					pj.Points = append(pj.Points, controlPointJSON{Time: pt.Time, Value: pt.Value})
				}
			} else {
				value := param.Value
				pj.Value = &value
			}
			sj.Params = append(sj.Params, pj)
		}
		return sj
	case *Selector:
		sj := &segmentJSON{Kind: "selector", Selected: encodeSegment(s.Selected)}
		for _, alt := range s.Alternates {
			sj.Alternates = append(sj.Alternates, encodeSegment(alt))
		}
		return sj
	case *Timecode:
		sj := &segmentJSON{Kind: "timecode", Start: s.Start, Length: s.Len}
		if !s.Rate.IsZero() {
			rate := s.Rate
			sj.Rate = &rate
		}
		return sj
	case *ScopeReference:
		return &segmentJSON{Kind: "scope_reference", Length: s.Len}
	default:
		return nil
	}
}

func decodeSegment(sj *segmentJSON) (Segment, error) {
	switch sj.Kind {
	case "sequence":
		seq := &Sequence{}
		for _, item := range sj.Items {
			child, err := decodeSegment(item)
			if err != nil {
				return nil, err
			}
			seq.Append(child)
		}
		return seq, nil
	case "source_clip":
		id, err := uuid.Parse(sj.Mob)
		if err != nil {
			return nil, fmt.Errorf("source clip mob %q: %w", sj.Mob, err)
		}
		return &SourceClip{Mob: id, SlotID: sj.SlotID, Start: sj.Start, Len: sj.Length}, nil
	case "filler":
		return &Filler{Len: sj.Length}, nil
	case "transition":
		return &Transition{Len: sj.Length, CutPoint: sj.CutPoint}, nil
	case "operation_group":
		group := &OperationGroup{Len: sj.Length}
		if sj.Operation != nil {
			group.Op = Operation{Name: sj.Operation.Name, IsTimeWarp: sj.Operation.IsTimeWarp}
		}
		for _, input := range sj.Inputs {
			child, err := decodeSegment(input)
			if err != nil {
				return nil, err
			}
			group.Inputs = append(group.Inputs, child)
		}
		for _, pj := range sj.Params {
			param := Parameter{Name: pj.Name, Interp: parseInterp(pj.Interp)}
			if pj.Value != nil {
				param.Value = *pj.Value
			}
			for _, pt := range pj.Points {
				param.Points = append(param.Points, ControlPoint{Time: pt.Time, Value: pt.Value})
			}
			group.Params = append(group.Params, param)
		}
		return group, nil
	case "selector":
		sel := &Selector{}
		if sj.Selected != nil {
			child, err := decodeSegment(sj.Selected)
			if err != nil {
				return nil, err
			}
			sel.Selected = child
		}
		for _, alt := range sj.Alternates {
			child, err := decodeSegment(alt)
			if err != nil {
				return nil, err
			}
			sel.Alternates = append(sel.Alternates, child)
		}
		return sel, nil
	case "timecode":
		tc := &Timecode{Start: sj.Start, Len: sj.Length}
		if sj.Rate != nil {
			tc.Rate = *sj.Rate
		}
		return tc, nil
	case "scope_reference":
		return &ScopeReference{Len: sj.Length}, nil
	default:
		return nil, fmt.Errorf("unknown segment kind %q", sj.Kind)
	}
}

func parseInterp(s string) Interpolation {
	switch s {
	case "constant":
		return ConstantInterp
	case "bezier":
		return BezierInterp
	case "cubic":
		return CubicInterp
	default:
		return LinearInterp
	}
}
