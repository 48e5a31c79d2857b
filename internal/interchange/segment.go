package interchange

import "weft/internal/opentime"

// Segment is one unit of timeline content within a slot. The set of variants
// is closed; the transcriber matches exhaustively over it.
type Segment interface {
	// Length is the declared duration in the owning slot's edit rate.
	Length() int64
	isSegment()
}

// Sequence is an ordered list of sub-segments laid end to end. Transitions
// inside the sequence overlap their neighbors, so they subtract from the
// total rather than adding to it.
type Sequence struct {
	Items []Segment
}

func (s *Sequence) Length() int64 {
	var total int64
	for _, item := range s.Items {
		if t, ok := item.(*Transition); ok {
			total -= t.Len
			continue
		}
		total += item.Length()
	}
	return total
}

func (s *Sequence) isSegment() {}

// Append adds a segment to the sequence.
func (s *Sequence) Append(seg Segment) {
	s.Items = append(s.Items, seg)
}

// SourceClip references a range of another mob's slot.
type SourceClip struct {
	Mob    MobID
	SlotID int
	Start  int64
	Len    int64
}

func (s *SourceClip) Length() int64 { return s.Len }
func (s *SourceClip) isSegment()    {}

// Filler is a gap of declared length.
type Filler struct {
	Len int64
}

func (f *Filler) Length() int64 { return f.Len }
func (f *Filler) isSegment()    {}

// Transition overlaps the two neighboring sequence segments. CutPoint splits
// the overlap: CutPoint frames are carved from the head of the following
// segment, Len-CutPoint from the tail of the preceding one.
type Transition struct {
	Len      int64
	CutPoint int64
}

func (t *Transition) Length() int64 { return t.Len }
func (t *Transition) isSegment()    {}

// Parameter and operation names shared with the speed ramp handling. The
// offset map curve maps output frames to source frames; the speed ratio is a
// constant fallback some tools write instead.
const (
	OpMotionControl     = "Motion Control"
	ParamSpeedOffsetMap = "PARAM_SPEED_OFFSET_MAP_U"
	ParamSpeedRatio     = "SpeedRatio"
)

// Operation identifies the effect an OperationGroup applies.
type Operation struct {
	Name       string
	IsTimeWarp bool
}

// OperationGroup wraps one or more input segments with an effect and its
// parameter curves.
type OperationGroup struct {
	Op     Operation
	Len    int64
	Inputs []Segment
	Params []Parameter
}

func (g *OperationGroup) Length() int64 { return g.Len }
func (g *OperationGroup) isSegment()    {}

// Parameter returns the named parameter, or nil.
func (g *OperationGroup) Parameter(name string) *Parameter {
	for i := range g.Params {
		if g.Params[i].Name == name {
			return &g.Params[i]
		}
	}
	return nil
}

// Interpolation names a parameter curve's interpolation kind.
type Interpolation int

const (
	ConstantInterp Interpolation = iota
	LinearInterp
	BezierInterp
	CubicInterp
)

func (i Interpolation) String() string {
	switch i {
	case ConstantInterp:
		return "constant"
	case LinearInterp:
		return "linear"
	case BezierInterp:
		return "bezier"
	default:
		return "cubic"
	}
}

// ControlPoint is one keyframe on a varying parameter.
type ControlPoint struct {
	Time  opentime.Rational
	Value opentime.Rational
}

// Parameter is either a constant value or a keyframed curve. Points non-empty
// means varying; otherwise Value holds the constant.
type Parameter struct {
	Name   string
	Value  opentime.Rational
	Interp Interpolation
	Points []ControlPoint
}

// Varying reports whether the parameter carries a keyframed curve.
func (p Parameter) Varying() bool {
	return len(p.Points) > 0
}

// Selector holds an editorial choice between a selected segment and a set of
// alternates.
type Selector struct {
	Selected   Segment
	Alternates []Segment
}

func (s *Selector) Length() int64 {
	if s.Selected != nil {
		return s.Selected.Length()
	}
	return 0
}

func (s *Selector) isSegment() {}

// Timecode declares a slot's start timecode. Rate is the exact edit rate the
// start is counted in, so fractional rates survive a round trip.
type Timecode struct {
	Start int64
	Len   int64
	Rate  opentime.Rational
}

func (t *Timecode) Length() int64 { return t.Len }
func (t *Timecode) isSegment()    {}

// ScopeReference pulls in content from an enclosing scope; the transcriber
// degrades it to a gap of the declared length.
type ScopeReference struct {
	Len int64
}

func (s *ScopeReference) Length() int64 { return s.Len }
func (s *ScopeReference) isSegment()    {}
