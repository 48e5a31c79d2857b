package opentime

import "fmt"

// RationalTime is an integer frame count at an exact edit rate.
type RationalTime struct {
	Value int64    `json:"value"`
	Rate  Rational `json:"rate"`
}

// FromFrames builds a RationalTime from a frame count and rate.
func FromFrames(frames int64, rate Rational) RationalTime {
	return RationalTime{Value: frames, Rate: rate}
}

// Seconds converts to floating seconds for display.
func (t RationalTime) Seconds() float64 {
	if t.Rate.IsZero() {
		return 0
	}
	return float64(t.Value) * float64(t.Rate.Den) / float64(t.Rate.Num)
}

// SecondsRational returns the exact duration in seconds as a fraction.
func (t RationalTime) SecondsRational() Rational {
	return NewRational(t.Value*t.Rate.Den, t.Rate.Num)
}

// Rescale converts the time to another rate. The boolean reports whether the
// conversion landed on an integer frame boundary; when false the value is
// truncated toward zero and the caller should record a rate diagnostic.
func (t RationalTime) Rescale(rate Rational) (RationalTime, bool) {
	if rate.Equal(t.Rate) {
		return RationalTime{Value: t.Value, Rate: rate}, true
	}
	if t.Rate.IsZero() || rate.IsZero() {
		return RationalTime{Value: t.Value, Rate: rate}, false
	}
	num := t.Value * rate.Num * t.Rate.Den
	den := t.Rate.Num * rate.Den
	return RationalTime{Value: num / den, Rate: rate}, num%den == 0
}

// Add sums two times, rescaling o onto t's rate. Addition across rates that
// do not reconcile exactly truncates; mixed-rate callers rescale explicitly
// beforehand.
func (t RationalTime) Add(o RationalTime) RationalTime {
	if o.Rate.Equal(t.Rate) || o.Rate.IsZero() {
		return RationalTime{Value: t.Value + o.Value, Rate: t.Rate}
	}
	scaled, _ := o.Rescale(t.Rate)
	return RationalTime{Value: t.Value + scaled.Value, Rate: t.Rate}
}

// Sub subtracts o from t in t's rate.
func (t RationalTime) Sub(o RationalTime) RationalTime {
	if o.Rate.Equal(t.Rate) || o.Rate.IsZero() {
		return RationalTime{Value: t.Value - o.Value, Rate: t.Rate}
	}
	scaled, _ := o.Rescale(t.Rate)
	return RationalTime{Value: t.Value - scaled.Value, Rate: t.Rate}
}

// Cmp orders two times by their exact value in seconds.
func (t RationalTime) Cmp(o RationalTime) int {
	return t.SecondsRational().Cmp(o.SecondsRational())
}

func (t RationalTime) String() string {
	return fmt.Sprintf("%d@%s", t.Value, t.Rate)
}

// TimeRange is a half-open interval [Start, Start+Duration).
type TimeRange struct {
	Start    RationalTime `json:"start"`
	Duration RationalTime `json:"duration"`
}

// NewRange builds a range from start and duration frames at one rate.
func NewRange(start, duration int64, rate Rational) TimeRange {
	return TimeRange{
		Start:    FromFrames(start, rate),
		Duration: FromFrames(duration, rate),
	}
}

// End returns the exclusive end time.
func (r TimeRange) End() RationalTime {
	return r.Start.Add(r.Duration)
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t RationalTime) bool {
	return t.Cmp(r.Start) >= 0 && t.Cmp(r.End()) < 0
}

// Clamp intersects r with bounds, composing two trims into one. An empty
// intersection collapses to a zero-duration range at the bound edge.
func (r TimeRange) Clamp(bounds TimeRange) TimeRange {
	start := r.Start
	if start.Cmp(bounds.Start) < 0 {
		start = bounds.Start
	}
	end := r.End()
	if boundsEnd := bounds.End(); end.Cmp(boundsEnd) > 0 {
		end = boundsEnd
	}
	duration := end.Sub(start)
	if duration.Value < 0 {
		duration.Value = 0
	}
	scaled, _ := start.Rescale(r.Start.Rate)
	scaledDur, _ := duration.Rescale(r.Start.Rate)
	return TimeRange{Start: scaled, Duration: scaledDur}
}

// CumulativeStarts returns the start offset of each element in a sequence of
// lengths expressed in one edit rate.
func CumulativeStarts(lengths []int64, rate Rational) []RationalTime {
	starts := make([]RationalTime, len(lengths))
	var cursor int64
	for i, length := range lengths {
		starts[i] = FromFrames(cursor, rate)
		cursor += length
	}
	return starts
}
