package transcribe

import (
	"sort"

	"weft/internal/interchange"
	"weft/internal/opentime"
)

// speedResult is what baking a time-warp operation group yields. A scale with
// a zero denominator means the clip plays unscaled; a baked map takes
// precedence over the scale when present.
type speedResult struct {
	scale   opentime.Rational
	timeMap []int64
}

func unscaled() speedResult {
	return speedResult{}
}

// isTimeWarp reports whether the operation group is a speed effect the baker
// understands.
func isTimeWarp(op *interchange.OperationGroup) bool {
	return op.Op.IsTimeWarp && op.Op.Name == interchange.OpMotionControl
}

// bakeSpeed turns a time-warp operation group into either a rational time
// scale or, for keyframed curves with baking enabled, a per-output-frame
// source offset map. Unsupported shapes degrade to unscaled playback with a
// diagnostic, never an error.
func bakeSpeed(op *interchange.OperationGroup, opts Options, rec *recorder, subject string) speedResult {
	if offsetMap := op.Parameter(interchange.ParamSpeedOffsetMap); offsetMap != nil && offsetMap.Varying() {
		return bakeOffsetMap(op, offsetMap, opts, rec, subject)
	}
	if ratio := op.Parameter(interchange.ParamSpeedRatio); ratio != nil && !ratio.Varying() {
		// The ratio parameter stores output frames per source frame, the
		// reciprocal of the time scale.
		if ratio.Value.IsZero() {
			rec.structural(subject, "speed ratio parameter is zero")
			return unscaled()
		}
		return speedResult{scale: ratio.Value.Inv()}
	}
	rec.structural(subject, "time warp %q carries no recognized speed parameter", op.Op.Name)
	return unscaled()
}

// bakeOffsetMap handles the keyframed offset-map curve. A two-point linear
// curve anchored at the origin is the common constant-speed shape and
// collapses to its slope. Anything else is keyframed and only representable
// as a baked per-frame map.
func bakeOffsetMap(op *interchange.OperationGroup, param *interchange.Parameter, opts Options, rec *recorder, subject string) speedResult {
	points := orderedPoints(param.Points)

	if len(points) == 2 && param.Interp == interchange.LinearInterp &&
		points[0].Time.IsZero() && points[0].Value.IsZero() && !points[1].Time.IsZero() {
		// Slope of the origin-anchored line is the constant time scale. A
		// flat line is a freeze frame and keeps scale zero.
		return speedResult{scale: points[1].Value.Div(points[1].Time)}
	}

	if !opts.BakeKeyframedProperties {
		rec.structural(subject, "keyframed speed curve with %d points dropped; baking disabled", len(points))
		return unscaled()
	}
	if len(points) == 0 || op.Len <= 0 {
		rec.structural(subject, "keyframed speed curve cannot be sampled")
		return unscaled()
	}

	timeMap := make([]int64, op.Len)
	for frame := int64(0); frame < op.Len; frame++ {
		value := sampleCurve(points, opentime.FromInt(frame), param.Interp)
		if value.Den != 0 {
			timeMap[frame] = value.Num / value.Den
		}
	}
	return speedResult{timeMap: timeMap}
}

func orderedPoints(points []interchange.ControlPoint) []interchange.ControlPoint {
	ordered := make([]interchange.ControlPoint, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Cmp(ordered[j].Time) < 0
	})
	return ordered
}

// sampleCurve evaluates the curve at t. Values hold flat outside the keyed
// range; between keys, constant interpolation steps while every other kind is
// approximated linearly.
func sampleCurve(points []interchange.ControlPoint, t opentime.Rational, interp interchange.Interpolation) opentime.Rational {
	if t.Cmp(points[0].Time) <= 0 {
		return points[0].Value
	}
	last := points[len(points)-1]
	if t.Cmp(last.Time) >= 0 {
		return last.Value
	}
	for i := 0; i < len(points)-1; i++ {
		left, right := points[i], points[i+1]
		if t.Cmp(right.Time) >= 0 {
			continue
		}
		if interp == interchange.ConstantInterp {
			return left.Value
		}
		span := right.Time.Sub(left.Time)
		if span.IsZero() {
			return left.Value
		}
		frac := t.Sub(left.Time).Div(span)
		return left.Value.Add(right.Value.Sub(left.Value).Mul(frac))
	}
	return last.Value
}
