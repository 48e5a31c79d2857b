package transcribe

import (
	"log/slog"

	"weft/internal/opentime"
)

// Options controls a conversion run in either direction. The zero value is
// not useful; start from DefaultOptions and flip what the caller asked for.
type Options struct {
	// Simplify collapses redundant single-child nesting after transcription.
	Simplify bool
	// TranscribeLog traces per-segment decisions at debug level. It has no
	// behavioral effect on the output.
	TranscribeLog bool
	// AttachMarkers re-homes slot markers onto the item containing their
	// position. When false markers stay at track scope.
	AttachMarkers bool
	// BakeKeyframedProperties enables the per-frame fallback for keyframed
	// speed curves. Off by default because it materializes one map entry per
	// output frame.
	BakeKeyframedProperties bool
	// FallbackRate is the rate used when two edit rates cannot be reconciled
	// exactly.
	FallbackRate opentime.Rational
	// Logger receives warnings and, with TranscribeLog, the decision trace.
	Logger *slog.Logger
}

// DefaultOptions enables simplification and leaves everything else opt-in.
func DefaultOptions() Options {
	return Options{
		Simplify:     true,
		FallbackRate: opentime.NewRational(24, 1),
	}
}

func (o Options) normalized() Options {
	if o.FallbackRate.IsZero() {
		o.FallbackRate = opentime.NewRational(24, 1)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
