package transcribe

import (
	"fmt"
	"log/slog"
)

// DiagKind classifies a non-fatal compromise made during a conversion.
type DiagKind int

const (
	// Structural covers malformed or unsupported segment and effect shapes.
	Structural DiagKind = iota
	// Reference covers dangling or cyclic mob references.
	Reference
	// Rate covers edit rates that could not be reconciled exactly.
	Rate
)

func (k DiagKind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Reference:
		return "reference"
	default:
		return "rate"
	}
}

// Diagnostic records one recovered problem: what kind, where, and what the
// engine substituted.
type Diagnostic struct {
	Kind    DiagKind
	Subject string
	Message string
}

func (d Diagnostic) String() string {
	if d.Subject == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Subject, d.Message)
}

// recorder accumulates ordered diagnostics and, when tracing is on, mirrors
// per-segment decisions to the logger at debug level.
type recorder struct {
	diags  []Diagnostic
	logger *slog.Logger
	trace  bool
}

func newRecorder(logger *slog.Logger, trace bool) *recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &recorder{logger: logger, trace: trace}
}

func (r *recorder) add(kind DiagKind, subject, format string, args ...any) {
	diag := Diagnostic{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
	r.diags = append(r.diags, diag)
	r.logger.Warn("transcription compromise",
		"kind", kind.String(),
		"subject", subject,
		"detail", diag.Message)
}

func (r *recorder) structural(subject, format string, args ...any) {
	r.add(Structural, subject, format, args...)
}

func (r *recorder) reference(subject, format string, args ...any) {
	r.add(Reference, subject, format, args...)
}

func (r *recorder) rate(subject, format string, args ...any) {
	r.add(Rate, subject, format, args...)
}

func (r *recorder) step(format string, args ...any) {
	if !r.trace {
		return
	}
	r.logger.Debug(fmt.Sprintf(format, args...))
}
