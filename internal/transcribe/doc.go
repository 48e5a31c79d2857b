// Package transcribe converts between the interchange mob graph and the host
// timeline tree, in both directions.
//
// The read path resolves each source clip's mob reference chain down to
// essence, bakes speed effects, rewrites transition overlaps into trimmed
// neighbors, and optionally simplifies the structural nesting the graph form
// forces. The write path is the inverse: it rebuilds composition, master, and
// source mobs with fresh identifiers and splices transition overlaps back
// into neighboring segment lengths.
//
// The engine is single-threaded and stateless between runs: the resolver
// memo and the nested-composition guard live for one conversion only, so
// concurrent conversions need independent calls, nothing more. Non-fatal
// compromises never surface as errors; they are collected in order as
// Diagnostics so batch tooling can audit every substitution a conversion
// made. Only container-level I/O failures abort a run.
package transcribe
