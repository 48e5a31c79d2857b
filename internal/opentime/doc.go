// Package opentime provides the rational-time arithmetic the transcription
// engine is built on.
//
// Durations inside one slot or track are integer frame counts denominated in
// an edit rate expressed as an exact fraction (24/1, 30000/1001). All
// conversions between rates go through rational arithmetic so integer frame
// boundaries never pick up floating-point drift mid-pipeline; floats only
// appear at the display edge via Seconds.
//
// The common-rate policy for mixed-rate content lives here too: CommonRate
// derives the finest grid both rates divide evenly, falling back to a caller
// supplied rate when the operands cannot be reconciled.
package opentime
