// Package timeline holds the application-neutral timeline tree: a Timeline
// of Tracks, each an ordered run of Clips, Gaps, Transitions, and nested
// Stacks, with Markers on items and tracks.
//
// Items on a track are contiguous and non-overlapping; a Transition is the
// one exception, logically overlapping its neighbors by the in/out offsets
// carved out of their ranges, so it contributes no width of its own to the
// track. All durations within one track share a single rational rate.
//
// The package also provides a plain JSON encoding of the tree for the CLI
// surface. It deliberately knows nothing about the interchange graph; the
// transcription engine is the only bridge between the two models.
package timeline
