// Package interchange models the editorial interchange format's object graph:
// mobs, slots, segments, effect groups, and markers, held in an arena indexed
// by stable mob identifier.
//
// The transcription engine treats this package as the container codec
// boundary. It only depends on the object model and on Load/Save; the on-disk
// encoding (a JSON envelope with a kind tag per segment) is a stand-in for
// the binary container, which is owned by external tooling. Dangling mob
// references are representable and tolerated: File.Mob simply returns nil and
// callers decide how to degrade.
//
// Graphs are read-only while a file is being transcribed into a timeline and
// write-only while one is being produced from a timeline; nothing in here is
// safe for concurrent mutation.
package interchange
