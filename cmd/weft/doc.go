// Command weft converts editorial interchange containers to and from the
// timeline tree form, and inspects containers on disk.
package main
