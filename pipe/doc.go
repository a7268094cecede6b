// Package pipe owns the fixed set of hardware overlay pipes of a device.
//
// A Registry tracks, for every pipe, the display and mixer it is bound to and
// two per-frame bits: allocated (reserved by a composition pass) and used
// (committed to hardware). Pipes are handed out by class in a fixed ID order
// (VG, then RGB, then DMA) and the per-variant Policy tables decide which
// classes a layer role may fall back to.
//
// The Registry is not safe for concurrent use. Callers serialise the
// BeginFrame ... EndFrame bracket.
package pipe
