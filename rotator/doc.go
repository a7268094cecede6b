// Package rotator manages the pool of hardware rotation sessions that
// pre-rotate and pre-downscale layer content before a pipe fetches it.
//
// Sessions live in a fixed-size array. Checkout hands them out in index
// order and MarkUnusedTop returns the most recent ones, so a composition pass
// that is abandoned and re-run gets the same sessions back in the same order.
// Each session owns a small ring of output buffers that is reallocated only
// when the output geometry changes.
package rotator
