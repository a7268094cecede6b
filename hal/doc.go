// Package hal defines the lower hardware-configuration interface the
// composition engine drives: overlay pipes, rotation sessions, the mixer
// commit and the 2D blitter used for overlap removal.
//
// The engine never looks at wire formats. Every call is idempotent per frame
// and reports success or failure, optionally with a release fence. A nil
// Fence is always signalled.
//
// The noop sub-package provides an in-memory implementation that records
// every call and can inject failures; it backs the tests and cmd/mdpsim.
package hal
