// Package noop implements hal.Device, buffer.Allocator and hal.Blitter in
// memory.
//
// Every call is recorded so tests can inspect what the engine programmed,
// and the Fail* hooks on Device inject configuration rejections. Nothing in
// this package touches real hardware.
package noop
