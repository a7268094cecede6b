package buffer

import (
	"errors"
	"fmt"
)

// Flags are the allocator usage bits carried by a buffer descriptor.
type Flags uint32

const (
	// FlagSecure marks content that may only be fetched by a secure pipe.
	FlagSecure Flags = 1 << iota

	// FlagTiled marks a macro-tiled memory layout.
	FlagTiled

	// FlagInterlaced marks interlaced video content.
	FlagInterlaced

	// FlagFramebuffer marks a buffer produced for the framebuffer target.
	FlagFramebuffer
)

// Descriptor is the read-only description of an allocated buffer.
type Descriptor struct {
	ID     uint64 // allocator handle, unique while the buffer is alive
	FD     int    // shared memory file descriptor
	Width  int
	Height int
	Format Format
	Size   int    // bytes
	Offset uint64 // base address offset within FD
	Flags  Flags
}

// IsSecure reports whether the buffer holds protected content.
func (d *Descriptor) IsSecure() bool { return d != nil && d.Flags&FlagSecure != 0 }

// IsYUV reports whether the buffer holds video content.
func (d *Descriptor) IsYUV() bool { return d != nil && d.Format.IsYUV() }

// String returns a short description for logs.
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("buf#%d %dx%d %s", d.ID, d.Width, d.Height, d.Format)
}

// Request describes a buffer to allocate.
type Request struct {
	Width  int
	Height int
	Format Format
	Size   int // 0 derives the size from Size(Width, Height, Format)
	Flags  Flags
}

// Allocator hands out buffers. It is an external collaborator.
type Allocator interface {
	Allocate(req Request) (*Descriptor, error)
	Free(d *Descriptor) error
}

// ErrInvalidRequest is returned for requests with non-positive dimensions.
var ErrInvalidRequest = errors.New("buffer: invalid allocation request")
