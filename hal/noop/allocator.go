package noop

import (
	"fmt"
	"sync"

	"github.com/gogpu/hwcomp/buffer"
)

// Allocator hands out descriptors backed by nothing.
type Allocator struct {
	// Fail, when set, rejects a request with the returned error.
	Fail func(req buffer.Request) error

	mu     sync.Mutex
	nextID uint64
	offset uint64
	live   map[uint64]*buffer.Descriptor
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{live: make(map[uint64]*buffer.Descriptor)}
}

// Allocate returns a new descriptor sized by buffer.Size unless req.Size is
// set.
func (a *Allocator) Allocate(req buffer.Request) (*buffer.Descriptor, error) {
	if req.Width <= 0 || req.Height <= 0 {
		return nil, buffer.ErrInvalidRequest
	}
	if a.Fail != nil {
		if err := a.Fail(req); err != nil {
			return nil, err
		}
	}
	size := req.Size
	if size == 0 {
		size = buffer.Size(req.Width, req.Height, req.Format)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	d := &buffer.Descriptor{
		ID:     a.nextID,
		FD:     int(a.nextID) + 100,
		Width:  req.Width,
		Height: req.Height,
		Format: req.Format,
		Size:   size,
		Offset: a.offset,
		Flags:  req.Flags,
	}
	a.offset += uint64(size)
	a.live[d.ID] = d
	return d, nil
}

// Free releases d. Freeing an unknown descriptor is an error.
func (a *Allocator) Free(d *buffer.Descriptor) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d == nil {
		return nil
	}
	if _, ok := a.live[d.ID]; !ok {
		return fmt.Errorf("noop: free of unknown buffer %d", d.ID)
	}
	delete(a.live, d.ID)
	return nil
}

// Live returns the number of allocated, not yet freed buffers.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

var _ buffer.Allocator = (*Allocator)(nil)
