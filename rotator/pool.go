package rotator

import (
	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/internal/logging"
)

// DefaultBuffers is the output ring length used when NewPool is given 0.
const DefaultBuffers = 2

// Pool is a fixed-capacity array of rotation sessions.
type Pool struct {
	dev     hal.Device
	alloc   buffer.Allocator
	buffers int

	sessions []*Session
	used     int
}

// NewPool returns a pool of capacity sessions, each with a ring of buffers
// output buffers. Sessions are created on first checkout.
func NewPool(dev hal.Device, alloc buffer.Allocator, capacity, buffers int) *Pool {
	if buffers <= 0 {
		buffers = DefaultBuffers
	}
	return &Pool{
		dev:      dev,
		alloc:    alloc,
		buffers:  buffers,
		sessions: make([]*Session, max(capacity, 0)),
	}
}

// Capacity returns the number of sessions the pool can hand out per frame.
func (p *Pool) Capacity() int { return len(p.sessions) }

// InUse returns the number of sessions checked out this frame.
func (p *Pool) InUse() int { return p.used }

// Free returns the number of sessions still available this frame.
func (p *Pool) Free() int { return len(p.sessions) - p.used }

// BeginFrame makes every session available again.
func (p *Pool) BeginFrame() { p.used = 0 }

// EndFrame closes the frame. Sessions are not released; use MarkUnusedTop
// or TrimUnused.
func (p *Pool) EndFrame() {}

// Checkout returns the next session, or nil when the pool is exhausted.
func (p *Pool) Checkout() *Session {
	if p.used >= len(p.sessions) {
		return nil
	}
	s := p.sessions[p.used]
	if s == nil {
		s = &Session{id: p.used, pool: p}
		p.sessions[p.used] = s
	}
	p.used++
	return s
}

// MarkUnusedTop returns the n most recently checked out sessions.
func (p *Pool) MarkUnusedTop(n int) {
	p.used -= min(max(n, 0), p.used)
}

// TrimUnused tears down sessions that were not checked out this frame.
func (p *Pool) TrimUnused() {
	for i := p.used; i < len(p.sessions); i++ {
		if s := p.sessions[i]; s != nil {
			logging.Logger().Debug("rotator: session trimmed", "session", i)
			s.close()
			p.sessions[i] = nil
		}
	}
}

// Clear tears down every session.
func (p *Pool) Clear() {
	for i, s := range p.sessions {
		if s != nil {
			s.close()
			p.sessions[i] = nil
		}
	}
	p.used = 0
}

// Live returns the number of sessions that currently exist.
func (p *Pool) Live() int {
	n := 0
	for _, s := range p.sessions {
		if s != nil {
			n++
		}
	}
	return n
}
