package noop

import (
	"time"

	"github.com/gogpu/hwcomp/hal"
)

// Fence is an in-memory fence. A stuck fence never signals.
type Fence struct {
	Seq   uint64
	stuck bool
}

// Wait returns nil for a signalled fence and hal.ErrTimeout for a stuck one.
func (f *Fence) Wait(timeout time.Duration) error {
	if f == nil || !f.stuck {
		return nil
	}
	return hal.ErrTimeout
}

// Stuck returns a fence that never signals.
func Stuck() *Fence { return &Fence{stuck: true} }

var _ hal.Fence = (*Fence)(nil)
