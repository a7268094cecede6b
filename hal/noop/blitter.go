package noop

import (
	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
)

// BlitCall is one recorded Blit.
type BlitCall struct {
	Dst    *buffer.Descriptor
	Region geom.Rect
	Srcs   []hal.BlitSource
}

// Blitter records blits.
type Blitter struct {
	Fail  func(region geom.Rect) error
	Calls []BlitCall
}

// Blit records the call and returns a signalled fence.
func (b *Blitter) Blit(dst *buffer.Descriptor, region geom.Rect, srcs []hal.BlitSource) (hal.Fence, error) {
	if b.Fail != nil {
		if err := b.Fail(region); err != nil {
			return nil, err
		}
	}
	b.Calls = append(b.Calls, BlitCall{Dst: dst, Region: region, Srcs: append([]hal.BlitSource(nil), srcs...)})
	return &Fence{}, nil
}

var _ hal.Blitter = (*Blitter)(nil)
