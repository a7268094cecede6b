package hwcomp

import (
	"fmt"

	"golang.org/x/image/math/fixed"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/pipe"
)

// ratio converts a policy fraction to the fixed-point scale geom.Ratio
// returns.
func ratio(v float64) fixed.Int52_12 {
	return fixed.Int52_12(v * (1 << 12))
}

// planOverlap is full hardware with overlap removal. When full hardware is
// short of a few pipes, the top-most small opaque RGB layers are blitted
// into a render buffer that a single pipe fetches.
func (c *Context) planOverlap(f *frame) *plan {
	if !c.policy.EnableOverlap || c.blitter == nil || f.d.split != splitNone {
		return nil
	}
	if f.stats.SkipCount > 0 || f.ineligible() > 0 || f.stats.NumAppLayers > c.policy.MaxAppLayers {
		return nil
	}

	full := f.newPlan(StrategyFullHWOverlap)
	need, have := c.demandOf(f, full), c.available(f)
	if need.vgLeft > have.vgLeft || need.rotators > have.rotators {
		return nil
	}
	deficit := max(need.left-have.left, need.stages-have.stages)
	if deficit < 1 || deficit+1 > c.policy.MaxOverlapLayers {
		return nil
	}

	vis := f.visible()
	k := deficit + 1
	var top []int
	for n := len(vis) - 1; n >= 0 && len(top) < k; n-- {
		i := vis[n]
		if !c.overlapCandidate(f, i) {
			break
		}
		top = append(top, i)
	}
	if len(top) < k || len(top) == len(vis) {
		return nil
	}

	var region geom.Rect
	for _, i := range top {
		region = region.Union(f.list.Layers[i].DisplayFrame)
	}
	region = region.Intersect(f.roi)
	if region.Empty() {
		return nil
	}
	below := false
	for _, i := range vis[:len(vis)-len(top)] {
		if f.list.Layers[i].DisplayFrame.Overlaps(region) {
			below = true
			break
		}
	}
	if !below || geom.Ratio(region.Area(), f.d.bounds.Area()) > ratio(c.policy.OverlapAreaRatio) {
		return nil
	}

	p := f.newPlan(StrategyFullHWOverlap)
	for n := len(top) - 1; n >= 0; n-- {
		p.overlap = append(p.overlap, top[n])
	}
	p.region = region
	return p
}

// overlapCandidate reports whether layer i can be blitted instead of
// fetched by its own pipe.
func (c *Context) overlapCandidate(f *frame, i int) bool {
	l := &f.list.Layers[i]
	info := f.info[i]
	return l.Buffer != nil && info.eligible && l.IsOpaque() && !info.yuv && !info.secure &&
		!l.IsScaled() && l.Transform.IsIdentity() && !l.IsColorFill() && !info.rotate
}

// renderBuffer returns the display's current overlap render buffer,
// allocating it on first use.
func (c *Context) renderBuffer(d *display) (*buffer.Descriptor, error) {
	if b := d.render[d.renderIdx]; b != nil {
		return b, nil
	}
	w, h := d.attrs.Width, d.attrs.Height
	b, err := c.alloc.Allocate(buffer.Request{
		Width:  w,
		Height: h,
		Format: buffer.FormatRGBA8888,
		Size:   buffer.Size(w, h, buffer.FormatRGBA8888),
	})
	if err != nil {
		return nil, fmt.Errorf("render buffer: %w", err)
	}
	d.render[d.renderIdx] = b
	return b, nil
}

// configureOverlap places the render buffer over the overlap region at
// stage z.
func (c *Context) configureOverlap(f *frame, p *plan, z int) (pipe.ID, error) {
	b, err := c.renderBuffer(f.d)
	if err != nil {
		return pipe.Invalid, err
	}
	ids, err := c.program(f, pipe.RoleRGB,
		[]placement{{mixer: hal.MixerLeft, crop: p.region, dst: p.region}},
		hal.PipeConfig{
			Src:        hal.WhfOf(b),
			Z:          z,
			Blend:      hal.BlendPremultiplied,
			PlaneAlpha: 0xFF,
		})
	if err != nil {
		return pipe.Invalid, err
	}
	return ids[0], nil
}

// blitOverlap composes the overlap layers into the current render buffer,
// queues it on the overlap pipe and flips to the other buffer.
func (c *Context) blitOverlap(d *display, a *Assignment, list *LayerList) error {
	b := d.render[d.renderIdx]
	if b == nil {
		return fmt.Errorf("display %d: overlap render buffer missing", d.id)
	}
	var srcs []hal.BlitSource
	var overlap []int
	for i := range list.Layers {
		if !a.Layers[i].Overlap {
			continue
		}
		l := &list.Layers[i]
		srcs = append(srcs, hal.BlitSource{
			Buffer:     l.Buffer,
			Crop:       l.SourceCrop,
			Dst:        l.DisplayFrame,
			Transform:  l.Transform,
			Blend:      l.Blend,
			PlaneAlpha: l.PlaneAlpha,
			Acquire:    l.AcquireFence,
		})
		overlap = append(overlap, i)
	}
	done, err := c.blitter.Blit(b, a.OverlapRegion, srcs)
	if err != nil {
		return fmt.Errorf("display %d: blit: %w", d.id, err)
	}
	for _, i := range overlap {
		list.Layers[i].ReleaseFence = done
	}
	if _, err := c.pipes.Queue(a.OverlapPipe, b, done); err != nil {
		return err
	}
	d.renderIdx ^= 1
	return nil
}
