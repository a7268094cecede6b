package hwcomp

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/pipe"
	"github.com/gogpu/hwcomp/rotator"
)

// source is what a pipe fetches for one layer, after any rotation.
type source struct {
	whf  hal.Whf
	crop geom.Rect
	dst  geom.Rect
	t    geom.Transform

	yuv     bool
	split4k bool // two pipes with consecutive stages, single mixer
	wide    bool // two pipes sharing a stage under source split
}

// placement is one pipe's share of a source.
type placement struct {
	mixer hal.Mixer
	crop  geom.Rect
	dst   geom.Rect
	zOff  int
	flags hal.PipeFlags
}

// splitter cuts a source into per-pipe placements for one display topology.
type splitter func(c *Context, f *frame, src source) ([]placement, error)

var splitters = [...]splitter{
	splitNone:   placeNone,
	splitPanel:  placePanel,
	splitSource: placeSource,
}

// placeNone scissors the source to the ROI. Video wider than a pipe is cut
// in two halves with even crops on consecutive stages.
func placeNone(c *Context, f *frame, src source) ([]placement, error) {
	crop, dst := geom.CropForDest(src.crop, src.dst, f.roi, src.t)
	if crop.Empty() {
		return nil, errEmptyGeometry
	}
	if src.split4k {
		cl, dl, cr, dr := geom.Halve(crop, dst, src.t, true)
		if cl.Width() > c.caps.MaxPipeWidth || cr.Width() > c.caps.MaxPipeWidth {
			return nil, errPipeWidth
		}
		return []placement{
			{mixer: hal.MixerLeft, crop: cl, dst: dl},
			{mixer: hal.MixerLeft, crop: cr, dst: dr, zOff: 1},
		}, nil
	}
	if crop.Width() > c.caps.MaxPipeWidth {
		return nil, errPipeWidth
	}
	return []placement{{mixer: hal.MixerLeft, crop: crop, dst: dst}}, nil
}

// placePanel scissors the source to each mixer's half of the ROI. Right
// mixer destinations are relative to the split column. Video crops of a
// layer on both mixers meet at one even column.
func placePanel(c *Context, f *frame, src source) ([]placement, error) {
	lc, ld := geom.CropForDest(src.crop, src.dst, f.lroi, src.t)
	rc, rd := geom.CropForDest(src.crop, src.dst, f.rroi, src.t)
	if lc.Empty() && rc.Empty() {
		return nil, errEmptyGeometry
	}
	// A slice narrower than one source pixel rounds to an empty crop; it
	// still has to be fetched so the halves meet at the split.
	if d := src.dst.Intersect(f.lroi); lc.Empty() && !d.Empty() {
		lc, rc = seamCrop(src, rc, true)
		ld = d
	}
	if d := src.dst.Intersect(f.rroi); rc.Empty() && !d.Empty() {
		rc, lc = seamCrop(src, lc, false)
		rd = d
	}
	if (lc.Empty() && !ld.Empty()) || (rc.Empty() && !rd.Empty()) {
		return nil, errEmptyGeometry
	}
	both := !lc.Empty() && !rc.Empty()
	if both && src.yuv {
		if src.t&geom.FlipH != 0 {
			rc, lc = geom.JoinEven(rc, lc)
		} else {
			lc, rc = geom.JoinEven(lc, rc)
		}
		if lc.Empty() || rc.Empty() {
			return nil, errEmptyGeometry
		}
	}

	var dual hal.PipeFlags
	if both && c.caps.DualPipe {
		dual = hal.PipeDualPipe
	}
	out := make([]placement, 0, 2)
	if !lc.Empty() {
		if lc.Width() > c.caps.MaxPipeWidth {
			return nil, errPipeWidth
		}
		out = append(out, placement{mixer: hal.MixerLeft, crop: lc, dst: ld, flags: dual})
	}
	if !rc.Empty() {
		if rc.Width() > c.caps.MaxPipeWidth {
			return nil, errPipeWidth
		}
		out = append(out, placement{mixer: hal.MixerRight, crop: rc, dst: rd.Translate(-f.d.splitX, 0), flags: dual})
	}
	return out, nil
}

// seamCrop returns the source columns for a mixer whose crop rounded to
// empty, taken next to other at the seam, and other trimmed so the two do
// not overlap. left names the side being filled.
func seamCrop(src source, other geom.Rect, left bool) (geom.Rect, geom.Rect) {
	w := 1
	if src.yuv {
		w = 2
	}
	c := other
	// Without FlipH the left destination is fed by lower source columns.
	if left != (src.t&geom.FlipH != 0) {
		c.Left, c.Right = other.Left-w, other.Left
		if c.Left < src.crop.Left {
			c = c.Translate(src.crop.Left-c.Left, 0)
		}
		other.Left = max(other.Left, c.Right)
	} else {
		c.Left, c.Right = other.Right, other.Right+w
		if c.Right > src.crop.Right {
			c = c.Translate(src.crop.Right-c.Right, 0)
		}
		other.Right = min(other.Right, c.Left)
	}
	if other.Empty() {
		other = geom.Rect{}
	}
	return c, other
}

// placeSource feeds one mixer from two pipes at the same stage when the
// source is wider than a pipe.
func placeSource(c *Context, f *frame, src source) ([]placement, error) {
	crop, dst := geom.CropForDest(src.crop, src.dst, f.roi, src.t)
	if crop.Empty() {
		return nil, errEmptyGeometry
	}
	if !src.wide {
		if crop.Width() > c.caps.MaxPipeWidth {
			return nil, errPipeWidth
		}
		return []placement{{mixer: hal.MixerLeft, crop: crop, dst: dst}}, nil
	}
	cl, dl, cr, dr := geom.Halve(crop, dst, src.t, src.yuv)
	if cl.Width() > c.caps.MaxPipeWidth || cr.Width() > c.caps.MaxPipeWidth {
		return nil, errPipeWidth
	}
	return []placement{
		{mixer: hal.MixerLeft, crop: cl, dst: dl, flags: hal.PipeSourceSplit},
		{mixer: hal.MixerLeft, crop: cr, dst: dr, flags: hal.PipeSourceSplit},
	}, nil
}

// sourceSplits reports whether layer i needs two pipes on a source-split
// display.
func (c *Context) sourceSplits(f *frame, i int) bool {
	l := &f.list.Layers[i]
	return f.info[i].pipeW > c.caps.MaxPipeWidth || l.DisplayFrame.Intersect(f.roi).Width() > c.caps.MaxPipeWidth
}

// placements returns how many pipes layer i needs on each mixer.
func (c *Context) placements(f *frame, i int) (left, right int) {
	switch f.d.split {
	case splitPanel:
		dst := f.list.Layers[i].DisplayFrame
		if dst.Overlaps(f.lroi) {
			left = 1
		}
		if dst.Overlaps(f.rroi) {
			right = 1
		}
		return left, right
	case splitSource:
		if c.sourceSplits(f, i) {
			return 2, 0
		}
		return 1, 0
	default:
		if f.info[i].split4k {
			return 2, 0
		}
		return 1, 0
	}
}

func (c *Context) targetPlacements(f *frame) (left, right int) {
	switch f.d.split {
	case splitPanel:
		if !f.lroi.Empty() {
			left = 1
		}
		if !f.rroi.Empty() {
			right = 1
		}
		return left, right
	case splitSource:
		if f.roi.Width() > c.caps.MaxPipeWidth {
			return 2, 0
		}
	}
	return 1, 0
}

// demand counts what a plan needs from the registry and the rotation pool.
type demand struct {
	left, right     int
	vgLeft, vgRight int
	rotators        int
	stages          int
}

func (c *Context) demandOf(f *frame, p *plan) demand {
	var dm demand
	for i := range f.info {
		if !f.hw(p, i) {
			continue
		}
		l, r := c.placements(f, i)
		dm.left += l
		dm.right += r
		if f.info[i].yuv {
			dm.vgLeft += l
			dm.vgRight += r
		}
		if f.info[i].rotate {
			dm.rotators++
		}
	}
	_, fbZ, overlapZ, stages := f.zOrder(p)
	if fbZ >= 0 {
		l, r := c.targetPlacements(f)
		dm.left += l
		dm.right += r
	}
	if overlapZ >= 0 {
		dm.left++
	}
	dm.stages = stages
	return dm
}

// available is what the registry and the pool can still supply.
func (c *Context) available(f *frame) demand {
	id := f.d.id
	return demand{
		left:     c.pipes.Available(id, hal.MixerLeft),
		right:    c.pipes.Available(id, hal.MixerRight),
		vgLeft:   c.pipes.AvailableFor(pipe.RoleYUV, id, hal.MixerLeft),
		vgRight:  c.pipes.AvailableFor(pipe.RoleYUV, id, hal.MixerRight),
		rotators: c.rots.Free(),
		stages:   c.caps.MaxMixerStages,
	}
}

// fits is the resource precheck run before any pipe is touched.
func (c *Context) fits(f *frame, p *plan) bool {
	need, have := c.demandOf(f, p), c.available(f)
	return need.stages <= have.stages &&
		need.left <= have.left &&
		need.right <= have.right &&
		need.vgLeft <= have.vgLeft &&
		need.vgRight <= have.vgRight &&
		need.rotators <= have.rotators
}

// realize acquires, programs and commits everything plan p needs. Any
// failure before the commit releases the pass's pipe reservations and, in
// LIFO order, its rotation sessions.
func (c *Context) realize(f *frame, p *plan) (*Assignment, error) {
	if !c.fits(f, p) {
		return nil, fmt.Errorf("%w: %s exceeds free resources", errSkip, p.strategy)
	}
	layerZ, fbZ, overlapZ, _ := f.zOrder(p)
	a := c.newAssignment(f, p)
	sessions := make([]*rotator.Session, len(f.info))
	var order []pipe.ID
	rotUsed := 0
	abandon := func() {
		c.pipes.Release(f.d.id)
		c.rots.MarkUnusedTop(rotUsed)
	}

	for i := range f.info {
		if !f.hw(p, i) {
			continue
		}
		ids, sess, err := c.configureLayer(f, i, layerZ[i], &rotUsed)
		if err != nil {
			abandon()
			return nil, &layerError{index: i, err: err}
		}
		la := &a.Layers[i]
		la.Pipes, la.Z = ids, layerZ[i]
		if sess != nil {
			la.Rotator = sess.ID()
			sessions[i] = sess
		}
		order = append(order, ids...)
	}

	if fbZ >= 0 {
		ids, err := c.configureTarget(f, fbZ)
		if err != nil {
			abandon()
			return nil, fmt.Errorf("%w: framebuffer target: %w", errSkip, err)
		}
		a.FramebufferZ, a.TargetPipes = fbZ, ids
		order = append(order, ids...)
	}

	if overlapZ >= 0 {
		id, err := c.configureOverlap(f, p, overlapZ)
		if err != nil {
			abandon()
			return nil, fmt.Errorf("%w: overlap: %w", errSkip, err)
		}
		a.OverlapPipe, a.OverlapRegion = id, p.region
		for _, i := range p.overlap {
			a.Layers[i].Pipes = []pipe.ID{id}
			a.Layers[i].Z = overlapZ
		}
		order = append(order, id)
	}

	for k, id := range order {
		if err := c.pipes.Commit(id); err != nil {
			var ce *pipe.CommitError
			if errors.As(err, &ce) {
				c.rots.MarkUnusedTop(rotUsed)
				return nil, err
			}
			c.pipes.Uncommit(order[:k]...)
			abandon()
			return nil, fmt.Errorf("%w: %w", errSkip, err)
		}
	}
	f.d.sessions = sessions
	return a, nil
}

// configureLayer programs the rotator, if the layer needs one, and the
// pipes of layer i.
func (c *Context) configureLayer(f *frame, i, z int, rotUsed *int) ([]pipe.ID, *rotator.Session, error) {
	l := &f.list.Layers[i]
	info := f.info[i]
	src := source{
		whf:     whf(l.Buffer),
		crop:    l.SourceCrop,
		dst:     l.DisplayFrame,
		t:       l.Transform,
		yuv:     info.yuv,
		split4k: info.split4k,
	}
	if l.IsColorFill() {
		w, h := l.DisplayFrame.Width(), l.DisplayFrame.Height()
		src.whf = hal.Whf{Width: w, Height: h, Format: buffer.FormatRGBA8888}
		src.crop = geom.R(0, 0, w, h)
		src.t = geom.Identity
	}

	var sess *rotator.Session
	if info.rotate {
		sess = c.rots.Checkout()
		if sess == nil {
			return nil, nil, errRotatorExhausted
		}
		*rotUsed++
		err := sess.Configure(rotator.Config{
			Src:         src.whf,
			Crop:        l.SourceCrop,
			Transform:   l.Transform,
			Downscale:   info.downscale,
			Secure:      info.secure,
			Deinterlace: l.Buffer.Flags&buffer.FlagInterlaced != 0,
			Compressed:  c.caps.RotatorUBWC,
		})
		if err == nil {
			err = sess.Commit()
		}
		if err != nil {
			return nil, sess, err
		}
		src.whf = sess.Output()
		src.crop = sess.OutputCrop()
		src.t = geom.Identity
	}
	src.wide = f.d.split == splitSource && c.sourceSplits(f, i)

	places, err := splitters[f.d.split](c, f, src)
	if err != nil {
		return nil, sess, err
	}

	var flags hal.PipeFlags
	if info.secure {
		flags |= hal.PipeSecure
	}
	if l.Buffer != nil && l.Buffer.Flags&buffer.FlagInterlaced != 0 && !info.rotate {
		flags |= hal.PipeDeinterlace
	}
	if c.caps.BWC && info.yuv && !info.secure {
		flags |= hal.PipeBWC
	}
	if c.caps.MacroTile && !info.rotate && l.Buffer != nil && l.Buffer.Format.IsTiled() {
		flags |= hal.PipeMacroTile
	}
	if l.IsColorFill() {
		flags |= hal.PipeSolidFill
	}
	if info.decimate {
		flags |= hal.PipeDecimation
	}

	ids, err := c.program(f, info.role, places, hal.PipeConfig{
		Src:        src.whf,
		Z:          z,
		Blend:      l.Blend,
		PlaneAlpha: l.PlaneAlpha,
		Transform:  src.t,
		Color:      l.Color,
		Flags:      flags,
	})
	return ids, sess, err
}

// configureTarget places the framebuffer target over the ROI at stage z.
func (c *Context) configureTarget(f *frame, z int) ([]pipe.ID, error) {
	t := &f.list.Target
	d := f.d
	src := hal.Whf{
		Width:  d.attrs.Width,
		Height: d.attrs.Height,
		Format: d.attrs.Format,
		Size:   buffer.Size(d.attrs.Width, d.attrs.Height, d.attrs.Format),
	}
	if t.Buffer != nil {
		if t.Buffer.Format.TextureFormat() == gputypes.TextureFormatUndefined {
			return nil, fmt.Errorf("framebuffer target format %s is not renderable", t.Buffer.Format)
		}
		src = hal.WhfOf(t.Buffer)
	}
	places, err := splitters[d.split](c, f, source{
		whf:  src,
		crop: f.roi,
		dst:  f.roi,
		wide: d.split == splitSource && f.roi.Width() > c.caps.MaxPipeWidth,
	})
	if err != nil {
		return nil, err
	}
	blend := hal.BlendPremultiplied
	if z == 0 {
		blend = hal.BlendNone
	}
	return c.program(f, pipe.RoleFramebuffer, places, hal.PipeConfig{
		Src:        src,
		Z:          z,
		Blend:      blend,
		PlaneAlpha: 0xFF,
	})
}

// program acquires one pipe per placement and configures it from base.
// Under source split the lower pipe ID takes the left half.
func (c *Context) program(f *frame, role pipe.Role, places []placement, base hal.PipeConfig) ([]pipe.ID, error) {
	ids := make([]pipe.ID, 0, len(places))
	for _, pl := range places {
		id := c.pipes.AcquireFor(role, f.d.id, pl.mixer)
		if id == pipe.Invalid {
			return nil, fmt.Errorf("%w: %s on %s mixer", errPipeExhausted, role, pl.mixer)
		}
		ids = append(ids, id)
	}
	if f.d.split == splitSource && len(ids) == 2 && ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	for k, pl := range places {
		cfg := base
		cfg.Crop, cfg.Dst = pl.crop, pl.dst
		cfg.Z = base.Z + pl.zOff
		cfg.Flags |= pl.flags
		cfg.Foreground = cfg.Z == 0 && cfg.Blend.Opaque()
		if err := c.pipes.Configure(ids[k], cfg); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
