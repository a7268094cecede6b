package hwcomp

import (
	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/pipe"
)

// layerKey is what the cache compares between consecutive frames.
type layerKey struct {
	handle    uint64
	crop      geom.Rect
	dst       geom.Rect
	transform geom.Transform
	blend     hal.BlendMode
	alpha     uint8
	flags     LayerFlags
	color     uint32
}

func keyOf(l *Layer) layerKey {
	k := layerKey{
		crop:      l.SourceCrop,
		dst:       l.DisplayFrame,
		transform: l.Transform,
		blend:     l.Blend,
		alpha:     l.PlaneAlpha,
		flags:     l.Flags,
		color:     l.Color,
	}
	if l.Buffer != nil {
		k.handle = l.Buffer.ID
	}
	return k
}

// layerInfo is the per-frame classification of one layer.
type layerInfo struct {
	dropped  bool
	eligible bool
	changed  bool
	yuv      bool
	secure   bool
	role     pipe.Role

	rotate    bool
	downscale int // rotator pre-downscale, 1 for none
	decimate  bool
	split4k   bool

	// pipeW is the width of the buffer the pipe fetches, after rotation.
	pipeW int
}

// frame is the working state of one Prepare call.
type frame struct {
	d    *display
	list *LayerList
	info []layerInfo

	roi        geom.Rect
	lroi, rroi geom.Rect // panel split scissors in display coordinates
	cacheValid bool
	stats      ListStats
}

func (c *Context) newFrame(d *display, list *LayerList) *frame {
	f := &frame{
		d:    d,
		list: list,
		info: make([]layerInfo, len(list.Layers)),
	}
	f.cacheValid = d.hasPrev && len(d.prev) == len(list.Layers) && !list.GeometryChanged
	for i := range list.Layers {
		f.info[i].changed = !f.cacheValid || d.prev[i] != keyOf(&list.Layers[i])
	}
	f.setROI(c.roiFor(f))
	for i := range list.Layers {
		c.classify(f, i)
	}
	f.computeStats()
	return f
}

// roiFor returns the region to update: with partial update, the union of
// the layers that changed since the previous frame, else the whole display.
func (c *Context) roiFor(f *frame) geom.Rect {
	d := f.d
	if !c.caps.PartialUpdate || !f.cacheValid || d.padding > 0 {
		return d.bounds
	}
	var roi geom.Rect
	for i := range f.list.Layers {
		if f.info[i].changed {
			roi = roi.Union(f.list.Layers[i].DisplayFrame)
		}
	}
	roi = roi.Intersect(d.bounds)
	if roi.Empty() {
		return d.bounds
	}
	return roi
}

func (f *frame) setROI(roi geom.Rect) {
	f.roi = roi
	f.lroi, f.rroi = roi, geom.Rect{}
	if f.d.split == splitPanel {
		f.lroi, f.rroi = geom.SplitAt(roi, f.d.splitX)
	}
	for i := range f.list.Layers {
		l := &f.list.Layers[i]
		f.info[i].dropped = l.DisplayFrame.Valid() && !l.DisplayFrame.Overlaps(roi)
	}
}

// classify decides hardware eligibility and what a pipe needs for layer i.
// Ineligible layers always end up on the framebuffer.
func (c *Context) classify(f *frame, i int) {
	l := &f.list.Layers[i]
	info := &f.info[i]
	info.yuv = l.IsYUV()
	info.secure = l.IsSecure()
	info.downscale = 1
	info.eligible = false

	switch {
	case l.IsSkip():
		return
	case !l.DisplayFrame.Valid():
		return
	case l.IsColorFill():
		info.role = pipe.RoleRGB
		info.pipeW = l.DisplayFrame.Width()
		info.eligible = true
		return
	case l.Buffer == nil || !l.SourceCrop.Valid():
		return
	case !geom.R(0, 0, l.Buffer.Width, l.Buffer.Height).Contains(l.SourceCrop):
		return
	case info.yuv && c.caps.VGPipes == 0:
		return
	}

	caps := c.caps
	sw, sh := l.sourceSize()
	dw, dh := l.DisplayFrame.Width(), l.DisplayFrame.Height()
	down := max(geom.Ratio(sw, dw), geom.Ratio(sh, dh))
	up := max(geom.Ratio(dw, sw), geom.Ratio(dh, sh))
	if up > geom.Factor(caps.MaxUpscale) {
		return
	}
	if l.IsScaled() && l.Buffer.Format.HasAlpha() && !l.Blend.Opaque() && !caps.AlphaScaling {
		return
	}

	rotDown := 1
	if info.yuv && caps.RotatorMaxDownscale > 1 {
		for rotDown < caps.RotatorMaxDownscale && down > geom.Factor(caps.MaxDownscale*rotDown) {
			rotDown *= 2
		}
	}
	if down > geom.Factor(caps.MaxDownscale*rotDown) {
		if !caps.Decimation || down > geom.Factor(caps.MaxDownscale*rotDown*4) {
			return
		}
		info.decimate = true
	}
	info.downscale = rotDown
	info.rotate = l.Transform.Has90() || rotDown > 1 || (l.Buffer.Format.IsTiled() && !caps.MacroTile)
	if info.rotate && caps.RotatorSessions == 0 {
		return
	}

	info.pipeW = l.SourceCrop.Width()
	if info.rotate {
		info.pipeW = sw / rotDown
	}
	if f.d.split == splitNone && info.pipeW > caps.MaxPipeWidth {
		if !info.yuv {
			return
		}
		info.split4k = true
	}

	switch {
	case info.yuv:
		info.role = pipe.RoleYUV
	case l.IsScaled():
		info.role = pipe.RoleRGBScaled
	default:
		info.role = pipe.RoleRGB
	}
	info.eligible = true
}

func (f *frame) computeStats() {
	s := ListStats{
		NumAppLayers: len(f.list.Layers),
		ROI:          f.roi,
		LeftROI:      f.lroi,
		RightROI:     f.rroi,
	}
	for i := range f.list.Layers {
		l := &f.list.Layers[i]
		info := &f.info[i]
		if info.yuv {
			s.YUVCount++
			s.YUVIndices = append(s.YUVIndices, i)
		}
		if l.IsSkip() {
			s.SkipCount++
		}
		if info.secure {
			s.SecurePresent = true
		}
		if info.split4k {
			s.YUV4kCount++
		}
	}
	f.stats = s
}

// ineligible returns the number of visible layers that must be composed by
// the GPU.
func (f *frame) ineligible() int {
	n := 0
	for _, info := range f.info {
		if !info.dropped && !info.eligible {
			n++
		}
	}
	return n
}

// visible returns the indices of layers that are not dropped.
func (f *frame) visible() []int {
	out := make([]int, 0, len(f.info))
	for i, info := range f.info {
		if !info.dropped {
			out = append(out, i)
		}
	}
	return out
}

// pixels returns the visible area of layer i.
func (f *frame) pixels(i int) int {
	return f.list.Layers[i].DisplayFrame.Intersect(f.roi).Area()
}

// plan is a candidate split of the visible layers between pipes, the
// framebuffer and the overlap render buffer.
type plan struct {
	strategy Strategy
	fb       []bool
	cached   []bool
	overlap  []int
	region   geom.Rect
}

func (f *frame) newPlan(s Strategy) *plan {
	return &plan{
		strategy: s,
		fb:       make([]bool, len(f.info)),
		cached:   make([]bool, len(f.info)),
	}
}

func (p *plan) inOverlap(i int) bool {
	for _, j := range p.overlap {
		if j == i {
			return true
		}
	}
	return false
}

// hw reports whether layer i is fetched by its own pipe under p.
func (f *frame) hw(p *plan, i int) bool {
	return !f.info[i].dropped && !p.fb[i] && !p.inOverlap(i)
}

func (f *frame) fbCount(p *plan) int {
	n := 0
	for i := range f.info {
		if !f.info[i].dropped && p.fb[i] {
			n++
		}
	}
	return n
}

// fbSecure reports whether p puts protected content on the framebuffer.
func (f *frame) fbSecure(p *plan) bool {
	for i := range f.info {
		if !f.info[i].dropped && p.fb[i] && f.info[i].secure {
			return true
		}
	}
	return false
}

// fbContiguous reports whether the framebuffer layers of p form one run
// without a hardware layer in between.
func (f *frame) fbContiguous(p *plan) bool {
	first, last := -1, -1
	for i := range f.info {
		if !f.info[i].dropped && p.fb[i] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return true
	}
	for i := first; i <= last; i++ {
		if f.hw(p, i) || p.inOverlap(i) {
			return false
		}
	}
	return true
}

// zOrder assigns mixer stages bottom to top. The framebuffer takes the
// stage of its first layer when its batch is contiguous and the top stage
// otherwise; the overlap pipe is always on top. A GPU-only frame always has
// a framebuffer stage, even without visible layers.
func (f *frame) zOrder(p *plan) (layerZ []int, fbZ, overlapZ, stages int) {
	layerZ = make([]int, len(f.info))
	contiguous := f.fbContiguous(p)
	z := 0
	fbZ, overlapZ = -1, -1
	for i := range f.info {
		layerZ[i] = -1
		if f.info[i].dropped || p.inOverlap(i) {
			continue
		}
		if p.fb[i] {
			if contiguous && fbZ < 0 {
				fbZ = z
				z++
			}
			continue
		}
		layerZ[i] = z
		z++
		if f.info[i].split4k {
			z++
		}
	}
	if fbZ < 0 && (f.fbCount(p) > 0 || p.strategy == StrategyGPU) {
		fbZ = z
		z++
	}
	if len(p.overlap) > 0 {
		overlapZ = z
		z++
	}
	return layerZ, fbZ, overlapZ, z
}

// targetFormat returns the pixel format of the framebuffer target.
func (f *frame) targetFormat() buffer.Format {
	if b := f.list.Target.Buffer; b != nil {
		return b.Format
	}
	return f.d.attrs.Format
}

// whf returns the source geometry of a buffer.
func whf(b *buffer.Descriptor) hal.Whf {
	if b == nil {
		return hal.Whf{}
	}
	return hal.WhfOf(b)
}
