package hwcomp

import (
	"errors"
	"fmt"

	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/internal/logging"
	"github.com/gogpu/hwcomp/pipe"
)

// planner proposes a plan for a strategy, or nil when it does not apply.
type planner func(c *Context, f *frame) *plan

// strategies in the order they are tried.
var strategies = []struct {
	strategy Strategy
	plan     planner
}{
	{StrategyFullHW, (*Context).planFullHW},
	{StrategyFullHWOverlap, (*Context).planOverlap},
	{StrategyCache, (*Context).planCache},
	{StrategyLoadBased, (*Context).planLoadBased},
	{StrategyVideoOnly, func(c *Context, f *frame) *plan { return c.planVideoOnly(f, false) }},
	{StrategyVideoOnlySecure, func(c *Context, f *frame) *plan { return c.planVideoOnly(f, true) }},
}

// Prepare decides the composition of one display's frame, programs the
// pipes and rotators it needs and tags every layer of list. It must be
// called between ConfigBegin and ConfigDone.
//
// Failures to place a layer never surface here: the layer, or in the worst
// case the whole frame, is composed by the GPU instead.
func (c *Context) Prepare(id int, list *LayerList) (*Assignment, error) {
	if !c.inFrame {
		return nil, ErrNotInFrame
	}
	if list == nil {
		return nil, ErrNilList
	}
	d, ok := c.displays[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDisplay, id)
	}
	list.Display = id
	for i := range list.Layers {
		l := &list.Layers[i]
		l.Composition = CompositionFramebuffer
		l.Hints = 0
		l.ReleaseFence = nil
	}
	c.pipes.BeginDisplay(id)

	skip := d.skip
	d.skip = strategyNone

	f := c.newFrame(d, list)
	var a *Assignment
	switch {
	case d.blank:
		a = c.blankAssignment(f)
	case len(list.Layers) == 0 && d.hasPrev && d.prevCount == 0:
		c.pipes.Reclaim(id)
		a = c.blankAssignment(f)
	case len(list.Layers) == 0:
		a = c.fallback(f, errNoLayers)
	default:
		a = c.selectStrategy(f, skip)
	}

	c.writeBack(f, a)
	if d.padding > 0 {
		d.padding--
	}
	d.prev = d.prev[:0]
	for i := range list.Layers {
		d.prev = append(d.prev, keyOf(&list.Layers[i]))
	}
	d.hasPrev = true
	d.prevCount = len(list.Layers)
	d.last = a
	return a, nil
}

// selectStrategy runs the strategies in order. A layer that cannot be
// placed is demoted to the framebuffer and selection starts over; a commit
// rejected by the hardware ends the frame with a full GPU fallback.
func (c *Context) selectStrategy(f *frame, skip Strategy) *Assignment {
	log := logging.Logger()
	for attempt := 0; attempt <= len(f.info); attempt++ {
		a, tried, err := c.tryStrategies(f, skip)
		if err == nil {
			log.Debug("hwcomp: strategy selected", "display", f.d.id, "strategy", a.Strategy,
				"overlay", a.Count(CompositionOverlay), "framebuffer", a.Count(CompositionFramebuffer),
				"dropped", a.Count(CompositionDropped))
			return a
		}

		var le *layerError
		var ce *pipe.CommitError
		switch {
		case errors.As(err, &le):
			log.Debug("hwcomp: layer demoted", "display", f.d.id, "layer", le.index, "err", le.err)
			f.info[le.index].eligible = false
		case errors.As(err, &ce):
			log.Warn("hwcomp: commit rejected, falling back to GPU", "display", f.d.id, "err", err)
			f.d.skip = tried
			return c.fallback(f, err)
		default:
			return c.fallback(f, err)
		}
	}
	return c.fallback(f, errNoStrategy)
}

// tryStrategies returns the first plan that could be realized, or the error
// of the strategy that ended the attempt.
func (c *Context) tryStrategies(f *frame, skip Strategy) (*Assignment, Strategy, error) {
	for _, s := range strategies {
		if s.strategy == skip {
			continue
		}
		if f.d.padding > 0 && s.strategy != StrategyFullHW {
			continue
		}
		p := s.plan(c, f)
		if p == nil {
			continue
		}
		a, err := c.realize(f, p)
		if errors.Is(err, errSkip) {
			logging.Logger().Debug("hwcomp: strategy rejected", "display", f.d.id, "strategy", s.strategy, "err", err)
			continue
		}
		return a, s.strategy, err
	}
	return nil, strategyNone, errNoStrategy
}

// fallback composes every visible layer with the GPU and puts the
// framebuffer target on a pipe. The ROI is reset to the full display.
func (c *Context) fallback(f *frame, reason error) *Assignment {
	c.pipes.Release(f.d.id)
	f.setROI(f.d.bounds)
	f.stats.ROI, f.stats.LeftROI, f.stats.RightROI = f.roi, f.lroi, f.rroi

	p := f.newPlan(StrategyGPU)
	for i := range f.info {
		p.fb[i] = !f.info[i].dropped
	}
	a, err := c.realize(f, p)
	if err != nil {
		logging.Logger().Warn("hwcomp: framebuffer target could not be placed",
			"display", f.d.id, "err", err)
		c.pipes.Release(f.d.id)
		a = c.newAssignment(f, p)
	}
	a.Reason = fmt.Errorf("%w: %w", ErrFallbackToGPU, reason)
	if !errors.Is(reason, errNoLayers) {
		logging.Logger().Warn("hwcomp: falling back to GPU composition", "display", f.d.id, "reason", reason)
	}
	return a
}

// blankAssignment composes nothing; every layer is dropped.
func (c *Context) blankAssignment(f *frame) *Assignment {
	p := f.newPlan(StrategyGPU)
	a := c.newAssignment(f, p)
	for i := range a.Layers {
		a.Layers[i].Composition = CompositionDropped
	}
	a.Reason = fmt.Errorf("%w: %w", ErrFallbackToGPU, errNoLayers)
	return a
}

func (c *Context) newAssignment(f *frame, p *plan) *Assignment {
	a := &Assignment{
		Display:      f.d.id,
		Strategy:     p.strategy,
		Layers:       make([]LayerAssignment, len(f.info)),
		FramebufferZ: -1,
		OverlapPipe:  pipe.Invalid,
		TargetFormat: f.targetFormat().TextureFormat(),
		ROI:          f.roi,
		Stats:        f.stats,
	}
	for i := range a.Layers {
		la := &a.Layers[i]
		la.Z, la.Rotator = -1, -1
		switch {
		case f.info[i].dropped:
			la.Composition = CompositionDropped
		case p.fb[i]:
			la.Composition = CompositionFramebuffer
			la.Cached = p.cached[i]
			la.GPUBlend = f.list.Layers[i].Blend.BlendState()
		default:
			la.Composition = CompositionOverlay
			la.Overlap = p.inOverlap(i)
		}
	}
	return a
}

func (c *Context) writeBack(f *frame, a *Assignment) {
	for i := range f.list.Layers {
		l := &f.list.Layers[i]
		l.Composition = a.Layers[i].Composition
		if (a.Strategy == StrategyVideoOnly || a.Strategy == StrategyVideoOnlySecure) &&
			l.Composition == CompositionOverlay && a.Layers[i].Z < a.FramebufferZ {
			l.Hints |= HintClearFB
		}
	}
}

func (c *Context) planFullHW(f *frame) *plan {
	if f.stats.SkipCount > 0 || f.ineligible() > 0 || f.stats.NumAppLayers > c.policy.MaxAppLayers {
		return nil
	}
	return f.newPlan(StrategyFullHW)
}

// planCache keeps unchanged layers on the framebuffer. Layers that must be
// GPU composed pull everything between them into one contiguous batch;
// otherwise the batch is the largest run of unchanged layers.
func (c *Context) planCache(f *frame) *plan {
	if !c.policy.EnableCache || !f.cacheValid {
		return nil
	}
	vis := f.visible()
	cached := make([]bool, len(f.info))
	lo, hi := -1, -1
	anyCached := false
	for _, i := range vis {
		info := f.info[i]
		if !info.eligible {
			if lo < 0 {
				lo = i
			}
			hi = i
			continue
		}
		// Video changes every frame and is always worth a pipe.
		cached[i] = !info.changed && !info.yuv
		anyCached = anyCached || cached[i]
	}
	if lo < 0 {
		if !anyCached {
			return nil
		}
		lo, hi = largestRun(vis, cached)
	}

	p := f.newPlan(StrategyCache)
	for _, i := range vis {
		if i >= lo && i <= hi {
			p.fb[i] = true
			p.cached[i] = cached[i]
		}
	}
	if f.fbSecure(p) {
		return nil
	}
	return p
}

// largestRun returns the first and last index of the longest run of set
// flags over the visible layers.
func largestRun(vis []int, set []bool) (lo, hi int) {
	lo, hi = -1, -1
	best, run, start := 0, 0, -1
	for _, i := range vis {
		if !set[i] {
			run = 0
			continue
		}
		if run == 0 {
			start = i
		}
		run++
		if run > best {
			best, lo, hi = run, start, i
		}
	}
	return lo, hi
}

// planLoadBased gives pipes to the lowest eligible layers and puts the rest
// on the framebuffer. The batch shrinks until it fits the free pipes, but
// never below the minimum share of pixels on hardware.
func (c *Context) planLoadBased(f *frame) *plan {
	if !c.policy.EnableLoadBased {
		return nil
	}
	vis := f.visible()
	maxHW := 0
	for _, i := range vis {
		if !f.info[i].eligible {
			break
		}
		maxHW++
	}
	if maxHW == len(vis) {
		maxHW--
	}
	total := 0
	for _, i := range vis {
		total += f.pixels(i)
	}
	minRatio := ratio(c.policy.LoadBasedMinHWPixelRatio)

	for k := maxHW; k >= 1; k-- {
		p := f.newPlan(StrategyLoadBased)
		hwPixels := 0
		for n, i := range vis {
			if n < k {
				hwPixels += f.pixels(i)
			} else {
				p.fb[i] = true
			}
		}
		if f.fbSecure(p) || geom.Ratio(hwPixels, total) < minRatio {
			return nil
		}
		if c.fits(f, p) {
			return p
		}
	}
	return nil
}

// planVideoOnly puts video layers on pipes and everything else on the
// framebuffer.
func (c *Context) planVideoOnly(f *frame, secureOnly bool) *plan {
	if !c.policy.EnableVideoOnly || f.stats.YUVCount == 0 {
		return nil
	}
	s := StrategyVideoOnly
	if secureOnly {
		s = StrategyVideoOnlySecure
	}
	p := f.newPlan(s)
	hw := 0
	for _, i := range f.visible() {
		info := f.info[i]
		if info.yuv && info.eligible && (!secureOnly || info.secure) {
			hw++
			continue
		}
		p.fb[i] = true
	}
	if hw == 0 || f.fbSecure(p) {
		return nil
	}
	return p
}
