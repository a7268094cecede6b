package hwcomp

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/internal/logging"
	"github.com/gogpu/hwcomp/pipe"
	"github.com/gogpu/hwcomp/rotator"
)

// DisplayPrimary is the id of the built-in panel. Capabilities.SplitX only
// applies to it.
const DisplayPrimary = 0

// DisplayAttributes describe a connected display.
type DisplayAttributes struct {
	Width  int
	Height int

	// Format of the framebuffer target. Zero means RGBA8888.
	Format buffer.Format
}

type splitMode int

const (
	splitNone splitMode = iota
	splitPanel
	splitSource
)

func (m splitMode) String() string {
	switch m {
	case splitPanel:
		return "panel"
	case splitSource:
		return "source"
	default:
		return "none"
	}
}

// display is the per-display state that outlives a frame.
type display struct {
	id     int
	attrs  DisplayAttributes
	bounds geom.Rect
	split  splitMode
	splitX int

	blank   bool
	padding int

	// strategy rejected at commit in the previous frame
	skip Strategy

	prev      []layerKey
	hasPrev   bool
	prevCount int

	last     *Assignment
	sessions []*rotator.Session // per layer of the last assignment

	render    [2]*buffer.Descriptor
	renderIdx int
}

// Context is the per-device composition context. It owns the pipe registry
// and the rotation pool and runs strategy selection for every display.
//
// A Context is not safe for concurrent use. Callers hold one lock across
// ConfigBegin, Prepare for each display, ConfigDone and Set.
type Context struct {
	caps    Capabilities
	policy  Policy
	dev     hal.Device
	alloc   buffer.Allocator
	blitter hal.Blitter

	pipes *pipe.Registry
	rots  *rotator.Pool

	displays map[int]*display
	inFrame  bool
}

// NewContext brings up the allocator for a device.
func NewContext(caps Capabilities, dev hal.Device, alloc buffer.Allocator, opts ...Option) (*Context, error) {
	if err := caps.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.policy.Validate(); err != nil {
		return nil, err
	}

	var pp pipe.Policy
	if o.pipePolicy != nil {
		pp = *o.pipePolicy
	} else {
		var ok bool
		pp, ok = pipe.LookupPolicy(caps.Variant)
		if !ok {
			logging.Logger().Warn("hwcomp: unknown variant, using default pipe policy",
				"variant", caps.Variant, "policy", pp.Name)
		}
	}

	reg, err := pipe.NewRegistry(dev, pipe.Config{
		VG:          caps.VGPipes,
		RGB:         caps.RGBPipes,
		DMA:         caps.DMAPipes,
		MaxPerMixer: caps.MaxPipesPerMixer,
		Policy:      pp,
	})
	if err != nil {
		return nil, fmt.Errorf("hwcomp: %w", err)
	}

	return &Context{
		caps:     caps,
		policy:   o.policy,
		dev:      dev,
		alloc:    alloc,
		blitter:  o.blitter,
		pipes:    reg,
		rots:     rotator.NewPool(dev, alloc, caps.RotatorSessions, caps.RotatorBuffers),
		displays: make(map[int]*display),
	}, nil
}

// Capabilities returns the device snapshot.
func (c *Context) Capabilities() Capabilities { return c.caps }

// Policy returns the selector thresholds.
func (c *Context) Policy() Policy { return c.policy }

// Pipes returns the pipe registry.
func (c *Context) Pipes() *pipe.Registry { return c.pipes }

// Rotators returns the rotation pool.
func (c *Context) Rotators() *rotator.Pool { return c.rots }

// ConnectDisplay adds a display. The split topology is chosen here, once.
// Connecting a display while others are active starts padding rounds on all
// of them, because pipes are about to be redistributed.
func (c *Context) ConnectDisplay(id int, attrs DisplayAttributes) error {
	if _, ok := c.displays[id]; ok {
		return fmt.Errorf("%w: %d", ErrDisplayConnected, id)
	}
	if attrs.Width <= 0 || attrs.Height <= 0 {
		return &ConfigError{Field: "display", Reason: fmt.Sprintf("invalid size %dx%d", attrs.Width, attrs.Height)}
	}
	if attrs.Format == 0 {
		attrs.Format = buffer.FormatRGBA8888
	}
	if attrs.Format.TextureFormat() == gputypes.TextureFormatUndefined {
		return &ConfigError{Field: "display", Reason: fmt.Sprintf("framebuffer format %s is not renderable", attrs.Format)}
	}
	d := &display{
		id:     id,
		attrs:  attrs,
		bounds: geom.R(0, 0, attrs.Width, attrs.Height),
		skip:   strategyNone,
	}
	switch {
	case c.caps.SourceSplit:
		d.split = splitSource
	case id == DisplayPrimary && c.caps.SplitX > 0 && c.caps.SplitX < attrs.Width:
		d.split, d.splitX = splitPanel, c.caps.SplitX
	case attrs.Width > c.caps.MaxMixerWidth:
		d.split, d.splitX = splitPanel, attrs.Width/2
	}

	if len(c.displays) > 0 {
		for _, other := range c.displays {
			other.padding = c.policy.PaddingRounds
		}
		d.padding = c.policy.PaddingRounds
	}
	c.displays[id] = d
	logging.Logger().Info("hwcomp: display connected", "display", id,
		"width", attrs.Width, "height", attrs.Height, "split", d.split, "splitX", d.splitX)
	return nil
}

// DisconnectDisplay tears down everything the display holds.
func (c *Context) DisconnectDisplay(id int) error {
	d, ok := c.displays[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDisplay, id)
	}
	c.pipes.Reclaim(id)
	c.freeRender(d)
	delete(c.displays, id)
	for _, other := range c.displays {
		other.padding = c.policy.PaddingRounds
	}
	logging.Logger().Info("hwcomp: display disconnected", "display", id)
	return nil
}

// Blank turns a display off or back on. Both transitions release the
// display's pipes and clear the rotation pool.
func (c *Context) Blank(id int, blank bool) error {
	d, ok := c.displays[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDisplay, id)
	}
	if d.blank == blank {
		return nil
	}
	c.pipes.Reclaim(id)
	c.rots.Clear()
	d.blank = blank
	d.hasPrev = false
	d.last = nil
	logging.Logger().Info("hwcomp: display blank", "display", id, "blank", blank)
	return nil
}

// ConfigBegin opens a frame bracket for all displays.
func (c *Context) ConfigBegin() error {
	if c.inFrame {
		return ErrInFrame
	}
	c.pipes.BeginFrame()
	c.rots.BeginFrame()
	c.inFrame = true
	return nil
}

// ConfigDone closes the frame bracket. Pipes of prepared displays that were
// not committed are torn down, as are rotation sessions nobody checked out.
func (c *Context) ConfigDone() error {
	if !c.inFrame {
		return ErrNotInFrame
	}
	c.pipes.EndFrame()
	c.rots.EndFrame()
	c.rots.TrimUnused()
	c.inFrame = false
	return nil
}

// Reset tears down every pipe and rotation session and forgets all frame
// history. Displays stay connected.
func (c *Context) Reset() {
	c.pipes.Close()
	c.rots.Clear()
	for _, d := range c.displays {
		d.hasPrev = false
		d.last = nil
		d.sessions = nil
		d.skip = strategyNone
		c.freeRender(d)
	}
	c.inFrame = false
}

// Close releases all hardware and buffers held by the context.
func (c *Context) Close() error {
	c.Reset()
	var errs []error
	for id := range c.displays {
		if err := c.DisconnectDisplay(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Last returns the assignment of the previous Prepare for a display.
func (c *Context) Last(id int) *Assignment {
	if d, ok := c.displays[id]; ok {
		return d.last
	}
	return nil
}

func (c *Context) freeRender(d *display) {
	for i, b := range d.render {
		if b == nil {
			continue
		}
		if err := c.alloc.Free(b); err != nil {
			logging.Logger().Warn("hwcomp: free render buffer", "display", d.id, "err", err)
		}
		d.render[i] = nil
	}
}
