package noop

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/hal"
)

// Device is a recording hal.Device.
//
// The Fail hooks are consulted on every matching call; a non-nil return
// value is reported to the caller as the hardware's rejection.
type Device struct {
	FailConfigure        func(id hal.PipeID, cfg hal.PipeConfig) error
	FailCommit           func(id hal.PipeID) error
	FailRotatorConfigure func(cfg hal.RotatorConfig) error
	FailRotatorCommit    func() error
	FailDisplayCommit    func(display int) error

	// ReleaseFence, when set, is returned from every Queue call instead of a
	// fresh signalled fence.
	ReleaseFence func() *Fence

	mu       sync.Mutex
	seq      uint64
	pipes    map[hal.PipeID]*Pipe
	rotators []*Rotator
	commits  map[int]int
	opened   int
	closed   int
}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{
		pipes:   make(map[hal.PipeID]*Pipe),
		commits: make(map[int]int),
	}
}

func (d *Device) fence() *Fence {
	if d.ReleaseFence != nil {
		return d.ReleaseFence()
	}
	d.seq++
	return &Fence{Seq: d.seq}
}

// OpenPipe opens pipe id on a display mixer. Opening a pipe that is already
// open is an error.
func (d *Device) OpenPipe(id hal.PipeID, display int, mixer hal.Mixer) (hal.Pipe, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipes[id]; ok {
		return nil, fmt.Errorf("noop: pipe %d already open", id)
	}
	p := &Pipe{dev: d, ID: id, Display: display, Mixer: mixer}
	d.pipes[id] = p
	d.opened++
	return p, nil
}

// OpenRotator opens a rotation session.
func (d *Device) OpenRotator() (hal.Rotator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := &Rotator{dev: d, ID: len(d.rotators)}
	d.rotators = append(d.rotators, r)
	return r, nil
}

// Commit records a mixer commit for display.
func (d *Device) Commit(display int) (hal.Fence, error) {
	if d.FailDisplayCommit != nil {
		if err := d.FailDisplayCommit(display); err != nil {
			return nil, err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commits[display]++
	return d.fence(), nil
}

// Pipe returns the open pipe id, or nil.
func (d *Device) Pipe(id hal.PipeID) *Pipe {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pipes[id]
}

// OpenPipes returns the ids of all open pipes in ascending order.
func (d *Device) OpenPipes() []hal.PipeID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]hal.PipeID, 0, len(d.pipes))
	for id := range d.pipes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Rotators returns every rotator ever opened, in open order.
func (d *Device) Rotators() []*Rotator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.rotators)
}

// OpenRotators returns the number of rotators not yet closed.
func (d *Device) OpenRotators() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.rotators {
		if !r.Closed {
			n++
		}
	}
	return n
}

// Commits returns how many mixer commits display received.
func (d *Device) Commits(display int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits[display]
}

// Counts returns the total number of pipe opens and closes.
func (d *Device) Counts() (opened, closed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened, d.closed
}

// Pipe is a recorded hal.Pipe.
type Pipe struct {
	dev *Device

	ID        hal.PipeID
	Display   int
	Mixer     hal.Mixer
	Config    hal.PipeConfig
	Committed bool
	Queued    []*buffer.Descriptor
	closed    bool
}

// Configure records cfg.
func (p *Pipe) Configure(cfg hal.PipeConfig) error {
	if p.closed {
		return fmt.Errorf("noop: pipe %d is closed", p.ID)
	}
	if p.dev.FailConfigure != nil {
		if err := p.dev.FailConfigure(p.ID, cfg); err != nil {
			return err
		}
	}
	if cfg.Flags&hal.PipeSolidFill == 0 && (cfg.Crop.Empty() || cfg.Dst.Empty()) {
		return fmt.Errorf("noop: pipe %d: %w", p.ID, hal.ErrInvalidConfig)
	}
	p.Config = cfg
	p.Committed = false
	return nil
}

// Commit marks the stored configuration as programmed.
func (p *Pipe) Commit() error {
	if p.closed {
		return fmt.Errorf("noop: pipe %d is closed", p.ID)
	}
	if p.dev.FailCommit != nil {
		if err := p.dev.FailCommit(p.ID); err != nil {
			return err
		}
	}
	p.Committed = true
	return nil
}

// Queue records buf and returns a release fence.
func (p *Pipe) Queue(buf *buffer.Descriptor, acquire hal.Fence) (hal.Fence, error) {
	if !p.Committed {
		return nil, fmt.Errorf("noop: pipe %d queued before commit", p.ID)
	}
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.Queued = append(p.Queued, buf)
	return p.dev.fence(), nil
}

// Close unbinds the pipe. Closing twice is a no-op.
func (p *Pipe) Close() error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	delete(p.dev.pipes, p.ID)
	p.dev.closed++
	return nil
}

// Rotator is a recorded hal.Rotator.
type Rotator struct {
	dev *Device

	ID        int
	Config    hal.RotatorConfig
	Commits   int
	Queued    int
	LastDst   *buffer.Descriptor
	Committed bool
	Closed    bool
}

// Configure records cfg.
func (r *Rotator) Configure(cfg hal.RotatorConfig) error {
	if r.dev.FailRotatorConfigure != nil {
		if err := r.dev.FailRotatorConfigure(cfg); err != nil {
			return err
		}
	}
	r.Config = cfg
	r.Committed = false
	return nil
}

// Commit marks the configuration as programmed.
func (r *Rotator) Commit() error {
	if r.dev.FailRotatorCommit != nil {
		if err := r.dev.FailRotatorCommit(); err != nil {
			return err
		}
	}
	r.Commits++
	r.Committed = true
	return nil
}

// Queue records a rotation of src into dst.
func (r *Rotator) Queue(src, dst *buffer.Descriptor, acquire hal.Fence) (hal.Fence, error) {
	if !r.Committed {
		return nil, fmt.Errorf("noop: rotator %d queued before commit", r.ID)
	}
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	r.Queued++
	r.LastDst = dst
	return r.dev.fence(), nil
}

// Close closes the session.
func (r *Rotator) Close() error {
	r.Closed = true
	return nil
}

var (
	_ hal.Device  = (*Device)(nil)
	_ hal.Pipe    = (*Pipe)(nil)
	_ hal.Rotator = (*Rotator)(nil)
)
