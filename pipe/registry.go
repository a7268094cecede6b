package pipe

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/internal/logging"
)

// Config sizes a Registry from the device capabilities.
type Config struct {
	VG  int
	RGB int
	DMA int

	// MaxPerMixer caps the pipes allocated to one mixer in a frame.
	// Zero means no cap beyond the pipe count.
	MaxPerMixer int

	Policy Policy
}

type slot struct {
	id      ID
	class   Class
	display int
	mixer   hal.Mixer
	pipe    hal.Pipe
	cfg     hal.PipeConfig
}

// State is a read-only view of one pipe.
type State struct {
	ID        ID
	Class     Class
	Display   int // -1 when unbound
	Mixer     hal.Mixer
	Open      bool
	Allocated bool
	Used      bool
	Config    hal.PipeConfig
}

// Registry hands out pipes and tracks their per-frame state.
type Registry struct {
	dev         hal.Device
	policy      Policy
	maxPerMixer int

	slots     []slot
	allocated bitmap
	used      bitmap

	// displays configured since BeginFrame
	active map[int]bool
}

// NewRegistry creates the pipe table in fixed ID order: VG pipes first, then
// RGB, then DMA. No hardware is touched until a pipe is acquired.
func NewRegistry(dev hal.Device, cfg Config) (*Registry, error) {
	n := cfg.VG + cfg.RGB + cfg.DMA
	if n <= 0 || cfg.VG < 0 || cfg.RGB < 0 || cfg.DMA < 0 {
		return nil, ErrNoPipes
	}
	r := &Registry{
		dev:         dev,
		policy:      cfg.Policy,
		maxPerMixer: cfg.MaxPerMixer,
		slots:       make([]slot, 0, n),
		allocated:   newBitmap(n),
		used:        newBitmap(n),
		active:      make(map[int]bool),
	}
	if r.maxPerMixer <= 0 {
		r.maxPerMixer = n
	}
	for _, g := range []struct {
		class Class
		count int
	}{{ClassVG, cfg.VG}, {ClassRGB, cfg.RGB}, {ClassDMA, cfg.DMA}} {
		for range g.count {
			r.slots = append(r.slots, slot{id: ID(len(r.slots)), class: g.class, display: noDisplay})
		}
	}
	return r, nil
}

// Policy returns the class fallback table in use.
func (r *Registry) Policy() Policy { return r.policy }

// Len returns the number of pipes.
func (r *Registry) Len() int { return len(r.slots) }

// MaxPerMixer returns the per-mixer allocation cap.
func (r *Registry) MaxPerMixer() int { return r.maxPerMixer }

// BeginFrame clears the allocated and used bits of every pipe. Affinity and
// open hardware bindings are kept.
func (r *Registry) BeginFrame() {
	r.allocated.reset()
	r.used.reset()
	clear(r.active)
}

// BeginDisplay records that display is configured in this frame. Its pipes
// that end the frame unused are torn down by EndFrame.
func (r *Registry) BeginDisplay(display int) {
	r.active[display] = true
}

// EndFrame tears down every pipe that was not used this frame and whose
// display was configured in this frame. Pipes of displays not configured
// stay in session.
func (r *Registry) EndFrame() {
	for i := range r.slots {
		s := &r.slots[i]
		if s.display == noDisplay || r.used.has(i) || !r.active[s.display] {
			continue
		}
		r.teardown(i)
	}
}

// Reclaim tears down every pipe bound to display.
func (r *Registry) Reclaim(display int) {
	for i := range r.slots {
		if r.slots[i].display == display {
			r.teardown(i)
		}
	}
}

// Close tears down every pipe.
func (r *Registry) Close() {
	for i := range r.slots {
		if r.slots[i].display != noDisplay || r.slots[i].pipe != nil {
			r.teardown(i)
		}
	}
}

func (r *Registry) teardown(i int) {
	s := &r.slots[i]
	if s.pipe != nil {
		if err := s.pipe.Close(); err != nil {
			logging.Logger().Warn("pipe: close failed", "pipe", s.id, "err", err)
		}
		s.pipe = nil
	}
	if s.display != noDisplay {
		logging.Logger().Debug("pipe: unbound", "pipe", s.id, "display", s.display, "mixer", s.mixer)
	}
	s.display = noDisplay
	s.mixer = hal.MixerLeft
	s.cfg = hal.PipeConfig{}
	r.allocated.unset(i)
	r.used.unset(i)
}

// Acquire reserves the first pipe, in ID order, of the given class (or any
// class) whose affinity is unset or equal to display/mixer. It returns
// Invalid when the class is exhausted or the mixer is at its cap.
func (r *Registry) Acquire(class Class, display int, mixer hal.Mixer) ID {
	if r.countMixer(display, mixer) >= r.maxPerMixer {
		return Invalid
	}
	for i := range r.slots {
		if !r.free(i, class, display, mixer) {
			continue
		}
		s := &r.slots[i]
		if s.pipe == nil {
			p, err := r.dev.OpenPipe(s.id, display, mixer)
			if err != nil {
				logging.Logger().Warn("pipe: open failed", "pipe", s.id, "err", err)
				continue
			}
			s.pipe = p
			s.display = display
			s.mixer = mixer
			logging.Logger().Debug("pipe: bound", "pipe", s.id, "class", s.class, "display", display, "mixer", mixer)
		}
		r.allocated.set(i)
		return s.id
	}
	return Invalid
}

// AcquireFor walks the policy chain for role and returns the first pipe
// acquired, or Invalid when every class in the chain is exhausted.
func (r *Registry) AcquireFor(role Role, display int, mixer hal.Mixer) ID {
	for _, c := range r.policy.Chain(role) {
		if id := r.Acquire(c, display, mixer); id != Invalid {
			return id
		}
	}
	return Invalid
}

func (r *Registry) free(i int, class Class, display int, mixer hal.Mixer) bool {
	s := &r.slots[i]
	if class != ClassAny && s.class != class {
		return false
	}
	if r.allocated.has(i) {
		return false
	}
	return s.display == noDisplay || (s.display == display && s.mixer == mixer)
}

func (r *Registry) countMixer(display int, mixer hal.Mixer) int {
	n := 0
	for i := range r.slots {
		s := &r.slots[i]
		if r.allocated.has(i) && s.display == display && s.mixer == mixer {
			n++
		}
	}
	return n
}

// Available returns how many more pipes of any class display/mixer can
// acquire this frame.
func (r *Registry) Available(display int, mixer hal.Mixer) int {
	return r.AvailableClass(ClassAny, display, mixer)
}

// AvailableClass is Available restricted to one class.
func (r *Registry) AvailableClass(class Class, display int, mixer hal.Mixer) int {
	n := 0
	for i := range r.slots {
		if r.free(i, class, display, mixer) {
			n++
		}
	}
	return min(n, r.maxPerMixer-r.countMixer(display, mixer))
}

// AvailableFor returns how many more pipes the policy chain of role can
// supply to display/mixer this frame.
func (r *Registry) AvailableFor(role Role, display int, mixer hal.Mixer) int {
	n := 0
	for i := range r.slots {
		if r.policy.Allows(role, r.slots[i].class) && r.free(i, ClassAny, display, mixer) {
			n++
		}
	}
	return min(n, r.maxPerMixer-r.countMixer(display, mixer))
}

// Release clears the allocated bit of every pipe of display that was not
// committed this frame. It is used when a composition pass is abandoned.
func (r *Registry) Release(display int) {
	for i := range r.slots {
		if r.slots[i].display == display && !r.used.has(i) {
			r.allocated.unset(i)
		}
	}
}

// Uncommit clears the used and allocated bits of ids, undoing their commits
// in this frame. Hardware bindings are kept until EndFrame.
func (r *Registry) Uncommit(ids ...ID) {
	for _, id := range ids {
		if i := int(id); i >= 0 && i < len(r.slots) {
			r.used.unset(i)
			r.allocated.unset(i)
		}
	}
}

func (r *Registry) slot(id ID) (*slot, int, error) {
	i := int(id)
	if i < 0 || i >= len(r.slots) {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidPipe, id)
	}
	return &r.slots[i], i, nil
}

// Configure validates cfg against the pipe and stores it. Display and Mixer
// are taken from the pipe's binding.
func (r *Registry) Configure(id ID, cfg hal.PipeConfig) error {
	s, i, err := r.slot(id)
	if err != nil {
		return err
	}
	if !r.allocated.has(i) {
		return fmt.Errorf("%w: %d", ErrNotAllocated, id)
	}
	cfg.Display = s.display
	cfg.Mixer = s.mixer
	if err := s.pipe.Configure(cfg); err != nil {
		return fmt.Errorf("pipe %d: configure: %w", id, err)
	}
	s.cfg = cfg
	return nil
}

// Commit pushes the stored configuration to hardware and marks the pipe
// used. On failure every pipe of the same display is torn down, because the
// mixer is left in an unknown state, and a *CommitError is returned.
func (r *Registry) Commit(id ID) error {
	s, i, err := r.slot(id)
	if err != nil {
		return err
	}
	if !r.allocated.has(i) {
		return fmt.Errorf("%w: %d", ErrNotAllocated, id)
	}
	if err := s.pipe.Commit(); err != nil {
		display := s.display
		logging.Logger().Warn("pipe: commit rejected, rolling back display",
			"pipe", id, "display", display, "err", err)
		r.Reclaim(display)
		return &CommitError{ID: id, Display: display, Err: err}
	}
	r.used.set(i)
	return nil
}

// Queue hands buf to a pipe committed this frame and returns its release
// fence.
func (r *Registry) Queue(id ID, buf *buffer.Descriptor, acquire hal.Fence) (hal.Fence, error) {
	s, i, err := r.slot(id)
	if err != nil {
		return nil, err
	}
	if !r.used.has(i) {
		return nil, fmt.Errorf("%w: %d", ErrNotCommitted, id)
	}
	f, err := s.pipe.Queue(buf, acquire)
	if err != nil {
		return nil, fmt.Errorf("pipe %d: queue: %w", id, err)
	}
	return f, nil
}

// State returns the state of pipe id.
func (r *Registry) State(id ID) (State, bool) {
	s, i, err := r.slot(id)
	if err != nil {
		return State{}, false
	}
	return State{
		ID:        s.id,
		Class:     s.class,
		Display:   s.display,
		Mixer:     s.mixer,
		Open:      s.pipe != nil,
		Allocated: r.allocated.has(i),
		Used:      r.used.has(i),
		Config:    s.cfg,
	}, true
}

// Snapshot returns the state of every pipe in ID order.
func (r *Registry) Snapshot() []State {
	out := make([]State, 0, len(r.slots))
	for i := range r.slots {
		st, _ := r.State(ID(i))
		out = append(out, st)
	}
	return out
}

// AllocatedCount returns the number of pipes allocated this frame.
func (r *Registry) AllocatedCount() int { return r.allocated.count() }

// UsedCount returns the number of pipes committed this frame.
func (r *Registry) UsedCount() int { return r.used.count() }

// Dump writes the pipe table to w.
func (r *Registry) Dump(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PIPE\tCLASS\tDISPLAY\tMIXER\tALLOC\tUSED\tZ\tSRC\tCROP\tDST\n")
	for _, st := range r.Snapshot() {
		if st.Display == noDisplay {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t%t\t%t\t-\t-\t-\t-\n", st.ID, st.Class, st.Allocated, st.Used)
			continue
		}
		c := st.Config
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%t\t%t\t%d\t%dx%d %s\t%s\t%s\n",
			st.ID, st.Class, st.Display, st.Mixer, st.Allocated, st.Used,
			c.Z, c.Src.Width, c.Src.Height, c.Src.Format, c.Crop, c.Dst)
	}
	return tw.Flush()
}
