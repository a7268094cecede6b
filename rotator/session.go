package rotator

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/internal/logging"
)

// FenceTimeout bounds the wait for a ring buffer still being read by a pipe.
const FenceTimeout = time.Second

// ErrNotConfigured is returned when committing or queueing a session that
// has no configuration.
var ErrNotConfigured = errors.New("rotator: session not configured")

// Config describes one rotation.
type Config struct {
	Src       hal.Whf
	Crop      geom.Rect
	Transform geom.Transform

	// Downscale is a power-of-two pre-downscale factor. 0 and 1 disable it.
	Downscale int

	Secure      bool
	Deinterlace bool

	// Compressed requests a bandwidth-compressed output.
	Compressed bool
}

// Session is one rotation session and its output ring.
type Session struct {
	id   int
	pool *Pool

	rot     hal.Rotator
	ring    []*buffer.Descriptor
	release []hal.Fence
	cur     int

	out     hal.Whf
	secure  bool
	enabled bool
	remaps  int
}

// ID returns the session's index in the pool.
func (s *Session) ID() int { return s.id }

// Enabled reports whether the session was configured since it was created.
func (s *Session) Enabled() bool { return s.enabled }

// Remaps returns how many times the output ring was allocated.
func (s *Session) Remaps() int { return s.remaps }

// Output returns the geometry of the rotated buffer a pipe fetches.
func (s *Session) Output() hal.Whf { return s.out }

// OutputCrop returns the region of the output buffer holding the rotated
// content.
func (s *Session) OutputCrop() geom.Rect {
	return geom.R(0, 0, s.out.Width, s.out.Height)
}

// Current returns the ring buffer written by the last Queue.
func (s *Session) Current() *buffer.Descriptor {
	if len(s.ring) == 0 {
		return nil
	}
	return s.ring[s.cur]
}

// OutputFor returns the output geometry cfg would produce.
func OutputFor(cfg Config) hal.Whf {
	w, h := cfg.Crop.Width(), cfg.Crop.Height()
	if cfg.Transform.Has90() {
		w, h = h, w
	}
	if cfg.Downscale > 1 {
		w /= cfg.Downscale
		h /= cfg.Downscale
	}
	f := cfg.Src.Format.Linear()
	if cfg.Compressed {
		f = f.Compressed()
	}
	if f.IsYUV() {
		w, h = geom.EvenDown(w), geom.EvenDown(h)
	}
	return hal.Whf{Width: w, Height: h, Format: f, Size: buffer.Size(w, h, f)}
}

// Configure programs the session. The output ring is reallocated only when
// the output size, format or secure mode differs from the previous
// configuration.
func (s *Session) Configure(cfg Config) error {
	if cfg.Crop.Empty() {
		return fmt.Errorf("rotator %d: empty crop", s.id)
	}
	if s.rot == nil {
		r, err := s.pool.dev.OpenRotator()
		if err != nil {
			return fmt.Errorf("rotator %d: open: %w", s.id, err)
		}
		s.rot = r
	}

	out := OutputFor(cfg)
	if out.Width <= 0 || out.Height <= 0 {
		return fmt.Errorf("rotator %d: output %dx%d too small", s.id, out.Width, out.Height)
	}
	if len(s.ring) == 0 || out.Width != s.out.Width || out.Height != s.out.Height ||
		out.Format != s.out.Format || cfg.Secure != s.secure {
		if err := s.remap(out, cfg.Secure); err != nil {
			return err
		}
		s.secure = cfg.Secure
	}
	s.out = out

	var flags hal.RotatorFlags
	if cfg.Secure {
		flags |= hal.RotatorSecure
	}
	if cfg.Downscale > 1 {
		flags |= hal.RotatorDownscale
	}
	if cfg.Deinterlace {
		flags |= hal.RotatorDeinterlace
	}
	rc := hal.RotatorConfig{
		Src:       cfg.Src,
		Crop:      cfg.Crop,
		Transform: cfg.Transform,
		Downscale: max(cfg.Downscale, 1),
		Dst:       out,
		Flags:     flags,
	}
	if err := s.rot.Configure(rc); err != nil {
		return fmt.Errorf("rotator %d: configure: %w", s.id, err)
	}
	s.enabled = true
	return nil
}

func (s *Session) remap(out hal.Whf, secure bool) error {
	s.freeRing()
	var flags buffer.Flags
	if secure {
		flags |= buffer.FlagSecure
	}
	n := s.pool.buffers
	ring := make([]*buffer.Descriptor, 0, n)
	for range n {
		d, err := s.pool.alloc.Allocate(buffer.Request{
			Width:  out.Width,
			Height: out.Height,
			Format: out.Format,
			Size:   out.Size,
			Flags:  flags,
		})
		if err != nil {
			for _, d := range ring {
				_ = s.pool.alloc.Free(d)
			}
			return fmt.Errorf("rotator %d: allocate ring: %w", s.id, err)
		}
		ring = append(ring, d)
	}
	s.ring = ring
	s.release = make([]hal.Fence, n)
	s.cur = 0
	s.remaps++
	logging.Logger().Debug("rotator: ring remapped", "session", s.id,
		"width", out.Width, "height", out.Height, "format", out.Format, "buffers", n)
	return nil
}

func (s *Session) freeRing() {
	for _, d := range s.ring {
		if err := s.pool.alloc.Free(d); err != nil {
			logging.Logger().Warn("rotator: free failed", "session", s.id, "err", err)
		}
	}
	s.ring = nil
	s.release = nil
}

// Commit pushes the configuration to hardware.
func (s *Session) Commit() error {
	if s.rot == nil || !s.enabled {
		return fmt.Errorf("rotator %d: %w", s.id, ErrNotConfigured)
	}
	if err := s.rot.Commit(); err != nil {
		return fmt.Errorf("rotator %d: commit: %w", s.id, err)
	}
	return nil
}

// Queue rotates src into the next ring buffer and returns that buffer with
// the rotation's completion fence. If the buffer is still held by a pipe
// Queue waits up to FenceTimeout for its release fence.
func (s *Session) Queue(src *buffer.Descriptor, acquire hal.Fence) (*buffer.Descriptor, hal.Fence, error) {
	if s.rot == nil || len(s.ring) == 0 {
		return nil, nil, fmt.Errorf("rotator %d: %w", s.id, ErrNotConfigured)
	}
	next := (s.cur + 1) % len(s.ring)
	if f := s.release[next]; f != nil {
		if err := f.Wait(FenceTimeout); err != nil {
			logging.Logger().Warn("rotator: release fence wait failed", "session", s.id, "slot", next, "err", err)
		}
		s.release[next] = nil
	}
	dst := s.ring[next]
	f, err := s.rot.Queue(src, dst, acquire)
	if err != nil {
		return nil, nil, fmt.Errorf("rotator %d: queue: %w", s.id, err)
	}
	s.cur = next
	return dst, f, nil
}

// SetReleaseFence records the fence that signals when the pipe is done
// reading the current ring buffer.
func (s *Session) SetReleaseFence(f hal.Fence) {
	if len(s.release) > 0 {
		s.release[s.cur] = f
	}
}

func (s *Session) close() {
	if s.rot != nil {
		if err := s.rot.Close(); err != nil {
			logging.Logger().Warn("rotator: close failed", "session", s.id, "err", err)
		}
		s.rot = nil
	}
	s.freeRing()
	s.enabled = false
}
