package hal

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
)

// PipeID identifies a physical overlay pipe. IDs are assigned once at device
// bring-up and double as the hardware fetch priority (lower is higher).
type PipeID int

// Mixer selects the blending stage of a display. Non-split displays use
// MixerLeft only.
type Mixer int

const (
	MixerLeft Mixer = iota
	MixerRight
)

// String returns the mixer name.
func (m Mixer) String() string {
	switch m {
	case MixerLeft:
		return "left"
	case MixerRight:
		return "right"
	default:
		return fmt.Sprintf("Mixer(%d)", int(m))
	}
}

// Whf is the width, height and format of a pipe or rotator source.
type Whf struct {
	Width  int
	Height int
	Format buffer.Format
	Size   int
}

// WhfOf returns the Whf describing d.
func WhfOf(d *buffer.Descriptor) Whf {
	return Whf{Width: d.Width, Height: d.Height, Format: d.Format, Size: d.Size}
}

// PipeFlags are the device-specific bits programmed with a pipe.
type PipeFlags uint32

const (
	PipeSecure PipeFlags = 1 << iota
	PipeDeinterlace
	PipeBWC         // bandwidth compression
	PipeDualPipe    // layer spans both mixers, enable overfetch
	PipeSolidFill   // color fill, no buffer fetch
	PipeDecimation  // use fetch decimation for large downscale
	PipeMacroTile   // source is macro-tiled
	PipeSourceSplit // one half of a source-split layer
)

// PipeConfig is the full per-frame programming of one pipe.
type PipeConfig struct {
	Display    int
	Mixer      Mixer
	Src        Whf
	Crop       geom.Rect
	Dst        geom.Rect
	Z          int
	Blend      BlendMode
	PlaneAlpha uint8
	Foreground bool
	Transform  geom.Transform
	Color      uint32 // RGBA for PipeSolidFill
	Flags      PipeFlags
}

// RotatorFlags are the bits programmed with a rotation session.
type RotatorFlags uint32

const (
	RotatorSecure RotatorFlags = 1 << iota
	RotatorDownscale
	RotatorDeinterlace
)

// RotatorConfig programs a rotation session.
type RotatorConfig struct {
	Src       Whf
	Crop      geom.Rect
	Transform geom.Transform
	Downscale int // power-of-two factor, 1 for none
	Dst       Whf
	Flags     RotatorFlags
}

// Fence is a release or retire fence. Wait blocks at most timeout.
type Fence interface {
	Wait(timeout time.Duration) error
}

// Device opens pipes and rotators and commits a display's mixer.
type Device interface {
	// OpenPipe binds pipe id to a display mixer and returns its handle.
	OpenPipe(id PipeID, display int, mixer Mixer) (Pipe, error)

	// OpenRotator opens a new rotation session.
	OpenRotator() (Rotator, error)

	// Commit kicks off the display's mixers with everything queued and
	// returns the retire fence of the frame.
	Commit(display int) (Fence, error)
}

// Pipe is an opened overlay pipe. Close releases the hardware binding.
type Pipe interface {
	Configure(cfg PipeConfig) error
	Commit() error
	Queue(buf *buffer.Descriptor, acquire Fence) (Fence, error)
	Close() error
}

// Rotator is an opened rotation session.
type Rotator interface {
	Configure(cfg RotatorConfig) error
	Commit() error
	Queue(src, dst *buffer.Descriptor, acquire Fence) (Fence, error)
	Close() error
}

// BlitSource is one layer composed by the blitter.
type BlitSource struct {
	Buffer     *buffer.Descriptor
	Crop       geom.Rect
	Dst        geom.Rect
	Transform  geom.Transform
	Blend      BlendMode
	PlaneAlpha uint8
	Acquire    Fence
}

// Blitter composes layers into a render buffer within a region. It is the
// software/2D-engine collaborator used by overlap removal.
type Blitter interface {
	Blit(dst *buffer.Descriptor, region geom.Rect, srcs []BlitSource) (Fence, error)
}

// Errors.
var (
	// ErrTimeout is returned by Fence.Wait when the fence did not signal in time.
	ErrTimeout = errors.New("hal: fence wait timed out")

	// ErrInvalidConfig is returned when the hardware rejects parameters.
	ErrInvalidConfig = errors.New("hal: invalid configuration")
)
