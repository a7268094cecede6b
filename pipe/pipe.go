package pipe

import (
	"errors"
	"fmt"

	"github.com/gogpu/hwcomp/hal"
)

// ID identifies a pipe. Lower IDs have higher fetch priority.
type ID = hal.PipeID

// Invalid is returned by Acquire when no pipe is available.
const Invalid ID = -1

// noDisplay marks a pipe without display affinity.
const noDisplay = -1

// Class is the hardware capability class of a pipe.
type Class int

const (
	// ClassAny matches every class in Acquire.
	ClassAny Class = iota

	// ClassVG pipes are full featured: scaler, YUV and CSC.
	ClassVG

	// ClassRGB pipes have a scaler but fetch RGB only.
	ClassRGB

	// ClassDMA pipes are simple fetch engines without a scaler, shared with
	// writeback on some variants.
	ClassDMA
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassAny:
		return "any"
	case ClassVG:
		return "vg"
	case ClassRGB:
		return "rgb"
	case ClassDMA:
		return "dma"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// CanScale reports whether pipes of the class have a scaler.
func (c Class) CanScale() bool { return c == ClassVG || c == ClassRGB }

// SupportsYUV reports whether pipes of the class can fetch YUV formats.
func (c Class) SupportsYUV() bool { return c == ClassVG }

// Role is what a layer needs from a pipe.
type Role int

const (
	RoleRGB         Role = iota // unscaled RGB app layer
	RoleRGBScaled               // RGB app layer that needs the scaler
	RoleYUV                     // video
	RoleFramebuffer             // the GPU-composed framebuffer target
	numRoles
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleRGB:
		return "rgb"
	case RoleRGBScaled:
		return "rgb-scaled"
	case RoleYUV:
		return "yuv"
	case RoleFramebuffer:
		return "framebuffer"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Errors.
var (
	// ErrInvalidPipe is returned for IDs outside the registry.
	ErrInvalidPipe = errors.New("pipe: invalid pipe id")

	// ErrNotAllocated is returned when configuring a pipe that was not
	// acquired in the current frame.
	ErrNotAllocated = errors.New("pipe: pipe not allocated")

	// ErrNotCommitted is returned when queueing on a pipe that was not
	// committed in the current frame.
	ErrNotCommitted = errors.New("pipe: pipe not committed")

	// ErrNoPipes is returned by NewRegistry for a device without pipes.
	ErrNoPipes = errors.New("pipe: no pipes")
)

// CommitError reports a rejected commit. The whole display was rolled back.
type CommitError struct {
	ID      ID
	Display int
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("pipe: commit of pipe %d on display %d rejected: %v", e.ID, e.Display, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
