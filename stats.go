package hwcomp

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/pipe"
)

// Strategy names how a frame was split between pipes and the GPU.
type Strategy int

const (
	StrategyFullHW Strategy = iota
	StrategyFullHWOverlap
	StrategyCache
	StrategyLoadBased
	StrategyVideoOnly
	StrategyVideoOnlySecure
	StrategyGPU

	strategyNone Strategy = -1
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyFullHW:
		return "full-hw"
	case StrategyFullHWOverlap:
		return "full-hw-overlap"
	case StrategyCache:
		return "cache"
	case StrategyLoadBased:
		return "load-based"
	case StrategyVideoOnly:
		return "video-only"
	case StrategyVideoOnlySecure:
		return "video-only-secure"
	case StrategyGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ListStats summarises a layer list for one display.
type ListStats struct {
	NumAppLayers  int
	YUVCount      int
	YUVIndices    []int
	SkipCount     int
	SecurePresent bool
	YUV4kCount    int

	// ROI is the region updated this frame; LeftROI and RightROI are its
	// parts on each mixer of a panel-split display.
	ROI      geom.Rect
	LeftROI  geom.Rect
	RightROI geom.Rect
}

// LayerAssignment is the decision for one layer.
type LayerAssignment struct {
	Composition Composition
	Pipes       []pipe.ID
	Z           int // first z-order, -1 without pipes
	Rotator     int // rotation session, -1 for none
	Cached      bool
	Overlap     bool // blitted into the overlap render buffer

	// GPUBlend is how the GPU draws a framebuffer layer into the target.
	GPUBlend gputypes.BlendState
}

// Assignment is the result of Prepare for one display.
type Assignment struct {
	Display  int
	Strategy Strategy
	Layers   []LayerAssignment

	// FramebufferZ is the z-order of the framebuffer target, -1 when the
	// target is not on a pipe.
	FramebufferZ int
	TargetPipes  []pipe.ID

	// TargetFormat is the texture format the GPU renders the framebuffer
	// target in.
	TargetFormat gputypes.TextureFormat

	OverlapPipe   pipe.ID
	OverlapRegion geom.Rect

	ROI   geom.Rect
	Stats ListStats

	// Reason is non-nil for StrategyGPU and wraps ErrFallbackToGPU.
	Reason error
}

// Count returns the number of layers with composition c.
func (a *Assignment) Count(c Composition) int {
	n := 0
	for _, la := range a.Layers {
		if la.Composition == c {
			n++
		}
	}
	return n
}

// Pipes returns every pipe used by the assignment.
func (a *Assignment) Pipes() []pipe.ID {
	var ids []pipe.ID
	for _, la := range a.Layers {
		if !la.Overlap {
			ids = append(ids, la.Pipes...)
		}
	}
	if a.OverlapPipe != pipe.Invalid {
		ids = append(ids, a.OverlapPipe)
	}
	return append(ids, a.TargetPipes...)
}
