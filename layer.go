package hwcomp

import (
	"fmt"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
)

// Composition is where a layer is composed this frame.
type Composition int

const (
	// CompositionFramebuffer layers are drawn by the GPU into the
	// framebuffer target.
	CompositionFramebuffer Composition = iota

	// CompositionOverlay layers are fetched by hardware pipes.
	CompositionOverlay

	// CompositionDropped layers lie outside the region being updated and
	// are drawn by neither path.
	CompositionDropped
)

// String returns the composition name.
func (c Composition) String() string {
	switch c {
	case CompositionFramebuffer:
		return "framebuffer"
	case CompositionOverlay:
		return "overlay"
	case CompositionDropped:
		return "dropped"
	default:
		return fmt.Sprintf("Composition(%d)", int(c))
	}
}

// LayerFlags are set by the client on a layer.
type LayerFlags uint32

const (
	// FlagSkip asks for GPU composition of the layer.
	FlagSkip LayerFlags = 1 << iota

	// FlagColorFill marks a solid color layer without a buffer.
	FlagColorFill
)

// Hints are written back to the client with the composition decision.
type Hints uint32

const (
	// HintClearFB asks the GPU to clear the framebuffer under the layer so
	// the pipe content beneath the framebuffer shows through.
	HintClearFB Hints = 1 << iota
)

// Layer is one app layer of a frame.
type Layer struct {
	Buffer       *buffer.Descriptor // nil for color fill
	SourceCrop   geom.Rect
	DisplayFrame geom.Rect
	Transform    geom.Transform
	Blend        hal.BlendMode
	PlaneAlpha   uint8
	Flags        LayerFlags
	Color        uint32 // RGBA, FlagColorFill only
	AcquireFence hal.Fence

	// Written by Prepare and Set.
	Composition  Composition
	Hints        Hints
	ReleaseFence hal.Fence
}

// IsYUV reports whether the layer holds video.
func (l *Layer) IsYUV() bool { return l.Buffer.IsYUV() }

// IsSecure reports whether the layer holds protected content.
func (l *Layer) IsSecure() bool { return l.Buffer.IsSecure() }

// IsSkip reports whether the client requested GPU composition.
func (l *Layer) IsSkip() bool { return l.Flags&FlagSkip != 0 }

// IsColorFill reports whether the layer is a solid color.
func (l *Layer) IsColorFill() bool { return l.Flags&FlagColorFill != 0 }

// IsOpaque reports whether the layer hides everything beneath it.
func (l *Layer) IsOpaque() bool {
	if l.Blend.Opaque() {
		return true
	}
	return l.Buffer != nil && !l.Buffer.Format.HasAlpha() && l.PlaneAlpha == 0xFF
}

// sourceSize returns the crop size in destination orientation.
func (l *Layer) sourceSize() (w, h int) {
	w, h = l.SourceCrop.Width(), l.SourceCrop.Height()
	if l.Transform.Has90() {
		w, h = h, w
	}
	return w, h
}

// IsScaled reports whether the pipe or rotator has to scale the layer.
func (l *Layer) IsScaled() bool {
	if l.IsColorFill() {
		return false
	}
	w, h := l.sourceSize()
	return w != l.DisplayFrame.Width() || h != l.DisplayFrame.Height()
}

// LayerList is one frame of a display: the app layers bottom to top and the
// framebuffer target the GPU renders into.
type LayerList struct {
	Display         int
	Layers          []Layer
	Target          Layer
	GeometryChanged bool

	// Written by Set.
	RetireFence hal.Fence
}
