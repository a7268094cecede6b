// Package hwcomp decides, frame by frame, which layers of a display are
// fetched by hardware overlay pipes and which are composed by the GPU into
// the framebuffer target.
//
// # Overview
//
// A Context owns every overlay pipe and rotation session of one display
// controller. For each display it runs a fixed ladder of composition
// strategies, from full hardware to full GPU, and programs the pipes and
// rotators of the first strategy whose resource needs fit:
//
//   - full hardware: every layer on its own pipe
//   - full hardware with overlap removal: a few small top layers blitted
//     into one render buffer
//   - cache: layers unchanged since the previous frame stay on the
//     framebuffer
//   - load based: the lowest layers on pipes, the rest on the framebuffer
//   - video only: video on pipes, everything else on the framebuffer
//
// When nothing fits the frame falls back to the GPU and only the
// framebuffer target is placed on a pipe.
//
// # Quick Start
//
//	ctx, err := hwcomp.NewContext(hwcomp.DefaultCapabilities(), dev, alloc)
//	if err != nil {
//		return err
//	}
//	ctx.ConnectDisplay(hwcomp.DisplayPrimary, hwcomp.DisplayAttributes{Width: 1080, Height: 1920})
//
//	// every vsync
//	ctx.ConfigBegin()
//	a, err := ctx.Prepare(hwcomp.DisplayPrimary, list)
//	ctx.ConfigDone()
//	// GPU composes the layers tagged CompositionFramebuffer into list.Target
//	err = ctx.Set(hwcomp.DisplayPrimary, list)
//
// # Hardware
//
// The lower interface is hal.Device. hal/noop provides an in-memory
// implementation for tests and for cmd/mdpsim.
//
// # Coordinate System
//
// Rectangles are half-open in pixels with the origin at the top-left of the
// display. On a split panel, the right mixer's destinations are relative to
// the split column.
package hwcomp

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"
)
