package hal

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// BlendMode is the per-layer blending operation.
type BlendMode int

const (
	// BlendNone replaces the destination; the layer is opaque.
	BlendNone BlendMode = iota

	// BlendPremultiplied blends a premultiplied source over the destination.
	BlendPremultiplied

	// BlendCoverage blends a non-premultiplied source using its alpha.
	BlendCoverage
)

// String returns the blend mode name.
func (b BlendMode) String() string {
	switch b {
	case BlendNone:
		return "none"
	case BlendPremultiplied:
		return "premultiplied"
	case BlendCoverage:
		return "coverage"
	default:
		return fmt.Sprintf("BlendMode(%d)", int(b))
	}
}

// Opaque reports whether the layer fully replaces what lies beneath it.
func (b BlendMode) Opaque() bool { return b == BlendNone }

// BlendState returns the GPU blend state the framebuffer path uses to draw a
// layer with this mode.
func (b BlendMode) BlendState() gputypes.BlendState {
	switch b {
	case BlendPremultiplied:
		return gputypes.BlendStatePremultiplied()
	case BlendCoverage:
		return gputypes.BlendStateAlpha()
	default:
		return gputypes.BlendStateReplace()
	}
}

// ParseBlendMode parses a name printed by String.
func ParseBlendMode(s string) (BlendMode, error) {
	for _, b := range []BlendMode{BlendNone, BlendPremultiplied, BlendCoverage} {
		if b.String() == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("hal: unknown blend mode %q", s)
}
