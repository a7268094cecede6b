package geom

import (
	"fmt"
	"strings"
)

// Transform is the layer orientation bitmask. Flips are applied to the
// source first, then the optional 90 degree clockwise rotation.
type Transform uint32

const (
	// FlipH mirrors the source horizontally.
	FlipH Transform = 1 << iota

	// FlipV mirrors the source vertically.
	FlipV

	// Rot90 rotates the source 90 degrees clockwise.
	Rot90
)

// Composite orientations.
const (
	Identity Transform = 0
	Rot180             = FlipH | FlipV
	Rot270             = Rot180 | Rot90
)

// Has90 reports whether the transform includes a 90 degree rotation.
// Pipes cannot rotate; such layers need a rotation session.
func (t Transform) Has90() bool { return t&Rot90 != 0 }

// Flips returns the transform without its rotation bit.
func (t Transform) Flips() Transform { return t &^ Rot90 }

// IsIdentity reports whether the transform leaves the source unchanged.
func (t Transform) IsIdentity() bool { return t&(FlipH|FlipV|Rot90) == 0 }

// String returns a readable form such as "FlipH|Rot90".
func (t Transform) String() string {
	if t.IsIdentity() {
		return "Identity"
	}
	var parts []string
	if t&FlipH != 0 {
		parts = append(parts, "FlipH")
	}
	if t&FlipV != 0 {
		parts = append(parts, "FlipV")
	}
	if t&Rot90 != 0 {
		parts = append(parts, "Rot90")
	}
	return strings.Join(parts, "|")
}

// ParseTransform parses the form printed by String. The composite names
// Rot180 and Rot270 are accepted too; matching is case-insensitive.
func ParseTransform(s string) (Transform, error) {
	var t Transform
	for _, part := range strings.Split(s, "|") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "", "identity":
		case "fliph":
			t |= FlipH
		case "flipv":
			t |= FlipV
		case "rot90":
			t |= Rot90
		case "rot180":
			t |= Rot180
		case "rot270":
			t |= Rot270
		default:
			return 0, fmt.Errorf("geom: unknown transform %q", part)
		}
	}
	return t, nil
}
