// Package geom provides the integer rectangle and transform types used to
// describe layer crops and destinations, plus the crop math that keeps a
// source crop consistent with a trimmed destination.
//
// Rectangles follow the display HAL convention: Left and Top are inclusive,
// Right and Bottom are exclusive. A rectangle is valid when Right > Left and
// Bottom > Top; inverted or degenerate rectangles are never eligible for
// hardware composition.
package geom
