package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Vectors is a series of three-dimensional vectors.
type Vectors []r3.Vector

// Len returns the number of vectors.
func (vs Vectors) Len() int {
	return len(vs)
}

// Swap swaps two vectors positionally.
func (vs Vectors) Swap(i, j int) {
	vs[i], vs[j] = vs[j], vs[i]
}

// Less returns which vector is less than the other based on
// r3.Vector.Cmp.
func (vs Vectors) Less(i, j int) bool {
	cmp := vs[i].Cmp(vs[j])
	if cmp == 0 {
		return false
	}
	return cmp < 0
}

// Color is the color triple delivered alongside a sensor sample. Each channel
// is expected in [0, 1].
type Color struct {
	R, G, B float64
}

// IsBlack returns whether all channels are zero, which is also what a sample
// without color data reads as.
func (c Color) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// RGB255 returns the color scaled and clamped to 8 bit channels.
func (c Color) RGB255() (uint8, uint8, uint8) {
	return channel255(c.R), channel255(c.G), channel255(c.B)
}

// NRGBA returns the color as an opaque color.NRGBA.
func (c Color) NRGBA() color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// ColorFromNRGBA converts an 8 bit color into a Color.
func ColorFromNRGBA(c color.NRGBA) Color {
	return Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func channel255(v float64) uint8 {
	v = math.Round(v * 255)
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// Point is a single colored sample in a PointCloud. Points are plain values
// and are copied freely.
type Point struct {
	Position r3.Vector
	Color    Color
}

// NewBasicPoint returns an uncolored point at the given position.
func NewBasicPoint(x, y, z float64) Point {
	return Point{Position: NewVector(x, y, z)}
}

// NewColoredPoint returns a point at the given position with the given color.
func NewColoredPoint(x, y, z float64, c Color) Point {
	return Point{Position: NewVector(x, y, z), Color: c}
}

// HasColor returns whether or not this point carries color data.
func (p Point) HasColor() bool {
	return !p.Color.IsBlack()
}
