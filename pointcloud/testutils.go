package pointcloud

import (
	"math/rand"
)

// TabletopOptions shapes the synthetic scene built by MakeTabletopCloud.
type TabletopOptions struct {
	// TableZ is the height of the table surface.
	TableZ float64
	// Jitter is the largest absolute noise added to each table point height.
	Jitter float64
	// ObjectHeight is how far the object block sits above the table.
	ObjectHeight float64
	// Outliers is the number of sparse points scattered above the table.
	Outliers int
}

// DefaultTabletopOptions returns a flat table at z=0 with an object 0.2 above
// it and a little height noise.
func DefaultTabletopOptions() TabletopOptions {
	return TabletopOptions{
		Jitter:       0.002,
		ObjectHeight: 0.2,
	}
}

// Tabletop scene layout.
const (
	tableCols    = 40
	tableRows    = 25
	tableSpacing = 0.025
	objectCols   = 10
	objectRows   = 5
	objectStep   = 0.01
	// keeps the middle table row off y=0, the no return sentinel
	gridOffset = 0.004
)

var (
	tableColor  = Color{R: 0.55, G: 0.45, B: 0.35}
	objectColor = Color{R: 0.9, G: 0.1, B: 0.1}
)

// TabletopObjectBounds returns the box that the object block of a scene made
// with the given options occupies, before jitter.
func TabletopObjectBounds(opts TabletopOptions) Boundary {
	x0, y0 := -0.045, -0.025
	z := opts.TableZ + opts.ObjectHeight
	return Boundary{
		Min: NewBasicPoint(x0, y0, z),
		Max: NewBasicPoint(x0+objectStep*(objectCols-1), y0+objectStep*(objectRows-1), z),
	}
}

// MakeTabletopCloud builds a synthetic tabletop scene: a 1000 point table grid
// centered on the z axis followed by a 50 point object block above its
// center and then any requested outliers. The same rng state always yields
// the same cloud.
func MakeTabletopCloud(rng *rand.Rand, opts TabletopOptions) PointCloud {
	cloud := NewWithPrealloc(tableCols*tableRows + objectCols*objectRows + opts.Outliers)

	halfW := tableSpacing * tableCols / 2
	halfH := tableSpacing * tableRows / 2
	for r := 0; r < tableRows; r++ {
		for c := 0; c < tableCols; c++ {
			x := -halfW + tableSpacing*(float64(c)+0.5) + gridOffset
			y := -halfH + tableSpacing*(float64(r)+0.5) + gridOffset
			z := opts.TableZ + opts.Jitter*(2*rng.Float64()-1)
			cloud.Append(NewColoredPoint(x, y, z, tableColor))
		}
	}

	obj := TabletopObjectBounds(opts)
	for r := 0; r < objectRows; r++ {
		for c := 0; c < objectCols; c++ {
			x := obj.Min.Position.X + objectStep*float64(c)
			y := obj.Min.Position.Y + objectStep*float64(r)
			z := obj.Min.Position.Z + opts.Jitter*(2*rng.Float64()-1)
			cloud.Append(NewColoredPoint(x, y, z, objectColor))
		}
	}

	for i := 0; i < opts.Outliers; i++ {
		x := halfW * (2*rng.Float64() - 1)
		y := halfH * (2*rng.Float64() - 1)
		z := opts.TableZ + 0.3 + 0.5*rng.Float64()
		cloud.Append(NewBasicPoint(x, y, z))
	}
	return cloud
}
