package pointcloud

import (
	"github.com/golang/geo/r3"
)

// basicPointCloud is the basic implementation of the PointCloud interface backed by
// a slice of points.
type basicPointCloud struct {
	points []Point
	meta   MetaData
}

// New returns an empty PointCloud backed by a basicPointCloud.
func New() PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty, preallocated PointCloud backed by a basicPointCloud.
func NewWithPrealloc(size int) PointCloud {
	return &basicPointCloud{
		points: make([]Point, 0, size),
		meta:   NewMetaData(),
	}
}

// NewFromPoints returns a PointCloud holding the given points in order.
func NewFromPoints(points ...Point) PointCloud {
	cloud := NewWithPrealloc(len(points))
	for _, p := range points {
		cloud.Append(p)
	}
	return cloud
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) MetaData() MetaData {
	return cloud.meta
}

func (cloud *basicPointCloud) Append(p Point) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

func (cloud *basicPointCloud) At(i int) Point {
	return cloud.points[i]
}

func (cloud *basicPointCloud) Iterate(fn func(i int, p Point) bool) {
	for i, p := range cloud.points {
		if !fn(i, p) {
			return
		}
	}
}

// Clone returns an independent copy of the cloud.
func Clone(cloud PointCloud) PointCloud {
	out := NewWithPrealloc(cloud.Size())
	cloud.Iterate(func(_ int, p Point) bool {
		out.Append(p)
		return true
	})
	return out
}

// Subset returns a new cloud holding the points at the given indices, in the
// order the indices are given.
func Subset(cloud PointCloud, indices []int) PointCloud {
	out := NewWithPrealloc(len(indices))
	for _, i := range indices {
		out.Append(cloud.At(i))
	}
	return out
}

// Positions extracts the positions of the points in order.
func Positions(cloud PointCloud) []r3.Vector {
	positions := make([]r3.Vector, 0, cloud.Size())
	cloud.Iterate(func(_ int, p Point) bool {
		positions = append(positions, p.Position)
		return true
	})
	return positions
}

// CloudContains is a silly helper that checks whether a point exists at the given position.
func CloudContains(cloud PointCloud, x, y, z float64) bool {
	want := NewVector(x, y, z)
	found := false
	cloud.Iterate(func(_ int, p Point) bool {
		if p.Position == want {
			found = true
			return false
		}
		return true
	})
	return found
}

// CalculateMeanOfPointCloud returns the centroid of the cloud.
func CalculateMeanOfPointCloud(cloud PointCloud) r3.Vector {
	return cloud.MetaData().Center()
}
