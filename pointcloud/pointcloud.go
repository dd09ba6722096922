// Package pointcloud defines an ordered, colored point cloud and the
// operations the interaction context pipeline runs over it: extraction from
// raw sensor buffers, statistical outlier filtering, nearest neighbor
// indexing, bounding box queries, and file export.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
	count                  int
}

// NewMetaData returns metadata for an empty cloud.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge folds a newly added point into the metadata.
func (meta *MetaData) Merge(p Point) {
	if p.HasColor() {
		meta.HasColor = true
	}

	v := p.Position
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}

	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}

	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
	meta.count++
}

// Count returns the number of points merged into the metadata.
func (meta MetaData) Count() int {
	return meta.count
}

// Center returns the mean position of the merged points. It is the zero
// vector for an empty cloud.
func (meta MetaData) Center() r3.Vector {
	if meta.count == 0 {
		return r3.Vector{}
	}
	n := float64(meta.count)
	return r3.Vector{X: meta.totalX / n, Y: meta.totalY / n, Z: meta.totalZ / n}
}

// PointCloud is an ordered container of colored points. Points are kept in
// insertion order and are never deduplicated; two samples at the same
// position are two points.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data
	MetaData() MetaData

	// Append adds the given point to the end of the cloud.
	Append(p Point)

	// At returns the i-th point in insertion order. It panics if i is out of range.
	At(i int) Point

	// Iterate calls fn for every point in insertion order. If fn returns
	// false, iteration stops.
	Iterate(fn func(i int, p Point) bool)
}
