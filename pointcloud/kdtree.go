package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// indexedPoint carries a position together with its index in the source cloud
// since building the tree reorders the points.
type indexedPoint struct {
	pos r3.Vector
	idx int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	case 2:
		return p.pos.Z - q.pos.Z
	default:
		panic("illegal dimension")
	}
}

func (p indexedPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance, as kdtree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	return p.pos.Sub(q.pos).Norm2()
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return axisPlane{indexedPoints: p, Dim: d}.Pivot()
}
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// axisPlane sorts points along one dimension for median partitioning.
type axisPlane struct {
	kdtree.Dim
	indexedPoints
}

func (p axisPlane) Less(i, j int) bool {
	return p.indexedPoints[i].Compare(p.indexedPoints[j], p.Dim) < 0
}
func (p axisPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p axisPlane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}

func (p axisPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// Neighbor is a point found by a KDTree query.
type Neighbor struct {
	Index    int
	Distance float64
}

// KDTree is a static nearest neighbor index over the positions of a cloud.
// Query results refer to points by their index in that cloud.
type KDTree struct {
	tree *kdtree.Tree
	size int
}

// ToKDTree builds a KDTree over the given cloud.
func ToKDTree(cloud PointCloud) *KDTree {
	pts := make(indexedPoints, 0, cloud.Size())
	cloud.Iterate(func(i int, p Point) bool {
		pts = append(pts, indexedPoint{pos: p.Position, idx: i})
		return true
	})
	kd := &KDTree{size: len(pts)}
	if len(pts) > 0 {
		kd.tree = kdtree.New(pts, false)
	}
	return kd
}

// Size returns the number of indexed points.
func (kd *KDTree) Size() int {
	return kd.size
}

// KNearestNeighbors returns up to k points closest to the point at index
// self, nearest first. The point itself is never part of the result, though
// other points at the same position are.
func (kd *KDTree) KNearestNeighbors(self int, pos r3.Vector, k int) []Neighbor {
	if kd.tree == nil || k <= 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k + 1)
	kd.tree.NearestSet(keeper, indexedPoint{pos: pos, idx: self})
	out := collectNeighbors(keeper.Heap, self)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// RadiusNearestNeighbors returns all points within radius of pos, nearest
// first, excluding the point at index self. Pass a negative self to keep
// every match.
func (kd *KDTree) RadiusNearestNeighbors(self int, pos r3.Vector, radius float64) []Neighbor {
	if kd.tree == nil || radius < 0 {
		return nil
	}
	keeper := kdtree.NewDistKeeper(radius * radius)
	kd.tree.NearestSet(keeper, indexedPoint{pos: pos, idx: self})
	return collectNeighbors(keeper.Heap, self)
}

func collectNeighbors(heap kdtree.Heap, self int) []Neighbor {
	out := make([]Neighbor, 0, len(heap))
	for _, cd := range heap {
		// keepers are seeded with a sentinel holding no comparable
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(indexedPoint)
		if p.idx == self {
			continue
		}
		out = append(out, Neighbor{Index: p.idx, Distance: math.Sqrt(cd.Dist)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].Index < out[j].Index
		}
		return out[i].Distance < out[j].Distance
	})
	return out
}
