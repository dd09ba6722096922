package segmentation

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	pc "go.viam.com/intact/pointcloud"
)

// DefaultDegenerateTolerance is the smallest ratio of the second to the first
// singular value for which a cloud still counts as spanning a plane.
const DefaultDegenerateTolerance = 1e-3

// coincidentTolerance bounds the largest singular value, relative to the
// magnitude of the coordinates, below which all points count as one.
const coincidentTolerance = 1e-9

// PlaneEstimate is the principal component decomposition of a cloud.
//
// The estimator assumes the cloud is dominated by a single surface: the
// first two directions span that surface and the third, the direction of
// least variance, is its normal. Clouds where objects outweigh the surface
// will tilt the estimate.
type PlaneEstimate struct {
	Centroid r3.Vector
	// Directions are orthonormal and ordered by decreasing singular value.
	Directions [3]r3.Vector
	// SingularValues descend; missing values are zero.
	SingularValues [3]float64
	Points         int

	degenerate bool
}

// Normal returns the unit direction of least variance. It is oriented so
// that the sensor origin lies on its non-negative side.
func (p *PlaneEstimate) Normal() r3.Vector {
	return p.Directions[2]
}

// Basis returns the two unit directions spanning the surface.
func (p *PlaneEstimate) Basis() (r3.Vector, r3.Vector) {
	return p.Directions[0], p.Directions[1]
}

// Degenerate returns whether the points did not span a plane.
func (p *PlaneEstimate) Degenerate() bool {
	return p.degenerate
}

// Distance returns the signed distance from v to the estimated plane.
func (p *PlaneEstimate) Distance(v r3.Vector) float64 {
	return p.Normal().Dot(v.Sub(p.Centroid))
}

// Project returns the coordinates of v in the plane basis, relative to the centroid.
func (p *PlaneEstimate) Project(v r3.Vector) (float64, float64) {
	rel := v.Sub(p.Centroid)
	u, w := p.Basis()
	return u.Dot(rel), w.Dot(rel)
}

// EstimatePlane fits a plane to the cloud with DefaultDegenerateTolerance.
func EstimatePlane(ctx context.Context, cloud pc.PointCloud) (*PlaneEstimate, error) {
	return EstimatePlaneWithTolerance(ctx, cloud, DefaultDegenerateTolerance)
}

// EstimatePlaneWithTolerance centers the cloud on its centroid and takes the
// singular value decomposition of the resulting N x 3 matrix. The right
// singular vectors are the principal directions.
//
// When the cloud does not span a plane the estimate is still returned, along
// with a *DegenerateGeometryError.
func EstimatePlaneWithTolerance(ctx context.Context, cloud pc.PointCloud, tolerance float64) (*PlaneEstimate, error) {
	_, span := trace.StartSpan(ctx, "segmentation::EstimatePlane")
	defer span.End()

	if cloud == nil || cloud.Size() == 0 {
		return &PlaneEstimate{degenerate: true}, newDegenerateGeometryError("no points", 0)
	}

	n := cloud.Size()
	a := mat.NewDense(n, 3, nil)
	maxAbs := 0.0
	cloud.Iterate(func(i int, p pc.Point) bool {
		a.Set(i, 0, p.Position.X)
		a.Set(i, 1, p.Position.Y)
		a.Set(i, 2, p.Position.Z)
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.Position.X), math.Max(math.Abs(p.Position.Y), math.Abs(p.Position.Z))))
		return true
	})

	var centroid [3]float64
	col := make([]float64, n)
	for j := 0; j < 3; j++ {
		mat.Col(col, j, a)
		centroid[j] = stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			a.Set(i, j, col[i]-centroid[j])
		}
	}

	est := &PlaneEstimate{
		Centroid: r3.Vector{X: centroid[0], Y: centroid[1], Z: centroid[2]},
		Points:   n,
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFullV); !ok {
		est.degenerate = true
		return est, newDegenerateGeometryError("singular value decomposition failed", n)
	}
	values := svd.Values(nil)
	copy(est.SingularValues[:], values)

	var v mat.Dense
	svd.VTo(&v)
	for j := 0; j < 3; j++ {
		est.Directions[j] = r3.Vector{X: v.At(0, j), Y: v.At(1, j), Z: v.At(2, j)}.Normalize()
	}
	if est.Normal().Dot(est.Centroid) > 0 {
		est.Directions[2] = est.Directions[2].Mul(-1)
	}

	s := est.SingularValues
	switch {
	case n < 3:
		est.degenerate = true
		return est, newDegenerateGeometryError("fewer than 3 points", n)
	case s[0] <= coincidentTolerance*math.Max(1, maxAbs):
		est.degenerate = true
		return est, newDegenerateGeometryError("coincident points", n)
	case s[1] < tolerance*s[0]:
		est.degenerate = true
		return est, newDegenerateGeometryError("collinear points", n)
	}
	return est, nil
}
