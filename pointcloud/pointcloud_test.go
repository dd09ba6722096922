package pointcloud

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestPointCloudBasic(t *testing.T) {
	pc := New()
	test.That(t, pc.Size(), test.ShouldEqual, 0)

	p0 := NewBasicPoint(1, 2, 3)
	p1 := NewColoredPoint(-1, 5, 0, Color{R: 1})
	pc.Append(p0)
	pc.Append(p1)
	pc.Append(p0)

	test.That(t, pc.Size(), test.ShouldEqual, 3)
	test.That(t, pc.At(0), test.ShouldResemble, p0)
	test.That(t, pc.At(1), test.ShouldResemble, p1)
	test.That(t, pc.At(2), test.ShouldResemble, p0)

	meta := pc.MetaData()
	test.That(t, meta.HasColor, test.ShouldBeTrue)
	test.That(t, meta.MinX, test.ShouldEqual, -1)
	test.That(t, meta.MaxY, test.ShouldEqual, 5)
	test.That(t, meta.MinZ, test.ShouldEqual, 0)
	test.That(t, meta.Count(), test.ShouldEqual, 3)

	seen := []int{}
	pc.Iterate(func(i int, p Point) bool {
		seen = append(seen, i)
		return i < 1
	})
	test.That(t, seen, test.ShouldResemble, []int{0, 1})

	test.That(t, CloudContains(pc, -1, 5, 0), test.ShouldBeTrue)
	test.That(t, CloudContains(pc, 1, 1, 1), test.ShouldBeFalse)
}

func TestPointCloudCentroid(t *testing.T) {
	pc := NewFromPoints(NewBasicPoint(0, 0, 0), NewBasicPoint(2, 4, 6))
	test.That(t, CalculateMeanOfPointCloud(pc), test.ShouldResemble, NewVector(1, 2, 3))
	test.That(t, CalculateMeanOfPointCloud(New()), test.ShouldResemble, NewVector(0, 0, 0))
}

func TestSubsetAndClone(t *testing.T) {
	pc := NewFromPoints(NewBasicPoint(1, 1, 1), NewBasicPoint(2, 2, 2), NewBasicPoint(3, 3, 3))
	sub := Subset(pc, []int{2, 0})
	test.That(t, sub.Size(), test.ShouldEqual, 2)
	test.That(t, sub.At(0).Position, test.ShouldResemble, NewVector(3, 3, 3))
	test.That(t, sub.At(1).Position, test.ShouldResemble, NewVector(1, 1, 1))

	clone := Clone(pc)
	clone.Append(NewBasicPoint(4, 4, 4))
	test.That(t, pc.Size(), test.ShouldEqual, 3)
	test.That(t, clone.Size(), test.ShouldEqual, 4)
}

func TestColor(t *testing.T) {
	r, g, b := Color{R: 1, G: 0.5, B: 2}.RGB255()
	test.That(t, r, test.ShouldEqual, uint8(255))
	test.That(t, g, test.ShouldEqual, uint8(128))
	test.That(t, b, test.ShouldEqual, uint8(255))
	test.That(t, Color{}.IsBlack(), test.ShouldBeTrue)
	test.That(t, NewBasicPoint(1, 1, 1).HasColor(), test.ShouldBeFalse)
}

func TestFromBuffers(t *testing.T) {
	t.Run("drops sentinel samples", func(t *testing.T) {
		positions := []float32{
			1, 2, 3,
			0, 1, 1,
			4, 5, 6,
			1, 0, 1,
			1, 1, 0,
		}
		colors := []float32{
			0.1, 0.2, 0.3,
			0, 0, 0,
			0.4, 0.5, 0.6,
			0, 0, 0,
			0, 0, 0,
		}
		pc := FromBuffers(5, positions, colors)
		test.That(t, pc.Size(), test.ShouldEqual, 2)
		test.That(t, pc.At(0).Position, test.ShouldResemble, NewVector(1, 2, 3))
		test.That(t, pc.At(1).Position, test.ShouldResemble, NewVector(4, 5, 6))
		test.That(t, pc.At(1).Color.R, test.ShouldAlmostEqual, 0.4, 1e-6)
	})

	t.Run("all sentinel", func(t *testing.T) {
		pc := FromBuffers(2, make([]float32, 6), make([]float32, 6))
		test.That(t, pc.Size(), test.ShouldEqual, 0)
	})

	t.Run("zero points", func(t *testing.T) {
		pc := FromBuffers(0, nil, nil)
		test.That(t, pc.Size(), test.ShouldEqual, 0)
	})

	t.Run("short buffers are clamped", func(t *testing.T) {
		pc := FromBuffers(3, []float32{1, 1, 1, 2, 2, 2, 3}, []float32{1, 1, 1})
		test.That(t, pc.Size(), test.ShouldEqual, 2)
		test.That(t, pc.At(0).HasColor(), test.ShouldBeTrue)
		test.That(t, pc.At(1).HasColor(), test.ShouldBeFalse)
	})

	t.Run("round trip", func(t *testing.T) {
		in := NewFromPoints(NewColoredPoint(1, 2, 3, Color{R: 1}), NewBasicPoint(-4, 5, -6))
		positions, colors := ToBuffers(in)
		out := FromBuffers(in.Size(), positions, colors)
		test.That(t, out, test.ShouldResemble, in)
	})
}

func TestQueryBoundary(t *testing.T) {
	pc := NewFromPoints(NewBasicPoint(0, 0, 0), NewBasicPoint(1, 2, 3), NewBasicPoint(-1, 5, 0))
	b, err := QueryBoundary(pc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Min.Position, test.ShouldResemble, NewVector(-1, 0, 0))
	test.That(t, b.Max.Position, test.ShouldResemble, NewVector(1, 5, 3))
	test.That(t, b.Contains(NewVector(0, 1, 1)), test.ShouldBeTrue)
	test.That(t, b.Contains(NewVector(2, 1, 1)), test.ShouldBeFalse)
	test.That(t, b.Size(), test.ShouldResemble, NewVector(2, 5, 3))
	test.That(t, b.Center(), test.ShouldResemble, NewVector(0, 2.5, 1.5))

	single, err := QueryBoundary(NewFromPoints(NewBasicPoint(7, -8, 9)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, single.Min, test.ShouldResemble, single.Max)
	test.That(t, single.Min.Position, test.ShouldResemble, NewVector(7, -8, 9))

	_, err = QueryBoundary(New())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrEmptyInput), test.ShouldBeTrue)
	var emptyErr *EmptyInputError
	test.That(t, errors.As(err, &emptyErr), test.ShouldBeTrue)

	_, err = QueryBoundary(nil)
	test.That(t, errors.Is(err, ErrEmptyInput), test.ShouldBeTrue)
}

func TestKDTree(t *testing.T) {
	pc := NewFromPoints(
		NewBasicPoint(0, 0, 0),
		NewBasicPoint(1, 0, 0),
		NewBasicPoint(0, 2, 0),
		NewBasicPoint(0, 0, 3),
		NewBasicPoint(1, 0, 0),
	)
	kd := ToKDTree(pc)
	test.That(t, kd.Size(), test.ShouldEqual, 5)

	nn := kd.KNearestNeighbors(0, pc.At(0).Position, 3)
	test.That(t, len(nn), test.ShouldEqual, 3)
	test.That(t, nn[0], test.ShouldResemble, Neighbor{Index: 1, Distance: 1})
	test.That(t, nn[1], test.ShouldResemble, Neighbor{Index: 4, Distance: 1})
	test.That(t, nn[2], test.ShouldResemble, Neighbor{Index: 2, Distance: 2})

	dup := kd.KNearestNeighbors(1, pc.At(1).Position, 1)
	test.That(t, dup, test.ShouldResemble, []Neighbor{{Index: 4, Distance: 0}})

	within := kd.RadiusNearestNeighbors(0, pc.At(0).Position, 2.5)
	test.That(t, len(within), test.ShouldEqual, 3)
	for _, n := range within {
		test.That(t, n.Index, test.ShouldNotEqual, 0)
		test.That(t, n.Distance, test.ShouldBeLessThanOrEqualTo, 2.5)
	}

	all := kd.RadiusNearestNeighbors(-1, NewVector(0, 0, 0), 10)
	test.That(t, len(all), test.ShouldEqual, 5)

	empty := ToKDTree(New())
	test.That(t, empty.KNearestNeighbors(0, NewVector(0, 0, 0), 3), test.ShouldBeEmpty)
	test.That(t, empty.RadiusNearestNeighbors(0, NewVector(0, 0, 0), 3), test.ShouldBeEmpty)
}

func TestStatisticalOutlierFilter(t *testing.T) {
	_, err := StatisticalOutlierFilter(-1, 2.0)
	test.That(t, err, test.ShouldBeError)
	_, err = StatisticalOutlierFilter(4, 0.0)
	test.That(t, err, test.ShouldBeError)

	filter, err := StatisticalOutlierFilter(3, 1.5)
	test.That(t, err, test.ShouldBeNil)

	t.Run("empty", func(t *testing.T) {
		out, err := filter(New())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldEqual, 0)
	})

	t.Run("too few points to judge", func(t *testing.T) {
		in := NewFromPoints(NewBasicPoint(0, 0, 0), NewBasicPoint(100, 100, 100))
		out, err := filter(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldResemble, in)
	})

	t.Run("identical points are all kept", func(t *testing.T) {
		in := New()
		for i := 0; i < 10; i++ {
			in.Append(NewBasicPoint(1, 1, 1))
		}
		out, err := filter(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldEqual, 10)
	})

	t.Run("removes a far outlier and keeps order", func(t *testing.T) {
		in := New()
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				in.Append(NewBasicPoint(float64(x)*0.1, float64(y)*0.1, 1))
			}
		}
		in.Append(NewBasicPoint(10, 10, 10))
		out, err := filter(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldBeLessThan, in.Size())
		test.That(t, CloudContains(out, 10, 10, 10), test.ShouldBeFalse)
		test.That(t, CloudContains(out, 0.2, 0.2, 1), test.ShouldBeTrue)

		last := -1
		out.Iterate(func(_ int, p Point) bool {
			idx := -1
			in.Iterate(func(i int, q Point) bool {
				if q == p {
					idx = i
					return false
				}
				return true
			})
			test.That(t, idx, test.ShouldBeGreaterThan, last)
			last = idx
			return true
		})
	})

	t.Run("keeps the tabletop object", func(t *testing.T) {
		opts := DefaultTabletopOptions()
		opts.Outliers = 5
		in := MakeTabletopCloud(rand.New(rand.NewSource(1)), opts)
		sor, err := StatisticalOutlierFilter(DefaultMeanK, DefaultSigma)
		test.That(t, err, test.ShouldBeNil)
		out, err := sor(in)
		test.That(t, err, test.ShouldBeNil)
		objectPoints := 0
		farPoints := 0
		out.Iterate(func(_ int, p Point) bool {
			switch {
			case p.Position.Z > opts.TableZ+0.25:
				farPoints++
			case p.Position.Z > opts.TableZ+0.1:
				objectPoints++
			}
			return true
		})
		test.That(t, objectPoints, test.ShouldEqual, 50)
		test.That(t, farPoints, test.ShouldEqual, 0)
	})
}

func TestMakeTabletopCloud(t *testing.T) {
	opts := DefaultTabletopOptions()
	a := MakeTabletopCloud(rand.New(rand.NewSource(3)), opts)
	b := MakeTabletopCloud(rand.New(rand.NewSource(3)), opts)
	test.That(t, a.Size(), test.ShouldEqual, 1050)
	test.That(t, a, test.ShouldResemble, b)

	obj := TabletopObjectBounds(opts)
	test.That(t, obj.Min.Position.Z, test.ShouldAlmostEqual, 0.2)
	test.That(t, obj.Max.Position.X, test.ShouldAlmostEqual, 0.045)
}
