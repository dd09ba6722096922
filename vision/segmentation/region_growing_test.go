package segmentation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	pc "go.viam.com/intact/pointcloud"
)

func TestGrowConfig(t *testing.T) {
	test.That(t, DefaultGrowConfig().CheckValid(), test.ShouldBeNil)

	cfg := DefaultGrowConfig()
	cfg.SeedDistance = 0
	test.That(t, cfg.CheckValid(), test.ShouldBeError)

	cfg = DefaultGrowConfig()
	cfg.MaxHeight = cfg.SeedDistance
	err := cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_height")

	cfg = DefaultGrowConfig()
	cfg.MinClusterPoints = 0
	test.That(t, cfg.CheckValid(), test.ShouldBeError)

	_, err = Grow(context.Background(), nil, pc.New(), cfg)
	test.That(t, err, test.ShouldBeError)
}

func TestGrowEdgeCases(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultGrowConfig()

	t.Run("empty in empty out", func(t *testing.T) {
		out, err := Grow(ctx, nil, pc.New(), cfg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldEqual, 0)
	})

	t.Run("degenerate plane", func(t *testing.T) {
		cloud := pc.NewFromPoints(pc.NewBasicPoint(1, 1, 1), pc.NewBasicPoint(2, 2, 2))
		plane, err := EstimatePlane(ctx, cloud)
		test.That(t, err, test.ShouldNotBeNil)
		_, err = Grow(ctx, plane, cloud, cfg)
		test.That(t, errors.Is(err, ErrDegenerateGeometry), test.ShouldBeTrue)
		_, err = Grow(ctx, nil, cloud, cfg)
		test.That(t, errors.Is(err, ErrDegenerateGeometry), test.ShouldBeTrue)
	})

	t.Run("plane only returns the whole surface", func(t *testing.T) {
		cloud := makeFlatGrid(10, 0.01, -1)
		plane, err := EstimatePlane(ctx, cloud)
		test.That(t, err, test.ShouldBeNil)
		out, err := Grow(ctx, plane, cloud, cfg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldResemble, cloud)
	})

	t.Run("detached seed islands are not support", func(t *testing.T) {
		cloud := makeFlatGrid(10, 0.01, -1)
		cloud.Append(pc.NewBasicPoint(3, 3, -1))
		plane, err := EstimatePlane(ctx, cloud)
		test.That(t, err, test.ShouldBeNil)
		out, err := Grow(ctx, plane, cloud, cfg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldEqual, 100)
		test.That(t, pc.CloudContains(out, 3, 3, -1), test.ShouldBeFalse)
	})

	t.Run("equal seed clusters prefer the one nearest the sensor", func(t *testing.T) {
		grid := func(x0, y0 float64) []pc.Point {
			var pts []pc.Point
			for i := 0; i < 5; i++ {
				for j := 0; j < 5; j++ {
					pts = append(pts, pc.NewBasicPoint(x0+float64(i)*0.01, y0+float64(j)*0.01, -1))
				}
			}
			return pts
		}
		near, far := grid(0.1, 0.1), grid(2, 2)
		for _, order := range [][][]pc.Point{{near, far}, {far, near}} {
			cloud := pc.NewFromPoints(append(append([]pc.Point{}, order[0]...), order[1]...)...)
			plane, err := EstimatePlane(ctx, cloud)
			test.That(t, err, test.ShouldBeNil)
			out, err := Grow(ctx, plane, cloud, cfg)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, out.Size(), test.ShouldEqual, 25)
			for _, p := range near {
				test.That(t, pc.CloudContains(out, p.Position.X, p.Position.Y, p.Position.Z), test.ShouldBeTrue)
			}
		}
	})
}

func TestGrowTabletop(t *testing.T) {
	ctx := context.Background()
	for _, tableZ := range []float64{0, -0.8} {
		opts := pc.DefaultTabletopOptions()
		opts.TableZ = tableZ
		cloud := pc.MakeTabletopCloud(rand.New(rand.NewSource(7)), opts)

		plane, err := EstimatePlane(ctx, cloud)
		test.That(t, err, test.ShouldBeNil)
		out, err := Grow(ctx, plane, cloud, DefaultGrowConfig())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldEqual, 50)

		// the object block comes after the 1000 table points
		for i := 0; i < out.Size(); i++ {
			test.That(t, out.At(i), test.ShouldResemble, cloud.At(1000+i))
		}
	}

	t.Run("small clusters are dropped", func(t *testing.T) {
		opts := pc.DefaultTabletopOptions()
		cloud := pc.MakeTabletopCloud(rand.New(rand.NewSource(7)), opts)
		cfg := DefaultGrowConfig()
		cfg.MinClusterPoints = 51
		plane, err := EstimatePlane(ctx, cloud)
		test.That(t, err, test.ShouldBeNil)
		out, err := Grow(ctx, plane, cloud, cfg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldEqual, 1000)
	})

	t.Run("points above max height are ignored", func(t *testing.T) {
		cloud := pc.MakeTabletopCloud(rand.New(rand.NewSource(7)), pc.DefaultTabletopOptions())
		cfg := DefaultGrowConfig()
		cfg.MaxHeight = 0.1
		plane, err := EstimatePlane(ctx, cloud)
		test.That(t, err, test.ShouldBeNil)
		out, err := Grow(ctx, plane, cloud, cfg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Size(), test.ShouldEqual, 1000)
	})
}
