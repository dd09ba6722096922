package segmentation

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	pc "go.viam.com/intact/pointcloud"
)

// GrowConfig holds the thresholds used by Grow. Distances are in the units of
// the sensor, meters by default.
type GrowConfig struct {
	// SeedDistance is the largest distance to the plane of a support surface point.
	SeedDistance float64 `json:"seed_distance"`
	// GrowRadius is the neighborhood radius that connects points into clusters.
	GrowRadius float64 `json:"grow_radius"`
	// MaxHeight is the largest distance from the plane of a context point.
	MaxHeight float64 `json:"max_height"`
	// MinClusterPoints is the smallest cluster of context points kept.
	MinClusterPoints int `json:"min_cluster_points"`
}

// DefaultGrowConfig returns the thresholds used for tabletop scenes.
func DefaultGrowConfig() GrowConfig {
	return GrowConfig{
		SeedDistance:     0.02,
		GrowRadius:       0.05,
		MaxHeight:        0.5,
		MinClusterPoints: 5,
	}
}

// CheckValid checks to see in the input values are valid.
func (cfg GrowConfig) CheckValid() error {
	if cfg.SeedDistance <= 0 {
		return errors.Errorf("seed_distance must be greater than zero, got %v", cfg.SeedDistance)
	}
	if cfg.GrowRadius <= 0 {
		return errors.Errorf("grow_radius must be greater than zero, got %v", cfg.GrowRadius)
	}
	if cfg.MaxHeight <= cfg.SeedDistance {
		return errors.Errorf("max_height must be greater than seed_distance %v, got %v", cfg.SeedDistance, cfg.MaxHeight)
	}
	if cfg.MinClusterPoints < 1 {
		return errors.Errorf("min_cluster_points must be at least 1, got %v", cfg.MinClusterPoints)
	}
	return nil
}

// Grow proposes the interaction context of a cloud given the plane estimated
// from it.
//
// Points within SeedDistance of the plane seed the support surface, which is
// the largest connected cluster of seeds. Points off the seed band but within
// MaxHeight, on the side of the plane holding more of them, and inside the
// support's footprint on the plane are grouped into connected clusters; those
// with at least MinClusterPoints points form the context. When no such
// cluster exists the support surface itself is returned.
//
// The result is a subset of the cloud in its original order. An empty cloud
// gives an empty result, and a cloud with no seeds at all gives an empty
// result too.
func Grow(ctx context.Context, plane *PlaneEstimate, cloud pc.PointCloud, cfg GrowConfig) (pc.PointCloud, error) {
	_, span := trace.StartSpan(ctx, "segmentation::Grow")
	defer span.End()

	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	if cloud == nil || cloud.Size() == 0 {
		return pc.New(), nil
	}
	if plane == nil || plane.Degenerate() {
		return nil, newDegenerateGeometryError("region growing needs a plane", cloud.Size())
	}

	distances := make([]float64, cloud.Size())
	seeds := make([]int, 0, cloud.Size())
	cloud.Iterate(func(i int, p pc.Point) bool {
		distances[i] = plane.Distance(p.Position)
		if math.Abs(distances[i]) <= cfg.SeedDistance {
			seeds = append(seeds, i)
		}
		return true
	})
	if len(seeds) == 0 {
		return pc.New(), nil
	}

	kd := pc.ToKDTree(cloud)
	support := largestCluster(cloud, RadiusBasedNearestNeighbors(cloud, kd, seeds, cfg.GrowRadius))
	fp := newFootprint(plane, cloud, support, cfg.GrowRadius)

	var above, below []int
	cloud.Iterate(func(i int, p pc.Point) bool {
		d := distances[i]
		if math.Abs(d) <= cfg.SeedDistance || math.Abs(d) > cfg.MaxHeight {
			return true
		}
		if !fp.contains(plane.Project(p.Position)) {
			return true
		}
		if d > 0 {
			above = append(above, i)
		} else {
			below = append(below, i)
		}
		return true
	})
	// the normal faces the sensor, so ties go to the positive side
	candidates := above
	if len(below) > len(above) {
		candidates = below
	}

	var objects []int
	if len(candidates) > 0 {
		clusters := PruneClusters(RadiusBasedNearestNeighbors(cloud, kd, candidates, cfg.GrowRadius), cfg.MinClusterPoints)
		for _, c := range clusters {
			objects = append(objects, c...)
		}
	}
	if len(objects) == 0 {
		return pc.Subset(cloud, support), nil
	}
	sort.Ints(objects)
	return pc.Subset(cloud, objects), nil
}

// largestCluster returns the cluster with the most points. Ties go to the
// cluster whose centroid is closest to the sensor origin.
func largestCluster(cloud pc.PointCloud, clusters [][]int) []int {
	var best []int
	bestDist := math.Inf(1)
	for _, c := range clusters {
		if len(c) < len(best) {
			continue
		}
		d := pc.CalculateMeanOfPointCloud(pc.Subset(cloud, c)).Norm()
		if len(c) > len(best) || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// footprint is the extent of the support surface in the plane basis.
type footprint struct {
	minU, maxU float64
	minW, maxW float64
}

func newFootprint(plane *PlaneEstimate, cloud pc.PointCloud, support []int, margin float64) footprint {
	fp := footprint{
		minU: math.Inf(1), maxU: math.Inf(-1),
		minW: math.Inf(1), maxW: math.Inf(-1),
	}
	for _, i := range support {
		u, w := plane.Project(cloud.At(i).Position)
		fp.minU, fp.maxU = math.Min(fp.minU, u), math.Max(fp.maxU, u)
		fp.minW, fp.maxW = math.Min(fp.minW, w), math.Max(fp.maxW, w)
	}
	fp.minU -= margin
	fp.maxU += margin
	fp.minW -= margin
	fp.maxW += margin
	return fp
}

func (fp footprint) contains(u, w float64) bool {
	return u >= fp.minU && u <= fp.maxU && w >= fp.minW && w <= fp.maxW
}
