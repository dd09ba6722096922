package pointcloud

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Defaults for StatisticalOutlierFilter.
const (
	DefaultMeanK = 8
	DefaultSigma = 1.5
)

// outlierThresholdSlack is the share of the mean distance added to the
// outlier threshold so rounding never drops points with identical distances.
const outlierThresholdSlack = 1e-12

// StatisticalOutlierFilter returns a function that removes sparse outliers
// from a cloud. For every point it computes the mean distance to its meanK
// nearest neighbors; a point is kept iff that mean is at most
// mu + sigma*sd, where mu and sd are the mean and standard deviation of the
// per point values over the whole cloud. Kept points retain their order.
// Clouds with no more than meanK points have too few neighbors to judge and
// are returned as they are.
func StatisticalOutlierFilter(meanK int, sigma float64) (func(PointCloud) (PointCloud, error), error) {
	if meanK <= 0 {
		return nil, errors.Errorf("argument meanK must be a positive int, got %d", meanK)
	}
	if sigma <= 0.0 {
		return nil, errors.Errorf("argument sigma must be a positive float, got %.2f", sigma)
	}
	filterFunc := func(pc PointCloud) (PointCloud, error) {
		if pc == nil {
			return New(), nil
		}
		if pc.Size() <= meanK {
			return Clone(pc), nil
		}
		kd := ToKDTree(pc)
		avgDistances := make([]float64, pc.Size())
		pc.Iterate(func(i int, p Point) bool {
			neighbors := kd.KNearestNeighbors(i, p.Position, meanK)
			sum := 0.0
			for _, n := range neighbors {
				sum += n.Distance
			}
			avgDistances[i] = sum / float64(len(neighbors))
			return true
		})
		mean, stddev := stat.MeanStdDev(avgDistances, nil)
		if math.IsNaN(stddev) {
			stddev = 0
		}
		threshold := mean + sigma*stddev + outlierThresholdSlack*math.Abs(mean)

		kept := make([]int, 0, pc.Size())
		for i, d := range avgDistances {
			if d <= threshold {
				kept = append(kept, i)
			}
		}
		return Subset(pc, kept), nil
	}
	return filterFunc, nil
}
