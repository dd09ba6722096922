package segmentation

import (
	"github.com/pkg/errors"

	pc "go.viam.com/intact/pointcloud"
)

// Config are the parameters of the interaction context pipeline: the
// statistical filter run before and after region growing, the degeneracy
// tolerance of the plane estimate, and the region growing thresholds.
type Config struct {
	MeanK               int     `json:"mean_k"`
	Sigma               float64 `json:"sigma"`
	DegenerateTolerance float64 `json:"degenerate_tolerance"`
	SeedDistance        float64 `json:"seed_distance"`
	GrowRadius          float64 `json:"grow_radius"`
	MaxHeight           float64 `json:"max_height"`
	MinClusterPoints    int     `json:"min_cluster_points"`
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	grow := DefaultGrowConfig()
	return Config{
		MeanK:               pc.DefaultMeanK,
		Sigma:               pc.DefaultSigma,
		DegenerateTolerance: DefaultDegenerateTolerance,
		SeedDistance:        grow.SeedDistance,
		GrowRadius:          grow.GrowRadius,
		MaxHeight:           grow.MaxHeight,
		MinClusterPoints:    grow.MinClusterPoints,
	}
}

// Grow returns the region growing part of the config.
func (cfg Config) Grow() GrowConfig {
	return GrowConfig{
		SeedDistance:     cfg.SeedDistance,
		GrowRadius:       cfg.GrowRadius,
		MaxHeight:        cfg.MaxHeight,
		MinClusterPoints: cfg.MinClusterPoints,
	}
}

// CheckValid checks to see in the input values are valid.
func (cfg Config) CheckValid() error {
	if cfg.MeanK <= 0 {
		return errors.Errorf("mean_k must be greater than zero, got %v", cfg.MeanK)
	}
	if cfg.Sigma <= 0 {
		return errors.Errorf("sigma must be greater than zero, got %v", cfg.Sigma)
	}
	if cfg.DegenerateTolerance <= 0 || cfg.DegenerateTolerance >= 1 {
		return errors.Errorf("degenerate_tolerance must be between 0 and 1, got %v", cfg.DegenerateTolerance)
	}
	return cfg.Grow().CheckValid()
}
