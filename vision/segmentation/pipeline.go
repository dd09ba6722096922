package segmentation

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
)

// Pipeline runs the stages that turn a scene cloud into its interaction
// context. The stages are exposed one by one so callers can track where a
// cycle stopped; Find runs them all.
type Pipeline struct {
	cfg    Config
	filter func(pc.PointCloud) (pc.PointCloud, error)
	logger logging.Logger
}

// NewPipeline validates the config and builds the outlier filter.
func NewPipeline(cfg Config, logger logging.Logger) (*Pipeline, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "segmentation config")
	}
	filter, err := pc.StatisticalOutlierFilter(cfg.MeanK, cfg.Sigma)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, filter: filter, logger: logger}, nil
}

// Config returns the parameters of the pipeline.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Denoise removes statistical outliers from the cloud.
func (p *Pipeline) Denoise(ctx context.Context, cloud pc.PointCloud) (pc.PointCloud, error) {
	_, span := trace.StartSpan(ctx, "segmentation::Denoise")
	defer span.End()

	filtered, err := p.filter(cloud)
	if err != nil {
		return nil, err
	}
	if cloud != nil {
		p.logger.Debugw("denoised", "in", cloud.Size(), "out", filtered.Size())
	}
	return filtered, nil
}

// EstimatePlane fits the dominant plane of the cloud.
func (p *Pipeline) EstimatePlane(ctx context.Context, cloud pc.PointCloud) (*PlaneEstimate, error) {
	plane, err := EstimatePlaneWithTolerance(ctx, cloud, p.cfg.DegenerateTolerance)
	if err != nil {
		return plane, err
	}
	p.logger.Debugw("estimated plane",
		"normal", plane.Normal(),
		"centroid", plane.Centroid,
		"singular_values", plane.SingularValues)
	return plane, nil
}

// Grow proposes the interaction context of the cloud.
func (p *Pipeline) Grow(ctx context.Context, plane *PlaneEstimate, cloud pc.PointCloud) (pc.PointCloud, error) {
	segment, err := Grow(ctx, plane, cloud, p.cfg.Grow())
	if err != nil {
		return nil, err
	}
	p.logger.Debugw("grew region", "out", segment.Size())
	return segment, nil
}

// Result is the output of every stage of Find.
type Result struct {
	Denoised pc.PointCloud
	Plane    *PlaneEstimate
	Grown    pc.PointCloud
	Segment  pc.PointCloud
}

// Find runs denoise, plane estimation, region growing and a second denoise
// over the scene. The stages completed before an error are kept in the
// returned result.
func (p *Pipeline) Find(ctx context.Context, scene pc.PointCloud) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "segmentation::Find")
	defer span.End()

	res := &Result{}
	var err error
	if res.Denoised, err = p.Denoise(ctx, scene); err != nil {
		return res, err
	}
	if res.Plane, err = p.EstimatePlane(ctx, res.Denoised); err != nil {
		return res, err
	}
	if res.Grown, err = p.Grow(ctx, res.Plane, res.Denoised); err != nil {
		return res, err
	}
	if res.Segment, err = p.Denoise(ctx, res.Grown); err != nil {
		return res, err
	}
	return res, nil
}
