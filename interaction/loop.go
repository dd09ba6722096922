// Package interaction runs the continuous segmentation loop: every cycle
// captures a frame, extracts and denoises the scene, estimates the support
// plane, grows the interaction context, exports the clouds and publishes the
// context's bounding box for renderers to pick up.
package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/intact/export"
	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
	"go.viam.com/intact/sensor"
	"go.viam.com/intact/vision/segmentation"
)

// DefaultInterval is the wait between the end of one cycle and the start of
// the next.
const DefaultInterval = 2 * time.Second

// Options tune a Loop. Zero values select the defaults.
type Options struct {
	Interval   time.Duration
	RecordMode sensor.RecordMode
	Clock      clock.Clock
}

// Snapshot is the data of the last cycle that got past extraction. Segment
// is nil when the cycle stopped before the second denoise.
type Snapshot struct {
	Cycle   int64
	Scene   pc.PointCloud
	Segment pc.PointCloud
}

// Stats counts what the loop has done so far.
type Stats struct {
	Cycles    int64
	Published int64
	Failed    int64
	LastStage Stage
	LastError error
}

// CycleResult describes one cycle.
type CycleResult struct {
	Cycle     int64
	Stage     Stage
	Published bool
	Boundary  pc.Boundary
	Duration  time.Duration
}

// Loop runs segmentation cycles in the background until closed.
type Loop struct {
	capturer sensor.Capturer
	pipeline *segmentation.Pipeline
	exporter export.Exporter
	sink     ContextSink
	interval time.Duration
	mode     sensor.RecordMode
	clk      clock.Clock
	logger   logging.Logger
	runID    string

	mu                      sync.Mutex
	started                 bool
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup

	cycles    atomic.Int64
	published atomic.Int64
	failed    atomic.Int64
	lastStage atomic.Int32
	lastErr   atomic.Error
	snapshot  atomic.Pointer[Snapshot]
}

// NewLoop returns a loop that has not started yet. A nil exporter disables
// export.
func NewLoop(
	capturer sensor.Capturer,
	pipeline *segmentation.Pipeline,
	exporter export.Exporter,
	sink ContextSink,
	opts Options,
	logger logging.Logger,
) *Loop {
	if exporter == nil {
		exporter = export.Nop{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	l := &Loop{
		capturer: capturer,
		pipeline: pipeline,
		exporter: exporter,
		sink:     sink,
		interval: opts.Interval,
		mode:     opts.RecordMode,
		clk:      opts.Clock,
		logger:   logger,
		runID:    uuid.NewString(),
	}
	l.lastStage.Store(int32(StageIdle))
	return l
}

// RunID identifies this loop in logs.
func (l *Loop) RunID() string {
	return l.runID
}

// Start puts the sensor into recording mode and launches the background
// cycles. It fails if recording cannot be started or the loop already ran.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return errors.New("loop already started")
	}
	if err := l.capturer.Record(ctx, l.mode); err != nil {
		if !errors.Is(err, sensor.ErrSensorRead) {
			err = sensor.NewReadError("record", err)
		}
		return err
	}
	l.started = true

	cancelCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.logger.Infow("starting interaction loop", "run_id", l.runID, "interval", l.interval, "record_mode", l.mode)

	l.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		for {
			select {
			case <-cancelCtx.Done():
				return
			default:
			}

			_, _ = l.RunCycle(cancelCtx)

			if !l.wait(cancelCtx) {
				return
			}
		}
	}, l.activeBackgroundWorkers.Done)
	return nil
}

// wait sleeps for the interval on the loop clock. It returns false as soon as
// ctx is done.
func (l *Loop) wait(ctx context.Context) bool {
	timer := l.clk.Timer(l.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close stops the background cycles and waits for the running one to end.
// It does not close the sensor.
func (l *Loop) Close() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.activeBackgroundWorkers.Wait()
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:    l.cycles.Load(),
		Published: l.published.Load(),
		Failed:    l.failed.Load(),
		LastStage: Stage(l.lastStage.Load()),
		LastError: l.lastErr.Load(),
	}
}

// LastSnapshot returns the data of the latest cycle that extracted a scene,
// or nil.
func (l *Loop) LastSnapshot() *Snapshot {
	return l.snapshot.Load()
}

// LastScene returns the latest extracted scene, or nil.
func (l *Loop) LastScene() pc.PointCloud {
	if s := l.snapshot.Load(); s != nil {
		return s.Scene
	}
	return nil
}

func (l *Loop) runStage(ctx context.Context, stage Stage, f func(ctx context.Context) error) error {
	l.lastStage.Store(int32(stage))
	ctx, span := trace.StartSpan(ctx, "interaction::"+stage.String())
	defer span.End()
	return f(ctx)
}

// RunCycle runs one cycle to completion. A failing stage ends the cycle
// without publishing, so the previously published boundary stays in place.
// Only the export stage may fail without ending the cycle.
func (l *Loop) RunCycle(ctx context.Context) (CycleResult, error) {
	start := l.clk.Now()
	res := CycleResult{Cycle: l.cycles.Inc()}
	ctx, span := trace.StartSpan(ctx, "interaction::RunCycle")
	defer span.End()

	var (
		frame   *sensor.Frame
		scene   pc.PointCloud
		cleaned pc.PointCloud
		plane   *segmentation.PlaneEstimate
		grown   pc.PointCloud
		segment pc.PointCloud
	)
	stages := []struct {
		stage Stage
		run   func(ctx context.Context) error
	}{
		{StageCapture, func(ctx context.Context) error {
			var err error
			if frame, err = l.capturer.Capture(ctx); err != nil {
				if !errors.Is(err, sensor.ErrSensorRead) {
					err = sensor.NewReadError("capture", err)
				}
				return err
			}
			return frame.Validate()
		}},
		{StageExtract, func(ctx context.Context) error {
			scene = frame.PointCloud()
			l.snapshot.Store(&Snapshot{Cycle: res.Cycle, Scene: scene})
			return nil
		}},
		{StageDenoise1, func(ctx context.Context) error {
			var err error
			cleaned, err = l.pipeline.Denoise(ctx, scene)
			return err
		}},
		{StagePlaneEstimate, func(ctx context.Context) error {
			var err error
			plane, err = l.pipeline.EstimatePlane(ctx, cleaned)
			return err
		}},
		{StageGrow, func(ctx context.Context) error {
			var err error
			grown, err = l.pipeline.Grow(ctx, plane, cleaned)
			return err
		}},
		{StageDenoise2, func(ctx context.Context) error {
			var err error
			if segment, err = l.pipeline.Denoise(ctx, grown); err != nil {
				return err
			}
			l.snapshot.Store(&Snapshot{Cycle: res.Cycle, Scene: scene, Segment: segment})
			return nil
		}},
		{StageExport, func(ctx context.Context) error {
			if err := l.exporter.Export(ctx, scene, segment); err != nil {
				l.logger.Warnw("export failed", "cycle", res.Cycle, "error", err)
			}
			return nil
		}},
		{StageBoundary, func(ctx context.Context) error {
			var err error
			res.Boundary, err = pc.QueryBoundary(segment)
			return err
		}},
		{StagePublish, func(ctx context.Context) error {
			l.sink.SetContextBounds(res.Boundary)
			return nil
		}},
	}

	for _, s := range stages {
		res.Stage = s.stage
		if err := l.runStage(ctx, s.stage, s.run); err != nil {
			return l.fail(res, start, err)
		}
	}
	res.Published = true
	res.Duration = l.clk.Since(start)
	l.published.Inc()
	l.lastErr.Store(nil)
	l.lastStage.Store(int32(StageIdle))
	l.logger.Infow("published interaction context",
		"cycle", res.Cycle,
		"boundary", res.Boundary.String(),
		"points", segment.Size(),
		"duration", res.Duration)
	return res, nil
}

func (l *Loop) fail(res CycleResult, start time.Time, err error) (CycleResult, error) {
	res.Duration = l.clk.Since(start)
	l.failed.Inc()
	l.lastErr.Store(err)
	l.lastStage.Store(int32(StageIdle))

	fields := []interface{}{"cycle", res.Cycle, "stage", res.Stage, "error", err}
	switch {
	case errors.Is(err, sensor.ErrSensorRead):
		l.logger.Warnw("sensor read failed, keeping previous context", fields...)
	case errors.Is(err, segmentation.ErrDegenerateGeometry):
		l.logger.Warnw("no plane in scene, keeping previous context", fields...)
	case errors.Is(err, pc.ErrEmptyInput):
		l.logger.Warnw("empty interaction context, keeping previous context", fields...)
	default:
		l.logger.Errorw("cycle failed", fields...)
	}
	return res, errors.Wrapf(err, "cycle %d failed at %s", res.Cycle, res.Stage)
}
