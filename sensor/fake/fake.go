// Package fake implements a depth sensor that renders a synthetic tabletop
// scene on every capture.
package fake

import (
	"context"
	"math/rand"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
	"go.viam.com/intact/sensor"
)

// Type is the sensor type this package registers.
const Type = "fake"

// DefaultTableZ places the table below the sensor so that no sample lies on
// the no return sentinel.
const DefaultTableZ = -0.8

func init() {
	sensor.Register(Type, sensor.Registration{
		Constructor: func(ctx context.Context, cfg sensor.Config, logger logging.Logger) (sensor.Capturer, error) {
			return NewCapturer(cfg.Seed, logger), nil
		},
	})
}

// SceneFunc renders the scene returned by one capture.
type SceneFunc func(rng *rand.Rand) pc.PointCloud

// TabletopScene renders the synthetic tabletop with the given options.
func TabletopScene(opts pc.TabletopOptions) SceneFunc {
	return func(rng *rand.Rand) pc.PointCloud {
		return pc.MakeTabletopCloud(rng, opts)
	}
}

// Capturer is a deterministic fake depth sensor.
type Capturer struct {
	mu        sync.Mutex
	rng       *rand.Rand
	scene     SceneFunc
	clk       clock.Clock
	recording bool
	mode      sensor.RecordMode
	failures  int
	closed    bool

	captures atomic.Int64
	logger   logging.Logger
}

// NewCapturer returns a fake sensor rendering a tabletop with an object and a
// few outliers. The same seed yields the same sequence of frames.
func NewCapturer(seed int64, logger logging.Logger) *Capturer {
	opts := pc.DefaultTabletopOptions()
	opts.TableZ = DefaultTableZ
	opts.Outliers = 5
	return &Capturer{
		//nolint:gosec
		rng:    rand.New(rand.NewSource(seed)),
		scene:  TabletopScene(opts),
		clk:    clock.New(),
		logger: logger,
	}
}

// SetScene replaces the scene rendered by later captures.
func (c *Capturer) SetScene(scene SceneFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scene = scene
}

// SetClock replaces the clock used to stamp frames.
func (c *Capturer) SetClock(clk clock.Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clk = clk
}

// FailCaptures makes the next n captures fail with a read error.
func (c *Capturer) FailCaptures(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = n
}

// Captures returns the number of captures attempted.
func (c *Capturer) Captures() int64 {
	return c.captures.Load()
}

// Mode returns the mode recording was started with.
func (c *Capturer) Mode() sensor.RecordMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Record starts recording.
func (c *Capturer) Record(ctx context.Context, mode sensor.RecordMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return sensor.NewReadError("record", errors.New("sensor is closed"))
	}
	c.recording = true
	c.mode = mode
	c.logger.Debugw("recording", "mode", mode)
	return nil
}

// Capture renders the next frame.
func (c *Capturer) Capture(ctx context.Context) (*sensor.Frame, error) {
	c.captures.Inc()
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return nil, sensor.NewReadError("capture", errors.New("sensor is closed"))
	case !c.recording:
		return nil, sensor.NewReadError("capture", errors.New("sensor is not recording"))
	case c.failures > 0:
		c.failures--
		return nil, sensor.NewReadError("capture", errors.New("injected failure"))
	}

	frame := sensor.NewFrame(c.scene(c.rng), c.clk.Now())
	if c.mode == sensor.RecordModeDepthOnly {
		frame.Colors = nil
	}
	return frame, nil
}

// Close stops recording.
func (c *Capturer) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.recording = false
	return nil
}
