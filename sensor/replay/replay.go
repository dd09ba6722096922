// Package replay implements a depth sensor that plays back PCD files from a
// directory, one file per capture, in name order and wrapping around.
package replay

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
	"go.viam.com/intact/sensor"
)

// Type is the sensor type this package registers.
const Type = "replay"

func init() {
	sensor.Register(Type, sensor.Registration{
		Constructor: func(ctx context.Context, cfg sensor.Config, logger logging.Logger) (sensor.Capturer, error) {
			return NewCapturer(cfg.Path, logger)
		},
		NeedsPath: true,
	})
}

// Capturer replays recorded point clouds.
type Capturer struct {
	mu        sync.Mutex
	files     []string
	next      int
	recording bool
	mode      sensor.RecordMode
	logger    logging.Logger
}

// NewCapturer lists the PCD files of dir. It fails when there are none.
func NewCapturer(dir string, logger logging.Logger) (*Capturer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%q is not a directory", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.pcd"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no pcd files in %q", dir)
	}
	sort.Strings(files)
	logger.Infow("replaying point clouds", "dir", dir, "files", len(files))
	return &Capturer{files: files, logger: logger}, nil
}

// Record starts playback.
func (c *Capturer) Record(ctx context.Context, mode sensor.RecordMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = true
	c.mode = mode
	return nil
}

// Capture reads the next file.
func (c *Capturer) Capture(ctx context.Context) (*sensor.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return nil, sensor.NewReadError("capture", errors.New("sensor is not recording"))
	}
	fn := c.files[c.next%len(c.files)]
	c.next++

	cloud, err := readCloud(fn)
	if err != nil {
		return nil, sensor.NewReadError("capture", errors.Wrapf(err, "reading %q", fn))
	}
	c.logger.Debugw("replayed", "file", filepath.Base(fn), "points", cloud.Size())
	frame := sensor.NewFrame(cloud, time.Now())
	if c.mode == sensor.RecordModeDepthOnly {
		frame.Colors = nil
	}
	return frame, nil
}

func readCloud(fn string) (_ pc.PointCloud, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return pc.ReadPCD(f)
}

// Close stops playback.
func (c *Capturer) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = false
	return nil
}
