// Package sensor defines the depth sensor that feeds the interaction loop:
// a device that is put into recording mode once and then delivers one frame
// of flat position and color buffers per capture.
package sensor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	pc "go.viam.com/intact/pointcloud"
)

// RecordMode selects which streams the sensor registers to each other.
type RecordMode int

const (
	// RecordModeColorToDepth maps the color stream onto the depth stream so
	// every point carries a color.
	RecordModeColorToDepth RecordMode = iota
	// RecordModeDepthOnly records positions without color.
	RecordModeDepthOnly
)

func (m RecordMode) String() string {
	switch m {
	case RecordModeColorToDepth:
		return "color_to_depth"
	case RecordModeDepthOnly:
		return "depth_only"
	default:
		return "unknown"
	}
}

// ParseRecordMode parses the name of a RecordMode. The empty string selects
// RecordModeColorToDepth.
func ParseRecordMode(s string) (RecordMode, error) {
	switch s {
	case "", "color_to_depth":
		return RecordModeColorToDepth, nil
	case "depth_only":
		return RecordModeDepthOnly, nil
	default:
		return 0, errors.Errorf("unknown record mode %q", s)
	}
}

// A Capturer is a depth sensor.
type Capturer interface {
	// Record starts recording in the given mode. It is called once before
	// the first capture.
	Record(ctx context.Context, mode RecordMode) error

	// Capture returns the most recent frame. Failures are reported as a
	// *ReadError.
	Capture(ctx context.Context) (*Frame, error)

	// Close stops recording and releases the device.
	Close(ctx context.Context) error
}

// Frame is one capture: NumPoints samples with 3 position and 3 color values
// each. A sample whose position holds pc.NoReturnSentinel had no return.
type Frame struct {
	NumPoints  int
	Positions  []float32
	Colors     []float32
	CapturedAt time.Time
}

// NewFrame flattens a cloud into a frame.
func NewFrame(cloud pc.PointCloud, capturedAt time.Time) *Frame {
	positions, colors := pc.ToBuffers(cloud)
	return &Frame{
		NumPoints:  cloud.Size(),
		Positions:  positions,
		Colors:     colors,
		CapturedAt: capturedAt,
	}
}

// Validate reports frames whose buffers cannot hold NumPoints samples.
// Colors may be missing entirely.
func (f *Frame) Validate() error {
	if f == nil {
		return NewReadError("validate frame", errors.New("no frame"))
	}
	if f.NumPoints < 0 {
		return NewReadError("validate frame", errors.Errorf("negative point count %d", f.NumPoints))
	}
	if len(f.Positions) < 3*f.NumPoints {
		return NewReadError("validate frame",
			errors.Errorf("position buffer holds %d values, need %d", len(f.Positions), 3*f.NumPoints))
	}
	if len(f.Colors) != 0 && len(f.Colors) < 3*f.NumPoints {
		return NewReadError("validate frame",
			errors.Errorf("color buffer holds %d values, need %d", len(f.Colors), 3*f.NumPoints))
	}
	return nil
}

// PointCloud extracts the valid samples of the frame.
func (f *Frame) PointCloud() pc.PointCloud {
	return pc.FromBuffers(f.NumPoints, f.Positions, f.Colors)
}
