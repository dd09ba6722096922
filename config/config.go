// Package config defines the structures to configure the interaction loop and
// its collaborators.
package config

import (
	"net"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/intact/export"
	"go.viam.com/intact/interaction"
	"go.viam.com/intact/render"
	"go.viam.com/intact/sensor"
	"go.viam.com/intact/vision/segmentation"
)

// DefaultSensorType is used when the config names no sensor.
const DefaultSensorType = "fake"

// A Config describes a full interaction run.
type Config struct {
	Sensor       sensor.Config       `json:"sensor"`
	Interval     time.Duration       `json:"interval"`
	Segmentation segmentation.Config `json:"segmentation"`
	Export       export.Config       `json:"export"`
	Render       Render              `json:"render"`
	Debug        bool                `json:"debug,omitempty"`
	// LogFile, when set, also writes logs to a rotating JSON file.
	LogFile string `json:"log_file,omitempty"`
}

// Render describes how published contexts are shown.
type Render struct {
	PollInterval time.Duration `json:"poll_interval"`
	// SnapshotPath is a png file redrawn on every publication.
	SnapshotPath string `json:"snapshot_path,omitempty"`
	// Listen is the host:port the websocket stream is served on.
	Listen string `json:"listen,omitempty"`
}

// Default returns the config used for anything a file leaves out.
func Default() Config {
	return Config{
		Sensor:       sensor.Config{Type: DefaultSensorType},
		Interval:     interaction.DefaultInterval,
		Segmentation: segmentation.DefaultConfig(),
		Render:       Render{PollInterval: render.DefaultPollInterval},
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if err := c.Sensor.Validate("sensor"); err != nil {
		return err
	}
	if c.Interval < 0 {
		return utils.NewConfigValidationError("interval", errors.Errorf("must not be negative, got %v", c.Interval))
	}
	if err := c.Segmentation.CheckValid(); err != nil {
		return utils.NewConfigValidationError("segmentation", err)
	}
	if err := c.Export.Validate("export"); err != nil {
		return err
	}
	return c.Render.Validate("render")
}

// Validate ensures all parts of the config are valid.
func (r *Render) Validate(path string) error {
	if r.PollInterval < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("poll_interval must not be negative, got %v", r.PollInterval))
	}
	if r.SnapshotPath != "" && filepath.Ext(r.SnapshotPath) != ".png" {
		return utils.NewConfigValidationError(path, errors.Errorf("snapshot_path must be a .png file, got %q", r.SnapshotPath))
	}
	if r.Listen != "" {
		if _, _, err := net.SplitHostPort(r.Listen); err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating listen"))
		}
	}
	return nil
}
