// Package export writes the scene and the interaction context of every cycle
// to disk for offline inspection.
package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
)

// An Exporter receives the scene and the final segment of a cycle.
type Exporter interface {
	Export(ctx context.Context, scene, segment pc.PointCloud) error
}

// Nop discards everything.
type Nop struct{}

// Export does nothing.
func (Nop) Export(ctx context.Context, scene, segment pc.PointCloud) error {
	return nil
}

// Format is a point cloud file format.
type Format string

// The supported formats.
const (
	FormatPLY = Format("ply")
	FormatPCD = Format("pcd")
	FormatLAS = Format("las")
)

// ParseFormat parses a format name. The empty string selects FormatPLY.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatPLY:
		return FormatPLY, nil
	case FormatPCD, FormatLAS:
		return Format(s), nil
	default:
		return "", errors.Errorf("unknown export format %q", s)
	}
}

// DefaultPrefix names the exported files when no prefix is configured.
const DefaultPrefix = "interaction"

// Config describes where and how clouds are exported. An empty Dir disables
// export.
type Config struct {
	Dir       string `json:"dir,omitempty"`
	Format    string `json:"format,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	PCDBinary bool   `json:"pcd_binary,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if _, err := ParseFormat(cfg.Format); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if cfg.PCDBinary && Format(cfg.Format) != FormatPCD {
		return goutils.NewConfigValidationError(path, errors.New("pcd_binary requires format pcd"))
	}
	if cfg.Prefix != "" && filepath.Base(cfg.Prefix) != cfg.Prefix {
		return goutils.NewConfigValidationError(path, errors.Errorf("prefix %q must not contain a path", cfg.Prefix))
	}
	return nil
}

// New returns the exporter described by cfg.
func New(cfg Config, logger logging.Logger) (Exporter, error) {
	if cfg.Dir == "" {
		return Nop{}, nil
	}
	return NewFileExporter(cfg, logger)
}

// FileExporter writes <dir>/<prefix>_scene.<ext> and
// <dir>/<prefix>_context.<ext>, replacing them every cycle.
type FileExporter struct {
	dir     string
	prefix  string
	format  Format
	pcdType pc.PCDType
	logger  logging.Logger
}

// NewFileExporter creates the export directory if needed.
func NewFileExporter(cfg Config, logger logging.Logger) (*FileExporter, error) {
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating export directory %q", cfg.Dir)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	pcdType := pc.PCDAscii
	if cfg.PCDBinary {
		pcdType = pc.PCDBinary
	}
	return &FileExporter{
		dir:     cfg.Dir,
		prefix:  prefix,
		format:  format,
		pcdType: pcdType,
		logger:  logger,
	}, nil
}

// ScenePath returns the file the scene is written to.
func (e *FileExporter) ScenePath() string {
	return e.path("scene")
}

// ContextPath returns the file the interaction context is written to.
func (e *FileExporter) ContextPath() string {
	return e.path("context")
}

func (e *FileExporter) path(kind string) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s.%s", e.prefix, kind, e.format))
}

// Export writes both clouds concurrently. A nil cloud is skipped.
func (e *FileExporter) Export(ctx context.Context, scene, segment pc.PointCloud) error {
	_, span := trace.StartSpan(ctx, "export::Export")
	defer span.End()

	var errs errgroup.Group
	if scene != nil {
		errs.Go(func() error { return e.write(scene, e.ScenePath()) })
	}
	if segment != nil {
		errs.Go(func() error { return e.write(segment, e.ContextPath()) })
	}
	if err := errs.Wait(); err != nil {
		return err
	}
	e.logger.Debugw("exported", "dir", e.dir, "format", e.format)
	return nil
}

// write goes through a temporary file so readers never see a partial cloud.
func (e *FileExporter) write(cloud pc.PointCloud, fn string) error {
	ext := filepath.Ext(fn)
	tmp := strings.TrimSuffix(fn, ext) + ".tmp" + ext
	var err error
	switch e.format {
	case FormatLAS:
		err = pc.WriteToLASFile(cloud, tmp)
	case FormatPCD:
		err = writeFile(tmp, func(w io.Writer) error { return pc.ToPCD(cloud, w, e.pcdType) })
	default:
		err = writeFile(tmp, func(w io.Writer) error { return pc.ToPLY(cloud, w) })
	}
	if err != nil {
		return multierr.Combine(errors.Wrapf(err, "writing %q", fn), removeIfExists(tmp))
	}
	return os.Rename(tmp, fn)
}

func writeFile(fn string, write func(io.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}

func removeIfExists(fn string) error {
	if err := os.Remove(fn); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
