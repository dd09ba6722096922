package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
	"go.viam.com/intact/sensor"
)

func writePCD(t *testing.T, fn string, cloud pc.PointCloud) {
	t.Helper()
	test.That(t, pc.WriteToFile(cloud, fn), test.ShouldBeNil)
}

func TestCapturer(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	_, err := NewCapturer(dir, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no pcd files")

	_, err = NewCapturer(filepath.Join(dir, "missing"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	writePCD(t, filepath.Join(dir, "b.pcd"), pc.NewFromPoints(pc.NewBasicPoint(2, 2, 2), pc.NewBasicPoint(3, 3, 3)))
	writePCD(t, filepath.Join(dir, "a.pcd"), pc.NewFromPoints(pc.NewColoredPoint(1, 1, 1, pc.Color{G: 1})))
	test.That(t, os.WriteFile(filepath.Join(dir, "c.pcd"), []byte("garbage\n"), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600), test.ShouldBeNil)

	c, err := sensor.New(ctx, sensor.Config{Type: Type, Path: dir}, logger)
	test.That(t, err, test.ShouldBeNil)

	_, err = c.Capture(ctx)
	test.That(t, errors.Is(err, sensor.ErrSensorRead), test.ShouldBeTrue)

	test.That(t, c.Record(ctx, sensor.RecordModeColorToDepth), test.ShouldBeNil)

	frame, err := c.Capture(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.NumPoints, test.ShouldEqual, 1)
	test.That(t, frame.PointCloud().At(0).Color, test.ShouldResemble, pc.Color{G: 1})

	frame, err = c.Capture(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.NumPoints, test.ShouldEqual, 2)

	_, err = c.Capture(ctx)
	test.That(t, errors.Is(err, sensor.ErrSensorRead), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "c.pcd")

	// wraps around
	frame, err = c.Capture(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.NumPoints, test.ShouldEqual, 1)

	test.That(t, c.Close(ctx), test.ShouldBeNil)
	_, err = c.Capture(ctx)
	test.That(t, errors.Is(err, sensor.ErrSensorRead), test.ShouldBeTrue)
}
