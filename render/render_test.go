package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/intact/interaction"
	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
)

type recordingDrawer struct {
	mu   sync.Mutex
	seqs []int64
	err  error
}

func (d *recordingDrawer) Draw(ctx context.Context, pub interaction.Publication) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seqs = append(d.seqs, pub.Seq)
	return d.err
}

func (d *recordingDrawer) drawn() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.seqs...)
}

type staticScene struct {
	cloud pc.PointCloud
}

func (s staticScene) LastScene() pc.PointCloud {
	return s.cloud
}

func testBoundary(minX, maxX float64) pc.Boundary {
	return pc.Boundary{
		Min: pc.NewBasicPoint(minX, -0.1, -0.8),
		Max: pc.NewBasicPoint(maxX, 0.1, -0.6),
	}
}

func TestPollerDrawsEachPublicationOnce(t *testing.T) {
	store := interaction.NewBoundaryStore(clock.NewMock())
	drawer := &recordingDrawer{}
	poller := NewPoller(store, drawer, 0, clock.NewMock(), logging.NewTestLogger(t))
	ctx := context.Background()

	drew, err := poller.PollOnce(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drew, test.ShouldBeFalse)

	store.SetContextBounds(testBoundary(-0.1, 0.1))
	drew, err = poller.PollOnce(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drew, test.ShouldBeTrue)

	drew, err = poller.PollOnce(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drew, test.ShouldBeFalse)

	store.SetContextBounds(testBoundary(-0.2, 0.2))
	store.SetContextBounds(testBoundary(-0.3, 0.3))
	drew, err = poller.PollOnce(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drew, test.ShouldBeTrue)

	test.That(t, drawer.drawn(), test.ShouldResemble, []int64{1, 3})
	test.That(t, poller.Draws(), test.ShouldEqual, int64(2))
}

func TestPollerDrawError(t *testing.T) {
	store := interaction.NewBoundaryStore(clock.NewMock())
	store.SetContextBounds(testBoundary(-0.1, 0.1))
	drawer := &recordingDrawer{err: errors.New("no display")}
	poller := NewPoller(store, drawer, 0, nil, logging.NewTestLogger(t))

	drew, err := poller.PollOnce(context.Background())
	test.That(t, drew, test.ShouldBeTrue)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no display")

	// a failed publication is not retried
	drew, err = poller.PollOnce(context.Background())
	test.That(t, drew, test.ShouldBeFalse)
	test.That(t, err, test.ShouldBeNil)
}

func TestPollerBackground(t *testing.T) {
	mock := clock.NewMock()
	store := interaction.NewBoundaryStore(mock)
	drawer := &recordingDrawer{}
	poller := NewPoller(store, drawer, DefaultPollInterval, mock, logging.NewTestLogger(t))

	store.SetContextBounds(testBoundary(-0.1, 0.1))
	test.That(t, poller.Start(context.Background()), test.ShouldBeNil)
	test.That(t, poller.Start(context.Background()), test.ShouldNotBeNil)
	defer poller.Close()

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, drawer.drawn(), test.ShouldResemble, []int64{1})
	})

	store.SetContextBounds(testBoundary(-0.2, 0.2))
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mock.Add(DefaultPollInterval)
		test.That(tb, drawer.drawn(), test.ShouldResemble, []int64{1, 2})
	})

	poller.Close()
	store.SetContextBounds(testBoundary(-0.3, 0.3))
	mock.Add(10 * DefaultPollInterval)
	test.That(t, drawer.drawn(), test.ShouldResemble, []int64{1, 2})
}

func TestMultiDrawer(t *testing.T) {
	a := &recordingDrawer{err: errors.New("a failed")}
	b := &recordingDrawer{}
	pub := interaction.Publication{Boundary: testBoundary(0, 1), Seq: 7}

	err := MultiDrawer{a, b}.Draw(context.Background(), pub)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "a failed")
	test.That(t, a.drawn(), test.ShouldResemble, []int64{7})
	test.That(t, b.drawn(), test.ShouldResemble, []int64{7})
}

func TestLogDrawer(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	pub := interaction.Publication{Boundary: testBoundary(0, 1), Seq: 4}
	test.That(t, LogDrawer{Logger: logger}.Draw(context.Background(), pub), test.ShouldBeNil)

	entries := logs.FilterMessage("interaction context").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["seq"], test.ShouldEqual, int64(4))
	test.That(t, entries[0].ContextMap()["center"], test.ShouldNotBeNil)
}

func TestPlotDrawer(t *testing.T) {
	_, err := NewPlotDrawer("", nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPlotDrawer(filepath.Join(t.TempDir(), "context.svg"), nil)
	test.That(t, err, test.ShouldNotBeNil)

	scene := pc.NewFromPoints(
		pc.NewBasicPoint(-0.5, -0.3, -0.8),
		pc.NewBasicPoint(0.5, 0.3, -0.8),
		pc.NewBasicPoint(0.01, 0.02, -0.7),
	)
	path := filepath.Join(t.TempDir(), "context.png")
	drawer, err := NewPlotDrawer(path, staticScene{cloud: scene})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drawer.Path(), test.ShouldEqual, path)

	pub := interaction.Publication{Boundary: testBoundary(-0.05, 0.05), Seq: 1}
	test.That(t, drawer.Draw(context.Background(), pub), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bytes.HasPrefix(data, []byte("\x89PNG")), test.ShouldBeTrue)
	_, err = os.Stat(path + ".tmp.png")
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	// no scene yet
	empty, err := NewPlotDrawer(filepath.Join(t.TempDir(), "empty.png"), staticScene{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Draw(context.Background(), pub), test.ShouldBeNil)
}

func TestBoundaryOutline(t *testing.T) {
	xys := boundaryOutline(testBoundary(-1, 2))
	test.That(t, xys, test.ShouldHaveLength, 5)
	test.That(t, xys[0], test.ShouldResemble, xys[4])
	test.That(t, xys[2].X, test.ShouldEqual, 2.)
	test.That(t, xys[2].Y, test.ShouldEqual, 0.1)
}

func TestPointsInside(t *testing.T) {
	scene := pc.NewFromPoints(
		pc.NewBasicPoint(-0.5, -0.3, -0.8),
		pc.NewBasicPoint(0.5, 0.3, -0.8),
		pc.NewBasicPoint(0.01, 0.02, -0.7),
		pc.NewBasicPoint(0.05, 0.1, -0.6),
	)
	test.That(t, pointsInside(scene, testBoundary(-0.05, 0.05)), test.ShouldEqual, 2)
	test.That(t, pointsInside(scene, testBoundary(1, 2)), test.ShouldEqual, 0)
	test.That(t, pointsInside(pc.New(), testBoundary(-1, 1)), test.ShouldEqual, 0)
}

func TestHeightColor(t *testing.T) {
	test.That(t, heightColor(1, 1, 1), test.ShouldResemble, scenePointColor)

	low, ok := colorful.MakeColor(heightColor(-0.8, -0.8, -0.6))
	test.That(t, ok, test.ShouldBeTrue)
	high, ok := colorful.MakeColor(heightColor(-0.6, -0.8, -0.6))
	test.That(t, ok, test.ShouldBeTrue)
	lowHue, _, _ := low.Hsv()
	highHue, _, _ := high.Hsv()
	test.That(t, lowHue, test.ShouldAlmostEqual, 240, 1)
	test.That(t, highHue, test.ShouldAlmostEqual, 60, 1)
}
