package render

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/intact/interaction"
	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
)

// LogDrawer writes every publication to a logger.
type LogDrawer struct {
	Logger logging.Logger
}

// Draw implements Drawer.
func (d LogDrawer) Draw(ctx context.Context, pub interaction.Publication) error {
	size := pub.Boundary.Size()
	d.Logger.Infow("interaction context",
		"seq", pub.Seq,
		"min", pub.Boundary.Min.Position,
		"max", pub.Boundary.Max.Position,
		"size", size,
		"center", pub.Boundary.Center(),
		"published", pub.Time,
	)
	return nil
}

var (
	scenePointColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	contextColor    = color.RGBA{R: 220, G: 40, B: 40, A: 255}
)

// PlotDrawer renders a top-down (XY) PNG of the scene with the published
// boundary drawn over it.
type PlotDrawer struct {
	path   string
	scenes SceneSource
	width  vg.Length
	height vg.Length
}

// NewPlotDrawer returns a drawer writing to path. scenes may be nil, in which
// case only the boundary is drawn.
func NewPlotDrawer(path string, scenes SceneSource) (*PlotDrawer, error) {
	if path == "" {
		return nil, errors.New("plot drawer needs an output path")
	}
	if filepath.Ext(path) != ".png" {
		return nil, errors.Errorf("plot drawer writes png files, got %q", path)
	}
	return &PlotDrawer{path: path, scenes: scenes, width: 6 * vg.Inch, height: 6 * vg.Inch}, nil
}

// Path is the file the drawer writes.
func (d *PlotDrawer) Path() string {
	return d.path
}

// Draw implements Drawer.
func (d *PlotDrawer) Draw(ctx context.Context, pub interaction.Publication) error {
	_, span := trace.StartSpan(ctx, "render::PlotDrawer::Draw")
	defer span.End()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Interaction context %d", pub.Seq)
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	label := "context"
	if d.scenes != nil {
		if scene := d.scenes.LastScene(); scene != nil && scene.Size() > 0 {
			label = fmt.Sprintf("context (%d points)", pointsInside(scene, pub.Boundary))
			pts := make(plotter.XYs, 0, scene.Size())
			scene.Iterate(func(_ int, pt pc.Point) bool {
				pts = append(pts, plotter.XY{X: pt.Position.X, Y: pt.Position.Y})
				return true
			})
			scatter, err := plotter.NewScatter(pts)
			if err != nil {
				return errors.Wrap(err, "scene scatter")
			}
			scatter.GlyphStyle.Color = scenePointColor
			scatter.GlyphStyle.Radius = vg.Points(1)
			scatter.GlyphStyle.Shape = draw.CircleGlyph{}
			md := scene.MetaData()
			scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
				style := scatter.GlyphStyle
				style.Color = heightColor(scene.At(i).Position.Z, md.MinZ, md.MaxZ)
				return style
			}
			p.Add(scatter)
			p.Legend.Add("scene", scatter)
		}
	}

	box, err := plotter.NewLine(boundaryOutline(pub.Boundary))
	if err != nil {
		return errors.Wrap(err, "boundary outline")
	}
	box.Color = contextColor
	box.Width = vg.Points(1.5)
	p.Add(box)
	p.Legend.Add(label, box)
	p.Legend.Top = true

	tmp := d.path + ".tmp.png"
	if err := p.Save(d.width, d.height, tmp); err != nil {
		return errors.Wrap(err, "saving plot")
	}
	return errors.Wrap(os.Rename(tmp, d.path), "moving plot into place")
}

// heightColor maps z in [lo, hi] from blue (low) to yellow (high). A flat
// scene is drawn in the neutral scene color.
func heightColor(z, lo, hi float64) color.Color {
	if hi <= lo {
		return scenePointColor
	}
	t := (z - lo) / (hi - lo)
	return colorful.Hsv(240-180*t, 0.8, 0.9).Clamped()
}

// pointsInside counts the points of cloud within b.
func pointsInside(cloud pc.PointCloud, b pc.Boundary) int {
	n := 0
	cloud.Iterate(func(_ int, p pc.Point) bool {
		if b.Contains(p.Position) {
			n++
		}
		return true
	})
	return n
}

// boundaryOutline is the closed XY rectangle of b.
func boundaryOutline(b pc.Boundary) plotter.XYs {
	lo, hi := b.Min.Position, b.Max.Position
	return plotter.XYs{
		{X: lo.X, Y: lo.Y},
		{X: hi.X, Y: lo.Y},
		{X: hi.X, Y: hi.Y},
		{X: lo.X, Y: hi.Y},
		{X: lo.X, Y: lo.Y},
	}
}
