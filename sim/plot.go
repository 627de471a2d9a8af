package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/detection"
	"github.com/jjwakefield/ELPF/state"
)

// inverter back-projects a measurement to the Cartesian position it was
// taken from. Measurement models in non-Cartesian spaces implement it so
// their detections can be drawn.
type inverter interface {
	InverseFunction(z mat.Vector) (mat.Vector, error)
}

// New2DPlot creates a plot of the tracking scene: truth trajectories as
// lines, true detections and clutter as scatters, and track mean estimates
// as crosses. Detections are back-projected to Cartesian space through their
// model's InverseFunction where the model supports it; otherwise the first
// two measurement rows are drawn directly.
// It returns error if no truths are supplied or a plotter fails to be created.
func New2DPlot(truths []*state.GroundTruthPath, detections [][]elpf.Detection, tracks []*state.Track, mapping []int) (*plot.Plot, error) {
	if len(truths) == 0 {
		return nil, fmt.Errorf("invalid data supplied")
	}

	p := plot.New()

	p.Title.Text = "Simulation"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	// truth trajectories
	for i, truth := range truths {
		pts := make(plotter.XYs, truth.Len())
		for k, s := range truth.States() {
			sv := s.StateVector()
			pts[k].X = sv.AtVec(mapping[0])
			pts[k].Y = sv.AtVec(mapping[1])
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = color.RGBA{R: 255, B: 128, A: 255}

		p.Add(line)
		if i == 0 {
			p.Legend.Add("truth", line)
		}
	}

	truePts, clutterPts, err := detectionPoints(detections)
	if err != nil {
		return nil, err
	}

	clutterScatter, err := plotter.NewScatter(clutterPts)
	if err != nil {
		return nil, err
	}
	clutterScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	clutterScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(clutterScatter)
	p.Legend.Add("clutter", clutterScatter)

	trueScatter, err := plotter.NewScatter(truePts)
	if err != nil {
		return nil, err
	}
	trueScatter.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
	trueScatter.Shape = draw.PyramidGlyph{}
	trueScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(trueScatter)
	p.Legend.Add("detection", trueScatter)

	// track mean estimates
	for i, track := range tracks {
		pts := make(plotter.XYs, track.Len())
		for k, ps := range track.History() {
			mean := ps.Mean()
			pts[k].X = mean.AtVec(mapping[0])
			pts[k].Y = mean.AtVec(mapping[1])
		}

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create scatter: %v", err)
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169, A: 255}
		scatter.Shape = draw.CrossGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)

		p.Add(scatter)
		if i == 0 {
			p.Legend.Add("track", scatter)
		}
	}

	return p, nil
}

// detectionPoints splits detections into true detection and clutter points in
// Cartesian space.
func detectionPoints(detections [][]elpf.Detection) (truePts, clutterPts plotter.XYs, err error) {
	for _, set := range detections {
		for _, d := range set {
			x, y, err := cartesian(d)
			if err != nil {
				return nil, nil, err
			}

			switch d.(type) {
			case *detection.Clutter:
				clutterPts = append(clutterPts, plotter.XY{X: x, Y: y})
			default:
				truePts = append(truePts, plotter.XY{X: x, Y: y})
			}
		}
	}

	return truePts, clutterPts, nil
}

func cartesian(d elpf.Detection) (x, y float64, err error) {
	z := d.StateVector()

	if inv, ok := d.Model().(inverter); ok {
		xy, err := inv.InverseFunction(z)
		if err != nil {
			return 0, 0, err
		}

		return xy.AtVec(0), xy.AtVec(1), nil
	}

	if z.Len() < 2 {
		return 0, 0, fmt.Errorf("invalid measurement size: %d", z.Len())
	}

	return z.AtVec(0), z.AtVec(1), nil
}
