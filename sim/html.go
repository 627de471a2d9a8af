package sim

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/state"
)

// WriteHTML renders the tracking scene as a self-contained HTML scatter page:
// truth trajectories, true detections, clutter and track mean estimates.
// Detections are back-projected to Cartesian space the same way New2DPlot
// draws them.
// It returns error if no truths are supplied or rendering fails.
func WriteHTML(w io.Writer, truths []*state.GroundTruthPath, detections [][]elpf.Detection, tracks []*state.Track, mapping []int) error {
	if len(truths) == 0 {
		return fmt.Errorf("invalid data supplied")
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Simulation", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Simulation"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	var truthData []opts.ScatterData
	for _, truth := range truths {
		for _, s := range truth.States() {
			sv := s.StateVector()
			truthData = append(truthData, opts.ScatterData{
				Value: []interface{}{sv.AtVec(mapping[0]), sv.AtVec(mapping[1])},
			})
		}
	}
	scatter.AddSeries("truth", truthData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	truePts, clutterPts, err := detectionPoints(detections)
	if err != nil {
		return err
	}

	clutterData := make([]opts.ScatterData, 0, len(clutterPts))
	for _, pt := range clutterPts {
		clutterData = append(clutterData, opts.ScatterData{Value: []interface{}{pt.X, pt.Y}})
	}
	scatter.AddSeries("clutter", clutterData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	trueData := make([]opts.ScatterData, 0, len(truePts))
	for _, pt := range truePts {
		trueData = append(trueData, opts.ScatterData{Value: []interface{}{pt.X, pt.Y}})
	}
	scatter.AddSeries("detection", trueData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	var trackData []opts.ScatterData
	for _, track := range tracks {
		for _, ps := range track.History() {
			mean := ps.Mean()
			trackData = append(trackData, opts.ScatterData{
				Value: []interface{}{mean.AtVec(mapping[0]), mean.AtVec(mapping[1])},
			})
		}
	}
	scatter.AddSeries("track", trackData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	return scatter.Render(w)
}
