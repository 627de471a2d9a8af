package sim

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/detection"
	"github.com/jjwakefield/ELPF/measurement"
	"github.com/jjwakefield/ELPF/state"
	"github.com/jjwakefield/ELPF/transition"
)

var start = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

func newTransition(t *testing.T, q float64, seed uint64) *transition.CombinedLinearGaussian {
	t.Helper()

	cv, err := transition.NewConstantVelocity(q)
	assert.NoError(t, err)
	tm, err := transition.NewCombinedLinearGaussian(rand.NewSource(seed), cv, cv)
	assert.NoError(t, err)

	return tm
}

func TestGenerateTruths(t *testing.T) {
	assert := assert.New(t)

	tm := newTransition(t, 0, 1999)

	// no initial states
	truths, err := GenerateTruths(tm, nil, start, 10, time.Second)
	assert.Nil(truths)
	assert.Error(err)

	// invalid step count
	initial := mat.NewVecDense(4, []float64{0, 1, 0, 2})
	truths, err = GenerateTruths(tm, []mat.Vector{initial}, start, 0, time.Second)
	assert.Nil(truths)
	assert.Error(err)

	truths, err = GenerateTruths(tm, []mat.Vector{initial}, start, 10, time.Second)
	assert.NoError(err)
	assert.Equal(1, len(truths))
	assert.Equal(10, truths[0].Len())

	// zero process noise gives a deterministic constant velocity trajectory
	last := truths[0].Last().StateVector()
	assert.InDelta(9.0, last.AtVec(0), 1e-9)
	assert.InDelta(18.0, last.AtVec(2), 1e-9)
	assert.Equal(start.Add(9*time.Second), truths[0].Last().Timestamp())
}

func TestRegionFromTruths(t *testing.T) {
	assert := assert.New(t)

	tm := newTransition(t, 0, 1999)
	initial := mat.NewVecDense(4, []float64{0, 1, 0, 2})
	truths, err := GenerateTruths(tm, []mat.Vector{initial}, start, 10, time.Second)
	assert.NoError(err)

	r := RegionFromTruths(truths, []int{0, 2}, 10)
	assert.InDelta(-10.0, r.MinX, 1e-9)
	assert.InDelta(19.0, r.MaxX, 1e-9)
	assert.InDelta(-10.0, r.MinY, 1e-9)
	assert.InDelta(28.0, r.MaxY, 1e-9)
	assert.InDelta(29.0*38.0, r.Area(), 1e-9)
}

func TestDetectionSimulator(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0, 0, 0.003})
	model, err := measurement.NewCartesianToRangeBearing(4, []int{0, 2}, nil, cov, rand.NewSource(1999))
	assert.NoError(err)

	region := Region{MinX: -10, MaxX: 10, MinY: -10, MaxY: 10}

	// missing model
	s, err := NewDetectionSimulator(nil, []int{0, 2}, 0.8, 5, region, nil)
	assert.Nil(s)
	assert.Error(err)

	// invalid detection probability
	s, err = NewDetectionSimulator(model, []int{0, 2}, 1.5, 5, region, nil)
	assert.Nil(s)
	assert.Error(err)

	// invalid mapping
	s, err = NewDetectionSimulator(model, []int{0}, 0.8, 5, region, nil)
	assert.Nil(s)
	assert.Error(err)

	// certain detection and no clutter: exactly one true detection per truth
	s, err = NewDetectionSimulator(model, []int{0, 2}, 1.0, 0, region, rand.NewSource(1999))
	assert.NoError(err)

	truths := []*state.State{
		state.NewState(mat.NewVecDense(4, []float64{5, 0, 5, 0}), start),
		state.NewState(mat.NewVecDense(4, []float64{-5, 0, -5, 0}), start),
	}

	detections, err := s.Step(truths, start)
	assert.NoError(err)
	assert.Equal(2, len(detections))
	for _, d := range detections {
		_, ok := d.(*detection.TrueDetection)
		assert.True(ok)
		assert.Equal(start, d.Timestamp())
	}

	// no detections and heavy clutter: clutter only
	s, err = NewDetectionSimulator(model, []int{0, 2}, 0.0, 20, region, rand.NewSource(1999))
	assert.NoError(err)

	detections, err = s.Step(truths, start)
	assert.NoError(err)
	for _, d := range detections {
		_, ok := d.(*detection.Clutter)
		assert.True(ok)
	}
	assert.True(len(detections) > 0)
}

func TestNew2DPlot(t *testing.T) {
	assert := assert.New(t)

	// no truths
	p, err := New2DPlot(nil, nil, nil, []int{0, 2})
	assert.Nil(p)
	assert.Error(err)

	tm := newTransition(t, 0, 1999)
	initial := mat.NewVecDense(4, []float64{0, 1, 0, 2})
	truths, err := GenerateTruths(tm, []mat.Vector{initial}, start, 10, time.Second)
	assert.NoError(err)

	cov := mat.NewSymDense(2, []float64{1, 0, 0, 0.003})
	model, err := measurement.NewCartesianToRangeBearing(4, []int{0, 2}, nil, cov, rand.NewSource(1999))
	assert.NoError(err)

	region := RegionFromTruths(truths, []int{0, 2}, 10)
	s, err := NewDetectionSimulator(model, []int{0, 2}, 1.0, 5, region, rand.NewSource(1999))
	assert.NoError(err)

	prior, err := state.NewGaussianPrior(initial, mat.NewSymDense(4, []float64{1.5, 0, 0, 0, 0, 0.5, 0, 0, 0, 0, 1.5, 0, 0, 0, 0, 0.5}), 50, rand.NewSource(1999))
	assert.NoError(err)
	track := state.NewTrack(prior)

	set, err := s.Step([]*state.State{truths[0].Last()}, start)
	assert.NoError(err)

	p, err = New2DPlot(truths, [][]elpf.Detection{set}, []*state.Track{track}, []int{0, 2})
	assert.NotNil(p)
	assert.NoError(err)
}

func TestWriteHTML(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer

	// no truths
	assert.Error(WriteHTML(&buf, nil, nil, nil, []int{0, 2}))

	tm := newTransition(t, 0, 1999)
	initial := mat.NewVecDense(4, []float64{0, 1, 0, 2})
	truths, err := GenerateTruths(tm, []mat.Vector{initial}, start, 10, time.Second)
	assert.NoError(err)

	err = WriteHTML(&buf, truths, nil, nil, []int{0, 2})
	assert.NoError(err)
	assert.Contains(buf.String(), "echarts")
}
