package sim

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/detection"
	"github.com/jjwakefield/ELPF/state"
)

// Region is an axis-aligned rectangle in Cartesian space over which clutter
// is scattered.
type Region struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// RegionFromTruths returns the bounding box of the given truth paths in the
// mapped position rows, padded by pad on every side.
func RegionFromTruths(truths []*state.GroundTruthPath, mapping []int, pad float64) Region {
	r := Region{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
	}

	for _, truth := range truths {
		for _, s := range truth.States() {
			sv := s.StateVector()
			x, y := sv.AtVec(mapping[0]), sv.AtVec(mapping[1])
			r.MinX = math.Min(r.MinX, x)
			r.MaxX = math.Max(r.MaxX, x)
			r.MinY = math.Min(r.MinY, y)
			r.MaxY = math.Max(r.MaxY, y)
		}
	}

	r.MinX -= pad
	r.MaxX += pad
	r.MinY -= pad
	r.MaxY += pad

	return r
}

// Area returns the surveillance area the region covers.
func (r Region) Area() float64 {
	return (r.MaxX - r.MinX) * (r.MaxY - r.MinY)
}

// DetectionSimulator generates the measurement set for one time step: each
// true target produces a noisy detection with probability DetectProb (missed
// detections otherwise), and a Poisson-distributed number of clutter points
// is scattered uniformly over the region and projected through the
// measurement model with noise disabled.
type DetectionSimulator struct {
	model       elpf.MeasurementModel
	mapping     []int
	detectProb  float64
	clutterRate float64
	region      Region
	rng         *rand.Rand
	poisson     distuv.Poisson
}

// NewDetectionSimulator creates a new DetectionSimulator. mapping names the
// state rows holding the x and y positions used to build clutter states.
// Randomness is drawn from src; if src is nil a time-seeded source is used.
// It returns error if the model is missing, the probability or rate is out of
// range, or the mapping is invalid.
func NewDetectionSimulator(model elpf.MeasurementModel, mapping []int, detectProb, clutterRate float64, region Region, src rand.Source) (*DetectionSimulator, error) {
	if model == nil {
		return nil, fmt.Errorf("missing measurement model")
	}

	if detectProb < 0 || detectProb > 1 {
		return nil, fmt.Errorf("invalid detection probability: %f", detectProb)
	}

	if clutterRate < 0 {
		return nil, fmt.Errorf("invalid clutter rate: %f", clutterRate)
	}

	in, _ := model.Dims()
	if len(mapping) != 2 {
		return nil, fmt.Errorf("invalid mapping size: %d", len(mapping))
	}
	for _, i := range mapping {
		if i < 0 || i >= in {
			return nil, fmt.Errorf("mapping index out of range: %d", i)
		}
	}

	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	return &DetectionSimulator{
		model:       model,
		mapping:     append([]int{}, mapping...),
		detectProb:  detectProb,
		clutterRate: clutterRate,
		region:      region,
		rng:         rand.New(src),
		poisson:     distuv.Poisson{Lambda: clutterRate, Src: src},
	}, nil
}

// Step generates the detection set for one time step from the given true
// target states. The returned set mixes true detections and clutter with no
// ordering guarantees beyond truths first.
// It returns error if a model call fails.
func (s *DetectionSimulator) Step(truths []*state.State, ts time.Time) ([]elpf.Detection, error) {
	var detections []elpf.Detection

	in, _ := s.model.Dims()

	for _, truth := range truths {
		if s.rng.Float64() > s.detectProb {
			continue
		}

		sv := truth.StateVector()
		states := mat.NewDense(in, 1, nil)
		states.SetCol(0, rawVector(sv))

		z, err := s.model.Function(states, true)
		if err != nil {
			return nil, fmt.Errorf("measurement simulation failed: %v", err)
		}

		detections = append(detections, detection.NewTrue(z.ColView(0), s.model, ts))
	}

	if s.clutterRate > 0 {
		count := int(s.poisson.Rand())
		for i := 0; i < count; i++ {
			x := s.region.MinX + s.rng.Float64()*(s.region.MaxX-s.region.MinX)
			y := s.region.MinY + s.rng.Float64()*(s.region.MaxY-s.region.MinY)

			states := mat.NewDense(in, 1, nil)
			states.Set(s.mapping[0], 0, x)
			states.Set(s.mapping[1], 0, y)

			z, err := s.model.Function(states, false)
			if err != nil {
				return nil, fmt.Errorf("clutter simulation failed: %v", err)
			}

			detections = append(detections, detection.NewClutter(z.ColView(0), s.model, ts))
		}
	}

	return detections, nil
}
