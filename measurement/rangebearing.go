package measurement

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/noise"
)

// CartesianToRangeBearing maps Cartesian states into [range, bearing]
// measurements taken by a sensor at a fixed translation offset.
// Bearings are wrapped to (-pi, pi]. It implements elpf.MeasurementModel.
type CartesianToRangeBearing struct {
	// stateDim is the state vector dimension
	stateDim int
	// mapping names the state rows holding the x and y positions
	mapping []int
	// offset is the sensor position in Cartesian space
	offset *mat.VecDense
	// noise is measurement noise
	noise elpf.Noise
}

// NewCartesianToRangeBearing creates a new range and bearing measurement model.
// mapping names the two state rows holding the x and y positions; offset is
// the sensor position (nil means the origin); cov is the 2x2 measurement
// noise covariance over [range, bearing], or nil for a noise free sensor.
// Noise is drawn from src; if src is nil a time-seeded source is used.
// It returns error if the mapping or covariance dimensions are invalid.
func NewCartesianToRangeBearing(stateDim int, mapping []int, offset mat.Vector, cov mat.Symmetric, src rand.Source) (*CartesianToRangeBearing, error) {
	if err := validMapping(stateDim, mapping, 2); err != nil {
		return nil, err
	}

	n, err := newModelNoise(cov, 2, src)
	if err != nil {
		return nil, err
	}

	o := mat.NewVecDense(2, nil)
	if offset != nil {
		if offset.Len() != 2 {
			return nil, fmt.Errorf("invalid translation offset size: %d", offset.Len())
		}
		o.CloneFromVec(offset)
	}

	return &CartesianToRangeBearing{
		stateDim: stateDim,
		mapping:  append([]int{}, mapping...),
		offset:   o,
		noise:    n,
	}, nil
}

// Function maps every column of the d x N state matrix into a 2 x N matrix of
// [range, bearing] measurements. If withNoise is true one independent noise
// draw is added per column.
// It returns error if the state dimension does not match the model.
func (m *CartesianToRangeBearing) Function(states mat.Matrix, withNoise bool) (*mat.Dense, error) {
	rows, cols := states.Dims()
	if rows != m.stateDim {
		return nil, fmt.Errorf("invalid state dimension: %d != %d", rows, m.stateDim)
	}

	out := mat.NewDense(2, cols, nil)
	for c := 0; c < cols; c++ {
		dx := states.At(m.mapping[0], c) - m.offset.AtVec(0)
		dy := states.At(m.mapping[1], c) - m.offset.AtVec(1)
		out.Set(0, c, math.Hypot(dx, dy))
		out.Set(1, c, math.Atan2(dy, dx))
	}

	if withNoise {
		out.Add(out, m.noise.SampleN(cols))
		for c := 0; c < cols; c++ {
			out.Set(1, c, WrapAngle(out.At(1, c)))
		}
	}

	return out, nil
}

// InverseFunction back-projects a [range, bearing] measurement to the
// Cartesian [x, y] position it was taken from.
// It returns error if the measurement size is invalid.
func (m *CartesianToRangeBearing) InverseFunction(z mat.Vector) (mat.Vector, error) {
	if z.Len() != 2 {
		return nil, fmt.Errorf("invalid measurement size: %d", z.Len())
	}

	r, b := z.AtVec(0), z.AtVec(1)

	return mat.NewVecDense(2, []float64{
		r*math.Cos(b) + m.offset.AtVec(0),
		r*math.Sin(b) + m.offset.AtVec(1),
	}), nil
}

// Covar returns the measurement noise covariance.
func (m *CartesianToRangeBearing) Covar() mat.Symmetric {
	return m.noise.Cov()
}

// Dims returns state and measurement dimensions of the model.
func (m *CartesianToRangeBearing) Dims() (in, out int) {
	return m.stateDim, 2
}

// Mapping returns the state rows holding the x and y positions.
func (m *CartesianToRangeBearing) Mapping() []int {
	return append([]int{}, m.mapping...)
}

// AngleRows returns the measurement rows holding angles wrapped to (-pi, pi].
func (m *CartesianToRangeBearing) AngleRows() []int {
	return []int{1}
}

// WrapAngle wraps a to (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	}
	if a <= -math.Pi {
		a += 2 * math.Pi
	}

	return a
}

// newModelNoise builds the measurement noise for a model with dim measurement
// rows: Gaussian noise with covariance cov, or Zero noise when cov is nil.
func newModelNoise(cov mat.Symmetric, dim int, src rand.Source) (elpf.Noise, error) {
	if cov == nil {
		n, err := noise.NewZero(dim)
		if err != nil {
			return nil, fmt.Errorf("failed to create measurement noise: %v", err)
		}

		return n, nil
	}

	if cov.SymmetricDim() != dim {
		return nil, fmt.Errorf("invalid measurement noise covariance: %v", cov)
	}

	n, err := noise.NewGaussian(make([]float64, dim), cov, src)
	if err != nil {
		return nil, fmt.Errorf("failed to create measurement noise: %v", err)
	}

	return n, nil
}

func validMapping(stateDim int, mapping []int, want int) error {
	if stateDim <= 0 {
		return fmt.Errorf("invalid state dimension: %d", stateDim)
	}

	if len(mapping) != want {
		return fmt.Errorf("invalid mapping size: %d", len(mapping))
	}

	for _, i := range mapping {
		if i < 0 || i >= stateDim {
			return fmt.Errorf("mapping index out of range: %d", i)
		}
	}

	return nil
}
