package measurement

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	elpf "github.com/jjwakefield/ELPF"
)

// LinearGaussian observes selected state rows directly with additive Gaussian
// noise. It implements elpf.MeasurementModel.
type LinearGaussian struct {
	// stateDim is the state vector dimension
	stateDim int
	// h is the m x d observation matrix
	h *mat.Dense
	// noise is measurement noise
	noise elpf.Noise
}

// NewLinearGaussian creates a new linear Gaussian measurement model observing
// the state rows named by mapping, with measurement noise covariance cov.
// A nil cov makes the model noise free. Noise is drawn from src; if src is
// nil a time-seeded source is used.
// It returns error if the mapping or covariance dimensions are invalid.
func NewLinearGaussian(stateDim int, mapping []int, cov mat.Symmetric, src rand.Source) (*LinearGaussian, error) {
	if err := validMapping(stateDim, mapping, len(mapping)); err != nil {
		return nil, err
	}

	if len(mapping) == 0 {
		return nil, fmt.Errorf("invalid mapping size: %d", len(mapping))
	}

	n, err := newModelNoise(cov, len(mapping), src)
	if err != nil {
		return nil, err
	}

	h := mat.NewDense(len(mapping), stateDim, nil)
	for i, j := range mapping {
		h.Set(i, j, 1)
	}

	return &LinearGaussian{
		stateDim: stateDim,
		h:        h,
		noise:    n,
	}, nil
}

// Function maps every column of the d x N state matrix into measurement space.
// If withNoise is true one independent noise draw is added per column.
// It returns error if the state dimension does not match the model.
func (m *LinearGaussian) Function(states mat.Matrix, withNoise bool) (*mat.Dense, error) {
	rows, cols := states.Dims()
	if rows != m.stateDim {
		return nil, fmt.Errorf("invalid state dimension: %d != %d", rows, m.stateDim)
	}

	out := new(mat.Dense)
	out.Mul(m.h, states)

	if withNoise {
		out.Add(out, m.noise.SampleN(cols))
	}

	return out, nil
}

// Covar returns the measurement noise covariance.
func (m *LinearGaussian) Covar() mat.Symmetric {
	return m.noise.Cov()
}

// Dims returns state and measurement dimensions of the model.
func (m *LinearGaussian) Dims() (in, out int) {
	r, _ := m.h.Dims()
	return m.stateDim, r
}
