package transition

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/jjwakefield/ELPF/rnd"
)

// Block is one independent block of a combined linear Gaussian transition
// model. It contributes a square slice of the state propagation matrix and of
// the process noise covariance.
type Block interface {
	// Dims returns the block state dimension
	Dims() int
	// F returns the state propagation matrix for time interval dt
	F(dt time.Duration) *mat.Dense
	// Q returns the process noise covariance for time interval dt
	Q(dt time.Duration) *mat.SymDense
}

// ConstantVelocity is a one dimensional constant velocity block over a
// [position, velocity] state pair driven by white acceleration noise with
// power spectral density q.
type ConstantVelocity struct {
	q float64
}

// NewConstantVelocity creates a new ConstantVelocity block with noise power
// spectral density q. A zero q makes the block deterministic.
// It returns error if q is negative.
func NewConstantVelocity(q float64) (*ConstantVelocity, error) {
	if q < 0 {
		return nil, fmt.Errorf("invalid noise power spectral density: %f", q)
	}

	return &ConstantVelocity{q: q}, nil
}

// Dims returns the block state dimension.
func (cv *ConstantVelocity) Dims() int {
	return 2
}

// F returns the constant velocity propagation matrix for time interval dt.
func (cv *ConstantVelocity) F(dt time.Duration) *mat.Dense {
	t := dt.Seconds()

	return mat.NewDense(2, 2, []float64{
		1, t,
		0, 1,
	})
}

// Q returns the constant velocity process noise covariance for time interval dt.
func (cv *ConstantVelocity) Q(dt time.Duration) *mat.SymDense {
	t := dt.Seconds()

	return mat.NewSymDense(2, []float64{
		cv.q * t * t * t / 3, cv.q * t * t / 2,
		cv.q * t * t / 2, cv.q * t,
	})
}

// CombinedLinearGaussian combines independent linear Gaussian blocks into one
// transition model over the stacked state. It implements elpf.TransitionModel.
type CombinedLinearGaussian struct {
	blocks []Block
	dims   int
	src    rand.Source
}

// NewCombinedLinearGaussian creates a new transition model from the given
// blocks. Process noise is drawn from src; if src is nil the global source is
// used. It returns error if no blocks are given.
func NewCombinedLinearGaussian(src rand.Source, blocks ...Block) (*CombinedLinearGaussian, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no transition blocks given")
	}

	dims := 0
	for _, b := range blocks {
		dims += b.Dims()
	}

	return &CombinedLinearGaussian{
		blocks: blocks,
		dims:   dims,
		src:    src,
	}, nil
}

// Dims returns the combined state dimension.
func (c *CombinedLinearGaussian) Dims() int {
	return c.dims
}

// F returns the block-diagonal propagation matrix for time interval dt.
func (c *CombinedLinearGaussian) F(dt time.Duration) *mat.Dense {
	f := mat.NewDense(c.dims, c.dims, nil)

	offset := 0
	for _, b := range c.blocks {
		d := b.Dims()
		f.Slice(offset, offset+d, offset, offset+d).(*mat.Dense).Copy(b.F(dt))
		offset += d
	}

	return f
}

// Q returns the block-diagonal process noise covariance for time interval dt.
func (c *CombinedLinearGaussian) Q(dt time.Duration) *mat.SymDense {
	q := mat.NewSymDense(c.dims, nil)

	offset := 0
	for _, b := range c.blocks {
		bq := b.Q(dt)
		d := b.Dims()
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				q.SetSym(offset+i, offset+j, bq.At(i, j))
			}
		}
		offset += d
	}

	return q
}

// Function advances every column of the d x N state matrix by dt and adds one
// independent process noise draw per column. Blocks with zero noise density
// degrade to deterministic propagation.
// It returns error if dt is not positive or if the state dimension does not
// match the model.
func (c *CombinedLinearGaussian) Function(states mat.Matrix, dt time.Duration) (*mat.Dense, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid time interval: %v", dt)
	}

	rows, cols := states.Dims()
	if rows != c.dims {
		return nil, fmt.Errorf("invalid state dimension: %d != %d", rows, c.dims)
	}

	out := mat.NewDense(rows, cols, nil)
	out.Mul(c.F(dt), states)

	samples, err := rnd.WithCovN(c.Q(dt), cols, c.src)
	if err != nil {
		return nil, fmt.Errorf("failed to draw process noise: %v", err)
	}
	out.Add(out, samples)

	return out, nil
}
