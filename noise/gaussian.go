package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov mat.Symmetric
	// src is the random source the noise draws from
	src rand.Source
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// Samples are drawn from src; if src is nil a time-seeded source is used.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric, src rand.Source) (*Gaussian, error) {
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	dist, ok := newGaussianDist(mean, cov, src)
	if !ok {
		return nil, fmt.Errorf("failed to create new Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: mean,
		cov:  cov,
		src:  src,
	}, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// SampleN generates n independent samples from Gaussian noise and returns
// them stored in the columns of the returned matrix.
func (g *Gaussian) SampleN(n int) *mat.Dense {
	rows := len(g.mean)
	samples := mat.NewDense(rows, n, nil)

	buf := make([]float64, rows)
	for c := 0; c < n; c++ {
		g.dist.Rand(buf)
		for r := 0; r < rows; r++ {
			samples.Set(r, c, buf[r])
		}
	}

	return samples
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return g.mean
}

// Reset resets Gaussian noise.
func (g *Gaussian) Reset() {
	if dist, ok := newGaussianDist(g.mean, g.cov, g.src); ok {
		g.dist = dist
	}
}

func newGaussianDist(mean []float64, cov mat.Symmetric, src rand.Source) (*distmv.Normal, bool) {
	// cov is square; rows and cols are the same size
	size, _ := cov.Dims()
	if len(mean) != size {
		return nil, false
	}

	return distmv.NewNormal(mean, cov, rand.New(src))
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
