package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func newParticles(t *testing.T, svs [][]float64, weights []float64) []*Particle {
	t.Helper()

	particles := make([]*Particle, len(svs))
	for i := range svs {
		p, err := NewParticle(mat.NewVecDense(len(svs[i]), svs[i]), weights[i])
		assert.NoError(t, err)
		particles[i] = p
	}

	return particles
}

func TestNewParticle(t *testing.T) {
	assert := assert.New(t)

	// nil state vector
	p, err := NewParticle(nil, 0.5)
	assert.Nil(p)
	assert.Error(err)

	// negative weight
	p, err = NewParticle(mat.NewVecDense(2, []float64{1.0, 2.0}), -0.5)
	assert.Nil(p)
	assert.Error(err)

	sv := mat.NewVecDense(2, []float64{1.0, 2.0})
	p, err = NewParticle(sv, 0.5)
	assert.NotNil(p)
	assert.NoError(err)
	assert.Equal(0.5, p.Weight())

	// the particle owns its own copy of the state vector
	sv.SetVec(0, 100.0)
	assert.Equal(1.0, p.StateVector().AtVec(0))
}

func TestNewParticleState(t *testing.T) {
	assert := assert.New(t)

	// no particles
	s, err := New(nil)
	assert.Nil(s)
	assert.Error(err)

	// mismatched dimensions
	p1, _ := NewParticle(mat.NewVecDense(2, []float64{1.0, 2.0}), 0.5)
	p2, _ := NewParticle(mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}), 0.5)
	s, err = New([]*Particle{p1, p2})
	assert.Nil(s)
	assert.Error(err)

	particles := newParticles(t, [][]float64{{0, 0}, {1, 0}, {2, 0}}, []float64{0.2, 0.3, 0.5})
	s, err = New(particles)
	assert.NotNil(s)
	assert.NoError(err)
	assert.Equal(3, s.Len())
	assert.Equal(2, s.Dims())
	assert.True(s.Timestamp().IsZero())

	ts := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	s, err = NewWithTime(particles, ts)
	assert.NoError(err)
	assert.Equal(ts, s.Timestamp())
}

func TestParticleStateViews(t *testing.T) {
	assert := assert.New(t)

	particles := newParticles(t, [][]float64{{0, 0}, {1, 0}, {2, 0}}, []float64{0.2, 0.3, 0.5})
	s, err := New(particles)
	assert.NoError(err)

	// state matrix columns follow stored order
	x := s.StateMatrix()
	r, c := x.Dims()
	assert.Equal(2, r)
	assert.Equal(3, c)
	assert.Equal(0.0, x.At(0, 0))
	assert.Equal(1.0, x.At(0, 1))
	assert.Equal(2.0, x.At(0, 2))

	assert.Equal([]float64{0.2, 0.3, 0.5}, s.Weights())

	// ESS of weights [0.2 0.3 0.5] = 1/0.38
	assert.InDelta(1/0.38, s.ESS(), 1e-12)

	// weighted mean: 0.2*0 + 0.3*1 + 0.5*2 = 1.3
	mean := s.Mean()
	assert.InDelta(1.3, mean.AtVec(0), 1e-12)
	assert.InDelta(0.0, mean.AtVec(1), 1e-12)

	cov, err := s.Covariance()
	assert.NotNil(cov)
	assert.NoError(err)
	assert.Equal(2, cov.SymmetricDim())
}

func TestParticleStateESS(t *testing.T) {
	assert := assert.New(t)

	// uniform weights: ESS == N
	particles := newParticles(t, [][]float64{{0}, {1}, {2}, {3}}, []float64{0.25, 0.25, 0.25, 0.25})
	s, err := New(particles)
	assert.NoError(err)
	assert.InDelta(4.0, s.ESS(), 1e-12)

	// fully peaked weights: ESS == 1
	particles = newParticles(t, [][]float64{{0}, {1}, {2}, {3}}, []float64{0, 0, 1, 0})
	s, err = New(particles)
	assert.NoError(err)
	assert.InDelta(1.0, s.ESS(), 1e-12)

	// all-zero weights: ESS is +Inf
	particles = newParticles(t, [][]float64{{0}, {1}}, []float64{0, 0})
	s, err = New(particles)
	assert.NoError(err)
	assert.True(s.ESS() > 1e300)

	// degenerate weights: no covariance
	cov, err := s.Covariance()
	assert.Nil(cov)
	assert.Error(err)
}

func TestNewGaussianPrior(t *testing.T) {
	assert := assert.New(t)

	mean := mat.NewVecDense(2, []float64{100.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.5, 0, 0, 0.5})

	// invalid particle count
	s, err := NewGaussianPrior(mean, cov, -10, nil)
	assert.Nil(s)
	assert.Error(err)

	// mismatched dimensions
	s, err = NewGaussianPrior(mat.NewVecDense(3, nil), cov, 10, nil)
	assert.Nil(s)
	assert.Error(err)

	n := 100
	s, err = NewGaussianPrior(mean, cov, n, rand.NewSource(1999))
	assert.NotNil(s)
	assert.NoError(err)
	assert.Equal(n, s.Len())
	assert.Equal(2, s.Dims())

	// uniform weights summing to 1
	for _, w := range s.Weights() {
		assert.Equal(1/float64(n), w)
	}

	// sample mean is near the prior mean
	assert.InDelta(100.0, s.Mean().AtVec(0), 1.0)
	assert.InDelta(1.0, s.Mean().AtVec(1), 1.0)
}

func TestGroundTruthPath(t *testing.T) {
	assert := assert.New(t)

	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	initial := NewState(mat.NewVecDense(2, []float64{1.0, 2.0}), start)

	path := NewGroundTruthPath(initial)
	assert.Equal(1, path.Len())
	assert.Equal(initial, path.Last())

	next := NewState(mat.NewVecDense(2, []float64{2.0, 2.0}), start.Add(time.Second))
	path.Append(next)
	assert.Equal(2, path.Len())
	assert.Equal(next, path.Last())
	assert.Equal(initial, path.At(0))
}

func TestTrack(t *testing.T) {
	assert := assert.New(t)

	particles := newParticles(t, [][]float64{{0, 0}, {1, 0}}, []float64{0.5, 0.5})
	prior, err := New(particles)
	assert.NoError(err)

	track := NewTrack(prior)
	assert.NotEmpty(track.ID())
	assert.Equal(1, track.Len())
	assert.Equal(prior, track.Latest())

	posterior, err := New(particles)
	assert.NoError(err)
	track.Append(posterior)
	assert.Equal(2, track.Len())
	assert.Equal(posterior, track.Latest())

	// identities are unique per track
	other := NewTrack(prior)
	assert.NotEqual(track.ID(), other.ID())
}
