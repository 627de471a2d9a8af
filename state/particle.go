package state

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Particle is a single weighted state hypothesis.
// Particles are immutable: they are constructed with their final state vector
// and weight, and accessors return copies.
type Particle struct {
	// sv is particle state vector
	sv *mat.VecDense
	// weight is particle weight
	weight float64
}

// NewParticle creates a new Particle with the given state vector and weight.
// The state vector is cloned. It returns error if sv is nil or empty, or if
// the weight is negative.
func NewParticle(sv mat.Vector, weight float64) (*Particle, error) {
	if sv == nil || sv.Len() == 0 {
		return nil, fmt.Errorf("invalid particle state vector: %v", sv)
	}

	if weight < 0 {
		return nil, fmt.Errorf("invalid particle weight: %f", weight)
	}

	v := &mat.VecDense{}
	v.CloneFromVec(sv)

	return &Particle{
		sv:     v,
		weight: weight,
	}, nil
}

// StateVector returns a copy of the particle state vector.
func (p *Particle) StateVector() mat.Vector {
	sv := &mat.VecDense{}
	sv.CloneFromVec(p.sv)

	return sv
}

// Weight returns the particle weight.
func (p *Particle) Weight() float64 {
	return p.weight
}

// ParticleState is an ordered, fixed-size collection of particles representing
// the belief at one time step. All derived views read the particles in their
// stored order.
type ParticleState struct {
	// particles are stored in insertion order
	particles []*Particle
	// ts is an optional timestamp
	ts time.Time
}

// New creates a new ParticleState from the given particles.
// It returns error if no particles are given or if their state vectors do not
// share the same dimension.
func New(particles []*Particle) (*ParticleState, error) {
	return NewWithTime(particles, time.Time{})
}

// NewWithTime creates a new ParticleState with the given timestamp.
// It returns error if no particles are given or if their state vectors do not
// share the same dimension.
func NewWithTime(particles []*Particle, ts time.Time) (*ParticleState, error) {
	if len(particles) == 0 {
		return nil, fmt.Errorf("invalid particle count: %d", len(particles))
	}

	dim := particles[0].sv.Len()
	for i, p := range particles {
		if p == nil {
			return nil, fmt.Errorf("nil particle at index %d", i)
		}
		if p.sv.Len() != dim {
			return nil, fmt.Errorf("mismatched state dimension at index %d: %d != %d", i, p.sv.Len(), dim)
		}
	}

	ps := make([]*Particle, len(particles))
	copy(ps, particles)

	return &ParticleState{
		particles: ps,
		ts:        ts,
	}, nil
}

// Len returns the number of particles.
func (s *ParticleState) Len() int {
	return len(s.particles)
}

// Dims returns the particle state vector dimension.
func (s *ParticleState) Dims() int {
	return s.particles[0].sv.Len()
}

// Timestamp returns the state timestamp. The zero time means no timestamp.
func (s *ParticleState) Timestamp() time.Time {
	return s.ts
}

// Particles returns the particles in stored order.
func (s *ParticleState) Particles() []*Particle {
	ps := make([]*Particle, len(s.particles))
	copy(ps, s.particles)

	return ps
}

// StateMatrix returns a d x N matrix whose columns are the particle state
// vectors in stored order.
func (s *ParticleState) StateMatrix() *mat.Dense {
	rows, cols := s.Dims(), s.Len()
	m := mat.NewDense(rows, cols, nil)

	for c, p := range s.particles {
		for r := 0; r < rows; r++ {
			m.Set(r, c, p.sv.AtVec(r))
		}
	}

	return m
}

// Weights returns the particle weights in stored order.
func (s *ParticleState) Weights() []float64 {
	w := make([]float64, len(s.particles))
	for i, p := range s.particles {
		w[i] = p.weight
	}

	return w
}

// ESS returns the Effective Sample Size 1/sum(w^2) of the particle weights.
// ESS estimates how many particles contribute non-negligible weight; low ESS
// indicates weight degeneracy. If all weights are zero, ESS is +Inf.
func (s *ParticleState) ESS() float64 {
	var sum float64
	for _, p := range s.particles {
		sum += p.weight * p.weight
	}

	return 1 / sum
}

// Mean returns the weighted mean of the particle state vectors.
// Weights are normalised by their sum; if the total weight is not positive the
// plain average is returned instead.
func (s *ParticleState) Mean() mat.Vector {
	rows := s.Dims()

	weights := s.Weights()
	total := floats.Sum(weights)
	if total > 0 {
		floats.Scale(1/total, weights)
	} else {
		for i := range weights {
			weights[i] = 1 / float64(len(weights))
		}
	}

	mean := mat.NewVecDense(rows, nil)
	for i, p := range s.particles {
		for r := 0; r < rows; r++ {
			mean.SetVec(r, mean.AtVec(r)+weights[i]*p.sv.AtVec(r))
		}
	}

	return mean
}

// Covariance returns the weighted sample covariance of the particle cloud.
// It returns error if the total particle weight is not positive.
func (s *ParticleState) Covariance() (*mat.SymDense, error) {
	var total float64
	for _, p := range s.particles {
		total += p.weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("invalid total particle weight: %f", total)
	}

	// stat.CovarianceMatrix expects samples in rows
	x := mat.NewDense(s.Len(), s.Dims(), nil)
	x.Copy(s.StateMatrix().T())

	cov := mat.NewSymDense(s.Dims(), nil)
	stat.CovarianceMatrix(cov, x, s.Weights())

	return cov, nil
}

// String implements the Stringer interface.
func (s *ParticleState) String() string {
	return fmt.Sprintf("ParticleState{N=%d, d=%d, ESS=%.2f}", s.Len(), s.Dims(), s.ESS())
}
