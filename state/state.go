package state

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/jjwakefield/ELPF/rnd"
)

// State is a timestamped plain state vector. It is used for ground truth and
// other non-particle states in simulations.
type State struct {
	sv *mat.VecDense
	ts time.Time
}

// NewState creates a new State with the given state vector and timestamp.
// The state vector is cloned.
func NewState(sv mat.Vector, ts time.Time) *State {
	v := &mat.VecDense{}
	v.CloneFromVec(sv)

	return &State{
		sv: v,
		ts: ts,
	}
}

// StateVector returns a copy of the state vector.
func (s *State) StateVector() mat.Vector {
	sv := &mat.VecDense{}
	sv.CloneFromVec(s.sv)

	return sv
}

// Timestamp returns the state timestamp.
func (s *State) Timestamp() time.Time {
	return s.ts
}

// GroundTruthPath is an append-only sequence of true target states.
type GroundTruthPath struct {
	states []*State
}

// NewGroundTruthPath creates a new path starting at the given state.
func NewGroundTruthPath(initial *State) *GroundTruthPath {
	return &GroundTruthPath{states: []*State{initial}}
}

// Append adds a state to the end of the path.
func (p *GroundTruthPath) Append(s *State) {
	p.states = append(p.states, s)
}

// Len returns the number of states in the path.
func (p *GroundTruthPath) Len() int {
	return len(p.states)
}

// At returns the state at step i.
func (p *GroundTruthPath) At(i int) *State {
	return p.states[i]
}

// Last returns the most recent state in the path.
func (p *GroundTruthPath) Last() *State {
	return p.states[len(p.states)-1]
}

// States returns the path states in order.
func (p *GroundTruthPath) States() []*State {
	states := make([]*State, len(p.states))
	copy(states, p.states)

	return states
}

// NewGaussianPrior creates a ParticleState of n particles drawn from a Normal
// distribution with the given mean and covariance, all with uniform weight 1/n.
// Samples are drawn from src; if src is nil the global source is used.
// It returns error if n is non-positive, if the mean and covariance dimensions
// disagree, or if sampling fails.
func NewGaussianPrior(mean mat.Vector, cov mat.Symmetric, n int, src rand.Source) (*ParticleState, error) {
	return NewGaussianPriorWithTime(mean, cov, n, src, time.Time{})
}

// NewGaussianPriorWithTime creates a Gaussian prior ParticleState with the
// given timestamp.
func NewGaussianPriorWithTime(mean mat.Vector, cov mat.Symmetric, n int, src rand.Source, ts time.Time) (*ParticleState, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid particle count: %d", n)
	}

	if mean.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("mismatched prior dimensions: mean %d, cov %d", mean.Len(), cov.SymmetricDim())
	}

	samples, err := rnd.WithCovN(cov, n, src)
	if err != nil {
		return nil, fmt.Errorf("failed to generate prior particles: %v", err)
	}

	rows, cols := samples.Dims()
	// center samples around the mean
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			samples.Set(r, c, samples.At(r, c)+mean.AtVec(r))
		}
	}

	w := 1 / float64(n)
	particles := make([]*Particle, n)
	for i := range particles {
		p, err := NewParticle(samples.ColView(i), w)
		if err != nil {
			return nil, err
		}
		particles[i] = p
	}

	return NewWithTime(particles, ts)
}
