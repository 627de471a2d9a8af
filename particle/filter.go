package particle

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/rnd"
	"github.com/jjwakefield/ELPF/state"
)

// Strategy selects how Update turns a set of candidate measurements into
// per-particle weight multipliers.
type Strategy int

const (
	// SingleMeasurement weights particles by the likelihood of exactly one
	// measurement. Update fails if more than one detection is given.
	SingleMeasurement Strategy = iota
	// MeanLikelihood weights particles by the arithmetic mean of their
	// likelihoods over all candidate measurements. This is the Expected
	// Likelihood approximation to Probabilistic Data Association: it
	// marginalises over which measurement, if any, is the true detection
	// under a uniform prior over candidates, without enumerating discrete
	// association hypotheses.
	MeanLikelihood
)

// Resampling selects the scheme Resample draws particle indices with.
type Resampling int

const (
	// Systematic draws all indices from a single uniform offset. It has
	// lower variance than multinomial resampling and consumes one random
	// draw per resample.
	Systematic Resampling = iota
	// Multinomial draws every index independently.
	Multinomial
)

// Config contains particle filter configuration parameters
type Config struct {
	// Transition advances particle states in time
	Transition elpf.TransitionModel
	// Measurement maps particle states into measurement space
	Measurement elpf.MeasurementModel
	// Likelihood evaluates measurement probability densities
	Likelihood elpf.Likelihood
	// Strategy selects the weighting strategy
	Strategy Strategy
	// Resampling selects the resampling scheme. The zero value is Systematic.
	Resampling Resampling
	// ESSThreshold is the fraction of the particle count below which the
	// Effective Sample Size triggers resampling. Zero means the default 0.5.
	ESSThreshold float64
	// Src is the random source the resampling draws come from.
	// If nil a time-seeded source is used.
	Src rand.Source
}

// Filter is a sequential Monte Carlo (particle) filter. Its belief over the
// target state is a fixed-size set of weighted state hypotheses which it
// carries through the predict, update and resample cycle.
type Filter struct {
	// t advances particle states in time
	t elpf.TransitionModel
	// m maps particle states into measurement space
	m elpf.MeasurementModel
	// l evaluates measurement probability densities
	l elpf.Likelihood
	// strategy selects the weighting strategy
	strategy Strategy
	// resampling selects the resampling scheme
	resampling Resampling
	// essThreshold is the resampling trigger fraction
	essThreshold float64
	// src is the resampling random source
	src rand.Source
}

// New creates a new particle filter from the given config.
// It returns error if any model is missing or if the threshold is invalid.
func New(c *Config) (*Filter, error) {
	if c.Transition == nil {
		return nil, fmt.Errorf("missing transition model")
	}

	if c.Measurement == nil {
		return nil, fmt.Errorf("missing measurement model")
	}

	if c.Likelihood == nil {
		return nil, fmt.Errorf("missing likelihood function")
	}

	if c.Strategy != SingleMeasurement && c.Strategy != MeanLikelihood {
		return nil, fmt.Errorf("invalid weighting strategy: %d", c.Strategy)
	}

	if c.Resampling != Systematic && c.Resampling != Multinomial {
		return nil, fmt.Errorf("invalid resampling scheme: %d", c.Resampling)
	}

	threshold := c.ESSThreshold
	if threshold == 0 {
		threshold = 0.5
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("invalid ESS threshold: %f", threshold)
	}

	src := c.Src
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	return &Filter{
		t:            c.Transition,
		m:            c.Measurement,
		l:            c.Likelihood,
		strategy:     c.Strategy,
		resampling:   c.Resampling,
		essThreshold: threshold,
		src:          src,
	}, nil
}

// NewBootstrap creates a particle filter with the SingleMeasurement weighting
// strategy: the classic bootstrap (SIR) filter for the one measurement per
// target case.
func NewBootstrap(t elpf.TransitionModel, m elpf.MeasurementModel, l elpf.Likelihood) (*Filter, error) {
	return New(&Config{Transition: t, Measurement: m, Likelihood: l, Strategy: SingleMeasurement})
}

// NewExpectedLikelihood creates a particle filter with the MeanLikelihood
// weighting strategy for the multi measurement per target case: clutter,
// missed detections and unresolved association.
func NewExpectedLikelihood(t elpf.TransitionModel, m elpf.MeasurementModel, l elpf.Likelihood) (*Filter, error) {
	return New(&Config{Transition: t, Measurement: m, Likelihood: l, Strategy: MeanLikelihood})
}

// Predict advances every particle by dt through the transition model in one
// batch call and returns a new ParticleState. Particle count, order and
// weights are preserved; only the state vectors change. If the input state
// carries a timestamp it is advanced by dt.
// It returns error if ps is nil or dt is not positive.
func (f *Filter) Predict(ps *state.ParticleState, dt time.Duration) (*state.ParticleState, error) {
	if ps == nil {
		return nil, fmt.Errorf("nil particle state")
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid time interval: %v", dt)
	}

	states, err := f.t.Function(ps.StateMatrix(), dt)
	if err != nil {
		return nil, fmt.Errorf("particle state propagation failed: %v", err)
	}

	weights := ps.Weights()
	particles := make([]*state.Particle, ps.Len())
	for i := range particles {
		p, err := state.NewParticle(states.ColView(i), weights[i])
		if err != nil {
			return nil, err
		}
		particles[i] = p
	}

	ts := ps.Timestamp()
	if !ts.IsZero() {
		ts = ts.Add(dt)
	}

	return state.NewWithTime(particles, ts)
}

// Update reweights the particles by the given candidate measurements,
// normalises the weights and resamples if the Effective Sample Size has
// degenerated. It returns a new ParticleState.
//
// With no detections Update is an explicit no-op returning ps unchanged, so a
// missed detection keeps the predicted state. If every particle is
// inconsistent with the measurements the total weight is zero and the weights
// are left unnormalised; this degeneracy is deliberately propagated rather
// than silently repaired.
// It returns error if ps is nil, if the SingleMeasurement strategy is given
// more than one detection, or if a model call fails.
func (f *Filter) Update(ps *state.ParticleState, detections []elpf.Detection) (*state.ParticleState, error) {
	if ps == nil {
		return nil, fmt.Errorf("nil particle state")
	}

	if len(detections) == 0 {
		return ps, nil
	}

	if f.strategy == SingleMeasurement && len(detections) != 1 {
		return nil, fmt.Errorf("single measurement update given %d detections", len(detections))
	}

	predicted, err := f.m.Function(ps.StateMatrix(), false)
	if err != nil {
		return nil, fmt.Errorf("particle state observation failed: %v", err)
	}

	// mean per-particle likelihood over all candidate measurements;
	// with a single detection the mean is that detection's likelihood,
	// which makes the two strategies agree for M=1
	multipliers := make([]float64, ps.Len())
	for _, d := range detections {
		l, err := f.l(d.StateVector(), predicted, f.m.Covar())
		if err != nil {
			return nil, fmt.Errorf("likelihood evaluation failed: %v", err)
		}
		if len(l) != ps.Len() {
			return nil, fmt.Errorf("invalid likelihood count: %d != %d", len(l), ps.Len())
		}
		floats.Add(multipliers, l)
	}
	floats.Scale(1/float64(len(detections)), multipliers)

	weights := ps.Weights()
	floats.Mul(weights, multipliers)

	// normalise the particle weights so they express probability;
	// a zero total weight is left as computed
	if total := floats.Sum(weights); total > 0 {
		floats.Scale(1/total, weights)
	}

	states := ps.StateMatrix()
	particles := make([]*state.Particle, ps.Len())
	for i := range particles {
		p, err := state.NewParticle(states.ColView(i), weights[i])
		if err != nil {
			return nil, err
		}
		particles[i] = p
	}

	updated, err := state.NewWithTime(particles, ps.Timestamp())
	if err != nil {
		return nil, err
	}

	return f.Resample(updated)
}

// Resample draws a fresh particle set with the configured resampling scheme
// if the Effective Sample Size has dropped below the configured fraction of
// the particle count; otherwise it returns ps unchanged. Resampled particles
// copy the state vectors of the selected originals and all weights are reset
// to exactly 1/N.
// It returns error if ps is nil or if index selection fails.
func (f *Filter) Resample(ps *state.ParticleState) (*state.ParticleState, error) {
	if ps == nil {
		return nil, fmt.Errorf("nil particle state")
	}

	n := ps.Len()
	if ps.ESS() >= f.essThreshold*float64(n) {
		return ps, nil
	}

	var indices []int
	var err error
	switch f.resampling {
	case Multinomial:
		indices, err = rnd.MultinomialDrawN(ps.Weights(), n, f.src)
	default:
		indices, err = rnd.SystematicDrawN(ps.Weights(), n, f.src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sample filter particles: %v", err)
	}

	states := ps.StateMatrix()
	w := 1 / float64(n)
	particles := make([]*state.Particle, n)
	for i, idx := range indices {
		p, err := state.NewParticle(states.ColView(idx), w)
		if err != nil {
			return nil, err
		}
		particles[i] = p
	}

	return state.NewWithTime(particles, ps.Timestamp())
}
