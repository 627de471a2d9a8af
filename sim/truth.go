package sim

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/state"
)

// GenerateTruths iterates the transition model from each initial state,
// producing one ground truth path per initial with steps states spaced dt
// apart starting at start. A zero-noise transition model yields deterministic
// trajectories.
// It returns error if no initials are given, steps is not positive, or a
// model call fails.
func GenerateTruths(tm elpf.TransitionModel, initials []mat.Vector, start time.Time, steps int, dt time.Duration) ([]*state.GroundTruthPath, error) {
	if len(initials) == 0 {
		return nil, fmt.Errorf("no initial states given")
	}

	if steps <= 0 {
		return nil, fmt.Errorf("invalid step count: %d", steps)
	}

	truths := make([]*state.GroundTruthPath, len(initials))
	for i, initial := range initials {
		truths[i] = state.NewGroundTruthPath(state.NewState(initial, start))
	}

	for k := 1; k < steps; k++ {
		ts := start.Add(time.Duration(k) * dt)
		for _, truth := range truths {
			prev := truth.Last().StateVector()
			states := mat.NewDense(prev.Len(), 1, nil)
			states.SetCol(0, rawVector(prev))

			next, err := tm.Function(states, dt)
			if err != nil {
				return nil, fmt.Errorf("truth propagation failed: %v", err)
			}

			truth.Append(state.NewState(next.ColView(0), ts))
		}
	}

	return truths, nil
}

func rawVector(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}

	return out
}
