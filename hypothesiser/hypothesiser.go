package hypothesiser

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/measurement"
	"github.com/jjwakefield/ELPF/state"
)

// angular is implemented by measurement models with angular measurement rows.
type angular interface {
	AngleRows() []int
}

// Hypothesiser gates a shared detection set per track: for each predicted
// particle state it admits only the detections falling inside the track's
// ellipsoidal validation gate in measurement space. The gated subsets feed
// the expected likelihood update; an empty subset flows into the update's
// no-detection no-op, which keeps the predicted state.
type Hypothesiser struct {
	// model maps particle states into measurement space
	model elpf.MeasurementModel
	// gamma is the squared Mahalanobis gate threshold
	gamma float64
	// includeAll disables gating
	includeAll bool
}

// New creates a new Hypothesiser for the given measurement model.
// gateProbability is the probability mass the validation gate covers; the
// gate threshold is the chi-squared quantile at that probability with the
// measurement dimension as degrees of freedom. If includeAll is true gating
// is disabled and every detection is admitted for every track.
// It returns error if the model is missing or gateProbability is not in (0, 1).
func New(model elpf.MeasurementModel, gateProbability float64, includeAll bool) (*Hypothesiser, error) {
	if model == nil {
		return nil, fmt.Errorf("missing measurement model")
	}

	if gateProbability <= 0 || gateProbability >= 1 {
		return nil, fmt.Errorf("invalid gate probability: %f", gateProbability)
	}

	_, m := model.Dims()
	gamma := distuv.ChiSquared{K: float64(m)}.Quantile(gateProbability)

	return &Hypothesiser{
		model:      model,
		gamma:      gamma,
		includeAll: includeAll,
	}, nil
}

// Hypothesise produces, per predicted particle state, the subset of
// detections inside that track's validation gate. A detection z is admitted
// iff (z-y)' S^-1 (z-y) <= gamma where y is the mean predicted measurement
// and S is the innovation covariance: the sample covariance of the predicted
// measurements plus the measurement noise covariance. Innovations in angular
// measurement rows are wrapped to (-pi, pi) when the model names them, so a
// detection across the +-pi cut line gates like the near miss it is.
// The returned slice is aligned with predictions.
// It returns error if a model call fails or if S is singular.
func (h *Hypothesiser) Hypothesise(predictions []*state.ParticleState, detections []elpf.Detection) ([][]elpf.Detection, error) {
	hypotheses := make([][]elpf.Detection, len(predictions))

	if h.includeAll {
		for i := range hypotheses {
			hypotheses[i] = append([]elpf.Detection{}, detections...)
		}

		return hypotheses, nil
	}

	var angleRows []int
	if am, ok := h.model.(angular); ok {
		angleRows = am.AngleRows()
	}

	_, m := h.model.Dims()

	for i, pred := range predictions {
		predicted, err := h.model.Function(pred.StateMatrix(), false)
		if err != nil {
			return nil, fmt.Errorf("particle state observation failed: %v", err)
		}

		// mean predicted measurement over all particles
		yhat := mat.NewVecDense(m, nil)
		_, n := predicted.Dims()
		for r := 0; r < m; r++ {
			var sum float64
			for c := 0; c < n; c++ {
				sum += predicted.At(r, c)
			}
			yhat.SetVec(r, sum/float64(n))
		}

		// innovation covariance: spread of the predicted measurements plus
		// the measurement noise
		cov, err := matrix.Cov(predicted, "cols")
		if err != nil {
			return nil, fmt.Errorf("failed to calculate innovation covariance: %v", err)
		}
		s := mat.NewSymDense(m, nil)
		s.AddSym(cov, h.model.Covar())

		var sInv mat.Dense
		if err := sInv.Inverse(s); err != nil {
			return nil, fmt.Errorf("singular innovation covariance: %v", err)
		}

		var gated []elpf.Detection
		v := mat.NewVecDense(m, nil)
		for _, d := range detections {
			z := d.StateVector()
			if z.Len() != m {
				return nil, fmt.Errorf("invalid measurement size: %d != %d", z.Len(), m)
			}

			v.SubVec(z, yhat)
			for _, r := range angleRows {
				v.SetVec(r, measurement.WrapAngle(v.AtVec(r)))
			}
			if mat.Inner(v, &sInv, v) <= h.gamma {
				gated = append(gated, d)
			}
		}
		hypotheses[i] = gated
	}

	return hypotheses, nil
}
