package likelihood

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/measurement"
)

// Gaussian evaluates the Normal probability density of the observed
// measurement z against every column of the predicted measurement matrix
// under covariance cov. It returns one density per column.
// It returns error if the dimensions disagree or if cov is not positive definite.
func Gaussian(z mat.Vector, predicted mat.Matrix, cov mat.Symmetric) ([]float64, error) {
	m, _ := predicted.Dims()

	dist, ok := distmv.NewNormal(make([]float64, m), cov, nil)
	if !ok {
		return nil, fmt.Errorf("failed to create Normal distribution: invalid covariance")
	}

	return densities(z, predicted, dist)
}

// StudentsT returns a Likelihood which evaluates the multivariate Student's t
// probability density with nu degrees of freedom. Heavier tails than the
// Normal make it more forgiving of outlier measurements, which matters when
// the measurement set may contain clutter.
// The returned Likelihood fails with error if nu is not positive, if the
// dimensions disagree or if cov is not positive definite.
func StudentsT(nu float64) elpf.Likelihood {
	return func(z mat.Vector, predicted mat.Matrix, cov mat.Symmetric) ([]float64, error) {
		if nu <= 0 {
			return nil, fmt.Errorf("invalid degrees of freedom: %f", nu)
		}

		m, _ := predicted.Dims()

		dist, ok := distmv.NewStudentsT(make([]float64, m), cov, nu, nil)
		if !ok {
			return nil, fmt.Errorf("failed to create Student's t distribution: invalid covariance")
		}

		return densities(z, predicted, dist)
	}
}

// WrapAngles returns a Likelihood evaluating l with the innovations of the
// listed measurement rows wrapped to (-pi, pi]. Without it a measurement at
// bearing near +pi scores predictions near -pi as gross outliers even though
// the two directions are almost identical. It aligns the angular rows of the
// predicted matrix with z before l subtracts them.
// The returned Likelihood fails with error if a row is out of range or the
// measurement size is invalid.
func WrapAngles(l elpf.Likelihood, rows ...int) elpf.Likelihood {
	return func(z mat.Vector, predicted mat.Matrix, cov mat.Symmetric) ([]float64, error) {
		m, n := predicted.Dims()
		if z.Len() != m {
			return nil, fmt.Errorf("invalid measurement size: %d != %d", z.Len(), m)
		}

		aligned := mat.DenseCopyOf(predicted)
		for _, r := range rows {
			if r < 0 || r >= m {
				return nil, fmt.Errorf("angle row out of range: %d", r)
			}

			zr := z.AtVec(r)
			for c := 0; c < n; c++ {
				aligned.Set(r, c, zr-measurement.WrapAngle(zr-predicted.At(r, c)))
			}
		}

		return l(z, aligned, cov)
	}
}

// densities evaluates dist on the innovation z - predicted_j for every column j.
func densities(z mat.Vector, predicted mat.Matrix, dist distmv.LogProber) ([]float64, error) {
	m, n := predicted.Dims()
	if z.Len() != m {
		return nil, fmt.Errorf("invalid measurement size: %d != %d", z.Len(), m)
	}

	inn := make([]float64, m)
	out := make([]float64, n)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			inn[i] = z.AtVec(i) - predicted.At(i, j)
		}
		out[j] = math.Exp(dist.LogProb(inn))
	}

	return out, nil
}
