package elpf

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// TransitionModel advances system states in time.
type TransitionModel interface {
	// Function advances every column of the d x N state matrix by dt.
	// If the model is stochastic it applies independent process noise per column.
	Function(states mat.Matrix, dt time.Duration) (*mat.Dense, error)
	// Dims returns the state dimension d
	Dims() int
}

// MeasurementModel maps system states into measurement space.
type MeasurementModel interface {
	// Function maps every column of the d x N state matrix into measurement
	// space, producing an m x N matrix. If noise is true it adds independent
	// measurement noise per column.
	Function(states mat.Matrix, noise bool) (*mat.Dense, error)
	// Covar returns the m x m measurement noise covariance
	Covar() mat.Symmetric
	// Dims returns state and measurement dimensions of the model
	Dims() (in int, out int)
}

// Likelihood evaluates the probability density of the observed measurement z
// against every column of the m x N predicted measurement matrix under
// covariance cov. It is vectorised: one call evaluates all N particles.
type Likelihood func(z mat.Vector, predicted mat.Matrix, cov mat.Symmetric) ([]float64, error)

// Detection is a single sensor measurement.
// The filter makes no distinction between true detections and clutter:
// whatever the caller passes to Update is treated as a candidate measurement.
type Detection interface {
	// StateVector returns the observed measurement vector
	StateVector() mat.Vector
	// Model returns the measurement model which explains the detection
	Model() MeasurementModel
	// Timestamp returns the detection time
	Timestamp() time.Time
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// SampleN returns n independent samples of the noise stored in columns
	SampleN(n int) *mat.Dense
	// Reset resets the noise
	Reset()
}
