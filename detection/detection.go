package detection

import (
	"time"

	"gonum.org/v1/gonum/mat"

	elpf "github.com/jjwakefield/ELPF"
)

// TrueDetection is a measurement originating from a tracked target.
type TrueDetection struct {
	sv    *mat.VecDense
	model elpf.MeasurementModel
	ts    time.Time
}

// NewTrue creates a new TrueDetection. The measurement vector is cloned.
func NewTrue(sv mat.Vector, model elpf.MeasurementModel, ts time.Time) *TrueDetection {
	v := &mat.VecDense{}
	v.CloneFromVec(sv)

	return &TrueDetection{
		sv:    v,
		model: model,
		ts:    ts,
	}
}

// StateVector returns a copy of the observed measurement vector.
func (d *TrueDetection) StateVector() mat.Vector {
	sv := &mat.VecDense{}
	sv.CloneFromVec(d.sv)

	return sv
}

// Model returns the measurement model which produced the detection.
func (d *TrueDetection) Model() elpf.MeasurementModel {
	return d.model
}

// Timestamp returns the detection time.
func (d *TrueDetection) Timestamp() time.Time {
	return d.ts
}

// Clutter is a false alarm: a measurement not originating from any tracked
// target. The filter treats it exactly like a TrueDetection; the split exists
// for simulation and plotting.
type Clutter struct {
	sv    *mat.VecDense
	model elpf.MeasurementModel
	ts    time.Time
}

// NewClutter creates a new Clutter detection. The measurement vector is cloned.
func NewClutter(sv mat.Vector, model elpf.MeasurementModel, ts time.Time) *Clutter {
	v := &mat.VecDense{}
	v.CloneFromVec(sv)

	return &Clutter{
		sv:    v,
		model: model,
		ts:    ts,
	}
}

// StateVector returns a copy of the observed measurement vector.
func (d *Clutter) StateVector() mat.Vector {
	sv := &mat.VecDense{}
	sv.CloneFromVec(d.sv)

	return sv
}

// Model returns the measurement model which explains the clutter point.
func (d *Clutter) Model() elpf.MeasurementModel {
	return d.model
}

// Timestamp returns the detection time.
func (d *Clutter) Timestamp() time.Time {
	return d.ts
}
