package vitals

import "errors"

var (
	ErrNoVitals              = errors.New("no vitals recorded for patient")
	ErrEmptyObservation      = errors.New("vitals observation carries no measurements")
	ErrObservedInFuture      = errors.New("observed_at cannot be in the future")
	ErrMeasurementOutOfRange = errors.New("measurement outside physiological range")
)
