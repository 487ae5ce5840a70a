package assessment

import "errors"

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAlreadyFinalized   = errors.New("assessment is already finalized")
	ErrNotFinalized       = errors.New("assessment is not finalized")
	ErrAlreadySuperseded  = errors.New("assessment is already superseded")
	ErrImmutable          = errors.New("finalized assessments cannot be modified")
)
