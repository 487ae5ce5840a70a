package patient

import "errors"

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrPatientNotAdmitted = errors.New("patient is not currently admitted")
	ErrPatientDeceased    = errors.New("operation not permitted: patient is deceased")
	ErrInvalidSex         = errors.New("invalid sex value")
	ErrInvalidDateOfBirth = errors.New("date of birth cannot be in the future")
	ErrWardRequired       = errors.New("ward_id is required")
	ErrBedOccupied        = errors.New("bed is already occupied")
)
