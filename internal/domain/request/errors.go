package request

import "errors"

var (
	ErrRequestNotFound       = errors.New("request not found")
	ErrInvalidTransition     = errors.New("invalid request state transition")
	ErrRequestTerminal       = errors.New("request is in a terminal state")
	ErrForwardTargetRequired = errors.New("forwarding requires a valid target role")
	ErrForwardPayloadMissing = errors.New("forwarding requires an assessment or handover payload")
	ErrVersionConflict       = errors.New("request was modified concurrently")
)
