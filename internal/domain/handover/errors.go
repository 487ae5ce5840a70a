package handover

import "errors"

var (
	ErrHandoverNotFound = errors.New("handover summary not found")
	ErrNoSourceData     = errors.New("patient has no data to summarize")
)
