package adapters

import "errors"

var (
	// ErrAdapterUnavailable means the backend cannot serve the call right
	// now. Callers degrade to the affected modality being absent.
	ErrAdapterUnavailable = errors.New("model adapter unavailable")

	// ErrLengthExceeded means the prompt or requested output exceeded the
	// backend's context window. Callers may truncate and retry once.
	ErrLengthExceeded = errors.New("model context length exceeded")

	// ErrEmptyOutput means the backend answered but produced no usable
	// text after the retry budget was spent.
	ErrEmptyOutput = errors.New("model produced no usable output")
)
