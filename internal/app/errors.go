package app

import "errors"

var (
	// ErrResultMismatch is returned when a run produced outputs that differ
	// from the stored ones and neither forcing nor ignoring was requested.
	ErrResultMismatch = errors.New("the output files differ")

	// ErrUnsupported is returned for architectures, boards or experiment
	// types the runner cannot handle.
	ErrUnsupported = errors.New("unsupported experiment")
)
