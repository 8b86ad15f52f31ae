package sim

import "errors"

var (
	// ErrNotComputing is the panic value when a result is handed to a
	// scheduler that has nothing outstanding.
	ErrNotComputing = errors.New("sim: result received while idle")

	// ErrInvalidOptions wraps construction-time validation failures.
	ErrInvalidOptions = errors.New("sim: invalid scheduler options")
)
