package trace

import "errors"

// Trace-related errors.
var (
	// ErrInvalidMaxHops indicates max hops is out of valid range (1-255).
	ErrInvalidMaxHops = errors.New("max hops must be between 1 and 255")

	// ErrInvalidTimeout indicates timeout is too short.
	ErrInvalidTimeout = errors.New("timeout must be at least 10ms")

	// ErrInvalidPort indicates the destination port is out of range.
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrTargetResolution indicates the target could not be resolved.
	ErrTargetResolution = errors.New("could not resolve target hostname")

	// ErrTraceIncomplete indicates the trace did not reach the destination.
	ErrTraceIncomplete = errors.New("trace did not reach destination")
)
