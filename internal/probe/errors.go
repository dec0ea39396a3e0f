package probe

import "errors"

// Probe-related errors. These map onto the engine's error taxonomy:
// ResolutionFailed, PermissionDenied, and NetworkUnreachable abort setup;
// SendFailed and ParseFailure degrade a single probe or datagram without
// aborting the trace; Timeout is a normal star-hop outcome, not a failure.
var (
	// ErrResolutionFailed indicates the resolver returned no usable IPv4 address.
	ErrResolutionFailed = errors.New("resolution failed: no IPv4 address for host")

	// ErrPermissionDenied indicates insufficient privileges for raw sockets.
	ErrPermissionDenied = errors.New("permission denied: raw socket requires elevated privileges")

	// ErrNetworkUnreachable indicates the local-source picker found no route
	// to the destination.
	ErrNetworkUnreachable = errors.New("network unreachable: no route to destination")

	// ErrSendFailed indicates a single probe's send syscall returned an OS
	// error. Recorded in diagnostics; that probe is treated as no reply.
	ErrSendFailed = errors.New("probe send failed")

	// ErrParseFailure indicates a malformed or truncated datagram. Silently
	// ignored by the caller; processing resumes at the next wake-up.
	ErrParseFailure = errors.New("malformed datagram")

	// ErrTimeout indicates a TTL's wait window closed. Not a failure; it
	// produces a star hop.
	ErrTimeout = errors.New("probe window timed out")

	// ErrInvalidTTL indicates the TTL value is out of range.
	ErrInvalidTTL = errors.New("TTL must be between 1 and 255")

	// ErrInvalidArgument indicates a checksum routine was given data outside
	// its documented bounds (e.g. a TCP segment over 65535 bytes).
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsPermissionError returns true if the error is a permission error.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
