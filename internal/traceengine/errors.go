package traceengine

import "github.com/netpathlabs/tcptrace/internal/probe"

// The engine reuses the probe package's error taxonomy verbatim (spec §7)
// rather than define a parallel one.
var (
	ErrResolutionFailed   = probe.ErrResolutionFailed
	ErrPermissionDenied   = probe.ErrPermissionDenied
	ErrNetworkUnreachable = probe.ErrNetworkUnreachable
	ErrSendFailed         = probe.ErrSendFailed
	ErrParseFailure       = probe.ErrParseFailure
	ErrTimeout            = probe.ErrTimeout
)
