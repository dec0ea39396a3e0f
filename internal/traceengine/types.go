// Package traceengine implements the TCP SYN probe engine: per-TTL send,
// multiplexed ICMP/TCP receive, correlation by source port, per-hop
// aggregation, and termination.
package traceengine

import (
	"net"
	"time"
)

// Mode selects how probes are sent and how ICMP replies are received.
type Mode int

const (
	// ModeAuto tries the raw send path first and falls back to connect
	// sends if the raw send socket cannot be opened; the raw TCP receive
	// socket is still required.
	ModeAuto Mode = iota
	// ModeConnect uses the kernel-assisted connect() send path.
	ModeConnect
	// ModeRaw uses hand-crafted IPv4+TCP packets via IP_HDRINCL.
	ModeRaw
)

// String returns the mode's CLI spelling.
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeConnect:
		return "connect"
	case ModeRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// ParseMode parses the --mode flag value.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "auto":
		return ModeAuto, true
	case "connect":
		return ModeConnect, true
	case "raw":
		return ModeRaw, true
	default:
		return ModeAuto, false
	}
}

// ProbeState tracks one in-flight probe: the TTL that produced it, the
// send timestamp used to compute RTT (via time.Since, which uses the
// monotonic reading time.Time carries internally), and whether a reply has
// already been accepted for it.
type ProbeState struct {
	TTL        int
	SentAt     time.Time
	Done       bool
}

// HopAggregate accumulates replies for a single TTL during the wait window.
// FirstResponderIP is fixed on the first accepted reply and never
// overwritten by later replies from a different address (§4.3 policy).
type HopAggregate struct {
	FirstResponderIP net.IP
	Count            int
	MinMS            float64
	MaxMS            float64
	SumMS            float64
	Reached          bool
}

// Accept folds one accepted reply's RTT (in milliseconds) into the
// aggregate, recording fromIP as the hop IP only if this is the first
// accepted reply for the TTL.
func (a *HopAggregate) Accept(fromIP net.IP, rttMS float64, reached bool) {
	if a.Count == 0 {
		a.FirstResponderIP = fromIP
		a.MinMS = rttMS
		a.MaxMS = rttMS
	} else {
		if rttMS < a.MinMS {
			a.MinMS = rttMS
		}
		if rttMS > a.MaxMS {
			a.MaxMS = rttMS
		}
	}
	a.SumMS += rttMS
	a.Count++
	if reached {
		a.Reached = true
	}
}

// HopSummary is the output record for one TTL.
type HopSummary struct {
	TTL        int
	HopIP      string // empty if num_replies == 0
	NumReplies int
	RTTMinMS   float64
	RTTAvgMS   float64
	RTTMaxMS   float64
	Reached    bool
}

// Summarize converts an aggregate into its output HopSummary.
func Summarize(ttl int, agg HopAggregate) HopSummary {
	s := HopSummary{
		TTL:        ttl,
		NumReplies: agg.Count,
		Reached:    agg.Reached,
	}
	if agg.Count > 0 {
		if agg.FirstResponderIP != nil {
			s.HopIP = agg.FirstResponderIP.String()
		}
		s.RTTMinMS = agg.MinMS
		s.RTTMaxMS = agg.MaxMS
		s.RTTAvgMS = agg.SumMS / float64(agg.Count)
	}
	return s
}

// sport allocates the deterministic, collision-free ephemeral source port
// for probe idx (0,1,2) at the given TTL: 33434 + 3*ttl + idx.
func sport(ttl, idx int) uint16 {
	return uint16(33434 + 3*ttl + idx)
}
