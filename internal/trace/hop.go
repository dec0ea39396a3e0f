// Package trace assembles traceengine probe results and enrich lookups
// into the aggregate shape the output formatters and TUI render.
package trace

import (
	"net"
	"time"

	"github.com/netpathlabs/tcptrace/internal/enrich"
)

// Hop represents a single hop in the trace path.
type Hop struct {
	// Number is the TTL value that produced this hop.
	Number int `json:"hop"`

	// IP is the address of the first host to reply at this TTL.
	IP net.IP `json:"ip,omitempty"`

	// Enrich carries the rDNS/ASN/GeoIP descriptor for IP, if enrichment
	// ran and found anything.
	Enrich enrich.Record `json:"enrich,omitempty"`

	// RTTs contains individual round-trip times in milliseconds; a value
	// of -1 marks a probe that did not receive a reply.
	RTTs []float64 `json:"rtts"`

	AvgRTT float64 `json:"avg_rtt"`
	MinRTT float64 `json:"min_rtt"`
	MaxRTT float64 `json:"max_rtt"`

	// Jitter is the difference between max and min RTT.
	Jitter float64 `json:"jitter"`

	// LossPercent is the percentage (0-100) of the three probes at this TTL
	// that went unanswered.
	LossPercent float64 `json:"loss_percent"`

	// Responded indicates at least one probe got a reply at this TTL.
	Responded bool `json:"responded"`

	// Reached indicates this hop's reply came from the destination itself.
	Reached bool `json:"reached"`
}

// Descriptor renders the hop's enrichment as the text formatter's
// "<city>, <country> · AS<asn> <as_name>" string.
func (h Hop) Descriptor() string {
	return h.Enrich.Descriptor()
}

// IsDestination reports whether this hop's IP is the trace target.
func (h Hop) IsDestination(dest net.IP) bool {
	if h.IP == nil {
		return false
	}
	return h.IP.Equal(dest)
}

// TraceResult contains the complete result of a trace operation.
type TraceResult struct {
	Target     string    `json:"target"`
	ResolvedIP net.IP    `json:"resolved_ip"`
	Timestamp  time.Time `json:"timestamp"`

	// Mode is the configured send/listen mode; under auto it reads "auto"
	// and does not record whether raw or connect sends were used.
	Mode string `json:"mode"`

	Hops      []Hop   `json:"hops"`
	Completed bool    `json:"completed"`
	Summary   Summary `json:"summary"`
}

// Summary contains aggregate statistics for a trace.
type Summary struct {
	TotalHops         int     `json:"total_hops"`
	TotalTimeMs       float64 `json:"total_time_ms"`
	PacketLossPercent float64 `json:"packet_loss_percent"`
}
