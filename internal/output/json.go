package output

import (
	"encoding/json"

	"github.com/netpathlabs/tcptrace/internal/enrich"
	"github.com/netpathlabs/tcptrace/internal/trace"
)

// JSONFormatter formats trace results as JSON.
type JSONFormatter struct {
	config Config
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(config Config) *JSONFormatter {
	return &JSONFormatter{
		config: config,
		pretty: true, // Default to pretty-printed
	}
}

// NewJSONFormatterCompact creates a JSON formatter with compact output.
func NewJSONFormatterCompact(config Config) *JSONFormatter {
	return &JSONFormatter{
		config: config,
		pretty: false,
	}
}

// SetPretty enables or disables pretty-printing.
func (f *JSONFormatter) SetPretty(pretty bool) {
	f.pretty = pretty
}

// Format formats the trace result as JSON.
func (f *JSONFormatter) Format(result *trace.TraceResult) ([]byte, error) {
	// Convert to JSON-friendly output structure
	output := f.toJSONOutput(result)

	if f.pretty {
		return json.MarshalIndent(output, "", "  ")
	}
	return json.Marshal(output)
}

// JSONOutput is the JSON-serializable representation of a trace result.
type JSONOutput struct {
	Target     string      `json:"target"`
	ResolvedIP string      `json:"resolved_ip"`
	Timestamp  string      `json:"timestamp"`
	Mode       string      `json:"mode"`
	Completed  bool        `json:"completed"`
	Hops       []JSONHop   `json:"hops"`
	Summary    JSONSummary `json:"summary"`
}

// JSONHop represents a single hop in JSON format.
type JSONHop struct {
	Hop         int        `json:"hop"`
	IP          string     `json:"ip,omitempty"`
	Hostname    string     `json:"hostname,omitempty"`
	Enrich      *JSONEnrich `json:"enrich,omitempty"`
	RTTs        []float64  `json:"rtts"`
	AvgRTT      float64    `json:"avg_rtt_ms"`
	MinRTT      float64    `json:"min_rtt_ms"`
	MaxRTT      float64    `json:"max_rtt_ms"`
	Jitter      float64    `json:"jitter_ms"`
	LossPercent float64    `json:"loss_percent"`
	Responded   bool       `json:"responded"`
	Reached     bool       `json:"reached"`
}

// JSONEnrich represents the merged rDNS/ASN/GeoIP descriptor in JSON format.
type JSONEnrich struct {
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	ISP     string  `json:"isp,omitempty"`
	Org     string  `json:"org,omitempty"`
	ASN     int     `json:"asn,omitempty"`
	ASName  string  `json:"as_name,omitempty"`
}

// JSONSummary represents trace summary in JSON format.
type JSONSummary struct {
	TotalHops         int     `json:"total_hops"`
	TotalTimeMs       float64 `json:"total_time_ms"`
	PacketLossPercent float64 `json:"packet_loss_percent"`
}

// toJSONOutput converts a TraceResult to JSONOutput.
func (f *JSONFormatter) toJSONOutput(result *trace.TraceResult) *JSONOutput {
	output := &JSONOutput{
		Target:     result.Target,
		ResolvedIP: result.ResolvedIP.String(),
		Timestamp:  result.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Mode:       result.Mode,
		Completed:  result.Completed,
		Hops:       make([]JSONHop, len(result.Hops)),
		Summary: JSONSummary{
			TotalHops:         result.Summary.TotalHops,
			TotalTimeMs:       roundFloat(result.Summary.TotalTimeMs, 3),
			PacketLossPercent: roundFloat(result.Summary.PacketLossPercent, 1),
		},
	}

	for i, hop := range result.Hops {
		output.Hops[i] = f.toJSONHop(&hop)
	}

	return output
}

// toJSONHop converts a Hop to JSONHop.
func (f *JSONFormatter) toJSONHop(hop *trace.Hop) JSONHop {
	jh := JSONHop{
		Hop:         hop.Number,
		RTTs:        hop.RTTs,
		AvgRTT:      roundFloat(hop.AvgRTT, 3),
		MinRTT:      roundFloat(hop.MinRTT, 3),
		MaxRTT:      roundFloat(hop.MaxRTT, 3),
		Jitter:      roundFloat(hop.Jitter, 3),
		LossPercent: roundFloat(hop.LossPercent, 1),
		Responded:   hop.Responded,
		Reached:     hop.Reached,
	}

	if hop.IP != nil {
		jh.IP = hop.IP.String()
	}

	if hop.Enrich.Hostname != "" {
		jh.Hostname = hop.Enrich.Hostname
	}

	var zeroEnrich enrich.Record
	if hop.Enrich != zeroEnrich {
		jh.Enrich = &JSONEnrich{
			City:    hop.Enrich.City,
			Country: hop.Enrich.Country,
			Lat:     hop.Enrich.Lat,
			Lon:     hop.Enrich.Lon,
			ISP:     hop.Enrich.ISP,
			Org:     hop.Enrich.Org,
			ASN:     hop.Enrich.ASN,
			ASName:  hop.Enrich.ASName,
		}
	}

	return jh
}

// ContentType returns the MIME type for JSON output.
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// FileExtension returns the file extension for JSON output.
func (f *JSONFormatter) FileExtension() string {
	return "json"
}

// Helper function to round floats
func roundFloat(val float64, precision int) float64 {
	if precision == 0 {
		return float64(int(val + 0.5))
	}
	p := float64(1)
	for i := 0; i < precision; i++ {
		p *= 10
	}
	return float64(int(val*p+0.5)) / p
}
