package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/netpathlabs/tcptrace/internal/trace"
)

const hopSeparator = "-------------------------------------------" // 43 dashes

// TextFormatter formats trace results as the literal per-TTL line format:
// "Hop <ttl>: <ip> (<desc>) - min/avg/max RTT = <n.nn> / <n.nn> / <n.nn> ms"
// or the star variant for a TTL with no replies.
type TextFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(config Config) *TextFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}
	return &TextFormatter{config: config, colors: colors}
}

// Format formats the trace result as the fixed per-hop text layout.
func (f *TextFormatter) Format(result *trace.TraceResult) ([]byte, error) {
	var buf bytes.Buffer

	for _, hop := range result.Hops {
		f.formatHop(&buf, &hop)
	}

	buf.WriteString(hopSeparator)
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "Total hops: %d\n", result.Summary.TotalHops)

	return buf.Bytes(), nil
}

// FormatHop formats a single hop line, for streaming output.
func (f *TextFormatter) FormatHop(hop *trace.Hop) string {
	var buf bytes.Buffer
	f.formatHop(&buf, hop)
	return buf.String()
}

func (f *TextFormatter) formatHop(buf *bytes.Buffer, hop *trace.Hop) {
	if !hop.Responded {
		line := fmt.Sprintf("Hop %d: * (no reply) - min/avg/max RTT = * / * / * ms", hop.Number)
		if f.colors != nil {
			line = f.colors.Timeout.Sprint(line)
		}
		buf.WriteString(line)
		buf.WriteString("\n")
		return
	}

	ip := hop.IP.String()
	desc := f.describe(hop)

	rttPart := fmt.Sprintf("%.2f / %.2f / %.2f ms", hop.MinRTT, hop.AvgRTT, hop.MaxRTT)
	if f.colors != nil {
		ip = f.colors.IP.Sprint(ip)
		rttPart = f.colorizeRTT(hop.AvgRTT, rttPart)
	}

	fmt.Fprintf(buf, "Hop %d: %s (%s) - min/avg/max RTT = %s\n", hop.Number, ip, desc, rttPart)
}

// describe builds the "(<desc>)" parenthetical: the rDNS hostname and the
// geo/ASN descriptor, whichever are present, joined with " · ".
func (f *TextFormatter) describe(hop *trace.Hop) string {
	var parts []string
	if hop.Enrich.Hostname != "" && !f.config.NoHostname {
		parts = append(parts, hop.Enrich.Hostname)
	}
	if desc := hop.Descriptor(); desc != "" && !(f.config.NoASN && f.config.NoGeoIP) {
		parts = append(parts, desc)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " · ")
}

func (f *TextFormatter) colorizeRTT(avg float64, str string) string {
	if f.colors == nil {
		return str
	}
	switch {
	case avg < 50:
		return f.colors.RTTLow.Sprint(str)
	case avg < 150:
		return f.colors.RTTMed.Sprint(str)
	default:
		return f.colors.RTTHigh.Sprint(str)
	}
}

// ContentType returns the MIME type for text output.
func (f *TextFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the file extension for text output.
func (f *TextFormatter) FileExtension() string {
	return "txt"
}

// ColorScheme defines colors for different output elements.
type ColorScheme struct {
	Hop      *color.Color
	IP       *color.Color
	Hostname *color.Color
	RTTLow   *color.Color // < 50ms
	RTTMed   *color.Color // 50-150ms
	RTTHigh  *color.Color // > 150ms
	Timeout  *color.Color
	ASN      *color.Color
	Geo      *color.Color
	Header   *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Hop:      color.New(color.FgCyan, color.Bold),
		IP:       color.New(color.FgWhite),
		Hostname: color.New(color.FgGreen),
		RTTLow:   color.New(color.FgGreen),
		RTTMed:   color.New(color.FgYellow),
		RTTHigh:  color.New(color.FgRed),
		Timeout:  color.New(color.FgRed, color.Bold),
		ASN:      color.New(color.FgMagenta),
		Geo:      color.New(color.FgBlue),
		Header:   color.New(color.FgWhite, color.Bold),
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
