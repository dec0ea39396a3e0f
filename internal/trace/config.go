package trace

import (
	"time"

	"github.com/netpathlabs/tcptrace/internal/enrich"
	"github.com/netpathlabs/tcptrace/internal/traceengine"
)

// Config holds the configuration for a trace operation, combining the
// probe engine's settings with the output-layer enrichment toggles.
type Config struct {
	MaxHops int           // maximum TTL (default: 30)
	Timeout time.Duration // per-TTL wait window (default: 1s)
	Port    int           // destination port (default: 443)
	Mode    traceengine.Mode

	// Enrichment settings
	EnableEnrichment bool // enable any enrichment at all
	EnableRDNS       bool
	EnableASN        bool
	EnableGeoIP      bool

	// MaxMindDB is an optional *enrich.MaxMindDB; any other value is
	// ignored.
	MaxMindDB interface{}

	// OnHop, if set, is called once per hop in TTL order after the whole
	// trace has finished and every hop has been enriched; hops are not
	// delivered while the trace is still running.
	OnHop func(hop *Hop)

	DiagSink traceengine.DiagSink
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxHops:          30,
		Timeout:          1 * time.Second,
		Port:             443,
		Mode:             traceengine.ModeAuto,
		EnableEnrichment: true,
		EnableRDNS:       true,
		EnableASN:        true,
		EnableGeoIP:      true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxHops < 1 || c.MaxHops > 255 {
		return ErrInvalidMaxHops
	}
	if c.Timeout < 10*time.Millisecond {
		return ErrInvalidTimeout
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// enricherConfig builds an enrich.EnricherConfig from the enabled toggles.
func (c *Config) enricherConfig() enrich.EnricherConfig {
	cfg := enrich.DefaultEnricherConfig()
	cfg.EnableRDNS = c.EnableEnrichment && c.EnableRDNS
	cfg.EnableASN = c.EnableEnrichment && c.EnableASN
	cfg.EnableGeoIP = c.EnableEnrichment && c.EnableGeoIP
	return cfg
}
