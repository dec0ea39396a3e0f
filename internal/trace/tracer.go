// Package trace assembles traceengine probe results and enrich lookups
// into the aggregate shape the output formatters and TUI render.
package trace

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/netpathlabs/tcptrace/internal/enrich"
	"github.com/netpathlabs/tcptrace/internal/probe"
	"github.com/netpathlabs/tcptrace/internal/traceengine"
)

// Tracer performs a TCP SYN path trace and enriches the resulting hops.
type Tracer struct {
	config   *Config
	enricher *enrich.Enricher
}

// New creates a new Tracer with the given configuration.
func New(config *Config) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var enricher *enrich.Enricher
	if config.EnableEnrichment {
		if mm, ok := config.MaxMindDB.(*enrich.MaxMindDB); ok && mm != nil {
			enricher = enrich.NewEnricherWithMaxMind(config.enricherConfig(), mm)
		} else {
			enricher = enrich.NewEnricher(config.enricherConfig())
		}
	}

	return &Tracer{config: config, enricher: enricher}, nil
}

// Trace performs a traceroute to the specified target.
func (t *Tracer) Trace(ctx context.Context, target string) (*TraceResult, error) {
	resolved, err := probe.ResolveIPv4(ctx, target)
	if err != nil {
		return nil, ErrTargetResolution
	}
	dest := resolved.IP

	engCfg := traceengine.Config{
		Port:     t.config.Port,
		MaxHops:  t.config.MaxHops,
		Timeout:  t.config.Timeout,
		Mode:     t.config.Mode,
		DiagSink: t.config.DiagSink,
	}

	summaries, err := traceengine.Trace(ctx, target, engCfg)
	if err != nil {
		return nil, err
	}

	hops := make([]Hop, len(summaries))
	for i, s := range summaries {
		hops[i] = hopFromSummary(s)
	}

	if t.enricher != nil {
		t.enrichHops(ctx, hops)
	}

	for i := range hops {
		if t.config.OnHop != nil {
			t.config.OnHop(&hops[i])
		}
	}

	return t.buildResult(target, dest, hops), nil
}

// Close releases resources held by the tracer.
func (t *Tracer) Close() error {
	if t.enricher != nil {
		return t.enricher.Close()
	}
	return nil
}

func hopFromSummary(s traceengine.HopSummary) Hop {
	h := Hop{
		Number:    s.TTL,
		Responded: s.NumReplies > 0,
		Reached:   s.Reached,
		AvgRTT:    s.RTTAvgMS,
		MinRTT:    s.RTTMinMS,
		MaxRTT:    s.RTTMaxMS,
	}
	if s.HopIP != "" {
		h.IP = net.ParseIP(s.HopIP)
	}
	if s.NumReplies > 0 {
		h.Jitter = s.RTTMaxMS - s.RTTMinMS
	}
	h.LossPercent = lossPercent(s.NumReplies)
	return h
}

// lossPercent assumes the fixed three-probes-per-TTL window the engine
// always sends (§4.3).
func lossPercent(numReplies int) float64 {
	const probesPerHop = 3
	if numReplies >= probesPerHop {
		return 0
	}
	return float64(probesPerHop-numReplies) / float64(probesPerHop) * 100
}

// enrichHops resolves rDNS/ASN/GeoIP for every responding hop
// concurrently, writing results back onto the shared hops slice.
func (t *Tracer) enrichHops(ctx context.Context, hops []Hop) {
	var wg sync.WaitGroup
	for i := range hops {
		if hops[i].IP == nil {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hops[i].Enrich = t.enricher.EnrichRecord(ctx, hops[i].IP)
		}(i)
	}
	wg.Wait()
}

func (t *Tracer) buildResult(target string, dest net.IP, hops []Hop) *TraceResult {
	result := &TraceResult{
		Target:     target,
		ResolvedIP: dest,
		Timestamp:  time.Now(),
		Mode:       t.config.Mode.String(),
		Hops:       hops,
	}

	if len(hops) > 0 {
		result.Completed = hops[len(hops)-1].Reached
	}

	result.Summary = t.calculateSummary(hops)
	return result
}

func (t *Tracer) calculateSummary(hops []Hop) Summary {
	summary := Summary{TotalHops: len(hops)}

	var totalLoss float64
	for _, hop := range hops {
		totalLoss += hop.LossPercent
	}
	if len(hops) > 0 {
		summary.PacketLossPercent = totalLoss / float64(len(hops))
	}

	for i := len(hops) - 1; i >= 0; i-- {
		if hops[i].Responded {
			summary.TotalTimeMs = hops[i].AvgRTT
			break
		}
	}

	return summary
}
