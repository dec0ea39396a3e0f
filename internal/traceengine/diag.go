package traceengine

import (
	"log/slog"
	"net"
)

// DiagSink receives structured diagnostic events from the engine. Presence
// of a sink never changes engine behavior or timing beyond the I/O it
// performs; the engine must function identically with a nil sink.
type DiagSink interface {
	SetupStarted(dstIP net.IP, dstPort int, srcIP net.IP, mode Mode, maxHops int, timeoutMS int64)
	ProbeSent(ttl, idx int, sport uint16, err error)
	ICMPReceived(fromIP net.IP, sport uint16, matched bool)
	DestinationReplied(fromIP net.IP, sport uint16, rst bool)
	HopSummary(s HopSummary)
	OnlyLocalAndDestination()
}

// slogSink is the default DiagSink, backed by log/slog — the pack's
// established pattern for wiring structured logging into a raw-socket
// send/receive loop.
type slogSink struct {
	log *slog.Logger
}

// NewSlogSink wraps a *slog.Logger as a DiagSink. A nil logger is replaced
// with slog.Default().
func NewSlogSink(log *slog.Logger) DiagSink {
	if log == nil {
		log = slog.Default()
	}
	return &slogSink{log: log}
}

func (s *slogSink) SetupStarted(dstIP net.IP, dstPort int, srcIP net.IP, mode Mode, maxHops int, timeoutMS int64) {
	s.log.Info("trace setup", "dst", dstIP, "port", dstPort, "src", srcIP, "mode", mode.String(), "max_hops", maxHops, "timeout_ms", timeoutMS)
}

func (s *slogSink) ProbeSent(ttl, idx int, sport uint16, err error) {
	if err != nil {
		s.log.Debug("probe send failed", "ttl", ttl, "idx", idx, "sport", sport, "err", err)
		return
	}
	s.log.Debug("probe sent", "ttl", ttl, "idx", idx, "sport", sport)
}

func (s *slogSink) ICMPReceived(fromIP net.IP, sport uint16, matched bool) {
	s.log.Debug("icmp time-exceeded received", "from", fromIP, "orig_sport", sport, "matched", matched)
}

func (s *slogSink) DestinationReplied(fromIP net.IP, sport uint16, rst bool) {
	s.log.Debug("destination replied", "from", fromIP, "sport", sport, "rst", rst)
}

func (s *slogSink) HopSummary(sum HopSummary) {
	s.log.Info("hop summary", "ttl", sum.TTL, "hop_ip", sum.HopIP, "num_replies", sum.NumReplies, "reached", sum.Reached)
}

func (s *slogSink) OnlyLocalAndDestination() {
	s.log.Info("heuristic: only local gateway and destination responded")
}
