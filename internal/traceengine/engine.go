package traceengine

import (
	"context"
	"net"
	"time"

	"github.com/netpathlabs/tcptrace/internal/probe"
)

// probeCount is the fixed number of probes sent per TTL (§3, §4.3).
const probeCount = 3

// icmpReceiver abstracts icmpListener's receive path. The engine holds this
// interface, not a concrete *icmpListener, so the correlation logic in
// wait/processICMP can be driven by a scripted fake in tests (§8 scenarios
// S1-S5) without opening a raw socket.
type icmpReceiver interface {
	receive() (icmpReply, bool, error)
	fdForPoll() int
	close()
}

// tcpReceiver abstracts tcpRecv's receive path for the same reason.
type tcpReceiver interface {
	receive(dstIP net.IP) (tcpReply, bool, error)
	fd() int
	close()
}

// pollFunc abstracts rawPoll so wait's readiness multiplexing can be driven
// deterministically from a test without real file descriptors.
type pollFunc func(fds []int, timeoutMS int) ([]bool, error)

// Trace resolves host, then performs a TCP SYN path trace to host:port,
// returning one HopSummary per probed TTL in order. It aborts setup with
// ErrResolutionFailed, ErrPermissionDenied, or ErrNetworkUnreachable; all
// other failures degrade a single probe or datagram without aborting.
func Trace(ctx context.Context, host string, cfg Config) ([]HopSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolved, err := probe.ResolveIPv4(ctx, host)
	if err != nil {
		return nil, err
	}
	dstIP := resolved.IP

	srcIP, err := probe.LocalSource(dstIP)
	if err != nil {
		return nil, err
	}

	e := &engine{
		dstIP:   dstIP,
		dstPort: cfg.Port,
		srcIP:   srcIP,
		mode:    cfg.Mode,
		maxHops: cfg.MaxHops,
		timeout: cfg.Timeout,
		diag:    cfg.DiagSink,
		poll:    rawPoll,
	}
	if err := e.setup(); err != nil {
		return nil, err
	}
	defer e.teardown()

	if e.diag != nil {
		e.diag.SetupStarted(dstIP, cfg.Port, srcIP, e.sendMode, cfg.MaxHops, cfg.Timeout.Milliseconds())
	}

	return e.run(ctx)
}

// engine holds every descriptor and piece of state owned for the duration
// of one trace call. No locking is required: it is accessed from exactly
// one goroutine.
type engine struct {
	dstIP   net.IP
	dstPort int
	srcIP   net.IP
	mode    Mode
	maxHops int
	timeout time.Duration
	diag    DiagSink

	sendMode Mode // the mode actually used for sending, after Auto resolution
	icmp     icmpReceiver
	tcp      tcpReceiver
	raw      *rawSender
	conn     *connectSender
	poll     pollFunc
}

func (e *engine) setup() error {
	listenMode := icmpAuto
	switch e.mode {
	case ModeRaw:
		listenMode = icmpRawOnly
	case ModeConnect:
		listenMode = icmpDatagramOnly
	}
	icmpL, err := openICMPListener(listenMode)
	if err != nil {
		return err
	}
	e.icmp = icmpL

	tcpR, err := openTCPRecv()
	if err != nil {
		e.icmp.close()
		return err
	}
	e.tcp = tcpR

	switch e.mode {
	case ModeRaw:
		raw, err := openRawSender()
		if err != nil {
			e.teardown()
			return err
		}
		e.raw = raw
		e.sendMode = ModeRaw
	case ModeConnect:
		e.conn = newConnectSender()
		e.sendMode = ModeConnect
	default: // ModeAuto: prefer raw, fall back to connect
		if raw, err := openRawSender(); err == nil {
			e.raw = raw
			e.sendMode = ModeRaw
		} else {
			e.conn = newConnectSender()
			e.sendMode = ModeConnect
		}
	}

	return nil
}

func (e *engine) teardown() {
	if e.icmp != nil {
		e.icmp.close()
	}
	if e.tcp != nil {
		e.tcp.close()
	}
	if e.raw != nil {
		e.raw.close()
	}
}

func (e *engine) run(ctx context.Context) ([]HopSummary, error) {
	var summaries []HopSummary

	for ttl := 1; ttl <= e.maxHops; ttl++ {
		select {
		case <-ctx.Done():
			return summaries, nil
		default:
		}

		inflight := make(map[uint16]*ProbeState, probeCount)
		agg := HopAggregate{}

		for idx := 0; idx < probeCount; idx++ {
			sp := sport(ttl, idx)
			inflight[sp] = &ProbeState{TTL: ttl, SentAt: time.Now()}

			var sendErr error
			if e.sendMode == ModeRaw {
				sendErr = e.raw.send(e.srcIP, e.dstIP, e.dstPort, ttl, idx, sp)
			} else {
				sendErr = e.conn.send(e.srcIP, e.dstIP, e.dstPort, ttl, sp)
			}
			if e.diag != nil {
				e.diag.ProbeSent(ttl, idx, sp, sendErr)
			}
		}

		destinationReached := e.wait(ctx, inflight, &agg)

		if e.conn != nil {
			e.conn.closeWindow()
		}

		summary := Summarize(ttl, agg)
		if e.diag != nil {
			e.diag.HopSummary(summary)
		}
		summaries = append(summaries, summary)

		if destinationReached {
			break
		}
	}

	if onlyLocalAndDestination(summaries) && e.diag != nil {
		e.diag.OnlyLocalAndDestination()
	}

	return summaries, nil
}

// wait multiplexes readiness over the ICMP and TCP receive descriptors
// until three replies are accepted for this TTL or the deadline passes
// (§4.3 step 3). Returns true if the destination replied during this
// window.
func (e *engine) wait(ctx context.Context, inflight map[uint16]*ProbeState, agg *HopAggregate) bool {
	deadline := time.Now().Add(e.timeout)
	accepted := 0
	destinationReached := false

	for accepted < probeCount {
		select {
		case <-ctx.Done():
			return destinationReached
		default:
		}

		residual := time.Until(deadline)
		if residual <= 0 {
			break
		}

		icmpFD := e.icmp.fdForPoll()
		var fds []int
		icmpIdx, tcpIdx := -1, -1
		if icmpFD >= 0 {
			icmpIdx = len(fds)
			fds = append(fds, icmpFD)
		}
		tcpIdx = len(fds)
		fds = append(fds, e.tcp.fd())

		ready, err := e.poll(fds, msFromDuration(residual))
		if err != nil {
			break
		}

		pollICMP := icmpFD < 0 // datagram mode: always attempt, no poll signal
		if icmpIdx >= 0 {
			pollICMP = ready[icmpIdx]
		}
		if pollICMP {
			if e.processICMP(inflight, agg) {
				accepted++
			}
		}

		if tcpIdx >= 0 && ready[tcpIdx] {
			gotReply, reached := e.processTCP(inflight, agg)
			if gotReply {
				accepted++
				if reached {
					destinationReached = true
				}
			}
		}
	}

	return destinationReached
}

func (e *engine) processICMP(inflight map[uint16]*ProbeState, agg *HopAggregate) bool {
	reply, ok, err := e.icmp.receive()
	if err != nil || !ok {
		return false
	}

	ps, found := inflight[reply.OrigPort]
	if e.diag != nil {
		e.diag.ICMPReceived(reply.FromIP, reply.OrigPort, found && ps != nil && !ps.Done)
	}
	if !found || ps.Done {
		return false
	}

	rtt := msSince(ps.SentAt)
	agg.Accept(reply.FromIP, rtt, false)
	ps.Done = true
	return true
}

// processTCP returns (accepted, reached): accepted is true if a reply was
// matched to an in-flight probe and counted; reached is always true
// alongside it, since every accepted TCP reply is from the destination.
func (e *engine) processTCP(inflight map[uint16]*ProbeState, agg *HopAggregate) (accepted, reached bool) {
	reply, ok, err := e.tcp.receive(e.dstIP)
	if err != nil || !ok {
		return false, false
	}

	ps, found := inflight[reply.DstPort]
	if !found || ps.Done {
		return false, false
	}

	rtt := msSince(ps.SentAt)
	agg.Accept(reply.FromIP, rtt, true)
	ps.Done = true
	if e.diag != nil {
		e.diag.DestinationReplied(reply.FromIP, reply.DstPort, reply.RST)
	}
	return true, true
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}

func msFromDuration(d time.Duration) int {
	ms := int(d / time.Millisecond)
	if ms < 0 {
		return 0
	}
	return ms
}

// onlyLocalAndDestination implements the post-run heuristic named in the
// diagnostic sink contract: the destination was reached, and the only
// other hop that ever replied was TTL 1 (the local gateway).
func onlyLocalAndDestination(summaries []HopSummary) bool {
	if len(summaries) == 0 || !summaries[len(summaries)-1].Reached {
		return false
	}
	repliedOthers := 0
	for _, s := range summaries[:len(summaries)-1] {
		if s.NumReplies > 0 && s.TTL != 1 {
			repliedOthers++
		}
	}
	return repliedOthers == 0 && len(summaries) >= 2 && summaries[0].NumReplies > 0
}
