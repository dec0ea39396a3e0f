package traceengine

import (
	"context"
	"net"
	"testing"
	"time"
)

// fakeICMP is a scripted icmpReceiver: it plays back a fixed sequence of
// replies, then reports ok=false once exhausted, mirroring what
// receiveRaw/receiveDatagram report on a would-block read. This is the seam
// that lets the S1-S5 correlator scenarios run without a raw socket.
type fakeICMP struct {
	script []icmpReply
	i      int
}

func (f *fakeICMP) receive() (icmpReply, bool, error) {
	if f.i >= len(f.script) {
		return icmpReply{}, false, nil
	}
	r := f.script[f.i]
	f.i++
	return r, true, nil
}
func (f *fakeICMP) fdForPoll() int { return 3 }
func (f *fakeICMP) close()         {}

// fakeTCP is the tcpReceiver counterpart of fakeICMP.
type fakeTCP struct {
	script []tcpReply
	i      int
}

func (f *fakeTCP) receive(net.IP) (tcpReply, bool, error) {
	if f.i >= len(f.script) {
		return tcpReply{}, false, nil
	}
	r := f.script[f.i]
	f.i++
	return r, true, nil
}
func (f *fakeTCP) fd() int { return 4 }
func (f *fakeTCP) close()  {}

// alwaysReady stands in for rawPoll in these tests: it reports every fd
// ready immediately, leaving the scripted receivers (not poll readiness) to
// drive each scenario's pacing.
func alwaysReady(fds []int, timeoutMS int) ([]bool, error) {
	ready := make([]bool, len(fds))
	for i := range ready {
		ready[i] = true
	}
	return ready, nil
}

func newCorrelatorEngine(icmp icmpReceiver, tcp tcpReceiver, dstIP net.IP, timeout time.Duration) *engine {
	return &engine{
		dstIP:   dstIP,
		dstPort: 443,
		timeout: timeout,
		icmp:    icmp,
		tcp:     tcp,
		poll:    alwaysReady,
	}
}

func inflightFor(ttl int) map[uint16]*ProbeState {
	m := make(map[uint16]*ProbeState, probeCount)
	for idx := 0; idx < probeCount; idx++ {
		m[sport(ttl, idx)] = &ProbeState{TTL: ttl, SentAt: time.Now()}
	}
	return m
}

// S1: clean path, 3 hops. Routers at TTL 1, 2 each reply with
// Time-Exceeded; the destination replies with SYN-ACK at TTL 3.
func TestCorrelatorCleanPath(t *testing.T) {
	dst := net.ParseIP("93.184.216.34")

	icmpFake := &fakeICMP{script: []icmpReply{
		{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 0)},
		{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 1)},
		{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 2)},
	}}
	e := newCorrelatorEngine(icmpFake, &fakeTCP{}, dst, 50*time.Millisecond)

	agg1 := HopAggregate{}
	if reached := e.wait(context.Background(), inflightFor(1), &agg1); reached {
		t.Fatal("ttl 1 should not report destination reached")
	}
	s1 := Summarize(1, agg1)
	if s1.NumReplies != 3 || s1.HopIP != "10.0.0.1" {
		t.Fatalf("ttl1 summary = %+v, want 3 replies from 10.0.0.1", s1)
	}

	icmpFake.script = []icmpReply{
		{FromIP: net.ParseIP("10.0.0.2"), OrigPort: sport(2, 0)},
		{FromIP: net.ParseIP("10.0.0.2"), OrigPort: sport(2, 1)},
		{FromIP: net.ParseIP("10.0.0.2"), OrigPort: sport(2, 2)},
	}
	icmpFake.i = 0
	agg2 := HopAggregate{}
	if reached := e.wait(context.Background(), inflightFor(2), &agg2); reached {
		t.Fatal("ttl 2 should not report destination reached")
	}
	s2 := Summarize(2, agg2)
	if s2.NumReplies != 3 || s2.HopIP != "10.0.0.2" {
		t.Fatalf("ttl2 summary = %+v, want 3 replies from 10.0.0.2", s2)
	}

	tcpFake := &fakeTCP{script: []tcpReply{
		{FromIP: dst, DstPort: sport(3, 0), SYNACK: true},
		{FromIP: dst, DstPort: sport(3, 1), SYNACK: true},
		{FromIP: dst, DstPort: sport(3, 2), SYNACK: true},
	}}
	e.icmp = &fakeICMP{}
	e.tcp = tcpFake
	agg3 := HopAggregate{}
	if reached := e.wait(context.Background(), inflightFor(3), &agg3); !reached {
		t.Fatal("ttl 3 should report destination reached")
	}
	s3 := Summarize(3, agg3)
	if !s3.Reached || s3.HopIP != dst.String() {
		t.Fatalf("ttl3 summary = %+v, want reached=true hop_ip=%s", s3, dst)
	}
}

// S2: TTL 2's probes are dropped with no ICMP at all. wait must time out
// with no accepted replies and report reached=false.
func TestCorrelatorSilentHop(t *testing.T) {
	e := newCorrelatorEngine(&fakeICMP{}, &fakeTCP{}, net.ParseIP("93.184.216.34"), 20*time.Millisecond)

	agg := HopAggregate{}
	if reached := e.wait(context.Background(), inflightFor(2), &agg); reached {
		t.Fatal("silent hop should not report destination reached")
	}
	s := Summarize(2, agg)
	if s.NumReplies != 0 || s.HopIP != "" {
		t.Fatalf("summary = %+v, want 0 replies and empty hop_ip", s)
	}
}

// S3: the destination replies with TCP RST at TTL 2. reached must be true;
// the caller (run) is responsible for not probing further TTLs.
func TestCorrelatorRSTDestination(t *testing.T) {
	dst := net.ParseIP("93.184.216.34")
	tcpFake := &fakeTCP{script: []tcpReply{
		{FromIP: dst, DstPort: sport(2, 0), RST: true},
	}}
	e := newCorrelatorEngine(&fakeICMP{}, tcpFake, dst, 20*time.Millisecond)

	agg := HopAggregate{}
	if reached := e.wait(context.Background(), inflightFor(2), &agg); !reached {
		t.Fatal("RST from destination should report reached=true")
	}
	s := Summarize(2, agg)
	if !s.Reached || s.HopIP != dst.String() {
		t.Fatalf("summary = %+v, want reached=true hop_ip=%s", s, dst)
	}
}

// S4: the TTL 1 router's third reply arrives only after TTL 2's window has
// opened. It must be discarded, not credited to either hop: TTL 1's summary
// reflects only the two timely replies, and TTL 2's inflight table (keyed
// by TTL 2's own ports) never matches the late arrival.
func TestCorrelatorLateReplyDiscarded(t *testing.T) {
	icmpFake := &fakeICMP{script: []icmpReply{
		{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 0)},
		{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 1)},
	}}
	e := newCorrelatorEngine(icmpFake, &fakeTCP{}, net.ParseIP("93.184.216.34"), 15*time.Millisecond)

	agg1 := HopAggregate{}
	e.wait(context.Background(), inflightFor(1), &agg1)
	s1 := Summarize(1, agg1)
	if s1.NumReplies != 2 {
		t.Fatalf("ttl1 num_replies = %d, want 2 (late 3rd reply must not count)", s1.NumReplies)
	}

	icmpFake.script = []icmpReply{{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 2)}}
	icmpFake.i = 0
	agg2 := HopAggregate{}
	e.wait(context.Background(), inflightFor(2), &agg2)
	if agg2.Count != 0 {
		t.Fatalf("ttl2 count = %d, want 0: the late ttl1 reply must be discarded, not credited to ttl2", agg2.Count)
	}
}

// S5: the same router sends two Time-Exceeded replies for probe idx=0. The
// second must be ignored because the first already marked that probe done.
func TestCorrelatorDuplicateICMP(t *testing.T) {
	icmpFake := &fakeICMP{script: []icmpReply{
		{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 0)},
		{FromIP: net.ParseIP("10.0.0.1"), OrigPort: sport(1, 0)},
	}}
	e := newCorrelatorEngine(icmpFake, &fakeTCP{}, net.ParseIP("93.184.216.34"), 15*time.Millisecond)

	agg := HopAggregate{}
	e.wait(context.Background(), inflightFor(1), &agg)
	if agg.Count != 1 {
		t.Fatalf("count = %d, want 1: duplicate ICMP for an already-done probe must be ignored", agg.Count)
	}
}
