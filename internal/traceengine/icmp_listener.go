package traceengine

import (
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/netpathlabs/tcptrace/internal/probe"
)

// icmpListenMode mirrors the engine's Mode mapping at setup (§4.3 step 3):
// Raw→RawOnly, Connect→DatagramOnly, Auto→Auto.
type icmpListenMode int

const (
	icmpRawOnly icmpListenMode = iota
	icmpDatagramOnly
	icmpAuto
)

// icmpListener owns a raw or datagram ICMP receive socket and parses
// Time-Exceeded replies off it. The raw variant is pollable (a real fd);
// the datagram variant, backed by golang.org/x/net/icmp's unprivileged
// "udp4" network, exposes no raw fd to multiplex with unix.Poll, so it is
// instead polled with a zero read deadline on every wake-up. It implements
// the icmpReceiver interface so the correlator can be driven by a scripted
// fake in tests instead of a real socket.
type icmpListener struct {
	fd     int
	pc     *icmp.PacketConn
	isDgrm bool
}

// icmpReply is the parsed result of one accepted ICMP datagram.
type icmpReply struct {
	FromIP   net.IP
	OrigPort uint16
	OrigTTL  uint8
}

func openICMPListener(mode icmpListenMode) (*icmpListener, error) {
	switch mode {
	case icmpRawOnly:
		fd, err := rawOpenICMP()
		if err != nil {
			return nil, err
		}
		return &icmpListener{fd: fd}, nil
	case icmpDatagramOnly:
		return openDatagramICMPListener()
	default: // icmpAuto: prefer raw, fall back to datagram
		if fd, err := rawOpenICMP(); err == nil {
			return &icmpListener{fd: fd}, nil
		}
		return openDatagramICMPListener()
	}
}

func openDatagramICMPListener() (*icmpListener, error) {
	pc, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return nil, ErrPermissionDenied
	}
	return &icmpListener{pc: pc, isDgrm: true}, nil
}

// fdForPoll returns the descriptor to hand to unix.Poll, or -1 if this
// listener has no pollable fd and must be polled out-of-band instead.
func (l *icmpListener) fdForPoll() int {
	if l.isDgrm {
		return -1
	}
	return l.fd
}

func (l *icmpListener) close() {
	if l.isDgrm {
		if l.pc != nil {
			l.pc.Close()
		}
		return
	}
	rawClose(l.fd)
}

// receive reads one datagram (non-blocking) and, if it parses as an IPv4 +
// ICMP Time-Exceeded + quoted inner IPv4 + first 8 bytes of the original
// TCP segment, returns the responder IP, the quoted original source port,
// and the inner IPv4 TTL. ok=false covers truncation, a non-Time-Exceeded
// type, or a would-block read — the caller treats it as "nothing
// actionable this wake-up".
func (l *icmpListener) receive() (icmpReply, bool, error) {
	if l.isDgrm {
		return l.receiveDatagram()
	}
	return l.receiveRaw()
}

func (l *icmpListener) receiveRaw() (icmpReply, bool, error) {
	buf := make([]byte, 2048)
	n, from, err := rawRecvFrom(l.fd, buf)
	if err != nil {
		if err == errWouldBlock {
			return icmpReply{}, false, nil
		}
		return icmpReply{}, false, err
	}

	outer, perr := probe.ParseIPv4Header(buf[:n])
	if perr != nil {
		return icmpReply{}, false, nil
	}
	fromIP := from
	if fromIP == nil {
		fromIP = outer.Src()
	}

	icmpHdr, perr := probe.ParseICMPHeader(outer.Payload())
	if perr != nil {
		return icmpReply{}, false, nil
	}
	return parseTimeExceeded(icmpHdr, fromIP)
}

func (l *icmpListener) receiveDatagram() (icmpReply, bool, error) {
	_ = l.pc.SetReadDeadline(time.Now())
	buf := make([]byte, 2048)
	n, peer, err := l.pc.ReadFrom(buf)
	if err != nil {
		// Deadline-exceeded is the expected "nothing to read" outcome here.
		return icmpReply{}, false, nil
	}

	msg, err := icmp.ParseMessage(1 /* ICMPv4 protocol number */, buf[:n])
	if err != nil {
		return icmpReply{}, false, nil
	}
	if msg.Type != ipv4.ICMPTypeTimeExceeded {
		return icmpReply{}, false, nil
	}
	te, ok := msg.Body.(*icmp.TimeExceeded)
	if !ok {
		return icmpReply{}, false, nil
	}

	inner, perr := probe.ParseIPv4Header(te.Data)
	if perr != nil {
		return icmpReply{}, false, nil
	}
	srcPort, _, perr := probe.QuotedTCPPorts(te.Data[inner.IHL():])
	if perr != nil {
		return icmpReply{}, false, nil
	}

	var fromIP net.IP
	if udpAddr, ok := peer.(*net.UDPAddr); ok {
		fromIP = udpAddr.IP
	}
	return icmpReply{FromIP: fromIP, OrigPort: srcPort, OrigTTL: inner.TTL()}, true, nil
}

func parseTimeExceeded(icmpHdr probe.ICMPHeader, fromIP net.IP) (icmpReply, bool, error) {
	if icmpHdr.Type() != 11 { // Time Exceeded
		return icmpReply{}, false, nil
	}

	inner, err := probe.ParseIPv4Header(icmpHdr.Rest())
	if err != nil {
		return icmpReply{}, false, nil
	}
	innerPayload := icmpHdr.Rest()[inner.IHL():]
	srcPort, _, err := probe.QuotedTCPPorts(innerPayload)
	if err != nil {
		return icmpReply{}, false, nil
	}

	return icmpReply{FromIP: fromIP, OrigPort: srcPort, OrigTTL: inner.TTL()}, true, nil
}
