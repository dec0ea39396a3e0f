package traceengine

import (
	"net"

	"github.com/netpathlabs/tcptrace/internal/probe"
)

// tcpRecv owns the raw IPv4/TCP receive socket used to sniff SYN-ACK/RST
// replies arriving from the destination (§4.3 step 4). It implements the
// tcpReceiver interface so the correlator can be driven by a scripted fake
// in tests instead of a real socket.
type tcpRecv struct {
	sock int
}

func openTCPRecv() (*tcpRecv, error) {
	fd, err := rawOpenTCPRecv()
	if err != nil {
		return nil, err
	}
	return &tcpRecv{sock: fd}, nil
}

func (r *tcpRecv) close() { rawClose(r.sock) }

// fd returns the pollable file descriptor for this receiver.
func (r *tcpRecv) fd() int { return r.sock }

// tcpReply is one accepted destination reply.
type tcpReply struct {
	FromIP  net.IP
	DstPort uint16 // the probe's original source port, swapped into dst by the reply
	SYNACK  bool
	RST     bool
}

// receive reads one datagram (non-blocking) and, if it parses as an IPv4 +
// TCP segment whose source address equals dstIP and whose flags show
// SYN+ACK or RST, returns the parsed reply. Anything else — truncation, a
// non-matching source, or a would-block read — returns ok=false.
func (r *tcpRecv) receive(dstIP net.IP) (tcpReply, bool, error) {
	buf := make([]byte, 2048)
	n, from, err := rawRecvFrom(r.sock, buf)
	if err != nil {
		if err == errWouldBlock {
			return tcpReply{}, false, nil
		}
		return tcpReply{}, false, err
	}

	outer, perr := probe.ParseIPv4Header(buf[:n])
	if perr != nil {
		return tcpReply{}, false, nil
	}
	src := from
	if src == nil {
		src = outer.Src()
	}
	if !src.Equal(dstIP) {
		return tcpReply{}, false, nil
	}

	tcpHdr, perr := probe.ParseTCPHeader(outer.Payload())
	if perr != nil {
		return tcpReply{}, false, nil
	}

	synAck := tcpHdr.IsSYNACK()
	rst := tcpHdr.IsRST()
	if !synAck && !rst {
		return tcpReply{}, false, nil
	}

	return tcpReply{FromIP: src, DstPort: tcpHdr.DstPort(), SYNACK: synAck, RST: rst}, true, nil
}
