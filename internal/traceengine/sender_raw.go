package traceengine

import (
	"encoding/binary"
	"net"

	"github.com/netpathlabs/tcptrace/internal/probe"
)

// rawSender sends hand-crafted IPv4+TCP-SYN packets through a raw socket
// with IP_HDRINCL enabled (§4.4.1).
type rawSender struct {
	fd int
}

func openRawSender() (*rawSender, error) {
	fd, err := rawOpenTCPSend()
	if err != nil {
		return nil, err
	}
	return &rawSender{fd: fd}, nil
}

func (s *rawSender) close() { rawClose(s.fd) }

// send composes the 40-byte IPv4+TCP SYN buffer for probe idx at ttl and
// transmits it to dst:dstPort. The IPv4 identification field and the TCP
// sequence number are derived deterministically from ttl and idx so a
// captured packet's provenance can be confirmed without extra state.
func (s *rawSender) send(src, dst net.IP, dstPort, ttl, idx int, sp uint16) error {
	buf := buildSYNPacket(src, dst, dstPort, ttl, idx, sp)
	if err := rawSendTo(s.fd, buf, dst, dstPort); err != nil {
		return ErrSendFailed
	}
	return nil
}

// buildSYNPacket lays out the 40-byte, no-options IPv4+TCP SYN packet
// exactly as specified: IPv4 id=(ttl<<8)|idx, TTL=ttl, protocol=TCP;
// TCP seq=(ttl<<24)|(idx<<16)|0x1234, only SYN set, window=65535.
func buildSYNPacket(src, dst net.IP, dstPort, ttl, idx int, sport uint16) []byte {
	buf := make([]byte, 40)
	ip := buf[0:20]
	tcp := buf[20:40]

	ip[0] = 0x45 // version=4, ihl=5
	ip[1] = 0    // tos
	binary.BigEndian.PutUint16(ip[2:4], 40)
	binary.BigEndian.PutUint16(ip[4:6], uint16(ttl<<8|idx))
	binary.BigEndian.PutUint16(ip[6:8], 0) // flags/frag_off
	ip[8] = byte(ttl)
	ip[9] = 6 // protocol = TCP
	copy(ip[12:16], src.To4())
	copy(ip[16:20], dst.To4())
	binary.BigEndian.PutUint16(ip[10:12], 0) // checksum zeroed before compute

	binary.BigEndian.PutUint16(tcp[0:2], sport)
	binary.BigEndian.PutUint16(tcp[2:4], uint16(dstPort))
	binary.BigEndian.PutUint32(tcp[4:8], uint32(ttl)<<24|uint32(idx)<<16|0x1234)
	binary.BigEndian.PutUint32(tcp[8:12], 0) // ack
	tcp[12] = 0x50                           // data offset = 5, reserved = 0
	tcp[13] = 0x02                           // SYN only
	binary.BigEndian.PutUint16(tcp[14:16], 65535)
	binary.BigEndian.PutUint16(tcp[16:18], 0) // checksum zeroed before compute
	binary.BigEndian.PutUint16(tcp[18:20], 0) // urgent pointer

	ipSum := probe.IPChecksum(ip)
	binary.BigEndian.PutUint16(ip[10:12], ipSum)

	tcpSum, _ := probe.TCPChecksum(src, dst, tcp)
	binary.BigEndian.PutUint16(tcp[16:18], tcpSum)

	return buf
}
