package probe

import (
	"encoding/binary"
	"net"
)

// IPv4Header is a read-only, byte-offset-based view over a received IPv4
// datagram. Struct field names and alignment for IP/TCP/ICMP headers differ
// across BSD and Linux; rather than relying on platform struct layouts this
// package reads fields directly off known byte offsets, matching the wire
// format described in the packet layouts section.
type IPv4Header struct {
	raw []byte
}

// ParseIPv4Header validates that buf begins with a well-formed IPv4 header
// (version 4, IHL within bounds of the buffer) and returns a view over it.
func ParseIPv4Header(buf []byte) (IPv4Header, error) {
	if len(buf) < 20 {
		return IPv4Header{}, ErrParseFailure
	}
	if buf[0]>>4 != 4 {
		return IPv4Header{}, ErrParseFailure
	}
	ihl := int(buf[0]&0x0f) * 4
	if ihl < 20 || len(buf) < ihl {
		return IPv4Header{}, ErrParseFailure
	}
	return IPv4Header{raw: buf}, nil
}

// IHL returns the header length in bytes (ihl*4).
func (h IPv4Header) IHL() int { return int(h.raw[0]&0x0f) * 4 }

// TotalLength returns the IPv4 total_length field.
func (h IPv4Header) TotalLength() uint16 { return binary.BigEndian.Uint16(h.raw[2:4]) }

// TTL returns the IPv4 TTL field.
func (h IPv4Header) TTL() uint8 { return h.raw[8] }

// Protocol returns the IPv4 protocol field.
func (h IPv4Header) Protocol() uint8 { return h.raw[9] }

// Src returns the IPv4 source address.
func (h IPv4Header) Src() net.IP { return net.IP(h.raw[12:16]) }

// Dst returns the IPv4 destination address.
func (h IPv4Header) Dst() net.IP { return net.IP(h.raw[16:20]) }

// Payload returns the bytes following the header (the ihl*4-byte offset).
func (h IPv4Header) Payload() []byte { return h.raw[h.IHL():] }

// ICMPHeader is a byte-offset view over the fixed 8-byte ICMP header.
type ICMPHeader struct {
	raw []byte
}

// ParseICMPHeader validates the minimum 8-byte ICMP header length.
func ParseICMPHeader(buf []byte) (ICMPHeader, error) {
	if len(buf) < 8 {
		return ICMPHeader{}, ErrParseFailure
	}
	return ICMPHeader{raw: buf}, nil
}

// Type returns the ICMP type field.
func (h ICMPHeader) Type() uint8 { return h.raw[0] }

// Code returns the ICMP code field.
func (h ICMPHeader) Code() uint8 { return h.raw[1] }

// Checksum returns the ICMP checksum field.
func (h ICMPHeader) Checksum() uint16 { return binary.BigEndian.Uint16(h.raw[2:4]) }

// Rest returns bytes following the fixed 8-byte ICMP header — for
// Time-Exceeded this is the quoted original IPv4 datagram.
func (h ICMPHeader) Rest() []byte { return h.raw[8:] }

const (
	icmpTypeTimeExceeded = 11
)

// TCPHeader is a byte-offset view over the first 20 bytes of a TCP segment
// (no options).
type TCPHeader struct {
	raw []byte
}

// ParseTCPHeader validates the minimum 20-byte TCP header length.
func ParseTCPHeader(buf []byte) (TCPHeader, error) {
	if len(buf) < 20 {
		return TCPHeader{}, ErrParseFailure
	}
	return TCPHeader{raw: buf}, nil
}

// SrcPort returns the TCP source port (network order on the wire, returned
// host order).
func (h TCPHeader) SrcPort() uint16 { return binary.BigEndian.Uint16(h.raw[0:2]) }

// DstPort returns the TCP destination port.
func (h TCPHeader) DstPort() uint16 { return binary.BigEndian.Uint16(h.raw[2:4]) }

// Seq returns the TCP sequence number.
func (h TCPHeader) Seq() uint32 { return binary.BigEndian.Uint32(h.raw[4:8]) }

// Flags returns the TCP flags byte (offset 13): FIN, SYN, RST, PSH, ACK, URG
// packed per RFC 793.
func (h TCPHeader) Flags() uint8 { return h.raw[13] }

const (
	tcpFlagFIN = 0x01
	tcpFlagSYN = 0x02
	tcpFlagRST = 0x04
	tcpFlagACK = 0x10
)

// IsSYNACK reports whether SYN and ACK are both set.
func (h TCPHeader) IsSYNACK() bool {
	return h.Flags()&(tcpFlagSYN|tcpFlagACK) == (tcpFlagSYN | tcpFlagACK)
}

// IsRST reports whether RST is set.
func (h TCPHeader) IsRST() bool {
	return h.Flags()&tcpFlagRST != 0
}

// QuotedTCPPorts extracts the original source and destination ports from
// the first 8 bytes of a TCP segment quoted inside an ICMP error message's
// inner IPv4 datagram (§4.2 step 4). Both ports are returned host order.
func QuotedTCPPorts(innerTCP []byte) (srcPort, dstPort uint16, err error) {
	if len(innerTCP) < 4 {
		return 0, 0, ErrParseFailure
	}
	return binary.BigEndian.Uint16(innerTCP[0:2]), binary.BigEndian.Uint16(innerTCP[2:4]), nil
}
