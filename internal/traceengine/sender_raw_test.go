package traceengine

import (
	"net"
	"testing"

	"github.com/netpathlabs/tcptrace/internal/probe"
)

// S6: a captured raw-mode SYN has IPv4 checksum and TCP checksum that both
// verify to zero.
func TestBuildSYNPacketChecksumsVerify(t *testing.T) {
	src := net.ParseIP("192.0.2.10")
	dst := net.ParseIP("192.0.2.20")

	buf := buildSYNPacket(src, dst, 443, 5, 1, sport(5, 1))
	ip := buf[0:20]
	tcp := buf[20:40]

	if !probe.ValidateChecksum(ip) {
		t.Error("IPv4 header checksum does not verify")
	}

	pseudo := make([]byte, 12+len(tcp))
	copy(pseudo[0:4], src.To4())
	copy(pseudo[4:8], dst.To4())
	pseudo[9] = 6
	pseudo[10] = 0
	pseudo[11] = byte(len(tcp))
	copy(pseudo[12:], tcp)

	if !probe.ValidateChecksum(pseudo) {
		t.Error("TCP checksum does not verify")
	}
}
