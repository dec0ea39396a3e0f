package probe

import (
	"encoding/binary"
	"testing"
)

func TestParseIPv4HeaderRejectsShortBuffer(t *testing.T) {
	if _, err := ParseIPv4Header([]byte{0x45, 0x00}); err != ErrParseFailure {
		t.Errorf("expected ErrParseFailure, got %v", err)
	}
}

func TestIPv4HeaderFields(t *testing.T) {
	buf := make([]byte, 20)
	buf[0] = 0x45
	binary.BigEndian.PutUint16(buf[2:4], 40)
	buf[8] = 63
	buf[9] = 6
	copy(buf[12:16], []byte{10, 0, 0, 1})
	copy(buf[16:20], []byte{10, 0, 0, 2})

	h, err := ParseIPv4Header(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.IHL() != 20 {
		t.Errorf("IHL() = %d, want 20", h.IHL())
	}
	if h.TotalLength() != 40 {
		t.Errorf("TotalLength() = %d, want 40", h.TotalLength())
	}
	if h.TTL() != 63 {
		t.Errorf("TTL() = %d, want 63", h.TTL())
	}
	if h.Protocol() != 6 {
		t.Errorf("Protocol() = %d, want 6", h.Protocol())
	}
	if h.Src().String() != "10.0.0.1" || h.Dst().String() != "10.0.0.2" {
		t.Errorf("Src/Dst = %v/%v, want 10.0.0.1/10.0.0.2", h.Src(), h.Dst())
	}
}

func TestTCPHeaderFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   uint8
		synack  bool
		rst     bool
	}{
		{"SYN only", 0x02, false, false},
		{"SYN+ACK", 0x12, true, false},
		{"RST", 0x04, false, true},
		{"RST+ACK", 0x14, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 20)
			buf[13] = tt.flags
			h, err := ParseTCPHeader(buf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.IsSYNACK() != tt.synack {
				t.Errorf("IsSYNACK() = %v, want %v", h.IsSYNACK(), tt.synack)
			}
			if h.IsRST() != tt.rst {
				t.Errorf("IsRST() = %v, want %v", h.IsRST(), tt.rst)
			}
		})
	}
}

func TestQuotedTCPPorts(t *testing.T) {
	inner := make([]byte, 8)
	binary.BigEndian.PutUint16(inner[0:2], 33437)
	binary.BigEndian.PutUint16(inner[2:4], 443)

	src, dst, err := QuotedTCPPorts(inner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != 33437 || dst != 443 {
		t.Errorf("got src=%d dst=%d, want src=33437 dst=443", src, dst)
	}
}

func TestQuotedTCPPortsTruncated(t *testing.T) {
	if _, _, err := QuotedTCPPorts([]byte{0x00, 0x01}); err != ErrParseFailure {
		t.Errorf("expected ErrParseFailure for truncated segment, got %v", err)
	}
}
