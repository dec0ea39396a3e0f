package probe

import (
	"encoding/binary"
	"net"
	"testing"
)

func TestCsum16(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name: "ICMP Echo Request example",
			// Type=8, Code=0, Checksum=0, ID=1, Seq=1
			data:     []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01},
			expected: 0xf7fd,
		},
		{
			name:     "Simple even length",
			data:     []byte{0x00, 0x01, 0x00, 0x02},
			expected: 0xfffc,
		},
		{
			name:     "Odd length data",
			data:     []byte{0x00, 0x01, 0xf2},
			expected: 0x0dfe,
		},
		{
			name:     "All zeros",
			data:     []byte{0x00, 0x00, 0x00, 0x00},
			expected: 0xffff,
		},
		{
			name:     "All ones",
			data:     []byte{0xff, 0xff, 0xff, 0xff},
			expected: 0x0000,
		},
		{
			name:     "Empty data",
			data:     []byte{},
			expected: 0xffff,
		},
		{
			name:     "Single byte",
			data:     []byte{0x45},
			expected: 0xbaff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Csum16(tt.data)
			if result != tt.expected {
				t.Errorf("Csum16(%v) = 0x%04x, want 0x%04x", tt.data, result, tt.expected)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		valid bool
	}{
		{
			name: "Valid ICMP packet with correct checksum",
			// Type=8, Code=0, Checksum=0xf7fd, ID=1, Seq=1
			data:  []byte{0x08, 0x00, 0xf7, 0xfd, 0x00, 0x01, 0x00, 0x01},
			valid: true,
		},
		{
			name: "Invalid checksum",
			// Type=8, Code=0, Checksum=0x0000, ID=1, Seq=1
			data:  []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01},
			valid: false,
		},
		{
			name:  "All zeros is valid",
			data:  []byte{0x00, 0x00, 0xff, 0xff},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateChecksum(tt.data)
			if result != tt.valid {
				t.Errorf("ValidateChecksum(%v) = %v, want %v", tt.data, result, tt.valid)
			}
		})
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	packet := []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01}

	checksum := Csum16(packet)
	packet[2] = byte(checksum >> 8)
	packet[3] = byte(checksum & 0xff)

	if !ValidateChecksum(packet) {
		t.Errorf("round-trip checksum validation failed for packet %v", packet)
	}
}

func TestIPChecksumRoundTrip(t *testing.T) {
	// Minimal 20-byte IPv4 header: version/ihl=0x45, tos=0, total_length=40,
	// id=0, flags/frag=0, ttl=64, proto=6 (TCP), src/dst, checksum zeroed.
	hdr := []byte{
		0x45, 0x00, 0x00, 0x28,
		0x00, 0x00, 0x00, 0x00,
		0x40, 0x06, 0x00, 0x00,
		0xc0, 0xa8, 0x00, 0x01,
		0xc0, 0xa8, 0x00, 0x02,
	}

	sum := IPChecksum(hdr)
	hdr[10] = byte(sum >> 8)
	hdr[11] = byte(sum & 0xff)

	if !ValidateChecksum(hdr) {
		t.Errorf("IP header checksum did not round-trip to zero: %v", hdr)
	}
}

func TestTCPChecksumRoundTrip(t *testing.T) {
	src := net.ParseIP("192.168.0.1")
	dst := net.ParseIP("192.168.0.2")

	tcp := make([]byte, 20)
	binary.BigEndian.PutUint16(tcp[0:2], 33437) // src port
	binary.BigEndian.PutUint16(tcp[2:4], 443)   // dst port
	tcp[12] = 0x50                              // data offset = 5
	tcp[13] = 0x02                              // SYN
	binary.BigEndian.PutUint16(tcp[14:16], 65535)

	sum, err := TCPChecksum(src, dst, tcp)
	if err != nil {
		t.Fatalf("TCPChecksum returned error: %v", err)
	}
	tcp[16] = byte(sum >> 8)
	tcp[17] = byte(sum & 0xff)

	verify, err := TCPChecksum(src, dst, tcp)
	if err != nil {
		t.Fatalf("TCPChecksum (verify) returned error: %v", err)
	}
	if verify != 0 {
		t.Errorf("TCP checksum did not round-trip to zero, got 0x%04x", verify)
	}
}

func TestTCPChecksumInvalidArgument(t *testing.T) {
	src := net.ParseIP("10.0.0.1")
	dst := net.ParseIP("10.0.0.2")
	oversized := make([]byte, 0x10000)

	if _, err := TCPChecksum(src, dst, oversized); err != ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument for oversized segment, got %v", err)
	}
}

func BenchmarkCsum16(b *testing.B) {
	data := make([]byte, 64)
	data[0] = 0x08

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Csum16(data)
	}
}
