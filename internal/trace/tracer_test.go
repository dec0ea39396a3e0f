package trace

import (
	"context"
	"net"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/netpathlabs/tcptrace/internal/traceengine"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxHops != 30 {
		t.Errorf("MaxHops = %d, want 30", config.MaxHops)
	}
	if config.Port != 443 {
		t.Errorf("Port = %d, want 443", config.Port)
	}
	if config.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", config.Timeout)
	}
	if config.Mode != traceengine.ModeAuto {
		t.Errorf("Mode = %v, want ModeAuto", config.Mode)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"valid config", *DefaultConfig(), nil},
		{"invalid max hops (0)", Config{MaxHops: 0, Timeout: time.Second, Port: 443}, ErrInvalidMaxHops},
		{"invalid max hops (>255)", Config{MaxHops: 256, Timeout: time.Second, Port: 443}, ErrInvalidMaxHops},
		{"invalid timeout (too short)", Config{MaxHops: 30, Timeout: time.Millisecond, Port: 443}, ErrInvalidTimeout},
		{"invalid port (0)", Config{MaxHops: 30, Timeout: time.Second, Port: 0}, ErrInvalidPort},
		{"invalid port (>65535)", Config{MaxHops: 30, Timeout: time.Second, Port: 70000}, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLossPercent(t *testing.T) {
	tests := []struct {
		numReplies int
		want       float64
	}{
		{3, 0},
		{2, 100.0 / 3.0},
		{1, 200.0 / 3.0},
		{0, 100},
	}

	for _, tt := range tests {
		got := lossPercent(tt.numReplies)
		if got < tt.want-0.01 || got > tt.want+0.01 {
			t.Errorf("lossPercent(%d) = %v, want %v", tt.numReplies, got, tt.want)
		}
	}
}

func TestHopFromSummary(t *testing.T) {
	s := traceengine.HopSummary{
		TTL:        4,
		HopIP:      "10.0.0.1",
		NumReplies: 3,
		RTTMinMS:   1.0,
		RTTMaxMS:   3.0,
		RTTAvgMS:   2.0,
		Reached:    true,
	}

	h := hopFromSummary(s)
	if h.Number != 4 {
		t.Errorf("Number = %d, want 4", h.Number)
	}
	if !h.IP.Equal(net.ParseIP("10.0.0.1")) {
		t.Errorf("IP = %v, want 10.0.0.1", h.IP)
	}
	if !h.Responded || !h.Reached {
		t.Error("expected Responded and Reached to be true")
	}
	if h.Jitter != 2.0 {
		t.Errorf("Jitter = %v, want 2.0", h.Jitter)
	}
	if h.LossPercent != 0 {
		t.Errorf("LossPercent = %v, want 0", h.LossPercent)
	}
}

func TestHopFromSummaryStar(t *testing.T) {
	s := traceengine.HopSummary{TTL: 7}
	h := hopFromSummary(s)

	if h.IP != nil {
		t.Errorf("IP = %v, want nil", h.IP)
	}
	if h.Responded {
		t.Error("expected Responded = false for a star hop")
	}
	if h.LossPercent != 100 {
		t.Errorf("LossPercent = %v, want 100", h.LossPercent)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	config := &Config{MaxHops: 0, Timeout: time.Second, Port: 443}

	_, err := New(config)
	if err == nil {
		t.Error("New() should fail with invalid config")
	}
}

func TestTraceLocalhost(t *testing.T) {
	if !canCreateRawSocket() {
		t.Skip("Skipping: requires elevated privileges")
	}

	config := DefaultConfig()
	config.MaxHops = 5
	config.Timeout = 2 * time.Second
	config.EnableEnrichment = false

	tracer, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tracer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := tracer.Trace(ctx, "127.0.0.1")
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}

	if result.Target != "127.0.0.1" {
		t.Errorf("Target = %q, want %q", result.Target, "127.0.0.1")
	}
	if !result.ResolvedIP.Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("ResolvedIP = %v, want 127.0.0.1", result.ResolvedIP)
	}
	if !result.Completed {
		t.Error("Trace to localhost should complete")
	}
	if len(result.Hops) == 0 {
		t.Error("Trace should have at least one hop")
	}
}

// canCreateRawSocket checks if we can create raw ICMP/TCP sockets.
func canCreateRawSocket() bool {
	if runtime.GOOS == "windows" {
		_, err := os.Open("\\\\.\\PHYSICALDRIVE0")
		return err == nil
	}
	return os.Getuid() == 0
}
