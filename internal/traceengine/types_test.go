package traceengine

import (
	"net"
	"testing"
)

func TestHopAggregateFirstResponderWins(t *testing.T) {
	var agg HopAggregate

	agg.Accept(net.ParseIP("10.0.0.1"), 10.0, false)
	agg.Accept(net.ParseIP("10.0.0.2"), 20.0, false)
	agg.Accept(net.ParseIP("10.0.0.3"), 5.0, false)

	if !agg.FirstResponderIP.Equal(net.ParseIP("10.0.0.1")) {
		t.Errorf("expected first responder to win hop IP, got %v", agg.FirstResponderIP)
	}
	if agg.Count != 3 {
		t.Errorf("expected count 3, got %d", agg.Count)
	}
	if agg.MinMS != 5.0 || agg.MaxMS != 20.0 {
		t.Errorf("expected min=5 max=20, got min=%v max=%v", agg.MinMS, agg.MaxMS)
	}
}

func TestSummarizeNoReplies(t *testing.T) {
	s := Summarize(4, HopAggregate{})
	if s.NumReplies != 0 || s.HopIP != "" || s.Reached {
		t.Errorf("expected star summary, got %+v", s)
	}
}

func TestSummarizeRTTOrdering(t *testing.T) {
	var agg HopAggregate
	agg.Accept(net.ParseIP("10.0.0.1"), 12.0, false)
	agg.Accept(net.ParseIP("10.0.0.1"), 8.0, false)
	agg.Accept(net.ParseIP("10.0.0.1"), 20.0, true)

	s := Summarize(2, agg)
	if !(s.RTTMinMS <= s.RTTAvgMS && s.RTTAvgMS <= s.RTTMaxMS) {
		t.Errorf("expected min <= avg <= max, got min=%v avg=%v max=%v", s.RTTMinMS, s.RTTAvgMS, s.RTTMaxMS)
	}
	if !s.Reached {
		t.Errorf("expected reached=true once any accepted reply set it")
	}
}

func TestSportAllocationCollisionFree(t *testing.T) {
	for ttl := 1; ttl <= 255; ttl++ {
		seen := make(map[uint16]bool, 3)
		for idx := 0; idx < 3; idx++ {
			sp := sport(ttl, idx)
			if seen[sp] {
				t.Fatalf("sport collision at ttl=%d idx=%d: %d", ttl, idx, sp)
			}
			seen[sp] = true
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", ModeAuto, true},
		{"auto", ModeAuto, true},
		{"connect", ModeConnect, true},
		{"raw", ModeRaw, true},
		{"bogus", ModeAuto, false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
