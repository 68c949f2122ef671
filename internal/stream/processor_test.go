package stream

import (
	"math"
	"testing"

	"hexbet_go/internal/domain"
)

func TestProcessor_FirstTick(t *testing.T) {
	p := NewProcessor(DefaultConfig())

	if p.IsOnline(0) {
		t.Error("Processor without ticks must be offline")
	}
	if age := p.LastMessageAgeMs(10); age != -1 {
		t.Errorf("Expected age -1 before first tick, got %d", age)
	}

	mid, first, err := p.Accept("138.50", "138.70", 1_000)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if !first {
		t.Error("First accepted tick should report first")
	}
	if math.Abs(mid-138.60) > 1e-9 || p.Current() != mid || p.Target() != mid {
		t.Errorf("Expected current=target=138.60, got current=%v target=%v", p.Current(), p.Target())
	}

	// 5s window / 50ms interval = 100 seeded samples
	if p.History().Len() != 100 {
		t.Errorf("Expected seeded history of 100, got %d", p.History().Len())
	}
	lo, hi, _ := p.History().Range(0)
	if lo != mid || hi != mid {
		t.Errorf("Expected degenerate-free seed at %v, got %v..%v", mid, lo, hi)
	}

	if _, first, _ := p.Accept("139", "139.2", 1_100); first {
		t.Error("Second tick must not report first")
	}
}

func TestProcessor_Easing(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	p.Accept("100", "100", 0)
	p.Accept("110", "110", 10)

	if !p.Sample(50) {
		t.Fatal("Sample should run while online")
	}
	want := 100 + (110-100)*0.18
	if math.Abs(p.Current()-want) > 1e-9 {
		t.Errorf("Expected eased %v, got %v", want, p.Current())
	}

	for i := 0; i < 200; i++ {
		p.Sample(int64(100 + i*50))
	}
	if math.Abs(p.Current()-110) > 1e-6 {
		t.Errorf("Expected convergence to 110, got %v", p.Current())
	}
}

func TestProcessor_RejectKeepsState(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	p.Accept("138.50", "138.70", 0)

	if _, _, err := p.Accept("99999", "99999", 5_000); err == nil {
		t.Fatal("Expected out-of-band rejection")
	}
	if math.Abs(p.Target()-138.60) > 1e-9 {
		t.Errorf("Rejected tick changed target: %v", p.Target())
	}
	// Rejections do not refresh liveness
	if p.LastMessageAgeMs(5_000) != 5_000 {
		t.Errorf("Expected age 5000, got %d", p.LastMessageAgeMs(5_000))
	}
}

func TestProcessor_Staleness(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	p.Accept("138.50", "138.70", 0)
	p.Accept("140.00", "140.00", 1)

	if !p.IsOnline(20_001) {
		t.Error("Expected online exactly at the staleness edge")
	}
	if p.IsOnline(21_001) {
		t.Error("Expected offline after 21s without ticks")
	}

	before := p.Current()
	n := p.History().Len()
	latest, _ := p.History().Latest()
	if p.Sample(21_050) {
		t.Error("Sample must not run while offline")
	}
	if p.Current() != before {
		t.Errorf("Offline price must be frozen: %v -> %v", before, p.Current())
	}
	if after, _ := p.History().Latest(); p.History().Len() != n || after != latest {
		t.Error("Offline sample must not append history")
	}

	st := p.Status(21_001)
	if st.Online || st.LastMessageMs != 21_000 {
		t.Errorf("Unexpected status: %+v", st)
	}

	// A fresh tick brings it back
	p.Accept("140.00", "140.02", 30_000)
	if !p.IsOnline(30_000) {
		t.Error("Expected online after a fresh tick")
	}
}

func TestHistory_RingAndRange(t *testing.T) {
	h := NewHistory(4)
	for i, price := range []float64{1, 2, 3, 4, 5, 6} {
		h.Push(samplesAt(int64(i), price))
	}
	s := h.Samples()
	if len(s) != 4 || s[0].Price != 3 || s[3].Price != 6 {
		t.Errorf("Expected [3..6] oldest first, got %+v", s)
	}

	h = NewHistory(20)
	for i := 0; i < 20; i++ {
		h.Push(samplesAt(int64(i), 100))
	}
	h.Push(samplesAt(21, 500)) // outlier
	lo, hi, ok := h.Range(0.05)
	if !ok || lo != 100 || hi != 100 {
		t.Errorf("Expected outlier trimmed to 100..100, got %v..%v", lo, hi)
	}
	if _, hi, _ := h.Range(0); hi != 500 {
		t.Errorf("Untrimmed range should include outlier, got %v", hi)
	}
}

func samplesAt(ts int64, price float64) domain.PriceSample {
	return domain.PriceSample{TimestampMs: ts, Price: price}
}
