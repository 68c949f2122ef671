package event

import (
	"sync"
	"testing"
)

func TestTickPool_ReleaseResets(t *testing.T) {
	ev := AcquireTickEvent()
	ev.Seq = 9
	ev.Ts = 1000
	ev.Market = "SOL-PERP"
	ev.Bid, ev.Ask = "1", "2"

	ReleaseTickEvent(ev)
	ReleaseTickEvent(nil) // must not panic

	got := AcquireTickEvent()
	if got.Seq != 0 || got.Ts != 0 || got.Market != "" || got.Bid != "" || got.Ask != "" {
		t.Errorf("Expected zeroed event, got %+v", got)
	}
	if got.GetType() != TypeTick {
		t.Errorf("Expected TICK type, got %s", got.GetType())
	}
}

func TestSequence_Concurrent(t *testing.T) {
	var seq Sequence
	var wg sync.WaitGroup
	seen := make(chan uint64, 1000)

	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				seen <- seq.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool)
	for s := range seen {
		if unique[s] {
			t.Fatalf("Duplicate sequence %d", s)
		}
		unique[s] = true
	}
	if len(unique) != 1000 || !unique[1] || !unique[1000] {
		t.Errorf("Expected sequences 1..1000, got %d unique", len(unique))
	}
}

func BenchmarkTickPool(b *testing.B) {
	Warmup()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := AcquireTickEvent()
		ev.Bid = "138.50"
		ReleaseTickEvent(ev)
	}
}
