package event

import (
	"sync"
)

// tickPool recycles TickEvents; the feed produces one per book update.
//
// Usage:
//
//	ev := AcquireTickEvent()
//	ev.Bid, ev.Ask = "138.50", "138.70"
//	inbox <- ev
//	// engine: ReleaseTickEvent(ev) after processing
var tickPool = sync.Pool{
	New: func() interface{} {
		return &TickEvent{}
	},
}

// AcquireTickEvent gets a TickEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent returns a TickEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseTickEvent(ev *TickEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = 0
	ev.Market = ""
	ev.Bid = ""
	ev.Ask = ""

	tickPool.Put(ev)
}

// Warmup pre-allocates tick events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	evs := make([]*TickEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireTickEvent())
	}
	for _, ev := range evs {
		ReleaseTickEvent(ev)
	}
}
