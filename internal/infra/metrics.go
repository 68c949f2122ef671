package infra

import (
	"sync/atomic"
	"time"

	"hexbet_go/internal/domain"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. Served as JSON by the API.
type Metrics struct {
	// Feed counters
	messagesReceived atomic.Uint64
	ticksAccepted    atomic.Uint64
	ticksRejected    atomic.Uint64
	reconnects       atomic.Uint64
	inboxDrops       atomic.Uint64
	sequenceGaps     atomic.Uint64
	errorsTotal      atomic.Uint64

	// Settlement counters
	betsWon       atomic.Uint64
	betsLost      atomic.Uint64
	betsCancelled atomic.Uint64

	// Frame latency tracking
	framesRendered atomic.Uint64
	latencySumNs   atomic.Int64
	latencyMaxNs   atomic.Int64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordFrame records one engine frame with its processing latency.
func (m *Metrics) RecordFrame(latencyNs int64) {
	m.framesRendered.Add(1)
	m.latencySumNs.Add(latencyNs)
	for {
		cur := m.latencyMaxNs.Load()
		if latencyNs <= cur || m.latencyMaxNs.CompareAndSwap(cur, latencyNs) {
			return
		}
	}
}

// RecordTick records a tick that the engine accepted or rejected.
func (m *Metrics) RecordTick(accepted bool) {
	if accepted {
		m.ticksAccepted.Add(1)
	} else {
		m.ticksRejected.Add(1)
	}
}

// RecordSettlement counts a bet outcome.
func (m *Metrics) RecordSettlement(outcome domain.Outcome) {
	switch outcome {
	case domain.OutcomeWon:
		m.betsWon.Add(1)
	case domain.OutcomeLost:
		m.betsLost.Add(1)
	case domain.OutcomeCancelled:
		m.betsCancelled.Add(1)
	}
}

// RecordSequenceGap records events lost between producer and engine.
func (m *Metrics) RecordSequenceGap(n uint64) {
	m.sequenceGaps.Add(n)
}

// RecordMessage records a raw feed message.
func (m *Metrics) RecordMessage() {
	m.messagesReceived.Add(1)
}

// RecordReconnect records a feed reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordDrop records an event dropped on a full engine inbox.
func (m *Metrics) RecordDrop() {
	m.inboxDrops.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	MessagesReceived  uint64    `json:"messages_received"`
	TicksAccepted     uint64    `json:"ticks_accepted"`
	TicksRejected     uint64    `json:"ticks_rejected"`
	Reconnects        uint64    `json:"reconnects"`
	InboxDrops        uint64    `json:"inbox_drops"`
	SequenceGaps      uint64    `json:"sequence_gaps"`
	ErrorsTotal       uint64    `json:"errors_total"`
	BetsWon           uint64    `json:"bets_won"`
	BetsLost          uint64    `json:"bets_lost"`
	BetsCancelled     uint64    `json:"bets_cancelled"`
	FramesRendered    uint64    `json:"frames_rendered"`
	AvgFrameNs        int64     `json:"avg_frame_ns"`
	MaxFrameNs        int64     `json:"max_frame_ns"`
	ActiveConnections int32     `json:"active_connections"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	frames := m.framesRendered.Load()
	if frames > 0 {
		avgLatency = m.latencySumNs.Load() / int64(frames)
	}

	return MetricsSnapshot{
		MessagesReceived:  m.messagesReceived.Load(),
		TicksAccepted:     m.ticksAccepted.Load(),
		TicksRejected:     m.ticksRejected.Load(),
		Reconnects:        m.reconnects.Load(),
		InboxDrops:        m.inboxDrops.Load(),
		SequenceGaps:      m.sequenceGaps.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		BetsWon:           m.betsWon.Load(),
		BetsLost:          m.betsLost.Load(),
		BetsCancelled:     m.betsCancelled.Load(),
		FramesRendered:    frames,
		AvgFrameNs:        avgLatency,
		MaxFrameNs:        m.latencyMaxNs.Load(),
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.messagesReceived.Store(0)
	m.ticksAccepted.Store(0)
	m.ticksRejected.Store(0)
	m.reconnects.Store(0)
	m.inboxDrops.Store(0)
	m.sequenceGaps.Store(0)
	m.errorsTotal.Store(0)
	m.betsWon.Store(0)
	m.betsLost.Store(0)
	m.betsCancelled.Store(0)
	m.framesRendered.Store(0)
	m.latencySumNs.Store(0)
	m.latencyMaxNs.Store(0)
	m.activeConnections.Store(0)
}
