package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hexbet_go/internal/event"
	"hexbet_go/internal/infra"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// bookServer accepts connections, checks the subscribe message, sends one
// book update and then closes the socket.
func bookServer(t *testing.T, conns *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)

		_, sub, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !strings.Contains(string(sub), `"subscribe"`) || !strings.Contains(string(sub), `"SOL-PERP"`) {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"proxy_error","message":"bad subscribe"}`))
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"proxy_info","message":"hello"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"market":"SOL-PERP","bids":[{"price":"138.50"}],"asks":[{"price":"138.70"}]}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"market":"BTC-PERP","bids":[{"price":"1"}],"asks":[{"price":"2"}]}`))
		time.Sleep(50 * time.Millisecond)
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func next(t *testing.T, inbox <-chan event.Event) event.Event {
	t.Helper()
	select {
	case ev := <-inbox:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return nil
	}
}

func TestClient_StreamsTicksAndReconnects(t *testing.T) {
	var conns atomic.Int32
	srv := bookServer(t, &conns)
	defer srv.Close()

	inbox := make(chan event.Event, 64)
	var seq event.Sequence
	m := &infra.Metrics{}
	c := NewClient(infra.FeedConfig{
		URL:              wsURL(srv),
		Market:           "SOL-PERP",
		ReadTimeoutMS:    1000,
		ReconnectDelayMS: 20,
	}, inbox, &seq, m)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	st, ok := next(t, inbox).(*event.FeedStateEvent)
	if !ok || !st.Connected {
		t.Fatalf("Expected connected state first, got %+v", st)
	}

	tick, ok := next(t, inbox).(*event.TickEvent)
	if !ok {
		t.Fatal("Expected tick event")
	}
	if tick.Bid != "138.50" || tick.Ask != "138.70" || tick.Market != "SOL-PERP" {
		t.Errorf("Unexpected tick %+v", tick)
	}
	if tick.Seq <= st.Seq {
		t.Errorf("Expected increasing sequence, got %d after %d", tick.Seq, st.Seq)
	}

	// Other markets are filtered; the server hangs up next
	st, ok = next(t, inbox).(*event.FeedStateEvent)
	if !ok || st.Connected {
		t.Fatalf("Expected disconnected state, got %+v", st)
	}

	st, ok = next(t, inbox).(*event.FeedStateEvent)
	if !ok || !st.Connected {
		t.Fatalf("Expected reconnect, got %+v", st)
	}
	if conns.Load() < 2 {
		t.Errorf("Expected a second connection, got %d", conns.Load())
	}

	snap := m.Snapshot()
	if snap.Reconnects == 0 || snap.MessagesReceived < 3 {
		t.Errorf("Expected reconnect and message metrics, got %+v", snap)
	}
}

func TestClient_DropsOnFullInbox(t *testing.T) {
	inbox := make(chan event.Event) // unbuffered, nobody reading
	var seq event.Sequence
	m := &infra.Metrics{}
	c := NewClient(infra.FeedConfig{Market: "SOL-PERP"}, inbox, &seq, m)

	c.handleMessage([]byte(`{"bids":[{"price":"1"}],"asks":[{"price":"2"}]}`))
	c.handleMessage([]byte(`{"bids":`))

	snap := m.Snapshot()
	if snap.InboxDrops != 1 {
		t.Errorf("Expected 1 drop, got %d", snap.InboxDrops)
	}
	if snap.MessagesReceived != 2 {
		t.Errorf("Expected 2 messages, got %d", snap.MessagesReceived)
	}
}

func TestClient_ReconnectSkipsWait(t *testing.T) {
	var conns atomic.Int32
	srv := bookServer(t, &conns)
	defer srv.Close()

	inbox := make(chan event.Event, 64)
	var seq event.Sequence
	c := NewClient(infra.FeedConfig{
		URL:              wsURL(srv),
		Market:           "SOL-PERP",
		ReadTimeoutMS:    1000,
		ReconnectDelayMS: 60_000,
	}, inbox, &seq, &infra.Metrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for conns.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Server hangs up after its burst; the client now waits a minute unless kicked
	time.Sleep(150 * time.Millisecond)
	c.Reconnect()

	for conns.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if conns.Load() < 2 {
		t.Errorf("Expected Reconnect to skip the pending wait, got %d connections", conns.Load())
	}
}

func TestClient_ConnectRequiresURL(t *testing.T) {
	c := NewClient(infra.FeedConfig{}, make(chan event.Event, 1), &event.Sequence{}, nil)
	if err := c.Connect(context.Background()); err == nil {
		t.Error("Expected error for empty URL")
	}
}
