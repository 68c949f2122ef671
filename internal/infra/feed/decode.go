package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"hexbet_go/internal/domain"
)

// MessageKind classifies an inbound feed message.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindBook
	KindProxyError
	KindProxyInfo
)

// Quote is the top of book taken from an orderbook message. Prices keep the
// feed's raw text so the stream parser can tell decimals from scaled integers.
type Quote struct {
	Market string
	Bid    string
	Ask    string
}

// Decoded is one classified inbound message.
type Decoded struct {
	Kind    MessageKind
	Quote   Quote
	Message string // proxy status text
	Status  int
}

// envelope covers every shape the feed sends.
type envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Market  string          `json:"market"`
	Bids    []level         `json:"bids"`
	Asks    []level         `json:"asks"`
	Data    json.RawMessage `json:"data"`
	Payload json.RawMessage `json:"payload"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
}

// level is one book level: {"price": ...} or [price, size].
type level struct {
	Price string
}

func (l *level) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty level")
	}

	var raw json.RawMessage
	switch b[0] {
	case '{':
		var obj struct {
			Price json.RawMessage `json:"price"`
			Px    json.RawMessage `json:"px"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		raw = obj.Price
		if len(raw) == 0 {
			raw = obj.Px
		}
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		if len(arr) > 0 {
			raw = arr[0]
		}
	default:
		return fmt.Errorf("unexpected level %s", b)
	}

	l.Price = scalarText(raw)
	return nil
}

// scalarText returns a JSON string's contents or a JSON number's literal text.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}

// maxUnwrap bounds nested data/payload wrappers.
const maxUnwrap = 4

// Decode classifies one feed message. Book messages without both sides, and
// anything unrecognized, come back as KindUnknown with a nil error.
func Decode(msg []byte) (Decoded, error) {
	for depth := 0; depth < maxUnwrap; depth++ {
		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return Decoded{}, &domain.ParseError{Field: "message", Err: err}
		}

		switch strings.ToLower(env.Type) {
		case "proxy_error":
			return Decoded{Kind: KindProxyError, Message: env.Message, Status: env.Status}, nil
		case "proxy_info":
			return Decoded{Kind: KindProxyInfo, Message: env.Message, Status: env.Status}, nil
		}

		if len(env.Bids) > 0 || len(env.Asks) > 0 {
			if len(env.Bids) == 0 || len(env.Asks) == 0 {
				return Decoded{}, nil
			}
			return Decoded{Kind: KindBook, Quote: Quote{
				Market: env.Market,
				Bid:    env.Bids[0].Price,
				Ask:    env.Asks[0].Price,
			}}, nil
		}

		inner := env.Data
		if len(inner) == 0 {
			inner = env.Payload
		}
		next, ok := unwrap(inner)
		if !ok {
			return Decoded{}, nil
		}
		msg = next
	}
	return Decoded{}, nil
}

// unwrap returns an embedded object, decoding it first when it is carried as
// an encoded string.
func unwrap(raw json.RawMessage) ([]byte, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	switch raw[0] {
	case '{':
		return raw, true
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "{") {
			return nil, false
		}
		return []byte(s), true
	}
	return nil, false
}

// SubscribeMessage is the single outbound message sent per connection.
func SubscribeMessage(market string) ([]byte, error) {
	return json.Marshal(map[string]string{
		"op":      "subscribe",
		"channel": "orderbook",
		"market":  market,
	})
}
