package domain

// PriceSample is one eased price in the short-term history window.
type PriceSample struct {
	TimestampMs int64   `json:"ts"`
	Price       float64 `json:"price"`
}

// TrailPoint is a distance-sampled point of the live line.
// FrozenWorldY is computed once when the point is appended.
type TrailPoint struct {
	ScrollPosition float64 `json:"scroll_position"`
	Price          float64 `json:"price"`
	FrozenWorldY   float64 `json:"frozen_world_y"`
}

// Candle is a fixed-duration OHLC aggregate of the smoothed price.
// The *WorldY fields are frozen when each extreme is observed.
type Candle struct {
	Bucket                int64   `json:"bucket"`
	Open                  float64 `json:"open"`
	High                  float64 `json:"high"`
	Low                   float64 `json:"low"`
	Close                 float64 `json:"close"`
	OpenWorldY            float64 `json:"open_world_y"`
	HighWorldY            float64 `json:"high_world_y"`
	LowWorldY             float64 `json:"low_world_y"`
	CloseWorldY           float64 `json:"close_world_y"`
	ScrollPositionAtClose float64 `json:"scroll_position_at_close"`
}

// FeedStatus is the observable state of the price stream.
type FeedStatus struct {
	Online        bool    `json:"online"`
	Connected     bool    `json:"connected"`
	CurrentPrice  float64 `json:"current_price"`
	TargetPrice   float64 `json:"target_price"`
	HasPrice      bool    `json:"has_price"`
	LastMessageMs int64   `json:"last_message_age_ms"` // -1 if nothing accepted yet
	RangeLow      float64 `json:"range_low"`
	RangeHigh     float64 `json:"range_high"`
}
