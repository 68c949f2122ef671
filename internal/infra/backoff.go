package infra

import (
	"time"
)

const fallbackReconnect = time.Second

// ReconnectDelay is the wait before the next feed dial. Without backoff it
// is always reconnect_delay_ms. With backoff the delay doubles for every
// consecutive failure and stops growing at max_reconnect_ms.
func ReconnectDelay(cfg FeedConfig, failures int) time.Duration {
	delay := time.Duration(cfg.ReconnectDelayMS) * time.Millisecond
	if delay <= 0 {
		delay = fallbackReconnect
	}
	if !cfg.Backoff || failures <= 0 {
		return delay
	}

	ceiling := time.Duration(cfg.MaxReconnectMS) * time.Millisecond
	if ceiling < delay {
		ceiling = delay
	}
	for ; failures > 0 && delay < ceiling; failures-- {
		delay *= 2
	}
	return min(delay, ceiling)
}
