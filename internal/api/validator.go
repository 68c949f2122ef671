package api

import (
	"fmt"
	"math"
	"strconv"
)

// parseLimit validates a history page size. Empty means the default.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: %q", raw)
	}
	if n < 1 || n > MaxHistoryLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", MaxHistoryLimit)
	}
	return n, nil
}

// parseScale validates a snapshot scale factor. Empty means 1.
func parseScale(raw string, maxScale float64) (float64, error) {
	if raw == "" {
		return 1, nil
	}
	s, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, fmt.Errorf("invalid scale: %q", raw)
	}
	if s < 0.1 || s > maxScale {
		return 0, fmt.Errorf("scale must be between 0.1 and %v", maxScale)
	}
	return s, nil
}

// direction clamps a step direction to -1, 0 or 1.
func direction(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
