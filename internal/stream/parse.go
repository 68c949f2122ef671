package stream

import (
	"errors"
	"strings"

	"hexbet_go/internal/domain"

	"github.com/shopspring/decimal"
)

// ParserConfig controls how raw feed quotes are interpreted.
type ParserConfig struct {
	// ScaleFactor divides integer quotes above ScaledThreshold (fixed-point feeds).
	ScaleFactor     decimal.Decimal
	ScaledThreshold decimal.Decimal
	MinPrice        decimal.Decimal
	MaxPrice        decimal.Decimal
}

// DefaultParserConfig matches a micro-scaled feed with a 1..10000 sanity band.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		ScaleFactor:     decimal.NewFromInt(1_000_000),
		ScaledThreshold: decimal.NewFromInt(100_000),
		MinPrice:        decimal.NewFromInt(1),
		MaxPrice:        decimal.NewFromInt(10_000),
	}
}

var (
	errEmptyQuote   = errors.New("empty quote")
	errCrossedQuote = errors.New("non-positive quote")
)

// ParseQuote parses one side of the book. Values without a decimal
// separator whose magnitude exceeds the threshold are fixed-point and get
// divided by the scale factor.
func ParseQuote(raw string, cfg ParserConfig) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	if s == "" {
		return decimal.Zero, errEmptyQuote
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}

	if !strings.ContainsAny(s, ".eE") && v.Abs().GreaterThan(cfg.ScaledThreshold) && cfg.ScaleFactor.IsPositive() {
		v = v.Div(cfg.ScaleFactor)
	}
	if !v.IsPositive() {
		return decimal.Zero, errCrossedQuote
	}
	return v, nil
}

// ParseMid parses both sides and returns the mid price, rejecting anything
// outside the sanity band.
func ParseMid(bid, ask string, cfg ParserConfig) (decimal.Decimal, error) {
	b, err := ParseQuote(bid, cfg)
	if err != nil {
		return decimal.Zero, &domain.ParseError{Field: "bid", Raw: bid, Err: err}
	}
	a, err := ParseQuote(ask, cfg)
	if err != nil {
		return decimal.Zero, &domain.ParseError{Field: "ask", Raw: ask, Err: err}
	}

	mid := b.Add(a).Div(decimal.NewFromInt(2))
	if mid.LessThan(cfg.MinPrice) || mid.GreaterThan(cfg.MaxPrice) {
		return decimal.Zero, &domain.ParseError{Field: "mid", Raw: mid.String(), Err: domain.ErrPriceOutOfBand}
	}
	return mid, nil
}
