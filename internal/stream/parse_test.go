package stream

import (
	"errors"
	"testing"

	"hexbet_go/internal/domain"

	"github.com/shopspring/decimal"
)

func TestParseQuote(t *testing.T) {
	cfg := DefaultParserConfig()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"decimal string", "138.50", "138.5", false},
		{"quoted decimal", `"138.70"`, "138.7", false},
		{"integer scaled", "138600000", "138.6", false},
		{"small integer kept", "140", "140", false},
		{"threshold not exceeded", "100000", "100000", false},
		{"decimal large not scaled", "138600000.0", "138600000", false},
		{"empty", "", "", true},
		{"garbage", "abc", "", true},
		{"zero", "0", "", true},
		{"negative", "-5.5", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuote(tt.raw, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQuote(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseQuote(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseMid(t *testing.T) {
	cfg := DefaultParserConfig()

	t.Run("orderbook scenario", func(t *testing.T) {
		mid, err := ParseMid("138.50", "138.70", cfg)
		if err != nil {
			t.Fatalf("ParseMid failed: %v", err)
		}
		if !mid.Equal(decimal.RequireFromString("138.60")) {
			t.Errorf("Expected mid 138.60, got %s", mid)
		}
	})

	t.Run("mixed encodings", func(t *testing.T) {
		mid, err := ParseMid("138500000", "138.70", cfg)
		if err != nil {
			t.Fatalf("ParseMid failed: %v", err)
		}
		if !mid.Equal(decimal.RequireFromString("138.60")) {
			t.Errorf("Expected mid 138.60, got %s", mid)
		}
	})

	t.Run("out of band", func(t *testing.T) {
		_, err := ParseMid("20000", "20001", cfg)
		if !errors.Is(err, domain.ErrPriceOutOfBand) {
			t.Errorf("Expected ErrPriceOutOfBand, got %v", err)
		}
		_, err = ParseMid("0.1", "0.2", cfg)
		if !errors.Is(err, domain.ErrPriceOutOfBand) {
			t.Errorf("Expected ErrPriceOutOfBand below band, got %v", err)
		}
	})

	t.Run("bad side", func(t *testing.T) {
		_, err := ParseMid("138.5", "x", cfg)
		var pe *domain.ParseError
		if !errors.As(err, &pe) || pe.Field != "ask" {
			t.Errorf("Expected ask ParseError, got %v", err)
		}
	})
}
