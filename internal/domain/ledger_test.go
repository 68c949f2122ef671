package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestLedger(t *testing.T, balance string) *Ledger {
	t.Helper()
	l, err := NewLedger(decimal.RequireFromString(balance), decimal.NewFromInt(5), 10, LedgerLimits{
		MaxBetAmount: decimal.NewFromInt(100),
		MinLeverage:  1,
		MaxLeverage:  50,
	})
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	return l
}

func TestLedger_PlaceAndSettle(t *testing.T) {
	l := newTestLedger(t, "100")
	cell := CellID{Col: 4, Row: -2}

	bet, err := l.PlaceBet(cell, 1000)
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if !bet.Amount.Equal(decimal.NewFromInt(5)) || bet.Leverage != 10 {
		t.Errorf("Expected bet 5x10, got %sx%d", bet.Amount, bet.Leverage)
	}
	if !l.Balance().Equal(decimal.NewFromInt(95)) {
		t.Errorf("Expected balance 95 after debit, got %s", l.Balance())
	}

	s, err := l.Settle(cell, 2000)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if !s.Payout.Equal(decimal.NewFromInt(50)) || s.Outcome != OutcomeWon {
		t.Errorf("Expected WON payout 50, got %s %s", s.Outcome, s.Payout)
	}
	if !l.Balance().Equal(decimal.NewFromInt(145)) {
		t.Errorf("Expected balance 145 after credit, got %s", l.Balance())
	}
	if l.HasBet(cell) {
		t.Error("Bet should be removed after settlement")
	}
	if !l.IsPaid(cell) {
		t.Error("Cell should be marked paid")
	}

	// Second detection must not pay again
	if _, err := l.Settle(cell, 3000); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("Expected ErrAlreadySettled, got %v", err)
	}
	if !l.Balance().Equal(decimal.NewFromInt(145)) {
		t.Errorf("Balance changed on repeated settle: %s", l.Balance())
	}

	// A paid cell cannot be bet on again
	if _, err := l.PlaceBet(cell, 4000); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("Expected ErrAlreadySettled on re-bet, got %v", err)
	}
}

func TestLedger_BalanceFloor(t *testing.T) {
	l := newTestLedger(t, "7")

	if _, err := l.PlaceBet(CellID{1, 1}, 0); err != nil {
		t.Fatalf("first bet should fit: %v", err)
	}

	_, err := l.PlaceBet(CellID{1, 2}, 0)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if !l.Balance().Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected balance unchanged at 2, got %s", l.Balance())
	}
	if l.HasBet(CellID{1, 2}) {
		t.Error("Rejected bet must not be stored")
	}
	if len(l.Bets()) != 1 {
		t.Errorf("Expected 1 open bet, got %d", len(l.Bets()))
	}
}

func TestLedger_CancelDoesNotRefund(t *testing.T) {
	l := newTestLedger(t, "20")
	cell := CellID{2, 0}

	l.PlaceBet(cell, 0)
	s, err := l.CancelBet(cell, 10)
	if err != nil {
		t.Fatalf("CancelBet failed: %v", err)
	}
	if s.Outcome != OutcomeCancelled {
		t.Errorf("Expected CANCELLED, got %s", s.Outcome)
	}
	if !l.Balance().Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected balance 15 (no refund), got %s", l.Balance())
	}
	if _, err := l.CancelBet(cell, 20); !errors.Is(err, ErrBetNotFound) {
		t.Errorf("Expected ErrBetNotFound, got %v", err)
	}
	if _, err := l.Settle(cell, 30); !errors.Is(err, ErrBetNotFound) {
		t.Errorf("Expected ErrBetNotFound on settle after cancel, got %v", err)
	}
}

func TestLedger_DuplicateAndForfeit(t *testing.T) {
	l := newTestLedger(t, "50")
	cell := CellID{3, 3}

	l.PlaceBet(cell, 0)
	if _, err := l.PlaceBet(cell, 0); !errors.Is(err, ErrBetExists) {
		t.Errorf("Expected ErrBetExists, got %v", err)
	}

	s, err := l.Forfeit(cell, 100)
	if err != nil {
		t.Fatalf("Forfeit failed: %v", err)
	}
	if s.Outcome != OutcomeLost || !s.Payout.IsZero() {
		t.Errorf("Expected LOST with zero payout, got %s %s", s.Outcome, s.Payout)
	}
	if !l.Balance().Equal(decimal.NewFromInt(45)) {
		t.Errorf("Expected balance 45, got %s", l.Balance())
	}
}

func TestLedger_Adjustments(t *testing.T) {
	l := newTestLedger(t, "50")

	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"positive", "12.5", false},
		{"zero", "0", true},
		{"negative", "-1", true},
		{"above max", "101", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.SetBetAmount(decimal.RequireFromString(tt.amount))
			if (err != nil) != tt.wantErr {
				t.Errorf("SetBetAmount(%s) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBetAmount) {
				t.Errorf("Expected ErrInvalidBetAmount, got %v", err)
			}
		})
	}

	if err := l.SetLeverage(0); !errors.Is(err, ErrInvalidLeverage) {
		t.Errorf("Expected ErrInvalidLeverage for 0, got %v", err)
	}
	if err := l.SetLeverage(51); !errors.Is(err, ErrInvalidLeverage) {
		t.Errorf("Expected ErrInvalidLeverage for 51, got %v", err)
	}
	if err := l.SetLeverage(25); err != nil || l.Leverage() != 25 {
		t.Errorf("Expected leverage 25, got %d (%v)", l.Leverage(), err)
	}

	// Open bets keep their stake
	l.SetBetAmount(decimal.NewFromInt(2))
	l.PlaceBet(CellID{0, 0}, 0)
	l.SetBetAmount(decimal.NewFromInt(9))
	if b := l.Bets()[0]; !b.Amount.Equal(decimal.NewFromInt(2)) || b.Leverage != 25 {
		t.Errorf("Expected open bet 2x25, got %sx%d", b.Amount, b.Leverage)
	}
}
