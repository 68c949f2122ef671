package domain

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is how a bet left the ledger.
type Outcome string

const (
	OutcomeWon       Outcome = "WON"
	OutcomeLost      Outcome = "LOST"
	OutcomeCancelled Outcome = "CANCELLED"
)

// Bet is a committed stake on one cell.
type Bet struct {
	ID         uuid.UUID       `json:"id"`
	Cell       CellID          `json:"cell"`
	Amount     decimal.Decimal `json:"amount"`
	Leverage   int             `json:"leverage"`
	PlacedAtMs int64           `json:"placed_at_ms"`
}

// Settlement records a bet leaving the ledger.
type Settlement struct {
	BetID     uuid.UUID       `json:"bet_id"`
	Cell      CellID          `json:"cell"`
	CellPrice float64         `json:"cell_price"`
	Amount    decimal.Decimal `json:"amount"`
	Leverage  int             `json:"leverage"`
	Payout    decimal.Decimal `json:"payout"`
	Outcome   Outcome         `json:"outcome"`
	AtMs      int64           `json:"at_ms"`
}

// LedgerLimits bounds the user-adjustable stake parameters.
type LedgerLimits struct {
	MaxBetAmount decimal.Decimal
	MinLeverage  int
	MaxLeverage  int
}

// LedgerView is a copy of the ledger for external readers.
type LedgerView struct {
	Balance   decimal.Decimal `json:"balance"`
	BetAmount decimal.Decimal `json:"bet_amount"`
	Leverage  int             `json:"leverage"`
	Bets      []Bet           `json:"bets"`
	Settled   int             `json:"settled"`
}

// Ledger tracks balance and per-cell bets. Not safe for concurrent use;
// the engine goroutine owns it.
type Ledger struct {
	balance   decimal.Decimal
	betAmount decimal.Decimal
	leverage  int
	limits    LedgerLimits

	bets map[CellID]*Bet
	paid map[CellID]struct{}
}

// NewLedger creates a ledger with a starting balance and default stake.
func NewLedger(initial, betAmount decimal.Decimal, leverage int, limits LedgerLimits) (*Ledger, error) {
	if initial.IsNegative() {
		return nil, fmt.Errorf("initial balance %s: %w", initial, ErrInsufficientBalance)
	}
	l := &Ledger{
		balance: initial,
		limits:  limits,
		bets:    make(map[CellID]*Bet),
		paid:    make(map[CellID]struct{}),
	}
	if err := l.SetBetAmount(betAmount); err != nil {
		return nil, err
	}
	if err := l.SetLeverage(leverage); err != nil {
		return nil, err
	}
	return l, nil
}

// PlaceBet debits the configured bet amount and records a bet on the cell.
// A rejected bet leaves balance and bets untouched.
func (l *Ledger) PlaceBet(id CellID, nowMs int64) (Bet, error) {
	if _, ok := l.bets[id]; ok {
		return Bet{}, fmt.Errorf("place %s: %w", id, ErrBetExists)
	}
	if _, ok := l.paid[id]; ok {
		return Bet{}, fmt.Errorf("place %s: %w", id, ErrAlreadySettled)
	}
	if l.balance.LessThan(l.betAmount) {
		return Bet{}, fmt.Errorf("place %s: need %s, have %s: %w",
			id, l.betAmount, l.balance, ErrInsufficientBalance)
	}

	bet := &Bet{
		ID:         uuid.New(),
		Cell:       id,
		Amount:     l.betAmount,
		Leverage:   l.leverage,
		PlacedAtMs: nowMs,
	}
	l.balance = l.balance.Sub(bet.Amount)
	l.bets[id] = bet
	l.VerifyInvariant()
	return *bet, nil
}

// CancelBet removes a bet. The stake is not refunded.
func (l *Ledger) CancelBet(id CellID, nowMs int64) (Settlement, error) {
	bet, ok := l.bets[id]
	if !ok {
		return Settlement{}, fmt.Errorf("cancel %s: %w", id, ErrBetNotFound)
	}
	delete(l.bets, id)
	return l.record(bet, OutcomeCancelled, decimal.Zero, nowMs), nil
}

// Settle pays amount * leverage for a hit cell and removes the bet.
// A cell pays at most once per session.
func (l *Ledger) Settle(id CellID, nowMs int64) (Settlement, error) {
	if _, ok := l.paid[id]; ok {
		return Settlement{}, fmt.Errorf("settle %s: %w", id, ErrAlreadySettled)
	}
	bet, ok := l.bets[id]
	if !ok {
		return Settlement{}, fmt.Errorf("settle %s: %w", id, ErrBetNotFound)
	}

	payout := bet.Amount.Mul(decimal.NewFromInt(int64(bet.Leverage)))
	l.balance = l.balance.Add(payout)
	l.paid[id] = struct{}{}
	delete(l.bets, id)
	l.VerifyInvariant()
	return l.record(bet, OutcomeWon, payout, nowMs), nil
}

// Forfeit removes a bet whose cell passed without a hit.
func (l *Ledger) Forfeit(id CellID, nowMs int64) (Settlement, error) {
	bet, ok := l.bets[id]
	if !ok {
		return Settlement{}, fmt.Errorf("forfeit %s: %w", id, ErrBetNotFound)
	}
	delete(l.bets, id)
	return l.record(bet, OutcomeLost, decimal.Zero, nowMs), nil
}

func (l *Ledger) record(bet *Bet, outcome Outcome, payout decimal.Decimal, nowMs int64) Settlement {
	return Settlement{
		BetID:    bet.ID,
		Cell:     bet.Cell,
		Amount:   bet.Amount,
		Leverage: bet.Leverage,
		Payout:   payout,
		Outcome:  outcome,
		AtMs:     nowMs,
	}
}

// HasBet reports whether the cell holds a user bet.
func (l *Ledger) HasBet(id CellID) bool {
	_, ok := l.bets[id]
	return ok
}

// IsPaid reports whether the cell already paid out this session.
func (l *Ledger) IsPaid(id CellID) bool {
	_, ok := l.paid[id]
	return ok
}

// Bets returns the open bets ordered by column then row.
func (l *Ledger) Bets() []Bet {
	out := make([]Bet, 0, len(l.bets))
	for _, b := range l.bets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cell.Col != out[j].Cell.Col {
			return out[i].Cell.Col < out[j].Cell.Col
		}
		return out[i].Cell.Row < out[j].Cell.Row
	})
	return out
}

// Balance returns the current balance.
func (l *Ledger) Balance() decimal.Decimal {
	return l.balance
}

// BetAmount returns the stake used by the next PlaceBet.
func (l *Ledger) BetAmount() decimal.Decimal {
	return l.betAmount
}

// Leverage returns the leverage used by the next PlaceBet.
func (l *Ledger) Leverage() int {
	return l.leverage
}

// SetBetAmount changes the stake for future bets. Open bets keep theirs.
func (l *Ledger) SetBetAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("bet amount %s: %w", amount, ErrInvalidBetAmount)
	}
	if l.limits.MaxBetAmount.IsPositive() && amount.GreaterThan(l.limits.MaxBetAmount) {
		return fmt.Errorf("bet amount %s above %s: %w", amount, l.limits.MaxBetAmount, ErrInvalidBetAmount)
	}
	l.betAmount = amount
	return nil
}

// SetLeverage changes the leverage for future bets.
func (l *Ledger) SetLeverage(leverage int) error {
	minLev, maxLev := l.limits.MinLeverage, l.limits.MaxLeverage
	if minLev <= 0 {
		minLev = 1
	}
	if leverage < minLev || (maxLev > 0 && leverage > maxLev) {
		return fmt.Errorf("leverage %d outside [%d, %d]: %w", leverage, minLev, maxLev, ErrInvalidLeverage)
	}
	l.leverage = leverage
	return nil
}

// View returns a copy for external readers.
func (l *Ledger) View() LedgerView {
	return LedgerView{
		Balance:   l.balance,
		BetAmount: l.betAmount,
		Leverage:  l.leverage,
		Bets:      l.Bets(),
		Settled:   len(l.paid),
	}
}

// VerifyInvariant panics if the balance went negative.
func (l *Ledger) VerifyInvariant() {
	if l.balance.IsNegative() {
		panic(fmt.Sprintf("LEDGER_INVARIANT_NEGATIVE_BALANCE: %s", l.balance))
	}
}
