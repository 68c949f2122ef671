package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a feed transport error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "read", "subscribe")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseError is a rejected feed tick. The tick is dropped; the feed stays online.
type ParseError struct {
	Field string // "bid", "ask", "mid", "message"
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Raw == "" {
		return "parse " + e.Field + ": " + e.Err.Error()
	}
	return "parse " + e.Field + " (" + e.Raw + "): " + e.Err.Error()
}

func (e *ParseError) IsRetriable() bool {
	return false
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	// ErrInsufficientBalance is returned when a bet would take the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBetExists is returned when placing a bet on a cell that already holds one.
	ErrBetExists = errors.New("bet already placed on cell")

	// ErrBetNotFound is returned when cancelling or settling a cell with no bet.
	ErrBetNotFound = errors.New("bet not found")

	// ErrAlreadySettled is returned when a cell has already paid out this session.
	ErrAlreadySettled = errors.New("cell already settled")

	// ErrCellPassed is returned for bet operations on cells behind the live marker.
	ErrCellPassed = errors.New("cell already passed")

	// ErrLadderUninitialized is returned by ladder queries before the first valid price.
	ErrLadderUninitialized = errors.New("ladder not initialized")

	// ErrPriceOutOfBand is returned when a mid price falls outside the sanity band.
	ErrPriceOutOfBand = errors.New("price outside sanity band")

	// ErrInvalidBetAmount is returned for non-positive or oversized bet amounts.
	ErrInvalidBetAmount = errors.New("invalid bet amount")

	// ErrInvalidLeverage is returned for leverage outside the configured range.
	ErrInvalidLeverage = errors.New("invalid leverage")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
