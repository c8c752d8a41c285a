package entities

import (
	"errors"
	"fmt"
)

// ErrInsufficientFunds is the sentinel for failed reservations
var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError reports a rejected reservation, naming how many spins
// were already queued so callers can explain the rejection to the user.
type InsufficientFundsError struct {
	Required    int64
	Available   int64
	QueuedSpins int
}

func (e *InsufficientFundsError) Error() string {
	if e.QueuedSpins > 0 {
		return fmt.Sprintf("insufficient funds: need %d, have %d available with %d spins already queued", e.Required, e.Available, e.QueuedSpins)
	}
	return fmt.Sprintf("insufficient funds: need %d, have %d available", e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// BalanceLedger tracks the confirmed balance and the amount reserved against
// outstanding bets. All operations are synchronous and side-effect-only on the
// ledger; callers provide their own synchronization.
type BalanceLedger struct {
	confirmed int64
	reserved  int64
}

// NewBalanceLedger creates a ledger with the given confirmed balance
func NewBalanceLedger(confirmed int64) *BalanceLedger {
	return &BalanceLedger{confirmed: confirmed}
}

// Confirmed returns the authoritative balance as last refreshed
func (l *BalanceLedger) Confirmed() int64 {
	return l.confirmed
}

// Reserved returns the amount earmarked against non-terminal entries
func (l *BalanceLedger) Reserved() int64 {
	return l.reserved
}

// Available returns confirmed minus reserved, never negative
func (l *BalanceLedger) Available() int64 {
	available := l.confirmed - l.reserved
	if available < 0 {
		return 0
	}
	return available
}

// Reserve earmarks amount against an outstanding bet
func (l *BalanceLedger) Reserve(amount int64) error {
	if amount > l.Available() {
		return ErrInsufficientFunds
	}
	l.reserved += amount
	return nil
}

// Release returns a reservation, floored at zero against double-release
func (l *BalanceLedger) Release(amount int64) {
	l.reserved -= amount
	if l.reserved < 0 {
		l.reserved = 0
	}
}

// SetConfirmed replaces the confirmed balance wholesale from an authoritative
// refresh. Reservations are untouched.
func (l *BalanceLedger) SetConfirmed(amount int64) {
	l.confirmed = amount
}
