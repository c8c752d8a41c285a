package events

import "slotbridge/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeSpinSubmitted EventType = "spin_submitted"
	EventTypeSpinOutcome   EventType = "spin_outcome"
	EventTypeSpinError     EventType = "spin_error"
	EventTypeBalanceUpdate EventType = "balance_update"
	EventTypeCreditBalance EventType = "credit_balance"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// SpinSubmittedEvent signals that the chain accepted a spin transaction and
// the authoritative engine id was assigned
type SpinSubmittedEvent struct {
	ClientID string
	EngineID string
}

func (e SpinSubmittedEvent) Type() EventType {
	return EventTypeSpinSubmitted
}

// SpinOutcomeEvent carries the decoded outcome of a confirmed spin
type SpinOutcomeEvent struct {
	EngineID string
	ClientID string
	Outcome  *entities.Outcome
}

func (e SpinOutcomeEvent) Type() EventType {
	return EventTypeSpinOutcome
}

// SpinErrorEvent reports a failed spin; RequestID carries the original
// correlation id (engine id when assigned, otherwise client id)
type SpinErrorEvent struct {
	RequestID string
	Message   string
}

func (e SpinErrorEvent) Type() EventType {
	return EventTypeSpinError
}

// BalanceUpdateEvent reports a ledger refresh
type BalanceUpdateEvent struct {
	Confirmed int64
	Reserved  int64
	Available int64
}

func (e BalanceUpdateEvent) Type() EventType {
	return EventTypeBalanceUpdate
}

// CreditBalanceEvent reports the authoritative credit and bonus-spin counters
type CreditBalanceEvent struct {
	Credits    int64
	BonusSpins int
}

func (e CreditBalanceEvent) Type() EventType {
	return EventTypeCreditBalance
}
