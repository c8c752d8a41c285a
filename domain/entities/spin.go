package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpinStatus is the lifecycle state of a queued wager. Status only moves
// forward; terminal states are final.
type SpinStatus string

const (
	StatusPending   SpinStatus = "pending"
	StatusSubmitted SpinStatus = "submitted"
	StatusCompleted SpinStatus = "completed"
	StatusFailed    SpinStatus = "failed"
	StatusExpired   SpinStatus = "expired"
)

// Terminal reports whether the status is final
func (s SpinStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal forward transition
func (s SpinStatus) CanTransitionTo(next SpinStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusSubmitted || next == StatusCompleted || next == StatusFailed || next == StatusExpired
	case StatusSubmitted:
		return next == StatusCompleted || next == StatusFailed || next == StatusExpired
	}
	return false
}

// SpinRequest is one wager as requested by the player. Immutable once created.
type SpinRequest struct {
	ClientID  string    `json:"clientId"`
	Stake     Stake     `json:"stake"`
	Mode      WagerMode `json:"mode"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSpinRequest creates a spin request with a fresh client id
func NewSpinRequest(stake Stake, mode WagerMode) SpinRequest {
	return SpinRequest{
		ClientID:  uuid.New().String(),
		Stake:     stake,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the request shape
func (r SpinRequest) Validate() error {
	if r.ClientID == "" {
		return fmt.Errorf("spin request missing client id")
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("unknown wager mode %q", r.Mode)
	}
	return r.Stake.Validate()
}

// QueueEntry is the mutable lifecycle record of one wager. EngineID is assigned
// at most once and is immutable afterwards.
type QueueEntry struct {
	ClientID    string     `json:"clientId"`
	EngineID    string     `json:"engineId,omitempty"`
	Stake       Stake      `json:"stake"`
	Mode        WagerMode  `json:"mode"`
	Status      SpinStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Outcome     *Outcome   `json:"outcome,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewQueueEntry creates a Pending entry from a spin request
func NewQueueEntry(req SpinRequest) *QueueEntry {
	return &QueueEntry{
		ClientID:  req.ClientID,
		Stake:     req.Stake,
		Mode:      req.Mode,
		Status:    StatusPending,
		CreatedAt: req.CreatedAt,
	}
}

// MarkSubmitted assigns the engine id and moves the entry to Submitted
func (e *QueueEntry) MarkSubmitted(engineID string, at time.Time) error {
	if e.EngineID != "" && e.EngineID != engineID {
		return fmt.Errorf("entry %s already has engine id %s", e.ClientID, e.EngineID)
	}
	if !e.Status.CanTransitionTo(StatusSubmitted) {
		return fmt.Errorf("cannot submit entry %s in status %s", e.ClientID, e.Status)
	}
	e.EngineID = engineID
	e.Status = StatusSubmitted
	e.SubmittedAt = &at
	return nil
}

// MarkCompleted records the outcome and moves the entry to Completed
func (e *QueueEntry) MarkCompleted(outcome *Outcome, at time.Time) error {
	if !e.Status.CanTransitionTo(StatusCompleted) {
		return fmt.Errorf("cannot complete entry %s in status %s", e.ClientID, e.Status)
	}
	e.Status = StatusCompleted
	e.Outcome = outcome
	e.CompletedAt = &at
	return nil
}

// MarkFailed records an authority-reported error and moves the entry to Failed
func (e *QueueEntry) MarkFailed(message string, at time.Time) error {
	if !e.Status.CanTransitionTo(StatusFailed) {
		return fmt.Errorf("cannot fail entry %s in status %s", e.ClientID, e.Status)
	}
	e.Status = StatusFailed
	e.Error = message
	e.CompletedAt = &at
	return nil
}

// MarkExpired moves the entry to Expired. Client-side only: the authority never
// expires entries, the client infers it after a bounded wait for UI purposes.
func (e *QueueEntry) MarkExpired(at time.Time) error {
	if !e.Status.CanTransitionTo(StatusExpired) {
		return fmt.Errorf("cannot expire entry %s in status %s", e.ClientID, e.Status)
	}
	e.Status = StatusExpired
	e.CompletedAt = &at
	return nil
}

// Clone returns a deep copy of the entry
func (e *QueueEntry) Clone() *QueueEntry {
	c := *e
	if e.SubmittedAt != nil {
		t := *e.SubmittedAt
		c.SubmittedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	if e.Outcome != nil {
		c.Outcome = e.Outcome.Clone()
	}
	return &c
}
