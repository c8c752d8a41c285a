package protocol

import (
	"time"

	"slotbridge/domain/entities"
)

// StakePayload mirrors entities.Stake on the wire
type StakePayload struct {
	Lines   int   `json:"lines,omitempty" validate:"min=0,max=5"`
	PerLine int64 `json:"perLine,omitempty" validate:"min=0"`
	Amount  int64 `json:"amount,omitempty" validate:"min=0"`
	Ways    bool  `json:"ways,omitempty"`
}

// SpinRequestPayload asks the host to wager one spin
type SpinRequestPayload struct {
	ClientID string       `json:"clientId" validate:"required,uuid4"`
	Stake    StakePayload `json:"stake" validate:"required"`
	Mode     string       `json:"mode" validate:"required,oneof=bonus_credit free_credit primary_token secondary_token"`
}

// ConfigPayload announces machine limits and session parameters
type ConfigPayload struct {
	MinStake   int64    `json:"minStake"`
	MaxStake   int64    `json:"maxStake"`
	RTP        float64  `json:"rtp"`
	Modes      []string `json:"modeEnabled"`
	ContractID string   `json:"contractId"`
}

// BalancePayload reports the ledger state
type BalancePayload struct {
	Confirmed int64 `json:"confirmed"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// CreditBalancePayload reports credits and remaining bonus spins
type CreditBalancePayload struct {
	Credits    int64 `json:"credits"`
	BonusSpins int   `json:"bonusSpins"`
}

// SpinSubmittedPayload carries the authoritative engine id; the envelope's
// RequestID echoes the client id of the matched entry
type SpinSubmittedPayload struct {
	ID string `json:"id"`
}

// OutcomePayload carries a decoded spin outcome keyed by engine id
type OutcomePayload struct {
	ID                string             `json:"id"`
	Grid              [][]string         `json:"grid"`
	Winnings          int64              `json:"winnings"`
	WinLevel          string             `json:"winLevel"`
	WinningLines      []entities.LineWin `json:"winningLines,omitempty"`
	WaysWins          []entities.WaysWin `json:"waysWins,omitempty"`
	BonusSpinsAwarded int                `json:"bonusSpinsAwarded"`
	JackpotHit        bool               `json:"jackpotHit"`
	JackpotAmount     int64              `json:"jackpotAmount"`
}

// QueueEntryPayload is one entry of a queue snapshot
type QueueEntryPayload struct {
	ClientID    string          `json:"clientId"`
	EngineID    string          `json:"engineId,omitempty"`
	Stake       StakePayload    `json:"stake"`
	Mode        string          `json:"mode"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	SubmittedAt *time.Time      `json:"submittedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Outcome     *OutcomePayload `json:"outcome,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// SpinQueuePayload is a full authoritative queue snapshot
type SpinQueuePayload struct {
	Entries []QueueEntryPayload `json:"entries"`
}

// ErrorPayload reports a failure; RequestID names the affected entry when the
// error is entry-scoped
type ErrorPayload struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ToStake converts a wire stake to the domain type
func (p StakePayload) ToStake() entities.Stake {
	return entities.Stake{Lines: p.Lines, PerLine: p.PerLine, Amount: p.Amount, Ways: p.Ways}
}

// FromStake converts a domain stake to the wire type
func FromStake(s entities.Stake) StakePayload {
	return StakePayload{Lines: s.Lines, PerLine: s.PerLine, Amount: s.Amount, Ways: s.Ways}
}

// ToSpinRequest converts a wire spin request to the domain type
func (p SpinRequestPayload) ToSpinRequest() entities.SpinRequest {
	return entities.SpinRequest{
		ClientID:  p.ClientID,
		Stake:     p.Stake.ToStake(),
		Mode:      entities.WagerMode(p.Mode),
		CreatedAt: time.Now().UTC(),
	}
}

// FromOutcome converts a domain outcome to the wire type
func FromOutcome(id string, o *entities.Outcome) OutcomePayload {
	return OutcomePayload{
		ID:                id,
		Grid:              o.Grid,
		Winnings:          o.Winnings,
		WinLevel:          string(o.WinLevel),
		WinningLines:      o.WinningLines,
		WaysWins:          o.WaysWins,
		BonusSpinsAwarded: o.BonusSpinsAwarded,
		JackpotHit:        o.JackpotHit,
		JackpotAmount:     o.JackpotAmount,
	}
}

// ToOutcome converts a wire outcome to the domain type
func (p OutcomePayload) ToOutcome() *entities.Outcome {
	return &entities.Outcome{
		Grid:              p.Grid,
		Winnings:          p.Winnings,
		WinLevel:          entities.WinLevel(p.WinLevel),
		WinningLines:      p.WinningLines,
		WaysWins:          p.WaysWins,
		BonusSpinsAwarded: p.BonusSpinsAwarded,
		JackpotHit:        p.JackpotHit,
		JackpotAmount:     p.JackpotAmount,
	}
}

// FromQueueEntry converts a domain queue entry to the wire type
func FromQueueEntry(e *entities.QueueEntry) QueueEntryPayload {
	p := QueueEntryPayload{
		ClientID:    e.ClientID,
		EngineID:    e.EngineID,
		Stake:       FromStake(e.Stake),
		Mode:        string(e.Mode),
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		SubmittedAt: e.SubmittedAt,
		CompletedAt: e.CompletedAt,
		Error:       e.Error,
	}
	if e.Outcome != nil {
		outcome := FromOutcome(e.EngineID, e.Outcome)
		p.Outcome = &outcome
	}
	return p
}

// ToQueueEntry converts a wire queue entry to the domain type
func (p QueueEntryPayload) ToQueueEntry() *entities.QueueEntry {
	e := &entities.QueueEntry{
		ClientID:    p.ClientID,
		EngineID:    p.EngineID,
		Stake:       p.Stake.ToStake(),
		Mode:        entities.WagerMode(p.Mode),
		Status:      entities.SpinStatus(p.Status),
		CreatedAt:   p.CreatedAt,
		SubmittedAt: p.SubmittedAt,
		CompletedAt: p.CompletedAt,
		Error:       p.Error,
	}
	if p.Outcome != nil {
		e.Outcome = p.Outcome.ToOutcome()
	}
	return e
}
