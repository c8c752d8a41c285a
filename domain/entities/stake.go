package entities

import (
	"errors"
	"fmt"
)

// WagerMode identifies which currency or credit source funds a spin
type WagerMode string

const (
	ModeBonusCredit    WagerMode = "bonus_credit"
	ModeFreeCredit     WagerMode = "free_credit"
	ModePrimaryToken   WagerMode = "primary_token"
	ModeSecondaryToken WagerMode = "secondary_token"
)

// AllWagerModes lists every supported wager mode
var AllWagerModes = []WagerMode{ModeBonusCredit, ModeFreeCredit, ModePrimaryToken, ModeSecondaryToken}

// Valid checks whether the mode is a known wager mode
func (m WagerMode) Valid() bool {
	switch m {
	case ModeBonusCredit, ModeFreeCredit, ModePrimaryToken, ModeSecondaryToken:
		return true
	}
	return false
}

// IsCredit reports whether the mode spends house credits rather than tokens
func (m WagerMode) IsCredit() bool {
	return m == ModeBonusCredit || m == ModeFreeCredit
}

// Stake describes the bet shape of one spin. Payline games bet PerLine on Lines
// fixed paylines; ways-to-win games bet a flat Amount with Ways set.
type Stake struct {
	Lines   int   `json:"lines,omitempty"`
	PerLine int64 `json:"perLine,omitempty"`
	Amount  int64 `json:"amount,omitempty"`
	Ways    bool  `json:"ways,omitempty"`
}

// NewLineStake creates a fixed-payline stake
func NewLineStake(lines int, perLine int64) Stake {
	return Stake{Lines: lines, PerLine: perLine}
}

// NewWaysStake creates a flat ways-to-win stake
func NewWaysStake(amount int64) Stake {
	return Stake{Amount: amount, Ways: true}
}

// Total returns the full amount wagered by this stake
func (s Stake) Total() int64 {
	if s.Ways {
		return s.Amount
	}
	return int64(s.Lines) * s.PerLine
}

// Validate performs shape validation on the stake
func (s Stake) Validate() error {
	if s.Ways {
		if s.Amount <= 0 {
			return errors.New("ways stake amount must be positive")
		}
		if s.Lines != 0 || s.PerLine != 0 {
			return errors.New("ways stake must not carry payline fields")
		}
		return nil
	}
	if s.Lines <= 0 {
		return errors.New("stake must cover at least one payline")
	}
	if s.Lines > MaxPaylines {
		return fmt.Errorf("stake covers %d paylines, machine has %d", s.Lines, MaxPaylines)
	}
	if s.PerLine <= 0 {
		return errors.New("per-line amount must be positive")
	}
	return nil
}
