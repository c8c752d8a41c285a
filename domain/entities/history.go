package entities

import "time"

// SpinRecord is the persisted audit row for one resolved spin
type SpinRecord struct {
	ID            int64      `db:"id" json:"id"`
	ClientID      string     `db:"client_id" json:"clientId"`
	EngineID      string     `db:"engine_id" json:"engineId,omitempty"`
	Stake         int64      `db:"stake" json:"stake"`
	Mode          WagerMode  `db:"mode" json:"mode"`
	Status        SpinStatus `db:"status" json:"status"`
	Winnings      int64      `db:"winnings" json:"winnings"`
	WinLevel      WinLevel   `db:"win_level" json:"winLevel"`
	BonusSpins    int        `db:"bonus_spins" json:"bonusSpins"`
	JackpotHit    bool       `db:"jackpot_hit" json:"jackpotHit"`
	JackpotAmount int64      `db:"jackpot_amount" json:"jackpotAmount,omitempty"`
	Error         string     `db:"error" json:"error,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// NewSpinRecord builds an audit row from a terminal queue entry
func NewSpinRecord(entry *QueueEntry) *SpinRecord {
	record := &SpinRecord{
		ClientID: entry.ClientID,
		EngineID: entry.EngineID,
		Stake:    entry.Stake.Total(),
		Mode:     entry.Mode,
		Status:   entry.Status,
		WinLevel: WinLevelNone,
		Error:    entry.Error,
	}
	if entry.Outcome != nil {
		record.Winnings = entry.Outcome.Winnings
		record.WinLevel = entry.Outcome.WinLevel
		record.BonusSpins = entry.Outcome.BonusSpinsAwarded
		record.JackpotHit = entry.Outcome.JackpotHit
		record.JackpotAmount = entry.Outcome.JackpotAmount
	}
	return record
}
