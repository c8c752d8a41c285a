package repository

import (
	"context"
	"fmt"
	"time"

	"slotbridge/database"
	"slotbridge/domain/entities"
	"slotbridge/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryable abstracts query execution so repositories work with both the pool
// and a transaction
type Queryable interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// spinHistoryDB is a local struct for database mapping
type spinHistoryDB struct {
	ID            int64     `db:"id"`
	ClientID      string    `db:"client_id"`
	EngineID      string    `db:"engine_id"`
	Stake         int64     `db:"stake"`
	Mode          string    `db:"mode"`
	Status        string    `db:"status"`
	Winnings      int64     `db:"winnings"`
	WinLevel      string    `db:"win_level"`
	BonusSpins    int       `db:"bonus_spins"`
	JackpotHit    bool      `db:"jackpot_hit"`
	JackpotAmount int64     `db:"jackpot_amount"`
	Error         string    `db:"error"`
	CreatedAt     time.Time `db:"created_at"`
}

// toDomain converts the database struct to the domain model
func (s *spinHistoryDB) toDomain() *entities.SpinRecord {
	return &entities.SpinRecord{
		ID:            s.ID,
		ClientID:      s.ClientID,
		EngineID:      s.EngineID,
		Stake:         s.Stake,
		Mode:          entities.WagerMode(s.Mode),
		Status:        entities.SpinStatus(s.Status),
		Winnings:      s.Winnings,
		WinLevel:      entities.WinLevel(s.WinLevel),
		BonusSpins:    s.BonusSpins,
		JackpotHit:    s.JackpotHit,
		JackpotAmount: s.JackpotAmount,
		Error:         s.Error,
		CreatedAt:     s.CreatedAt,
	}
}

// spinHistoryRepository implements interfaces.SpinHistoryRepository
type spinHistoryRepository struct {
	q Queryable
}

// NewSpinHistoryRepository creates a new spin history repository
func NewSpinHistoryRepository(db *database.DB) interfaces.SpinHistoryRepository {
	return &spinHistoryRepository{q: db.Pool}
}

// Record persists one resolved spin. Client ids are unique, so re-recording
// the same spin after a redelivery is a no-op.
func (r *spinHistoryRepository) Record(ctx context.Context, record *entities.SpinRecord) error {
	query := `
		INSERT INTO spin_history (client_id, engine_id, stake, mode, status, winnings, win_level, bonus_spins, jackpot_hit, jackpot_amount, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (client_id) DO NOTHING
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		record.ClientID,
		record.EngineID,
		record.Stake,
		string(record.Mode),
		string(record.Status),
		record.Winnings,
		string(record.WinLevel),
		record.BonusSpins,
		record.JackpotHit,
		record.JackpotAmount,
		record.Error,
	).Scan(&record.ID, &record.CreatedAt)

	if err == pgx.ErrNoRows {
		// Conflict path: the spin was already recorded
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record spin: %w", err)
	}

	return nil
}

// GetRecent retrieves the most recently resolved spins, newest first
func (r *spinHistoryRepository) GetRecent(ctx context.Context, limit int) ([]*entities.SpinRecord, error) {
	query := `
		SELECT id, client_id, engine_id, stake, mode, status, winnings, win_level, bonus_spins, jackpot_hit, jackpot_amount, error, created_at
		FROM spin_history
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query spin history: %w", err)
	}
	defer rows.Close()

	var records []*entities.SpinRecord
	for rows.Next() {
		var dbRecord spinHistoryDB
		err := rows.Scan(
			&dbRecord.ID,
			&dbRecord.ClientID,
			&dbRecord.EngineID,
			&dbRecord.Stake,
			&dbRecord.Mode,
			&dbRecord.Status,
			&dbRecord.Winnings,
			&dbRecord.WinLevel,
			&dbRecord.BonusSpins,
			&dbRecord.JackpotHit,
			&dbRecord.JackpotAmount,
			&dbRecord.Error,
			&dbRecord.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spin record: %w", err)
		}
		records = append(records, dbRecord.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spin history: %w", err)
	}

	return records, nil
}
