package interfaces

import (
	"context"

	"slotbridge/domain/entities"
	"slotbridge/domain/events"
)

// ChainAdapter talks to the blockchain-backed machine. Submission and
// confirmation are separate suspension points: SubmitSpin returns once the
// network accepted the transaction, AwaitOutcome blocks until confirmation.
type ChainAdapter interface {
	SubmitSpin(ctx context.Context, stake entities.Stake, mode entities.WagerMode) (txID string, err error)
	AwaitOutcome(ctx context.Context, txID string) (*entities.SpinResult, error)
	Balance(ctx context.Context) (int64, error)
	CreditBalance(ctx context.Context) (entities.CreditBalance, error)
}

// WalletSigner holds the session wallet key. Key custody is outside this
// module; implementations are injected by the host.
type WalletSigner interface {
	Address() string
	Sign(payload []byte) ([]byte, error)
}

// EventPublisher publishes domain events to all current subscribers
type EventPublisher interface {
	Publish(event events.Event) error
}

// EventSubscriber registers handlers for domain events. Each subscription
// returns its own unsubscribe function; arbitrary subscriber counts are
// supported.
type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) func()
}

// SpinHistoryRepository persists resolved spins for audit
type SpinHistoryRepository interface {
	Record(ctx context.Context, record *entities.SpinRecord) error
	GetRecent(ctx context.Context, limit int) ([]*entities.SpinRecord, error)
}
