package testhelpers

import (
	"context"

	"slotbridge/domain/entities"
	"slotbridge/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockChainAdapter is a mock implementation of interfaces.ChainAdapter
type MockChainAdapter struct {
	mock.Mock
}

func (m *MockChainAdapter) SubmitSpin(ctx context.Context, stake entities.Stake, mode entities.WagerMode) (string, error) {
	args := m.Called(ctx, stake, mode)
	return args.String(0), args.Error(1)
}

func (m *MockChainAdapter) AwaitOutcome(ctx context.Context, txID string) (*entities.SpinResult, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SpinResult), args.Error(1)
}

func (m *MockChainAdapter) Balance(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChainAdapter) CreditBalance(ctx context.Context) (entities.CreditBalance, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.CreditBalance), args.Error(1)
}

// MockEventPublisher is a mock implementation of interfaces.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockSpinHistoryRepository is a mock implementation of
// interfaces.SpinHistoryRepository
type MockSpinHistoryRepository struct {
	mock.Mock
}

func (m *MockSpinHistoryRepository) Record(ctx context.Context, record *entities.SpinRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSpinHistoryRepository) GetRecent(ctx context.Context, limit int) ([]*entities.SpinRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SpinRecord), args.Error(1)
}

// MockWalletSigner is a mock implementation of interfaces.WalletSigner
type MockWalletSigner struct {
	mock.Mock
}

func (m *MockWalletSigner) Address() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockWalletSigner) Sign(payload []byte) ([]byte, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
