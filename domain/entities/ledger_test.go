package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceLedger_ReserveAndRelease(t *testing.T) {
	ledger := NewBalanceLedger(1000)

	require.NoError(t, ledger.Reserve(300))
	assert.Equal(t, int64(1000), ledger.Confirmed())
	assert.Equal(t, int64(300), ledger.Reserved())
	assert.Equal(t, int64(700), ledger.Available())

	require.NoError(t, ledger.Reserve(700))
	assert.Equal(t, int64(0), ledger.Available())

	ledger.Release(300)
	assert.Equal(t, int64(700), ledger.Reserved())
	assert.Equal(t, int64(300), ledger.Available())
}

func TestBalanceLedger_ReserveBeyondAvailable(t *testing.T) {
	ledger := NewBalanceLedger(100)

	require.NoError(t, ledger.Reserve(60))
	err := ledger.Reserve(50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	// Failed reservation leaves the ledger untouched
	assert.Equal(t, int64(60), ledger.Reserved())
	assert.Equal(t, int64(40), ledger.Available())
}

func TestBalanceLedger_ReservedNeverNegative(t *testing.T) {
	ledger := NewBalanceLedger(100)

	require.NoError(t, ledger.Reserve(50))
	ledger.Release(80)
	assert.Equal(t, int64(0), ledger.Reserved())
	assert.Equal(t, int64(100), ledger.Available())
}

func TestBalanceLedger_AvailableFlooredAtZero(t *testing.T) {
	ledger := NewBalanceLedger(100)
	require.NoError(t, ledger.Reserve(100))

	// A settlement can drop the confirmed balance below the reservation
	ledger.SetConfirmed(40)
	assert.Equal(t, int64(40), ledger.Confirmed())
	assert.Equal(t, int64(0), ledger.Available())
}

func TestBalanceLedger_SetConfirmedReplacesValue(t *testing.T) {
	ledger := NewBalanceLedger(100)
	ledger.SetConfirmed(250)
	assert.Equal(t, int64(250), ledger.Confirmed())
	assert.Equal(t, int64(250), ledger.Available())
}

func TestInsufficientFundsError_Message(t *testing.T) {
	err := &InsufficientFundsError{Required: 50, Available: 10, QueuedSpins: 3}
	assert.Contains(t, err.Error(), "3")
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
}
