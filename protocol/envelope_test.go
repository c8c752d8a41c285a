package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"slotbridge/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEnvelope("casino", TypeSpinRequest, SpinRequestPayload{
		ClientID: "11111111-2222-4333-8444-555555555555",
		Stake:    StakePayload{Lines: 5, PerLine: 10},
		Mode:     "primary_token",
	})
	require.NoError(t, err)
	env.RequestID = "11111111-2222-4333-8444-555555555555"

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "casino", decoded.Namespace)
	assert.Equal(t, TypeSpinRequest, decoded.Type)

	var payload SpinRequestPayload
	require.NoError(t, decoded.Decode(&payload))
	assert.Equal(t, 5, payload.Stake.Lines)
	assert.Equal(t, int64(10), payload.Stake.PerLine)
}

func TestEnvelope_DecodeWithoutPayload(t *testing.T) {
	env := Envelope{Namespace: "casino", Type: TypeGetBalance}
	var payload BalancePayload
	assert.Error(t, env.Decode(&payload))
}

func TestQueueEntryPayload_Conversion(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	entry := &entities.QueueEntry{
		ClientID:  "client-1",
		EngineID:  "tx-1",
		Stake:     entities.NewLineStake(5, 10),
		Mode:      entities.ModePrimaryToken,
		Status:    entities.StatusCompleted,
		CreatedAt: now,
		Outcome: &entities.Outcome{
			Grid:     [][]string{{"cherry"}},
			Winnings: 20,
			WinLevel: entities.WinLevelSmall,
		},
	}

	payload := FromQueueEntry(entry)
	assert.Equal(t, "tx-1", payload.EngineID)
	require.NotNil(t, payload.Outcome)
	assert.Equal(t, "tx-1", payload.Outcome.ID)

	back := payload.ToQueueEntry()
	assert.Equal(t, entry.ClientID, back.ClientID)
	assert.Equal(t, entry.Status, back.Status)
	require.NotNil(t, back.Outcome)
	assert.Equal(t, int64(20), back.Outcome.Winnings)
	assert.Equal(t, entities.WinLevelSmall, back.Outcome.WinLevel)
}

func TestSpinRequestPayload_ToSpinRequest(t *testing.T) {
	payload := SpinRequestPayload{
		ClientID: "client-1",
		Stake:    StakePayload{Amount: 50, Ways: true},
		Mode:     "free_credit",
	}

	req := payload.ToSpinRequest()
	assert.Equal(t, "client-1", req.ClientID)
	assert.Equal(t, entities.ModeFreeCredit, req.Mode)
	assert.True(t, req.Stake.Ways)
	assert.Equal(t, int64(50), req.Stake.Total())
	assert.False(t, req.CreatedAt.IsZero())
}
