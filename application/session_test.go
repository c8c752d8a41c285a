package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"slotbridge/config"
	"slotbridge/domain/entities"
	"slotbridge/domain/services"
	"slotbridge/infrastructure"
	"slotbridge/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSession wires a bridge and a host session onto one end of a pipe and
// returns the other end for the test to drive.
func setupSession(t *testing.T, balance int64) (*fakeChain, infrastructure.Channel) {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)

	chain := newFakeChain(balance)
	bus := infrastructure.NewEventBus()
	bridge := NewBridge(chain, services.NewPaytableService(), bus, nil)
	require.NoError(t, bridge.Initialize(context.Background()))

	hostEnd, clientEnd := infrastructure.NewPipe()
	session := NewHostSession(bridge, bus, hostEnd)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = session.Run(ctx) }()

	return chain, clientEnd
}

// recv pulls envelopes until one of the wanted type arrives
func recv(t *testing.T, ch infrastructure.Channel, want protocol.MessageType) protocol.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-ch.Receive():
			require.True(t, ok, "channel closed while waiting for %s", want)
			if env.Type == want {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func send(t *testing.T, ch infrastructure.Channel, msgType protocol.MessageType, payload any, requestID string) {
	t.Helper()
	env, err := protocol.NewEnvelope(config.Get().Namespace, msgType, payload)
	require.NoError(t, err)
	env.RequestID = requestID
	require.NoError(t, ch.Send(env))
}

func TestHostSession_InitAnnouncesSessionState(t *testing.T) {
	_, client := setupSession(t, 1000)

	send(t, client, protocol.TypeInit, nil, "")

	configEnv := recv(t, client, protocol.TypeConfig)
	var machine protocol.ConfigPayload
	require.NoError(t, configEnv.Decode(&machine))
	assert.Equal(t, int64(5), machine.MinStake)
	assert.Equal(t, int64(10_000), machine.MaxStake)
	assert.Contains(t, machine.Modes, "free_credit")

	balanceEnv := recv(t, client, protocol.TypeBalanceUpdate)
	var balance protocol.BalancePayload
	require.NoError(t, balanceEnv.Decode(&balance))
	assert.Equal(t, int64(1000), balance.Confirmed)

	queueEnv := recv(t, client, protocol.TypeSpinQueue)
	var queue protocol.SpinQueuePayload
	require.NoError(t, queueEnv.Decode(&queue))
	assert.Empty(t, queue.Entries)
}

func TestHostSession_SpinRequestFlow(t *testing.T) {
	chain, client := setupSession(t, 1000)

	clientID := uuid.New().String()
	send(t, client, protocol.TypeSpinRequest, protocol.SpinRequestPayload{
		ClientID: clientID,
		Stake:    protocol.StakePayload{Lines: 5, PerLine: 10},
		Mode:     "primary_token",
	}, clientID)

	ack := recv(t, client, protocol.TypeSpinSubmitted)
	assert.Equal(t, clientID, ack.RequestID)
	var submitted protocol.SpinSubmittedPayload
	require.NoError(t, ack.Decode(&submitted))
	assert.Equal(t, "tx-1", submitted.ID)

	chain.setBalance(970)
	chain.resolve("tx-1", &entities.SpinResult{Grid: winningGrid()})

	outcomeEnv := recv(t, client, protocol.TypeOutcome)
	var outcome protocol.OutcomePayload
	require.NoError(t, outcomeEnv.Decode(&outcome))
	assert.Equal(t, "tx-1", outcome.ID)
	assert.Equal(t, int64(20), outcome.Winnings)

	balanceEnv := recv(t, client, protocol.TypeBalanceUpdate)
	var balance protocol.BalancePayload
	require.NoError(t, balanceEnv.Decode(&balance))
	assert.Equal(t, int64(970), balance.Confirmed)
	assert.Equal(t, int64(0), balance.Reserved)
}

func TestHostSession_RejectsInvalidSpinRequest(t *testing.T) {
	_, client := setupSession(t, 1000)

	send(t, client, protocol.TypeSpinRequest, protocol.SpinRequestPayload{
		ClientID: uuid.New().String(),
		Stake:    protocol.StakePayload{Lines: 5, PerLine: 10},
		Mode:     "house_money",
	}, "")

	errEnv := recv(t, client, protocol.TypeError)
	var payload protocol.ErrorPayload
	require.NoError(t, errEnv.Decode(&payload))
	assert.Contains(t, payload.Message, "invalid spin request")
}

func TestHostSession_InsufficientFundsErrorNamesQueue(t *testing.T) {
	_, client := setupSession(t, 50)

	first := uuid.New().String()
	send(t, client, protocol.TypeSpinRequest, protocol.SpinRequestPayload{
		ClientID: first,
		Stake:    protocol.StakePayload{Lines: 4, PerLine: 10},
		Mode:     "primary_token",
	}, first)
	recv(t, client, protocol.TypeSpinSubmitted)

	second := uuid.New().String()
	send(t, client, protocol.TypeSpinRequest, protocol.SpinRequestPayload{
		ClientID: second,
		Stake:    protocol.StakePayload{Lines: 4, PerLine: 10},
		Mode:     "primary_token",
	}, second)

	errEnv := recv(t, client, protocol.TypeError)
	var payload protocol.ErrorPayload
	require.NoError(t, errEnv.Decode(&payload))
	assert.Equal(t, second, payload.RequestID)
	assert.Contains(t, payload.Message, "1 spins already queued")
}

func TestHostSession_ForeignNamespaceIsIgnored(t *testing.T) {
	_, client := setupSession(t, 1000)

	// A message from another app sharing the channel: no reply, no error
	raw, err := json.Marshal(protocol.SpinRequestPayload{
		ClientID: uuid.New().String(),
		Stake:    protocol.StakePayload{Lines: 5, PerLine: 10},
		Mode:     "primary_token",
	})
	require.NoError(t, err)
	require.NoError(t, client.Send(protocol.Envelope{
		Namespace: "some-other-app",
		Type:      protocol.TypeSpinRequest,
		Payload:   raw,
	}))

	select {
	case env := <-client.Receive():
		t.Fatalf("expected silence, got %s", env.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHostSession_GetBalanceRoundTrip(t *testing.T) {
	_, client := setupSession(t, 1234)

	send(t, client, protocol.TypeGetBalance, nil, "")
	env := recv(t, client, protocol.TypeBalanceResponse)

	var balance protocol.BalancePayload
	require.NoError(t, env.Decode(&balance))
	assert.Equal(t, int64(1234), balance.Confirmed)
}

func TestChannelClient_ConvergesOnHostQueue(t *testing.T) {
	chain, clientEnd := setupSession(t, 1000)

	client := NewChannelClient(clientEnd)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = client.Run(ctx) }()

	waitFor(t, func() bool {
		_, ok := client.MachineConfig()
		return ok
	}, "expected machine config to arrive")

	clientID, err := client.RequestSpin(entities.NewLineStake(5, 10), entities.ModePrimaryToken)
	require.NoError(t, err)

	// Optimistic entry exists immediately
	entries := client.Queue()
	require.Len(t, entries, 1)
	assert.Equal(t, clientID, entries[0].ClientID)

	waitFor(t, func() bool {
		entries := client.Queue()
		return len(entries) == 1 && entries[0].Status == entities.StatusSubmitted
	}, "expected the acknowledgment to land")

	chain.setBalance(970)
	chain.resolve(client.Queue()[0].EngineID, &entities.SpinResult{Grid: winningGrid()})

	waitFor(t, func() bool {
		entries := client.Queue()
		return len(entries) == 1 && entries[0].Status == entities.StatusCompleted
	}, "expected the outcome to land")
	assert.Equal(t, int64(20), client.Queue()[0].Outcome.Winnings)

	waitFor(t, func() bool {
		return client.Balance().Confirmed == 970
	}, "expected the balance refresh to land")
}

func TestChannelClient_RejectionFailsLocalEntry(t *testing.T) {
	_, clientEnd := setupSession(t, 10)

	client := NewChannelClient(clientEnd)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = client.Run(ctx) }()

	// Stake exceeds the confirmed balance: host rejects, local entry fails
	_, err := client.RequestSpin(entities.NewLineStake(5, 10), entities.ModePrimaryToken)
	require.NoError(t, err)

	waitFor(t, func() bool {
		entries := client.Queue()
		return len(entries) == 1 && entries[0].Status == entities.StatusFailed
	}, "expected the rejection to fail the local entry")
	assert.Contains(t, client.Queue()[0].Error, "insufficient funds")
}
