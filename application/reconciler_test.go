package application

import (
	"testing"
	"time"

	"slotbridge/config"
	"slotbridge/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReconciler(t *testing.T) *QueueReconciler {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)
	return NewQueueReconciler()
}

func newRequest() entities.SpinRequest {
	return entities.NewSpinRequest(entities.NewLineStake(5, 10), entities.ModePrimaryToken)
}

func TestReconciler_SubmissionMatchesByEchoedClientID(t *testing.T) {
	r := setupReconciler(t)
	first := newRequest()
	second := newRequest()
	r.Enqueue(first)
	r.Enqueue(second)

	// Host echoes the client id: the newer entry is matched even though the
	// older one is also pending
	r.ApplySubmission("tx-9", second.ClientID)

	entries := r.Entries()
	assert.Equal(t, entities.StatusPending, entries[0].Status)
	assert.Equal(t, entities.StatusSubmitted, entries[1].Status)
	assert.Equal(t, "tx-9", entries[1].EngineID)
}

func TestReconciler_SubmissionFallsBackToOldestPending(t *testing.T) {
	r := setupReconciler(t)
	first := newRequest()
	second := newRequest()
	r.Enqueue(first)
	r.Enqueue(second)

	r.ApplySubmission("tx-1", "")
	r.ApplySubmission("tx-2", "")

	entries := r.Entries()
	assert.Equal(t, "tx-1", entries[0].EngineID)
	assert.Equal(t, "tx-2", entries[1].EngineID)
}

func TestReconciler_OutcomeMatchesByEngineID(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)
	r.ApplySubmission("tx-1", req.ClientID)

	outcome := &entities.Outcome{Winnings: 20, WinLevel: entities.WinLevelSmall}
	r.ApplyOutcome("tx-1", "", outcome)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entities.StatusCompleted, entries[0].Status)
	assert.Equal(t, int64(20), entries[0].Outcome.Winnings)
}

func TestReconciler_OutcomeFallsBackToClientID(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)

	// The acknowledgment was lost; the outcome still lands via client id and
	// the entry adopts the engine id on the way
	r.ApplyOutcome("tx-1", req.ClientID, &entities.Outcome{})

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entities.StatusCompleted, entries[0].Status)
	assert.Equal(t, "tx-1", entries[0].EngineID)
}

func TestReconciler_OutcomeRedeliveryIsIdempotent(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)
	r.ApplySubmission("tx-1", req.ClientID)

	r.ApplyOutcome("tx-1", "", &entities.Outcome{Winnings: 20})
	r.ApplyOutcome("tx-1", "", &entities.Outcome{Winnings: 999})

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(20), entries[0].Outcome.Winnings)
}

func TestReconciler_DowngradesUncorroboratedJackpot(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)
	r.ApplySubmission("tx-1", req.ClientID)

	// The wire claims a jackpot but the grid carries no jackpot symbols
	r.ApplyOutcome("tx-1", "", &entities.Outcome{
		Grid:          losingGrid(),
		Winnings:      1_000_000,
		WinLevel:      entities.WinLevelJackpot,
		JackpotHit:    true,
		JackpotAmount: 1_000_000,
	})

	entries := r.Entries()
	require.Len(t, entries, 1)
	got := entries[0].Outcome
	assert.False(t, got.JackpotHit)
	assert.Zero(t, got.JackpotAmount)
	assert.Equal(t, entities.WinLevelLarge, got.WinLevel)
}

func TestReconciler_KeepsCorroboratedJackpot(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)
	r.ApplySubmission("tx-1", req.ClientID)

	grid := losingGrid()
	grid[0][0] = entities.JackpotSymbol
	grid[1][1] = entities.JackpotSymbol
	grid[2][2] = entities.JackpotSymbol
	r.ApplyOutcome("tx-1", "", &entities.Outcome{
		Grid:          grid,
		WinLevel:      entities.WinLevelJackpot,
		JackpotHit:    true,
		JackpotAmount: 1_000_000,
	})

	got := r.Entries()[0].Outcome
	assert.True(t, got.JackpotHit)
	assert.Equal(t, int64(1_000_000), got.JackpotAmount)
}

func TestReconciler_SnapshotSanitizesJackpotClaims(t *testing.T) {
	r := setupReconciler(t)

	r.ApplySnapshot([]*entities.QueueEntry{{
		ClientID:  "entry-1",
		EngineID:  "tx-1",
		Stake:     entities.NewLineStake(5, 10),
		Mode:      entities.ModePrimaryToken,
		Status:    entities.StatusCompleted,
		CreatedAt: time.Now().UTC(),
		Outcome: &entities.Outcome{
			Grid:          losingGrid(),
			WinLevel:      entities.WinLevelJackpot,
			JackpotHit:    true,
			JackpotAmount: 1_000_000,
		},
	}})

	entries := r.Entries()
	require.Len(t, entries, 1)
	got := entries[0].Outcome
	assert.False(t, got.JackpotHit)
	assert.Zero(t, got.JackpotAmount)
}

func TestReconciler_ErrorMatchesEitherID(t *testing.T) {
	r := setupReconciler(t)

	acked := newRequest()
	r.Enqueue(acked)
	r.ApplySubmission("tx-1", acked.ClientID)
	r.ApplyError("tx-1", "reverted")

	unacked := newRequest()
	r.Enqueue(unacked)
	r.ApplyError(unacked.ClientID, "rejected before submission")

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, entities.StatusFailed, entries[0].Status)
	assert.Equal(t, "reverted", entries[0].Error)
	assert.Equal(t, entities.StatusFailed, entries[1].Status)
}

func TestReconciler_SnapshotReplacesLocalView(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)
	r.ApplySubmission("tx-1", req.ClientID)

	// Authoritative snapshot: the entry resolved while the client was away,
	// plus an entry the client never saw
	resolved := &entities.QueueEntry{
		ClientID:  req.ClientID,
		EngineID:  "tx-1",
		Stake:     req.Stake,
		Mode:      req.Mode,
		Status:    entities.StatusCompleted,
		CreatedAt: req.CreatedAt,
		Outcome:   &entities.Outcome{Winnings: 40},
	}
	foreign := &entities.QueueEntry{
		ClientID:  "other-session-entry",
		EngineID:  "tx-2",
		Stake:     entities.NewLineStake(5, 10),
		Mode:      entities.ModePrimaryToken,
		Status:    entities.StatusSubmitted,
		CreatedAt: time.Now().UTC(),
	}

	r.ApplySnapshot([]*entities.QueueEntry{resolved, foreign})

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, entities.StatusCompleted, entries[0].Status)
	assert.Equal(t, int64(40), entries[0].Outcome.Winnings)
	assert.Equal(t, "other-session-entry", entries[1].ClientID)
}

func TestReconciler_SnapshotKeepsLocalInFlightEntries(t *testing.T) {
	r := setupReconciler(t)

	inFlight := newRequest()
	r.Enqueue(inFlight)

	// The snapshot was cut before the request reached the host
	r.ApplySnapshot([]*entities.QueueEntry{})

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, inFlight.ClientID, entries[0].ClientID)
	assert.Equal(t, entities.StatusPending, entries[0].Status)
}

func TestReconciler_SnapshotDropsLocalTerminalEntries(t *testing.T) {
	r := setupReconciler(t)

	done := newRequest()
	r.Enqueue(done)
	r.ApplyError(done.ClientID, "rejected")

	r.ApplySnapshot([]*entities.QueueEntry{})
	assert.Empty(t, r.Entries())
}

func TestReconciler_ExpireStale(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)

	timeout := config.Get().ExpiryTimeout
	r.now = func() time.Time { return time.Now().UTC().Add(timeout + time.Second) }
	r.ExpireStale()

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entities.StatusExpired, entries[0].Status)

	// A late outcome for the expired entry is ignored
	r.ApplyOutcome("tx-1", req.ClientID, &entities.Outcome{Winnings: 100})
	assert.Equal(t, entities.StatusExpired, r.Entries()[0].Status)
}

func TestReconciler_PruneFadesThenRemoves(t *testing.T) {
	r := setupReconciler(t)
	limit := config.Get().QueueLimit

	var requests []entities.SpinRequest
	for i := 0; i < limit+2; i++ {
		req := newRequest()
		requests = append(requests, req)
		r.Enqueue(req)
		r.ApplyError(req.ClientID, "done")
	}

	base := time.Now().UTC()
	r.now = func() time.Time { return base }
	r.Prune()

	// Over the limit: the two oldest terminal entries fade but stay visible
	assert.Len(t, r.Entries(), limit+2)
	assert.True(t, r.IsFading(requests[0].ClientID))
	assert.True(t, r.IsFading(requests[1].ClientID))
	assert.False(t, r.IsFading(requests[2].ClientID))

	// After the grace period the faded entries drop
	r.now = func() time.Time { return base.Add(config.Get().PruneDelay + time.Millisecond) }
	r.Prune()
	assert.Len(t, r.Entries(), limit)
	assert.False(t, r.IsFading(requests[0].ClientID))
}

func TestReconciler_PruneNeverRemovesNonTerminalEntries(t *testing.T) {
	r := setupReconciler(t)
	limit := config.Get().QueueLimit

	for i := 0; i < limit+3; i++ {
		r.Enqueue(newRequest())
	}

	r.Prune()
	base := time.Now().UTC()
	r.now = func() time.Time { return base.Add(config.Get().PruneDelay * 2) }
	r.Prune()

	assert.Len(t, r.Entries(), limit+3)
}

func TestReconciler_RedeliveryAfterPruneStaysSilent(t *testing.T) {
	r := setupReconciler(t)
	req := newRequest()
	r.Enqueue(req)
	r.ApplySubmission("tx-1", req.ClientID)
	r.ApplyOutcome("tx-1", "", &entities.Outcome{Winnings: 20})

	// Snapshot without the entry removes it locally
	r.ApplySnapshot([]*entities.QueueEntry{})
	assert.Empty(t, r.Entries())

	// A late redelivery must not resurrect the entry
	r.ApplyOutcome("tx-1", req.ClientID, &entities.Outcome{Winnings: 20})
	assert.Empty(t, r.Entries())
}

func TestReconciler_PendingCount(t *testing.T) {
	r := setupReconciler(t)

	first := newRequest()
	second := newRequest()
	r.Enqueue(first)
	r.Enqueue(second)
	assert.Equal(t, 2, r.PendingCount())

	r.ApplyError(first.ClientID, "rejected")
	assert.Equal(t, 1, r.PendingCount())
}
