package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slotbridge/config"
	"slotbridge/domain/entities"
	"slotbridge/domain/events"
	"slotbridge/domain/interfaces"
	"slotbridge/domain/services"
	"slotbridge/infrastructure/metrics"

	log "github.com/sirupsen/logrus"
)

// retainedTerminal bounds how many resolved entries the authority keeps
// around for snapshots; clients never assume retention.
const retainedTerminal = 50

// Bridge is the host authority of a game session. It owns the wallet signer
// (through the chain adapter), the balance ledger, and the authoritative spin
// queue; it validates and submits wagers, assigns engine ids, and publishes
// submission/outcome/balance/error events.
type Bridge struct {
	chain    interfaces.ChainAdapter
	paytable *services.PaytableService
	bus      interfaces.EventPublisher
	history  interfaces.SpinHistoryRepository

	mu      sync.Mutex
	ledger  *entities.BalanceLedger
	entries []*entities.QueueEntry
	credits entities.CreditBalance

	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewBridge creates a bridge. history may be nil when no database is
// configured; resolved spins are then not persisted.
func NewBridge(chain interfaces.ChainAdapter, paytable *services.PaytableService, bus interfaces.EventPublisher, history interfaces.SpinHistoryRepository) *Bridge {
	return &Bridge{
		chain:    chain,
		paytable: paytable,
		bus:      bus,
		history:  history,
		ledger:   entities.NewBalanceLedger(0),
		baseCtx:  context.Background(),
	}
}

// Initialize fetches the confirmed balance and credit counters from the chain
// and publishes the initial balance events. ctx also becomes the base context
// for in-flight submissions.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.baseCtx = ctx

	confirmed, err := b.chain.Balance(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch initial balance: %w", err)
	}

	b.mu.Lock()
	b.ledger.SetConfirmed(confirmed)
	b.mu.Unlock()

	b.publishBalance()
	b.refreshCredits(ctx)
	return nil
}

// SubmitSpin validates the request against the available balance, accounting
// for every non-terminal entry already queued, reserves the stake, and starts
// the chain submission. Rejections name how many spins are already queued.
func (b *Bridge) SubmitSpin(ctx context.Context, req entities.SpinRequest) error {
	if err := req.Validate(); err != nil {
		metrics.SpinsRejected.Inc()
		return err
	}

	cfg := config.Get()
	total := req.Stake.Total()
	if total < cfg.MinStake || total > cfg.MaxStake {
		metrics.SpinsRejected.Inc()
		return fmt.Errorf("stake %d outside machine limits [%d, %d]", total, cfg.MinStake, cfg.MaxStake)
	}

	b.mu.Lock()
	for _, entry := range b.entries {
		if entry.ClientID == req.ClientID {
			b.mu.Unlock()
			metrics.SpinsRejected.Inc()
			return fmt.Errorf("duplicate spin request %s", req.ClientID)
		}
	}

	queued := 0
	for _, entry := range b.entries {
		if !entry.Status.Terminal() {
			queued++
		}
	}

	if err := b.ledger.Reserve(total); err != nil {
		available := b.ledger.Available()
		b.mu.Unlock()
		metrics.SpinsRejected.Inc()
		return &entities.InsufficientFundsError{
			Required:    total,
			Available:   available,
			QueuedSpins: queued,
		}
	}

	entry := entities.NewQueueEntry(req)
	b.entries = append(b.entries, entry)
	b.mu.Unlock()

	log.WithFields(log.Fields{
		"clientId": req.ClientID,
		"stake":    total,
		"mode":     req.Mode,
		"queued":   queued + 1,
	}).Info("Spin accepted")
	metrics.SpinsSubmitted.Inc()

	b.wg.Add(1)
	go b.run(req.Stake, req.Mode)
	return nil
}

// run drives one spin through submission and confirmation
func (b *Bridge) run(stake entities.Stake, mode entities.WagerMode) {
	defer b.wg.Done()
	ctx := b.baseCtx

	txID, err := b.chain.SubmitSpin(ctx, stake, mode)
	if err != nil {
		b.failOldestUnassigned(fmt.Errorf("transaction rejected: %w", err))
		return
	}

	entry := b.acknowledge(txID)
	if entry == nil {
		log.WithFields(log.Fields{"engineId": txID}).Warn("Submission acknowledgment matched no pending entry")
		return
	}

	result, err := b.chain.AwaitOutcome(ctx, txID)
	if err != nil {
		b.fail(txID, fmt.Errorf("confirmation failed: %w", err))
		return
	}

	outcome, err := b.paytable.DecodeOutcome(result, entry.Stake)
	if err != nil {
		b.fail(txID, fmt.Errorf("undecodable outcome: %w", err))
		return
	}

	b.complete(txID, outcome)
}

// acknowledge assigns the engine id to the oldest Pending entry without one.
// Matching is FIFO by submission order, never by content: bets of identical
// size are distinguished only by their place in the queue.
func (b *Bridge) acknowledge(engineID string) *entities.QueueEntry {
	now := time.Now().UTC()

	b.mu.Lock()
	var matched *entities.QueueEntry
	for _, entry := range b.entries {
		if entry.Status == entities.StatusPending && entry.EngineID == "" {
			matched = entry
			break
		}
	}
	if matched != nil {
		if err := matched.MarkSubmitted(engineID, now); err != nil {
			log.WithFields(log.Fields{"clientId": matched.ClientID, "error": err}).Error("Failed to mark entry submitted")
			matched = nil
		}
	}
	var clientID string
	if matched != nil {
		clientID = matched.ClientID
	}
	b.mu.Unlock()

	if matched == nil {
		return nil
	}

	log.WithFields(log.Fields{
		"clientId": clientID,
		"engineId": engineID,
	}).Info("Spin submitted on chain")
	b.publish(events.SpinSubmittedEvent{ClientID: clientID, EngineID: engineID})
	return matched
}

// complete finalizes the entry matching the engine id. Re-delivery for an
// already-terminal entry is a no-op and never double-releases the reservation.
func (b *Bridge) complete(engineID string, outcome *entities.Outcome) {
	now := time.Now().UTC()

	b.mu.Lock()
	entry := b.findByEngineID(engineID)
	if entry == nil {
		b.mu.Unlock()
		log.WithFields(log.Fields{"engineId": engineID}).Warn("Outcome matched no entry")
		return
	}
	if entry.Status.Terminal() {
		b.mu.Unlock()
		return
	}
	if err := entry.MarkCompleted(outcome, now); err != nil {
		b.mu.Unlock()
		log.WithFields(log.Fields{"engineId": engineID, "error": err}).Error("Failed to complete entry")
		return
	}
	b.ledger.Release(entry.Stake.Total())
	b.trimLocked()
	record := entities.NewSpinRecord(entry)
	clientID := entry.ClientID
	b.mu.Unlock()

	log.WithFields(log.Fields{
		"engineId": engineID,
		"winnings": outcome.Winnings,
		"winLevel": outcome.WinLevel,
		"jackpot":  outcome.JackpotHit,
	}).Info("Spin completed")
	metrics.SpinsResolved.WithLabelValues(string(entities.StatusCompleted)).Inc()

	b.record(record)
	b.publish(events.SpinOutcomeEvent{EngineID: engineID, ClientID: clientID, Outcome: outcome})
	b.refreshAfterTerminal()
}

// fail finalizes the entry matching the engine id with an error
func (b *Bridge) fail(engineID string, cause error) {
	now := time.Now().UTC()

	b.mu.Lock()
	entry := b.findByEngineID(engineID)
	if entry == nil || entry.Status.Terminal() {
		b.mu.Unlock()
		return
	}
	if err := entry.MarkFailed(cause.Error(), now); err != nil {
		b.mu.Unlock()
		log.WithFields(log.Fields{"engineId": engineID, "error": err}).Error("Failed to fail entry")
		return
	}
	b.ledger.Release(entry.Stake.Total())
	b.trimLocked()
	record := entities.NewSpinRecord(entry)
	b.mu.Unlock()

	log.WithFields(log.Fields{"engineId": engineID, "error": cause}).Warn("Spin failed")
	metrics.SpinsResolved.WithLabelValues(string(entities.StatusFailed)).Inc()

	b.record(record)
	b.publish(events.SpinErrorEvent{RequestID: engineID, Message: cause.Error()})
	b.refreshAfterTerminal()
}

// failOldestUnassigned handles a submission the network never accepted: no
// engine id exists, so the failure correlates the same way acknowledgments
// do, to the oldest Pending entry without an id.
func (b *Bridge) failOldestUnassigned(cause error) {
	now := time.Now().UTC()

	b.mu.Lock()
	var matched *entities.QueueEntry
	for _, entry := range b.entries {
		if entry.Status == entities.StatusPending && entry.EngineID == "" {
			matched = entry
			break
		}
	}
	if matched == nil {
		b.mu.Unlock()
		log.WithFields(log.Fields{"error": cause}).Warn("Submission failure matched no pending entry")
		return
	}
	if err := matched.MarkFailed(cause.Error(), now); err != nil {
		b.mu.Unlock()
		log.WithFields(log.Fields{"clientId": matched.ClientID, "error": err}).Error("Failed to fail entry")
		return
	}
	b.ledger.Release(matched.Stake.Total())
	b.trimLocked()
	record := entities.NewSpinRecord(matched)
	clientID := matched.ClientID
	b.mu.Unlock()

	log.WithFields(log.Fields{"clientId": clientID, "error": cause}).Warn("Spin submission failed")
	metrics.SpinsResolved.WithLabelValues(string(entities.StatusFailed)).Inc()

	b.record(record)
	b.publish(events.SpinErrorEvent{RequestID: clientID, Message: cause.Error()})
	b.refreshAfterTerminal()
}

// Snapshot returns a copy of the full authoritative queue
func (b *Bridge) Snapshot() []*entities.QueueEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := make([]*entities.QueueEntry, len(b.entries))
	for i, entry := range b.entries {
		snapshot[i] = entry.Clone()
	}
	return snapshot
}

// BalanceSnapshot returns the current ledger state
func (b *Bridge) BalanceSnapshot() (confirmed, reserved, available int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ledger.Confirmed(), b.ledger.Reserved(), b.ledger.Available()
}

// CreditBalance returns the last authoritative credit counters
func (b *Bridge) CreditBalance() entities.CreditBalance {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.credits
}

// Close waits for in-flight submissions to settle
func (b *Bridge) Close() {
	b.wg.Wait()
}

// refreshAfterTerminal refreshes the confirmed balance and credit counters
// from the chain after every terminal entry. The confirmed balance is never
// synthesized from the outcome; the chain is the source of truth.
func (b *Bridge) refreshAfterTerminal() {
	ctx := b.baseCtx

	confirmed, err := b.chain.Balance(ctx)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Failed to refresh balance")
	} else {
		b.mu.Lock()
		b.ledger.SetConfirmed(confirmed)
		b.mu.Unlock()
		b.publishBalance()
	}

	b.refreshCredits(ctx)
}

func (b *Bridge) refreshCredits(ctx context.Context) {
	credits, err := b.chain.CreditBalance(ctx)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Failed to refresh credit balance")
		return
	}

	b.mu.Lock()
	b.credits = credits
	b.mu.Unlock()

	b.publish(events.CreditBalanceEvent{Credits: credits.Credits, BonusSpins: credits.BonusSpins})
}

func (b *Bridge) publishBalance() {
	confirmed, reserved, available := b.BalanceSnapshot()
	b.publish(events.BalanceUpdateEvent{Confirmed: confirmed, Reserved: reserved, Available: available})
}

func (b *Bridge) publish(event events.Event) {
	if err := b.bus.Publish(event); err != nil {
		log.WithFields(log.Fields{"eventType": event.Type(), "error": err}).Error("Failed to publish event")
	}
}

func (b *Bridge) record(record *entities.SpinRecord) {
	if b.history == nil {
		return
	}
	if err := b.history.Record(b.baseCtx, record); err != nil {
		log.WithFields(log.Fields{"clientId": record.ClientID, "error": err}).Error("Failed to record spin history")
	}
}

func (b *Bridge) findByEngineID(engineID string) *entities.QueueEntry {
	for _, entry := range b.entries {
		if entry.EngineID == engineID {
			return entry
		}
	}
	return nil
}

// trimLocked drops the oldest terminal entries past the retention bound.
// Non-terminal entries are never dropped. Callers hold b.mu.
func (b *Bridge) trimLocked() {
	terminal := 0
	for _, entry := range b.entries {
		if entry.Status.Terminal() {
			terminal++
		}
	}
	if terminal <= retainedTerminal {
		return
	}
	drop := terminal - retainedTerminal
	kept := b.entries[:0]
	for _, entry := range b.entries {
		if drop > 0 && entry.Status.Terminal() {
			drop--
			continue
		}
		kept = append(kept, entry)
	}
	b.entries = kept
}
