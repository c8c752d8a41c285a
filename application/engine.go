package application

import (
	"context"
	"fmt"
	"sync"

	"slotbridge/domain/entities"
	"slotbridge/domain/events"
	"slotbridge/domain/interfaces"
)

// Engine is the embedded-mode client: the game surface runs in the same
// process as the bridge and talks to it through this facade instead of a
// channel transport. Callbacks are delivered through the shared event bus, so
// any number of listeners can observe the same session.
type Engine struct {
	bridge    *Bridge
	bus       interfaces.EventSubscriber
	scheduler *AutoSpinScheduler

	mu          sync.Mutex
	initialized bool
	lastStake   entities.Stake
	lastMode    entities.WagerMode

	unsubscribe []func()
}

// NewEngine creates an engine bound to a bridge and its event bus
func NewEngine(bridge *Bridge, bus interfaces.EventSubscriber) *Engine {
	e := &Engine{
		bridge:   bridge,
		bus:      bus,
		lastMode: entities.ModePrimaryToken,
	}
	e.scheduler = NewAutoSpinScheduler(e.autoSubmit, func() int {
		return bridge.CreditBalance().BonusSpins
	})
	return e
}

// Initialize connects the session: the bridge fetches the confirmed balance
// and credit counters and publishes the opening events
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := e.bridge.Initialize(ctx); err != nil {
		return fmt.Errorf("engine initialization failed: %w", err)
	}

	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()

	// The scheduler holds its tick until the submitted spin resolves; bonus
	// spins awarded by an outcome keep playing without player input
	unsubOutcome := e.bus.Subscribe(events.EventTypeSpinOutcome, func(_ context.Context, event events.Event) error {
		outcome, ok := event.(events.SpinOutcomeEvent)
		if !ok {
			return nil
		}
		e.scheduler.SpinResolved()
		if outcome.Outcome != nil && outcome.Outcome.BonusSpinsAwarded > 0 {
			e.scheduler.Start(0)
		}
		return nil
	})
	unsubError := e.bus.Subscribe(events.EventTypeSpinError, func(_ context.Context, event events.Event) error {
		if _, ok := event.(events.SpinErrorEvent); ok {
			e.scheduler.SpinResolved()
		}
		return nil
	})

	e.mu.Lock()
	e.unsubscribe = append(e.unsubscribe, unsubOutcome, unsubError)
	e.mu.Unlock()
	return nil
}

// PlaceBet submits one spin at the given stake. Bonus spins are consumed
// before the wallet is touched.
func (e *Engine) PlaceBet(ctx context.Context, stake entities.Stake) error {
	mode := entities.ModePrimaryToken
	if e.bridge.CreditBalance().BonusSpins > 0 {
		mode = entities.ModeFreeCredit
	}
	return e.SpinVariant(ctx, stake, mode)
}

// SpinVariant submits one spin with an explicit wager mode. A manual spin
// exits auto-mode.
func (e *Engine) SpinVariant(ctx context.Context, stake entities.Stake, mode entities.WagerMode) error {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return fmt.Errorf("engine not initialized")
	}
	e.lastStake = stake
	e.lastMode = mode
	e.mu.Unlock()

	e.scheduler.Stop()

	req := entities.NewSpinRequest(stake, mode)
	return e.bridge.SubmitSpin(ctx, req)
}

// autoSubmit repeats the last stake for scheduled spins
func (e *Engine) autoSubmit() error {
	e.mu.Lock()
	stake := e.lastStake
	mode := e.lastMode
	initialized := e.initialized
	e.mu.Unlock()

	if !initialized {
		return fmt.Errorf("engine not initialized")
	}
	if stake.Total() == 0 {
		return fmt.Errorf("no previous stake to repeat")
	}
	if e.bridge.CreditBalance().BonusSpins > 0 {
		mode = entities.ModeFreeCredit
	}

	req := entities.NewSpinRequest(stake, mode)
	return e.bridge.SubmitSpin(context.Background(), req)
}

// GetBalance returns the current ledger view
func (e *Engine) GetBalance() (confirmed, reserved, available int64) {
	return e.bridge.BalanceSnapshot()
}

// GetCreditBalance returns the last authoritative credit counters
func (e *Engine) GetCreditBalance() entities.CreditBalance {
	return e.bridge.CreditBalance()
}

// GetState returns the authoritative queue snapshot
func (e *Engine) GetState() []*entities.QueueEntry {
	return e.bridge.Snapshot()
}

// StartAutoSpin begins an automatic run of count spins at the last stake
func (e *Engine) StartAutoSpin(count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return fmt.Errorf("engine not initialized")
	}
	if e.lastStake.Total() == 0 {
		return fmt.Errorf("no previous stake to repeat")
	}
	e.scheduler.Start(count)
	return nil
}

// StopAutoSpin exits auto-mode: the remaining player-requested spins and
// bonus continuation are cancelled. A spin already in flight still resolves,
// and a later bonus award re-engages the scheduler.
func (e *Engine) StopAutoSpin() {
	e.scheduler.Stop()
}

// AutoSpinsRemaining returns the player-requested spins left in the run
func (e *Engine) AutoSpinsRemaining() int {
	return e.scheduler.Remaining()
}

// OnSubmission registers a listener for submission acknowledgments
func (e *Engine) OnSubmission(handler func(events.SpinSubmittedEvent)) func() {
	return e.bus.Subscribe(events.EventTypeSpinSubmitted, func(_ context.Context, event events.Event) error {
		if ev, ok := event.(events.SpinSubmittedEvent); ok {
			handler(ev)
		}
		return nil
	})
}

// OnOutcome registers a listener for resolved spins
func (e *Engine) OnOutcome(handler func(events.SpinOutcomeEvent)) func() {
	return e.bus.Subscribe(events.EventTypeSpinOutcome, func(_ context.Context, event events.Event) error {
		if ev, ok := event.(events.SpinOutcomeEvent); ok {
			handler(ev)
		}
		return nil
	})
}

// OnError registers a listener for failed spins
func (e *Engine) OnError(handler func(events.SpinErrorEvent)) func() {
	return e.bus.Subscribe(events.EventTypeSpinError, func(_ context.Context, event events.Event) error {
		if ev, ok := event.(events.SpinErrorEvent); ok {
			handler(ev)
		}
		return nil
	})
}

// OnBalanceUpdate registers a listener for ledger refreshes
func (e *Engine) OnBalanceUpdate(handler func(events.BalanceUpdateEvent)) func() {
	return e.bus.Subscribe(events.EventTypeBalanceUpdate, func(_ context.Context, event events.Event) error {
		if ev, ok := event.(events.BalanceUpdateEvent); ok {
			handler(ev)
		}
		return nil
	})
}

// OnCreditBalance registers a listener for credit counter refreshes
func (e *Engine) OnCreditBalance(handler func(events.CreditBalanceEvent)) func() {
	return e.bus.Subscribe(events.EventTypeCreditBalance, func(_ context.Context, event events.Event) error {
		if ev, ok := event.(events.CreditBalanceEvent); ok {
			handler(ev)
		}
		return nil
	})
}

// Destroy tears the session down: the scheduler stops, listeners detach, and
// in-flight submissions are waited out
func (e *Engine) Destroy() {
	e.scheduler.Shutdown()

	e.mu.Lock()
	unsubs := e.unsubscribe
	e.unsubscribe = nil
	e.initialized = false
	e.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	e.bridge.Close()
}
