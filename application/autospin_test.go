package application

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"slotbridge/config"

	"github.com/stretchr/testify/assert"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func setupSchedulerConfig(t *testing.T) {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)
}

func TestAutoSpinScheduler_RunsRequestedCount(t *testing.T) {
	setupSchedulerConfig(t)

	var submits atomic.Int32
	var s *AutoSpinScheduler
	s = NewAutoSpinScheduler(func() error {
		submits.Add(1)
		go s.SpinResolved()
		return nil
	}, func() int { return 0 })
	t.Cleanup(s.Shutdown)

	s.Start(3)
	waitFor(t, func() bool { return submits.Load() == 3 }, "expected 3 auto spins")

	// The run is exhausted; no further spins fire
	time.Sleep(5 * config.Get().AutoSpinInterval)
	assert.Equal(t, int32(3), submits.Load())
	assert.Equal(t, 0, s.Remaining())
}

func TestAutoSpinScheduler_StopCancelsRemainingSpins(t *testing.T) {
	setupSchedulerConfig(t)

	var submits atomic.Int32
	var s *AutoSpinScheduler
	s = NewAutoSpinScheduler(func() error {
		submits.Add(1)
		go s.SpinResolved()
		return nil
	}, func() int { return 0 })
	t.Cleanup(s.Shutdown)

	s.Start(1000)
	waitFor(t, func() bool { return submits.Load() >= 1 }, "expected at least one auto spin")
	s.Stop()

	settled := submits.Load()
	time.Sleep(5 * config.Get().AutoSpinInterval)
	// At most one spin was already in flight when Stop landed
	assert.LessOrEqual(t, submits.Load(), settled+1)
	assert.Equal(t, 0, s.Remaining())
}

func TestAutoSpinScheduler_BonusSpinsWaitForResolution(t *testing.T) {
	setupSchedulerConfig(t)
	interval := config.Get().AutoSpinInterval

	var bonus atomic.Int32
	bonus.Store(5)
	var submits, unresolved atomic.Int32
	var overlapped atomic.Bool

	var s *AutoSpinScheduler
	s = NewAutoSpinScheduler(func() error {
		submits.Add(1)
		if unresolved.Add(1) > 1 {
			overlapped.Store(true)
		}
		// The authoritative counter only moves once the spin resolves,
		// two ticks after the submission was accepted
		go func() {
			time.Sleep(2 * interval)
			bonus.Add(-1)
			unresolved.Add(-1)
			s.SpinResolved()
		}()
		return nil
	}, func() int { return int(bonus.Load()) })
	t.Cleanup(s.Shutdown)

	// No player-requested spins: the authoritative counter alone drives play
	s.Start(0)
	waitFor(t, func() bool { return bonus.Load() == 0 }, "expected five bonus spins to resolve")

	time.Sleep(5 * interval)
	assert.Equal(t, int32(5), submits.Load())
	assert.False(t, overlapped.Load(), "a tick overlapped an unresolved spin")
}

func TestAutoSpinScheduler_HoldsTickUntilResolution(t *testing.T) {
	setupSchedulerConfig(t)

	// Submission is accepted immediately but the spin never resolves, so the
	// counter keeps reporting 5
	var submits atomic.Int32
	s := NewAutoSpinScheduler(func() error {
		submits.Add(1)
		return nil
	}, func() int { return 5 })
	t.Cleanup(s.Shutdown)

	s.Start(0)
	waitFor(t, func() bool { return submits.Load() == 1 }, "expected the first spin to submit")

	time.Sleep(10 * config.Get().AutoSpinInterval)
	assert.Equal(t, int32(1), submits.Load())
}

func TestAutoSpinScheduler_StopEndsBonusContinuation(t *testing.T) {
	setupSchedulerConfig(t)

	var submits atomic.Int32
	var s *AutoSpinScheduler
	s = NewAutoSpinScheduler(func() error {
		submits.Add(1)
		go s.SpinResolved()
		return nil
	}, func() int { return 5 })
	t.Cleanup(s.Shutdown)

	s.Start(0)
	waitFor(t, func() bool { return submits.Load() >= 1 }, "expected at least one bonus spin")
	s.Stop()

	settled := submits.Load()
	time.Sleep(5 * config.Get().AutoSpinInterval)
	assert.LessOrEqual(t, submits.Load(), settled+1)
	assert.Equal(t, 0, s.Remaining())
}

func TestAutoSpinScheduler_RejectionEndsRun(t *testing.T) {
	setupSchedulerConfig(t)

	var submits atomic.Int32
	s := NewAutoSpinScheduler(func() error {
		submits.Add(1)
		return fmt.Errorf("insufficient funds")
	}, func() int { return 0 })
	t.Cleanup(s.Shutdown)

	s.Start(10)
	waitFor(t, func() bool { return submits.Load() == 1 }, "expected one attempted spin")

	time.Sleep(5 * config.Get().AutoSpinInterval)
	assert.Equal(t, int32(1), submits.Load())
	assert.Equal(t, 0, s.Remaining())
}

func TestAutoSpinScheduler_StartWhileRunningTopsUp(t *testing.T) {
	setupSchedulerConfig(t)

	var started atomic.Int32
	s := NewAutoSpinScheduler(func() error {
		started.Add(1)
		return nil
	}, func() int { return 0 })
	t.Cleanup(s.Shutdown)

	s.Start(2)
	waitFor(t, func() bool { return started.Load() == 1 }, "expected the first spin to start")

	// The first spin has not resolved; the top-up lands without a second loop
	s.Start(10)
	assert.Equal(t, 10, s.Remaining())
}
