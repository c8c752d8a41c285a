package application

import (
	"sync"
	"time"

	"slotbridge/config"

	log "github.com/sirupsen/logrus"
)

// AutoSpinScheduler drives automatic spin continuation. It serves two cases:
// a player-requested run of N spins, and bonus spins awarded by the machine,
// which continue for as long as the authoritative counter reports any. The
// authoritative counter always wins: a local count never keeps the scheduler
// spinning once the host reports zero bonus spins and the run is exhausted.
//
// Submission accepts a spin long before it resolves, and the bonus counter
// only moves on resolution, so the scheduler holds its next tick until
// SpinResolved reports that the submitted spin reached a terminal state.
// Without that hold, every tick would re-read the same stale counter and
// queue another spin.
type AutoSpinScheduler struct {
	submit     func() error
	bonusSpins func() int

	mu        sync.Mutex
	remaining int
	engaged   bool
	inFlight  bool
	running   bool
	stopChan  chan struct{}
}

// NewAutoSpinScheduler creates a scheduler. submit places one spin and
// returns once the submission was accepted or rejected; bonusSpins reports
// the authoritative bonus-spin counter.
func NewAutoSpinScheduler(submit func() error, bonusSpins func() int) *AutoSpinScheduler {
	return &AutoSpinScheduler{
		submit:     submit,
		bonusSpins: bonusSpins,
	}
}

// Start engages auto-mode for a run of count spins. Calling Start while a run
// is active tops up the remaining count without starting a second loop.
// Start(0) engages auto-mode for bonus-spin continuation alone.
func (s *AutoSpinScheduler) Start(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count > s.remaining {
		s.remaining = count
	}
	s.engaged = true
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	log.WithFields(log.Fields{"count": count}).Info("Auto-spin started")
	go s.loop(s.stopChan)
}

// Stop exits auto-mode: the remaining player-requested spins are cancelled
// and bonus-spin continuation stops with them. A spin already in flight still
// resolves; a later bonus award re-engages the scheduler through Start.
func (s *AutoSpinScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = 0
	s.engaged = false
}

// SpinResolved reports that the last submitted spin reached a terminal state,
// releasing the scheduler for its next tick
func (s *AutoSpinScheduler) SpinResolved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// Shutdown stops the loop entirely
func (s *AutoSpinScheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = 0
	s.engaged = false
	if s.running {
		close(s.stopChan)
		s.running = false
	}
}

// Remaining returns the player-requested spins left in the current run
func (s *AutoSpinScheduler) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *AutoSpinScheduler) loop(stop chan struct{}) {
	interval := config.Get().AutoSpinInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick() {
				s.mu.Lock()
				if s.running && s.stopChan == stop {
					s.running = false
				}
				s.mu.Unlock()
				log.Info("Auto-spin finished")
				return
			}
		}
	}
}

// tick places at most one spin. While a previously submitted spin has not
// resolved the tick is skipped, so at most one scheduled spin is unresolved
// at any time. Reports whether the loop should continue.
func (s *AutoSpinScheduler) tick() bool {
	s.mu.Lock()
	if !s.engaged {
		s.mu.Unlock()
		return false
	}
	if s.inFlight {
		s.mu.Unlock()
		return true
	}

	bonus := s.bonusSpins()
	if s.remaining <= 0 && bonus <= 0 {
		s.engaged = false
		s.mu.Unlock()
		return false
	}
	if bonus <= 0 {
		s.remaining--
	}
	s.inFlight = true
	s.mu.Unlock()

	if err := s.submit(); err != nil {
		s.mu.Lock()
		s.inFlight = false
		s.remaining = 0
		s.engaged = false
		s.mu.Unlock()
		log.WithFields(log.Fields{"error": err}).Warn("Auto-spin submission rejected")
		return false
	}
	return true
}
