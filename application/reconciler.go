package application

import (
	"sync"
	"time"

	"slotbridge/config"
	"slotbridge/domain/entities"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// seenCacheSize bounds the set of engine ids the reconciler remembers after
// their entries were pruned, so late re-deliveries stay silent.
const seenCacheSize = 256

// QueueReconciler maintains the client's local view of the spin queue. The
// host queue is authoritative; the reconciler applies incremental
// acknowledgments and outcomes between snapshots and converges the local list
// onto snapshots when they arrive.
type QueueReconciler struct {
	mu      sync.Mutex
	entries []*entities.QueueEntry
	fading  map[string]time.Time
	seen    *lru.Cache[string, struct{}]
	now     func() time.Time
}

// NewQueueReconciler creates an empty reconciler
func NewQueueReconciler() *QueueReconciler {
	seen, _ := lru.New[string, struct{}](seenCacheSize)
	return &QueueReconciler{
		fading: make(map[string]time.Time),
		seen:   seen,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue adds an optimistic Pending entry for a request the client just sent
func (r *QueueReconciler) Enqueue(req entities.SpinRequest) *entities.QueueEntry {
	entry := entities.NewQueueEntry(req)

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	return entry.Clone()
}

// ApplySubmission records a submission acknowledgment. requestID echoes the
// client id of the acknowledged request when the host provides it; matching
// prefers that id and falls back to the oldest Pending entry without an
// engine id, mirroring the host's own FIFO assignment.
func (r *QueueReconciler) ApplySubmission(engineID, requestID string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var matched *entities.QueueEntry
	if requestID != "" {
		for _, entry := range r.entries {
			if entry.ClientID == requestID {
				matched = entry
				break
			}
		}
	}
	if matched == nil {
		for _, entry := range r.entries {
			if entry.Status == entities.StatusPending && entry.EngineID == "" {
				matched = entry
				break
			}
		}
	}
	if matched == nil {
		log.WithFields(log.Fields{"engineId": engineID}).Warn("Submission acknowledgment matched no local entry")
		return
	}
	if matched.Status.Terminal() || matched.EngineID == engineID {
		return
	}
	if err := matched.MarkSubmitted(engineID, now); err != nil {
		log.WithFields(log.Fields{"clientId": matched.ClientID, "engineId": engineID, "error": err}).Warn("Could not apply submission acknowledgment")
	}
}

// ApplyOutcome resolves the entry matching the engine id, falling back to the
// client id for acknowledgments that were lost in transit. Re-delivery for an
// already-terminal entry is a no-op. The wire outcome is not trusted: a
// jackpot claim the grid does not corroborate is downgraded before storing.
func (r *QueueReconciler) ApplyOutcome(engineID, clientID string, outcome *entities.Outcome) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.findLocked(engineID, clientID)
	if entry == nil {
		if _, pruned := r.seen.Get(engineID); !pruned {
			log.WithFields(log.Fields{"engineId": engineID, "clientId": clientID}).Warn("Outcome matched no local entry")
		}
		return
	}
	if entry.Status.Terminal() {
		return
	}
	if entry.EngineID == "" && engineID != "" {
		// Lost acknowledgment: adopt the engine id before resolving
		if err := entry.MarkSubmitted(engineID, now); err != nil {
			log.WithFields(log.Fields{"clientId": entry.ClientID, "error": err}).Warn("Could not adopt engine id")
		}
	}
	if outcome != nil && outcome.SanitizeJackpot() {
		log.WithFields(log.Fields{"clientId": entry.ClientID, "engineId": engineID}).Warn("Downgraded jackpot claim the grid does not corroborate")
	}
	if err := entry.MarkCompleted(outcome, now); err != nil {
		log.WithFields(log.Fields{"clientId": entry.ClientID, "error": err}).Warn("Could not apply outcome")
		return
	}
	if engineID != "" {
		r.seen.Add(engineID, struct{}{})
	}
}

// ApplyError fails the entry matching the correlation id (engine id when
// assigned, otherwise client id)
func (r *QueueReconciler) ApplyError(requestID, message string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.findLocked(requestID, requestID)
	if entry == nil {
		if _, pruned := r.seen.Get(requestID); !pruned {
			log.WithFields(log.Fields{"requestId": requestID}).Warn("Error matched no local entry")
		}
		return
	}
	if entry.Status.Terminal() {
		return
	}
	if err := entry.MarkFailed(message, now); err != nil {
		log.WithFields(log.Fields{"clientId": entry.ClientID, "error": err}).Warn("Could not apply error")
		return
	}
	if entry.EngineID != "" {
		r.seen.Add(entry.EngineID, struct{}{})
	}
}

// ApplySnapshot replaces the local queue with the authoritative one. Local
// non-terminal entries the snapshot does not know about yet are kept: their
// request may still be in flight toward the host.
func (r *QueueReconciler) ApplySnapshot(snapshot []*entities.QueueEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known := make(map[string]struct{}, len(snapshot))
	next := make([]*entities.QueueEntry, 0, len(snapshot))
	for _, entry := range snapshot {
		known[entry.ClientID] = struct{}{}
		clone := entry.Clone()
		if clone.Outcome != nil && clone.Outcome.SanitizeJackpot() {
			log.WithFields(log.Fields{"clientId": clone.ClientID, "engineId": clone.EngineID}).Warn("Downgraded jackpot claim the grid does not corroborate")
		}
		next = append(next, clone)
		if entry.Status.Terminal() && entry.EngineID != "" {
			r.seen.Add(entry.EngineID, struct{}{})
		}
	}
	for _, entry := range r.entries {
		if _, ok := known[entry.ClientID]; ok {
			continue
		}
		if !entry.Status.Terminal() {
			next = append(next, entry)
		}
	}
	r.entries = next

	for clientID := range r.fading {
		if _, ok := known[clientID]; !ok {
			delete(r.fading, clientID)
		}
	}
}

// ExpireStale marks non-terminal entries older than the expiry timeout as
// Expired. This is a display state: the host never expires entries, and a
// later outcome for the same entry is ignored as any terminal re-delivery is.
func (r *QueueReconciler) ExpireStale() {
	now := r.now()
	timeout := config.Get().ExpiryTimeout

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.Status.Terminal() {
			continue
		}
		if now.Sub(entry.CreatedAt) < timeout {
			continue
		}
		if err := entry.MarkExpired(now); err != nil {
			continue
		}
		log.WithFields(log.Fields{"clientId": entry.ClientID}).Warn("Spin expired without a resolution")
		if entry.EngineID != "" {
			r.seen.Add(entry.EngineID, struct{}{})
		}
	}
}

// Prune keeps the visible queue near the display limit. Terminal entries past
// the limit first fade, then drop once the fade delay elapses. Non-terminal
// entries are never pruned.
func (r *QueueReconciler) Prune() {
	now := r.now()
	cfg := config.Get()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) > cfg.QueueLimit {
		excess := len(r.entries) - cfg.QueueLimit
		for _, entry := range r.entries {
			if excess == 0 {
				break
			}
			if !entry.Status.Terminal() {
				continue
			}
			if _, fading := r.fading[entry.ClientID]; !fading {
				r.fading[entry.ClientID] = now
			}
			excess--
		}
	}

	kept := r.entries[:0]
	for _, entry := range r.entries {
		fadedAt, fading := r.fading[entry.ClientID]
		if fading && now.Sub(fadedAt) >= cfg.PruneDelay {
			delete(r.fading, entry.ClientID)
			if entry.EngineID != "" {
				r.seen.Add(entry.EngineID, struct{}{})
			}
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
}

// Entries returns a copy of the local queue in display order
func (r *QueueReconciler) Entries() []*entities.QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entities.QueueEntry, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.Clone()
	}
	return out
}

// IsFading reports whether the entry is in its fade-out grace period
func (r *QueueReconciler) IsFading(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.fading[clientID]
	return ok
}

// PendingCount returns how many entries are not yet terminal
func (r *QueueReconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, entry := range r.entries {
		if !entry.Status.Terminal() {
			count++
		}
	}
	return count
}

func (r *QueueReconciler) findLocked(engineID, clientID string) *entities.QueueEntry {
	if engineID != "" {
		for _, entry := range r.entries {
			if entry.EngineID == engineID {
				return entry
			}
		}
	}
	if clientID != "" {
		for _, entry := range r.entries {
			if entry.ClientID == clientID {
				return entry
			}
		}
	}
	return nil
}
