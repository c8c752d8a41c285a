package application

import (
	"context"
	"sync"
	"time"

	"slotbridge/config"
	"slotbridge/domain/entities"
	"slotbridge/infrastructure"
	"slotbridge/infrastructure/metrics"
	"slotbridge/protocol"

	log "github.com/sirupsen/logrus"
)

// ChannelClient is the sandboxed-mode game client. It keeps an optimistic
// local queue through its reconciler, submits spin requests over the channel,
// and converges on the host's queue through incremental messages and periodic
// snapshots.
type ChannelClient struct {
	channel    infrastructure.Channel
	reconciler *QueueReconciler
	namespace  string

	mu       sync.Mutex
	balance  protocol.BalancePayload
	credits  protocol.CreditBalancePayload
	machine  protocol.ConfigPayload
	hasConf  bool
	onChange func()
}

// NewChannelClient creates a client for the given channel
func NewChannelClient(channel infrastructure.Channel) *ChannelClient {
	return &ChannelClient{
		channel:    channel,
		reconciler: NewQueueReconciler(),
		namespace:  config.Get().Namespace,
	}
}

// OnChange registers a single callback invoked after every state change; the
// game surface uses it to re-render
func (c *ChannelClient) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Run sends INIT and serves the session until the channel closes or the
// context is cancelled. Queue snapshots are requested periodically as drift
// recovery; stale entries expire and resolved ones fade out between polls.
func (c *ChannelClient) Run(ctx context.Context) error {
	if err := c.sendType(protocol.TypeInit, nil, ""); err != nil {
		return err
	}

	interval := config.Get().SnapshotInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.reconciler.ExpireStale()
			c.reconciler.Prune()
			if err := c.sendType(protocol.TypeGetSpinQueue, nil, ""); err != nil {
				return err
			}
			c.notify()
		case env, ok := <-c.channel.Receive():
			if !ok {
				return nil
			}
			if env.Namespace != c.namespace {
				metrics.ChannelIgnored.Inc()
				continue
			}
			metrics.ChannelMessages.WithLabelValues("in", string(env.Type)).Inc()
			c.handle(env)
			c.notify()
		}
	}
}

// RequestSpin optimistically queues the spin locally and sends it to the
// host. The local entry stays Pending until the host acknowledges it.
func (c *ChannelClient) RequestSpin(stake entities.Stake, mode entities.WagerMode) (string, error) {
	req := entities.NewSpinRequest(stake, mode)
	c.reconciler.Enqueue(req)

	payload := protocol.SpinRequestPayload{
		ClientID: req.ClientID,
		Stake:    protocol.FromStake(stake),
		Mode:     string(mode),
	}
	if err := c.sendType(protocol.TypeSpinRequest, payload, req.ClientID); err != nil {
		c.reconciler.ApplyError(req.ClientID, err.Error())
		return req.ClientID, err
	}
	c.notify()
	return req.ClientID, nil
}

// Queue returns the local queue view in display order
func (c *ChannelClient) Queue() []*entities.QueueEntry {
	return c.reconciler.Entries()
}

// IsFading reports whether an entry is in its fade-out grace period
func (c *ChannelClient) IsFading(clientID string) bool {
	return c.reconciler.IsFading(clientID)
}

// Balance returns the last balance reported by the host
func (c *ChannelClient) Balance() protocol.BalancePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Credits returns the last credit counters reported by the host
func (c *ChannelClient) Credits() protocol.CreditBalancePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credits
}

// MachineConfig returns the machine limits, and whether they arrived yet
func (c *ChannelClient) MachineConfig() (protocol.ConfigPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine, c.hasConf
}

// Exit tells the host the session is over
func (c *ChannelClient) Exit() error {
	return c.sendType(protocol.TypeExit, nil, "")
}

func (c *ChannelClient) handle(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeConfig:
		var payload protocol.ConfigPayload
		if err := env.Decode(&payload); err == nil {
			c.mu.Lock()
			c.machine = payload
			c.hasConf = true
			c.mu.Unlock()
		}
	case protocol.TypeBalanceUpdate, protocol.TypeBalanceResponse:
		var payload protocol.BalancePayload
		if err := env.Decode(&payload); err == nil {
			c.mu.Lock()
			c.balance = payload
			c.mu.Unlock()
		}
	case protocol.TypeCreditBalance:
		var payload protocol.CreditBalancePayload
		if err := env.Decode(&payload); err == nil {
			c.mu.Lock()
			c.credits = payload
			c.mu.Unlock()
		}
	case protocol.TypeSpinSubmitted:
		var payload protocol.SpinSubmittedPayload
		if err := env.Decode(&payload); err == nil {
			c.reconciler.ApplySubmission(payload.ID, env.RequestID)
		}
	case protocol.TypeOutcome:
		var payload protocol.OutcomePayload
		if err := env.Decode(&payload); err == nil {
			c.reconciler.ApplyOutcome(payload.ID, env.RequestID, payload.ToOutcome())
		}
	case protocol.TypeError:
		var payload protocol.ErrorPayload
		if err := env.Decode(&payload); err == nil {
			requestID := payload.RequestID
			if requestID == "" {
				requestID = env.RequestID
			}
			if requestID == "" {
				log.WithFields(log.Fields{"message": payload.Message}).Warn("Host reported a session error")
				return
			}
			c.reconciler.ApplyError(requestID, payload.Message)
		}
	case protocol.TypeSpinQueue:
		var payload protocol.SpinQueuePayload
		if err := env.Decode(&payload); err == nil {
			snapshot := make([]*entities.QueueEntry, len(payload.Entries))
			for i, entry := range payload.Entries {
				snapshot[i] = entry.ToQueueEntry()
			}
			c.reconciler.ApplySnapshot(snapshot)
		}
	default:
		log.WithFields(log.Fields{"type": env.Type}).Debug("Ignoring unexpected message type")
	}
}

func (c *ChannelClient) sendType(msgType protocol.MessageType, payload any, requestID string) error {
	env, err := protocol.NewEnvelope(c.namespace, msgType, payload)
	if err != nil {
		return err
	}
	env.RequestID = requestID
	if err := c.channel.Send(env); err != nil {
		return err
	}
	metrics.ChannelMessages.WithLabelValues("out", string(msgType)).Inc()
	return nil
}

func (c *ChannelClient) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
