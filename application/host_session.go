package application

import (
	"context"
	"errors"
	"fmt"

	"slotbridge/config"
	"slotbridge/domain/entities"
	"slotbridge/domain/events"
	"slotbridge/domain/interfaces"
	"slotbridge/infrastructure"
	"slotbridge/infrastructure/metrics"
	"slotbridge/protocol"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// HostSession serves one sandboxed game surface over a channel. It translates
// inbound envelopes into bridge calls and forwards bridge events outbound.
// Envelopes from a foreign namespace are counted and dropped without reply.
type HostSession struct {
	bridge    *Bridge
	bus       interfaces.EventSubscriber
	channel   infrastructure.Channel
	validate  *validator.Validate
	namespace string
}

// NewHostSession creates a session for the given channel
func NewHostSession(bridge *Bridge, bus interfaces.EventSubscriber, channel infrastructure.Channel) *HostSession {
	return &HostSession{
		bridge:    bridge,
		bus:       bus,
		channel:   channel,
		validate:  validator.New(),
		namespace: config.Get().Namespace,
	}
}

// Run serves the session until the channel closes, the client sends EXIT, or
// the context is cancelled
func (s *HostSession) Run(ctx context.Context) error {
	unsubs := []func(){
		s.bus.Subscribe(events.EventTypeSpinSubmitted, s.forwardSubmitted),
		s.bus.Subscribe(events.EventTypeSpinOutcome, s.forwardOutcome),
		s.bus.Subscribe(events.EventTypeSpinError, s.forwardError),
		s.bus.Subscribe(events.EventTypeBalanceUpdate, s.forwardBalance),
		s.bus.Subscribe(events.EventTypeCreditBalance, s.forwardCredits),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-s.channel.Receive():
			if !ok {
				return nil
			}
			if env.Namespace != s.namespace {
				metrics.ChannelIgnored.Inc()
				continue
			}
			metrics.ChannelMessages.WithLabelValues("in", string(env.Type)).Inc()
			if exit := s.dispatch(ctx, env); exit {
				return nil
			}
		}
	}
}

// dispatch handles one inbound envelope; it reports whether the client asked
// to end the session
func (s *HostSession) dispatch(ctx context.Context, env protocol.Envelope) bool {
	switch env.Type {
	case protocol.TypeInit:
		s.sendConfig()
		s.sendBalance(protocol.TypeBalanceUpdate)
		s.sendCredits()
		s.sendQueue()
	case protocol.TypeGetConfig:
		s.sendConfig()
	case protocol.TypeGetBalance:
		s.sendBalance(protocol.TypeBalanceResponse)
	case protocol.TypeGetCreditBalance:
		s.sendCredits()
	case protocol.TypeGetSpinQueue:
		s.sendQueue()
	case protocol.TypeSpinRequest:
		s.handleSpinRequest(ctx, env)
	case protocol.TypeExit:
		log.Info("Client ended session")
		return true
	default:
		log.WithFields(log.Fields{"type": env.Type}).Warn("Unknown message type")
		s.sendError(fmt.Sprintf("unknown message type %s", env.Type), env.RequestID)
	}
	return false
}

func (s *HostSession) handleSpinRequest(ctx context.Context, env protocol.Envelope) {
	var payload protocol.SpinRequestPayload
	if err := env.Decode(&payload); err != nil {
		s.sendError(err.Error(), env.RequestID)
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		s.sendError(fmt.Sprintf("invalid spin request: %v", err), payload.ClientID)
		return
	}

	req := payload.ToSpinRequest()
	if err := s.bridge.SubmitSpin(ctx, req); err != nil {
		var insufficient *entities.InsufficientFundsError
		if errors.As(err, &insufficient) {
			s.sendError(insufficient.Error(), req.ClientID)
			return
		}
		s.sendError(err.Error(), req.ClientID)
	}
}

func (s *HostSession) forwardSubmitted(_ context.Context, event events.Event) error {
	ev, ok := event.(events.SpinSubmittedEvent)
	if !ok {
		return nil
	}
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeSpinSubmitted, protocol.SpinSubmittedPayload{ID: ev.EngineID})
	if err != nil {
		return err
	}
	env.RequestID = ev.ClientID
	return s.send(env)
}

func (s *HostSession) forwardOutcome(_ context.Context, event events.Event) error {
	ev, ok := event.(events.SpinOutcomeEvent)
	if !ok || ev.Outcome == nil {
		return nil
	}
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeOutcome, protocol.FromOutcome(ev.EngineID, ev.Outcome))
	if err != nil {
		return err
	}
	env.RequestID = ev.ClientID
	return s.send(env)
}

func (s *HostSession) forwardError(_ context.Context, event events.Event) error {
	ev, ok := event.(events.SpinErrorEvent)
	if !ok {
		return nil
	}
	s.sendError(ev.Message, ev.RequestID)
	return nil
}

func (s *HostSession) forwardBalance(_ context.Context, event events.Event) error {
	ev, ok := event.(events.BalanceUpdateEvent)
	if !ok {
		return nil
	}
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeBalanceUpdate, protocol.BalancePayload{
		Confirmed: ev.Confirmed,
		Reserved:  ev.Reserved,
		Available: ev.Available,
	})
	if err != nil {
		return err
	}
	return s.send(env)
}

func (s *HostSession) forwardCredits(_ context.Context, event events.Event) error {
	ev, ok := event.(events.CreditBalanceEvent)
	if !ok {
		return nil
	}
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeCreditBalance, protocol.CreditBalancePayload{
		Credits:    ev.Credits,
		BonusSpins: ev.BonusSpins,
	})
	if err != nil {
		return err
	}
	return s.send(env)
}

func (s *HostSession) sendConfig() {
	cfg := config.Get()
	modes := make([]string, len(entities.AllWagerModes))
	for i, mode := range entities.AllWagerModes {
		modes[i] = string(mode)
	}
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeConfig, protocol.ConfigPayload{
		MinStake:   cfg.MinStake,
		MaxStake:   cfg.MaxStake,
		RTP:        cfg.RTP,
		Modes:      modes,
		ContractID: cfg.ContractID,
	})
	if err == nil {
		_ = s.send(env)
	}
}

func (s *HostSession) sendBalance(msgType protocol.MessageType) {
	confirmed, reserved, available := s.bridge.BalanceSnapshot()
	env, err := protocol.NewEnvelope(s.namespace, msgType, protocol.BalancePayload{
		Confirmed: confirmed,
		Reserved:  reserved,
		Available: available,
	})
	if err == nil {
		_ = s.send(env)
	}
}

func (s *HostSession) sendCredits() {
	credits := s.bridge.CreditBalance()
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeCreditBalance, protocol.CreditBalancePayload{
		Credits:    credits.Credits,
		BonusSpins: credits.BonusSpins,
	})
	if err == nil {
		_ = s.send(env)
	}
}

func (s *HostSession) sendQueue() {
	snapshot := s.bridge.Snapshot()
	entries := make([]protocol.QueueEntryPayload, len(snapshot))
	for i, entry := range snapshot {
		entries[i] = protocol.FromQueueEntry(entry)
	}
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeSpinQueue, protocol.SpinQueuePayload{Entries: entries})
	if err == nil {
		_ = s.send(env)
	}
}

func (s *HostSession) sendError(message, requestID string) {
	env, err := protocol.NewEnvelope(s.namespace, protocol.TypeError, protocol.ErrorPayload{
		Message:   message,
		RequestID: requestID,
	})
	if err == nil {
		env.RequestID = requestID
		_ = s.send(env)
	}
}

func (s *HostSession) send(env protocol.Envelope) error {
	if err := s.channel.Send(env); err != nil {
		log.WithFields(log.Fields{"type": env.Type, "error": err}).Warn("Failed to send envelope")
		return err
	}
	metrics.ChannelMessages.WithLabelValues("out", string(env.Type)).Inc()
	return nil
}
