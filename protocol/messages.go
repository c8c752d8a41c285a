// Package protocol defines the typed message envelope spoken between a game
// surface and its host. The channel is shared, so every message carries a
// session namespace; foreign traffic is dropped silently by receivers.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType enumerates every message kind on the channel
type MessageType string

// Client to host
const (
	TypeInit             MessageType = "INIT"
	TypeGetBalance       MessageType = "GET_BALANCE"
	TypeGetConfig        MessageType = "GET_CONFIG"
	TypeGetCreditBalance MessageType = "GET_CREDIT_BALANCE"
	TypeGetSpinQueue     MessageType = "GET_SPIN_QUEUE"
	TypeSpinRequest      MessageType = "SPIN_REQUEST"
	TypeExit             MessageType = "EXIT"
)

// Host to client
const (
	TypeConfig          MessageType = "CONFIG"
	TypeBalanceUpdate   MessageType = "BALANCE_UPDATE"
	TypeBalanceResponse MessageType = "BALANCE_RESPONSE"
	TypeCreditBalance   MessageType = "CREDIT_BALANCE"
	TypeSpinSubmitted   MessageType = "SPIN_SUBMITTED"
	TypeOutcome         MessageType = "OUTCOME"
	TypeSpinQueue       MessageType = "SPIN_QUEUE"
	TypeError           MessageType = "ERROR"
)

// Envelope wraps every message on the channel. RequestID echoes a client or
// engine id for error correlation.
type Envelope struct {
	Namespace string          `json:"namespace"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewEnvelope builds an envelope with a JSON-encoded payload
func NewEnvelope(namespace string, msgType MessageType, payload any) (Envelope, error) {
	env := Envelope{Namespace: namespace, Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		env.Payload = data
	}
	return env, nil
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}
