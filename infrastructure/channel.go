package infrastructure

import (
	"errors"
	"sync"

	"slotbridge/protocol"
)

// ErrChannelClosed is returned by Send after the channel is closed
var ErrChannelClosed = errors.New("channel closed")

// Channel is one end of a point-to-point message channel. The transport makes
// no delivery or ordering promise; the snapshot protocol is the recovery path.
type Channel interface {
	Send(env protocol.Envelope) error
	Receive() <-chan protocol.Envelope
	Close() error
}

const pipeBuffer = 64

// pipeEnd is one side of an in-process channel pair
type pipeEnd struct {
	out chan<- protocol.Envelope
	in  <-chan protocol.Envelope

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewPipe creates a connected in-process channel pair, used for embedded mode
// and tests. Messages sent on one end arrive on the other.
func NewPipe() (Channel, Channel) {
	ab := make(chan protocol.Envelope, pipeBuffer)
	ba := make(chan protocol.Envelope, pipeBuffer)
	done := make(chan struct{})
	a := &pipeEnd{out: ab, in: ba, done: done}
	b := &pipeEnd{out: ba, in: ab, done: done}
	return a, b
}

func (p *pipeEnd) Send(env protocol.Envelope) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrChannelClosed
	}
	select {
	case p.out <- env:
		return nil
	case <-p.done:
		return ErrChannelClosed
	}
}

func (p *pipeEnd) Receive() <-chan protocol.Envelope {
	return p.in
}

func (p *pipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	return nil
}
