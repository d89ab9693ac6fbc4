package platform

import (
	"context"
	"sync"

	"github.com/vadiminshakov/booktrade/core/dto"
)

const defaultMailboxSize = 1024

// Mailbox queues the envelopes addressed to one actor. Several goroutines of
// the owning actor may consume it at once, each through its own template.
type Mailbox struct {
	capacity int

	mu     sync.Mutex
	queue  []dto.Envelope
	signal chan struct{} // closed and replaced on every put
	closed chan struct{}
}

func newMailbox(capacity int) *Mailbox {
	return &Mailbox{
		capacity: capacity,
		signal:   make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

func (m *Mailbox) put(env dto.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
		return ErrMailboxClosed
	default:
	}

	if len(m.queue) >= m.capacity {
		return ErrMailboxFull
	}

	m.queue = append(m.queue, env)
	close(m.signal)
	m.signal = make(chan struct{})

	return nil
}

// Receive removes and returns the oldest envelope accepted by tmpl. When
// nothing matches it parks until a new envelope arrives, the context ends or
// the mailbox is closed. Envelopes rejected by tmpl stay queued in order.
func (m *Mailbox) Receive(ctx context.Context, tmpl dto.Template) (dto.Envelope, error) {
	for {
		m.mu.Lock()
		for i, env := range m.queue {
			if tmpl(env) {
				m.queue = append(m.queue[:i], m.queue[i+1:]...)
				m.mu.Unlock()
				return env, nil
			}
		}
		wake := m.signal
		m.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return dto.Envelope{}, ctx.Err()
		case <-m.closed:
			return dto.Envelope{}, ErrMailboxClosed
		}
	}
}

// Purge drops every queued envelope accepted by tmpl and reports how many
// were dropped.
func (m *Mailbox) Purge(tmpl dto.Template) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.queue[:0]
	for _, env := range m.queue {
		if !tmpl(env) {
			kept = append(kept, env)
		}
	}
	dropped := len(m.queue) - len(kept)
	for i := len(kept); i < len(m.queue); i++ {
		m.queue[i] = dto.Envelope{}
	}
	m.queue = kept

	return dropped
}

// Len returns the number of queued envelopes.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}
