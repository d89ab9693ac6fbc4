// Package platform hosts trading actors: it owns their mailboxes and routes
// envelopes between them, locally or through a remote transport.
package platform

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/dto"
	"go.uber.org/multierr"
)

var (
	ErrUnknownActor   = errors.New("unknown actor")
	ErrDuplicateActor = errors.New("actor already registered")
	ErrMailboxFull    = errors.New("mailbox full")
	ErrMailboxClosed  = errors.New("mailbox closed")
)

// Transport carries envelopes to actors hosted by other nodes.
type Transport interface {
	Deliver(ctx context.Context, to dto.AID, env dto.Envelope) error
}

type Platform struct {
	mu          sync.RWMutex
	addr        string
	mailboxes   map[dto.AID]*Mailbox
	remote      Transport
	mailboxSize int
}

// Option - functional option for platform configuration.
type Option func(*Platform)

// WithAddress sets the node address local actors are named after.
func WithAddress(addr string) Option {
	return func(p *Platform) {
		p.addr = addr
	}
}

// WithTransport routes envelopes for non-local actors through t.
func WithTransport(t Transport) Option {
	return func(p *Platform) {
		p.remote = t
	}
}

// WithMailboxSize bounds the number of envelopes queued per actor.
func WithMailboxSize(size int) Option {
	return func(p *Platform) {
		if size > 0 {
			p.mailboxSize = size
		}
	}
}

func New(opts ...Option) *Platform {
	p := &Platform{
		mailboxes:   make(map[dto.AID]*Mailbox),
		mailboxSize: defaultMailboxSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// AID names a local actor.
func (p *Platform) AID(name string) dto.AID {
	return dto.NewAID(name, p.addr)
}

// Register creates the mailbox of a new actor. Identities must be unique.
func (p *Platform) Register(id dto.AID) (*Mailbox, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.mailboxes[id]; exists {
		return nil, errors.Wrapf(ErrDuplicateActor, "register %s", id)
	}

	mb := newMailbox(p.mailboxSize)
	p.mailboxes[id] = mb
	log.Debugf("actor %s registered", id)

	return mb, nil
}

// Deregister closes the mailbox of id and forgets it.
func (p *Platform) Deregister(id dto.AID) {
	p.mu.Lock()
	mb, ok := p.mailboxes[id]
	delete(p.mailboxes, id)
	p.mu.Unlock()

	if ok {
		mb.close()
		log.Debugf("actor %s deregistered", id)
	}
}

// SendError reports the receivers an envelope could not be delivered to.
// Every other receiver got the envelope.
type SendError struct {
	Failed map[dto.AID]error
}

func (e *SendError) Error() string {
	return multierr.Combine(e.list()...).Error()
}

func (e *SendError) Unwrap() []error { return e.list() }

func (e *SendError) list() []error {
	ids := make([]dto.AID, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, e.Failed[id])
	}
	return errs
}

// Send delivers env to each of its receivers. Failures for one receiver do
// not prevent delivery to the others; they are reported in a *SendError.
func (p *Platform) Send(ctx context.Context, env dto.Envelope) error {
	if len(env.Receivers) == 0 {
		return errors.Errorf("%s from %s has no receivers", env.Performative, env.Sender)
	}

	var failed map[dto.AID]error
	for _, to := range env.Receivers {
		if err := p.route(ctx, to, env); err != nil {
			if failed == nil {
				failed = make(map[dto.AID]error)
			}
			failed[to] = err
		}
	}
	if failed != nil {
		return &SendError{Failed: failed}
	}

	return nil
}

// Deliver puts env into the mailbox of a local actor.
func (p *Platform) Deliver(_ context.Context, to dto.AID, env dto.Envelope) error {
	p.mu.RLock()
	mb, ok := p.mailboxes[to]
	p.mu.RUnlock()

	if !ok {
		return errors.Wrapf(ErrUnknownActor, "deliver to %s", to)
	}

	return errors.Wrapf(mb.put(env), "deliver to %s", to)
}

func (p *Platform) route(ctx context.Context, to dto.AID, env dto.Envelope) error {
	p.mu.RLock()
	_, local := p.mailboxes[to]
	p.mu.RUnlock()

	if local || p.remote == nil || to.Host() == "" || to.Host() == p.addr {
		return p.Deliver(ctx, to, env)
	}

	if err := p.remote.Deliver(ctx, to, env); err != nil {
		return errors.Wrapf(err, "forward %s to %s", env.Performative, to)
	}

	return nil
}

// Shutdown closes every mailbox, releasing goroutines blocked in Receive.
func (p *Platform) Shutdown() {
	p.mu.Lock()
	mailboxes := p.mailboxes
	p.mailboxes = make(map[dto.AID]*Mailbox)
	p.mu.Unlock()

	for _, mb := range mailboxes {
		mb.close()
	}
	log.Infof("platform %s stopped, %d mailboxes closed", p.addr, len(mailboxes))
}
