// Package buyer implements the purchasing side of the book-trade protocol:
// a negotiation session per attempt and the actor that retries sessions on
// a fixed period until one succeeds.
package buyer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/correlation"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/io/metrics"
)

const defaultInterval = 60 * time.Second

var ErrNoTitle = errors.New("no target book title specified")

// Directory finds the actors advertising a capability.
//
//go:generate mockgen -destination=../../mocks/mock_directory.go -package=mocks . Directory
type Directory interface {
	Search(ctx context.Context, capability string) ([]dto.AID, error)
}

type Buyer struct {
	id    dto.AID
	title string
	dir   Directory
	inbox Inbox
	out   Sender
	ids   *correlation.Generator

	interval     time.Duration
	replyTimeout time.Duration
	metrics      *metrics.Metrics

	mu      sync.RWMutex
	sellers []dto.AID
}

// Option - functional option for buyer configuration.
type Option func(*Buyer)

// WithSellers sets the seller set used until the first directory refresh.
func WithSellers(sellers ...dto.AID) Option {
	return func(b *Buyer) {
		b.sellers = append([]dto.AID(nil), sellers...)
	}
}

// WithInterval sets the period between purchase attempts.
func WithInterval(d time.Duration) Option {
	return func(b *Buyer) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithReplyTimeout bounds every wait for seller replies. See WithTimeout.
func WithReplyTimeout(d time.Duration) Option {
	return func(b *Buyer) {
		b.replyTimeout = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Buyer) {
		b.metrics = m
	}
}

func New(id dto.AID, title string, dir Directory, inbox Inbox, out Sender, opts ...Option) (*Buyer, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.Wrapf(ErrNoTitle, "buyer %s", id)
	}

	b := &Buyer{
		id:       id,
		title:    title,
		dir:      dir,
		inbox:    inbox,
		out:      out,
		ids:      correlation.New(),
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

func (b *Buyer) ID() dto.AID { return b.id }

func (b *Buyer) Title() string { return b.title }

// Sellers returns the seller set the next session will address.
func (b *Buyer) Sellers() []dto.AID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]dto.AID(nil), b.sellers...)
}

// RefreshSellers replaces the seller set with the directory's current list
// of book sellers. On failure the previous set is kept.
func (b *Buyer) RefreshSellers(ctx context.Context) error {
	if b.dir == nil {
		return nil
	}

	found, err := b.dir.Search(ctx, dto.CapabilityBookSelling)
	if err != nil {
		log.Warnf("%s: directory search failed, keeping %d known sellers: %v", b.id, len(b.Sellers()), err)
		return errors.Wrap(err, "search sellers")
	}

	b.mu.Lock()
	b.sellers = append([]dto.AID(nil), found...)
	b.mu.Unlock()

	log.Debugf("%s: found %d sellers: %v", b.id, len(found), found)

	return nil
}

// Attempt refreshes the seller set and runs one negotiation session over a
// snapshot of it. Envelopes left in the mailbox by earlier sessions are
// dropped first.
func (b *Buyer) Attempt(ctx context.Context) (*Outcome, error) {
	_ = b.RefreshSellers(ctx)

	// sessions run one at a time, so anything queued now is a stale reply
	if n := b.inbox.Purge(dto.MatchAll()); n > 0 {
		log.Debugf("%s: dropped %d stale envelopes", b.id, n)
	}

	session := NewSession(b.id, b.title, b.Sellers(), b.inbox, b.out,
		WithTimeout(b.replyTimeout),
		WithSessionMetrics(b.metrics),
		WithGenerator(b.ids),
	)

	return session.Run(ctx)
}

// Run starts a purchase attempt every interval, the first one after a full
// period, and returns once an attempt succeeds or ctx is done.
func (b *Buyer) Run(ctx context.Context) error {
	log.Infof("buyer %s is looking for %q", b.id, b.title)
	defer log.Infof("buyer %s terminating", b.id)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		outcome, err := b.Attempt(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Errorf("%s: attempt to buy %q failed: %v", b.id, b.title, err)
			continue
		}

		if outcome.State == StateSucceeded {
			return nil
		}

		log.Infof("%s: no purchase of %q this round (%s)", b.id, b.title, outcome.Reason)
	}
}
