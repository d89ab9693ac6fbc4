// Package seller answers price queries and purchase orders from a private catalogue.
package seller

import (
	"context"
	stdErrors "errors"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/catalogue"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/core/seller/hooks"
	"github.com/vadiminshakov/booktrade/io/platform"
	"golang.org/x/sync/errgroup"
)

type Inbox interface {
	Receive(ctx context.Context, tmpl dto.Template) (dto.Envelope, error)
}

type Sender interface {
	Send(ctx context.Context, env dto.Envelope) error
}

// Registrar advertises the seller in the directory.
type Registrar interface {
	Register(ctx context.Context, id dto.AID, capability string) error
}

type Seller struct {
	id           dto.AID
	catalogue    *catalogue.Catalogue
	inbox        Inbox
	out          Sender
	hookRegistry *hooks.Registry
}

func New(id dto.AID, cat *catalogue.Catalogue, inbox Inbox, out Sender, customHooks ...hooks.Hook) *Seller {
	registry := hooks.NewRegistry()

	for _, hook := range customHooks {
		registry.Register(hook)
	}

	if len(customHooks) == 0 {
		registry.Register(hooks.NewDefaultHook())
	}

	return &Seller{
		id:           id,
		catalogue:    cat,
		inbox:        inbox,
		out:          out,
		hookRegistry: registry,
	}
}

func (s *Seller) ID() dto.AID { return s.id }

// AddItem lists title at price. It is the catalogue-management command
// issued by the console.
func (s *Seller) AddItem(title string, price int) error {
	if err := s.catalogue.Insert(title, price); err != nil {
		return err
	}

	log.Infof("%s: %q listed at %d", s.id, title, price)
	return nil
}

// Items returns the current catalogue contents.
func (s *Seller) Items() (map[string]int, error) {
	return s.catalogue.Items()
}

// Run registers the seller in the directory and serves quotes and orders
// until ctx is done or the mailbox is closed. A failed registration is
// logged and does not stop the seller. Envelopes that are neither requests
// for bids nor orders are dropped.
func (s *Seller) Run(ctx context.Context, dir Registrar) error {
	if dir != nil {
		if err := dir.Register(ctx, s.id, dto.CapabilityBookSelling); err != nil {
			log.Errorf("%s: failed to register %s: %v", s.id, dto.CapabilityBookSelling, err)
		}
	}

	log.Infof("seller %s is ready", s.id)
	defer log.Infof("seller %s terminating", s.id)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.serve(ctx, dto.MatchPerformative(dto.RequestForBids), s.Quote)
	})
	g.Go(func() error {
		return s.serve(ctx, dto.MatchPerformative(dto.AcceptBid), s.Order)
	})
	g.Go(func() error {
		return s.discard(ctx, dto.Not(dto.MatchPerformative(dto.RequestForBids, dto.AcceptBid)))
	})

	return g.Wait()
}

func (s *Seller) serve(ctx context.Context, tmpl dto.Template, handle func(dto.Envelope) dto.Envelope) error {
	for {
		env, err := s.inbox.Receive(ctx, tmpl)
		if err != nil {
			return s.stopped(ctx, err)
		}

		reply := handle(env)
		if err := s.out.Send(ctx, reply); err != nil {
			log.Warnf("%s: failed to send %s to %s: %v", s.id, reply.Performative, env.Sender, err)
		}
	}
}

func (s *Seller) discard(ctx context.Context, tmpl dto.Template) error {
	for {
		env, err := s.inbox.Receive(ctx, tmpl)
		if err != nil {
			return s.stopped(ctx, err)
		}

		log.Debugf("%s: dropping unexpected %s from %s", s.id, env.Performative, env.Sender)
	}
}

// stopped maps a receive error to the result of Run: nil on shutdown.
func (s *Seller) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil || stdErrors.Is(err, platform.ErrMailboxClosed) {
		return nil
	}
	return errors.Wrapf(err, "%s: receive", s.id)
}

// Quote answers a REQUEST-FOR-BIDS with the catalogue price of the
// requested title, or a DECLINE when it is not listed. It never mutates the
// catalogue.
func (s *Seller) Quote(req dto.Envelope) dto.Envelope {
	title := req.Content

	price, ok, err := s.catalogue.Lookup(title)
	if err != nil {
		log.Errorf("%s: lookup %q failed: %v", s.id, title, err)
		ok = false
	}

	quote := &dto.Quote{Title: title, Buyer: req.Sender, Price: price, Available: ok}
	if quote.Available && !s.hookRegistry.ExecuteQuote(quote) {
		quote.Available = false
	}
	s.hookRegistry.ExecuteAnswer(quote)

	if !quote.Available {
		return req.Reply(s.id, dto.Decline, dto.NotAvailable)
	}

	return req.Reply(s.id, dto.Bid, strconv.Itoa(quote.Price))
}

// Order answers an ACCEPT-BID. The title is removed from the catalogue and
// confirmed; when it is already gone the order is rejected.
func (s *Seller) Order(req dto.Envelope) dto.Envelope {
	title := req.Content

	price, ok, err := s.catalogue.Remove(title)
	if err != nil {
		log.Errorf("%s: remove %q failed: %v", s.id, title, err)
		ok = false
	}

	if !ok {
		return req.Reply(s.id, dto.RejectBid, dto.NotAvailable)
	}

	s.hookRegistry.ExecuteSale(&dto.Sale{
		Title:  title,
		Price:  price,
		Seller: s.id,
		Buyer:  req.Sender,
		SoldAt: time.Now(),
	})

	return req.Reply(s.id, dto.Confirm, strconv.Itoa(price))
}
