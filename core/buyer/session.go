package buyer

import (
	"context"
	stdErrors "errors"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/correlation"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/io/metrics"
	"github.com/vadiminshakov/booktrade/io/platform"
)

var ErrMalformedBid = errors.New("malformed bid")

// Reasons a session ends in FAILED.
const (
	ReasonNoSellers    = "no-sellers"
	ReasonNoBids       = "no-bids"
	ReasonRejected     = "rejected"
	ReasonTimeout      = "timeout"
	ReasonMalformedBid = "malformed-bid"
	ReasonError        = "error"
)

// Inbox is the part of an actor mailbox a session consumes replies from.
type Inbox interface {
	Receive(ctx context.Context, tmpl dto.Template) (dto.Envelope, error)
	Purge(tmpl dto.Template) int
}

type Sender interface {
	Send(ctx context.Context, env dto.Envelope) error
}

// Outcome is what a finished session reports to its caller. Seller and Price
// hold the best bid seen, if any.
type Outcome struct {
	Title     string
	State     State
	Seller    dto.AID
	Price     int
	Responses int
	Bids      int
	Reason    string
}

// Session is a single purchase attempt. It is not reusable: Run drives it
// from INIT to a terminal state once.
type Session struct {
	owner   dto.AID
	title   string
	sellers []dto.AID
	inbox   Inbox
	out     Sender
	ids     *correlation.Generator

	replyTimeout time.Duration
	metrics      *metrics.Metrics

	sm           *stateMachine
	correlations []string
	bestSeller   dto.AID
	bestPrice    int
	hasBest      bool
	responses    int
	bids         int
	reason       string
}

type SessionOption func(*Session)

// WithTimeout bounds each wait for replies. Zero waits until every addressed
// seller has answered.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.replyTimeout = d
	}
}

func WithSessionMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithGenerator shares a correlation generator between sessions.
func WithGenerator(ids *correlation.Generator) SessionOption {
	return func(s *Session) {
		s.ids = ids
	}
}

// NewSession prepares an attempt to buy title from sellers. The seller set
// is copied, so later changes by the caller do not affect the session.
func NewSession(owner dto.AID, title string, sellers []dto.AID, inbox Inbox, out Sender, opts ...SessionOption) *Session {
	s := &Session{
		owner:   owner,
		title:   title,
		sellers: append([]dto.AID(nil), sellers...),
		inbox:   inbox,
		out:     out,
		sm:      newStateMachine(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = correlation.New()
	}

	return s
}

// Run negotiates until the session reaches SUCCEEDED or FAILED. A FAILED
// outcome is returned with a nil error when the protocol itself ended the
// session; the error is set for malformed bids, transport failures and
// context cancellation. Sellers the request for bids cannot reach are left
// out of the session; it fails only when none is reached.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	defer func() {
		s.purge()
		s.metrics.ObserveSession(string(s.sm.Current()), time.Since(start))
	}()

	for !s.sm.Current().Terminal() {
		var err error
		switch s.sm.Current() {
		case StateInit:
			err = s.broadcast(ctx)
		case StateAwaitingBids:
			err = s.collectBids(ctx)
		case StateSelecting:
			err = s.selectBest(ctx)
		case StateAwaitingConfirm:
			err = s.awaitConfirm(ctx)
		}

		if err != nil {
			if s.reason == "" {
				s.reason = ReasonError
			}
			if trErr := s.sm.Transition(StateFailed); trErr != nil {
				log.Errorf("%s: %v", s.owner, trErr)
			}
			return s.outcome(), err
		}
	}

	return s.outcome(), nil
}

func (s *Session) broadcast(ctx context.Context) error {
	if len(s.sellers) == 0 {
		return s.fail(ReasonNoSellers)
	}

	corr := s.ids.Next(correlation.KindCallForBids, s.owner)
	s.correlations = append(s.correlations, corr)

	err := s.out.Send(ctx, dto.Envelope{
		Performative:   dto.RequestForBids,
		ConversationID: dto.ConversationTrade,
		CorrelationID:  corr,
		Sender:         s.owner,
		Receivers:      s.sellers,
		Content:        s.title,
	})
	if err != nil {
		if s.sellers = s.reached(err); len(s.sellers) == 0 {
			return errors.Wrapf(err, "%s: request bids for %q", s.owner, s.title)
		}
	}

	log.Debugf("%s: requested bids for %q from %d sellers", s.owner, s.title, len(s.sellers))

	return s.sm.Transition(StateAwaitingBids)
}

// reached returns the sellers a failed broadcast still got to. Unreachable
// sellers are logged and leave the session; a failure that names no
// receiver reaches nobody.
func (s *Session) reached(err error) []dto.AID {
	var sendErr *platform.SendError
	if !stdErrors.As(err, &sendErr) {
		return nil
	}

	reached := make([]dto.AID, 0, len(s.sellers))
	for _, id := range s.sellers {
		if failure, ok := sendErr.Failed[id]; ok {
			log.Warnf("%s: %s is unreachable: %v", s.owner, id, failure)
			continue
		}
		reached = append(reached, id)
	}

	return reached
}

func (s *Session) collectBids(ctx context.Context) error {
	waitCtx, cancel := s.withReplyTimeout(ctx)
	defer cancel()

	tmpl := s.replyTemplate(dto.Bid, dto.Decline)
	for s.responses < len(s.sellers) {
		env, err := s.inbox.Receive(waitCtx, tmpl)
		if err != nil {
			if s.expired(ctx, err) {
				log.Warnf("%s: %d of %d sellers answered for %q before timeout",
					s.owner, s.responses, len(s.sellers), s.title)
				break
			}
			return errors.Wrapf(err, "%s: await bids", s.owner)
		}

		s.responses++
		s.metrics.ObserveReply(string(env.Performative))

		if env.Performative != dto.Bid {
			continue
		}

		price, err := parsePrice(env.Content)
		if err != nil {
			s.reason = ReasonMalformedBid
			return errors.Wrapf(err, "%s: bid from %s", s.owner, env.Sender)
		}

		s.bids++
		if !s.hasBest || price < s.bestPrice {
			s.bestSeller, s.bestPrice, s.hasBest = env.Sender, price, true
		}
	}

	return s.sm.Transition(StateSelecting)
}

func (s *Session) selectBest(ctx context.Context) error {
	if !s.hasBest {
		return s.fail(ReasonNoBids)
	}

	corr := s.ids.Next(correlation.KindOrder, s.owner)
	s.correlations = append(s.correlations, corr)

	err := s.out.Send(ctx, dto.Envelope{
		Performative:   dto.AcceptBid,
		ConversationID: dto.ConversationTrade,
		CorrelationID:  corr,
		Sender:         s.owner,
		Receivers:      []dto.AID{s.bestSeller},
		Content:        s.title,
	})
	if err != nil {
		return errors.Wrapf(err, "%s: order %q from %s", s.owner, s.title, s.bestSeller)
	}

	return s.sm.Transition(StateAwaitingConfirm)
}

func (s *Session) awaitConfirm(ctx context.Context) error {
	waitCtx, cancel := s.withReplyTimeout(ctx)
	defer cancel()

	env, err := s.inbox.Receive(waitCtx, s.replyTemplate(dto.Confirm, dto.RejectBid))
	if err != nil {
		if s.expired(ctx, err) {
			log.Warnf("%s: %s did not confirm %q in time", s.owner, s.bestSeller, s.title)
			return s.fail(ReasonTimeout)
		}
		return errors.Wrapf(err, "%s: await confirmation", s.owner)
	}
	s.metrics.ObserveReply(string(env.Performative))

	if env.Performative == dto.RejectBid {
		log.Infof("%s: %s rejected the order for %q", s.owner, env.Sender, s.title)
		return s.fail(ReasonRejected)
	}

	log.WithFields(log.Fields{
		"title":  s.title,
		"price":  s.bestPrice,
		"seller": s.bestSeller,
	}).Infof("purchase succeeded: %s for %d", s.title, s.bestPrice)

	return s.sm.Transition(StateSucceeded)
}

func (s *Session) fail(reason string) error {
	s.reason = reason
	return s.sm.Transition(StateFailed)
}

// replyTemplate accepts replies of the given kinds to the latest request.
func (s *Session) replyTemplate(ps ...dto.Performative) dto.Template {
	return dto.And(
		dto.MatchConversation(dto.ConversationTrade),
		dto.MatchCorrelation(s.correlations[len(s.correlations)-1]),
		dto.MatchPerformative(ps...),
	)
}

func (s *Session) withReplyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.replyTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.replyTimeout)
}

// expired reports whether err comes from the reply timeout rather than from
// the caller's context.
func (s *Session) expired(parent context.Context, err error) bool {
	return s.replyTimeout > 0 && parent.Err() == nil && stdErrors.Is(err, context.DeadlineExceeded)
}

// purge drops late replies to this session's requests.
func (s *Session) purge() {
	if len(s.correlations) == 0 || s.inbox == nil {
		return
	}

	mine := make(map[string]struct{}, len(s.correlations))
	for _, c := range s.correlations {
		mine[c] = struct{}{}
	}

	n := s.inbox.Purge(func(env dto.Envelope) bool {
		_, ok := mine[env.CorrelationID]
		return ok && env.ConversationID == dto.ConversationTrade
	})
	if n > 0 {
		log.Debugf("%s: dropped %d late replies", s.owner, n)
	}
}

func (s *Session) outcome() *Outcome {
	o := &Outcome{
		Title:     s.title,
		State:     s.sm.Current(),
		Responses: s.responses,
		Bids:      s.bids,
		Reason:    s.reason,
	}
	if s.hasBest {
		o.Seller, o.Price = s.bestSeller, s.bestPrice
	}

	return o
}

func parsePrice(content string) (int, error) {
	price, err := strconv.Atoi(content)
	if err != nil || price < 0 {
		return 0, errors.Wrapf(ErrMalformedBid, "price %q", content)
	}

	return price, nil
}
