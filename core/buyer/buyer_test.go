package buyer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/booktrade/core/catalogue"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/core/seller"
	"github.com/vadiminshakov/booktrade/io/platform"
	"github.com/vadiminshakov/booktrade/io/store"
	"github.com/vadiminshakov/booktrade/mocks"
	"go.uber.org/mock/gomock"
)

func startSeller(t *testing.T, p *platform.Platform, id dto.AID, items map[string]int) *seller.Seller {
	s, err := store.New()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cat := catalogue.New(s)
	for title, price := range items {
		require.NoError(t, cat.Insert(title, price))
	}

	mb, err := p.Register(id)
	require.NoError(t, err)

	sel := seller.New(id, cat, mb, p)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sel.Run(ctx, nil)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return sel
}

func newBuyer(t *testing.T, p *platform.Platform, id dto.AID, dir Directory, opts ...Option) *Buyer {
	mb, err := p.Register(id)
	require.NoError(t, err)

	b, err := New(id, "Dune", dir, mb, p, opts...)
	require.NoError(t, err)
	return b
}

func TestNew_RequiresTitle(t *testing.T) {
	_, err := New("buyer", "  ", nil, nil, nil)
	require.ErrorIs(t, err, ErrNoTitle)
}

// Scenario A: a single seller has the book.
func TestScenario_SingleSellerSucceeds(t *testing.T) {
	p := platform.New()
	sel := startSeller(t, p, "seller1", map[string]int{"Foundation": 20})

	mb, err := p.Register("buyer")
	require.NoError(t, err)

	outcome, err := runSession(t, NewSession("buyer", "Foundation", []dto.AID{"seller1"}, mb, p))
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, outcome.State)
	require.Equal(t, 20, outcome.Price)
	require.Equal(t, dto.AID("seller1"), outcome.Seller)

	items, err := sel.Items()
	require.NoError(t, err)
	require.NotContains(t, items, "Foundation")
}

// Scenario B: the only seller does not have the book.
func TestScenario_EmptyCatalogueFails(t *testing.T) {
	p := platform.New()
	startSeller(t, p, "seller1", nil)

	mb, err := p.Register("buyer")
	require.NoError(t, err)

	outcome, err := runSession(t, NewSession("buyer", "Dune", []dto.AID{"seller1"}, mb, p))
	require.NoError(t, err)
	require.Equal(t, StateFailed, outcome.State)
	require.Equal(t, ReasonNoBids, outcome.Reason)
	require.Equal(t, 1, outcome.Responses)
}

// Scenario C: the cheaper of two sellers gets the order.
func TestScenario_CheaperSellerSelected(t *testing.T) {
	p := platform.New()
	seller1 := startSeller(t, p, "seller1", map[string]int{"Dune": 15})
	seller2 := startSeller(t, p, "seller2", map[string]int{"Dune": 12})

	mb, err := p.Register("buyer")
	require.NoError(t, err)

	outcome, err := runSession(t, NewSession("buyer", "Dune", []dto.AID{"seller1", "seller2"}, mb, p))
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, outcome.State)
	require.Equal(t, dto.AID("seller2"), outcome.Seller)
	require.Equal(t, 12, outcome.Price)

	items1, err := seller1.Items()
	require.NoError(t, err)
	require.Equal(t, map[string]int{"Dune": 15}, items1)

	items2, err := seller2.Items()
	require.NoError(t, err)
	require.Empty(t, items2)
}

// orderBarrier holds every ACCEPT-BID until all parties are about to order.
type orderBarrier struct {
	p  *platform.Platform
	wg *sync.WaitGroup
}

func (b orderBarrier) Send(ctx context.Context, env dto.Envelope) error {
	if env.Performative == dto.AcceptBid {
		b.wg.Done()
		b.wg.Wait()
	}
	return b.p.Send(ctx, env)
}

// Scenario D: two buyers order the same copy at once.
func TestScenario_ConcurrentOrdersOneWinner(t *testing.T) {
	p := platform.New()
	startSeller(t, p, "seller1", map[string]int{"Dune": 15})

	var barrier sync.WaitGroup
	barrier.Add(2)

	outcomes := make([]*Outcome, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []dto.AID{"buyer1", "buyer2"} {
		mb, err := p.Register(id)
		require.NoError(t, err)

		wg.Add(1)
		go func(i int, id dto.AID, mb *platform.Mailbox) {
			defer wg.Done()
			s := NewSession(id, "Dune", []dto.AID{"seller1"}, mb, orderBarrier{p: p, wg: &barrier})
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			outcomes[i], errs[i] = s.Run(ctx)
		}(i, id, mb)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	succeeded, rejected := 0, 0
	for _, o := range outcomes {
		switch {
		case o.State == StateSucceeded:
			succeeded++
		case o.State == StateFailed && o.Reason == ReasonRejected:
			rejected++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, rejected)
}

func TestBuyer_RefreshSellers(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	p := platform.New()
	b := newBuyer(t, p, "buyer", dir, WithSellers("seller1", "seller2"))
	require.Equal(t, []dto.AID{"seller1", "seller2"}, b.Sellers())

	gomock.InOrder(
		dir.EXPECT().Search(gomock.Any(), dto.CapabilityBookSelling).Return([]dto.AID{"seller3"}, nil),
		dir.EXPECT().Search(gomock.Any(), dto.CapabilityBookSelling).Return(nil, errors.New("directory unavailable")),
	)

	require.NoError(t, b.RefreshSellers(context.Background()))
	require.Equal(t, []dto.AID{"seller3"}, b.Sellers())

	// a failed refresh keeps the previous set
	require.Error(t, b.RefreshSellers(context.Background()))
	require.Equal(t, []dto.AID{"seller3"}, b.Sellers())
}

func TestBuyer_AttemptUsesDirectory(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	p := platform.New()
	startSeller(t, p, "seller1", map[string]int{"Dune": 15})
	startSeller(t, p, "seller2", map[string]int{"Dune": 12})
	b := newBuyer(t, p, "buyer", dir)

	dir.EXPECT().Search(gomock.Any(), dto.CapabilityBookSelling).Return([]dto.AID{"seller1", "seller2"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcome, err := b.Attempt(ctx)
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, outcome.State)
	require.Equal(t, dto.AID("seller2"), outcome.Seller)
}

func TestBuyer_AttemptWithDirectoryDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	p := platform.New()
	startSeller(t, p, "seller1", map[string]int{"Dune": 15})
	b := newBuyer(t, p, "buyer", dir, WithSellers("seller1"))

	dir.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, errors.New("directory unavailable"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcome, err := b.Attempt(ctx)
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, outcome.State)
	require.Equal(t, dto.AID("seller1"), outcome.Seller)
}

func TestBuyer_RunRetriesUntilSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	p := platform.New()
	sel := startSeller(t, p, "seller1", map[string]int{"Dune": 15})
	b := newBuyer(t, p, "buyer", dir, WithInterval(10*time.Millisecond))

	gomock.InOrder(
		dir.EXPECT().Search(gomock.Any(), dto.CapabilityBookSelling).Return(nil, nil),
		dir.EXPECT().Search(gomock.Any(), dto.CapabilityBookSelling).Return([]dto.AID{"seller1"}, nil),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, b.Run(ctx))
	require.NoError(t, ctx.Err(), "buyer should stop after the purchase, not on timeout")

	items, err := sel.Items()
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestBuyer_RunStopsOnCancel(t *testing.T) {
	p := platform.New()
	b := newBuyer(t, p, "buyer", nil, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("buyer did not stop")
	}
}

func TestSession_UnreachableSellerDoesNotBlockPurchases(t *testing.T) {
	p := platform.New()
	t.Cleanup(p.Shutdown)
	startSeller(t, p, "seller1", map[string]int{"Dune": 12})

	mb, err := p.Register("buyer")
	require.NoError(t, err)

	sellers := []dto.AID{"seller1", "crashed"}
	outcome, err := runSession(t, NewSession("buyer", "Dune", sellers, mb, p))
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, outcome.State)
	require.Equal(t, 12, outcome.Price)
	require.Zero(t, mb.Len())

	for i := 0; i < 3; i++ {
		outcome, err = runSession(t, NewSession("buyer", "Dune", sellers, mb, p))
		require.NoError(t, err)
		require.Equal(t, StateFailed, outcome.State)
		require.Equal(t, ReasonNoBids, outcome.Reason)
		require.Equal(t, 1, outcome.Responses)
		require.Zero(t, mb.Len(), "no reply may outlive its session")
	}
}

func TestBuyer_AttemptDropsStaleReplies(t *testing.T) {
	p := platform.New()
	t.Cleanup(p.Shutdown)
	startSeller(t, p, "seller1", map[string]int{"Dune": 12})

	b := newBuyer(t, p, "buyer", nil, WithSellers("seller1"))
	stray := dto.Envelope{
		Performative:   dto.Bid,
		ConversationID: dto.ConversationTrade,
		CorrelationID:  "cfp-unknown",
		Sender:         "seller9",
		Receivers:      []dto.AID{"buyer"},
		Content:        "1",
	}
	require.NoError(t, p.Send(context.Background(), stray))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := b.Attempt(ctx)
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, outcome.State)
	require.Equal(t, dto.AID("seller1"), outcome.Seller)

	require.Equal(t, 0, b.inbox.(*platform.Mailbox).Len())
}
