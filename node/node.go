// Package node assembles a booktrade process: the actor platform, the
// sellers and buyers it hosts, the directory, the gRPC gateway, metrics and
// the sales journal.
package node

import (
	"context"
	stdErrors "errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/config"
	"github.com/vadiminshakov/booktrade/core/buyer"
	"github.com/vadiminshakov/booktrade/core/catalogue"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/core/seller"
	"github.com/vadiminshakov/booktrade/core/seller/hooks"
	"github.com/vadiminshakov/booktrade/io/directory"
	"github.com/vadiminshakov/booktrade/io/gateway/grpc/client"
	"github.com/vadiminshakov/booktrade/io/gateway/grpc/server"
	"github.com/vadiminshakov/booktrade/io/journal"
	"github.com/vadiminshakov/booktrade/io/metrics"
	"github.com/vadiminshakov/booktrade/io/platform"
	"github.com/vadiminshakov/booktrade/io/store"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const deregisterTimeout = 2 * time.Second

// Directory is the directory the node's actors use, hosted here or remote.
type Directory interface {
	Register(ctx context.Context, id dto.AID, capability string) error
	Deregister(ctx context.Context, id dto.AID) error
	Search(ctx context.Context, capability string) ([]dto.AID, error)
}

type Node struct {
	conf     *config.Config
	platform *platform.Platform
	pool     *client.Pool
	dir      Directory
	closeDir func() error
	server   *server.Server

	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	metricsSrv *http.Server
	journal    *journal.Journal

	sellers map[dto.AID]*seller.Seller
	stores  []*store.Store
	buyers  []*buyer.Buyer

	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
	stopErr  error
}

// New builds a node from conf. Nothing runs until Start.
func New(conf *config.Config) (*Node, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	pool := client.NewPool()
	n := &Node{
		conf: conf,
		pool: pool,
		platform: platform.New(
			platform.WithAddress(conf.Advertised()),
			platform.WithTransport(pool),
			platform.WithMailboxSize(conf.MailboxSize),
		),
		registry: prometheus.NewRegistry(),
		sellers:  make(map[dto.AID]*seller.Seller),
	}
	n.metrics = metrics.New(n.registry)

	if err := n.assemble(); err != nil {
		return nil, multierr.Append(err, n.release())
	}

	return n, nil
}

func (n *Node) assemble() error {
	var err error
	conf := n.conf

	if conf.JournalDir != "" {
		if n.journal, err = journal.Open(conf.JournalDir); err != nil {
			return err
		}
	}

	serverOpts := []server.Option{server.WithCatalogues(n)}
	if conf.Directory == "" || conf.Directory == conf.Nodeaddr || conf.Directory == conf.Advertised() {
		hosted := directory.NewMemory()
		n.dir = hosted
		serverOpts = append(serverOpts, server.WithDirectory(hosted))
		log.Infof("hosting the directory at %s", conf.Nodeaddr)
	} else {
		remote, err := directory.NewRemote(conf.Directory)
		if err != nil {
			return err
		}
		n.dir, n.closeDir = remote, remote.Close
	}

	for _, sc := range conf.Sellers {
		if err := n.addSeller(sc); err != nil {
			return err
		}
	}

	for _, bc := range conf.Buyers {
		if err := n.addBuyer(bc); err != nil {
			return err
		}
	}

	n.server, err = server.New(conf.Nodeaddr, n.platform, serverOpts...)
	return err
}

func (n *Node) addSeller(sc config.SellerConfig) error {
	id := n.platform.AID(sc.Name)

	s, err := store.New()
	if err != nil {
		return errors.Wrapf(err, "catalogue store of %s", id)
	}
	n.stores = append(n.stores, s)

	cat := catalogue.New(s)
	for title, price := range sc.Items {
		if err := cat.Insert(title, price); err != nil {
			return errors.Wrapf(err, "list %q at %s", title, id)
		}
	}

	mb, err := n.platform.Register(id)
	if err != nil {
		return err
	}

	sellerHooks := []hooks.Hook{hooks.NewDefaultHook(), hooks.NewMetricsHook(n.metrics)}
	if sc.MaxTitleLength > 0 {
		sellerHooks = append(sellerHooks, hooks.NewValidationHook(sc.MaxTitleLength))
	}
	if n.journal != nil {
		sellerHooks = append(sellerHooks, hooks.NewJournalHook(n.journal))
	}

	n.sellers[id] = seller.New(id, cat, mb, n.platform, sellerHooks...)

	return nil
}

func (n *Node) addBuyer(bc config.BuyerConfig) error {
	id := n.platform.AID(bc.Name)

	initial := make([]dto.AID, 0, len(bc.Sellers))
	for _, name := range bc.Sellers {
		initial = append(initial, n.resolve(name))
	}

	mb, err := n.platform.Register(id)
	if err != nil {
		return err
	}

	b, err := buyer.New(id, bc.Title, n.dir, mb, n.platform,
		buyer.WithSellers(initial...),
		buyer.WithInterval(n.conf.Interval),
		buyer.WithReplyTimeout(n.conf.ReplyTimeout),
		buyer.WithMetrics(n.metrics),
	)
	if err != nil {
		return err
	}
	n.buyers = append(n.buyers, b)

	return nil
}

// resolve names a bare actor name as an actor of this node.
func (n *Node) resolve(name string) dto.AID {
	if strings.Contains(name, "@") {
		return dto.AID(name)
	}
	return n.platform.AID(name)
}

// Start serves the gateway and metrics and runs every hosted actor.
func (n *Node) Start() error {
	if err := n.server.Run(server.Recovery, server.Logger); err != nil {
		return err
	}

	if n.conf.MetricsAddr != "" {
		n.metricsSrv = &http.Server{Addr: n.conf.MetricsAddr, Handler: n.metricsMux()}
		go func() {
			if err := n.metricsSrv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server: %v", err)
			}
		}()
		log.Infof("serving metrics on http://%s/metrics", n.conf.MetricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.group, ctx = errgroup.WithContext(ctx)

	for _, s := range n.sellers {
		n.group.Go(func() error { return s.Run(ctx, n.dir) })
	}
	for _, b := range n.buyers {
		n.group.Go(func() error { return b.Run(ctx) })
	}

	log.Infof("node %s started with %d sellers and %d buyers", n.conf.Nodeaddr, len(n.sellers), len(n.buyers))

	return nil
}

func (n *Node) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(n.registry))
	return mux
}

// MetricsHandler serves the node's metrics.
func (n *Node) MetricsHandler() http.Handler {
	return metrics.Handler(n.registry)
}

// AddItem lists title at price in the catalogue of a hosted seller. The
// seller may be named by its bare name.
func (n *Node) AddItem(id dto.AID, title string, price int) error {
	s, ok := n.sellers[n.resolve(string(id))]
	if !ok {
		return errors.Wrapf(platform.ErrUnknownActor, "no seller %s on %s", id, n.conf.Nodeaddr)
	}

	return s.AddItem(title, price)
}

// Seller returns the hosted seller called name.
func (n *Node) Seller(name string) (*seller.Seller, bool) {
	s, ok := n.sellers[n.resolve(name)]
	return s, ok
}

// Stop deregisters the sellers, stops every actor and releases the node's
// resources. It is safe to call more than once.
func (n *Node) Stop() error {
	n.stopOnce.Do(func() {
		var err error

		ctx, cancel := context.WithTimeout(context.Background(), deregisterTimeout)
		for id := range n.sellers {
			if dErr := n.dir.Deregister(ctx, id); dErr != nil {
				log.Warnf("failed to deregister %s: %v", id, dErr)
			}
		}
		cancel()

		if n.cancel != nil {
			n.cancel()
		}
		n.platform.Shutdown()
		if n.group != nil {
			err = multierr.Append(err, n.group.Wait())
		}

		n.server.Stop()
		if n.metricsSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), deregisterTimeout)
			err = multierr.Append(err, n.metricsSrv.Shutdown(ctx))
			cancel()
		}

		n.stopErr = multierr.Append(err, n.release())
		log.Infof("node %s stopped", n.conf.Nodeaddr)
	})

	return n.stopErr
}

// release closes connections, the journal and the catalogue stores.
func (n *Node) release() error {
	err := n.pool.Close()
	if n.closeDir != nil {
		err = multierr.Append(err, n.closeDir())
	}
	if n.journal != nil {
		err = multierr.Append(err, n.journal.Close())
	}
	for _, s := range n.stores {
		err = multierr.Append(err, s.Close())
	}

	return err
}
