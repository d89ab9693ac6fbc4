package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/dto"
	"go.uber.org/multierr"
)

// Pool keeps one connection per remote node and routes envelopes by the
// host part of the receiver identity.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*NodeClient
}

func NewPool() *Pool {
	return &Pool{clients: make(map[string]*NodeClient)}
}

// Deliver sends env to the node hosting to, dialing it on first use.
func (p *Pool) Deliver(ctx context.Context, to dto.AID, env dto.Envelope) error {
	host := to.Host()
	if host == "" {
		return errors.Errorf("%s is not a networked actor", to)
	}

	c, err := p.get(host)
	if err != nil {
		return err
	}

	return c.Deliver(ctx, to, env)
}

func (p *Pool) get(host string) (*NodeClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[host]; ok {
		return c, nil
	}

	c, err := New(host)
	if err != nil {
		return nil, err
	}
	p.clients[host] = c
	log.Debugf("connected to node %s", host)

	return c, nil
}

// Close closes every connection of the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for host, c := range p.clients {
		err = multierr.Append(err, errors.Wrapf(c.Close(), "close connection to %s", host))
	}
	p.clients = make(map[string]*NodeClient)

	return err
}
