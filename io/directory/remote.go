package directory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/io/gateway/grpc/client"
)

// Remote is the directory hosted by another node.
type Remote struct {
	client *client.NodeClient
}

// NewRemote connects to the directory served by the node at addr.
func NewRemote(addr string) (*Remote, error) {
	c, err := client.New(addr)
	if err != nil {
		return nil, errors.Wrap(err, "connect to directory")
	}

	return &Remote{client: c}, nil
}

func (r *Remote) Register(ctx context.Context, id dto.AID, capability string) error {
	return errors.Wrapf(r.client.Register(ctx, id, capability), "register %s at %s", id, r.client.Addr())
}

func (r *Remote) Deregister(ctx context.Context, id dto.AID) error {
	return errors.Wrapf(r.client.Deregister(ctx, id), "deregister %s at %s", id, r.client.Addr())
}

func (r *Remote) Search(ctx context.Context, capability string) ([]dto.AID, error) {
	found, err := r.client.Search(ctx, capability)
	if err != nil {
		return nil, errors.Wrapf(err, "search %s at %s", capability, r.client.Addr())
	}

	return found, nil
}

func (r *Remote) Close() error {
	return r.client.Close()
}
