// Package client talks to booktrade nodes over gRPC.
package client

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/io/gateway/grpc/proto"
	"google.golang.org/grpc"
)

type NodeClient struct {
	Connection proto.NodeClient
	conn       *grpc.ClientConn
	addr       string
}

// New creates instance of node client.
// 'addr' is a node network address (host + port).
func New(addr string) (*NodeClient, error) {
	conn, err := createConnection(addr)
	if err != nil {
		return nil, err
	}

	return &NodeClient{Connection: proto.NewNodeClient(conn), conn: conn, addr: addr}, nil
}

func (client *NodeClient) Addr() string { return client.addr }

// Deliver hands env to the node hosting to.
func (client *NodeClient) Deliver(ctx context.Context, to dto.AID, env dto.Envelope) error {
	req, err := proto.DeliveryToPb(to, env)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}

	_, err = client.Connection.Deliver(ctx, req)
	return err
}

// AddItem lists title at price in the catalogue of a seller hosted by the node.
func (client *NodeClient) AddItem(ctx context.Context, seller dto.AID, title string, price int) error {
	req, err := proto.ItemToPb(seller, title, price)
	if err != nil {
		return errors.Wrap(err, "encode item")
	}

	_, err = client.Connection.AddItem(ctx, req)
	return err
}

// Register advertises id under capability in the node's directory.
func (client *NodeClient) Register(ctx context.Context, id dto.AID, capability string) error {
	req, err := proto.RegistrationToPb(id, capability)
	if err != nil {
		return errors.Wrap(err, "encode registration")
	}

	_, err = client.Connection.Register(ctx, req)
	return err
}

func (client *NodeClient) Deregister(ctx context.Context, id dto.AID) error {
	req, err := proto.RegistrationToPb(id, "")
	if err != nil {
		return errors.Wrap(err, "encode registration")
	}

	_, err = client.Connection.Deregister(ctx, req)
	return err
}

// Search returns the actors advertising capability in the node's directory.
func (client *NodeClient) Search(ctx context.Context, capability string) ([]dto.AID, error) {
	req, err := proto.QueryToPb(capability)
	if err != nil {
		return nil, errors.Wrap(err, "encode query")
	}

	resp, err := client.Connection.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	return proto.AIDsFromPb(resp), nil
}

func (client *NodeClient) Close() error {
	return client.conn.Close()
}
