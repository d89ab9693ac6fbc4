// Package server exposes a booktrade node over gRPC: envelope delivery to
// hosted actors, the catalogue-management command and the directory.
package server

import (
	"context"
	stdErrors "errors"
	"net"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vadiminshakov/booktrade/core/catalogue"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/io/gateway/grpc/proto"
	"github.com/vadiminshakov/booktrade/io/platform"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type Option func(server *Server) error

// Platform accepts envelopes for the actors hosted by the node.
type Platform interface {
	Deliver(ctx context.Context, to dto.AID, env dto.Envelope) error
}

// Catalogues gives access to the catalogues of hosted sellers.
type Catalogues interface {
	AddItem(seller dto.AID, title string, price int) error
}

type Directory interface {
	Register(ctx context.Context, id dto.AID, capability string) error
	Deregister(ctx context.Context, id dto.AID) error
	Search(ctx context.Context, capability string) ([]dto.AID, error)
}

// Server holds the gRPC server of a node and the node parts it serves.
type Server struct {
	proto.UnimplementedNodeServer
	Addr       string
	GRPCServer *grpc.Server
	platform   Platform
	catalogues Catalogues
	directory  Directory
}

// New fabric func for Server
func New(addr string, platform Platform, opts ...Option) (*Server, error) {
	server := &Server{Addr: addr, platform: platform}
	for _, option := range opts {
		if err := option(server); err != nil {
			return nil, err
		}
	}

	return server, checkServerFields(server)
}

// WithCatalogues serves AddItem from c.
func WithCatalogues(c Catalogues) Option {
	return func(server *Server) error {
		server.catalogues = c
		return nil
	}
}

// WithDirectory makes the node host the directory d.
func WithDirectory(d Directory) Option {
	return func(server *Server) error {
		server.directory = d
		return nil
	}
}

func checkServerFields(server *Server) error {
	if server.platform == nil {
		return errors.New("platform is not set")
	}
	if server.Addr == "" {
		return errors.New("listen address is not set")
	}
	return nil
}

func (s *Server) Deliver(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	to, env, err := proto.DeliveryFromPb(req)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := s.platform.Deliver(ctx, to, env); err != nil {
		return nil, toStatus(err)
	}

	return &emptypb.Empty{}, nil
}

func (s *Server) AddItem(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if s.catalogues == nil {
		return nil, status.Error(codes.FailedPrecondition, "node hosts no sellers")
	}

	seller, title, price, err := proto.ItemFromPb(req)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := s.catalogues.AddItem(seller, title, price); err != nil {
		return nil, toStatus(err)
	}

	return &emptypb.Empty{}, nil
}

func (s *Server) Register(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if s.directory == nil {
		return nil, status.Error(codes.FailedPrecondition, "node hosts no directory")
	}

	id, capability, err := proto.RegistrationFromPb(req)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := s.directory.Register(ctx, id, capability); err != nil {
		return nil, toStatus(err)
	}

	return &emptypb.Empty{}, nil
}

func (s *Server) Deregister(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if s.directory == nil {
		return nil, status.Error(codes.FailedPrecondition, "node hosts no directory")
	}

	id, _, err := proto.RegistrationFromPb(req)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := s.directory.Deregister(ctx, id); err != nil {
		return nil, toStatus(err)
	}

	return &emptypb.Empty{}, nil
}

func (s *Server) Search(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.directory == nil {
		return nil, status.Error(codes.FailedPrecondition, "node hosts no directory")
	}

	found, err := s.directory.Search(ctx, proto.QueryFromPb(req))
	if err != nil {
		return nil, toStatus(err)
	}

	resp, err := proto.AIDsToPb(found)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return resp, nil
}

// toStatus maps node errors to gRPC status codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case stdErrors.Is(err, proto.ErrMalformedMessage),
		stdErrors.Is(err, catalogue.ErrInvalidPrice),
		stdErrors.Is(err, catalogue.ErrEmptyTitle):
		code = codes.InvalidArgument
	case stdErrors.Is(err, platform.ErrUnknownActor):
		code = codes.NotFound
	case stdErrors.Is(err, platform.ErrMailboxFull):
		code = codes.ResourceExhausted
	case stdErrors.Is(err, platform.ErrMailboxClosed):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}

	return status.Error(code, err.Error())
}

// Run starts non-blocking GRPC server
func (s *Server) Run(opts ...grpc.UnaryServerInterceptor) error {
	s.GRPCServer = grpc.NewServer(grpc.ChainUnaryInterceptor(opts...))
	proto.RegisterNodeServer(s.GRPCServer, s)

	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.Addr = l.Addr().String()
	log.Infof("listening on tcp://%s", s.Addr)

	go func() {
		if err := s.GRPCServer.Serve(l); err != nil {
			log.Errorf("grpc server stopped: %v", err)
		}
	}()

	return nil
}

// Stop stops server
func (s *Server) Stop() {
	if s.GRPCServer == nil {
		return
	}

	log.Info("stopping server")
	s.GRPCServer.GracefulStop()
	log.Info("server stopped")
}
