// Package proto defines the booktrade.Node gRPC service. Messages travel as
// well-known protobuf types, so the service needs no generated schema.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "booktrade.Node"

const (
	Node_Deliver_FullMethodName    = "/booktrade.Node/Deliver"
	Node_AddItem_FullMethodName    = "/booktrade.Node/AddItem"
	Node_Register_FullMethodName   = "/booktrade.Node/Register"
	Node_Deregister_FullMethodName = "/booktrade.Node/Deregister"
	Node_Search_FullMethodName     = "/booktrade.Node/Search"
)

// NodeClient is the client API for the Node service.
type NodeClient interface {
	// Deliver puts an envelope into the mailbox of an actor hosted by the node.
	Deliver(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	// AddItem lists a title in the catalogue of a hosted seller.
	AddItem(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Deregister(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Search(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type nodeClient struct {
	cc grpc.ClientConnInterface
}

func NewNodeClient(cc grpc.ClientConnInterface) NodeClient {
	return &nodeClient{cc}
}

func (c *nodeClient) Deliver(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, Node_Deliver_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) AddItem(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, Node_AddItem_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, Node_Register_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) Deregister(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, Node_Deregister_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeClient) Search(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Node_Search_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NodeServer is the server API for the Node service.
type NodeServer interface {
	Deliver(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	AddItem(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Register(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Deregister(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedNodeServer can be embedded to have forward compatible implementations.
type UnimplementedNodeServer struct{}

func (UnimplementedNodeServer) Deliver(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Deliver not implemented")
}

func (UnimplementedNodeServer) AddItem(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AddItem not implemented")
}

func (UnimplementedNodeServer) Register(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Register not implemented")
}

func (UnimplementedNodeServer) Deregister(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Deregister not implemented")
}

func (UnimplementedNodeServer) Search(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Search not implemented")
}

func RegisterNodeServer(s grpc.ServiceRegistrar, srv NodeServer) {
	s.RegisterService(&Node_ServiceDesc, srv)
}

// unaryHandler adapts a NodeServer method taking a Struct to a grpc method handler.
func unaryHandler[Resp any](fullMethod string, call func(NodeServer, context.Context, *structpb.Struct) (Resp, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			resp, err := call(srv.(NodeServer), ctx, in)
			return resp, err
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			resp, err := call(srv.(NodeServer), ctx, req.(*structpb.Struct))
			return resp, err
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Node_ServiceDesc is the grpc.ServiceDesc for the Node service.
var Node_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Deliver",
			Handler:    unaryHandler(Node_Deliver_FullMethodName, NodeServer.Deliver),
		},
		{
			MethodName: "AddItem",
			Handler:    unaryHandler(Node_AddItem_FullMethodName, NodeServer.AddItem),
		},
		{
			MethodName: "Register",
			Handler:    unaryHandler(Node_Register_FullMethodName, NodeServer.Register),
		},
		{
			MethodName: "Deregister",
			Handler:    unaryHandler(Node_Deregister_FullMethodName, NodeServer.Deregister),
		},
		{
			MethodName: "Search",
			Handler:    unaryHandler(Node_Search_FullMethodName, NodeServer.Search),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "booktrade/node",
}
