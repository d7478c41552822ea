package mgmt

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	emptypb "google.golang.org/protobuf/types/known/emptypb"
	structpb "google.golang.org/protobuf/types/known/structpb"
	wrapperspb "google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC name of the management service.
const ServiceName = "hostnamer.mgmt.MgmtService"

const (
	methodAlive         = "/" + ServiceName + "/Alive"
	methodResolve       = "/" + ServiceName + "/Resolve"
	methodPeek          = "/" + ServiceName + "/Peek"
	methodCancelPending = "/" + ServiceName + "/CancelPending"
	methodStatus        = "/" + ServiceName + "/Status"
)

// MgmtServiceClient is the client API for the management service. All
// messages are protobuf well-known types.
type MgmtServiceClient interface {
	Alive(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Resolve(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Peek(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	CancelPending(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type mgmtServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMgmtServiceClient returns a client for the management service using
// the given connection.
func NewMgmtServiceClient(cc grpc.ClientConnInterface) MgmtServiceClient {
	return &mgmtServiceClient{cc}
}

func (c *mgmtServiceClient) Alive(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodAlive, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mgmtServiceClient) Resolve(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodResolve, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mgmtServiceClient) Peek(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodPeek, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mgmtServiceClient) CancelPending(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, methodCancelPending, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mgmtServiceClient) Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodStatus, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// MgmtServiceServer is the server API for the management service.
type MgmtServiceServer interface {
	Alive(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Resolve(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Peek(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CancelPending(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedMgmtServiceServer can be embedded to have forward compatible
// implementations.
type UnimplementedMgmtServiceServer struct{}

func (UnimplementedMgmtServiceServer) Alive(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Alive not implemented")
}
func (UnimplementedMgmtServiceServer) Resolve(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Resolve not implemented")
}
func (UnimplementedMgmtServiceServer) Peek(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Peek not implemented")
}
func (UnimplementedMgmtServiceServer) CancelPending(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CancelPending not implemented")
}
func (UnimplementedMgmtServiceServer) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Status not implemented")
}

// RegisterMgmtServiceServer registers srv with the given gRPC server.
func RegisterMgmtServiceServer(s grpc.ServiceRegistrar, srv MgmtServiceServer) {
	s.RegisterService(&MgmtServiceDesc, srv)
}

func unaryHandler[In any, Out any](method string,
	call func(MgmtServiceServer, context.Context, *In) (Out, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MgmtServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(MgmtServiceServer), ctx, req.(*In))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// MgmtServiceDesc is the grpc.ServiceDesc for the management service.
var MgmtServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MgmtServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Alive",
			Handler:    unaryHandler(methodAlive, MgmtServiceServer.Alive),
		},
		{
			MethodName: "Resolve",
			Handler:    unaryHandler(methodResolve, MgmtServiceServer.Resolve),
		},
		{
			MethodName: "Peek",
			Handler:    unaryHandler(methodPeek, MgmtServiceServer.Peek),
		},
		{
			MethodName: "CancelPending",
			Handler:    unaryHandler(methodCancelPending, MgmtServiceServer.CancelPending),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler(methodStatus, MgmtServiceServer.Status),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mgmt.proto",
}
