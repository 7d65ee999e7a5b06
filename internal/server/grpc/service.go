package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gophauth.v1.TokenService"

const (
	methodVerify  = "/" + ServiceName + "/Verify"
	methodRefresh = "/" + ServiceName + "/Refresh"
	methodRevoke  = "/" + ServiceName + "/Revoke"
	methodWhoAmI  = "/" + ServiceName + "/WhoAmI"
)

// TokenServiceServer is implemented by GRPCServer. Messages are protobuf
// well-known types, so no generated code is needed.
type TokenServiceServer interface {
	Verify(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Refresh(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Revoke(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var TokenServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TokenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: unary(methodVerify, callVerify)},
		{MethodName: "Refresh", Handler: unary(methodRefresh, callRefresh)},
		{MethodName: "Revoke", Handler: unary(methodRevoke, callRevoke)},
		{MethodName: "WhoAmI", Handler: unary(methodWhoAmI, callWhoAmI)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/v1/token.proto",
}

func callVerify(s TokenServiceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
	return s.Verify(ctx, in)
}

func callRefresh(s TokenServiceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
	return s.Refresh(ctx, in)
}

func callRevoke(s TokenServiceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
	return s.Revoke(ctx, in)
}

func callWhoAmI(s TokenServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
	return s.WhoAmI(ctx, in)
}

// unary builds a method handler that decodes T and runs the interceptor chain.
func unary[T any](fullMethod string, call func(TokenServiceServer, context.Context, *T) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(T)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TokenServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TokenServiceServer), ctx, req.(*T))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TokenServiceClient calls the token service on a remote server.
type TokenServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTokenServiceClient(cc grpc.ClientConnInterface) *TokenServiceClient {
	return &TokenServiceClient{cc: cc}
}

func (c *TokenServiceClient) Verify(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodVerify, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TokenServiceClient) Refresh(ctx context.Context, refreshToken string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodRefresh, wrapperspb.String(refreshToken), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TokenServiceClient) Revoke(ctx context.Context, refreshToken string, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, methodRevoke, wrapperspb.String(refreshToken), out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// WhoAmI needs the access token in the access_token metadata key.
func (c *TokenServiceClient) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodWhoAmI, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
