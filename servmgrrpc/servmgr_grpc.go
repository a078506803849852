package servmgrrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// This file is intentionally handwritten to avoid protoc. Messages are
// protobuf well-known types; the service info record travels as a Struct
// with the fields below.

const ServiceName = "ohos.hdi.servmgr.ServiceManager"

// Struct field names of a service info record.
const (
	FieldName       = "name"
	FieldDevClass   = "dev_class"
	FieldDescriptor = "descriptor"
	FieldAddress    = "address"
)

// ServiceManagerClient: called by binders (client) -> service manager (server).
type ServiceManagerClient interface {
	GetService(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListAllService(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
}

type serviceManagerClient struct{ cc grpc.ClientConnInterface }

func NewServiceManagerClient(cc grpc.ClientConnInterface) ServiceManagerClient {
	return &serviceManagerClient{cc}
}

func (c *serviceManagerClient) GetService(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetService", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *serviceManagerClient) ListAllService(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListAllService", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type ServiceManagerServer interface {
	GetService(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListAllService(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	mustEmbedUnimplementedServiceManagerServer()
}

type UnimplementedServiceManagerServer struct{}

func (UnimplementedServiceManagerServer) GetService(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetService not implemented")
}
func (UnimplementedServiceManagerServer) ListAllService(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListAllService not implemented")
}
func (UnimplementedServiceManagerServer) mustEmbedUnimplementedServiceManagerServer() {}

func RegisterServiceManagerServer(s grpc.ServiceRegistrar, srv ServiceManagerServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*ServiceManagerServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetService",
				Handler: func(srvIface any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := new(wrapperspb.StringValue)
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return srvIface.(ServiceManagerServer).GetService(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srvIface, FullMethod: "/" + ServiceName + "/GetService"}
					return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
						return srvIface.(ServiceManagerServer).GetService(ctx, req.(*wrapperspb.StringValue))
					})
				},
			},
			{
				MethodName: "ListAllService",
				Handler: func(srvIface any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := new(emptypb.Empty)
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return srvIface.(ServiceManagerServer).ListAllService(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srvIface, FullMethod: "/" + ServiceName + "/ListAllService"}
					return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
						return srvIface.(ServiceManagerServer).ListAllService(ctx, req.(*emptypb.Empty))
					})
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "servmgr.proto",
	}, srv)
}
