package hdi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/NotrixInc/nx-hdi/servmgrrpc"
)

// RequestIDKey is the metadata key carrying a per-call request id.
const RequestIDKey = "x-hdi-request-id"

// ServiceInfo describes a service published by a device host.
type ServiceInfo struct {
	Name       string
	DevClass   uint16
	Descriptor string // interface descriptor, may be empty
	Address    string // where the host serves the interface
}

func (s ServiceInfo) toStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		servmgrrpc.FieldName:       structpb.NewStringValue(s.Name),
		servmgrrpc.FieldDevClass:   structpb.NewNumberValue(float64(s.DevClass)),
		servmgrrpc.FieldDescriptor: structpb.NewStringValue(s.Descriptor),
		servmgrrpc.FieldAddress:    structpb.NewStringValue(s.Address),
	}}
}

func serviceInfoFromStruct(s *structpb.Struct) ServiceInfo {
	f := s.GetFields()
	return ServiceInfo{
		Name:       f[servmgrrpc.FieldName].GetStringValue(),
		DevClass:   uint16(f[servmgrrpc.FieldDevClass].GetNumberValue()),
		Descriptor: f[servmgrrpc.FieldDescriptor].GetStringValue(),
		Address:    f[servmgrrpc.FieldAddress].GetStringValue(),
	}
}

// ServiceRegistry is the host-side table of published services, served over
// gRPC as the service manager.
type ServiceRegistry struct {
	servmgrrpc.UnimplementedServiceManagerServer

	logger Logger

	mu       sync.RWMutex
	services map[string]ServiceInfo
}

// NewServiceRegistry returns an empty registry.
func NewServiceRegistry(logger Logger) *ServiceRegistry {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &ServiceRegistry{logger: logger, services: make(map[string]ServiceInfo)}
}

// Publish adds or replaces a service. A non-empty descriptor must parse.
func (r *ServiceRegistry) Publish(info ServiceInfo) error {
	info.Name = strings.TrimSpace(info.Name)
	if info.Name == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalidArgument)
	}
	if info.Descriptor != "" {
		if _, err := ParseDescriptor(info.Descriptor); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[info.Name] = info
	return nil
}

// Withdraw removes a service; it reports whether it was published.
func (r *ServiceRegistry) Withdraw(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[name]; !ok {
		return false
	}
	delete(r.services, name)
	return true
}

// Lookup returns the published service called name.
func (r *ServiceRegistry) Lookup(name string) (ServiceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.services[name]
	return info, ok
}

// Services returns all published services sorted by name.
func (r *ServiceRegistry) Services() []ServiceInfo {
	r.mu.RLock()
	out := make([]ServiceInfo, 0, len(r.services))
	for _, info := range r.services {
		out = append(out, info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *ServiceRegistry) GetService(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	name := in.GetValue()
	info, ok := r.Lookup(name)
	if !ok {
		r.logger.Warn("get service: not published", "service", name, "request_id", requestID(ctx))
		return nil, status.Errorf(codes.NotFound, "service %q not published", name)
	}
	r.logger.Debug("get service", "service", name, "request_id", requestID(ctx))
	return info.toStruct(), nil
}

func (r *ServiceRegistry) ListAllService(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	services := r.Services()
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(services))}
	for _, info := range services {
		out.Values = append(out.Values, structpb.NewStructValue(info.toStruct()))
	}
	r.logger.Debug("list all service", "count", len(services), "request_id", requestID(ctx))
	return out, nil
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(RequestIDKey); len(v) > 0 {
		return v[0]
	}
	return ""
}

// ServeServiceManager serves reg on lis until ctx is done, then stops
// gracefully. It returns the server error, if any.
func ServeServiceManager(ctx context.Context, lis net.Listener, reg *ServiceRegistry, opts ...grpc.ServerOption) error {
	srv := grpc.NewServer(opts...)
	servmgrrpc.RegisterServiceManagerServer(srv, reg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// RemoteServiceManager is a client of a remote service manager.
type RemoteServiceManager struct {
	cc *grpc.ClientConn
	c  servmgrrpc.ServiceManagerClient
}

// DialServiceManager connects to the service manager at addr, e.g.
// "unix:///dev/unix/socket/hdi_servmgr.sock". Without options the connection
// is plaintext.
func DialServiceManager(addr string, opts ...grpc.DialOption) (*RemoteServiceManager, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &RemoteServiceManager{cc: conn, c: servmgrrpc.NewServiceManagerClient(conn)}, nil
}

func (m *RemoteServiceManager) Close() error { return m.cc.Close() }

// GetService asks the service manager for the service called name.
func (m *RemoteServiceManager) GetService(ctx context.Context, name string) (ServiceInfo, error) {
	if name == "" {
		return ServiceInfo{}, fmt.Errorf("%w: empty service name", ErrInvalidArgument)
	}
	resp, err := m.c.GetService(withRequestID(ctx), wrapperspb.String(name))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ServiceInfo{}, fmt.Errorf("%w: service %s: %v", ErrLookupMiss, name, err)
		}
		return ServiceInfo{}, fmt.Errorf("get hdi service %s: %w", name, err)
	}
	return serviceInfoFromStruct(resp), nil
}

// ListAllService returns every service the manager knows about.
func (m *RemoteServiceManager) ListAllService(ctx context.Context) ([]ServiceInfo, error) {
	resp, err := m.c.ListAllService(withRequestID(ctx), &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("list all service: %w", err)
	}
	out := make([]ServiceInfo, 0, len(resp.GetValues()))
	for _, v := range resp.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, errors.New("list all service: malformed entry")
		}
		out = append(out, serviceInfoFromStruct(s))
	}
	return out, nil
}

func withRequestID(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, RequestIDKey, uuid.NewString())
}
