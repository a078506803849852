package hdi

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

// startServiceManager serves reg over an in-memory listener and returns a
// connected client. The returned func reports the request ids the server
// received so far.
func startServiceManager(t *testing.T, reg *ServiceRegistry) (*RemoteServiceManager, func() []string) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	var mu sync.Mutex
	var seen []string
	record := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			mu.Lock()
			seen = append(seen, md.Get(RequestIDKey)...)
			mu.Unlock()
		}
		return handler(ctx, req)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeServiceManager(ctx, lis, reg, grpc.UnaryInterceptor(record)) }()

	sm, err := DialServiceManager("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		cancel()
		t.Fatalf("DialServiceManager() error = %v", err)
	}
	t.Cleanup(func() {
		sm.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("ServeServiceManager() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("ServeServiceManager() did not stop")
		}
	})
	return sm, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), seen...)
	}
}

func TestServiceRegistryPublish(t *testing.T) {
	reg := NewServiceRegistry(nil)
	if err := reg.Publish(ServiceInfo{Name: "  "}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Publish(empty name) error = %v", err)
	}
	if err := reg.Publish(ServiceInfo{Name: "x", Descriptor: "bad"}); !errors.Is(err, ErrMalformed) {
		t.Errorf("Publish(bad descriptor) error = %v", err)
	}
	if err := reg.Publish(ServiceInfo{Name: "b_service"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Publish(ServiceInfo{Name: "a_service", Descriptor: sampleDescriptor}); err != nil {
		t.Fatal(err)
	}
	got := reg.Services()
	if len(got) != 2 || got[0].Name != "a_service" || got[1].Name != "b_service" {
		t.Errorf("Services() = %+v", got)
	}
	if !reg.Withdraw("b_service") || reg.Withdraw("b_service") {
		t.Error("Withdraw() did not report publication state")
	}
	if _, ok := reg.Lookup("b_service"); ok {
		t.Error("withdrawn service still visible")
	}
}

func TestRemoteServiceManagerRoundTrip(t *testing.T) {
	reg := NewServiceRegistry(NewNopLogger())
	want := ServiceInfo{Name: "sample_driver_service", DevClass: 3, Descriptor: sampleDescriptor, Address: "unix:///dev/foo.sock"}
	if err := reg.Publish(want); err != nil {
		t.Fatal(err)
	}
	if err := reg.Publish(ServiceInfo{Name: "usb_service", DevClass: 1}); err != nil {
		t.Fatal(err)
	}
	sm, seen := startServiceManager(t, reg)
	ctx := context.Background()

	got, err := sm.GetService(ctx, "sample_driver_service")
	if err != nil {
		t.Fatalf("GetService() error = %v", err)
	}
	if got != want {
		t.Errorf("GetService() = %+v, want %+v", got, want)
	}

	if _, err := sm.GetService(ctx, "missing_service"); !errors.Is(err, ErrLookupMiss) {
		t.Errorf("GetService(missing) error = %v, want ErrLookupMiss", err)
	}
	if _, err := sm.GetService(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("GetService(\"\") error = %v, want ErrInvalidArgument", err)
	}

	all, err := sm.ListAllService(ctx)
	if err != nil {
		t.Fatalf("ListAllService() error = %v", err)
	}
	if len(all) != 2 || all[0] != want || all[1].Name != "usb_service" || all[1].DevClass != 1 {
		t.Errorf("ListAllService() = %+v", all)
	}

	ids := seen()
	if len(ids) != 3 {
		t.Fatalf("server saw %d request ids, want 3", len(ids))
	}
	if ids[0] == "" || ids[0] == ids[1] {
		t.Errorf("request ids not unique: %v", ids)
	}
}

type fakeBinder map[string]ServiceInfo

func (f fakeBinder) GetService(_ context.Context, name string) (ServiceInfo, error) {
	info, ok := f[name]
	if !ok {
		return ServiceInfo{}, ErrLookupMiss
	}
	return info, nil
}

func TestServiceManagerPassthrough(t *testing.T) {
	b, lib := newTestBroker(t)
	m, err := NewServiceManager(ServiceManagerConfig{Broker: b})
	if err != nil {
		t.Fatal(err)
	}

	svc, err := m.Get(context.Background(), sampleDescriptor, "sample_driver_service", BindPassthrough)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if svc.Mode != BindPassthrough || svc.Instance.IsNull() {
		t.Errorf("Get() = %+v", svc)
	}
	svc.Release()
	svc.Release()
	if got := lib.Released(); len(got) != 1 || got[0] != uintptr(svc.Instance) {
		t.Errorf("released = %v, want exactly the instance once", got)
	}

	if _, err := m.Get(context.Background(), sampleDescriptor, "absent", BindPassthrough); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(absent) error = %v, want ErrNotFound", err)
	}
}

func TestServiceManagerRemote(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	m, err := NewServiceManager(ServiceManagerConfig{Broker: b})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, sampleDescriptor, "sample_driver_service", BindRemote); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Get() without remote error = %v, want ErrUnsupported", err)
	}

	info := ServiceInfo{Name: "sample_driver_service", Descriptor: sampleDescriptor, Address: "unix:///dev/foo.sock"}
	m, err = NewServiceManager(ServiceManagerConfig{Broker: b, Remote: fakeBinder{info.Name: info}})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := m.Get(ctx, sampleDescriptor, "sample_driver_service", BindRemote)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if svc.Mode != BindRemote || svc.Remote != info || !svc.Instance.IsNull() {
		t.Errorf("Get() = %+v", svc)
	}
	svc.Release()

	if _, err := m.Get(ctx, "ohos.hdi.other.v1_0.IBar", "sample_driver_service", BindRemote); !errors.Is(err, ErrLookupMiss) {
		t.Errorf("Get(wrong descriptor) error = %v, want ErrLookupMiss", err)
	}
	if _, err := m.Get(ctx, sampleDescriptor, "unknown", BindRemote); !errors.Is(err, ErrLookupMiss) {
		t.Errorf("Get(unknown) error = %v, want ErrLookupMiss", err)
	}
	if _, err := m.Get(ctx, sampleDescriptor, "sample_driver_service", BindMode("SIDEWAYS")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Get(bad mode) error = %v, want ErrInvalidArgument", err)
	}
}

func TestNewServiceManagerRequiresBroker(t *testing.T) {
	if _, err := NewServiceManager(ServiceManagerConfig{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewServiceManager() error = %v, want ErrInvalidArgument", err)
	}
}
