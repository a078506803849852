package hdi

import (
	"context"
	"fmt"
	"sync"
)

// ServiceBinder is the subset of RemoteServiceManager the ServiceManager
// needs for remote binding.
type ServiceBinder interface {
	GetService(ctx context.Context, name string) (ServiceInfo, error)
}

// Service is a bound service. Exactly one of Instance and Remote is set,
// depending on Mode.
type Service struct {
	Mode        BindMode
	Descriptor  string
	ServiceName string

	// Instance is the in-process implementation for passthrough bindings.
	Instance Handle
	// Remote describes where a remote binding is served.
	Remote ServiceInfo

	release func()
	once    sync.Once
}

// Release gives a passthrough instance back to its library. It is safe to
// call more than once; remote services need no release.
func (s *Service) Release() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// ServiceManager decides between passthrough and remote binding.
type ServiceManager struct {
	loader *Loader
	remote ServiceBinder
	logger Logger
}

// ServiceManagerConfig holds configuration for the service manager.
// Remote may be nil when only passthrough bindings are used.
type ServiceManagerConfig struct {
	Broker *Broker
	Remote ServiceBinder
	Logger Logger
}

// NewServiceManager creates a service manager on top of a broker.
func NewServiceManager(cfg ServiceManagerConfig) (*ServiceManager, error) {
	if cfg.Broker == nil {
		return nil, fmt.Errorf("%w: broker is required", ErrInvalidArgument)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = cfg.Broker.Logger()
	}
	return &ServiceManager{loader: cfg.Broker.Loader, remote: cfg.Remote, logger: logger}, nil
}

// Get binds serviceName implementing descriptor in the requested mode.
func (m *ServiceManager) Get(ctx context.Context, descriptor, serviceName string, mode BindMode) (*Service, error) {
	switch mode {
	case BindPassthrough:
		instance, err := m.loader.TryLoad(descriptor, serviceName)
		if err != nil {
			m.logger.Error("passthrough bind failed",
				"descriptor", descriptor, "service", serviceName, "error", err)
			return nil, err
		}
		return &Service{
			Mode:        BindPassthrough,
			Descriptor:  descriptor,
			ServiceName: serviceName,
			Instance:    instance,
			release: func() {
				m.loader.Unload(descriptor, serviceName, instance)
			},
		}, nil

	case BindRemote:
		if m.remote == nil {
			return nil, fmt.Errorf("%w: no remote service manager configured", ErrUnsupported)
		}
		info, err := m.remote.GetService(ctx, serviceName)
		if err != nil {
			m.logger.Error("remote bind failed",
				"descriptor", descriptor, "service", serviceName, "error", err)
			return nil, err
		}
		if descriptor != "" && info.Descriptor != "" && info.Descriptor != descriptor {
			return nil, fmt.Errorf("%w: service %s implements %s, not %s",
				ErrLookupMiss, serviceName, info.Descriptor, descriptor)
		}
		return &Service{
			Mode:        BindRemote,
			Descriptor:  descriptor,
			ServiceName: serviceName,
			Remote:      info,
		}, nil

	default:
		return nil, fmt.Errorf("%w: bind mode %q", ErrInvalidArgument, mode)
	}
}
