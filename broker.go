package hdi

import "sync"

// Broker owns the loader registry and both identity caches. Tests and
// embedders build their own; generated glue that cannot carry a Broker
// around uses the package-level functions, which act on Default().
type Broker struct {
	cfg    Config
	logger Logger
	clock  Clock

	Handles *HandleTable
	Loader  *Loader
	Objects *ObjectCollector
	Stubs   *StubCollector
}

// NewBroker wires a broker from cfg. Zero dependencies get defaults: a
// charmbracelet logger, the native shared library opener and the system clock.
func NewBroker(cfg Config, deps Dependencies) *Broker {
	deps = deps.withDefaults(cfg)
	handles := NewHandleTable()
	return &Broker{
		cfg:     cfg,
		logger:  deps.Logger,
		clock:   deps.Clock,
		Handles: handles,
		Loader: NewLoader(LoaderConfig{
			Resolver: NewPathResolver(cfg.TrustedDir()),
			Opener:   deps.Opener,
			Logger:   deps.Logger,
		}),
		Objects: NewObjectCollector(handles, deps.Logger),
		Stubs:   NewStubCollector(deps.Logger),
	}
}

// Config returns the configuration the broker was built with.
func (b *Broker) Config() Config { return b.cfg }

// Logger returns the broker's logger.
func (b *Broker) Logger() Logger { return b.logger }

func (b *Broker) Clock() Clock { return b.clock }

// NewStatusWatcher builds a watcher over lister. Zero Interval, Logger and
// Clock fields are taken from the broker.
func (b *Broker) NewStatusWatcher(cfg StatusWatcherConfig) *StatusWatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = b.cfg.WatchInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = b.logger
	}
	if cfg.Clock == nil {
		cfg.Clock = b.clock
	}
	return NewStatusWatcher(cfg)
}

var (
	defaultMu     sync.Mutex
	defaultBroker *Broker
)

// Default returns the process-wide broker, building it from DefaultConfig on
// first use.
func Default() *Broker {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBroker == nil {
		defaultBroker = NewBroker(DefaultConfig(), Dependencies{})
	}
	return defaultBroker
}

// SetDefault replaces the process-wide broker. Call it before any glue runs.
func SetDefault(b *Broker) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBroker = b
}

// LoadImplementation loads an implementation instance with the default broker.
func LoadImplementation(descriptor, serviceName string) Handle {
	return Default().Loader.Load(descriptor, serviceName)
}

// UnloadImplementation releases an instance obtained from LoadImplementation.
func UnloadImplementation(descriptor, serviceName string, instance Handle) {
	Default().Loader.Unload(descriptor, serviceName, instance)
}

// StubConstructorRegister registers a stub constructor with the default broker.
func StubConstructorRegister(descriptor string, cons *StubConstructor) {
	Default().Stubs.RegisterStubFactory(descriptor, cons)
}

// StubConstructorUnregister removes a stub constructor from the default broker.
func StubConstructorUnregister(descriptor string, cons *StubConstructor) {
	Default().Stubs.UnregisterStubFactory(descriptor, cons)
}

// StubCollectorGetOrNewObject returns the stub for service from the default broker.
func StubCollectorGetOrNewObject(descriptor string, service Handle) Handle {
	return Default().Stubs.GetOrNewStub(descriptor, service)
}

// StubCollectorRemoveObject removes the stub for service from the default broker.
func StubCollectorRemoveObject(descriptor string, service Handle) {
	Default().Stubs.RemoveStub(descriptor, service)
}
