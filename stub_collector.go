package hdi

import "sync"

// StubConstructor is the constructor/destructor pair registered by generated
// glue for a service exposed as a plain function table.
type StubConstructor struct {
	Constructor func(service Handle) Handle
	Destructor  func(stub Handle)
}

// StubCollector caches one stub per service handle. Unlike ObjectCollector
// there is no reference counting: callers must not race GetOrNewStub against
// RemoveStub for the same service.
//
// Lock order is stubMu then consMu, everywhere.
type StubCollector struct {
	logger Logger

	stubMu sync.Mutex
	stubs  map[Handle]Handle // service -> stub

	consMu       sync.Mutex
	constructors map[string]*StubConstructor
}

// NewStubCollector returns an empty collector.
func NewStubCollector(logger Logger) *StubCollector {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &StubCollector{
		logger:       logger,
		stubs:        make(map[Handle]Handle),
		constructors: make(map[string]*StubConstructor),
	}
}

// RegisterStubFactory registers cons for descriptor. The first registration
// wins; repeats are logged and ignored.
func (c *StubCollector) RegisterStubFactory(descriptor string, cons *StubConstructor) {
	if descriptor == "" || cons == nil {
		return
	}
	c.consMu.Lock()
	defer c.consMu.Unlock()
	if _, ok := c.constructors[descriptor]; ok {
		c.logger.Error("repeat registration of stub constructor", "descriptor", descriptor)
		return
	}
	c.constructors[descriptor] = cons
}

// UnregisterStubFactory removes the registration for descriptor regardless
// of which constructor pair is passed.
func (c *StubCollector) UnregisterStubFactory(descriptor string, cons *StubConstructor) {
	if descriptor == "" || cons == nil {
		return
	}
	c.consMu.Lock()
	defer c.consMu.Unlock()
	delete(c.constructors, descriptor)
}

// GetOrNewStub returns the cached stub for service or constructs one.
func (c *StubCollector) GetOrNewStub(descriptor string, service Handle) Handle {
	if descriptor == "" || service.IsNull() {
		return 0
	}
	c.stubMu.Lock()
	defer c.stubMu.Unlock()
	if stub, ok := c.stubs[service]; ok {
		return stub
	}

	c.consMu.Lock()
	defer c.consMu.Unlock()
	cons, ok := c.constructors[descriptor]
	if !ok {
		c.logger.Error("no stub constructor", "descriptor", descriptor)
		return 0
	}
	if cons.Constructor == nil {
		c.logger.Error("no stub constructor method", "descriptor", descriptor)
		return 0
	}
	stub := cons.Constructor(service)
	if stub.IsNull() {
		c.logger.Error("failed to construct stub", "descriptor", descriptor)
		return 0
	}
	c.stubs[service] = stub
	return stub
}

// RemoveStub destroys and forgets the stub for service. When the descriptor
// has already been unregistered the mapping is kept and the stub leaks.
func (c *StubCollector) RemoveStub(descriptor string, service Handle) {
	if descriptor == "" || service.IsNull() {
		return
	}
	c.stubMu.Lock()
	defer c.stubMu.Unlock()
	stub, ok := c.stubs[service]
	if !ok {
		return
	}

	c.consMu.Lock()
	defer c.consMu.Unlock()
	cons, ok := c.constructors[descriptor]
	if !ok {
		// TODO: decide whether the mapping should be erased anyway; kept for now
		// so a later re-registration can still destroy the stub.
		c.logger.Error("no stub constructor, stub left in place", "descriptor", descriptor)
		return
	}
	if cons.Destructor != nil {
		cons.Destructor(stub)
	}
	delete(c.stubs, service)
}

// Len returns the number of cached stubs.
func (c *StubCollector) Len() int {
	c.stubMu.Lock()
	defer c.stubMu.Unlock()
	return len(c.stubs)
}
