package hdi

import (
	"sync"
	"sync/atomic"
)

// ObjectCollector hands out at most one live wrapper per implementation
// object. Implementation objects are identified by their handle in the
// collector's HandleTable.
//
// A wrapper whose reference count has dropped to zero but whose mapping is
// still present is being torn down; GetOrNewWrapper waits for RemoveMapping
// in that case.
type ObjectCollector struct {
	handles *HandleTable
	logger  Logger

	mu           sync.Mutex
	removed      *sync.Cond
	constructors map[string]WrapperFactory
	objects      map[Handle]RemoteObject
}

// NewObjectCollector returns a collector resolving implementation handles
// through handles.
func NewObjectCollector(handles *HandleTable, logger Logger) *ObjectCollector {
	if logger == nil {
		logger = NewNopLogger()
	}
	c := &ObjectCollector{
		handles:      handles,
		logger:       logger,
		constructors: make(map[string]WrapperFactory),
		objects:      make(map[Handle]RemoteObject),
	}
	c.removed = sync.NewCond(&c.mu)
	return c
}

// RegisterFactory installs the wrapper factory for descriptor, replacing any
// previous one.
func (c *ObjectCollector) RegisterFactory(descriptor string, factory WrapperFactory) bool {
	if descriptor == "" || factory == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constructors[descriptor] = factory
	return true
}

// UnregisterFactory removes the factory for descriptor.
func (c *ObjectCollector) UnregisterFactory(descriptor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.constructors, descriptor)
}

// NewWrapper always builds a fresh wrapper, bypassing the identity cache.
func (c *ObjectCollector) NewWrapper(impl Handle, descriptor string) RemoteObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newWrapperLocked(impl, descriptor)
}

// GetOrNewWrapper returns the live wrapper for impl, building and caching
// one when none exists. The caller owns one reference on the result.
func (c *ObjectCollector) GetOrNewWrapper(impl Handle, descriptor string) RemoteObject {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		obj, ok := c.objects[impl]
		if !ok {
			break
		}
		if obj.TryIncRef() {
			return obj
		}
		if h, ok := obj.(lastRefHooked); ok && !h.hasLastRefHook() {
			c.logger.Warn("wrapper has no last-reference hook, waiting for an explicit RemoveMapping",
				"descriptor", descriptor, "handle", uint64(impl))
		}
		// The last reference is gone; wait for the teardown to unmap it.
		c.removed.Wait()
	}

	obj := c.newWrapperLocked(impl, descriptor)
	if obj == nil {
		return nil
	}
	obj.IncRef()
	c.objects[impl] = obj
	return obj
}

// RemoveMapping erases the wrapper mapping for impl. It must be called when
// the wrapper's last reference is released, before the wrapper is freed.
func (c *ObjectCollector) RemoveMapping(impl Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[impl]; !ok {
		return false
	}
	delete(c.objects, impl)
	c.removed.Broadcast()
	return true
}

// Len returns the number of cached mappings.
func (c *ObjectCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

func (c *ObjectCollector) newWrapperLocked(impl Handle, descriptor string) RemoteObject {
	if impl.IsNull() {
		return nil
	}
	factory, ok := c.constructors[descriptor]
	if !ok {
		c.logger.Error("no wrapper factory registered", "descriptor", descriptor)
		return nil
	}
	obj, ok := c.handles.Lookup(impl)
	if !ok {
		c.logger.Error("unknown implementation handle", "descriptor", descriptor, "handle", uint64(impl))
		return nil
	}
	return factory(obj)
}

type lastRefHooked interface {
	hasLastRefHook() bool
}

// RefBase is an embeddable external reference counter for wrappers. A fresh
// RefBase has no references; the collector takes the first one. When the
// count drops to zero OnLastRef runs; it must call RemoveMapping before the
// wrapper is discarded.
type RefBase struct {
	refs      atomic.Int32
	OnLastRef func()
}

func (r *RefBase) hasLastRefHook() bool { return r.OnLastRef != nil }

// RefCount reports the number of live references.
func (r *RefBase) RefCount() int32 { return r.refs.Load() }

// IncRef unconditionally adds a reference.
func (r *RefBase) IncRef() { r.refs.Add(1) }

// TryIncRef adds a reference only while at least one is held.
func (r *RefBase) TryIncRef() bool {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// DecRef drops a reference and runs OnLastRef when it was the last one.
func (r *RefBase) DecRef() {
	if r.refs.Add(-1) == 0 && r.OnLastRef != nil {
		r.OnLastRef()
	}
}
