package hdi

import "sync"

// Handle is an opaque reference to an object that may live on the other side
// of a language or process boundary: a native pointer returned by a shared
// library, a wasm address, or a slot in a HandleTable. Zero is the null handle.
type Handle uintptr

// IsNull reports whether h is the null handle.
func (h Handle) IsNull() bool { return h == 0 }

// HandleTable binds Go objects to handles so that they can be passed through
// the function-pointer surfaces and used as identity keys.
//
// Thread-safe.
type HandleTable struct {
	mu      sync.RWMutex
	objects map[Handle]any
	next    Handle
}

// NewHandleTable returns an empty table. Handles start at 1.
func NewHandleTable() *HandleTable {
	return &HandleTable{objects: make(map[Handle]any), next: 1}
}

// Register stores v and returns a fresh handle for it. A nil v yields the
// null handle.
func (t *HandleTable) Register(v any) Handle {
	if v == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.next
	t.next++
	t.objects[h] = v
	return h
}

// Lookup returns the object bound to h.
func (t *HandleTable) Lookup(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.objects[h]
	return v, ok
}

// Unregister drops the binding for h. Unknown handles are ignored.
func (t *HandleTable) Unregister(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.objects, h)
}

// Len returns the number of live handles.
func (t *HandleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.objects)
}
