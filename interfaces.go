package hdi

// Func is a resolved library export. Arguments and the result are raw
// machine words; a constructor takes none and returns the instance, a
// destructor takes the instance and its result is ignored.
type Func func(args ...uintptr) uintptr

// Opener opens implementation library images. It is the only place the
// loader touches the dynamic-linking machinery.
type Opener interface {
	Open(path string) (Library, error)
}

// Library is an open library image.
type Library interface {
	// Symbol resolves an exported function; ok is false when it is absent.
	Symbol(name string) (fn Func, ok bool)
	Close() error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Library, error)

func (f OpenerFunc) Open(path string) (Library, error) { return f(path) }

// RemoteObject is a cross-boundary wrapper whose lifetime is governed by an
// external reference count. Factories return wrappers holding no references.
type RemoteObject interface {
	// RefCount reports the number of live external references.
	RefCount() int32
	IncRef()
	// TryIncRef takes a reference only while the count is above zero.
	TryIncRef() bool
}

// WrapperFactory builds a wrapper around an implementation object. The
// wrapper must call ObjectCollector.RemoveMapping when its last reference is
// released (RefBase.OnLastRef); until then GetOrNewWrapper for the same
// object blocks.
type WrapperFactory func(impl any) RemoteObject
