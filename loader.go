package hdi

import (
	"fmt"
	"sort"
	"sync"
)

// Loader turns (descriptor, service) pairs into live implementation
// instances by opening libraries from the trusted directory.
//
// A library that produced an instance once stays open for the life of the
// Loader; only failed attempts close their image. One mutex serializes all
// loads and unloads, which is fine at service bring-up time.
type Loader struct {
	resolver *PathResolver
	opener   Opener
	logger   Logger

	mu    sync.Mutex
	impls map[string]*loadedLibrary // composed library path -> entry
}

type loadedLibrary struct {
	lib         Library
	constructor Func
	destructor  Func // nil when the library exports no release function
}

// LoaderConfig holds configuration for the loader
type LoaderConfig struct {
	Resolver *PathResolver
	Opener   Opener
	Logger   Logger
}

// NewLoader creates a loader. A nil Opener means native shared libraries,
// a nil Logger discards diagnostics.
func NewLoader(cfg LoaderConfig) *Loader {
	opener := cfg.Opener
	if opener == nil {
		opener = NewSharedLibraryOpener()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewPathResolver(DefaultConfig().TrustedDir())
	}
	return &Loader{
		resolver: resolver,
		opener:   opener,
		logger:   logger,
		impls:    make(map[string]*loadedLibrary),
	}
}

// Resolver returns the path resolver used by the loader.
func (l *Loader) Resolver() *PathResolver { return l.resolver }

// Load constructs a new implementation instance for desc/serviceName.
// Every call constructs a new instance. Failures are logged and yield the
// null handle.
func (l *Loader) Load(desc, serviceName string) Handle {
	h, err := l.TryLoad(desc, serviceName)
	if err != nil {
		l.logger.Error("failed to load hdi implementation",
			"descriptor", desc, "service", serviceName, "error", err)
		return 0
	}
	return h
}

// TryLoad is Load with the failure reason returned instead of logged.
func (l *Loader) TryLoad(desc, serviceName string) (Handle, error) {
	lp, err := l.resolver.Resolve(desc, serviceName)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if impl, ok := l.impls[lp.Path]; ok {
		instance := Handle(impl.constructor())
		if instance.IsNull() {
			return 0, fmt.Errorf("%w: %s", ErrConstruction, lp.Path)
		}
		return instance, nil
	}

	lib, err := l.opener.Open(lp.Canonical)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrLibraryOpen, lp.Canonical, err)
	}

	sym := lp.Descriptor.ConstructorSymbol()
	constructor, ok := lib.Symbol(sym)
	if !ok {
		l.closeLibrary(lib, lp.Path)
		return 0, fmt.Errorf("%w: %s in %s", ErrSymbolMissing, sym, lp.Path)
	}
	destructor, ok := lib.Symbol(lp.Descriptor.DestructorSymbol())
	if !ok {
		l.logger.Warn("hdi implementation has no release function, instances will leak",
			"path", lp.Path, "symbol", lp.Descriptor.DestructorSymbol())
	}

	instance := Handle(constructor())
	if instance.IsNull() {
		l.closeLibrary(lib, lp.Path)
		return 0, fmt.Errorf("%w: %s", ErrConstruction, lp.Path)
	}

	l.impls[lp.Path] = &loadedLibrary{lib: lib, constructor: constructor, destructor: destructor}
	l.logger.Debug("hdi implementation library loaded", "path", lp.Path, "canonical", lp.Canonical)
	return instance, nil
}

// Unload releases instance through the library's release function. When the
// descriptor does not resolve, the library was never loaded, or it exports
// no release function, the instance is left alone.
func (l *Loader) Unload(desc, serviceName string, instance Handle) {
	if instance.IsNull() {
		return
	}
	lp, err := l.resolver.Resolve(desc, serviceName)
	if err != nil {
		l.logger.Error("failed to parse hdi interface info",
			"descriptor", desc, "service", serviceName, "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	impl, ok := l.impls[lp.Path]
	if !ok || impl.destructor == nil {
		l.logger.Debug("no release function for hdi instance", "path", lp.Path)
		return
	}
	impl.destructor(uintptr(instance))
}

// Libraries returns the paths of all libraries held open, sorted.
func (l *Loader) Libraries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.impls))
	for p := range l.impls {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) closeLibrary(lib Library, path string) {
	if err := lib.Close(); err != nil {
		l.logger.Warn("failed to close hdi library", "path", path, "error", err)
	}
}
