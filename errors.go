package hdi

import "errors"

var (
	// ErrInvalidArgument is returned for empty descriptors, service names or handles.
	ErrInvalidArgument = errors.New("hdi: invalid argument")
	// ErrMalformed means the interface descriptor does not match pkg.vX_Y.IName.
	ErrMalformed = errors.New("hdi: malformed interface descriptor")
	// ErrEmptyName means nothing is left of the interface name once "I" is stripped.
	ErrEmptyName = errors.New("hdi: empty interface name")
	// ErrPathEscape means the library path canonicalizes outside the trusted directory.
	ErrPathEscape = errors.New("hdi: library path escapes trusted directory")
	// ErrNotFound means the library file does not exist.
	ErrNotFound = errors.New("hdi: library not found")
	// ErrLibraryOpen wraps a failure of the underlying opener.
	ErrLibraryOpen = errors.New("hdi: failed to open library")
	// ErrSymbolMissing means the mandatory constructor export is absent.
	ErrSymbolMissing = errors.New("hdi: constructor symbol missing")
	// ErrConstruction means the constructor returned a null instance.
	ErrConstruction = errors.New("hdi: no usable implementation")
	// ErrLookupMiss means an unknown descriptor, handle or service was requested.
	ErrLookupMiss = errors.New("hdi: lookup miss")
	// ErrUnsupported is returned by openers that cannot run on this platform.
	ErrUnsupported = errors.New("hdi: unsupported on this platform")
)
