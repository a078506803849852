//go:build darwin || freebsd || linux || netbsd

package hdi

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// NewSharedLibraryOpener returns an Opener that loads native shared objects
// with dlopen. Symbols are called with the platform C calling convention.
func NewSharedLibraryOpener() Opener {
	return OpenerFunc(openSharedLibrary)
}

type sharedLibrary struct {
	handle uintptr
	path   string
}

func openSharedLibrary(path string) (Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return &sharedLibrary{handle: h, path: path}, nil
}

func (so *sharedLibrary) Symbol(name string) (Func, bool) {
	addr, err := purego.Dlsym(so.handle, name)
	if err != nil || addr == 0 {
		return nil, false
	}
	return func(args ...uintptr) uintptr {
		r1, _, _ := purego.SyscallN(addr, args...)
		return r1
	}, true
}

func (so *sharedLibrary) Close() error {
	if err := purego.Dlclose(so.handle); err != nil {
		return fmt.Errorf("dlclose %s: %w", so.path, err)
	}
	return nil
}
