//go:build !(darwin || freebsd || linux || netbsd)

package hdi

import "fmt"

// NewSharedLibraryOpener returns an Opener that always fails: native
// implementation libraries are only supported on unix-like systems.
func NewSharedLibraryOpener() Opener {
	return OpenerFunc(func(path string) (Library, error) {
		return nil, fmt.Errorf("%w: open %s", ErrUnsupported, path)
	})
}
