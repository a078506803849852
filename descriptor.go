package hdi

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Interface descriptor format: pkg.sub.v1_0.IFoo
var descriptorPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)*)\.` +
	`[Vv]([0-9]+)_([0-9]+)\.` +
	`([a-zA-Z_][a-zA-Z0-9_]*)$`)

// Descriptor is a parsed interface descriptor.
type Descriptor struct {
	Namespace []string
	Major     uint32
	Minor     uint32
	Name      string // final identifier as written, e.g. "IFoo"
	BaseName  string // Name without the leading "I", e.g. "Foo"
}

// String renders the descriptor in canonical lower-case version form.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s.v%d_%d.%s", strings.Join(d.Namespace, "."), d.Major, d.Minor, d.Name)
}

// ConstructorSymbol is the mandatory export of an implementation library.
func (d Descriptor) ConstructorSymbol() string { return d.BaseName + "ImplGetInstance" }

// DestructorSymbol is the optional export releasing an instance.
func (d Descriptor) DestructorSymbol() string { return d.BaseName + "ImplRelease" }

// ParseDescriptor validates desc and splits it into namespace, version and name.
func ParseDescriptor(desc string) (Descriptor, error) {
	if desc == "" {
		return Descriptor{}, fmt.Errorf("%w: empty interface descriptor", ErrInvalidArgument)
	}
	m := descriptorPattern.FindStringSubmatch(desc)
	if m == nil {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrMalformed, desc)
	}
	major, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: major version of %q: %v", ErrMalformed, desc, err)
	}
	minor, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: minor version of %q: %v", ErrMalformed, desc, err)
	}

	name := m[4]
	base := strings.TrimPrefix(name, "I")
	if base == "" {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrEmptyName, desc)
	}

	return Descriptor{
		Namespace: strings.Split(m[1], "."),
		Major:     uint32(major),
		Minor:     uint32(minor),
		Name:      name,
		BaseName:  base,
	}, nil
}

// FileToken turns an interface base name into the token used in library
// file names. Other tooling reproduces this rule, so it must not change:
// an upper-case letter past index 1 gets a "_" before it, every upper-case
// letter is folded to lower case, everything else is copied.
//
//	Foo    -> foo
//	FooBar -> foo_bar
//	ABCd   -> ab_cd
func FileToken(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if i > 1 {
				b.WriteByte('_')
			}
			b.WriteByte(c + ('a' - 'A'))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// LibraryPath is a resolved, trusted location of an implementation library.
type LibraryPath struct {
	Descriptor  Descriptor
	ServiceName string
	// Path is the composed path; the loader registry is keyed by it.
	Path string
	// Canonical is Path with symlinks and relative segments resolved.
	Canonical string
}

// BaseName is a shortcut for Descriptor.BaseName.
func (p LibraryPath) BaseName() string { return p.Descriptor.BaseName }

// PathResolver maps (descriptor, service) pairs to libraries inside one
// trusted directory.
type PathResolver struct {
	dir       string
	canonical string
}

// NewPathResolver returns a resolver rooted at trustedDir. The directory is
// canonicalized once so that a symlinked library root still matches.
func NewPathResolver(trustedDir string) *PathResolver {
	dir := filepath.Clean(trustedDir)
	canonical := dir
	if resolved, err := canonicalize(dir); err == nil {
		canonical = resolved
	} else if abs, err := filepath.Abs(dir); err == nil {
		canonical = abs
	}
	return &PathResolver{dir: dir, canonical: canonical}
}

// Dir returns the trusted directory as configured.
func (r *PathResolver) Dir() string { return r.dir }

// Compose builds the library path for d and serviceName without touching the
// filesystem.
func (r *PathResolver) Compose(d Descriptor, serviceName string) string {
	return fmt.Sprintf("%s/lib%s_%s_%d.%d.z.so", r.dir, FileToken(d.BaseName), serviceName, d.Major, d.Minor)
}

// Resolve parses desc and locates the implementation library for
// serviceName. The returned path is guaranteed to exist and to live strictly
// inside the trusted directory.
func (r *PathResolver) Resolve(desc, serviceName string) (LibraryPath, error) {
	if serviceName == "" {
		return LibraryPath{}, fmt.Errorf("%w: empty service name", ErrInvalidArgument)
	}
	d, err := ParseDescriptor(desc)
	if err != nil {
		return LibraryPath{}, err
	}

	path := r.Compose(d, serviceName)
	canonical, err := canonicalize(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LibraryPath{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return LibraryPath{}, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	if !r.contains(canonical) {
		return LibraryPath{}, fmt.Errorf("%w: %s resolves to %s", ErrPathEscape, path, canonical)
	}

	return LibraryPath{
		Descriptor:  d,
		ServiceName: serviceName,
		Path:        path,
		Canonical:   canonical,
	}, nil
}

// contains reports whether canonical lies strictly inside the trusted
// directory.
func (r *PathResolver) contains(canonical string) bool {
	prefix := r.canonical
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return len(canonical) > len(prefix) && strings.HasPrefix(canonical, prefix)
}

// canonicalize resolves path the way realpath does. ".." segments are
// applied after the symlinks before them are expanded, so the path is never
// cleaned lexically first.
func canonicalize(path string) (string, error) {
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = wd + string(os.PathSeparator) + path
	}
	return filepath.EvalSymlinks(path)
}
