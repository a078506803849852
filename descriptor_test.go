package hdi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Descriptor
		wantErr error
	}{
		{
			name: "sample",
			in:   "ohos.hdi.sample.v1_0.IFoo",
			want: Descriptor{Namespace: []string{"ohos", "hdi", "sample"}, Major: 1, Minor: 0, Name: "IFoo", BaseName: "Foo"},
		},
		{
			name: "upper case version marker",
			in:   "a.V2_13.IBarBaz",
			want: Descriptor{Namespace: []string{"a"}, Major: 2, Minor: 13, Name: "IBarBaz", BaseName: "BarBaz"},
		},
		{
			name: "no leading I",
			in:   "pkg.v1_0.Foo",
			want: Descriptor{Namespace: []string{"pkg"}, Major: 1, Minor: 0, Name: "Foo", BaseName: "Foo"},
		},
		{name: "empty", in: "", wantErr: ErrInvalidArgument},
		{name: "missing version", in: "ohos.hdi.IFoo", wantErr: ErrMalformed},
		{name: "missing namespace", in: "v1_0.IFoo", wantErr: ErrMalformed},
		{name: "trailing dot", in: "ohos.hdi.v1_0.IFoo.", wantErr: ErrMalformed},
		{name: "ident starts with digit", in: "ohos.1hdi.v1_0.IFoo", wantErr: ErrMalformed},
		{name: "major overflows u32", in: "ohos.v4294967296_0.IFoo", wantErr: ErrMalformed},
		{name: "only I", in: "ohos.hdi.v1_0.I", wantErr: ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDescriptor(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseDescriptor(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDescriptor(%q) error = %v", tt.in, err)
			}
			if got.String() != tt.want.String() || got.BaseName != tt.want.BaseName ||
				got.Major != tt.want.Major || got.Minor != tt.want.Minor || len(got.Namespace) != len(tt.want.Namespace) {
				t.Errorf("ParseDescriptor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDescriptorSymbols(t *testing.T) {
	d, err := ParseDescriptor("ohos.hdi.sample.v1_0.IFoo")
	if err != nil {
		t.Fatal(err)
	}
	if got := d.ConstructorSymbol(); got != "FooImplGetInstance" {
		t.Errorf("ConstructorSymbol() = %q", got)
	}
	if got := d.DestructorSymbol(); got != "FooImplRelease" {
		t.Errorf("DestructorSymbol() = %q", got)
	}
}

func TestFileToken(t *testing.T) {
	tests := map[string]string{
		"Foo":       "foo",
		"FooBar":    "foo_bar",
		"ABCd":      "ab_cd",
		"AB":        "ab",
		"usb_Fn":    "usb__fn",
		"x":         "x",
		"":          "",
		"DeviceIDs": "device_i_ds",
	}
	for in, want := range tests {
		if got := FileToken(in); got != want {
			t.Errorf("FileToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("lib"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPathResolverCompose(t *testing.T) {
	r := NewPathResolver("/vendor/lib64")
	d, err := ParseDescriptor("ohos.hdi.sample.v1_0.IFoo")
	if err != nil {
		t.Fatal(err)
	}
	want := "/vendor/lib64/libfoo_sample_driver_service_1.0.z.so"
	if got := r.Compose(d, "sample_driver_service"); got != want {
		t.Errorf("Compose() = %q, want %q", got, want)
	}

	d, err = ParseDescriptor("ohos.hdi.usb.V2_3.IUsbInterface")
	if err != nil {
		t.Fatal(err)
	}
	want = "/vendor/lib64/libusb_interface_usb_service_2.3.z.so"
	if got := r.Compose(d, "usb_service"); got != want {
		t.Errorf("Compose() = %q, want %q", got, want)
	}
}

func TestPathResolverResolve(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "lib64")
	touch(t, filepath.Join(dir, "libfoo_sample_driver_service_1.0.z.so"))

	r := NewPathResolver(dir)
	lp, err := r.Resolve("ohos.hdi.sample.v1_0.IFoo", "sample_driver_service")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := filepath.Join(dir, "libfoo_sample_driver_service_1.0.z.so"); lp.Path != want {
		t.Errorf("Path = %q, want %q", lp.Path, want)
	}
	resolved, err := filepath.EvalSymlinks(lp.Path)
	if err != nil {
		t.Fatal(err)
	}
	if lp.Canonical != resolved {
		t.Errorf("Canonical = %q, want %q", lp.Canonical, resolved)
	}
	if lp.BaseName() != "Foo" || lp.ServiceName != "sample_driver_service" {
		t.Errorf("unexpected LibraryPath %+v", lp)
	}
}

func TestPathResolverErrors(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "lib64")
	touch(t, filepath.Join(dir, "libfoo_ok_1.0.z.so"))

	// A library outside the trusted directory, reachable through a symlink.
	outside := filepath.Join(root, "evil", "libfoo_x_1.0.z.so")
	touch(t, outside)
	if err := os.Symlink(outside, filepath.Join(dir, "libfoo_link_1.0.z.so")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	r := NewPathResolver(dir)
	tests := []struct {
		name    string
		desc    string
		service string
		wantErr error
	}{
		{"empty service", "ohos.hdi.sample.v1_0.IFoo", "", ErrInvalidArgument},
		{"empty descriptor", "", "ok", ErrInvalidArgument},
		{"malformed", "ohos.hdi.IFoo", "ok", ErrMalformed},
		{"empty name", "ohos.hdi.v1_0.I", "ok", ErrEmptyName},
		{"missing file", "ohos.hdi.sample.v1_0.IFoo", "absent", ErrNotFound},
		{"wrong version", "ohos.hdi.sample.v1_1.IFoo", "ok", ErrNotFound},
		{"symlink escape", "ohos.hdi.sample.v1_0.IFoo", "link", ErrPathEscape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.desc, tt.service)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve(%q, %q) error = %v, want %v", tt.desc, tt.service, err, tt.wantErr)
			}
		})
	}
}

func TestPathResolverParentSegmentEscape(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "lib")
	if err := os.MkdirAll(filepath.Join(dir, "libfoo_x"), 0o755); err != nil {
		t.Fatal(err)
	}
	// lib/libfoo_x/../../escape_1.0.z.so == root/escape_1.0.z.so
	touch(t, filepath.Join(root, "escape_1.0.z.so"))

	_, err := NewPathResolver(dir).Resolve("ohos.hdi.v1_0.IFoo", "x/../../escape")
	if !errors.Is(err, ErrPathEscape) {
		t.Fatalf("Resolve() error = %v, want ErrPathEscape", err)
	}
}

func TestPathResolverParentSegmentAfterSymlink(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "lib")
	// lib/libfoo_x -> outside/a/b, so lib/libfoo_x/../y_1.0.z.so is
	// outside/a/y_1.0.z.so. Cleaning the text first would name lib/y_1.0.z.so.
	if err := os.MkdirAll(filepath.Join(root, "outside", "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(root, "outside", "a", "y_1.0.z.so"))
	touch(t, filepath.Join(dir, "y_1.0.z.so"))
	if err := os.Symlink(filepath.Join(root, "outside", "a", "b"), filepath.Join(dir, "libfoo_x")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	lp, err := NewPathResolver(dir).Resolve("ohos.hdi.v1_0.IFoo", "x/../y")
	if !errors.Is(err, ErrPathEscape) {
		t.Fatalf("Resolve() = %+v, %v; want ErrPathEscape", lp, err)
	}
}

func TestPathResolverRelativeDir(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "lib", "libfoo_svc_1.0.z.so"))
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	lp, err := NewPathResolver("lib").Resolve("a.v1_0.IFoo", "svc")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if lp.Path != "lib/libfoo_svc_1.0.z.so" || !filepath.IsAbs(lp.Canonical) {
		t.Errorf("Resolve() = %+v", lp)
	}
}

func TestPathResolverContains(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/", "/libfoo_svc_1.0.z.so", true},
		{"/", "/", false},
		{"/vendor/lib64", "/vendor/lib64/libfoo_svc_1.0.z.so", true},
		{"/vendor/lib64", "/vendor/lib64", false},
		{"/vendor/lib64", "/vendor/lib64x/libfoo_svc_1.0.z.so", false},
		{"/vendor/lib64", "/vendor/lib/libfoo_svc_1.0.z.so", false},
	}
	for _, tt := range tests {
		r := &PathResolver{dir: tt.dir, canonical: tt.dir}
		if got := r.contains(tt.path); got != tt.want {
			t.Errorf("contains(%q) under %q = %v, want %v", tt.path, tt.dir, got, tt.want)
		}
	}
}

func TestPathResolverSymlinkedRoot(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real")
	touch(t, filepath.Join(target, "libfoo_svc_1.0.z.so"))
	link := filepath.Join(root, "lib64")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	lp, err := NewPathResolver(link).Resolve("a.v1_0.IFoo", "svc")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Dir(lp.Path) != link {
		t.Errorf("Path = %q, want it under %q", lp.Path, link)
	}
}
