package hdi

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakeLibrary is an in-memory implementation library. Its constructor hands
// out increasing instance values starting at base; a zero base makes
// construction always fail.
type fakeLibrary struct {
	path    string
	symbols map[string]Func
	closed  atomic.Int32

	mu       sync.Mutex
	next     uintptr
	released []uintptr
}

func newFakeLibrary(path string, base uintptr, ctor, dtor string) *fakeLibrary {
	l := &fakeLibrary{path: path, symbols: make(map[string]Func), next: base}
	if ctor != "" {
		l.symbols[ctor] = func(...uintptr) uintptr {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.next == 0 {
				return 0
			}
			v := l.next
			l.next++
			return v
		}
	}
	if dtor != "" {
		l.symbols[dtor] = func(args ...uintptr) uintptr {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.released = append(l.released, args[0])
			return 0
		}
	}
	return l
}

func (l *fakeLibrary) Symbol(name string) (Func, bool) {
	fn, ok := l.symbols[name]
	return fn, ok
}

func (l *fakeLibrary) Close() error {
	l.closed.Add(1)
	return nil
}

func (l *fakeLibrary) Released() []uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uintptr(nil), l.released...)
}

// fakeOpener returns the library registered for a canonical path.
type fakeOpener struct {
	mu    sync.Mutex
	libs  map[string]*fakeLibrary
	opens []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{libs: make(map[string]*fakeLibrary)}
}

func (o *fakeOpener) add(lib *fakeLibrary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.libs[lib.path] = lib
}

func (o *fakeOpener) Open(path string) (Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens = append(o.opens, path)
	lib, ok := o.libs[path]
	if !ok {
		return nil, errors.New("no such image")
	}
	return lib, nil
}

func (o *fakeOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opens)
}

// recordingLogger keeps every message for assertions.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, level+": "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *recordingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
