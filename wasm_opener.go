package hdi

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// NewWasmOpener returns an Opener for implementation libraries shipped as
// WebAssembly modules. Each image gets its own wazero runtime, so closing a
// library tears down everything it instantiated. Exported functions play the
// role of symbols; the instance returned by the constructor is the i32/i64
// value the export yields.
//
// ctx is used for the lifetime of every runtime the opener creates.
func NewWasmOpener(ctx context.Context) Opener {
	return &wasmOpener{ctx: ctx}
}

type wasmOpener struct {
	ctx context.Context
}

func (o *wasmOpener) Open(path string) (Library, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	runtime := wazero.NewRuntime(o.ctx)
	module, err := runtime.Instantiate(o.ctx, image)
	if err != nil {
		_ = runtime.Close(o.ctx)
		return nil, fmt.Errorf("instantiating %s: %w", path, err)
	}
	return &wasmLibrary{ctx: o.ctx, runtime: runtime, module: module}, nil
}

type wasmLibrary struct {
	ctx     context.Context
	runtime wazero.Runtime
	module  api.Module

	// api.Function is not safe for concurrent calls.
	mu sync.Mutex
}

func (l *wasmLibrary) Symbol(name string) (Func, bool) {
	fn := l.module.ExportedFunction(name)
	if fn == nil {
		return nil, false
	}
	nparams := len(fn.Definition().ParamTypes())
	return func(args ...uintptr) uintptr {
		params := make([]uint64, nparams)
		for i := 0; i < nparams && i < len(args); i++ {
			params[i] = uint64(args[i])
		}

		l.mu.Lock()
		results, err := fn.Call(l.ctx, params...)
		l.mu.Unlock()
		if err != nil || len(results) == 0 {
			return 0
		}
		return uintptr(results[0])
	}, true
}

func (l *wasmLibrary) Close() error {
	return l.runtime.Close(l.ctx)
}
