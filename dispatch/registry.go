// Package dispatch is the single entry point application code uses to invoke
// privileged operations. The dispatcher decides per call whether the
// operation runs in-process (local mode) or is forwarded to the runtime
// process over the RFC channel (development mode), and returns a uniform
// result either way.
//
// Operations are declared statically: an Operation pairs a stable
// (module, function) name with at most one handler. The server resolves
// incoming calls against a Registry built once at startup: a closed
// allow-list, never an open-ended lookup of importable symbols.
package dispatch

import (
	"context"
	"fmt"

	"github.com/GaryOcean428/gary-zero-sub006/bridge"
)

// Handler is a synchronous operation implementation.
type Handler func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// AsyncHandler starts the operation and yields exactly one Outcome on the
// returned channel, which must be buffered so orphaned completions never
// block.
type AsyncHandler func(ctx context.Context, args []any, kwargs map[string]any) <-chan bridge.Outcome

// Operation is one remotely invokable function. Module and Function form its
// stable wire name. At most one of Handler/Async is set; a name-only
// Operation is legal on the development side, where the implementation lives
// in the runtime process.
type Operation struct {
	Module   string
	Function string
	Handler  Handler
	Async    AsyncHandler
}

// Sync declares a synchronous operation.
func Sync(module, function string, h Handler) Operation {
	return Operation{Module: module, Function: function, Handler: h}
}

// Async declares an asynchronous operation.
func Async(module, function string, h AsyncHandler) Operation {
	return Operation{Module: module, Function: function, Async: h}
}

// Remote declares a name-only operation whose implementation lives in the
// runtime process. Invoking it locally fails.
func Remote(module, function string) Operation {
	return Operation{Module: module, Function: function}
}

// Name returns the "module.function" form used in logs and affinity keys.
func (op Operation) Name() string {
	return op.Module + "." + op.Function
}

// named reports whether the operation resolves to stable wire names.
// Anonymous operations cannot cross the process boundary.
func (op Operation) named() bool {
	return op.Module != "" && op.Function != ""
}

// executable reports whether the operation can run in this process.
func (op Operation) executable() bool {
	return (op.Handler != nil) != (op.Async != nil)
}

// Bind closes the operation's handler over one call's arguments, yielding
// the task shape the bridge drives. Nil when the operation has no local
// handler.
func (op Operation) Bind(args []any, kwargs map[string]any) any {
	switch {
	case op.Handler != nil:
		return bridge.Task(func(ctx context.Context) (any, error) {
			return op.Handler(ctx, args, kwargs)
		})
	case op.Async != nil:
		return bridge.AsyncTask(func(ctx context.Context) <-chan bridge.Outcome {
			return op.Async(ctx, args, kwargs)
		})
	default:
		return nil
	}
}

type registryKey struct {
	module   string
	function string
}

// Registry is the closed set of RFC-eligible operations. Build it completely
// at startup, then treat it as immutable; there is no runtime mutation path,
// so concurrent Resolve calls need no locking.
type Registry struct {
	ops map[registryKey]Operation
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[registryKey]Operation)}
}

// Register adds an operation. Operations must carry wire names, exactly one
// handler, and be unique; anything else is a programming error surfaced at
// startup rather than on the first call.
func (r *Registry) Register(op Operation) error {
	if !op.named() {
		return fmt.Errorf("dispatch: operation %q missing module or function name", op.Name())
	}
	if !op.executable() {
		return fmt.Errorf("dispatch: operation %s must set exactly one of Handler or Async", op.Name())
	}
	key := registryKey{op.Module, op.Function}
	if _, exists := r.ops[key]; exists {
		return fmt.Errorf("dispatch: operation %s registered twice", op.Name())
	}
	r.ops[key] = op
	return nil
}

// MustRegister is Register for static startup wiring, panicking on misuse.
func (r *Registry) MustRegister(op Operation) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Resolve looks up an operation by its wire names. Only registered
// operations resolve; a same-named function anywhere else in the process is
// invisible here.
func (r *Registry) Resolve(module, function string) (Operation, bool) {
	op, ok := r.ops[registryKey{module, function}]
	return op, ok
}

// Len reports the number of registered operations.
func (r *Registry) Len() int {
	return len(r.ops)
}
