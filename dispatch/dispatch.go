package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GaryOcean428/gary-zero-sub006/bridge"
	"github.com/GaryOcean428/gary-zero-sub006/client"
	"github.com/GaryOcean428/gary-zero-sub006/config"
)

// ErrUnsupportedCallable marks an operation the dispatcher cannot forward:
// it lacks the stable (module, function) names the wire protocol needs, or
// lacks a local handler in local mode. Fatal to that call only.
var ErrUnsupportedCallable = errors.New("dispatch: callable not resolvable")

// Caller is the remote-call dependency of the dispatcher, satisfied by
// *client.Client. Narrowed to an interface so tests can count or fail calls.
type Caller interface {
	Call(ctx context.Context, module, function string, args []any, kwargs map[string]any) (any, error)
}

// Dispatcher routes operation invocations. Construct once with the process
// configuration and reuse; it is safe for concurrent use.
type Dispatcher struct {
	cfg    *config.Config
	caller Caller
	bridge *bridge.Bridge
	log    *zap.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithCaller substitutes the remote-call implementation.
func WithCaller(c Caller) Option {
	return func(d *Dispatcher) { d.caller = c }
}

// WithBridge shares an existing sync/async bridge instead of owning one.
func WithBridge(b *bridge.Bridge) Option {
	return func(d *Dispatcher) { d.bridge = b }
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// New builds a Dispatcher for the given configuration. In development mode a
// remote caller is required: when none is injected, one is constructed from
// the configured endpoint and secret; a missing secret surfaces here, at
// startup, as a configuration error.
func New(cfg *config.Config, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		cfg:    cfg,
		bridge: bridge.New(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if cfg.IsDevelopment() && d.caller == nil {
		c, err := client.FromConfig(cfg, client.WithLogger(d.log))
		if err != nil {
			return nil, err
		}
		d.caller = c
	}
	return d, nil
}

// Invoke runs the operation with positional arguments only. See InvokeKw.
func (d *Dispatcher) Invoke(ctx context.Context, op Operation, args ...any) (any, error) {
	return d.InvokeKw(ctx, op, args, nil)
}

// InvokeKw runs the operation with positional and keyword arguments.
//
// Local mode: the handler executes in-process through the bridge (sync
// handlers inline, async handlers awaited) and its result and error
// propagate unchanged. Development mode: the call is serialized and forwarded
// once; the client's typed error (RemoteError, TransportError) comes back
// as-is. No retries on either path; callers wanting retry semantics wrap
// InvokeKw themselves.
func (d *Dispatcher) InvokeKw(ctx context.Context, op Operation, args []any, kwargs map[string]any) (any, error) {
	if d.cfg.IsDevelopment() {
		return d.invokeRemote(ctx, op, args, kwargs)
	}
	return d.invokeLocal(ctx, op, args, kwargs)
}

func (d *Dispatcher) invokeLocal(ctx context.Context, op Operation, args []any, kwargs map[string]any) (any, error) {
	callable := op.Bind(args, kwargs)
	if callable == nil {
		return nil, fmt.Errorf("%w: operation %s has no local handler", ErrUnsupportedCallable, op.Name())
	}
	return d.bridge.Run(ctx, callable)
}

func (d *Dispatcher) invokeRemote(ctx context.Context, op Operation, args []any, kwargs map[string]any) (any, error) {
	if !op.named() {
		return nil, fmt.Errorf("%w: operation lacks stable module/function names", ErrUnsupportedCallable)
	}

	d.log.Debug("forwarding operation",
		zap.String("module", op.Module),
		zap.String("function", op.Function),
	)
	return d.caller.Call(ctx, op.Module, op.Function, args, kwargs)
}
