// Package bridge runs callables that may be synchronous or asynchronous and
// delivers their result to a blocking caller, the one narrow place where
// the two worlds meet, used by both the dispatcher's local path and the
// server's invocation step.
//
// Two callable shapes are supported:
//
//	Task:      plain function, runs to completion on the calling goroutine
//	AsyncTask: starts work when invoked and reports completion on a channel
//
// Every context handed to a driven task carries a per-bridge marker, so the
// bridge can tell "called from inside a task I am driving" from "called from
// plain code". RunBlocking from inside the bridge's own driving path is a
// programming error and fails with ErrMisuse; Run from the same place is
// legal and awaits the callable inline within the running drive.
package bridge

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is the single completion value of an asynchronous task. Exactly one
// Outcome is sent on the channel an AsyncTask returns.
type Outcome struct {
	Value any
	Err   error
}

// Task is a synchronous callable. It must honor ctx cancellation if it blocks.
type Task func(ctx context.Context) (any, error)

// AsyncTask starts its work when invoked and yields exactly one Outcome on
// the returned channel. The channel must be buffered (or always drained) so
// an orphaned completion never blocks the producing goroutine.
type AsyncTask func(ctx context.Context) <-chan Outcome

// ErrMisuse is returned when RunBlocking is called from inside a task this
// same bridge is currently driving. Failing fast beats scheduling the drive
// onto its own completion path.
var ErrMisuse = errors.New("bridge: blocking run from inside a bridge-driven task")

// Bridge drives sync and async callables to completion. Each Bridge has its
// own identity for misuse detection; construct with New and share one per
// process side. Safe for concurrent use.
type Bridge struct {
	// Non-zero size so every New allocation has a distinct address; the
	// pointer is the identity the ctx marker carries.
	id byte
}

func New() *Bridge {
	return &Bridge{}
}

// ctxKey marks contexts executing inside a task driven by a specific bridge.
// The value is the *Bridge, so nested bridges stay independent.
type ctxKey struct{}

func (b *Bridge) inside(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKey{}).(*Bridge)
	return v == b
}

// Run executes callable and blocks until it completes or ctx is done.
//
// Accepted callable shapes are Task and AsyncTask (and their underlying func
// types); any other shape is rejected. Run is safe to call from anywhere,
// including from inside a task this bridge is already driving; the callable
// is then awaited inline within the running drive.
func (b *Bridge) Run(ctx context.Context, callable any) (any, error) {
	return b.drive(ctx, callable)
}

// RunBlocking is the entry point for plain synchronous code. It behaves like
// Run, except that calling it from within a task this bridge is driving
// returns ErrMisuse immediately; synchronous invocation from the bridge's
// own driving path is a programming error, not something to schedule around.
func (b *Bridge) RunBlocking(ctx context.Context, callable any) (any, error) {
	if b.inside(ctx) {
		return nil, ErrMisuse
	}
	return b.drive(ctx, callable)
}

// drive dispatches on the callable shape. The context handed to the callable
// carries this bridge's marker so re-entrant blocking is detectable.
func (b *Bridge) drive(ctx context.Context, callable any) (any, error) {
	taskCtx := context.WithValue(ctx, ctxKey{}, b)

	switch fn := callable.(type) {
	case Task:
		return fn(taskCtx)
	case func(ctx context.Context) (any, error):
		return fn(taskCtx)
	case AsyncTask:
		return b.await(ctx, fn(taskCtx))
	case func(ctx context.Context) <-chan Outcome:
		return b.await(ctx, fn(taskCtx))
	case nil:
		return nil, fmt.Errorf("bridge: nil callable")
	default:
		return nil, fmt.Errorf("bridge: unsupported callable type %T", callable)
	}
}

// await blocks on the task's completion channel, racing it against ctx. On
// cancellation the outcome is abandoned: the producer's buffered send still
// succeeds, the value is simply never read. Orphaned completions are
// tolerated, not errors.
func (b *Bridge) await(ctx context.Context, done <-chan Outcome) (any, error) {
	select {
	case out := <-done:
		return out.Value, out.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
