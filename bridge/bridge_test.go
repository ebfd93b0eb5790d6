package bridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunSyncTask(t *testing.T) {
	b := New()

	got, err := b.Run(context.Background(), Task(func(ctx context.Context) (any, error) {
		return 42, nil
	}))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Run = %v, want 42", got)
	}
}

func TestRunAsyncTask(t *testing.T) {
	b := New()

	async := AsyncTask(func(ctx context.Context) <-chan Outcome {
		done := make(chan Outcome, 1)
		go func() {
			done <- Outcome{Value: "hello"}
		}()
		return done
	})

	got, err := b.Run(context.Background(), async)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Run = %v, want hello", got)
	}
}

func TestRunPropagatesTaskError(t *testing.T) {
	b := New()
	boom := errors.New("boom")

	_, err := b.Run(context.Background(), Task(func(ctx context.Context) (any, error) {
		return nil, boom
	}))
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want boom", err)
	}

	_, err = b.Run(context.Background(), AsyncTask(func(ctx context.Context) <-chan Outcome {
		done := make(chan Outcome, 1)
		done <- Outcome{Err: boom}
		return done
	}))
	if !errors.Is(err, boom) {
		t.Errorf("Run async error = %v, want boom", err)
	}
}

func TestRunRejectsUnsupportedCallable(t *testing.T) {
	b := New()
	if _, err := b.Run(context.Background(), "not a function"); err == nil {
		t.Error("Run accepted a string callable")
	}
	if _, err := b.Run(context.Background(), nil); err == nil {
		t.Error("Run accepted a nil callable")
	}
}

func TestRunBlockingFromPlainGoroutine(t *testing.T) {
	// The "no running loop" case: a plain caller may block on the bridge.
	b := New()
	got, err := b.RunBlocking(context.Background(), Task(func(ctx context.Context) (any, error) {
		return "ok", nil
	}))
	if err != nil || got != "ok" {
		t.Fatalf("RunBlocking = %v, %v; want ok, nil", got, err)
	}
}

func TestRunBlockingInsideDrivenTaskIsMisuse(t *testing.T) {
	// The "running loop on this thread" case: a task being driven must not
	// block on the same bridge again.
	b := New()

	_, err := b.Run(context.Background(), Task(func(ctx context.Context) (any, error) {
		return b.RunBlocking(ctx, Task(func(ctx context.Context) (any, error) {
			t.Error("Inner task executed despite misuse")
			return nil, nil
		}))
	}))
	if !errors.Is(err, ErrMisuse) {
		t.Errorf("Nested RunBlocking error = %v, want ErrMisuse", err)
	}
}

func TestRunInsideDrivenTaskIsAwaitedInline(t *testing.T) {
	// Run (as opposed to RunBlocking) from inside a driven task is legal:
	// the inner callable is awaited within the running drive.
	b := New()

	got, err := b.Run(context.Background(), Task(func(ctx context.Context) (any, error) {
		return b.Run(ctx, AsyncTask(func(ctx context.Context) <-chan Outcome {
			done := make(chan Outcome, 1)
			done <- Outcome{Value: "inner"}
			return done
		}))
	}))
	if err != nil {
		t.Fatalf("Nested Run failed: %v", err)
	}
	if got != "inner" {
		t.Errorf("Nested Run = %v, want inner", got)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := b.Run(ctx, AsyncTask(func(ctx context.Context) <-chan Outcome {
		done := make(chan Outcome, 1)
		go func() {
			time.Sleep(5 * time.Second) // Never finishes in time
			done <- Outcome{Value: "late"}
		}()
		return done
	}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error = %v, want deadline exceeded", err)
	}
	if time.Since(started) > time.Second {
		t.Error("Run did not return promptly on cancellation")
	}
}

func TestOrphanedCompletionIsDiscarded(t *testing.T) {
	// A task that completes after its caller gave up must not block or
	// crash anything; its buffered send succeeds and the value is dropped.
	b := New()
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	completed := make(chan struct{})
	async := AsyncTask(func(ctx context.Context) <-chan Outcome {
		done := make(chan Outcome, 1)
		go func() {
			<-release
			done <- Outcome{Value: "orphan"}
			close(completed)
		}()
		return done
	})

	cancel()
	if _, err := b.Run(ctx, async); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want canceled", err)
	}

	close(release)
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("Orphaned task never completed; its send must not block")
	}
}

func TestTwoBridgesAreIndependent(t *testing.T) {
	outer := New()
	inner := New()

	// Blocking on a different bridge from inside a driven task is fine;
	// the misuse guard is per-bridge.
	got, err := outer.Run(context.Background(), Task(func(ctx context.Context) (any, error) {
		return inner.RunBlocking(ctx, Task(func(ctx context.Context) (any, error) {
			return "cross", nil
		}))
	}))
	if err != nil || got != "cross" {
		t.Fatalf("Cross-bridge run = %v, %v; want cross, nil", got, err)
	}
}
