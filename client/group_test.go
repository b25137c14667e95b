package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFuture_Wait(t *testing.T) {
	g := NewGroup(0)

	f := startFuture(t.Context(), g, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := f.Wait()
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestFuture_Err(t *testing.T) {
	wantErr := errors.New("boom")
	g := NewGroup(0)

	f := startFuture(t.Context(), g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, wantErr
	})

	if err := f.Err(); !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestFuture_Done(t *testing.T) {
	g := NewGroup(0)

	f := startFuture(t.Context(), g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	})

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel was not closed in time")
	}
}

func TestFuture_Cancel(t *testing.T) {
	g := NewGroup(0)

	started := make(chan struct{})

	f := startFuture(t.Context(), g, func(ctx context.Context) (struct{}, error) {
		close(started)
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	})

	<-started
	f.Cancel()

	if err := f.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGroup_Wait_JoinedErrors(t *testing.T) {
	err1 := errors.New("error one")
	err2 := errors.New("error two")
	g := NewGroup(0)

	startFuture(t.Context(), g, func(ctx context.Context) (int, error) { return 0, err1 })
	startFuture(t.Context(), g, func(ctx context.Context) (int, error) { return 0, nil })
	startFuture(t.Context(), g, func(ctx context.Context) (int, error) { return 0, err2 })

	err := g.Wait()
	if !errors.Is(err, err1) {
		t.Errorf("expected error to contain %v", err1)
	}
	if !errors.Is(err, err2) {
		t.Errorf("expected error to contain %v", err2)
	}
}

func TestGroup_Wait_ReleasesReportedErrors(t *testing.T) {
	g := NewGroup(0)

	startFuture(t.Context(), g, func(ctx context.Context) (int, error) { return 0, errors.New("first batch") })
	if err := g.Wait(); err == nil {
		t.Fatal("expected error from first batch")
	}
	if len(g.errs) != 0 {
		t.Errorf("expected errors released after Wait, still holding %d", len(g.errs))
	}

	startFuture(t.Context(), g, func(ctx context.Context) (int, error) { return 1, nil })
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil for a clean second batch, got %v", err)
	}
}

func TestGroup_Wait_NilWhenAllSucceed(t *testing.T) {
	g := NewGroup(0)

	startFuture(t.Context(), g, func(ctx context.Context) (int, error) { return 1, nil })
	startFuture(t.Context(), g, func(ctx context.Context) (int, error) { return 2, nil })

	if err := g.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestGroup_Concurrency(t *testing.T) {
	testCases := []struct {
		name    string
		limit   int
		total   int
		expPeak int32
	}{
		{name: "limited", limit: 2, total: 5, expPeak: 2},
		{name: "unlimited", limit: 0, total: 10, expPeak: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGroup(tc.limit)

			var running atomic.Int32
			var maxRunning atomic.Int32
			barrier := make(chan struct{})

			for range tc.total {
				startFuture(t.Context(), g, func(ctx context.Context) (struct{}, error) {
					cur := running.Add(1)
					for {
						old := maxRunning.Load()
						if cur <= old || maxRunning.CompareAndSwap(old, cur) {
							break
						}
					}
					<-barrier
					running.Add(-1)
					return struct{}{}, nil
				})
			}

			// Let all goroutines proceed concurrently.
			time.Sleep(50 * time.Millisecond)
			close(barrier)

			if err := g.Wait(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if peak := maxRunning.Load(); peak != tc.expPeak {
				t.Errorf("max concurrent was %d, want %d", peak, tc.expPeak)
			}
		})
	}
}

func TestGroup_ContextCancellationOnSemaphore(t *testing.T) {
	g := NewGroup(1)

	release := make(chan struct{})
	startFuture(t.Context(), g, func(ctx context.Context) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})

	// Give goroutine time to acquire the semaphore.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	f := startFuture(ctx, g, func(ctx context.Context) (struct{}, error) {
		t.Error("work function should not have run")
		return struct{}{}, nil
	})

	if err := f.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	close(release)

	if err := g.Wait(); err == nil {
		t.Error("expected group error from cancelled call")
	}
}

func TestGroup_Shutdown(t *testing.T) {
	g := NewGroup(1)
	g.Shutdown()

	f := startFuture(t.Context(), g, func(ctx context.Context) (struct{}, error) {
		t.Error("work function should not have run after shutdown")
		return struct{}{}, nil
	})

	if err := f.Err(); !errors.Is(err, ErrShutdown) {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
	if err := g.Wait(); !errors.Is(err, ErrShutdown) {
		t.Errorf("expected group to record ErrShutdown, got %v", err)
	}
}
