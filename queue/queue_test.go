package queue

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpawnAndJoin(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, 3)
	defer q.Stop()
	futures := make([]*Future[int], 20)
	for i := range futures {
		i := i
		futures[i] = Spawn(q, func(context.Context) (int, error) {
			return i * i, nil
		})
	}
	for i, f := range futures {
		v, err := f.Join(ctx)
		if err != nil {
			t.Fatalf("joining unit %d: %v", i, err)
		}
		if v != i*i {
			t.Errorf("unit %d: expected %d, got %d", i, i*i, v)
		}
	}
	q.Stop()
	if err := q.Err(); err != nil {
		t.Errorf("expected no error from the queue, got %v", err)
	}
}

func TestWorkersBoundConcurrency(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, 2)
	defer q.Stop()
	var running, maxRunning int32
	var futures []*Future[struct{}]
	for i := 0; i < 10; i++ {
		futures = append(futures, Spawn(q, func(context.Context) (struct{}, error) {
			r := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if r <= m || atomic.CompareAndSwapInt32(&maxRunning, m, r) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		}))
	}
	for _, f := range futures {
		if _, err := f.Join(ctx); err != nil {
			t.Fatalf("joining: %v", err)
		}
	}
	if maxRunning > 2 {
		t.Errorf("expected at most 2 units at a time, saw %d", maxRunning)
	}
}

func TestFirstFailureIsReported(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, 1)
	defer q.Stop()
	boom := errors.New("boom")
	failing := Spawn(q, func(context.Context) (int, error) {
		return 0, boom
	})
	if _, err := failing.Join(ctx); err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	later := Spawn(q, func(ctx context.Context) (int, error) {
		return 1, ctx.Err()
	})
	if _, err := later.Join(ctx); err != boom {
		t.Errorf("expected units spawned after a failure to report it, got %v", err)
	}
	if err := q.Err(); err != boom {
		t.Errorf("expected the queue to report boom, got %v", err)
	}
}

func TestJoinHonoursContext(t *testing.T) {
	q := New(context.Background(), 1)
	defer q.Stop()
	release := make(chan struct{})
	f := Spawn(q, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Join(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	close(release)
	if v, err := f.Join(context.Background()); err != nil || v != 1 {
		t.Errorf("expected 1, nil after release, got %v, %v", v, err)
	}
}

func TestPendingUnitsDoNotHoldGoroutines(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, 1)
	defer q.Stop()
	release := make(chan struct{})
	blocker := Spawn(q, func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	before := runtime.NumGoroutine()
	futures := make([]*Future[int], 10000)
	for i := range futures {
		i := i
		futures[i] = Spawn(q, func(context.Context) (int, error) {
			return i, nil
		})
	}
	if after := runtime.NumGoroutine(); after > before+10 {
		t.Errorf("expected pending units to stay off goroutines, went from %d to %d", before, after)
	}
	close(release)
	if _, err := blocker.Join(ctx); err != nil {
		t.Fatalf("joining the blocking unit: %v", err)
	}
	for i, f := range futures {
		v, err := f.Join(ctx)
		if err != nil || v != i {
			t.Fatalf("unit %d: expected %d, nil, got %v, %v", i, i, v, err)
		}
	}
}

func TestStopAbortsPendingAndWaitsForRunning(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, 1)
	started := make(chan struct{})
	var finished int32
	running := Spawn(q, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return 0, ctx.Err()
	})
	<-started
	pending := Spawn(q, func(context.Context) (int, error) {
		return 1, nil
	})
	q.Stop()
	if atomic.LoadInt32(&finished) != 1 {
		t.Error("expected Stop to wait for the running unit")
	}
	if _, err := running.Join(ctx); err != context.Canceled {
		t.Errorf("expected the running unit to see its context cancelled, got %v", err)
	}
	if _, err := pending.Join(ctx); err != context.Canceled {
		t.Errorf("expected the pending unit to be aborted, got %v", err)
	}
	late := Spawn(q, func(context.Context) (int, error) {
		return 2, nil
	})
	if _, err := late.Join(ctx); err != context.Canceled {
		t.Errorf("expected a unit spawned on a stopped queue to be aborted, got %v", err)
	}
}
