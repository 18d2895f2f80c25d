package queue

import (
	"context"
	"runtime"
	"sync"
)

/*
Queue is a queue where units of work are sent
to be run by a fixed set of workers. Units are
independent of each other: each one only sees
what its closure captured.

The first unit to fail stops the queue: units
not yet started are aborted and the context
handed to running units is cancelled.
*/
type Queue struct {
	pending    []*task
	ready      chan struct{}
	stopped    bool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
	lock       *sync.Mutex
	err        error
}

/*
task represents a unit enqueued on a queue
to be run by a worker, or aborted if the
queue stops before a worker takes it.
*/
type task struct {
	run   func(context.Context)
	abort func(error)
}

/*
Future holds the not-yet-available result of
a unit spawned on a Queue.
*/
type Future[T any] struct {
	q     *Queue
	done  chan struct{}
	value T
	err   error
}

/*
New takes a context and a number of workers and returns a running
queue. A non-positive number of workers means one per CPU.
Cancelling the context stops the queue.
*/
func New(ctx context.Context, workers int) *Queue {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	ctx, cancelFunc := context.WithCancel(ctx)
	q := &Queue{
		ready:      make(chan struct{}, 1),
		ctx:        ctx,
		cancelFunc: cancelFunc,
		wg:         &sync.WaitGroup{},
		lock:       &sync.Mutex{},
	}
	for i := 0; i < workers; i++ {
		go q.work()
	}
	return q
}

/*
Spawn takes a queue and a function and enqueues a unit running
the function with the queue's context. It returns at once with a
Future for the function's result. The caller can drop everything
the function captured: the unit owns it from now on.
*/
func Spawn[T any](q *Queue, f func(context.Context) (T, error)) *Future[T] {
	fut := &Future[T]{q: q, done: make(chan struct{})}
	q.add(&task{
		run: func(ctx context.Context) {
			fut.value, fut.err = f(ctx)
			if fut.err != nil {
				q.fail(fut.err)
			}
			close(fut.done)
		},
		abort: func(err error) {
			fut.err = err
			close(fut.done)
		},
	})
	return fut
}

/*
Join takes a context and waits for the unit behind the future to end
and returns its result. If the unit did not succeed because another
unit made the queue fail, the error of that other unit is returned.
If the context is cancelled first, its error is returned.
*/
func (f *Future[T]) Join(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
	}
	if f.err != nil {
		if err := f.q.Err(); err != nil {
			return f.value, err
		}
	}
	return f.value, f.err
}

// Err returns the error of the first failing unit, or nil.
func (q *Queue) Err() error {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.err
}

/*
Stop stops the queue and returns once every spawned unit has ended or
has been aborted. Pending units are aborted and running ones see their
context cancelled.
*/
func (q *Queue) Stop() {
	q.cancelFunc()
	q.wg.Wait()
}

func (q *Queue) add(t *task) {
	q.lock.Lock()
	if q.stopped || q.ctx.Err() != nil {
		q.lock.Unlock()
		t.abort(q.ctx.Err())
		return
	}
	q.wg.Add(1)
	q.pending = append(q.pending, t)
	q.lock.Unlock()
	q.signal()
}

// signal wakes up one idle worker, if none has been woken up yet.
func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// next pops the oldest pending task. It returns false once the queue
// is stopped or nothing is pending.
func (q *Queue) next() (*task, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.ctx.Err() != nil || len(q.pending) == 0 {
		return nil, false
	}
	t := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	if len(q.pending) > 0 {
		q.signal()
	}
	return t, true
}

// drain marks the queue as stopped and aborts every pending task.
func (q *Queue) drain() {
	q.lock.Lock()
	q.stopped = true
	pending := q.pending
	q.pending = nil
	q.lock.Unlock()
	for _, t := range pending {
		t.abort(q.ctx.Err())
		q.wg.Done()
	}
}

func (q *Queue) work() {
	for {
		if t, ok := q.next(); ok {
			t.run(q.ctx)
			q.wg.Done()
			continue
		}
		select {
		case <-q.ctx.Done():
			q.drain()
			return
		case <-q.ready:
		}
	}
}

func (q *Queue) fail(err error) {
	q.lock.Lock()
	if q.err == nil {
		q.err = err
	}
	q.lock.Unlock()
	q.cancelFunc()
}
