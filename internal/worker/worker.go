// Package worker runs submitted tasks one at a time on a single goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/yok-tottii/EzRec/internal/logger"
)

// ErrClosed is returned by Submit after Shutdown
var ErrClosed = errors.New("worker: closed")

// Task is a unit of work. ctx is cancelled when the worker shuts down.
type Task func(ctx context.Context)

type job struct {
	name string
	run  Task
}

// Worker executes tasks in submission order on one goroutine locked to its
// OS thread. The queue is unbounded so Submit never blocks.
type Worker struct {
	log *logger.Logger

	mu     sync.Mutex
	queue  []job
	closed bool

	signal chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	shutdownOnce sync.Once
	discarded    int
}

// New starts a worker
func New(log *logger.Logger) *Worker {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		log:    log,
		signal: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

// Submit appends a task to the queue
func (w *Worker) Submit(name string, task Task) error {
	if task == nil {
		return fmt.Errorf("worker: nil task %q", name)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.queue = append(w.queue, job{name: name, run: task})
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued tasks that have not started
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Shutdown drops queued tasks, cancels the running task's context and waits
// for the worker goroutine to exit. It returns the number of dropped tasks.
// Calling it again returns the same count.
func (w *Worker) Shutdown() int {
	w.shutdownOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.discarded = len(w.queue)
		w.queue = nil
		w.mu.Unlock()

		w.cancel()
		<-w.done

		if w.discarded > 0 {
			w.log.Info("Worker stopped, %d queued task(s) discarded", w.discarded)
		}
	})
	return w.discarded
}

func (w *Worker) next() (job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return job{}, false
	}
	j := w.queue[0]
	w.queue[0] = job{}
	w.queue = w.queue[1:]
	return j, true
}

func (w *Worker) loop() {
	defer close(w.done)

	// Audio backends expect open, transfer and close on the same thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		for {
			if w.ctx.Err() != nil {
				return
			}
			j, ok := w.next()
			if !ok {
				break
			}
			w.run(j)
		}

		select {
		case <-w.signal:
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Worker) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Task %s panicked: %v", j.name, r)
		}
	}()
	w.log.Debug("Running task %s", j.name)
	j.run(w.ctx)
}
