// Package workerpool implements the fixed worker pool (C2) that drains
// the blocking work queue (C1). It is grounded on the original's
// ThreadPool (backend/include/threadpool.h / src/threadpool.cpp):
// a fixed number of threads, each looping Pop-then-run until the queue
// reports cancellation.
package workerpool

import (
	"sync"

	"kvwebserver/internal/metrics"
	"kvwebserver/internal/queue"

	"go.uber.org/zap"
)

// DefaultWorkers mirrors the original's MAX_THREADS default.
const DefaultWorkers = 4

// Pool runs a fixed number of goroutines, each draining q until it is
// cancelled and empty.
type Pool struct {
	q       *queue.Queue
	workers int
	log     *zap.Logger
	wg      sync.WaitGroup
}

// New creates a Pool bound to q with the given number of workers
// (DefaultWorkers if n <= 0). Start must be called to launch workers.
func New(q *queue.Queue, workers int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{q: q, workers: workers, log: log}
}

// Start launches the worker goroutines. Safe to call once.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		id := i
		p.wg.Add(1)
		go p.worker(id)
	}
}

// worker runs tasks until the queue is cancelled and drained. A panic
// inside a task must not kill the worker (optional hardening): it is
// logged and the worker continues with the next task.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		task, ok := p.q.Pop()
		if !ok {
			return
		}
		p.runSafely(id, task)
	}
}

func (p *Pool) runSafely(id int, task queue.Task) {
	metrics.WorkerBusy.Inc()
	defer metrics.WorkerBusy.Dec()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker task panicked",
				zap.Int("worker_id", id),
				zap.Any("recover", r),
			)
		}
	}()
	task()
}

// Close cancels the underlying queue and waits for every worker to
// exit. Tasks already queued or in flight still run to completion.
func (p *Pool) Close() {
	p.q.Cancel()
	p.wg.Wait()
}
