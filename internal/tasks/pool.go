package tasks

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultWorkers is the pool size when none is configured
const DefaultWorkers = 3

// WorkerPool runs submitted jobs on a fixed number of goroutines. Submit
// never blocks the caller: jobs queue internally without bound, matching
// the original service's executor (the queue-depth question is recorded in
// DESIGN.md). There is no cancellation; a dispatched job runs to completion.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewWorkerPool creates and starts a pool. workers <= 0 selects the default.
func NewWorkerPool(workers int, log zerolog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	p := &WorkerPool{
		log: log.With().Str("component", "worker_pool").Logger(),
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.log.Debug().Int("workers", workers).Msg("Worker pool started")
	return p
}

// Submit enqueues a job for asynchronous execution and returns immediately.
// Jobs submitted after Stop are dropped with a warning.
func (p *WorkerPool) Submit(job func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.log.Warn().Msg("Submit after stop, job dropped")
		return
	}

	p.queue = append(p.queue, job)
	p.cond.Signal()
}

// Stop prevents new submissions and waits for in-flight jobs to finish.
// Jobs still queued but not yet started are abandoned; their task records
// stay in their last recorded state until process exit.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debug().Msg("Worker pool stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(id, job)
	}
}

// run executes one job with panic containment. Jobs are expected to record
// their own failures into the registry; this recovery only keeps a
// misbehaving job from killing the worker.
func (p *WorkerPool) run(id int, job func()) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().
				Int("worker", id).
				Str("panic", fmt.Sprint(rec)).
				Msg("Job panicked")
		}
	}()

	job()
}
