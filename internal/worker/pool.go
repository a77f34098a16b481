// Package worker provides the small concurrency helpers the device
// manager uses: a bounded job pool for scan-time probing and a cron
// driven scheduler for periodic inventory refreshes.
package worker

import (
	"context"
	"sync"

	"github.com/zea2/devicemanager/internal/log"
)

// Job is one unit of work for the pool. Errors are logged, not returned;
// probe failures are routine.
type Job struct {
	ID  string
	Run func(ctx context.Context) error
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	workers int
	jobs    chan Job
	pending sync.WaitGroup
	done    sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.done.Add(1)
		go p.work()
	}
	log.Trace("Worker pool started", "workers", p.workers)
}

// Submit queues a job. It blocks while all workers are busy and the
// queue is full.
func (p *Pool) Submit(job Job) {
	p.pending.Add(1)
	select {
	case p.jobs <- job:
	case <-p.ctx.Done():
		p.pending.Done()
	}
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Stop cancels the pool context and waits for the workers to drain.
func (p *Pool) Stop() {
	p.cancel()
	close(p.jobs)
	p.done.Wait()
	log.Trace("Worker pool stopped")
}

func (p *Pool) work() {
	defer p.done.Done()
	for job := range p.jobs {
		if err := job.Run(p.ctx); err != nil {
			log.Trace("Job failed", "job_id", job.ID, "error", err)
		}
		p.pending.Done()
	}
}
