package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines.
// Results are gathered internally, so Submit never waits on a reader.
type Pool struct {
	workers    int
	jobQueue   chan Job
	collector  *ResultCollector
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool bound to ctx; cancelling ctx stops the workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		collector:  NewResultCollector(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.collector.Add(job.Execute(p.ctx))
		}
	}
}

// Submit queues a job. It returns false if the pool was shut down or its context cancelled.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait stops accepting jobs, waits for queued jobs to finish and returns every result
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.cancelFunc()
	return p.collector.Results()
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

// ResultCollector gathers results from concurrent workers
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates an empty collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add records a result (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns a snapshot of the collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
