// Package worker runs queued jobs through the Shapley engine and records their reports.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/okian/shapley/internal/domain/model"
	"github.com/okian/shapley/internal/domain/types"
	"github.com/okian/shapley/pkg/logger"
	"github.com/okian/shapley/pkg/metrics"
)

// Job abstracts what workers read off the queue.
type Job = model.Job

// Solver computes the report of one job. Failures are reported through the
// report's status rather than an error.
type Solver interface {
	Solve(ctx context.Context, job Job) types.Report
}

// Recorder persists finished reports.
type Recorder interface {
	Save(ctx context.Context, report types.Report) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// acker is implemented by queues that track consumption.
type acker interface {
	Ack()
}

// Worker processes jobs until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	solver   Solver
	recorder Recorder
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, solver Solver, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		solver:   solver,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run consumes jobs until the queue channel is closed, ctx is canceled or
// Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if a, ok := w.queue.(acker); ok {
				a.Ack()
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("job_id", job.ID), logger.Error(err))
			}
		}
	}
}

func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	metrics.IncWorkerBusy()
	defer metrics.DecWorkerBusy()

	report := w.solver.Solve(ctx, job)
	if report.Status == types.StatusFailed {
		w.logger.Warn(ctx, "job failed",
			logger.String("job_id", job.ID),
			logger.String("code", report.ErrorCode),
			logger.String("reason", report.Error),
		)
	} else {
		w.logger.Debug(ctx, "job completed",
			logger.String("job_id", job.ID),
			logger.Int("players", job.Players()),
			logger.Int("evaluations", report.Evaluations),
		)
	}

	if err := w.recorder.Save(ctx, report); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("save report %s: %w", job.ID, err)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. workerCount < 1 uses one worker per CPU.
func NewPool(workerCount int, queue Queue, solver Solver, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		p.workers[i] = NewInMemoryWorker(queue, solver, recorder, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and lets the workers drain it. If ctx expires
// first the workers are stopped and the remaining jobs are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker pool drain timed out", logger.Int("worker_id", i))
			for _, w := range p.workers {
				w.stop()
			}
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	return nil
}
