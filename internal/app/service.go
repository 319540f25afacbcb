// Package app wires the job pipeline behind the HTTP API: deduplication,
// the job queue, the worker pool and the report store.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	jobqueue "github.com/okian/shapley/internal/adapters/mq/queue"
	"github.com/okian/shapley/internal/adapters/mq/worker"
	"github.com/okian/shapley/internal/adapters/repository"
	"github.com/okian/shapley/internal/domain/dedupe"
	"github.com/okian/shapley/internal/domain/game"
	"github.com/okian/shapley/internal/domain/model"
	"github.com/okian/shapley/internal/domain/shapley"
	"github.com/okian/shapley/internal/domain/types"
	"github.com/okian/shapley/pkg/logger"
	"github.com/okian/shapley/pkg/metrics"
)

// Service computes Shapley values synchronously or through the job queue.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	queue   *jobqueue.InMemoryQueue
	pool    *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	maxPlayers  int
	maxReports  int

	started bool
	cancel  context.CancelFunc
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many job ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxPlayers caps the number of players per game.
func WithMaxPlayers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPlayers = n
		}
	}
}

// WithMaxReports bounds the number of reports kept in memory.
func WithMaxReports(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReports = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1_000,
		dedupeSize:  10_000,
		maxPlayers:  9,
		maxReports:  10_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components. Workers run on a
// context detached from ctx: cancelling ctx does not stop them, Stop does.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.store = repository.NewMemoryStore(repository.WithMaxReports(s.maxReports))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, solver{s}, s.store)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "shapley service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("max_players", s.maxPlayers),
	)
	return nil
}

// Stop closes the queue and waits for queued jobs to finish until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping shapley service...")
	s.started = false

	err := s.pool.Shutdown(ctx)
	s.cancel()
	if err != nil {
		s.logger.Warn(ctx, "jobs abandoned on shutdown", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "shapley service stopped")
	return nil
}

// validate reports the error a game would fail with before any evaluation.
func (s *Service) validate(def *game.Definition) error {
	if err := shapley.CheckPlayers(def.Players); err != nil {
		return err
	}
	return def.Validate(s.maxPlayers)
}

// Submit queues a game for asynchronous computation and returns its job id.
// A game whose id was already submitted is not queued again; duplicate is
// then true and the original job's id is returned.
func (s *Service) Submit(ctx context.Context, def *game.Definition) (jobID string, duplicate bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return "", false, ErrNotStarted
	}
	if err := s.validate(def); err != nil {
		metrics.RecordRejectedSubmission(ErrorCode(err))
		return "", false, err
	}

	jobID = def.ID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, jobID) {
		metrics.RecordJobDuplicate()
		s.logger.Debug(ctx, "duplicate job", logger.String("job_id", jobID))
		return jobID, true, nil
	}

	now := time.Now()
	if err := s.store.MarkPending(ctx, jobID, types.Report{SubmittedAt: now}); err != nil {
		s.deduper.Unrecord(ctx, jobID)
		return "", false, fmt.Errorf("record pending job: %w", err)
	}

	job := model.Job{ID: jobID, Game: def, SubmittedAt: now}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, jobID)
		_ = s.store.Delete(ctx, jobID)
		if errors.Is(err, jobqueue.ErrQueueFull) || errors.Is(err, jobqueue.ErrQueueClosed) {
			return "", false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return "", false, err
	}

	metrics.RecordJobSubmitted()
	s.logger.Debug(ctx, "job queued", logger.String("job_id", jobID), logger.Int("players", job.Players()))
	return jobID, false, nil
}

// Report returns the current report of a job.
func (s *Service) Report(ctx context.Context, jobID string) (types.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.store == nil {
		return types.Report{}, ErrNotStarted
	}
	rep, err := s.store.Get(ctx, jobID)
	if errors.Is(err, repository.ErrNotFound) {
		return types.Report{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return rep, err
}

// Compute solves a game synchronously. On failure the returned report
// carries the error code and the error is the engine's.
func (s *Service) Compute(ctx context.Context, def *game.Definition) (types.Report, error) {
	if err := s.validate(def); err != nil {
		metrics.RecordRejectedSubmission(ErrorCode(err))
		return types.Report{}, err
	}
	metrics.RecordSyncComputation()
	return s.run(ctx, def.ID, def, time.Now())
}

// run computes one game and records the outcome metrics.
func (s *Service) run(ctx context.Context, jobID string, def *game.Definition, submitted time.Time) (types.Report, error) {
	start := time.Now()
	var stats shapley.Stats
	results, err := game.Solve(ctx, def, shapley.WithStats(&stats))
	metrics.RecordComputationLatency(float64(time.Since(start).Microseconds()) / 1000)

	report := types.Report{
		JobID:       jobID,
		SubmittedAt: submitted,
		CompletedAt: time.Now(),
	}
	if err != nil {
		report.Status = types.StatusFailed
		report.Error = err.Error()
		report.ErrorCode = ErrorCode(err)
		metrics.RecordJobFailed(report.ErrorCode)
		return report, err
	}

	report.Status = types.StatusCompleted
	report.Entries, report.Total = types.NewEntries(results)
	report.Permutations = stats.Permutations
	report.Evaluations = stats.Evaluations

	metrics.RecordJobCompleted()
	metrics.RecordWork(stats.Permutations, stats.Evaluations)
	metrics.RecordPlayersPerGame(len(def.Players))
	return report, nil
}

// solver adapts the service to worker.Solver.
type solver struct {
	s *Service
}

func (a solver) Solve(ctx context.Context, job model.Job) types.Report {
	rep, _ := a.s.run(ctx, job.ID, job.Game, job.SubmittedAt)
	return rep
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"maxPlayers":  s.maxPlayers,
		"maxReports":  s.maxReports,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		reports := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["reports"] = reports
		stats["knownJobs"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateReportsStored(reports)
	}
	return stats
}
