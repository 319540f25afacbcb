package repository

import (
	"container/list"
	"context"
	"slices"
	"sync"

	"github.com/okian/shapley/internal/domain/types"
	"github.com/okian/shapley/pkg/metrics"
)

const defaultMaxReports = 10_000

// MemoryStore is an in-memory Store. Reports are kept in submission order.
type MemoryStore struct {
	mu         sync.RWMutex
	reports    map[string]*list.Element
	order      *list.List // of *types.Report, oldest first
	maxReports int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		reports:    make(map[string]*list.Element),
		order:      list.New(),
		maxReports: defaultMaxReports,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) MarkPending(ctx context.Context, jobID string, report types.Report) error {
	report.JobID = jobID
	report.Status = types.StatusPending
	return s.put(ctx, report)
}

func (s *MemoryStore) Save(ctx context.Context, report types.Report) error {
	return s.put(ctx, report)
}

func (s *MemoryStore) put(ctx context.Context, report types.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if report.JobID == "" {
		return ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.reports[report.JobID]; ok {
		el.Value = &report
		return nil
	}
	if s.maxReports > 0 && s.order.Len() >= s.maxReports {
		s.evictOldest()
	}
	s.reports[report.JobID] = s.order.PushBack(&report)
	metrics.UpdateReportsStored(s.order.Len())
	return nil
}

// evictOldest must be called with s.mu held.
func (s *MemoryStore) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}
	rep, _ := s.order.Remove(front).(*types.Report)
	delete(s.reports, rep.JobID)
	metrics.RecordReportEviction()
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (types.Report, error) {
	if err := ctx.Err(); err != nil {
		return types.Report{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.reports[jobID]
	if !ok {
		return types.Report{}, ErrNotFound
	}
	rep, _ := el.Value.(*types.Report)
	out := *rep
	out.Entries = slices.Clone(rep.Entries)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.reports[jobID]; ok {
		s.order.Remove(el)
		delete(s.reports, jobID)
		metrics.UpdateReportsStored(s.order.Len())
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
