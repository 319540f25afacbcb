// Package repository stores job reports.
package repository

import (
	"context"

	"github.com/okian/shapley/internal/domain/types"
)

// Store provides read/write access to job reports.
type Store interface {
	// MarkPending records a pending report for a freshly accepted job.
	MarkPending(ctx context.Context, jobID string, report types.Report) error

	// Save stores a finished report, replacing the pending one.
	Save(ctx context.Context, report types.Report) error

	// Get returns the report of a job.
	// Returns ErrNotFound if the job is unknown or was evicted.
	Get(ctx context.Context, jobID string) (types.Report, error)

	// Delete drops a report. Deleting an unknown job is not an error.
	Delete(ctx context.Context, jobID string) error

	// Count returns the number of reports held.
	Count(ctx context.Context) int
}
