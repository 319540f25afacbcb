// Package types contains the report types returned to clients.
package types

import (
	"cmp"
	"slices"
	"time"

	"github.com/okian/shapley/internal/domain/shapley"
	"gonum.org/v1/gonum/floats"
)

// Status is the lifecycle state of a job report.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one player's Shapley value within a report.
type Entry struct {
	Rank   int     `json:"rank"`
	Player string  `json:"player"`
	Value  float64 `json:"value"`
	// Share is Value divided by the grand coalition total, 0 when the total is 0.
	Share float64 `json:"share"`
}

// Report is the outcome of one computation.
type Report struct {
	JobID        string    `json:"job_id,omitempty"`
	Status       Status    `json:"status"`
	Entries      []Entry   `json:"entries,omitempty"`
	Total        float64   `json:"total"`
	Permutations int       `json:"permutations"`
	Evaluations  int       `json:"evaluations"`
	Error        string    `json:"error,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
}

// NewEntries ranks results by value, highest first. Equal values share a rank
// and are ordered by player name. The returned total is the sum of all values.
func NewEntries(results []shapley.Result[string]) ([]Entry, float64) {
	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.Value
	}
	total := floats.Sum(values)

	entries := make([]Entry, len(results))
	for i, r := range results {
		entries[i] = Entry{Player: r.Player, Value: r.Value}
		if total != 0 {
			entries[i].Share = r.Value / total
		}
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Player, b.Player)
	})
	for i := range entries {
		switch {
		case i > 0 && entries[i].Value == entries[i-1].Value:
			entries[i].Rank = entries[i-1].Rank
		default:
			entries[i].Rank = i + 1
		}
	}
	return entries, total
}
