package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxReports bounds the number of reports kept. The oldest report is
// evicted first. maxReports <= 0 means unbounded.
func WithMaxReports(maxReports int) Option {
	return func(s *MemoryStore) {
		s.maxReports = maxReports
	}
}
