package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of IDs to keep in memory.
// If maxSize > 0: bounded mode, the oldest id is evicted first.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithEvictionHook registers fn to be called with every evicted id.
// fn runs with the deduper locked and must not call back into it.
func WithEvictionHook(fn func(id string)) Option {
	return func(d *inMemoryDeduper) {
		d.onEvict = fn
	}
}
