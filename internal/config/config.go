// Package config defines service configuration and its loading layers.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of computation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds how many job ids are remembered for duplicate detection.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxPlayers rejects games whose factorial enumeration would be intractable.
	MaxPlayers int `koanf:"max_players"`

	// MaxReports bounds the number of reports kept in memory.
	MaxReports int `koanf:"max_reports"`

	// MetricsLabels are constant labels added to every exported metric,
	// e.g. {env: prod, region: eu-west-1}.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// PlayerBuckets overrides the players-per-game histogram buckets.
	PlayerBuckets []float64 `koanf:"player_buckets"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		Addr:        ":9080",
		QueueSize:   1_000,
		WorkerCount: runtime.NumCPU(),
		DedupeSize:  10_000,
		MaxPlayers:  9,
		MaxReports:  10_000,
	}
}

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	if c.MaxPlayers < 1 {
		return invalid("max_players must be at least 1")
	}
	if c.QueueSize < 1 {
		return invalid("queue_size must be at least 1")
	}
	if c.WorkerCount < 1 {
		return invalid("worker_count must be at least 1")
	}
	for i := 1; i < len(c.PlayerBuckets); i++ {
		if c.PlayerBuckets[i] <= c.PlayerBuckets[i-1] {
			return invalid("player_buckets must be strictly increasing")
		}
	}
	for name := range c.MetricsLabels {
		if name == "" {
			return invalid("metrics_labels must not have an empty name")
		}
	}
	return nil
}
