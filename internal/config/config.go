// Package config loads process configuration from the environment,
// struct-tagged per caarlos0/env (the idiom SirClappington-enq's
// internal/config/config.go uses; the teacher repo instead hand-rolls
// os.Getenv wrappers).
package config

import "github.com/caarlos0/env/v11"

// Shared holds the settings both processes need.
type Shared struct {
	PostgresDSN            string `env:"POSTGRES_DSN,required"`
	RunMigrationsOnStartup bool   `env:"RUN_MIGRATIONS_ON_STARTUP" envDefault:"false"`
}

// APIConfig configures the submission/query HTTP process (cmd/api).
type APIConfig struct {
	Shared
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// WorkerConfig configures the background worker process (cmd/worker),
// per spec.md §6's configuration table.
type WorkerConfig struct {
	Shared
	WorkerConcurrency          int `env:"WORKER_CONCURRENCY" envDefault:"2"`
	MaxAttempts                int `env:"MAX_ATTEMPTS" envDefault:"5"`
	BaseBackoffSeconds         int `env:"BASE_BACKOFF_SECONDS" envDefault:"2"`
	WorkerPollSeconds          int `env:"WORKER_POLL_SECONDS" envDefault:"1"`
	WorkerIdleBackoffMaxSeconds int `env:"WORKER_IDLE_BACKOFF_MAX_SECONDS" envDefault:"0"`
	StaleLockTimeoutSeconds    int `env:"STALE_LOCK_TIMEOUT_SECONDS" envDefault:"300"`
	MetricsAddr                string `env:"METRICS_ADDR" envDefault:":9090"`
}

// LoadAPI parses an APIConfig from the environment.
func LoadAPI() (APIConfig, error) {
	var c APIConfig
	if err := env.Parse(&c); err != nil {
		return APIConfig{}, err
	}
	return c, nil
}

// LoadWorker parses a WorkerConfig from the environment. When
// WORKER_IDLE_BACKOFF_MAX_SECONDS is left at its zero default, it
// falls back to WORKER_POLL_SECONDS per spec.md §6 ("= poll").
func LoadWorker() (WorkerConfig, error) {
	var c WorkerConfig
	if err := env.Parse(&c); err != nil {
		return WorkerConfig{}, err
	}
	if c.WorkerIdleBackoffMaxSeconds <= 0 {
		c.WorkerIdleBackoffMaxSeconds = c.WorkerPollSeconds
	}
	return c, nil
}
