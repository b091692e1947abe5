package dispatch

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config tunes the dispatch lane. Zero values fall back to defaults in
// NewQueue.
type Config struct {
	QueueSize      int           `envconfig:"QUEUE_SIZE"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT"`
}

// LoadConfig reads PS_DISPATCH_* environment overrides.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("ps_dispatch", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
