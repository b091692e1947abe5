package credstore

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType selects the credential store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
)

type storeConfig struct {
	filePath    string
	redisClient *redis.Client
	redisKey    string
	redisTTL    time.Duration
}

// Option configures the store built by New.
type Option func(*storeConfig)

// WithFilePath sets the record path for the file driver.
func WithFilePath(path string) Option {
	return func(c *storeConfig) { c.filePath = path }
}

// WithRedisClient injects the redis connection for the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithRedisKey overrides the redis record key.
func WithRedisKey(key string) Option {
	return func(c *storeConfig) { c.redisKey = key }
}

// WithRedisTTL bounds how long an untouched record survives in redis.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *storeConfig) { c.redisTTL = ttl }
}

// New builds a Store for the given driver type.
// The file driver requires WithFilePath; the redis driver requires
// WithRedisClient.
func New(storeType StoreType, opts ...Option) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(), nil

	case StoreTypeFile:
		if cfg.filePath == "" {
			return nil, ErrInvalidConfig
		}
		return &fileStore{path: cfg.filePath}, nil

	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		key := cfg.redisKey
		if key == "" {
			key = "pitchside:credentials"
		}
		ttl := cfg.redisTTL
		if ttl <= 0 {
			ttl = 30 * 24 * time.Hour
		}
		return &redisStore{client: cfg.redisClient, key: key, ttl: ttl}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}
