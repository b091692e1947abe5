package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pitchside/pitchside-go/internal/types"
)

// redisStore keeps the record as a single JSON value under one key, so
// SET/DEL give the same all-or-nothing visibility as the file driver.
// Used by headless deployments (bots, test rigs) that already run redis.
type redisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *redisStore) Write(ctx context.Context, set *types.StoredCredentialSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("credstore: encode record: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("credstore: redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Read(ctx context.Context) (*types.StoredCredentialSet, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: redis get: %w", err)
	}
	var set types.StoredCredentialSet
	if err := json.Unmarshal([]byte(val), &set); err != nil {
		return &types.StoredCredentialSet{}, nil
	}
	return &set, nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("credstore: redis del: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error { return s.client.Close() }
