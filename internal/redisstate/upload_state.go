package redisstate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const runningKey = "edgemeter:upload:running"

// Store shares upload run state across processes. The collector and any
// external upload scheduler compete for the same key, so only one of
// them runs a cycle at a time and the status API reports a consistent
// is-uploading flag regardless of who started it.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store. The TTL bounds how long a crashed
// runner can leave the flag set.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

// Acquire takes the run flag. It reports false when another runner
// already holds it; SET NX makes the check-and-set atomic.
func (s *Store) Acquire(ctx context.Context) (bool, error) {
	return s.client.SetNX(ctx, runningKey, "1", s.ttl).Result()
}

// Release drops the run flag so the next cycle can start.
func (s *Store) Release(ctx context.Context) error {
	return s.client.Del(ctx, runningKey).Err()
}

// IsRunning reports whether any runner holds the flag.
func (s *Store) IsRunning(ctx context.Context) (bool, error) {
	count, err := s.client.Exists(ctx, runningKey).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
