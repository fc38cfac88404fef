package utils

import (
	"context"
	"time"
)

const stateKeyPrefix = "oauth:state:"

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(ctx context.Context, state string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rc.Set(ctx, stateKeyPrefix+state, "1", ttl).Err()
	}
	return fallbackStore.Set(ctx, stateKeyPrefix+state, []byte("1"), ttl)
}

// ConsumeState validates and removes a state token. A state can be consumed once.
func ConsumeState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		v, err := rc.GetDel(ctx, stateKeyPrefix+state).Result()
		return err == nil && v != ""
	}
	_, ok := fallbackStore.Take(ctx, stateKeyPrefix+state)
	return ok
}
