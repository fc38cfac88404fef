package utils

import (
	"context"
	"time"
)

const blacklistKeyPrefix = "jwt:blacklist:"

// fallbackStore backs the token blacklist and OAuth state when Redis is unavailable (single instance only).
var fallbackStore = NewMemoryCache()

// BlacklistToken revokes a token ID until its natural expiration.
func BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 || tokenID == "" {
		return nil
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rc.Set(ctx, blacklistKeyPrefix+tokenID, "1", ttl).Err()
	}
	return fallbackStore.Set(ctx, blacklistKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistKeyPrefix+tokenID).Result()
		if err != nil {
			// fail open so a Redis outage does not lock every user out
			Sugar.Warnf("blacklist lookup failed: %v", err)
			return false
		}
		return n > 0
	}
	_, ok := fallbackStore.Get(ctx, blacklistKeyPrefix+tokenID)
	return ok
}
