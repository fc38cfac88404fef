package utils

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yatube/yatube/config"
)

const signupGuardTimeout = 500 * time.Millisecond

func signupKey(parts ...string) string {
	return "signup:" + strings.Join(parts, ":")
}

func dayStamp(now time.Time) string {
	return now.Format("20060102")
}

// untilEndOfDay is how long a daily counter has left to live.
func untilEndOfDay(now time.Time) time.Duration {
	return time.Until(now.Truncate(24 * time.Hour).Add(24 * time.Hour))
}

// SignupCooldownTry enforces a pause between signup attempts from one IP.
func SignupCooldownTry(ctx context.Context, ip string) bool {
	sec := config.Get().SignupCooldownSeconds
	if sec <= 0 {
		return true
	}
	key := signupKey("cooldown", ip)
	ttl := time.Duration(sec) * time.Second
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, signupGuardTimeout)
		defer cancel()
		ok, err := rc.SetNX(ctx, key, "1", ttl).Result()
		if err != nil {
			Sugar.Warnf("signup cooldown check failed: %v", err)
			return true
		}
		return ok
	}
	return fallbackStore.Add(ctx, key, []byte("1"), ttl)
}

// SignupDailyLimitCheck allows up to SignupMaxPerIPPerDay accounts per IP per day.
func SignupDailyLimitCheck(ctx context.Context, ip string) bool {
	limit := config.Get().SignupMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	key := signupKey("day", ip, dayStamp(time.Now()))
	var n int
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, signupGuardTimeout)
		defer cancel()
		v, err := rc.Get(ctx, key).Int()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			Sugar.Warnf("signup limit check failed: %v", err)
			return true
		default:
			n = v
		}
	} else if raw, ok := fallbackStore.Get(ctx, key); ok {
		n, _ = strconv.Atoi(string(raw))
	}
	return n < limit
}

// SignupDailyIncrement counts a successful signup for today.
func SignupDailyIncrement(ctx context.Context, ip string) {
	if config.Get().SignupMaxPerIPPerDay <= 0 {
		return
	}
	now := time.Now()
	key := signupKey("day", ip, dayStamp(now))
	ttl := untilEndOfDay(now)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, signupGuardTimeout)
		defer cancel()
		if err := rc.Incr(ctx, key).Err(); err != nil {
			Sugar.Warnf("signup counter update failed: %v", err)
			return
		}
		_ = rc.Expire(ctx, key, ttl).Err()
		return
	}
	fallbackStore.Incr(ctx, key, ttl)
}
