package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyIngestOrg = "ratelimit:ingest:org:%d"

// IngestLimiter throttles subscription-event writes per organization.
// A nil limiter allows everything, single-instance deployments without
// redis run unthrottled.
type IngestLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewIngestLimiter(cfg config.Config) *IngestLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	if cfg.IngestRatePerSec <= 0 || cfg.IngestBurst <= 0 {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &IngestLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.IngestRatePerSec,
		burst:  cfg.IngestBurst,
	}
}

func (l *IngestLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowOrg consumes one token from the organization's bucket. Redis
// errors fail open, a throttling outage must not take ingestion down.
func (l *IngestLimiter) AllowOrg(ctx context.Context, orgID snowflake.ID) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	result, err := l.bucket.Allow(ctx, fmt.Sprintf(keyIngestOrg, orgID), l.rate, l.burst)
	if err != nil {
		return &Result{Allowed: true}, err
	}
	return result, nil
}
