package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
)

func TestNewIngestLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewIngestLimiter(config.Config{
		IngestRatePerSec: 25,
		IngestBurst:      50,
	})
	if limiter != nil {
		t.Fatalf("expected nil limiter without a redis address")
	}
	if limiter.Enabled() {
		t.Fatalf("nil limiter reports enabled")
	}
}

func TestNewIngestLimiterRejectsNonPositiveSettings(t *testing.T) {
	cases := []config.Config{
		{RedisAddr: "localhost:6379", IngestRatePerSec: 0, IngestBurst: 50},
		{RedisAddr: "localhost:6379", IngestRatePerSec: 25, IngestBurst: 0},
		{RedisAddr: "localhost:6379", IngestRatePerSec: -1, IngestBurst: -1},
	}
	for _, cfg := range cases {
		if limiter := NewIngestLimiter(cfg); limiter != nil {
			t.Fatalf("expected nil limiter for rate=%v burst=%d", cfg.IngestRatePerSec, cfg.IngestBurst)
		}
	}
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	var limiter *IngestLimiter

	result, err := limiter.AllowOrg(context.Background(), snowflake.ID(42))
	if err != nil {
		t.Fatalf("AllowOrg on nil limiter: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("nil limiter rejected a request")
	}
}

func TestTokenBucketValidatesArguments(t *testing.T) {
	if NewTokenBucket(nil) != nil {
		t.Fatalf("expected nil bucket for nil client")
	}

	var bucket *TokenBucket
	if _, err := bucket.Allow(context.Background(), "key", 1, 1); err == nil {
		t.Fatalf("expected error from unconfigured bucket")
	}

	bucket = &TokenBucket{}
	if _, err := bucket.Allow(context.Background(), "key", 1, 1); err == nil {
		t.Fatalf("expected error from bucket without client")
	}
}

func TestBucketTTLCoversTwoFullRefills(t *testing.T) {
	cases := []struct {
		rate  float64
		burst int
		want  time.Duration
	}{
		{25, 50, 4 * time.Second},
		{1, 1, 2 * time.Second},
		{100, 10, 1 * time.Second},
	}
	for _, tc := range cases {
		if got := bucketTTL(tc.rate, tc.burst); got != tc.want {
			t.Fatalf("bucketTTL(%v, %d) = %v, want %v", tc.rate, tc.burst, got, tc.want)
		}
	}
}

func TestCastHelpersTolerateRedisValueShapes(t *testing.T) {
	if got := castToInt(int64(1)); got != 1 {
		t.Fatalf("castToInt(int64) = %d", got)
	}
	if got := castToInt("nope"); got != 0 {
		t.Fatalf("castToInt(string) = %d, want 0", got)
	}
	if got := castToFloat("12.5"); got != 12.5 {
		t.Fatalf("castToFloat(string) = %v", got)
	}
	if got := castToFloat("not a number"); got != 0 {
		t.Fatalf("castToFloat(bad string) = %v, want 0", got)
	}
	if got := castToFloat(int64(3)); got != 3 {
		t.Fatalf("castToFloat(int64) = %v", got)
	}
}
