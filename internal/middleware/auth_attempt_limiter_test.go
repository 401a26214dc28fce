package middleware

import (
	"testing"
	"time"
)

func TestAuthAttemptLimiterBlocksAfterThreshold(t *testing.T) {
	limiter := NewAuthAttemptLimiter(3, time.Minute, 150*time.Millisecond)
	key := "api_key:198.51.100.1"

	if !limiter.Allow(key) {
		t.Fatal("expected initial request to be allowed")
	}

	limiter.RegisterFailure(key)
	limiter.RegisterFailure(key)
	limiter.RegisterFailure(key)

	if limiter.Allow(key) {
		t.Fatal("expected request to be blocked after max failures")
	}

	time.Sleep(200 * time.Millisecond)
	if !limiter.Allow(key) {
		t.Fatal("expected request to be allowed after block duration")
	}
}

func TestAuthAttemptLimiterSuccessResetsFailures(t *testing.T) {
	limiter := NewAuthAttemptLimiter(2, time.Minute, time.Minute)
	key := "admin:203.0.113.5"

	limiter.RegisterFailure(key)
	limiter.RegisterSuccess(key)
	limiter.RegisterFailure(key)

	if !limiter.Allow(key) {
		t.Fatal("expected success to clear previous failures")
	}
}
