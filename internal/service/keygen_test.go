package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/keyword-alchemist-service/internal/model"
)

var keyPattern = regexp.MustCompile(`^KWA-[A-HJ-NP-Z2-9]{3}-[A-HJ-NP-Z2-9]{3}-[A-HJ-NP-Z2-9]{2}$`)

func TestGenerateCandidate(t *testing.T) {
	g := NewKeyGenerator()

	t.Run("matches key format", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			key, err := g.GenerateCandidate()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !keyPattern.MatchString(key) {
				t.Fatalf("key %q does not match expected format", key)
			}
		}
	})

	t.Run("excludes confusable characters", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			key, err := g.GenerateCandidate()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if strings.ContainsAny(key, "01OI") {
				t.Fatalf("key %q contains a confusable character", key)
			}
		}
	})
}

func TestGenerateUnique(t *testing.T) {
	ctx := context.Background()
	g := NewKeyGenerator()

	t.Run("returns first free candidate", func(t *testing.T) {
		st := newFakeStore()
		key, err := g.GenerateUnique(ctx, st)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !keyPattern.MatchString(key) {
			t.Fatalf("key %q does not match expected format", key)
		}
		if st.existsCalls != 1 {
			t.Fatalf("expected 1 uniqueness check, got %d", st.existsCalls)
		}
	})

	t.Run("retries past collisions", func(t *testing.T) {
		st := newFakeStore()
		collisions := 5
		st.existsHook = func(string) bool {
			collisions--
			return collisions >= 0
		}

		key, err := g.GenerateUnique(ctx, st)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if key == "" {
			t.Fatal("expected a key")
		}
		if st.existsCalls != 6 {
			t.Fatalf("expected 6 uniqueness checks, got %d", st.existsCalls)
		}
	})

	t.Run("gives up after retry ceiling", func(t *testing.T) {
		st := newFakeStore()
		st.existsHook = func(string) bool { return true }

		_, err := g.GenerateUnique(ctx, st)
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Code != "generation_exhausted" {
			t.Fatalf("expected generation_exhausted, got %v", err)
		}
		if st.existsCalls != maxKeyGenRetries {
			t.Fatalf("expected %d uniqueness checks, got %d", maxKeyGenRetries, st.existsCalls)
		}
	})

	t.Run("store failure surfaces as internal error", func(t *testing.T) {
		st := newFakeStore()
		st.existsErr = errors.New("connection refused")

		_, err := g.GenerateUnique(ctx, st)
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != ErrInternal {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}

func TestCreditsForPlan(t *testing.T) {
	cases := []struct {
		plan    model.Plan
		credits int
	}{
		{model.PlanBasic, 10},
		{model.PlanBlogger, 50},
		{model.PlanPro, 240},
	}
	for _, tc := range cases {
		t.Run(string(tc.plan), func(t *testing.T) {
			got, err := CreditsForPlan(tc.plan)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.credits {
				t.Fatalf("expected %d credits, got %d", tc.credits, got)
			}
		})
	}

	t.Run("unknown plan fails", func(t *testing.T) {
		_, err := CreditsForPlan(model.Plan("enterprise"))
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Code != "unknown_plan" {
			t.Fatalf("expected unknown_plan, got %v", err)
		}
	})
}
