package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeTokenVerifier struct {
	claims *IDClaims
	err    error
}

func (f *fakeTokenVerifier) VerifyClaims(_ context.Context, _ string) (*IDClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func adminEchoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"email":%q}`, GetAdminEmail(r.Context()))
	})
}

func adminRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/keys", nil)
	req.RemoteAddr = "10.0.0.1:44000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestGoogleAuthMiddleware(t *testing.T) {
	allowed := &IDClaims{Email: "ops@keywordalchemist.com", EmailVerified: true, HD: "keywordalchemist.com"}

	t.Run("valid token with allowed email passes", func(t *testing.T) {
		ga := NewGoogleAuthWithVerifier(&fakeTokenVerifier{claims: allowed},
			"keywordalchemist.com", []string{"ops@keywordalchemist.com"})
		h := ga.Middleware(nil)(adminEchoHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, adminRequest("valid-token"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var body struct {
			Email string `json:"email"`
		}
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Email != "ops@keywordalchemist.com" {
			t.Fatalf("expected admin email in context, got %q", body.Email)
		}
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		ga := NewGoogleAuthWithVerifier(&fakeTokenVerifier{},
			"keywordalchemist.com", []string{"ops@keywordalchemist.com"})
		h := ga.Middleware(nil)(adminEchoHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, adminRequest(""))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		ga := NewGoogleAuthWithVerifier(&fakeTokenVerifier{err: fmt.Errorf("bad signature")},
			"keywordalchemist.com", []string{"ops@keywordalchemist.com"})
		h := ga.Middleware(nil)(adminEchoHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, adminRequest("bad-token"))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong domain is forbidden", func(t *testing.T) {
		claims := &IDClaims{Email: "ops@elsewhere.com", EmailVerified: true, HD: "elsewhere.com"}
		ga := NewGoogleAuthWithVerifier(&fakeTokenVerifier{claims: claims},
			"keywordalchemist.com", []string{"ops@keywordalchemist.com"})
		h := ga.Middleware(nil)(adminEchoHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, adminRequest("valid-token"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("email outside the allowlist is forbidden", func(t *testing.T) {
		claims := &IDClaims{Email: "intern@keywordalchemist.com", EmailVerified: true, HD: "keywordalchemist.com"}
		ga := NewGoogleAuthWithVerifier(&fakeTokenVerifier{claims: claims},
			"keywordalchemist.com", []string{"ops@keywordalchemist.com"})
		h := ga.Middleware(nil)(adminEchoHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, adminRequest("valid-token"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("repeated failures trip the attempt limiter", func(t *testing.T) {
		ga := NewGoogleAuthWithVerifier(&fakeTokenVerifier{err: fmt.Errorf("bad signature")},
			"keywordalchemist.com", []string{"ops@keywordalchemist.com"})
		limiter := NewAuthAttemptLimiter(3, time.Minute, time.Minute)
		h := ga.Middleware(limiter)(adminEchoHandler())

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, adminRequest("bad-token"))
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
			}
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, adminRequest("bad-token"))
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after lockout, got %d", rec.Code)
		}
	})
}
