package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/stripe"
)

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a session with redirect URLs", func(t *testing.T) {
		var gotSuccess, gotCancel string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			gotSuccess = r.PostForm.Get("success_url")
			gotCancel = r.PostForm.Get("cancel_url")
			w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.example.com/cs_test_1"}`))
		}))
		defer srv.Close()

		client := stripe.NewClient("sk_test_123").WithBaseURL(srv.URL)
		svc := NewCheckoutService(client, newFakeStore(), "https://app.example.com")

		result, err := svc.Checkout(ctx, model.PlanBasic, "buyer@example.com")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.SessionID != "cs_test_1" || result.CheckoutURL == "" {
			t.Fatalf("unexpected result: %+v", result)
		}
		if gotSuccess != "https://app.example.com/payment/success?session_id={CHECKOUT_SESSION_ID}" {
			t.Fatalf("unexpected success_url %q", gotSuccess)
		}
		if gotCancel != "https://app.example.com/pricing" {
			t.Fatalf("unexpected cancel_url %q", gotCancel)
		}
	})

	t.Run("rejects unknown plans before calling the provider", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		svc := NewCheckoutService(stripe.NewClient("sk_test_123").WithBaseURL(srv.URL), newFakeStore(), "https://app.example.com")
		_, err := svc.Checkout(ctx, "enterprise", "buyer@example.com")
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Code != "unknown_plan" {
			t.Fatalf("expected unknown_plan, got %v", err)
		}
		if called {
			t.Fatal("provider must not be called for an invalid plan")
		}
	})

	t.Run("rejects malformed emails", func(t *testing.T) {
		svc := NewCheckoutService(stripe.NewClient("sk_test_123"), newFakeStore(), "https://app.example.com")
		_, err := svc.Checkout(ctx, model.PlanBasic, "not-an-email")
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != ErrBadRequest {
			t.Fatalf("expected bad request, got %v", err)
		}
	})

	t.Run("provider outage maps to bad gateway", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "oops", http.StatusInternalServerError)
		}))
		defer srv.Close()

		svc := NewCheckoutService(stripe.NewClient("sk_test_123").WithBaseURL(srv.URL), newFakeStore(), "https://app.example.com")
		_, err := svc.Checkout(ctx, model.PlanBasic, "buyer@example.com")
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != ErrBadGateway {
			t.Fatalf("expected bad gateway, got %v", err)
		}
	})
}

func TestCheckoutSessionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("completed payment reports the minted key", func(t *testing.T) {
		st := newFakeStore()
		st.CreatePaymentLog(ctx, &model.PaymentRecord{
			SessionID:     "cs_done",
			AccessKey:     "KWA-AAA-AAA-AA",
			Plan:          model.PlanBasic,
			Credits:       10,
			PaymentStatus: model.PaymentCompleted,
		})
		svc := NewCheckoutService(stripe.NewClient("sk_test_123"), st, "https://app.example.com")

		status, err := svc.Session(ctx, "cs_done")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.Status != "completed" || status.AccessKey != "KWA-AAA-AAA-AA" {
			t.Fatalf("unexpected status: %+v", status)
		}
	})

	t.Run("unprocessed session falls back to the provider as pending", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"cs_wait","customer_email":"buyer@example.com","metadata":{"plan":"basic","credits":"10"}}`))
		}))
		defer srv.Close()

		svc := NewCheckoutService(stripe.NewClient("sk_test_123").WithBaseURL(srv.URL), newFakeStore(), "https://app.example.com")
		status, err := svc.Session(ctx, "cs_wait")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.Status != "pending" || status.AccessKey != "" {
			t.Fatalf("unexpected status: %+v", status)
		}
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such checkout session"}}`))
		}))
		defer srv.Close()

		svc := NewCheckoutService(stripe.NewClient("sk_test_123").WithBaseURL(srv.URL), newFakeStore(), "https://app.example.com")
		_, err := svc.Session(ctx, "cs_gone")
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != ErrNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}
