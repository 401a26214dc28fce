package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/keyword-alchemist-service/internal/model"
)

func TestAuthorize(t *testing.T) {
	ctx := context.Background()

	t.Run("full batch fits remaining credits", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 3, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth.Allowed != 5 || auth.Remaining != 7 {
			t.Fatalf("unexpected authorization: allowed=%d remaining=%d", auth.Allowed, auth.Remaining)
		}
	})

	t.Run("truncates to remaining credits", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 7, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth.Allowed != 3 || auth.Remaining != 3 {
			t.Fatalf("unexpected authorization: allowed=%d remaining=%d", auth.Allowed, auth.Remaining)
		}
	})

	t.Run("zero requested is a pure balance read", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBlogger, 50, 50, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth.Allowed != 0 || auth.Remaining != 0 {
			t.Fatalf("unexpected authorization: allowed=%d remaining=%d", auth.Allowed, auth.Remaining)
		}
	})

	t.Run("overspent key authorizes zero", func(t *testing.T) {
		// Racing settlements can leave credits_used above credits_total;
		// the advisory read must clamp, not go negative.
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 12, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth.Allowed != 0 || auth.Remaining != 0 {
			t.Fatalf("unexpected authorization: allowed=%d remaining=%d", auth.Allowed, auth.Remaining)
		}
	})

	t.Run("unknown key is unauthorized", func(t *testing.T) {
		ledger := NewCreditLedger(newFakeStore())

		_, err := ledger.Authorize(ctx, "KWA-ZZZ-ZZZ-ZZ", 1)
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != ErrUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("suspended key behaves as unknown", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 0, model.StatusSuspended)
		ledger := NewCreditLedger(st)

		_, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 1)
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Code != "invalid_key" {
			t.Fatalf("expected invalid_key, got %v", err)
		}
	})

	t.Run("negative requested is rejected", func(t *testing.T) {
		ledger := NewCreditLedger(newFakeStore())

		_, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", -1)
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != ErrBadRequest {
			t.Fatalf("expected bad request, got %v", err)
		}
	})
}

func TestSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("debits exactly the consumed amount", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 2, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 5)
		if err != nil {
			t.Fatalf("authorize: %v", err)
		}
		remaining, err := ledger.Settle(ctx, auth, 5)
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		if remaining != 3 {
			t.Fatalf("expected 3 remaining, got %d", remaining)
		}
		if st.keys["KWA-AAA-AAA-AA"].CreditsUsed != 7 {
			t.Fatalf("expected credits_used=7, got %d", st.keys["KWA-AAA-AAA-AA"].CreditsUsed)
		}
	})

	t.Run("zero consumed debits nothing", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 2, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, _ := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 5)
		remaining, err := ledger.Settle(ctx, auth, 0)
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		if remaining != 8 {
			t.Fatalf("expected 8 remaining, got %d", remaining)
		}
		if st.keys["KWA-AAA-AAA-AA"].CreditsUsed != 2 {
			t.Fatalf("expected credits_used unchanged, got %d", st.keys["KWA-AAA-AAA-AA"].CreditsUsed)
		}
	})

	t.Run("rejects settling beyond the authorization", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 0, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, _ := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 3)
		_, err := ledger.Settle(ctx, auth, 4)
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Code != "settle_exceeds_authorization" {
			t.Fatalf("expected settle_exceeds_authorization, got %v", err)
		}
		if st.keys["KWA-AAA-AAA-AA"].CreditsUsed != 0 {
			t.Fatalf("expected no debit, got credits_used=%d", st.keys["KWA-AAA-AAA-AA"].CreditsUsed)
		}
	})

	t.Run("debit failure surfaces as settlement_failed", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanBasic, 10, 0, model.StatusActive)
		ledger := NewCreditLedger(st)

		auth, _ := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 3)
		st.debitErr = errors.New("connection reset")
		_, err := ledger.Settle(ctx, auth, 3)
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Code != "settlement_failed" {
			t.Fatalf("expected settlement_failed, got %v", err)
		}
	})

	t.Run("concurrent settlements lose no updates", func(t *testing.T) {
		st := newFakeStore()
		st.addKey("KWA-AAA-AAA-AA", model.PlanPro, 240, 0, model.StatusActive)
		ledger := NewCreditLedger(st)

		const workers = 20
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				auth, err := ledger.Authorize(ctx, "KWA-AAA-AAA-AA", 2)
				if err != nil {
					t.Errorf("authorize: %v", err)
					return
				}
				if _, err := ledger.Settle(ctx, auth, 2); err != nil {
					t.Errorf("settle: %v", err)
				}
			}()
		}
		wg.Wait()

		if used := st.keys["KWA-AAA-AAA-AA"].CreditsUsed; used != workers*2 {
			t.Fatalf("expected credits_used=%d, got %d", workers*2, used)
		}
	})
}
