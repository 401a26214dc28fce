package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
	"github.com/keyword-alchemist-service/internal/stripe"
	"github.com/keyword-alchemist-service/internal/validation"
)

// CheckoutService creates payment-provider checkout sessions for plan
// purchases. The session carries {plan, credits} metadata that the webhook
// processor consumes once payment completes.
type CheckoutService struct {
	client      *stripe.Client
	payments    store.PaymentLogStore
	frontendURL string
}

func NewCheckoutService(client *stripe.Client, payments store.PaymentLogStore, frontendURL string) *CheckoutService {
	return &CheckoutService{client: client, payments: payments, frontendURL: frontendURL}
}

// CheckoutResult contains the redirectable checkout URL.
type CheckoutResult struct {
	SessionID   string
	CheckoutURL string
}

// Checkout creates a one-time payment session for the plan.
func (s *CheckoutService) Checkout(ctx context.Context, plan model.Plan, customerEmail string) (*CheckoutResult, error) {
	if err := validation.Plan(plan); err != nil {
		return nil, NewBadRequest("unknown_plan", err.Error())
	}
	if err := validation.Email(customerEmail); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}

	session, err := s.client.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		Plan:          plan,
		CustomerEmail: customerEmail,
		SuccessURL:    s.frontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.frontendURL + "/pricing",
	})
	if err != nil {
		log.Error().Err(err).Str("plan", string(plan)).Msg("failed to create checkout session")
		return nil, NewBadGateway("payment_provider_error", "Failed to create checkout session")
	}

	return &CheckoutResult{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// SessionStatus is what the post-payment success page polls for.
type SessionStatus struct {
	Status    string
	AccessKey string
	Plan      model.Plan
	Credits   int
	Email     string
}

// Session reports the outcome of a checkout session. The webhook is the
// source of truth; until it lands, the session is confirmed against the
// provider and reported as pending.
func (s *CheckoutService) Session(ctx context.Context, sessionID string) (*SessionStatus, error) {
	rec, err := s.payments.GetPaymentBySessionID(ctx, sessionID)
	if err == nil {
		status := "failed"
		if rec.PaymentStatus == model.PaymentCompleted {
			status = "completed"
		}
		return &SessionStatus{
			Status:    status,
			AccessKey: rec.AccessKey,
			Plan:      rec.Plan,
			Credits:   rec.Credits,
			Email:     rec.CustomerEmail,
		}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to look up payment session")
		return nil, NewInternal("internal_error", "Failed to look up session")
	}

	session, err := s.client.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, NewNotFound("session_not_found", "Unknown checkout session")
	}
	return &SessionStatus{
		Status: "pending",
		Plan:   model.Plan(session.Metadata["plan"]),
		Email:  session.CustomerEmail,
	}, nil
}
