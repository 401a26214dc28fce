package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/metrics"
	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
	"github.com/keyword-alchemist-service/internal/stripe"
)

// WebhookProcessor converts payment-provider events into funded access
// keys, exactly once per checkout session regardless of how many times the
// provider re-delivers the event.
type WebhookProcessor struct {
	store    store.Store
	keygen   *KeyGenerator
	verifier *stripe.WebhookVerifier
}

func NewWebhookProcessor(s store.Store, keygen *KeyGenerator, verifier *stripe.WebhookVerifier) *WebhookProcessor {
	return &WebhookProcessor{store: s, keygen: keygen, verifier: verifier}
}

// Process verifies and dispatches one webhook delivery.
//
// Signature failures are fatal for the delivery and never retried here; the
// provider retries on its own schedule, at which point the session_id
// uniqueness constraint makes re-processing safe.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, sigHeader string) (*model.PaymentOutcome, error) {
	event, err := p.verifier.VerifyAndParse(payload, sigHeader)
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) {
			return nil, NewBadRequest("invalid_signature", "Webhook signature verification failed")
		}
		return nil, NewBadRequest("invalid_request", "Malformed webhook payload")
	}

	log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("processing payment webhook event")

	switch event.Type {
	case stripe.EventCheckoutCompleted:
		return p.handleCheckoutCompleted(ctx, event)
	case stripe.EventPaymentSucceeded, stripe.EventPaymentFailed:
		// Standalone payment-intent signals carry no checkout metadata and
		// never mutate access key state; they are logged for observability.
		p.logPaymentIntent(event)
		return nil, nil
	default:
		log.Info().Str("type", event.Type).Msg("unhandled payment webhook event type")
		return nil, nil
	}
}

func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) (*model.PaymentOutcome, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		metrics.PaymentEvents.WithLabelValues(event.Type, "malformed").Inc()
		return nil, NewBadRequest("malformed_event", "Malformed checkout session object")
	}

	plan := model.Plan(session.Metadata["plan"])
	credits, convErr := strconv.Atoi(session.Metadata["credits"])
	if session.Metadata["plan"] == "" || convErr != nil || credits <= 0 {
		metrics.PaymentEvents.WithLabelValues(event.Type, "malformed").Inc()
		p.recordFailure(ctx, &session, plan, credits, "missing plan or credits in session metadata")
		return nil, NewBadRequest("malformed_event", "Missing plan or credits in session metadata")
	}

	// Idempotency: a previously recorded session is returned as-is, never
	// re-applied. Guards against duplicate delivery.
	if existing, err := p.store.GetPaymentBySessionID(ctx, session.ID); err == nil {
		log.Info().Str("session_id", session.ID).Str("status", string(existing.PaymentStatus)).
			Msg("duplicate webhook delivery; returning recorded outcome")
		metrics.PaymentEvents.WithLabelValues(event.Type, "duplicate").Inc()
		return outcomeFromRecord(existing), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("session_id", session.ID).Msg("payment idempotency lookup failed")
		return nil, NewInternal("internal_error", "Failed to process payment event")
	}

	accessKey, err := p.keygen.GenerateUnique(ctx, p.store)
	if err != nil {
		p.recordFailure(ctx, &session, plan, credits, err.Error())
		metrics.PaymentEvents.WithLabelValues(event.Type, "failed").Inc()
		return nil, NewInternal("internal_error", "Failed to create access key")
	}

	key := &model.AccessKey{
		Key:          accessKey,
		Plan:         plan,
		CreditsTotal: credits,
		Status:       model.StatusActive,
		Email:        session.CustomerEmail,
	}
	record := &model.PaymentRecord{
		SessionID:     session.ID,
		AccessKey:     accessKey,
		Plan:          plan,
		Credits:       credits,
		AmountPaid:    session.AmountTotal,
		CustomerEmail: session.CustomerEmail,
		CustomerID:    session.Customer,
		PaymentStatus: model.PaymentCompleted,
	}

	// Key and payment record are written in one transaction; two concurrent
	// deliveries race on the session_id constraint and exactly one wins.
	if err := p.store.CreateFundedAccessKey(ctx, key, record); err != nil {
		if errors.Is(err, store.ErrDuplicateSession) {
			if existing, getErr := p.store.GetPaymentBySessionID(ctx, session.ID); getErr == nil {
				metrics.PaymentEvents.WithLabelValues(event.Type, "duplicate").Inc()
				return outcomeFromRecord(existing), nil
			}
			return nil, NewInternal("internal_error", "Failed to process payment event")
		}
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to create funded access key")
		p.recordFailure(ctx, &session, plan, credits, err.Error())
		metrics.PaymentEvents.WithLabelValues(event.Type, "failed").Inc()
		return nil, NewInternal("internal_error", "Failed to create access key for payment")
	}

	log.Info().
		Str("session_id", session.ID).
		Str("access_key", accessKey).
		Str("plan", string(plan)).
		Int("credits", credits).
		Msg("created funded access key from checkout")
	metrics.PaymentEvents.WithLabelValues(event.Type, "completed").Inc()
	metrics.KeysCreated.WithLabelValues("payment").Inc()

	return &model.PaymentOutcome{Completed: &model.PaymentCompletedOutcome{
		AccessKey:     accessKey,
		Plan:          plan,
		Credits:       credits,
		CustomerEmail: session.CustomerEmail,
	}}, nil
}

// recordFailure persists a failed payment log so the next delivery of the
// same session short-circuits on the idempotency check. Best effort: a
// failure to record is logged, not propagated.
func (p *WebhookProcessor) recordFailure(ctx context.Context, session *stripe.CheckoutSession, plan model.Plan, credits int, reason string) {
	rec := &model.PaymentRecord{
		SessionID:     session.ID,
		Plan:          plan,
		Credits:       credits,
		AmountPaid:    session.AmountTotal,
		CustomerEmail: session.CustomerEmail,
		CustomerID:    session.Customer,
		PaymentStatus: model.PaymentFailed,
		ErrorMessage:  reason,
	}
	if err := p.store.CreatePaymentLog(ctx, rec); err != nil && !errors.Is(err, store.ErrDuplicateSession) {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to record failed payment")
	}
}

func (p *WebhookProcessor) logPaymentIntent(event *stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		log.Warn().Str("type", event.Type).Msg("unparseable payment intent object")
		return
	}

	if event.Type == stripe.EventPaymentFailed {
		log.Warn().Str("payment_intent", intent.ID).Int64("amount", intent.Amount).Msg("payment failed")
		metrics.PaymentEvents.WithLabelValues(event.Type, "failed").Inc()
		return
	}
	log.Info().Str("payment_intent", intent.ID).Int64("amount", intent.Amount).Msg("payment succeeded")
	metrics.PaymentEvents.WithLabelValues(event.Type, "completed").Inc()
}

func outcomeFromRecord(rec *model.PaymentRecord) *model.PaymentOutcome {
	if rec.PaymentStatus == model.PaymentCompleted {
		return &model.PaymentOutcome{Completed: &model.PaymentCompletedOutcome{
			AccessKey:     rec.AccessKey,
			Plan:          rec.Plan,
			Credits:       rec.Credits,
			CustomerEmail: rec.CustomerEmail,
		}}
	}
	return &model.PaymentOutcome{Failed: &model.PaymentFailedOutcome{Reason: rec.ErrorMessage}}
}
