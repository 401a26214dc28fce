package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/metrics"
	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
)

// CreditLedger is the single authority deciding how many units of a
// requested batch may proceed and charging exactly that many credits.
//
// Authorize is an advisory read: it truncates the request to the credits
// remaining but mutates nothing. Settle performs the actual debit as one
// atomic increment at the storage layer, which is the only discipline that
// prevents lost updates between concurrent requests on the same key.
type CreditLedger struct {
	store store.AccessKeyStore
}

func NewCreditLedger(s store.AccessKeyStore) *CreditLedger {
	return &CreditLedger{store: s}
}

// Authorization is the outcome of an advisory credit check for one request.
type Authorization struct {
	Key       *model.AccessKey
	Requested int
	Allowed   int
	Remaining int
}

// Authorize fetches the key and computes how many of the requested units fit
// the remaining balance. allowed = min(requested, remaining); requested=0
// and remaining=0 both yield an allowed of 0 without error.
func (l *CreditLedger) Authorize(ctx context.Context, accessKey string, requested int) (*Authorization, error) {
	if requested < 0 {
		return nil, NewBadRequest("invalid_request", "requested count cannot be negative")
	}

	key, err := l.store.GetActiveAccessKey(ctx, accessKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewUnauthorized("invalid_key", "Invalid access key")
		}
		log.Error().Err(err).Msg("failed to fetch access key for authorization")
		return nil, NewInternal("internal_error", "Failed to validate access key")
	}

	remaining := key.CreditsRemaining()
	allowed := requested
	if allowed > remaining {
		allowed = remaining
	}

	return &Authorization{
		Key:       key,
		Requested: requested,
		Allowed:   allowed,
		Remaining: remaining,
	}, nil
}

// Settle debits exactly the units that were concretely consumed under the
// given authorization and returns the new credits remaining. A settlement
// can never exceed what was authorized for the same logical request.
//
// If the debit fails after generation work already happened, credits would
// be silently lost; that shortfall is logged distinctly for reconciliation
// before the error is surfaced.
func (l *CreditLedger) Settle(ctx context.Context, auth *Authorization, consumed int) (int, error) {
	if consumed < 0 {
		return 0, NewBadRequest("invalid_request", "consumed count cannot be negative")
	}
	if consumed > auth.Allowed {
		return 0, NewInternal("settle_exceeds_authorization",
			fmt.Sprintf("attempted to settle %d units against an authorization of %d", consumed, auth.Allowed))
	}
	if consumed == 0 {
		return auth.Remaining, nil
	}

	newUsed, err := l.store.DebitCredits(ctx, auth.Key.Key, consumed)
	if err != nil {
		metrics.SettlementShortfalls.Inc()
		log.Error().Err(err).
			Str("access_key", auth.Key.Key).
			Int("consumed", consumed).
			Msg("credit settlement failed after work completed; shortfall needs reconciliation")
		return 0, NewInternal("settlement_failed", "Failed to record credit usage")
	}

	metrics.CreditsDebited.Add(float64(consumed))

	// The advisory read can race another settlement; an over-total result is
	// detected post-hoc and logged, not rolled back.
	if newUsed > auth.Key.CreditsTotal {
		log.Warn().
			Str("access_key", auth.Key.Key).
			Int("credits_used", newUsed).
			Int("credits_total", auth.Key.CreditsTotal).
			Msg("credits_used exceeds credits_total after racing authorizations")
	}

	remaining := auth.Key.CreditsTotal - newUsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
