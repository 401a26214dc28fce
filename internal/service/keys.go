package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/metrics"
	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
	"github.com/keyword-alchemist-service/internal/validation"
)

// KeyService handles administrative access key creation, bypassing payment.
type KeyService struct {
	store  store.AccessKeyStore
	keygen *KeyGenerator
}

func NewKeyService(s store.AccessKeyStore, keygen *KeyGenerator) *KeyService {
	return &KeyService{store: s, keygen: keygen}
}

// CreateKeyResult contains the output of a successful key creation.
type CreateKeyResult struct {
	AccessKey string
	Plan      model.Plan
	Credits   int
}

// Create mints a new funded access key for the given plan.
func (s *KeyService) Create(ctx context.Context, plan model.Plan, email string) (*CreateKeyResult, error) {
	if err := validation.Plan(plan); err != nil {
		return nil, NewBadRequest("unknown_plan", err.Error())
	}
	if email != "" {
		if err := validation.Email(email); err != nil {
			return nil, NewBadRequest("invalid_request", err.Error())
		}
	}

	credits, err := CreditsForPlan(plan)
	if err != nil {
		return nil, err
	}

	accessKey, err := s.keygen.GenerateUnique(ctx, s.store)
	if err != nil {
		return nil, err
	}

	key := &model.AccessKey{
		Key:          accessKey,
		Plan:         plan,
		CreditsTotal: credits,
		Status:       model.StatusActive,
		Email:        email,
	}
	if err := s.store.CreateAccessKey(ctx, key); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// GenerateUnique raced another creation; surface as internal,
			// the caller can simply retry.
			log.Error().Str("access_key", accessKey).Msg("generated key collided on insert")
		} else {
			log.Error().Err(err).Msg("failed to create access key")
		}
		return nil, NewInternal("internal_error", "Failed to create access key")
	}

	metrics.KeysCreated.WithLabelValues("admin").Inc()
	return &CreateKeyResult{AccessKey: accessKey, Plan: plan, Credits: credits}, nil
}

// SetStatus suspends, expires, or reactivates an existing key.
func (s *KeyService) SetStatus(ctx context.Context, accessKey string, status model.AccessKeyStatus) error {
	switch status {
	case model.StatusActive, model.StatusSuspended, model.StatusExpired:
	default:
		return NewBadRequest("invalid_request", "status must be active, suspended, or expired")
	}

	if err := s.store.UpdateAccessKeyStatus(ctx, accessKey, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFound("not_found", "Access key not found")
		}
		log.Error().Err(err).Str("access_key", accessKey).Msg("failed to update access key status")
		return NewInternal("internal_error", "Failed to update access key")
	}
	return nil
}
