package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
)

// keyAlphabet excludes visually confusable characters (0/O, 1/I) so keys
// survive being read over the phone or typed from paper.
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	keyPrefix        = "KWA"
	keyRandomLength  = 8
	maxKeyGenRetries = 20
)

var planCredits = map[model.Plan]int{
	model.PlanBasic:   10,
	model.PlanBlogger: 50,
	model.PlanPro:     240,
}

// KeyGenerator produces human-typable access key identifiers and guarantees
// uniqueness against the store.
type KeyGenerator struct{}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// GenerateCandidate builds a candidate key of the form KWA-XXX-XXX-XX.
// It is a pure random draw; uniqueness is GenerateUnique's job.
func (g *KeyGenerator) GenerateCandidate() (string, error) {
	chars := make([]byte, keyRandomLength)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range chars {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("crypto/rand failed: %w", err)
		}
		chars[i] = keyAlphabet[n.Int64()]
	}

	s := string(chars)
	return strings.Join([]string{keyPrefix, s[0:3], s[3:6], s[6:8]}, "-"), nil
}

// GenerateUnique draws candidates until one is absent from the store. The
// retry ceiling turns a store outage or a (practically impossible) exhausted
// alphabet into a loud failure instead of an infinite loop.
func (g *KeyGenerator) GenerateUnique(ctx context.Context, s store.AccessKeyStore) (string, error) {
	for attempt := 1; attempt <= maxKeyGenRetries; attempt++ {
		candidate, err := g.GenerateCandidate()
		if err != nil {
			return "", NewInternal("internal_error", "Failed to generate access key")
		}

		exists, err := s.AccessKeyExists(ctx, candidate)
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("key uniqueness check failed")
			return "", NewInternal("internal_error", "Failed to generate access key")
		}
		if !exists {
			return candidate, nil
		}
	}

	log.Error().Int("attempts", maxKeyGenRetries).Msg("access key generation exhausted retry ceiling")
	return "", NewInternal("generation_exhausted", "Failed to generate a unique access key")
}

// CreditsForPlan returns the prepaid credit grant for a plan. Unknown plans
// fail loudly; silently granting 0 credits is a latent bug class.
func CreditsForPlan(plan model.Plan) (int, error) {
	credits, ok := planCredits[plan]
	if !ok {
		return 0, NewBadRequest("unknown_plan", fmt.Sprintf("unknown plan %q", plan))
	}
	return credits, nil
}
