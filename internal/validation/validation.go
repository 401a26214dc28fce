package validation

import (
	"fmt"
	"strings"

	"github.com/keyword-alchemist-service/internal/model"
)

// maxKeywordsPerBatch bounds one request; the credit ledger bounds spend,
// this bounds abuse of a single call.
const maxKeywordsPerBatch = 100

const maxKeywordLength = 200

// Plan validates that the plan is one of the purchasable plans.
func Plan(plan model.Plan) error {
	for _, p := range model.Plans() {
		if plan == p {
			return nil
		}
	}
	return fmt.Errorf("unknown plan %q", plan)
}

// Keywords validates an ordered keyword batch: non-empty, within the batch
// ceiling, and every entry non-blank after trimming. It returns the trimmed
// batch in submitted order.
func Keywords(keywords []string) ([]string, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keywords cannot be empty")
	}
	if len(keywords) > maxKeywordsPerBatch {
		return nil, fmt.Errorf("too many keywords: %d, maximum %d per request", len(keywords), maxKeywordsPerBatch)
	}

	trimmed := make([]string, 0, len(keywords))
	for i, kw := range keywords {
		t := strings.TrimSpace(kw)
		if t == "" {
			return nil, fmt.Errorf("keyword %d is blank", i+1)
		}
		if len(t) > maxKeywordLength {
			return nil, fmt.Errorf("keyword %d exceeds %d characters", i+1, maxKeywordLength)
		}
		trimmed = append(trimmed, t)
	}
	return trimmed, nil
}

// Email performs a light structural check; deliverability is the payment
// provider's problem.
func Email(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
