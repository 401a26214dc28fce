package model

import "time"

type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanBlogger Plan = "blogger"
	PlanPro     Plan = "pro"
)

// Plans lists every purchasable plan.
func Plans() []Plan {
	return []Plan{PlanBasic, PlanBlogger, PlanPro}
}

type AccessKeyStatus string

const (
	StatusActive    AccessKeyStatus = "active"
	StatusSuspended AccessKeyStatus = "suspended"
	StatusExpired   AccessKeyStatus = "expired"
)

// AccessKey is a prepaid credit balance identified by a human-typable key.
// CreditsUsed is mutated only through the store's atomic debit; CreditsTotal
// never decreases.
type AccessKey struct {
	Key          string          `json:"access_key"`
	Plan         Plan            `json:"plan"`
	CreditsTotal int             `json:"credits_total"`
	CreditsUsed  int             `json:"credits_used"`
	Status       AccessKeyStatus `json:"status"`
	Email        string          `json:"email,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreditsRemaining returns the credits still available on the key. Racing
// settlements can push CreditsUsed past CreditsTotal; remaining never
// reports below zero.
func (k *AccessKey) CreditsRemaining() int {
	remaining := k.CreditsTotal - k.CreditsUsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
