package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentPending   PaymentStatus = "pending"
)

// PaymentRecord tracks a payment-provider checkout session. SessionID is the
// idempotency key: at most one row exists per session, enforced by a unique
// constraint in the store.
type PaymentRecord struct {
	ID            uuid.UUID     `json:"id"`
	SessionID     string        `json:"session_id"`
	AccessKey     string        `json:"access_key,omitempty"`
	Plan          Plan          `json:"plan"`
	Credits       int           `json:"credits"`
	AmountPaid    int64         `json:"amount_paid"`
	CustomerEmail string        `json:"customer_email,omitempty"`
	CustomerID    string        `json:"customer_id,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PaymentOutcome is the result of processing a checkout-completed event,
// modeled as a tagged variant instead of nullable fields on one shape.
type PaymentOutcome struct {
	Completed *PaymentCompletedOutcome
	Failed    *PaymentFailedOutcome
}

type PaymentCompletedOutcome struct {
	AccessKey     string
	Plan          Plan
	Credits       int
	CustomerEmail string
}

type PaymentFailedOutcome struct {
	Reason string
}
