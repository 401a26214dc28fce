package store

import (
	"context"
	"errors"
	"time"

	"github.com/keyword-alchemist-service/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no rows.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when an access key already exists.
	ErrDuplicateKey = errors.New("duplicate access key")
	// ErrDuplicateSession is returned when a payment log already exists for
	// the session ID. The unique constraint on session_id is the concurrency
	// control for webhook re-delivery.
	ErrDuplicateSession = errors.New("duplicate payment session")
)

// AccessKeyStore defines operations for access key management.
type AccessKeyStore interface {
	CreateAccessKey(ctx context.Context, key *model.AccessKey) error
	// GetActiveAccessKey returns the key only when status is active.
	// Suspended and expired keys behave as not found.
	GetActiveAccessKey(ctx context.Context, key string) (*model.AccessKey, error)
	// AccessKeyExists reports whether the key exists in any status.
	AccessKeyExists(ctx context.Context, key string) (bool, error)
	// DebitCredits atomically increments credits_used by amount in a single
	// statement and returns the new credits_used. It does not check
	// sufficiency; that is the ledger's job.
	DebitCredits(ctx context.Context, key string, amount int) (int, error)
	ListAccessKeys(ctx context.Context, page, perPage int) ([]*model.AccessKey, int, error)
	CountAccessKeys(ctx context.Context) (int, error)
	UpdateAccessKeyStatus(ctx context.Context, key string, status model.AccessKeyStatus) error
	DeleteAllAccessKeys(ctx context.Context) error
}

// UsageLogStore defines operations for the append-only audit logs.
type UsageLogStore interface {
	AppendUsage(ctx context.Context, rec *model.UsageRecord) error
	AppendKeywordAttempt(ctx context.Context, attempt *model.KeywordAttempt) error
	ClearAnalytics(ctx context.Context) error
	AnalyticsSummary(ctx context.Context) (*AnalyticsSummary, error)
}

// PaymentLogStore defines operations for payment tracking.
type PaymentLogStore interface {
	CreatePaymentLog(ctx context.Context, rec *model.PaymentRecord) error
	GetPaymentBySessionID(ctx context.Context, sessionID string) (*model.PaymentRecord, error)
	// CreateFundedAccessKey creates the access key and its completed payment
	// log as a single atomic unit, so a webhook crash cannot leave a key
	// without the payment record that marks it granted.
	CreateFundedAccessKey(ctx context.Context, key *model.AccessKey, rec *model.PaymentRecord) error
	ListRecentPayments(ctx context.Context, since time.Time, limit int) ([]*model.PaymentRecord, error)
}

// Store combines all storage concerns behind one handle.
type Store interface {
	AccessKeyStore
	UsageLogStore
	PaymentLogStore
}

// AnalyticsSummary aggregates the admin dashboard counters.
type AnalyticsSummary struct {
	TotalKeys          int     `json:"total_keys"`
	TotalRequests      int     `json:"total_requests"`
	TotalAttempts      int     `json:"total_keyword_attempts"`
	SuccessfulKeywords int     `json:"successful_keywords"`
	FailedKeywords     int     `json:"failed_keywords"`
	TotalCreditsUsed   int     `json:"total_credits_used"`
	TotalEstimatedCost float64 `json:"total_estimated_cost_usd"`
	CompletedPayments  int     `json:"completed_payments"`
	FailedPayments     int     `json:"failed_payments"`
	TotalRevenueCents  int64   `json:"total_revenue_cents"`

	PlanDistribution map[string]int `json:"plan_distribution"`
}
