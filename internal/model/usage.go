package model

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is an append-only audit entry written once per processed batch.
type UsageRecord struct {
	ID                uuid.UUID `json:"id"`
	AccessKey         string    `json:"access_key"`
	KeywordsRequested int       `json:"keywords_requested"`
	KeywordsProcessed int       `json:"keywords_processed"`
	CreditsDeducted   int       `json:"credits_deducted"`
	OutputFormat      string    `json:"output_format"`
	EstimatedCostUSD  float64   `json:"estimated_cost_usd"`
	Timestamp         time.Time `json:"timestamp"`
}

type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

// KeywordAttempt records the outcome of a single keyword generation call.
// Append-only; one row per attempted keyword.
type KeywordAttempt struct {
	ID               uuid.UUID     `json:"id"`
	AccessKey        string        `json:"access_key"`
	Keyword          string        `json:"keyword"`
	Approach         string        `json:"approach"`
	Status           AttemptStatus `json:"status"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	WordCount        *int          `json:"word_count,omitempty"`
	ProcessingTimeMs *int64        `json:"processing_time_ms,omitempty"`
	OutputFormat     string        `json:"output_format"`
	Timestamp        time.Time     `json:"timestamp"`
}
