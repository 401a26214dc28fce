package store

import (
	"context"
	"fmt"

	"github.com/keyword-alchemist-service/internal/model"
)

func (p *Postgres) AppendUsage(ctx context.Context, rec *model.UsageRecord) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO usage_logs (
			access_key, keywords_requested, keywords_processed,
			credits_deducted, output_format, estimated_cost_usd
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, timestamp
	`,
		rec.AccessKey, rec.KeywordsRequested, rec.KeywordsProcessed,
		rec.CreditsDeducted, rec.OutputFormat, rec.EstimatedCostUSD,
	).Scan(&rec.ID, &rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert usage_log: %w", err)
	}
	return nil
}

func (p *Postgres) AppendKeywordAttempt(ctx context.Context, attempt *model.KeywordAttempt) error {
	var errMsg interface{}
	if attempt.ErrorMessage != "" {
		errMsg = attempt.ErrorMessage
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO keyword_analytics (
			access_key, keyword, approach, status, error_message,
			word_count, processing_time_ms, output_format
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, timestamp
	`,
		attempt.AccessKey, attempt.Keyword, attempt.Approach, attempt.Status,
		errMsg, attempt.WordCount, attempt.ProcessingTimeMs, attempt.OutputFormat,
	).Scan(&attempt.ID, &attempt.Timestamp)
	if err != nil {
		return fmt.Errorf("insert keyword_attempt: %w", err)
	}
	return nil
}

// ClearAnalytics truncates the audit logs while preserving structure.
func (p *Postgres) ClearAnalytics(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM usage_logs`); err != nil {
		return fmt.Errorf("clear usage_logs: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM keyword_analytics`); err != nil {
		return fmt.Errorf("clear keyword_analytics: %w", err)
	}
	return nil
}

func (p *Postgres) AnalyticsSummary(ctx context.Context) (*AnalyticsSummary, error) {
	var s AnalyticsSummary

	err := p.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM access_keys),
			(SELECT COUNT(*) FROM usage_logs),
			(SELECT COUNT(*) FROM keyword_analytics),
			(SELECT COUNT(*) FROM keyword_analytics WHERE status = 'success'),
			(SELECT COUNT(*) FROM keyword_analytics WHERE status = 'failed'),
			(SELECT COALESCE(SUM(credits_deducted), 0) FROM usage_logs),
			(SELECT COALESCE(SUM(estimated_cost_usd), 0) FROM usage_logs),
			(SELECT COUNT(*) FROM payment_logs WHERE payment_status = 'completed'),
			(SELECT COUNT(*) FROM payment_logs WHERE payment_status = 'failed'),
			(SELECT COALESCE(SUM(amount_paid), 0) FROM payment_logs WHERE payment_status = 'completed')
	`).Scan(
		&s.TotalKeys, &s.TotalRequests, &s.TotalAttempts,
		&s.SuccessfulKeywords, &s.FailedKeywords,
		&s.TotalCreditsUsed, &s.TotalEstimatedCost,
		&s.CompletedPayments, &s.FailedPayments, &s.TotalRevenueCents,
	)
	if err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}

	rows, err := p.pool.Query(ctx, `SELECT plan, COUNT(*) FROM access_keys GROUP BY plan`)
	if err != nil {
		return nil, fmt.Errorf("plan distribution: %w", err)
	}
	defer rows.Close()

	s.PlanDistribution = make(map[string]int)
	for rows.Next() {
		var plan string
		var count int
		if err := rows.Scan(&plan, &count); err != nil {
			return nil, fmt.Errorf("scan plan distribution: %w", err)
		}
		s.PlanDistribution[plan] = count
	}
	return &s, nil
}
