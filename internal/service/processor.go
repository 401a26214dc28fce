package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/gemini"
	"github.com/keyword-alchemist-service/internal/metrics"
	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
)

// Generator produces a blog post for a keyword. The concrete implementation
// is the generation-provider client; tests substitute fakes.
type Generator interface {
	GenerateBlogPost(ctx context.Context, keyword string) (*gemini.BlogPost, error)
}

const (
	defaultOutputFormat = "wordpress"
	defaultApproach     = "standard"

	// estimatedCostPerCallUSD feeds the admin cost dashboards; it is an
	// estimate, not billing data.
	estimatedCostPerCallUSD = 0.002
)

// KeywordProcessor is the externally facing unit of work: authorize against
// the ledger, run generation for the allowed prefix, settle exactly what was
// consumed, and append the audit records.
type KeywordProcessor struct {
	ledger    *CreditLedger
	store     store.Store
	generator Generator
}

func NewKeywordProcessor(ledger *CreditLedger, s store.Store, generator Generator) *KeywordProcessor {
	return &KeywordProcessor{ledger: ledger, store: s, generator: generator}
}

// ProcessedKeyword is one successfully generated article.
type ProcessedKeyword struct {
	Keyword   string `json:"keyword"`
	Title     string `json:"title"`
	TLDR      string `json:"tldr"`
	Body      string `json:"body"`
	Approach  string `json:"approach"`
	WordCount int    `json:"word_count"`
}

// FailedKeyword is one keyword whose generation failed. The failure is
// attributed to the keyword and still consumes a credit.
type FailedKeyword struct {
	Keyword string `json:"keyword"`
	Error   string `json:"error"`
}

// ProcessResult is the outcome of one batch.
type ProcessResult struct {
	// Partial is set when the request exceeded the remaining credits; no
	// work was attempted and nothing was billed.
	Partial *PartialResult

	Processed        []ProcessedKeyword
	Failed           []FailedKeyword
	CreditsRemaining int
}

// PartialResult enumerates the split when a batch exceeds remaining credits:
// the first allowed keywords in submitted order, then the rejected suffix.
type PartialResult struct {
	AllowedKeywords  []string
	RejectedKeywords []string
	CreditsRemaining int
}

// Process handles one ordered batch of keywords for an access key.
//
// The ledger's authorize read happens before any generation work; generation
// runs without holding any lock or transaction; settlement debits exactly
// the number of attempted keywords (failed generations are still billed).
func (p *KeywordProcessor) Process(ctx context.Context, accessKey string, keywords []string) (*ProcessResult, error) {
	auth, err := p.ledger.Authorize(ctx, accessKey, len(keywords))
	if err != nil {
		return nil, err
	}

	// Insufficient credits is not an error: report the allowed/rejected
	// split and let the caller decide whether to resubmit the prefix.
	if auth.Allowed < auth.Requested {
		return &ProcessResult{Partial: &PartialResult{
			AllowedKeywords:  keywords[:auth.Allowed],
			RejectedKeywords: keywords[auth.Allowed:],
			CreditsRemaining: auth.Remaining,
		}}, nil
	}

	result := &ProcessResult{}
	consumed := 0
	for _, keyword := range keywords {
		start := time.Now()
		post, genErr := p.generator.GenerateBlogPost(ctx, keyword)
		elapsed := time.Since(start).Milliseconds()
		consumed++

		if genErr != nil {
			log.Warn().Err(genErr).Str("keyword", keyword).Msg("keyword generation failed")
			metrics.GenerationAttempts.WithLabelValues("failed").Inc()
			result.Failed = append(result.Failed, FailedKeyword{Keyword: keyword, Error: genErr.Error()})
			p.appendAttempt(ctx, accessKey, keyword, nil, elapsed, genErr)
			continue
		}

		metrics.GenerationAttempts.WithLabelValues("success").Inc()
		result.Processed = append(result.Processed, ProcessedKeyword{
			Keyword:   keyword,
			Title:     post.Title,
			TLDR:      post.TLDR,
			Body:      post.Body,
			Approach:  defaultApproach,
			WordCount: post.WordCount,
		})
		p.appendAttempt(ctx, accessKey, keyword, post, elapsed, nil)
	}

	remaining, err := p.ledger.Settle(ctx, auth, consumed)
	if err != nil {
		// Generation already happened; the caller still needs to know which
		// keywords succeeded. Remaining is reported from the advisory read.
		log.Error().Err(err).Str("access_key", accessKey).Int("consumed", consumed).
			Msg("settlement failed; returning results with unsettled credits")
		result.CreditsRemaining = auth.Remaining
		// The shortfall must stay visible in the audit table, not just the
		// logs; record the deduction that was attempted.
		p.appendUsage(ctx, accessKey, auth.Requested, len(result.Processed), consumed)
		return result, nil
	}
	result.CreditsRemaining = remaining

	p.appendUsage(ctx, accessKey, auth.Requested, len(result.Processed), consumed)
	return result, nil
}

func (p *KeywordProcessor) appendAttempt(ctx context.Context, accessKey, keyword string, post *gemini.BlogPost, elapsedMs int64, genErr error) {
	attempt := &model.KeywordAttempt{
		AccessKey:    accessKey,
		Keyword:      keyword,
		Approach:     defaultApproach,
		OutputFormat: defaultOutputFormat,
	}
	if genErr != nil {
		attempt.Status = model.AttemptFailed
		attempt.ErrorMessage = genErr.Error()
	} else {
		attempt.Status = model.AttemptSuccess
		wc := post.WordCount
		attempt.WordCount = &wc
		attempt.ProcessingTimeMs = &elapsedMs
	}

	if err := p.store.AppendKeywordAttempt(ctx, attempt); err != nil {
		log.Error().Err(err).Str("keyword", keyword).Msg("failed to append keyword attempt")
	}
}

func (p *KeywordProcessor) appendUsage(ctx context.Context, accessKey string, requested, processed, deducted int) {
	rec := &model.UsageRecord{
		AccessKey:         accessKey,
		KeywordsRequested: requested,
		KeywordsProcessed: processed,
		CreditsDeducted:   deducted,
		OutputFormat:      defaultOutputFormat,
		EstimatedCostUSD:  float64(deducted) * estimatedCostPerCallUSD,
	}
	if err := p.store.AppendUsage(ctx, rec); err != nil {
		log.Error().Err(err).Str("access_key", accessKey).Msg("failed to append usage record")
	}
}

// ValidateKey returns the credit facts for an active access key.
func (p *KeywordProcessor) ValidateKey(ctx context.Context, accessKey string) (*model.AccessKey, error) {
	auth, err := p.ledger.Authorize(ctx, accessKey, 0)
	if err != nil {
		return nil, err
	}
	return auth.Key, nil
}
