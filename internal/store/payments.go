package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keyword-alchemist-service/internal/model"
)

const paymentColumns = `id, session_id, access_key, plan, credits, amount_paid,
	customer_email, customer_id, payment_status, error_message, created_at`

func (p *Postgres) CreatePaymentLog(ctx context.Context, rec *model.PaymentRecord) error {
	err := insertPaymentLog(ctx, p.pool, rec)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert payment_log: %w", err)
	}
	return nil
}

func (p *Postgres) GetPaymentBySessionID(ctx context.Context, sessionID string) (*model.PaymentRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payment_logs WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query payment_log: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanPaymentFromRow(rows)
}

// CreateFundedAccessKey inserts the access key and its completed payment log
// in one transaction. A duplicate session_id rolls back the key as well, so
// re-delivered webhooks can never mint a second key.
func (p *Postgres) CreateFundedAccessKey(ctx context.Context, key *model.AccessKey, rec *model.PaymentRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin funded key tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var email interface{}
	if key.Email != "" {
		email = key.Email
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO access_keys (key, plan, credits_total, credits_used, status, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		key.Key, key.Plan, key.CreditsTotal, key.CreditsUsed, key.Status, email,
	).Scan(&key.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert funded access_key: %w", err)
	}

	if err := insertPaymentLog(ctx, tx, rec); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert payment_log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit funded key tx: %w", err)
	}
	return nil
}

func (p *Postgres) ListRecentPayments(ctx context.Context, since time.Time, limit int) ([]*model.PaymentRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payment_logs
		WHERE created_at > $1 ORDER BY created_at DESC LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list payment_logs: %w", err)
	}
	defer rows.Close()

	var payments []*model.PaymentRecord
	for rows.Next() {
		rec, err := scanPaymentFromRow(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, rec)
	}
	return payments, nil
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertPaymentLog(ctx context.Context, q execQuerier, rec *model.PaymentRecord) error {
	var accessKey, email, customerID, errMsg interface{}
	if rec.AccessKey != "" {
		accessKey = rec.AccessKey
	}
	if rec.CustomerEmail != "" {
		email = rec.CustomerEmail
	}
	if rec.CustomerID != "" {
		customerID = rec.CustomerID
	}
	if rec.ErrorMessage != "" {
		errMsg = rec.ErrorMessage
	}

	return q.QueryRow(ctx, `
		INSERT INTO payment_logs (
			session_id, access_key, plan, credits, amount_paid,
			customer_email, customer_id, payment_status, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		rec.SessionID, accessKey, rec.Plan, rec.Credits, rec.AmountPaid,
		email, customerID, rec.PaymentStatus, errMsg,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func scanPaymentFromRow(rows pgx.Rows) (*model.PaymentRecord, error) {
	var rec model.PaymentRecord
	var accessKey, email, customerID, errMsg *string

	err := rows.Scan(
		&rec.ID, &rec.SessionID, &accessKey, &rec.Plan, &rec.Credits,
		&rec.AmountPaid, &email, &customerID, &rec.PaymentStatus, &errMsg,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan payment_log: %w", err)
	}

	if accessKey != nil {
		rec.AccessKey = *accessKey
	}
	if email != nil {
		rec.CustomerEmail = *email
	}
	if customerID != nil {
		rec.CustomerID = *customerID
	}
	if errMsg != nil {
		rec.ErrorMessage = *errMsg
	}
	return &rec, nil
}
