package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/keyword-alchemist-service/internal/model"
)

const accessKeyColumns = `key, plan, credits_total, credits_used, status, email, created_at`

func (p *Postgres) CreateAccessKey(ctx context.Context, key *model.AccessKey) error {
	// email is nullable — pass nil when empty
	var email interface{}
	if key.Email != "" {
		email = key.Email
	}

	err := p.pool.QueryRow(ctx, `
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
		return fmt.Errorf("insert access_key: %w", err)
	}
	return nil
}

func (p *Postgres) GetActiveAccessKey(ctx context.Context, key string) (*model.AccessKey, error) {
	return p.scanAccessKey(ctx, `
		SELECT `+accessKeyColumns+` FROM access_keys WHERE key = $1 AND status = 'active'
	`, key)
}

func (p *Postgres) AccessKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM access_keys WHERE key = $1)
	`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check access_key exists: %w", err)
	}
	return exists, nil
}

// DebitCredits is the single write path for credits_used. The increment
// happens server-side in one statement, never as a read-modify-write across
// two round trips, so concurrent debits cannot lose updates.
func (p *Postgres) DebitCredits(ctx context.Context, key string, amount int) (int, error) {
	var newUsed int
	err := p.pool.QueryRow(ctx, `
		UPDATE access_keys SET credits_used = credits_used + $1 WHERE key = $2
		RETURNING credits_used
	`, amount, key).Scan(&newUsed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	return newUsed, nil
}

func (p *Postgres) ListAccessKeys(ctx context.Context, page, perPage int) ([]*model.AccessKey, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM access_keys`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access_keys: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := p.pool.Query(ctx, `
		SELECT `+accessKeyColumns+` FROM access_keys ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list access_keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.AccessKey
	for rows.Next() {
		key, err := scanAccessKeyFromRow(rows)
		if err != nil {
			return nil, 0, err
		}
		keys = append(keys, key)
	}
	return keys, total, nil
}

func (p *Postgres) CountAccessKeys(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM access_keys`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count access_keys: %w", err)
	}
	return count, nil
}

func (p *Postgres) UpdateAccessKeyStatus(ctx context.Context, key string, status model.AccessKeyStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE access_keys SET status = $1 WHERE key = $2
	`, status, key)
	if err != nil {
		return fmt.Errorf("update access_key status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteAllAccessKeys(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM access_keys`); err != nil {
		return fmt.Errorf("delete access_keys: %w", err)
	}
	return nil
}

func (p *Postgres) scanAccessKey(ctx context.Context, query string, args ...interface{}) (*model.AccessKey, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query access_key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanAccessKeyFromRow(rows)
}

func scanAccessKeyFromRow(rows pgx.Rows) (*model.AccessKey, error) {
	var key model.AccessKey
	var email *string

	err := rows.Scan(
		&key.Key, &key.Plan, &key.CreditsTotal, &key.CreditsUsed,
		&key.Status, &email, &key.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan access_key: %w", err)
	}

	if email != nil {
		key.Email = *email
	}
	return &key, nil
}
