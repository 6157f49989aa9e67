package repository

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/haifischbank/haifischbank-server/internal/domain/ledger"
)

// LedgerRepository persists the named ledger buckets. Post applies a batch
// of signed entries atomically: either every entry lands or none does.
type LedgerRepository interface {
	Get() (*ledger.Ledger, error)
	Post(entries []ledger.Entry) (*ledger.Ledger, error)
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Get() (*ledger.Ledger, error) {
	rows, err := r.db.Query(`SELECT bucket, balance, updated_at FROM ledger_buckets`)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	l := &ledger.Ledger{Balances: make(map[ledger.Bucket]decimal.Decimal)}
	for rows.Next() {
		var bucket string
		var balance decimal.Decimal
		var updatedAt sql.NullTime
		if err := rows.Scan(&bucket, &balance, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger bucket: %w", err)
		}
		l.Balances[ledger.Bucket(bucket)] = balance
		if updatedAt.Valid && updatedAt.Time.After(l.UpdatedAt) {
			l.UpdatedAt = updatedAt.Time
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Missing buckets read as zero.
	for _, b := range ledger.Buckets {
		if _, ok := l.Balances[b]; !ok {
			l.Balances[b] = decimal.Zero
		}
	}

	return l, nil
}

func (r *ledgerRepository) Post(entries []ledger.Entry) (*ledger.Ledger, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin ledger post: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO ledger_buckets (bucket, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (bucket)
		DO UPDATE SET balance = ledger_buckets.balance + EXCLUDED.balance, updated_at = NOW()
	`

	for _, e := range entries {
		if _, err := tx.Exec(query, string(e.Bucket), e.Amount); err != nil {
			return nil, fmt.Errorf("failed to post ledger entry to %s: %w", e.Bucket, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger post: %w", err)
	}

	return r.Get()
}
