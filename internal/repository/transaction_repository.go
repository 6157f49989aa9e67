package repository

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/transaction"
)

// TransactionRepository is an append-only log of transaction records.
// Records are never updated or deleted.
type TransactionRepository interface {
	Append(rec *transaction.Record) error
	GetByID(id string) (*transaction.Record, error)
	ListByAccount(accountID string, limit, offset int) ([]*transaction.Record, int, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

const recordColumns = `id, type, account_id, credit_account_id, counterparty_iban,
	amount, principal_amount, interest_amount, ts, status,
	balance_before, balance_after, credit_balance_before, credit_balance_after, reason`

func (r *transactionRepository) Append(rec *transaction.Record) error {
	query := `
		INSERT INTO transaction_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(
		query,
		rec.ID,
		rec.Type,
		rec.AccountID,
		nullString(rec.CreditAccountID),
		nullString(rec.CounterpartyIBAN),
		rec.Amount,
		nullDecimal(rec.PrincipalAmount),
		nullDecimal(rec.InterestAmount),
		rec.Timestamp,
		rec.Status,
		rec.BalanceBefore,
		rec.BalanceAfter,
		nullDecimal(rec.CreditBalanceBefore),
		nullDecimal(rec.CreditBalanceAfter),
		nullString(rec.Reason),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction record: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(id string) (*transaction.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM transaction_records WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction record: %w", bankerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}
	return rec, nil
}

func (r *transactionRepository) ListByAccount(accountID string, limit, offset int) ([]*transaction.Record, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	countQuery := `
		SELECT COUNT(*) FROM transaction_records
		WHERE account_id = $1 OR credit_account_id = $1
	`
	if err := r.db.QueryRow(countQuery, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transaction records: %w", err)
	}

	query := `
		SELECT ` + recordColumns + ` FROM transaction_records
		WHERE account_id = $1 OR credit_account_id = $1
		ORDER BY ts, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transaction records: %w", err)
	}
	defer rows.Close()

	var records []*transaction.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		records = append(records, rec)
	}

	return records, total, rows.Err()
}

type recordScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row recordScanner) (*transaction.Record, error) {
	rec := &transaction.Record{}
	var creditAccountID, counterparty, reason sql.NullString
	var principal, interest, creditBefore, creditAfter decimal.NullDecimal

	err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.AccountID,
		&creditAccountID,
		&counterparty,
		&rec.Amount,
		&principal,
		&interest,
		&rec.Timestamp,
		&rec.Status,
		&rec.BalanceBefore,
		&rec.BalanceAfter,
		&creditBefore,
		&creditAfter,
		&reason,
	)
	if err != nil {
		return nil, err
	}

	rec.CreditAccountID = creditAccountID.String
	rec.CounterpartyIBAN = counterparty.String
	rec.Reason = reason.String
	rec.PrincipalAmount = fromNullDecimal(principal)
	rec.InterestAmount = fromNullDecimal(interest)
	rec.CreditBalanceBefore = fromNullDecimal(creditBefore)
	rec.CreditBalanceAfter = fromNullDecimal(creditAfter)

	return rec, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
