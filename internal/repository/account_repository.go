package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
)

// AccountRepository persists checking and credit accounts. Persistence is
// last-write-wins on the whole record.
type AccountRepository interface {
	CreateChecking(acc *account.CheckingAccount) error
	CreateCredit(acc *account.CreditAccount) error
	GetChecking(id string) (*account.CheckingAccount, error)
	GetCredit(id string) (*account.CreditAccount, error)
	GetCheckingByCustomer(customerID string) (*account.CheckingAccount, error)
	SaveChecking(acc *account.CheckingAccount) error
	SaveCredit(acc *account.CreditAccount) error
	ListChecking(statuses ...account.CheckingStatus) ([]*account.CheckingAccount, error)
	ListCredit(statuses ...account.CreditStatus) ([]*account.CreditAccount, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) CreateChecking(acc *account.CheckingAccount) error {
	query := `
		INSERT INTO checking_accounts (id, customer_id, balance, status, last_fee_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		acc.ID,
		acc.CustomerID,
		acc.Balance,
		acc.Status,
		acc.LastFeeDate,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create checking account: %w", err)
	}

	return nil
}

func (r *accountRepository) CreateCredit(acc *account.CreditAccount) error {
	scheduleJSON, err := json.Marshal(acc.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	query := `
		INSERT INTO credit_accounts (id, checking_id, customer_id, balance, status,
		                             original_amount, monthly_payment, monthly_rate,
		                             remaining_payments, amortization_schedule,
		                             missed_payments, penalty_accrued)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(
		query,
		acc.ID,
		acc.CheckingID,
		acc.CustomerID,
		acc.Balance,
		acc.Status,
		acc.OriginalAmount,
		acc.MonthlyPayment,
		acc.MonthlyRate,
		acc.RemainingPayments,
		scheduleJSON,
		acc.MissedPayments,
		acc.PenaltyAccrued,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create credit account: %w", err)
	}

	return nil
}

const checkingColumns = `id, customer_id, balance, status, last_fee_date, created_at, updated_at`

func (r *accountRepository) scanChecking(row *sql.Row) (*account.CheckingAccount, error) {
	acc := &account.CheckingAccount{}
	err := row.Scan(
		&acc.ID,
		&acc.CustomerID,
		&acc.Balance,
		&acc.Status,
		&acc.LastFeeDate,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checking account: %w", bankerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checking account: %w", err)
	}
	return acc, nil
}

func (r *accountRepository) GetChecking(id string) (*account.CheckingAccount, error) {
	query := `SELECT ` + checkingColumns + ` FROM checking_accounts WHERE id = $1`
	return r.scanChecking(r.db.QueryRow(query, id))
}

func (r *accountRepository) GetCheckingByCustomer(customerID string) (*account.CheckingAccount, error) {
	query := `SELECT ` + checkingColumns + ` FROM checking_accounts WHERE customer_id = $1`
	return r.scanChecking(r.db.QueryRow(query, customerID))
}

const creditColumns = `id, checking_id, customer_id, balance, status, original_amount,
	monthly_payment, monthly_rate, remaining_payments, amortization_schedule,
	missed_payments, penalty_accrued, last_payment_attempt, last_penalty_date,
	credit_start, credit_end, write_off_date, created_at, updated_at`

type creditScanner interface {
	Scan(dest ...interface{}) error
}

func scanCredit(row creditScanner) (*account.CreditAccount, error) {
	acc := &account.CreditAccount{}
	var scheduleJSON []byte
	var lastAttempt, lastPenalty, start, end, writeOff sql.NullTime

	err := row.Scan(
		&acc.ID,
		&acc.CheckingID,
		&acc.CustomerID,
		&acc.Balance,
		&acc.Status,
		&acc.OriginalAmount,
		&acc.MonthlyPayment,
		&acc.MonthlyRate,
		&acc.RemainingPayments,
		&scheduleJSON,
		&acc.MissedPayments,
		&acc.PenaltyAccrued,
		&lastAttempt,
		&lastPenalty,
		&start,
		&end,
		&writeOff,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &acc.Schedule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
		}
	}
	if lastAttempt.Valid {
		acc.LastPaymentAttempt = &lastAttempt.Time
	}
	if lastPenalty.Valid {
		acc.LastPenaltyDate = &lastPenalty.Time
	}
	if start.Valid {
		acc.CreditStart = &start.Time
	}
	if end.Valid {
		acc.CreditEnd = &end.Time
	}
	if writeOff.Valid {
		acc.WriteOffDate = &writeOff.Time
	}

	return acc, nil
}

func (r *accountRepository) GetCredit(id string) (*account.CreditAccount, error) {
	query := `SELECT ` + creditColumns + ` FROM credit_accounts WHERE id = $1`

	acc, err := scanCredit(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("credit account: %w", bankerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit account: %w", err)
	}
	return acc, nil
}

func (r *accountRepository) SaveChecking(acc *account.CheckingAccount) error {
	query := `
		UPDATE checking_accounts
		SET balance = $2, status = $3, last_fee_date = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(query, acc.ID, acc.Balance, acc.Status, acc.LastFeeDate).Scan(&acc.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("checking account %s: %w", acc.ID, bankerr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to save checking account: %w", err)
	}
	return nil
}

func (r *accountRepository) SaveCredit(acc *account.CreditAccount) error {
	scheduleJSON, err := json.Marshal(acc.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	query := `
		UPDATE credit_accounts
		SET balance = $2, status = $3, original_amount = $4, monthly_payment = $5,
		    monthly_rate = $6, remaining_payments = $7, amortization_schedule = $8,
		    missed_payments = $9, penalty_accrued = $10, last_payment_attempt = $11,
		    last_penalty_date = $12, credit_start = $13, credit_end = $14,
		    write_off_date = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRow(
		query,
		acc.ID,
		acc.Balance,
		acc.Status,
		acc.OriginalAmount,
		acc.MonthlyPayment,
		acc.MonthlyRate,
		acc.RemainingPayments,
		scheduleJSON,
		acc.MissedPayments,
		acc.PenaltyAccrued,
		nullTime(acc.LastPaymentAttempt),
		nullTime(acc.LastPenaltyDate),
		nullTime(acc.CreditStart),
		nullTime(acc.CreditEnd),
		nullTime(acc.WriteOffDate),
	).Scan(&acc.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("credit account %s: %w", acc.ID, bankerr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to save credit account: %w", err)
	}
	return nil
}

func (r *accountRepository) ListChecking(statuses ...account.CheckingStatus) ([]*account.CheckingAccount, error) {
	query := `SELECT ` + checkingColumns + ` FROM checking_accounts WHERE status = ANY($1) ORDER BY id`

	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	rows, err := r.db.Query(query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to list checking accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.CheckingAccount
	for rows.Next() {
		acc := &account.CheckingAccount{}
		if err := rows.Scan(
			&acc.ID,
			&acc.CustomerID,
			&acc.Balance,
			&acc.Status,
			&acc.LastFeeDate,
			&acc.CreatedAt,
			&acc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checking account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

func (r *accountRepository) ListCredit(statuses ...account.CreditStatus) ([]*account.CreditAccount, error) {
	query := `SELECT ` + creditColumns + ` FROM credit_accounts WHERE status = ANY($1) ORDER BY id`

	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	rows, err := r.db.Query(query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to list credit accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.CreditAccount
	for rows.Next() {
		acc, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
