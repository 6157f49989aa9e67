package repository

import (
	"database/sql"
	"fmt"

	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/customer"
)

type CustomerRepository interface {
	Create(c *customer.Customer) error
	GetByID(id string) (*customer.Customer, error)
	GetByEmail(email string) (*customer.Customer, error)
}

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(c *customer.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, password_hash, address, birth_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		c.ID,
		c.Name,
		c.Email,
		c.PasswordHash,
		nullString(c.Address),
		nullString(c.BirthDate),
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

const customerColumns = `id, name, email, password_hash, address, birth_date, created_at, updated_at`

func (r *customerRepository) scanOne(row *sql.Row) (*customer.Customer, error) {
	c := &customer.Customer{}
	var address, birthDate sql.NullString

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.PasswordHash,
		&address,
		&birthDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer: %w", bankerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	c.Address = address.String
	c.BirthDate = birthDate.String
	return c, nil
}

func (r *customerRepository) GetByID(id string) (*customer.Customer, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *customerRepository) GetByEmail(email string) (*customer.Customer, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+customerColumns+` FROM customers WHERE email = $1`, email))
}
