package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// ClockRepository persists the single simulated system date. The clock has
// no wall-clock dependency once seeded; it moves only through Set.
type ClockRepository interface {
	Current() (time.Time, error)
	Set(t time.Time) error
}

type clockRepository struct {
	db *sql.DB
}

func NewClockRepository(db *sql.DB) ClockRepository {
	return &clockRepository{db: db}
}

func (r *clockRepository) Current() (time.Time, error) {
	var current time.Time
	err := r.db.QueryRow(`SELECT current_date_value FROM system_clock WHERE id = 1`).Scan(&current)
	if err == sql.ErrNoRows {
		// Seed the clock on first use.
		now := time.Now().UTC().Truncate(24 * time.Hour)
		if err := r.Set(now); err != nil {
			return time.Time{}, err
		}
		return now, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load system clock: %w", err)
	}
	return current, nil
}

func (r *clockRepository) Set(t time.Time) error {
	query := `
		INSERT INTO system_clock (id, current_date_value)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET current_date_value = EXCLUDED.current_date_value
	`
	if _, err := r.db.Exec(query, t); err != nil {
		return fmt.Errorf("failed to set system clock: %w", err)
	}
	return nil
}
