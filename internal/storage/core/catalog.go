package core

import (
	"context"
	"fmt"
)

// UpsertCountry inserts or updates a country by its natural key (code,
// falling back to name when the API omits a code, as it does for
// "World").
func (r *Repository) UpsertCountry(ctx context.Context, name, code, flagURL string) error {
	key := code
	if key == "" {
		key = name
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.countries (code, name, flag_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, flag_url = EXCLUDED.flag_url, updated_at = NOW()
	`, key, name, flagURL)
	if err != nil {
		return fmt.Errorf("upsert country %s: %w", key, err)
	}
	return nil
}

// UpsertTimezone inserts a timezone name if not already on file.
func (r *Repository) UpsertTimezone(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.timezones (name) VALUES ($1) ON CONFLICT (name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("upsert timezone %s: %w", name, err)
	}
	return nil
}

// IsEmpty reports whether a table has zero rows, used by the bootstrap
// jobs' run-once-if-destination-empty gate.
func (r *Repository) IsEmpty(ctx context.Context, table string) (bool, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return n == 0, nil
}
