package sqlite

import (
	"context"

	erp "github.com/eugener/silverbook/internal"
)

const rateOrder = ` ORDER BY effective_date DESC, created_at DESC`

// LatestRate returns the rate with the latest effective date.
func (s *Store) LatestRate(ctx context.Context) (*erp.SilverRate, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, rate_10g, effective_date, created_at FROM silver_rates`+rateOrder+` LIMIT 1`)
	var r erp.SilverRate
	var createdAt string
	if err := row.Scan(&r.ID, &r.Rate10g, &r.EffectiveDate, &createdAt); err != nil {
		return nil, notFoundErr(err)
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// ListRates returns the most recent rates, newest first.
func (s *Store) ListRates(ctx context.Context, limit int) ([]erp.SilverRate, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, rate_10g, effective_date, created_at FROM silver_rates`+rateOrder+` LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []erp.SilverRate{}
	for rows.Next() {
		var r erp.SilverRate
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Rate10g, &r.EffectiveDate, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddRate records a rate.
func (s *Store) AddRate(ctx context.Context, r *erp.SilverRate) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO silver_rates (id, rate_10g, effective_date, created_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Rate10g, r.EffectiveDate, timeToStr(r.CreatedAt),
	)
	return conflictErr(err, "rate")
}

// DeleteRate removes a rate.
func (s *Store) DeleteRate(ctx context.Context, id string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM silver_rates WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "rate")
}
