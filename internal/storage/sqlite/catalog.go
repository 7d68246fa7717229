package sqlite

import (
	"context"

	erp "github.com/eugener/silverbook/internal"
)

// ListProducts returns the product catalog by name.
func (s *Store) ListProducts(ctx context.Context) ([]erp.Product, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, name, category, default_weight, making_charge FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []erp.Product{}
	for rows.Next() {
		var p erp.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.DefaultWeight, &p.MakingCharge); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveProduct inserts or replaces a product by ID.
func (s *Store) SaveProduct(ctx context.Context, p *erp.Product) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO products (id, name, category, default_weight, making_charge) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name=excluded.name, category=excluded.category,
		 default_weight=excluded.default_weight, making_charge=excluded.making_charge`,
		p.ID, p.Name, p.Category, p.DefaultWeight, p.MakingCharge,
	)
	return conflictErr(err, "product")
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "product")
}

// ListJobWorkItems returns the job-work price list by name.
func (s *Store) ListJobWorkItems(ctx context.Context) ([]erp.JobWorkItem, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, name, rate_per_gram FROM job_work_items ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []erp.JobWorkItem{}
	for rows.Next() {
		var it erp.JobWorkItem
		if err := rows.Scan(&it.ID, &it.Name, &it.RatePerGram); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SaveJobWorkItem inserts or replaces a job-work item by ID.
func (s *Store) SaveJobWorkItem(ctx context.Context, it *erp.JobWorkItem) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO job_work_items (id, name, rate_per_gram) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name=excluded.name, rate_per_gram=excluded.rate_per_gram`,
		it.ID, it.Name, it.RatePerGram,
	)
	return conflictErr(err, "job work item")
}

// DeleteJobWorkItem removes a job-work item.
func (s *Store) DeleteJobWorkItem(ctx context.Context, id string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM job_work_items WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "job work item")
}
