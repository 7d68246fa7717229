package sqlite

import (
	"context"

	erp "github.com/eugener/silverbook/internal"
)

// ListExpenses returns all expenses, newest first.
func (s *Store) ListExpenses(ctx context.Context) ([]erp.Expense, error) {
	return s.queryExpenses(ctx, `SELECT id, category, amount, note, spent_on, created_at
		FROM expenses ORDER BY spent_on DESC, created_at DESC`)
}

// CreateExpense inserts an expense.
func (s *Store) CreateExpense(ctx context.Context, e *erp.Expense) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO expenses (id, category, amount, note, spent_on, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Category, e.Amount, e.Note, e.SpentOn, timeToStr(e.CreatedAt),
	)
	return conflictErr(err, "expense")
}

// DeleteExpense removes an expense.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM expenses WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "expense")
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]erp.Expense, error) {
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []erp.Expense{}
	for rows.Next() {
		var e erp.Expense
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount, &e.Note, &e.SpentOn, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
