package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/storage"
)

const stockCols = `id, category, direction, weight_grams, purity, cost, order_id, reference, note, tx_date, created_at`

// ListStockTransactions returns transactions for category ("" = all), newest first.
func (s *Store) ListStockTransactions(ctx context.Context, category string) ([]erp.StockTransaction, error) {
	query := `SELECT ` + stockCols + ` FROM stock_transactions`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY tx_date DESC, created_at DESC`
	return s.queryStock(ctx, query, args...)
}

// StockBalances totals each inventory bucket.
func (s *Store) StockBalances(ctx context.Context, category string) ([]erp.StockBalance, error) {
	txs, err := s.ListStockTransactions(ctx, category)
	if err != nil {
		return nil, err
	}
	return storage.FoldBalances(txs, category), nil
}

// AddStockTransaction inserts a manual stock movement.
func (s *Store) AddStockTransaction(ctx context.Context, t *erp.StockTransaction) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO stock_transactions (`+stockCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Category, t.Direction, t.WeightGrams, t.Purity, t.Cost, nullStr(t.OrderID),
		t.Reference, t.Note, t.TxDate, timeToStr(t.CreatedAt),
	)
	return conflictErr(err, "stock transaction")
}

// DeleteStockTransaction removes a manual stock movement. Rows posted by an
// order can only be removed by deleting the order.
func (s *Store) DeleteStockTransaction(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var orderID sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT order_id FROM stock_transactions WHERE id=?`, id).Scan(&orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("stock transaction: %w", erp.ErrNotFound)
			}
			return err
		}
		if orderID.Valid {
			return fmt.Errorf("stock transaction belongs to order %s: %w", orderID.String, erp.ErrConflict)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM stock_transactions WHERE id=?`, id)
		return err
	})
}

func (s *Store) queryStock(ctx context.Context, query string, args ...any) ([]erp.StockTransaction, error) {
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []erp.StockTransaction{}
	for rows.Next() {
		var t erp.StockTransaction
		var orderID sql.NullString
		var createdAt string
		if err := rows.Scan(
			&t.ID, &t.Category, &t.Direction, &t.WeightGrams, &t.Purity, &t.Cost, &orderID,
			&t.Reference, &t.Note, &t.TxDate, &createdAt,
		); err != nil {
			return nil, err
		}
		t.OrderID = orderID.String
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}
