package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	erp "github.com/eugener/silverbook/internal"
)

const orderCols = `id, customer_name, billing_type, description, weight_grams, purity,
	making_charge, material_value, gst_rate, gst_amount, amount, status, order_date, created_at`

// ListOrders returns all orders, newest first.
func (s *Store) ListOrders(ctx context.Context) ([]erp.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderCols+` FROM orders ORDER BY order_date DESC, created_at DESC`)
}

func (s *Store) queryOrders(ctx context.Context, query string, args ...any) ([]erp.Order, error) {
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []erp.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// CreateOrders inserts orders in one transaction. Each own-material order
// also takes its weight out of finished goods.
func (s *Store) CreateOrders(ctx context.Context, orders []*erp.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, o := range orders {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO orders (`+orderCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				o.ID, o.CustomerName, o.BillingType, o.Description, o.WeightGrams, o.Purity,
				o.MakingCharge, o.MaterialValue, o.GSTRate, o.GSTAmount, o.Amount, o.Status,
				o.OrderDate, timeToStr(o.CreatedAt),
			)
			if err != nil {
				return conflictErr(err, "order")
			}
			if o.BillingType != erp.BillingOwnMaterial {
				continue
			}
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generate stock id: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO stock_transactions (id, category, direction, weight_grams, purity, order_id, reference, tx_date, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id.String(), erp.StockFinished, erp.StockOut, o.WeightGrams, o.Purity, o.ID,
				o.CustomerName, o.OrderDate, timeToStr(o.CreatedAt),
			)
			if err != nil {
				return fmt.Errorf("post finished goods for order %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

// UpdateOrderStatus sets an order's status.
func (s *Store) UpdateOrderStatus(ctx context.Context, id, status string) error {
	result, err := s.write.ExecContext(ctx, `UPDATE orders SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "order")
}

// DeleteOrder removes an order. Linked stock rows go with it via ON DELETE CASCADE.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM orders WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "order")
}

func scanOrder(sc scanner) (*erp.Order, error) {
	var o erp.Order
	var createdAt string
	err := sc.Scan(
		&o.ID, &o.CustomerName, &o.BillingType, &o.Description, &o.WeightGrams, &o.Purity,
		&o.MakingCharge, &o.MaterialValue, &o.GSTRate, &o.GSTAmount, &o.Amount, &o.Status,
		&o.OrderDate, &createdAt,
	)
	if err != nil {
		return nil, notFoundErr(err)
	}
	o.CreatedAt = parseTime(createdAt)
	return &o, nil
}

// ordersIn returns orders dated inside p.
func (s *Store) ordersIn(ctx context.Context, p erp.Period) ([]erp.Order, error) {
	where, args := periodWhere("order_date", p)
	return s.queryOrders(ctx, `SELECT `+orderCols+` FROM orders WHERE 1=1`+where+` ORDER BY order_date`, args...)
}
