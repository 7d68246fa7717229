package sqlite

import (
	"context"
	"database/sql"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/storage"
)

// RecordPayment registers the party if needed and inserts the payment in one
// transaction.
func (s *Store) RecordPayment(ctx context.Context, p *erp.Payment) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parties (party_type, name, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (party_type, name) DO NOTHING`,
			p.PartyType, p.PartyName, timeToStr(p.CreatedAt),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payments (id, party_type, party_name, direction, amount, mode, reference, paid_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.PartyType, p.PartyName, p.Direction, p.Amount, p.Mode, p.Reference,
			p.PaidAt, timeToStr(p.CreatedAt),
		)
		return conflictErr(err, "payment")
	})
}

// StatementLines returns every posting for a party in date order.
func (s *Store) StatementLines(ctx context.Context, partyType, name string) ([]erp.StatementLine, error) {
	payments, err := s.paymentsFor(ctx, partyType, name)
	if err != nil {
		return nil, err
	}
	var orders []erp.Order
	var stock []erp.StockTransaction
	switch partyType {
	case erp.PartyCustomer:
		orders, err = s.queryOrders(ctx,
			`SELECT `+orderCols+` FROM orders WHERE customer_name = ? COLLATE NOCASE ORDER BY order_date`, name)
	case erp.PartyVendor:
		stock, err = s.queryStock(ctx,
			`SELECT `+stockCols+` FROM stock_transactions
			 WHERE category = 'RAW' AND direction = 'IN' AND reference = ? COLLATE NOCASE ORDER BY tx_date`, name)
	}
	if err != nil {
		return nil, err
	}
	return storage.FoldStatement(partyType, name, orders, payments, stock), nil
}

func (s *Store) paymentsFor(ctx context.Context, partyType, name string) ([]erp.Payment, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, party_type, party_name, direction, amount, mode, reference, paid_at, created_at
		 FROM payments WHERE party_type = ? AND party_name = ? COLLATE NOCASE ORDER BY paid_at`,
		partyType, name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []erp.Payment
	for rows.Next() {
		var p erp.Payment
		var createdAt string
		if err := rows.Scan(&p.ID, &p.PartyType, &p.PartyName, &p.Direction, &p.Amount,
			&p.Mode, &p.Reference, &p.PaidAt, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}
