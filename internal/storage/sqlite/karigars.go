package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
)

// ListKarigars returns all karigars by name.
func (s *Store) ListKarigars(ctx context.Context) ([]erp.Karigar, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, name, phone, balance, created_at FROM karigars ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []erp.Karigar{}
	for rows.Next() {
		var k erp.Karigar
		var createdAt string
		if err := rows.Scan(&k.ID, &k.Name, &k.Phone, &k.Balance, &createdAt); err != nil {
			return nil, err
		}
		k.CreatedAt = parseTime(createdAt)
		out = append(out, k)
	}
	return out, rows.Err()
}

// CreateKarigar inserts a karigar with an opening balance.
func (s *Store) CreateKarigar(ctx context.Context, k *erp.Karigar) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO karigars (id, name, phone, balance, created_at) VALUES (?, ?, ?, ?, ?)`,
		k.ID, k.Name, k.Phone, k.Balance, timeToStr(k.CreatedAt),
	)
	return conflictErr(err, "karigar")
}

// SettleKarigar inserts the settlement and reduces the karigar's balance in
// one transaction.
func (s *Store) SettleKarigar(ctx context.Context, st *erp.KarigarSettlement) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var balance decimal.Decimal
		err := tx.QueryRowContext(ctx, `SELECT balance FROM karigars WHERE id=?`, st.KarigarID).Scan(&balance)
		if err != nil {
			return fmt.Errorf("karigar: %w", notFoundErr(err))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO karigar_settlements (id, karigar_id, amount, weight_grams, note, settled_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			st.ID, st.KarigarID, st.Amount, st.WeightGrams, st.Note, st.SettledAt,
		); err != nil {
			return conflictErr(err, "settlement")
		}
		_, err = tx.ExecContext(ctx, `UPDATE karigars SET balance=? WHERE id=?`,
			balance.Sub(st.Amount), st.KarigarID)
		return err
	})
}

// settlementsIn returns settlements dated inside p.
func (s *Store) settlementsIn(ctx context.Context, p erp.Period) ([]erp.KarigarSettlement, error) {
	where, args := periodWhere("settled_at", p)
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, karigar_id, amount, weight_grams, note, settled_at
		 FROM karigar_settlements WHERE 1=1`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []erp.KarigarSettlement
	for rows.Next() {
		var st erp.KarigarSettlement
		if err := rows.Scan(&st.ID, &st.KarigarID, &st.Amount, &st.WeightGrams, &st.Note, &st.SettledAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
