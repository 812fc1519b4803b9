package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"invtrack/internal/domain"
)

type StockRepo struct{ db *sqlx.DB }

func NewStockRepo(db *sqlx.DB) *StockRepo { return &StockRepo{db: db} }

// Apply changes the product quantity and records the movement in one
// transaction. An OUT larger than the stock on hand returns ErrStale and
// changes nothing.
func (r *StockRepo) Apply(ctx context.Context, mv domain.StockMovement) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	switch mv.Type {
	case domain.MovementIn:
		res, err = tx.ExecContext(ctx, `
		  UPDATE products SET quantity = quantity + ?, updated_at = ?
		  WHERE id = ?
		`, mv.Quantity, mv.Date, mv.ProductID)
	default:
		res, err = tx.ExecContext(ctx, `
		  UPDATE products SET quantity = quantity - ?, updated_at = ?
		  WHERE id = ? AND quantity >= ?
		`, mv.Quantity, mv.Date, mv.ProductID, mv.Quantity)
	}
	if err := affected(res, err); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE id = ?`, mv.ProductID); err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStale
	}

	if _, err := tx.NamedExecContext(ctx, `
	  INSERT INTO movements(id, product_id, type, quantity, date, user_id)
	  VALUES(:id, :product_id, :type, :quantity, :date, :user_id)
	`, mv); err != nil {
		return err
	}
	return tx.Commit()
}

const stockViewSelect = `
  SELECT m.id, m.product_id, m.type, m.quantity, m.date, m.user_id,
         COALESCE(p.name, '') AS product_name,
         COALESCE(u.username, '') AS username
  FROM movements m
  LEFT JOIN products p ON p.id = m.product_id
  LEFT JOIN users u ON u.id = m.user_id
`

// List returns stock movements, most recent first. limit <= 0 means all;
// an empty category matches every product.
func (r *StockRepo) List(ctx context.Context, category string, limit int) ([]domain.StockMovementView, error) {
	if limit <= 0 {
		limit = -1
	}
	out := []domain.StockMovementView{}
	err := r.db.SelectContext(ctx, &out, stockViewSelect+`
	  WHERE (? = '' OR p.category = ?)
	  ORDER BY m.date DESC, m.rowid DESC
	  LIMIT ?
	`, category, category, limit)
	return out, err
}

type StockTotals struct {
	In  int `db:"total_in" json:"in"`
	Out int `db:"total_out" json:"out"`
}

// Totals sums moved quantities per direction.
func (r *StockRepo) Totals(ctx context.Context, category string) (StockTotals, error) {
	var t StockTotals
	err := r.db.GetContext(ctx, &t, `
	  SELECT COALESCE(SUM(CASE WHEN m.type = 'IN'  THEN m.quantity ELSE 0 END), 0) AS total_in,
	         COALESCE(SUM(CASE WHEN m.type = 'OUT' THEN m.quantity ELSE 0 END), 0) AS total_out
	  FROM movements m
	  LEFT JOIN products p ON p.id = m.product_id
	  WHERE (? = '' OR p.category = ?)
	`, category, category)
	return t, err
}
