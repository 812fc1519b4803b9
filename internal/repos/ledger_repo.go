package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"invtrack/internal/domain"
)

// LedgerRepo reads equipment_movements. Rows are written only by
// EquipmentRepo.ApplyMovement; the table rejects updates and deletes.
type LedgerRepo struct{ db *sqlx.DB }

func NewLedgerRepo(db *sqlx.DB) *LedgerRepo { return &LedgerRepo{db: db} }

const ledgerViewSelect = `
  SELECT m.id, m.equipment_id, m.type, m.date, m.user_id, m.notes,
         COALESCE(e.mac_address, '') AS mac_address,
         COALESCE(p.name, '') AS product_name,
         COALESCE(u.username, '') AS username
  FROM equipment_movements m
  LEFT JOIN equipment e ON e.id = m.equipment_id
  LEFT JOIN products p ON p.id = e.product_id
  LEFT JOIN users u ON u.id = m.user_id
`

// List returns entries most recent first; limit <= 0 means all.
func (r *LedgerRepo) List(ctx context.Context, limit int) ([]domain.MovementView, error) {
	if limit <= 0 {
		limit = -1
	}
	out := []domain.MovementView{}
	err := r.db.SelectContext(ctx, &out, ledgerViewSelect+`
	  ORDER BY m.date DESC, m.rowid DESC
	  LIMIT ?
	`, limit)
	return out, err
}

// ListFor returns one unit's entries, most recent first.
func (r *LedgerRepo) ListFor(ctx context.Context, equipmentID string) ([]domain.MovementView, error) {
	out := []domain.MovementView{}
	err := r.db.SelectContext(ctx, &out, ledgerViewSelect+`
	  WHERE m.equipment_id = ?
	  ORDER BY m.date DESC, m.rowid DESC
	`, equipmentID)
	return out, err
}

// History returns one unit's entries in the order they were appended.
func (r *LedgerRepo) History(ctx context.Context, equipmentID string) ([]domain.EquipmentMovement, error) {
	out := []domain.EquipmentMovement{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT id, equipment_id, type, date, user_id, notes
	  FROM equipment_movements
	  WHERE equipment_id = ?
	  ORDER BY date, rowid
	`, equipmentID)
	return out, err
}

// CountSince counts entries of type t dated at or after since.
func (r *LedgerRepo) CountSince(ctx context.Context, t, since string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM equipment_movements WHERE type = ? AND date >= ?`, t, since)
	return n, err
}
