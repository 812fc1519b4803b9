package repos

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"invtrack/internal/domain"
)

type EquipmentRepo struct {
	db *sqlx.DB
	// writes counts committed changes to the equipment table.
	writes atomic.Uint64
}

func NewEquipmentRepo(db *sqlx.DB) *EquipmentRepo { return &EquipmentRepo{db: db} }

const equipmentViewSelect = `
  SELECT e.id, e.product_id, e.mac_address, e.gpon_sn, e.customer, e.description,
         e.status, e.created_at, e.updated_at,
         COALESCE(p.name, '') AS product_name,
         p.id IS NOT NULL AS product_found
  FROM equipment e
  LEFT JOIN products p ON p.id = e.product_id
`

// Version changes whenever a write to the equipment table commits. Readers
// use it to tell whether a result predates a write.
func (r *EquipmentRepo) Version() uint64 { return r.writes.Load() }

func (r *EquipmentRepo) wrote(err error) error {
	if err == nil {
		r.writes.Add(1)
	}
	return err
}

func (r *EquipmentRepo) Create(ctx context.Context, e domain.Equipment) error {
	_, err := r.db.NamedExecContext(ctx, `
	  INSERT INTO equipment(id, product_id, mac_address, gpon_sn, customer, description, status, created_at, updated_at)
	  VALUES(:id, :product_id, :mac_address, :gpon_sn, :customer, :description, :status, :created_at, :updated_at)
	`, e)
	return r.wrote(err)
}

func (r *EquipmentRepo) Get(ctx context.Context, id string) (domain.EquipmentView, error) {
	var v domain.EquipmentView
	err := r.db.GetContext(ctx, &v, equipmentViewSelect+` WHERE e.id = ?`, id)
	return v, notFound(err)
}

// Update writes the editable fields. Status is only ever changed by
// ApplyMovement.
func (r *EquipmentRepo) Update(ctx context.Context, e domain.Equipment) error {
	return r.wrote(affected(r.db.NamedExecContext(ctx, `
	  UPDATE equipment SET
	    product_id = :product_id, mac_address = :mac_address, gpon_sn = :gpon_sn,
	    customer = :customer, description = :description, updated_at = :updated_at
	  WHERE id = :id
	`, e)))
}

func (r *EquipmentRepo) Delete(ctx context.Context, id string) error {
	return r.wrote(affected(r.db.ExecContext(ctx, `DELETE FROM equipment WHERE id = ?`, id)))
}

// List returns units newest first. A non-empty status filters on it; a
// non-empty q matches product name, MAC, GPON SN, customer or description,
// ignoring case.
func (r *EquipmentRepo) List(ctx context.Context, status, q string) ([]domain.EquipmentView, error) {
	where := `1 = 1`
	args := []any{}
	if status != "" {
		where += ` AND e.status = ?`
		args = append(args, status)
	}
	if q != "" {
		where += ` AND (LOWER(COALESCE(p.name, '')) LIKE ? OR LOWER(e.mac_address) LIKE ? OR LOWER(e.gpon_sn) LIKE ?
		  OR LOWER(e.customer) LIKE ? OR LOWER(e.description) LIKE ?)`
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like, like, like, like)
	}

	out := []domain.EquipmentView{}
	err := r.db.SelectContext(ctx, &out, equipmentViewSelect+` WHERE `+where+`
	  ORDER BY e.created_at DESC, e.rowid DESC
	`, args...)
	return out, err
}

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"n" json:"count"`
}

func (r *EquipmentRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	out := []StatusCount{}
	err := r.db.SelectContext(ctx, &out, `SELECT status, COUNT(*) AS n FROM equipment GROUP BY status ORDER BY status`)
	return out, err
}

// ApplyMovement moves a unit from status from to status to and appends mv to
// the ledger in one transaction. The status change is conditional on the unit
// still being in from; when it is not, nothing is written and ErrStale (or
// ErrNotFound for a missing unit) is returned. The stored entry date is never
// earlier than the latest date already in the ledger.
func (r *EquipmentRepo) ApplyMovement(ctx context.Context, mv domain.EquipmentMovement, from, to string) (domain.EquipmentMovement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mv, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	  UPDATE equipment SET status = ?, updated_at = ?
	  WHERE id = ? AND status = ?
	`, to, mv.Date, mv.EquipmentID, from)
	if err := affected(res, err); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return mv, err
		}
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM equipment WHERE id = ?`, mv.EquipmentID); err != nil {
			return mv, err
		}
		if n == 0 {
			return mv, ErrNotFound
		}
		return mv, ErrStale
	}

	if _, err := tx.ExecContext(ctx, `
	  INSERT INTO equipment_movements(id, equipment_id, type, date, user_id, notes)
	  VALUES(?, ?, ?, MAX(?, COALESCE((SELECT MAX(date) FROM equipment_movements), '')), ?, ?)
	`, mv.ID, mv.EquipmentID, mv.Type, mv.Date, mv.UserID, mv.Notes); err != nil {
		return mv, err
	}
	if err := tx.GetContext(ctx, &mv.Date, `SELECT date FROM equipment_movements WHERE id = ?`, mv.ID); err != nil {
		return mv, err
	}
	return mv, r.wrote(tx.Commit())
}
