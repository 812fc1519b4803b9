package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"invtrack/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT id, name, created_at
	  FROM categories
	  ORDER BY name
	`)
	return out, err
}

func (r *CategoryRepo) Create(ctx context.Context, c domain.Category) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories(id,name,created_at) VALUES(?,?,?)`,
		c.ID, c.Name, c.CreatedAt)
	return uniqueViolation(err)
}

func (r *CategoryRepo) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	return affected(res, uniqueViolation(err))
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id))
}
