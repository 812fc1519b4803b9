package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"invtrack/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, name, description, quantity, category, brand, model, image_url, created_at, updated_at`

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return p, notFound(err)
}

// Search lists products ordered by name. Empty q or category means no filter.
func (r *ProductRepo) Search(ctx context.Context, q, category string) ([]domain.Product, error) {
	where := `1 = 1`
	args := []any{}
	if q != "" {
		where += ` AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?)`
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like, like, like)
	}
	if category != "" {
		where += ` AND category = ?`
		args = append(args, category)
	}

	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products WHERE `+where+` ORDER BY name`, args...)
	return out, err
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) error {
	_, err := r.db.NamedExecContext(ctx, `
	  INSERT INTO products(`+productCols+`)
	  VALUES(:id, :name, :description, :quantity, :category, :brand, :model, :image_url, :created_at, :updated_at)
	`, p)
	return err
}

func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	return affected(r.db.NamedExecContext(ctx, `
	  UPDATE products SET
	    name = :name, description = :description, quantity = :quantity, category = :category,
	    brand = :brand, model = :model, image_url = :image_url, updated_at = :updated_at
	  WHERE id = :id
	`, p))
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id))
}

type ProductStats struct {
	Total      int `db:"total"`
	LowStock   int `db:"low_stock"`
	OutOfStock int `db:"out_of_stock"`
}

// Stats counts products, optionally restricted to one category.
func (r *ProductRepo) Stats(ctx context.Context, category string, lowThreshold int) (ProductStats, error) {
	var s ProductStats
	err := r.db.GetContext(ctx, &s, `
	  SELECT COUNT(*) AS total,
	         COALESCE(SUM(CASE WHEN quantity < ? THEN 1 ELSE 0 END), 0) AS low_stock,
	         COALESCE(SUM(CASE WHEN quantity = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock
	  FROM products
	  WHERE (? = '' OR category = ?)
	`, lowThreshold, category, category)
	return s, err
}

// LowStock lists products under the threshold, lowest first.
func (r *ProductRepo) LowStock(ctx context.Context, category string, lowThreshold int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+` FROM products
	  WHERE quantity < ? AND (? = '' OR category = ?)
	  ORDER BY quantity, name
	`, lowThreshold, category, category)
	return out, err
}

type BrandCount struct {
	Brand string `db:"brand" json:"brand"`
	Count int    `db:"n" json:"count"`
}

// BrandCounts groups products by brand; products without one are grouped under "".
func (r *ProductRepo) BrandCounts(ctx context.Context) ([]BrandCount, error) {
	out := []BrandCount{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT brand, COUNT(*) AS n FROM products GROUP BY brand ORDER BY n DESC, brand
	`)
	return out, err
}

// Categories returns the distinct category names products carry.
func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out, `SELECT DISTINCT category FROM products WHERE category != '' ORDER BY category`)
	return out, err
}
