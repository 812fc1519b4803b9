package domain

import "time"

// TimeLayout is the fixed-width UTC layout used for every stored timestamp.
// Fixed width keeps lexical order equal to chronological order in SQL.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

func Now() string { return time.Now().UTC().Format(TimeLayout) }

type Category struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

type Product struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Quantity    int    `db:"quantity" json:"quantity"`
	Category    string `db:"category" json:"category"` // category name, not enforced
	Brand       string `db:"brand" json:"brand"`
	Model       string `db:"model" json:"model"`
	ImageURL    string `db:"image_url" json:"imageUrl"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt"`
}

// Movement types shared by stock movements and equipment movements.
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// StockMovement is a quantity change on a catalog product.
type StockMovement struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"productId"`
	Type      string `db:"type" json:"type"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Date      string `db:"date" json:"date"`
	UserID    string `db:"user_id" json:"userId"`
}

// StockMovementView adds display fields to a stock movement.
type StockMovementView struct {
	StockMovement
	ProductName string `db:"product_name" json:"productName"`
	Username    string `db:"username" json:"username"`
}
