package domain

// Equipment statuses.
const (
	StatusInStock  = "IN_STOCK"
	StatusDeployed = "DEPLOYED"
)

// ProductNotFound is shown in place of a product name that no longer resolves.
const ProductNotFound = "product not found"

type Equipment struct {
	ID          string `db:"id" json:"id"`
	ProductID   string `db:"product_id" json:"productId"`
	MACAddress  string `db:"mac_address" json:"macAddress"`
	GponSN      string `db:"gpon_sn" json:"gponSn"`
	Customer    string `db:"customer" json:"customer"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status" json:"status"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt"`
}

// EquipmentView is an Equipment annotated with its resolved product for display.
type EquipmentView struct {
	Equipment
	ProductName  string `db:"product_name" json:"productName"`
	ProductFound bool   `db:"product_found" json:"productFound"`
}

// EquipmentMovement is one immutable ledger entry.
type EquipmentMovement struct {
	ID          string `db:"id" json:"id"`
	EquipmentID string `db:"equipment_id" json:"equipmentId"`
	Type        string `db:"type" json:"type"`
	Date        string `db:"date" json:"date"`
	UserID      string `db:"user_id" json:"userId"`
	Notes       string `db:"notes" json:"notes,omitempty"`
}

// MovementView adds display fields to a ledger entry.
type MovementView struct {
	EquipmentMovement
	MACAddress  string `db:"mac_address" json:"macAddress"`
	ProductName string `db:"product_name" json:"productName"`
	Username    string `db:"username" json:"username"`
}

// TargetStatus returns the status an accepted movement of type t leads to,
// and the status the equipment must currently be in for it to be accepted.
func TargetStatus(t string) (target, from string, ok bool) {
	switch t {
	case MovementOut:
		return StatusDeployed, StatusInStock, true
	case MovementIn:
		return StatusInStock, StatusDeployed, true
	}
	return "", "", false
}
