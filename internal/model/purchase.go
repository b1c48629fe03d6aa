package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase order statuses
const (
	PurchaseDraft             = "DRAFT"
	PurchaseSent              = "SENT"
	PurchasePartiallyReceived = "PARTIALLY_RECEIVED"
	PurchaseReceived          = "RECEIVED"
	PurchaseCancelled         = "CANCELLED"
)

// PurchaseOrder is an order placed with a supplier
type PurchaseOrder struct {
	ID         uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number     string              `gorm:"type:varchar(30);uniqueIndex;not null" json:"number"`
	SupplierID uuid.UUID           `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier   *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status     string              `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Items      []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total      decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"total"`
	Note       string              `gorm:"type:text" json:"note"`
	ExpectedAt *time.Time          `gorm:"type:date" json:"expected_at"`
	CreatedBy  *uuid.UUID          `gorm:"type:uuid" json:"created_by"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// PurchaseOrderItem is a line of a purchase order
type PurchaseOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	SKUID            uuid.UUID       `gorm:"column:sku_id;type:uuid;not null;index" json:"sku_id"`
	SKU              *SKU            `gorm:"foreignKey:SKUID" json:"sku,omitempty"`
	Quantity         int             `gorm:"type:int;not null" json:"quantity"`
	ReceivedQuantity int             `gorm:"type:int;not null;default:0" json:"received_quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
}

// Pending returns how many units are still to be received
func (i PurchaseOrderItem) Pending() int {
	return i.Quantity - i.ReceivedQuantity
}
