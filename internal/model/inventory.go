package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SKU is a stock keeping unit in the catalog
type SKU struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Barcode     *string         `gorm:"type:varchar(100);uniqueIndex" json:"barcode"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Unit        string          `gorm:"type:varchar(20);not null;default:'UN'" json:"unit"`
	MinStock    int             `gorm:"type:int;not null;default:0" json:"min_stock"`
	Cost        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cost"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// StockBalance is the on-hand quantity of one SKU at one location
type StockBalance struct {
	SKUID      uuid.UUID `gorm:"column:sku_id;type:uuid;primaryKey" json:"sku_id"`
	SKU        *SKU      `gorm:"foreignKey:SKUID" json:"sku,omitempty"`
	LocationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"location_id"`
	Location   *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Quantity   int       `gorm:"type:int;not null;default:0" json:"quantity"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Movement statuses
const (
	MovementPending  = "PENDING"
	MovementApproved = "APPROVED"
	MovementRejected = "REJECTED"
)

// StockMovement is a requested change of stock. Balances only move when it is approved.
type StockMovement struct {
	ID              uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKUID           uuid.UUID     `gorm:"column:sku_id;type:uuid;not null;index" json:"sku_id"`
	SKU             *SKU          `gorm:"foreignKey:SKUID" json:"sku,omitempty"`
	MovementTypeID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"movement_type_id"`
	MovementType    *MovementType `gorm:"foreignKey:MovementTypeID" json:"movement_type,omitempty"`
	LocationID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"location_id"`
	Location        *Location     `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	ToLocationID    *uuid.UUID    `gorm:"type:uuid;index" json:"to_location_id"` // TRANSFER destination
	ToLocation      *Location     `gorm:"foreignKey:ToLocationID" json:"to_location,omitempty"`
	Quantity        int           `gorm:"type:int;not null" json:"quantity"` // signed only for ADJUST
	Status          string        `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Reference       string        `gorm:"type:varchar(100)" json:"reference"`
	Note            string        `gorm:"type:text" json:"note"`
	PurchaseOrderID *uuid.UUID    `gorm:"type:uuid;index" json:"purchase_order_id"`
	CreatedBy       *uuid.UUID    `gorm:"type:uuid;index" json:"created_by"`
	ReviewedBy      *uuid.UUID    `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt      *time.Time    `json:"reviewed_at"`
	RejectionReason string        `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
