package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Asset statuses
const (
	AssetActive        = "ACTIVE"
	AssetInMaintenance = "IN_MAINTENANCE"
	AssetLoaned        = "LOANED"
	AssetRetired       = "RETIRED"
)

// Asset is a patrimônio: an individually tagged piece of equipment
type Asset struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Tag          string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"tag"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	SKUID        *uuid.UUID      `gorm:"column:sku_id;type:uuid;index" json:"sku_id"`
	SKU          *SKU            `gorm:"foreignKey:SKUID" json:"sku,omitempty"`
	LocationID   *uuid.UUID      `gorm:"type:uuid;index" json:"location_id"`
	Location     *Location       `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	CompanyID    *uuid.UUID      `gorm:"type:uuid;index" json:"company_id"` // client the asset is installed at
	Company      *Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	SerialNumber string          `gorm:"type:varchar(100)" json:"serial_number"`
	Status       string          `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	AcquiredAt   *time.Time      `gorm:"type:date" json:"acquired_at"`
	Value        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ValidAssetStatus reports whether s is a known asset status
func ValidAssetStatus(s string) bool {
	switch s {
	case AssetActive, AssetInMaintenance, AssetLoaned, AssetRetired:
		return true
	}
	return false
}
