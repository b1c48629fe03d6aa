package model

import (
	"time"

	"github.com/google/uuid"
)

// MovementType directions
const (
	DirectionIn       = "IN"
	DirectionOut      = "OUT"
	DirectionTransfer = "TRANSFER"
	DirectionAdjust   = "ADJUST"
)

// Movement types every installation has; seeded and looked up by name
const (
	MovementTypeEntry    = "Entrada"
	MovementTypeExit     = "Saída"
	MovementTypeTransfer = "Transferência"
	MovementTypeAdjust   = "Ajuste"
	MovementTypePurchase = "Entrada por Compra"
)

// Location is a physical place where stock is kept
type Location struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups SKUs in the catalog
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Supplier sells goods referenced by purchase orders
type Supplier struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Document      string    `gorm:"type:varchar(20)" json:"document"` // CNPJ
	Email         string    `gorm:"type:varchar(255)" json:"email"`
	Phone         string    `gorm:"type:varchar(50)" json:"phone"`
	ContactPerson string    `gorm:"type:varchar(255)" json:"contact_person"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MovementType classifies stock movements and decides how approval changes balances
type MovementType struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Direction   string    `gorm:"type:varchar(10);not null" json:"direction"` // IN, OUT, TRANSFER, ADJUST
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidDirection reports whether d is a known movement direction
func ValidDirection(d string) bool {
	switch d {
	case DirectionIn, DirectionOut, DirectionTransfer, DirectionAdjust:
		return true
	}
	return false
}
