package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Maintenance order (OS) statuses
const (
	OSOpen       = "OPEN"
	OSScheduled  = "SCHEDULED"
	OSInProgress = "IN_PROGRESS"
	OSCompleted  = "COMPLETED"
	OSCancelled  = "CANCELLED"
)

// MaintenanceOrder is an ordem de serviço: work to be carried out on an asset
type MaintenanceOrder struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number       string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"number"`
	Title        string          `gorm:"type:varchar(255);not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	AssetID      *uuid.UUID      `gorm:"type:uuid;index" json:"asset_id"`
	Asset        *Asset          `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	TicketID     *uuid.UUID      `gorm:"type:uuid;index" json:"ticket_id"`
	ContractorID *uuid.UUID      `gorm:"type:uuid;index" json:"contractor_id"`
	Contractor   *Contractor     `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	Status       string          `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	ScheduledFor *time.Time      `json:"scheduled_for"`
	StartedAt    *time.Time      `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
	Cost         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"cost"`
	Resolution   string          `gorm:"type:text" json:"resolution"`
	// asset status to restore when this order ends; empty when another OS already held the asset
	AssetStatusBefore string     `gorm:"type:varchar(20)" json:"-"`
	CreatedBy         *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
