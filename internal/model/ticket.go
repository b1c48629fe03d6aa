package model

import (
	"time"

	"github.com/google/uuid"
)

// Ticket priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Ticket statuses
const (
	TicketOpen       = "OPEN"
	TicketInProgress = "IN_PROGRESS"
	TicketResolved   = "RESOLVED"
	TicketClosed     = "CLOSED"
	TicketCancelled  = "CANCELLED"
)

// Ticket is a support request opened by staff or by a client through the portal
type Ticket struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number           string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"number"`
	Title            string          `gorm:"type:varchar(255);not null" json:"title"`
	Description      string          `gorm:"type:text" json:"description"`
	Priority         string          `gorm:"type:varchar(10);not null;default:'MEDIUM'" json:"priority"`
	Status           string          `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	CompanyID        *uuid.UUID      `gorm:"type:uuid;index" json:"company_id"`
	Company          *Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	AssetID          *uuid.UUID      `gorm:"type:uuid;index" json:"asset_id"`
	OpenedByInternal *uuid.UUID      `gorm:"type:uuid" json:"opened_by_internal"`
	OpenedByExternal *uuid.UUID      `gorm:"type:uuid" json:"opened_by_external"`
	AssigneeID       *uuid.UUID      `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee         *InternalUser   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Comments         []TicketComment `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	ResolvedAt       *time.Time      `json:"resolved_at"`
	ClosedAt         *time.Time      `json:"closed_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TicketComment is a message on a ticket. Internal comments are hidden from the client portal.
type TicketComment struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketID   uuid.UUID `gorm:"type:uuid;not null;index" json:"ticket_id"`
	AuthorID   uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	AuthorKind string    `gorm:"type:varchar(20);not null" json:"author_kind"`
	AuthorName string    `gorm:"type:varchar(255)" json:"author_name"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	Internal   bool      `gorm:"default:false" json:"internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidPriority reports whether p is a known ticket priority
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
