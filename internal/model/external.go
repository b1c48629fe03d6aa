package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// External user types
const (
	ExternalClient     = "CLIENT"
	ExternalContractor = "CONTRACTOR"
)

// Company is a client organisation served through the client portal
type Company struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Document  string         `gorm:"type:varchar(20)" json:"document"` // CNPJ
	Email     string         `gorm:"type:varchar(255)" json:"email"`
	Phone     string         `gorm:"type:varchar(50)" json:"phone"`
	Address   string         `gorm:"type:text" json:"address"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Contractor is a third-party service provider that executes maintenance orders
type Contractor struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Document  string         `gorm:"type:varchar(20)" json:"document"`
	Email     string         `gorm:"type:varchar(255)" json:"email"`
	Phone     string         `gorm:"type:varchar(50)" json:"phone"`
	Specialty string         `gorm:"type:varchar(255)" json:"specialty"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ExternalUser logs into a portal; Type decides which one
type ExternalUser struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Type         string         `gorm:"type:varchar(20);not null;index" json:"type"` // CLIENT, CONTRACTOR
	CompanyID    *uuid.UUID     `gorm:"type:uuid;index" json:"company_id"`
	Company      *Company       `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ContractorID *uuid.UUID     `gorm:"type:uuid;index" json:"contractor_id"`
	Contractor   *Contractor    `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Kind maps the external user type to the token subject kind
func (u ExternalUser) Kind() string {
	if u.Type == ExternalContractor {
		return KindContractor
	}
	return KindClient
}
