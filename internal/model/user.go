package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token subject kinds
const (
	KindInternal   = "internal"
	KindClient     = "client"
	KindContractor = "contractor"
)

// InternalUser is a staff account governed by its role's permissions
type InternalUser struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	PinHash      *string        `gorm:"type:varchar(255)" json:"-"` // optional 4-digit PIN for scanner terminals
	RoleID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"role_id"`
	Role         *Role          `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// RefreshToken stores issued refresh tokens so they can be rotated and revoked.
// Only the SHA-256 of the token id is kept.
type RefreshToken struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"subject_id"`
	SubjectKind string     `gorm:"type:varchar(20);not null" json:"subject_kind"`
	TokenHash   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
