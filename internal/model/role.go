package model

import (
	"time"

	"github.com/google/uuid"
)

// Role groups screen permissions; internal users hold exactly one role
type Role struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string             `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string             `gorm:"type:text" json:"description"`
	IsSystem    bool               `gorm:"default:false" json:"is_system"` // seeded roles cannot be deleted
	Permissions []ScreenPermission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ScreenPermission is one grantable capability: an action on a screen
type ScreenPermission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Screen      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_screen_action" json:"screen"`
	Action      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_screen_action" json:"action"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
}

// Code renders the permission string checked by the gate, e.g. "inventory.bipar_entrada"
func (p ScreenPermission) Code() string {
	return PermissionCode(p.Screen, p.Action)
}

// PermissionCode joins a screen and action into a permission string
func PermissionCode(screen, action string) string {
	return screen + "." + action
}

// RolePermission is the join row between Role and ScreenPermission
type RolePermission struct {
	RoleID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"role_id"`
	ScreenPermissionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"screen_permission_id"`
	CreatedAt          time.Time `json:"created_at"`
}
