package repository

import (
	"context"
	"time"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows the audit trail listing; zero values are ignored
type AuditFilter struct {
	EntityType string
	EntityID   string
	Action     string
	UserID     *uuid.UUID
	From       *time.Time
	To         *time.Time
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter, page, limit int) ([]AuditEntry, int64, error)
}

// AuditEntry is an audit row with the actor's display name resolved
type AuditEntry struct {
	model.AuditLog
	UserName string
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	if entry.Details == "" {
		entry.Details = "{}"
	}
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, page, limit int) ([]AuditEntry, int64, error) {
	var logs []AuditEntry
	var total int64

	db := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if filter.EntityType != "" {
		db = db.Where("audit_logs.entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		db = db.Where("audit_logs.entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		db = db.Where("audit_logs.action = ?", filter.Action)
	}
	if filter.UserID != nil {
		db = db.Where("audit_logs.user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		db = db.Where("audit_logs.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("audit_logs.created_at <= ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Select("audit_logs.*, COALESCE(iu.name, eu.name, '') AS user_name").
		Joins("LEFT JOIN internal_users iu ON iu.id = audit_logs.user_id").
		Joins("LEFT JOIN external_users eu ON eu.id = audit_logs.user_id").
		Order("audit_logs.created_at desc").Offset(offset).Limit(limit).Scan(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
