package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reference is any of the small lookup tables keyed by a unique name
type Reference interface {
	model.Location | model.Category | model.Supplier | model.MovementType | model.Company | model.Contractor
}

// ReferenceRepository is the shared CRUD surface for lookup tables
type ReferenceRepository[T Reference] interface {
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindByName(ctx context.Context, name string) (*T, error)
	List(ctx context.Context, page, limit int, search string) ([]T, int64, error)
	// FirstOrCreate looks the row up by name and inserts item when missing
	FirstOrCreate(ctx context.Context, item *T, name string) (bool, error)
}

type referenceRepository[T Reference] struct {
	db *gorm.DB
}

func NewReferenceRepository[T Reference](db *gorm.DB) ReferenceRepository[T] {
	return &referenceRepository[T]{db: db}
}

func (r *referenceRepository[T]) Create(ctx context.Context, item *T) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *referenceRepository[T]) Update(ctx context.Context, item *T) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *referenceRepository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	var zero T
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&zero).Error
}

func (r *referenceRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var item T
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *referenceRepository[T]) FindByName(ctx context.Context, name string) (*T, error) {
	var item T
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *referenceRepository[T]) List(ctx context.Context, page, limit int, search string) ([]T, int64, error) {
	var items []T
	var total int64
	var zero T

	db := GetDB(ctx, r.db).Model(&zero)
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *referenceRepository[T]) FirstOrCreate(ctx context.Context, item *T, name string) (bool, error) {
	existing, err := r.FindByName(ctx, name)
	if err == nil {
		*item = *existing
		return false, nil
	}
	if !IsNotFound(err) {
		return false, err
	}
	if err := r.Create(ctx, item); err != nil {
		return false, err
	}
	return true, nil
}
