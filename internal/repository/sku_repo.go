package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SKUFilter narrows catalog listings
type SKUFilter struct {
	Search     string
	CategoryID *uuid.UUID
	ActiveOnly bool
}

type SKURepository interface {
	Create(ctx context.Context, sku *model.SKU) error
	Update(ctx context.Context, sku *model.SKU) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SKU, error)
	// FindByCode matches either the SKU code or its barcode
	FindByCode(ctx context.Context, code string) (*model.SKU, error)
	List(ctx context.Context, filter SKUFilter, page, limit int) ([]model.SKU, int64, error)
	CountMovements(ctx context.Context, id uuid.UUID) (int64, error)
}

type skuRepository struct {
	db *gorm.DB
}

func NewSKURepository(db *gorm.DB) SKURepository {
	return &skuRepository{db: db}
}

func (r *skuRepository) Create(ctx context.Context, sku *model.SKU) error {
	return GetDB(ctx, r.db).Omit("Category").Create(sku).Error
}

func (r *skuRepository) Update(ctx context.Context, sku *model.SKU) error {
	return GetDB(ctx, r.db).Omit("Category").Save(sku).Error
}

func (r *skuRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.SKU{}).Error
}

func (r *skuRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SKU, error) {
	var sku model.SKU
	if err := GetDB(ctx, r.db).Preload("Category").First(&sku, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) FindByCode(ctx context.Context, code string) (*model.SKU, error) {
	var sku model.SKU
	if err := GetDB(ctx, r.db).Preload("Category").
		Where("code = ? OR barcode = ?", code, code).
		First(&sku).Error; err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) List(ctx context.Context, filter SKUFilter, page, limit int) ([]model.SKU, int64, error) {
	var skus []model.SKU
	var total int64

	db := GetDB(ctx, r.db).Model(&model.SKU{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("name ILIKE ? OR code ILIKE ? OR barcode ILIKE ?", like, like, like)
	}
	if filter.CategoryID != nil {
		db = db.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Category").Order("name asc").Offset(offset).Limit(limit).Find(&skus).Error; err != nil {
		return nil, 0, err
	}

	return skus, total, nil
}

func (r *skuRepository) CountMovements(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.StockMovement{}).Where("sku_id = ?", id).Count(&count).Error
	return count, err
}
