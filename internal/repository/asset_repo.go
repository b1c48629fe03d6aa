package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetFilter narrows asset listings; zero values are ignored
type AssetFilter struct {
	Search     string
	Status     string
	LocationID *uuid.UUID
	CompanyID  *uuid.UUID
}

type AssetRepository interface {
	Create(ctx context.Context, asset *model.Asset) error
	Update(ctx context.Context, asset *model.Asset) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	List(ctx context.Context, filter AssetFilter, page, limit int) ([]model.Asset, int64, error)
	All(ctx context.Context, filter AssetFilter) ([]model.Asset, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	NextTag(ctx context.Context) (string, error)
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(asset).Error
}

func (r *assetRepository) Update(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(asset).Error
}

func (r *assetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Asset{}).Error
}

func (r *assetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).Preload("SKU").Preload("Location").Preload("Company").
		First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) query(ctx context.Context, filter AssetFilter) *gorm.DB {
	db := GetDB(ctx, r.db).Model(&model.Asset{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("tag ILIKE ? OR name ILIKE ? OR serial_number ILIKE ?", like, like, like)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.LocationID != nil {
		db = db.Where("location_id = ?", *filter.LocationID)
	}
	if filter.CompanyID != nil {
		db = db.Where("company_id = ?", *filter.CompanyID)
	}
	return db
}

func (r *assetRepository) List(ctx context.Context, filter AssetFilter, page, limit int) ([]model.Asset, int64, error) {
	var assets []model.Asset
	var total int64

	db := r.query(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Location").Preload("Company").Order("tag asc").
		Offset(offset).Limit(limit).Find(&assets).Error; err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

func (r *assetRepository) All(ctx context.Context, filter AssetFilter) ([]model.Asset, error) {
	var assets []model.Asset
	if err := r.query(ctx, filter).Preload("Location").Preload("Company").Order("tag asc").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Asset{}).Where("id = ?", id).Update("status", status).Error
}

func (r *assetRepository) NextTag(ctx context.Context) (string, error) {
	return NextNumber(ctx, r.db, "assets", "tag", "PAT-", 6)
}
