package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaintenanceFilter narrows OS listings; ContractorID scopes the contractor portal
type MaintenanceFilter struct {
	Search       string
	Status       string
	AssetID      *uuid.UUID
	ContractorID *uuid.UUID
}

type MaintenanceRepository interface {
	Create(ctx context.Context, order *model.MaintenanceOrder) error
	Update(ctx context.Context, order *model.MaintenanceOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MaintenanceOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MaintenanceOrder, error)
	List(ctx context.Context, filter MaintenanceFilter, page, limit int) ([]model.MaintenanceOrder, int64, error)
	InProgressForAsset(ctx context.Context, assetID, excludeID uuid.UUID) ([]model.MaintenanceOrder, error)
	NextNumber(ctx context.Context) (string, error)
}

type maintenanceRepository struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

func (r *maintenanceRepository) Create(ctx context.Context, order *model.MaintenanceOrder) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(order).Error
}

func (r *maintenanceRepository) Update(ctx context.Context, order *model.MaintenanceOrder) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

func (r *maintenanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MaintenanceOrder, error) {
	var order model.MaintenanceOrder
	if err := GetDB(ctx, r.db).Preload("Asset").Preload("Contractor").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *maintenanceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MaintenanceOrder, error) {
	var order model.MaintenanceOrder
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *maintenanceRepository) List(ctx context.Context, filter MaintenanceFilter, page, limit int) ([]model.MaintenanceOrder, int64, error) {
	var orders []model.MaintenanceOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.MaintenanceOrder{})
	if filter.Search != "" {
		db = db.Where("number ILIKE ? OR title ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.AssetID != nil {
		db = db.Where("asset_id = ?", *filter.AssetID)
	}
	if filter.ContractorID != nil {
		db = db.Where("contractor_id = ?", *filter.ContractorID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Asset").Preload("Contractor").Order("created_at desc").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// InProgressForAsset locks the other running orders on an asset, oldest first
func (r *maintenanceRepository) InProgressForAsset(ctx context.Context, assetID, excludeID uuid.UUID) ([]model.MaintenanceOrder, error) {
	var orders []model.MaintenanceOrder
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset_id = ? AND status = ? AND id <> ?", assetID, model.OSInProgress, excludeID).
		Order("started_at asc").Find(&orders).Error
	return orders, err
}

func (r *maintenanceRepository) NextNumber(ctx context.Context) (string, error) {
	return NextNumber(ctx, r.db, "maintenance_orders", "number", "OS-", 6)
}
