package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementFilter narrows movement listings; zero values are ignored
type MovementFilter struct {
	Status     string
	SKUID      *uuid.UUID
	LocationID *uuid.UUID
}

// BalanceFilter narrows balance listings
type BalanceFilter struct {
	SKUID      *uuid.UUID
	LocationID *uuid.UUID
	BelowMin   bool
}

type StockRepository interface {
	CreateMovement(ctx context.Context, mv *model.StockMovement) error
	UpdateMovement(ctx context.Context, mv *model.StockMovement) error
	FindMovement(ctx context.Context, id uuid.UUID) (*model.StockMovement, error)
	FindMovementForUpdate(ctx context.Context, id uuid.UUID) (*model.StockMovement, error)
	ListMovements(ctx context.Context, filter MovementFilter, page, limit int) ([]model.StockMovement, int64, error)

	// LockBalance returns the balance row for (sku, location) locked FOR UPDATE,
	// creating a zero row first when none exists
	LockBalance(ctx context.Context, skuID, locationID uuid.UUID) (*model.StockBalance, error)
	SaveBalance(ctx context.Context, balance *model.StockBalance) error
	ListBalances(ctx context.Context, filter BalanceFilter, page, limit int) ([]model.StockBalance, int64, error)
	AllBalances(ctx context.Context, filter BalanceFilter) ([]model.StockBalance, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) CreateMovement(ctx context.Context, mv *model.StockMovement) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(mv).Error
}

func (r *stockRepository) UpdateMovement(ctx context.Context, mv *model.StockMovement) error {
	return GetDB(ctx, r.db).Model(mv).
		Select("status", "reviewed_by", "reviewed_at", "rejection_reason").
		Updates(mv).Error
}

func (r *stockRepository) preloadMovement(db *gorm.DB) *gorm.DB {
	return db.Preload("SKU").Preload("MovementType").Preload("Location").Preload("ToLocation")
}

func (r *stockRepository) FindMovement(ctx context.Context, id uuid.UUID) (*model.StockMovement, error) {
	var mv model.StockMovement
	if err := r.preloadMovement(GetDB(ctx, r.db)).First(&mv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &mv, nil
}

func (r *stockRepository) FindMovementForUpdate(ctx context.Context, id uuid.UUID) (*model.StockMovement, error) {
	var mv model.StockMovement
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&mv).Error; err != nil {
		return nil, err
	}
	return &mv, nil
}

func (r *stockRepository) ListMovements(ctx context.Context, filter MovementFilter, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.SKUID != nil {
		db = db.Where("sku_id = ?", *filter.SKUID)
	}
	if filter.LocationID != nil {
		db = db.Where("location_id = ? OR to_location_id = ?", *filter.LocationID, *filter.LocationID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := r.preloadMovement(db).Order("created_at desc").Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

func (r *stockRepository) LockBalance(ctx context.Context, skuID, locationID uuid.UUID) (*model.StockBalance, error) {
	db := GetDB(ctx, r.db)
	seed := model.StockBalance{SKUID: skuID, LocationID: locationID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&seed).Error; err != nil {
		return nil, err
	}

	var balance model.StockBalance
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sku_id = ? AND location_id = ?", skuID, locationID).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *stockRepository) SaveBalance(ctx context.Context, balance *model.StockBalance) error {
	return GetDB(ctx, r.db).Model(&model.StockBalance{}).
		Where("sku_id = ? AND location_id = ?", balance.SKUID, balance.LocationID).
		Update("quantity", balance.Quantity).Error
}

func (r *stockRepository) balanceQuery(ctx context.Context, filter BalanceFilter) *gorm.DB {
	db := GetDB(ctx, r.db).Model(&model.StockBalance{})
	if filter.SKUID != nil {
		db = db.Where("stock_balances.sku_id = ?", *filter.SKUID)
	}
	if filter.LocationID != nil {
		db = db.Where("stock_balances.location_id = ?", *filter.LocationID)
	}
	if filter.BelowMin {
		db = db.Joins("JOIN skus ON skus.id = stock_balances.sku_id").
			Where("stock_balances.quantity < skus.min_stock")
	}
	return db
}

func (r *stockRepository) ListBalances(ctx context.Context, filter BalanceFilter, page, limit int) ([]model.StockBalance, int64, error) {
	var balances []model.StockBalance
	var total int64

	db := r.balanceQuery(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("SKU").Preload("Location").
		Order("stock_balances.sku_id, stock_balances.location_id").
		Offset(offset).Limit(limit).Find(&balances).Error; err != nil {
		return nil, 0, err
	}
	return balances, total, nil
}

func (r *stockRepository) AllBalances(ctx context.Context, filter BalanceFilter) ([]model.StockBalance, error) {
	var balances []model.StockBalance
	if err := r.balanceQuery(ctx, filter).Preload("SKU").Preload("Location").
		Order("stock_balances.sku_id, stock_balances.location_id").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}
