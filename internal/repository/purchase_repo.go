package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	Create(ctx context.Context, order *model.PurchaseOrder) error
	// ReplaceItems drops the order's lines and inserts items in their place
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []model.PurchaseOrderItem) error
	Update(ctx context.Context, order *model.PurchaseOrder) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateItemReceived(ctx context.Context, itemID uuid.UUID, received int) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	List(ctx context.Context, status string, supplierID *uuid.UUID, search string, page, limit int) ([]model.PurchaseOrder, int64, error)
	NextNumber(ctx context.Context, prefix string) (string, error)
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, order *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("Supplier", "Items.SKU").Create(order).Error
}

func (r *purchaseRepository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []model.PurchaseOrderItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("purchase_order_id = ?", orderID).Delete(&model.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].PurchaseOrderID = orderID
	}
	return db.Omit("SKU").Create(&items).Error
}

func (r *purchaseRepository) Update(ctx context.Context, order *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Model(order).
		Select("supplier_id", "total", "note", "expected_at").
		Updates(order).Error
}

func (r *purchaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("id = ?", id).Update("status", status).Error
}

func (r *purchaseRepository) UpdateItemReceived(ctx context.Context, itemID uuid.UUID, received int) error {
	return GetDB(ctx, r.db).Model(&model.PurchaseOrderItem{}).Where("id = ?", itemID).
		Update("received_quantity", received).Error
}

func (r *purchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("purchase_order_id = ?", id).Delete(&model.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.PurchaseOrder{}).Error
}

func (r *purchaseRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.SKU").
		Preload("Supplier").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *purchaseRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("purchase_order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *purchaseRepository) List(ctx context.Context, status string, supplierID *uuid.UUID, search string, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PurchaseOrder{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if supplierID != nil {
		db = db.Where("supplier_id = ?", *supplierID)
	}
	if search != "" {
		db = db.Where("number ILIKE ? OR note ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Preload("Supplier").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *purchaseRepository) NextNumber(ctx context.Context, prefix string) (string, error) {
	return NextNumber(ctx, r.db, "purchase_orders", "number", prefix, 5)
}
