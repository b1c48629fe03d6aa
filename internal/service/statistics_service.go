package service

import (
	"context"
	"fmt"
	"time"

	"zyllen/internal/model"

	"gorm.io/gorm"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics builds the dashboard: current backlog counters plus activity inside [startDate, endDate]
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	if endDate.Before(startDate) {
		return response, validationf("end date is before start date")
	}

	db := s.db.WithContext(ctx)

	counters := []struct {
		name  string
		dest  *int64
		query *gorm.DB
	}{
		{"pending movements", &response.PendingMovements,
			db.Model(&model.StockMovement{}).Where("status = ?", model.MovementPending)},
		{"approved entries", &response.ApprovedEntries,
			db.Model(&model.StockMovement{}).
				Joins("JOIN movement_types mt ON mt.id = stock_movements.movement_type_id").
				Where("stock_movements.status = ? AND mt.direction = ? AND stock_movements.reviewed_at BETWEEN ? AND ?",
					model.MovementApproved, model.DirectionIn, startDate, endDate)},
		{"approved exits", &response.ApprovedExits,
			db.Model(&model.StockMovement{}).
				Joins("JOIN movement_types mt ON mt.id = stock_movements.movement_type_id").
				Where("stock_movements.status = ? AND mt.direction = ? AND stock_movements.reviewed_at BETWEEN ? AND ?",
					model.MovementApproved, model.DirectionOut, startDate, endDate)},
		{"skus below minimum", &response.SKUsBelowMin,
			db.Model(&model.SKU{}).
				Where("is_active AND min_stock > COALESCE((SELECT SUM(b.quantity) FROM stock_balances b WHERE b.sku_id = skus.id), 0)")},
		{"open tickets", &response.OpenTickets,
			db.Model(&model.Ticket{}).Where("status IN ?", []string{model.TicketOpen, model.TicketInProgress})},
		{"open maintenance", &response.OpenMaintenance,
			db.Model(&model.MaintenanceOrder{}).Where("status IN ?", []string{model.OSOpen, model.OSScheduled, model.OSInProgress})},
		{"assets in maintenance", &response.AssetsInMaintenance,
			db.Model(&model.Asset{}).Where("status = ?", model.AssetInMaintenance)},
		{"purchases received", &response.PurchasesReceived,
			db.Model(&model.PurchaseOrder{}).
				Where("status = ? AND updated_at BETWEEN ? AND ?", model.PurchaseReceived, startDate, endDate)},
	}
	for _, c := range counters {
		if err := c.query.Count(c.dest).Error; err != nil {
			return response, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
	}

	// value actually received, valued at the ordered unit price
	var purchases struct{ Value float64 }
	if err := db.Table("purchase_order_items").
		Select("COALESCE(SUM(purchase_order_items.received_quantity * purchase_order_items.unit_price), 0) as value").
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_items.purchase_order_id").
		Where("purchase_orders.status IN ? AND purchase_orders.updated_at BETWEEN ? AND ?",
			[]string{model.PurchaseReceived, model.PurchasePartiallyReceived}, startDate, endDate).
		Scan(&purchases).Error; err != nil {
		return response, fmt.Errorf("failed to sum purchases: %w", err)
	}
	response.PurchasesValue = purchases.Value

	var maintenance struct{ Value float64 }
	if err := db.Model(&model.MaintenanceOrder{}).
		Select("COALESCE(SUM(cost), 0) as value").
		Where("status = ? AND completed_at BETWEEN ? AND ?", model.OSCompleted, startDate, endDate).
		Scan(&maintenance).Error; err != nil {
		return response, fmt.Errorf("failed to sum maintenance cost: %w", err)
	}
	response.MaintenanceCost = maintenance.Value

	var top []model.SKURanking
	if err := db.Table("stock_movements").
		Select("skus.id as sku_id, skus.code as sku_code, skus.name as sku_name, SUM(ABS(stock_movements.quantity)) as total_quantity, COUNT(*) as movements").
		Joins("JOIN skus ON skus.id = stock_movements.sku_id").
		Where("stock_movements.status = ? AND stock_movements.reviewed_at BETWEEN ? AND ?", model.MovementApproved, startDate, endDate).
		Group("skus.id, skus.code, skus.name").
		Order("total_quantity DESC").
		Limit(5).
		Scan(&top).Error; err != nil {
		return response, fmt.Errorf("failed to rank skus: %w", err)
	}
	response.TopMovedSKUs = top

	return response, nil
}
