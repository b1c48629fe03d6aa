package model

import (
	"time"
)

// StatisticsResponse is the operations dashboard for a time window
type StatisticsResponse struct {
	PendingMovements    int64        `json:"pending_movements"`
	ApprovedEntries     int64        `json:"approved_entries"`
	ApprovedExits       int64        `json:"approved_exits"`
	SKUsBelowMin        int64        `json:"skus_below_min"`
	OpenTickets         int64        `json:"open_tickets"`
	OpenMaintenance     int64        `json:"open_maintenance"`
	AssetsInMaintenance int64        `json:"assets_in_maintenance"`
	PurchasesReceived   int64        `json:"purchases_received"`
	PurchasesValue      float64      `json:"purchases_value"`
	MaintenanceCost     float64      `json:"maintenance_cost"`
	TopMovedSKUs        []SKURanking `json:"top_moved_skus"`
	TimeRangeStartDate  time.Time    `json:"time_range_start_date"`
	TimeRangeEndDate    time.Time    `json:"time_range_end_date"`
}

// SKURanking ranks a SKU by approved movement volume
type SKURanking struct {
	SKUID         string `json:"sku_id"`
	SKUCode       string `json:"sku_code"`
	SKUName       string `json:"sku_name"`
	TotalQuantity int    `json:"total_quantity"`
	Movements     int    `json:"movements"`
}
