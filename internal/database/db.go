package database

import (
	"fmt"
	"time"

	"zyllen/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the service, in migration order
func Models() []interface{} {
	return []interface{}{
		&model.ScreenPermission{},
		&model.Role{},
		&model.RolePermission{},
		&model.InternalUser{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.Location{},
		&model.Category{},
		&model.Supplier{},
		&model.MovementType{},
		&model.SKU{},
		&model.StockBalance{},
		&model.StockMovement{},
		&model.Company{},
		&model.Contractor{},
		&model.ExternalUser{},
		&model.Asset{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderItem{},
		&model.Ticket{},
		&model.TicketComment{},
		&model.MaintenanceOrder{},
	}
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log *zap.Logger, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.SetupJoinTable(&model.Role{}, "Permissions", &model.RolePermission{}); err != nil {
		return nil, fmt.Errorf("failed to setup role permissions join table: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
