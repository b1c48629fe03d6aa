package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// RunInTx opens a transaction, or joins the one already carried by ctx
func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// IsNotFound reports whether err is gorm's record-not-found
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique violation (requires TranslateError)
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsForeignKey reports whether err is a foreign key violation (requires TranslateError)
func IsForeignKey(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}

// NextNumber returns the next human readable document number for prefix,
// e.g. "PC-20261018-" -> "PC-20261018-00003". It continues from the highest
// numeric suffix in use, so gaps left by deletes or hand-picked numbers never
// produce a duplicate. The advisory lock serialises concurrent callers inside
// the surrounding transaction.
func NextNumber(ctx context.Context, rootDB *gorm.DB, table, column, prefix string, width int) (string, error) {
	db := GetDB(ctx, rootDB)
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", table+":"+prefix).Error; err != nil {
		return "", fmt.Errorf("failed to lock sequence %s: %w", prefix, err)
	}

	// soft-deleted rows still hold their number in the unique index, so no deleted_at filter
	start := len(prefix) + 1
	query := fmt.Sprintf(
		"SELECT COALESCE(MAX(CAST(SUBSTRING(%[1]s FROM ?) AS BIGINT)), 0) FROM %[2]s WHERE %[1]s LIKE ? AND SUBSTRING(%[1]s FROM ?) ~ '^[0-9]+$'",
		column, table,
	)
	var last int64
	if err := db.Raw(query, start, prefix+"%", start).Scan(&last).Error; err != nil {
		return "", fmt.Errorf("failed to read sequence %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s%0*d", prefix, width, last+1), nil
}

// DatePrefix renders "<kind>-YYYYMMDD-" for daily numbered documents
func DatePrefix(kind string, at time.Time) string {
	return kind + "-" + at.Format("20060102") + "-"
}
