package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"zyllen/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newStatisticsMock(t *testing.T) (StatisticsService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, PreferSimpleProtocol: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent), SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewStatisticsService(db), mock
}

func TestStatisticsService_EndBeforeStart(t *testing.T) {
	svc, mock := newStatisticsMock(t)
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	resp, err := svc.GetStatistics(context.Background(), start, start.Add(-time.Hour))

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, start, resp.TimeRangeStartDate)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query runs for an invalid range")
}

func TestStatisticsService_CounterFailure(t *testing.T) {
	svc, mock := newStatisticsMock(t)
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "stock_movements" WHERE status = $1`)).
		WithArgs(model.MovementPending).
		WillReturnError(errors.New("connection reset"))

	_, err := svc.GetStatistics(context.Background(), start, start.AddDate(0, 1, 0))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending movements")
	assert.NotErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
