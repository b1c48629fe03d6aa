package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextNumber(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		column string
		prefix string
		width  int
		last   int64
		want   string
	}{
		// 00001 deleted, 00002 and 00003 remain
		{name: "gap after delete", table: "purchase_orders", column: "number", prefix: "PC-20261018-", width: 5, last: 3, want: "PC-20261018-00004"},
		{name: "first of the day", table: "purchase_orders", column: "number", prefix: "PC-20261018-", width: 5, last: 0, want: "PC-20261018-00001"},
		// caller picked PAT-000007 by hand
		{name: "hand picked tag", table: "assets", column: "tag", prefix: "PAT-", width: 6, last: 7, want: "PAT-000008"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)

			mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
				WithArgs(tt.table + ":" + tt.prefix).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(SUBSTRING("+tt.column+" FROM $1) AS BIGINT)), 0) FROM "+tt.table)).
				WithArgs(len(tt.prefix)+1, tt.prefix+"%", len(tt.prefix)+1).
				WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(tt.last))

			got, err := NextNumber(context.Background(), db, tt.table, tt.column, tt.prefix, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDatePrefix(t *testing.T) {
	at := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "PC-20261018-", DatePrefix("PC", at))
}
