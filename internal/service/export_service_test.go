package service

import (
	"bytes"
	"context"
	"testing"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportService_AssetsSpreadsheet(t *testing.T) {
	loc := &model.Location{ID: uuid.New(), Name: "Oficina"}
	asset := &model.Asset{
		ID:       uuid.New(),
		Tag:      "PAT-000007",
		Name:     "Notebook",
		Status:   model.AssetActive,
		Location: loc,
		Value:    decimal.RequireFromString("4500.50"),
	}
	svc := NewExportService(newFakeStock(), &fakeAssets{assets: map[uuid.UUID]*model.Asset{asset.ID: asset}})

	export, err := svc.ExportAssets(context.Background(), repository.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, XLSXContentType, export.ContentType)
	assert.Contains(t, export.Filename, "patrimonio-")

	f, err := excelize.OpenReader(bytes.NewReader(export.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Patrimônio")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, assetExportHeader, rows[0])
	assert.Equal(t, "PAT-000007", rows[1][0])
	assert.Equal(t, "Oficina", rows[1][4])
	assert.Equal(t, []string{"Patrimônio"}, f.GetSheetList())
}

func TestExportService_BalancesFlagBelowMinimum(t *testing.T) {
	stock := newFakeStock()
	stock.balances[balanceKey{uuid.New(), uuid.New()}] = 2
	svc := NewExportService(stock, &fakeAssets{})

	export, err := svc.ExportBalances(context.Background(), repository.BalanceFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(export.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Estoque")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[1][4])
	assert.Equal(t, "Não", rows[1][6])
}
