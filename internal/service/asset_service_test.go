package service

import (
	"context"
	"testing"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assetFixture struct {
	svc    AssetService
	assets *fakeAssets
	audit  *fakeAudit
	depot  *model.Location
	branch *model.Location
}

func newAssetFixture(existing ...*model.Asset) *assetFixture {
	depot := &model.Location{ID: uuid.New(), Name: "Almoxarifado Central"}
	branch := &model.Location{ID: uuid.New(), Name: "Filial Norte"}
	f := &assetFixture{
		assets: &fakeAssets{assets: map[uuid.UUID]*model.Asset{}},
		audit:  &fakeAudit{},
		depot:  depot,
		branch: branch,
	}
	for _, a := range existing {
		f.assets.assets[a.ID] = a
	}
	companies := newFakeRefs(func(c *model.Company) uuid.UUID { return c.ID }, func(c *model.Company) string { return c.Name })
	f.svc = NewAssetService(f.assets, &fakeSKUs{items: map[uuid.UUID]*model.SKU{}}, newLocations(depot, branch), companies, f.audit, fakeTx{})
	return f
}

func TestAssetService_CreateGeneratesTag(t *testing.T) {
	f := newAssetFixture()
	ctx := context.Background()
	depot := f.depot.ID.String()

	first, err := f.svc.CreateAsset(ctx, nil, AssetRequest{Name: "Notebook Dell", LocationID: &depot})
	require.NoError(t, err)
	assert.Equal(t, "PAT-000001", first.Tag)
	assert.Equal(t, model.AssetActive, first.Status)

	second, err := f.svc.CreateAsset(ctx, nil, AssetRequest{Name: "Monitor LG"})
	require.NoError(t, err)
	assert.Equal(t, "PAT-000002", second.Tag)

	custom, err := f.svc.CreateAsset(ctx, nil, AssetRequest{Tag: " nb-042 ", Name: "Notebook Lenovo"})
	require.NoError(t, err)
	assert.Equal(t, "NB-042", custom.Tag)
	assert.Equal(t, 2, f.assets.tags, "explicit tags do not consume a number")

	assert.Equal(t, []string{model.ActionCreate, model.ActionCreate, model.ActionCreate}, f.audit.actions())
}

func TestAssetService_CreateRejectsUnknownLocation(t *testing.T) {
	f := newAssetFixture()
	missing := uuid.New().String()

	_, err := f.svc.CreateAsset(context.Background(), nil, AssetRequest{Name: "Notebook", LocationID: &missing})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.assets.assets)
}

func TestAssetService_Transfer(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr error
	}{
		{name: "active", status: model.AssetActive},
		{name: "loaned", status: model.AssetLoaned},
		{name: "retired", status: model.AssetRetired, wantErr: ErrInvalidTransition},
		{name: "in maintenance", status: model.AssetInMaintenance, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depot := uuid.New()
			asset := &model.Asset{ID: uuid.New(), Tag: "PAT-000010", Name: "Impressora", Status: tt.status, LocationID: &depot}
			f := newAssetFixture(asset)

			_, err := f.svc.TransferAsset(context.Background(), nil, asset.ID.String(), TransferAssetRequest{LocationID: f.branch.ID.String()})

			stored := f.assets.assets[asset.ID]
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, depot, *stored.LocationID)
				assert.Empty(t, f.audit.entries)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.branch.ID, *stored.LocationID)
			assert.Equal(t, tt.status, stored.Status)
			assert.Len(t, f.audit.entries, 1)
		})
	}
}

func TestAssetService_DeleteInMaintenanceConflicts(t *testing.T) {
	busy := &model.Asset{ID: uuid.New(), Tag: "PAT-000003", Status: model.AssetInMaintenance}
	idle := &model.Asset{ID: uuid.New(), Tag: "PAT-000004", Status: model.AssetActive}
	f := newAssetFixture(busy, idle)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.DeleteAsset(ctx, nil, busy.ID.String()), ErrConflict)
	assert.Contains(t, f.assets.assets, busy.ID)

	require.NoError(t, f.svc.DeleteAsset(ctx, nil, idle.ID.String()))
	assert.NotContains(t, f.assets.assets, idle.ID)
	assert.Equal(t, []string{model.ActionDelete}, f.audit.actions())
}
