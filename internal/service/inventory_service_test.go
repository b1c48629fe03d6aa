package service

import (
	"context"
	"testing"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inventoryFixture struct {
	svc      InventoryService
	stock    *fakeStock
	audit    *fakeAudit
	notifier *recordingNotifier
	sku      *model.SKU
	central  *model.Location
	shop     *model.Location
	types    map[string]*model.MovementType
	actor    *Actor
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	barcode := "7891234567890"
	f := &inventoryFixture{
		stock:    newFakeStock(),
		audit:    &fakeAudit{},
		notifier: &recordingNotifier{},
		sku:      &model.SKU{ID: uuid.New(), Code: "CAB-001", Barcode: &barcode, Name: "Cabo HDMI", IsActive: true},
		central:  &model.Location{ID: uuid.New(), Name: "Almoxarifado Central", IsActive: true},
		shop:     &model.Location{ID: uuid.New(), Name: "Oficina", IsActive: true},
		types: map[string]*model.MovementType{
			model.DirectionIn:       {ID: uuid.New(), Name: model.MovementTypeEntry, Direction: model.DirectionIn},
			model.DirectionOut:      {ID: uuid.New(), Name: model.MovementTypeExit, Direction: model.DirectionOut},
			model.DirectionTransfer: {ID: uuid.New(), Name: model.MovementTypeTransfer, Direction: model.DirectionTransfer},
			model.DirectionAdjust:   {ID: uuid.New(), Name: model.MovementTypeAdjust, Direction: model.DirectionAdjust},
		},
		actor: &Actor{ID: uuid.New(), Kind: model.KindInternal, Name: "Operador"},
	}

	var types []*model.MovementType
	for _, mt := range f.types {
		types = append(types, mt)
	}
	f.svc = NewInventoryService(
		f.stock,
		&fakeSKUs{items: map[uuid.UUID]*model.SKU{f.sku.ID: f.sku}},
		newMovementTypes(types...),
		newLocations(f.central, f.shop),
		f.audit,
		fakeTx{},
		f.notifier,
		zap.NewNop(),
	)
	return f
}

func (f *inventoryFixture) balance(loc *model.Location) int {
	return f.stock.balances[balanceKey{f.sku.ID, loc.ID}]
}

func (f *inventoryFixture) movement(t *testing.T, direction string, qty int, to *model.Location) *model.StockMovement {
	t.Helper()
	req := MovementRequest{
		SKUID:          f.sku.ID.String(),
		MovementTypeID: f.types[direction].ID.String(),
		LocationID:     f.central.ID.String(),
		Quantity:       qty,
	}
	if to != nil {
		dest := to.ID.String()
		req.ToLocationID = &dest
	}
	mv, err := f.svc.CreateMovement(context.Background(), f.actor, req)
	require.NoError(t, err)
	require.Equal(t, model.MovementPending, mv.Status)
	return mv
}

func TestInventoryService_RegisterEntryByBarcode(t *testing.T) {
	f := newInventoryFixture(t)

	mv, err := f.svc.RegisterEntry(context.Background(), f.actor, ScanRequest{
		Code:       "7891234567890",
		Quantity:   4,
		LocationID: f.central.ID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, f.sku.ID, mv.SKUID)
	assert.Equal(t, f.types[model.DirectionIn].ID, mv.MovementTypeID)
	assert.Equal(t, model.MovementPending, mv.Status)
	assert.Equal(t, 0, f.balance(f.central), "pending movements never touch balances")
	assert.Equal(t, []string{EventMovementCreated}, f.notifier.events)
}

func TestInventoryService_RegisterExitRejectsEntryType(t *testing.T) {
	f := newInventoryFixture(t)
	entryType := f.types[model.DirectionIn].ID.String()

	_, err := f.svc.RegisterExit(context.Background(), f.actor, ScanRequest{
		Code:           "CAB-001",
		Quantity:       1,
		LocationID:     f.central.ID.String(),
		MovementTypeID: &entryType,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInventoryService_ApproveAppliesOnce(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	mv := f.movement(t, model.DirectionIn, 5, nil)

	approved, err := f.svc.ApproveMovement(ctx, f.actor, mv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.MovementApproved, approved.Status)
	assert.Equal(t, f.actor.ID, *approved.ReviewedBy)
	assert.Equal(t, 5, f.balance(f.central))

	_, err = f.svc.ApproveMovement(ctx, f.actor, mv.ID.String())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 5, f.balance(f.central))
	assert.Equal(t, []string{model.ActionCreate, model.ActionApprove}, f.audit.actions())
}

func TestInventoryService_ApproveExitWithInsufficientStock(t *testing.T) {
	f := newInventoryFixture(t)
	f.stock.balances[balanceKey{f.sku.ID, f.central.ID}] = 1
	mv := f.movement(t, model.DirectionOut, 3, nil)

	_, err := f.svc.ApproveMovement(context.Background(), f.actor, mv.ID.String())
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "insufficient stock")

	stored, err := f.svc.GetMovement(context.Background(), mv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.MovementPending, stored.Status)
	assert.Equal(t, 1, f.balance(f.central))
}

func TestInventoryService_ApproveTransferMovesStock(t *testing.T) {
	f := newInventoryFixture(t)
	f.stock.balances[balanceKey{f.sku.ID, f.central.ID}] = 10
	mv := f.movement(t, model.DirectionTransfer, 4, f.shop)

	_, err := f.svc.ApproveMovement(context.Background(), f.actor, mv.ID.String())
	require.NoError(t, err)

	assert.Equal(t, 6, f.balance(f.central))
	assert.Equal(t, 4, f.balance(f.shop))
	assert.Equal(t, 10, f.balance(f.central)+f.balance(f.shop))
}

func TestInventoryService_AdjustAcceptsNegativeDelta(t *testing.T) {
	f := newInventoryFixture(t)
	f.stock.balances[balanceKey{f.sku.ID, f.central.ID}] = 7
	mv := f.movement(t, model.DirectionAdjust, -2, nil)

	_, err := f.svc.ApproveMovement(context.Background(), f.actor, mv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 5, f.balance(f.central))
}

func TestInventoryService_CreateMovementValidation(t *testing.T) {
	f := newInventoryFixture(t)
	same := f.central.ID.String()

	tests := []struct {
		name string
		req  MovementRequest
	}{
		{"transfer without destination", MovementRequest{MovementTypeID: f.types[model.DirectionTransfer].ID.String(), Quantity: 1}},
		{"transfer to same location", MovementRequest{MovementTypeID: f.types[model.DirectionTransfer].ID.String(), Quantity: 1, ToLocationID: &same}},
		{"zero adjustment", MovementRequest{MovementTypeID: f.types[model.DirectionAdjust].ID.String(), Quantity: 0}},
		{"negative entry", MovementRequest{MovementTypeID: f.types[model.DirectionIn].ID.String(), Quantity: -1}},
		{"unknown location", MovementRequest{MovementTypeID: f.types[model.DirectionIn].ID.String(), Quantity: 1, LocationID: uuid.NewString()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.SKUID = f.sku.ID.String()
			if tt.req.LocationID == "" {
				tt.req.LocationID = f.central.ID.String()
			}
			_, err := f.svc.CreateMovement(context.Background(), f.actor, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestInventoryService_RejectLeavesBalances(t *testing.T) {
	f := newInventoryFixture(t)
	mv := f.movement(t, model.DirectionIn, 3, nil)

	_, err := f.svc.RejectMovement(context.Background(), f.actor, mv.ID.String(), RejectRequest{Reason: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	rejected, err := f.svc.RejectMovement(context.Background(), f.actor, mv.ID.String(), RejectRequest{Reason: "contagem errada"})
	require.NoError(t, err)
	assert.Equal(t, model.MovementRejected, rejected.Status)
	assert.Equal(t, "contagem errada", rejected.RejectionReason)
	assert.Equal(t, 0, f.balance(f.central))

	_, err = f.svc.ApproveMovement(context.Background(), f.actor, mv.ID.String())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInventoryService_InvalidIDIsValidationError(t *testing.T) {
	f := newInventoryFixture(t)
	_, err := f.svc.GetMovement(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.GetMovement(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
