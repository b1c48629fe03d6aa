package service

import (
	"context"
	"testing"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type purchaseFixture struct {
	svc       PurchaseService
	purchases *fakePurchases
	stock     *fakeStock
	order     *model.PurchaseOrder
	location  *model.Location
	receipt   *model.MovementType
}

func newPurchaseFixture(status string) *purchaseFixture {
	orderID := uuid.New()
	order := &model.PurchaseOrder{
		ID:     orderID,
		Number: "PC-20261018-00001",
		Status: status,
		Items: []model.PurchaseOrderItem{
			{ID: uuid.New(), PurchaseOrderID: orderID, SKUID: uuid.New(), Quantity: 10, UnitPrice: decimal.NewFromInt(3)},
			{ID: uuid.New(), PurchaseOrderID: orderID, SKUID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		},
	}
	f := &purchaseFixture{
		purchases: &fakePurchases{orders: map[uuid.UUID]*model.PurchaseOrder{orderID: order}},
		stock:     newFakeStock(),
		order:     order,
		location:  &model.Location{ID: uuid.New(), Name: "Almoxarifado Central", IsActive: true},
		receipt:   &model.MovementType{ID: uuid.New(), Name: model.MovementTypePurchase, Direction: model.DirectionIn},
	}
	f.svc = NewPurchaseService(f.purchases, nil, nil, newLocations(f.location), newMovementTypes(f.receipt),
		f.stock, &fakeAudit{}, fakeTx{}, nil, zap.NewNop())
	return f
}

func (f *purchaseFixture) receive(items ...ReceiveItemRequest) (*model.PurchaseOrder, error) {
	return f.svc.ReceiveOrder(context.Background(), nil, f.order.ID.String(), ReceivePurchaseRequest{
		LocationID: f.location.ID.String(),
		Items:      items,
	})
}

func TestPurchaseService_ReceivePartiallyThenFully(t *testing.T) {
	f := newPurchaseFixture(model.PurchaseSent)
	first, second := f.order.Items[0], f.order.Items[1]

	order, err := f.receive(ReceiveItemRequest{ItemID: first.ID.String(), Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, model.PurchasePartiallyReceived, order.Status)
	assert.Equal(t, 4, f.stock.balances[balanceKey{first.SKUID, f.location.ID}])

	order, err = f.receive(
		ReceiveItemRequest{ItemID: first.ID.String(), Quantity: 6},
		ReceiveItemRequest{ItemID: second.ID.String(), Quantity: 2},
	)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseReceived, order.Status)
	assert.Equal(t, 10, f.stock.balances[balanceKey{first.SKUID, f.location.ID}])
	assert.Equal(t, 2, f.stock.balances[balanceKey{second.SKUID, f.location.ID}])

	for _, mv := range f.stock.movements {
		assert.Equal(t, model.MovementApproved, mv.Status)
		assert.Equal(t, f.receipt.ID, mv.MovementTypeID)
		assert.Equal(t, f.order.ID, *mv.PurchaseOrderID)
	}
	assert.Len(t, f.stock.movements, 3)
}

func TestPurchaseService_CannotOverReceive(t *testing.T) {
	f := newPurchaseFixture(model.PurchaseSent)
	item := f.order.Items[1]

	_, err := f.receive(
		ReceiveItemRequest{ItemID: item.ID.String(), Quantity: 1},
		ReceiveItemRequest{ItemID: item.ID.String(), Quantity: 2},
	)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.stock.balances[balanceKey{item.SKUID, f.location.ID}])
	assert.Equal(t, 0, f.purchases.orders[f.order.ID].Items[1].ReceivedQuantity)
}

func TestPurchaseService_ReceiveRequiresSentOrder(t *testing.T) {
	for _, status := range []string{model.PurchaseDraft, model.PurchaseReceived, model.PurchaseCancelled} {
		t.Run(status, func(t *testing.T) {
			f := newPurchaseFixture(status)
			_, err := f.receive(ReceiveItemRequest{ItemID: f.order.Items[0].ID.String(), Quantity: 1})
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestPurchaseService_ReceiveForeignItem(t *testing.T) {
	f := newPurchaseFixture(model.PurchaseSent)
	_, err := f.receive(ReceiveItemRequest{ItemID: uuid.NewString(), Quantity: 1})
	assert.ErrorIs(t, err, ErrValidation)
}
