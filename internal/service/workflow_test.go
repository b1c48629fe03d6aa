package service

import (
	"context"
	"testing"
	"time"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMoveTicketStamps(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	ticket := &model.Ticket{Status: model.TicketInProgress}

	require.NoError(t, moveTicket(ticket, model.TicketResolved, now))
	assert.Equal(t, now, *ticket.ResolvedAt)

	require.NoError(t, moveTicket(ticket, model.TicketInProgress, now))
	assert.Nil(t, ticket.ResolvedAt, "reopening clears the resolution time")

	err := moveTicket(ticket, model.TicketClosed, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, model.TicketInProgress, ticket.Status)
}

type maintenanceFixture struct {
	orders *fakeOrders
	assets *fakeAssets
	audit  *fakeAudit
	order  *model.MaintenanceOrder
	asset  *model.Asset
}

func newMaintenanceFixture(status, assetStatus string) *maintenanceFixture {
	asset := &model.Asset{ID: uuid.New(), Tag: "PAT-000001", Status: assetStatus}
	contractor := uuid.New()
	order := &model.MaintenanceOrder{ID: uuid.New(), Number: "OS-000001", Status: status, AssetID: &asset.ID, ContractorID: &contractor}
	return &maintenanceFixture{
		orders: &fakeOrders{orders: map[uuid.UUID]*model.MaintenanceOrder{order.ID: order}},
		assets: &fakeAssets{assets: map[uuid.UUID]*model.Asset{asset.ID: asset}},
		audit:  &fakeAudit{},
		order:  order,
		asset:  asset,
	}
}

func (f *maintenanceFixture) change(to string, contractor *uuid.UUID) error {
	return changeMaintenanceStatus(context.Background(), f.orders, f.assets, f.audit, fakeTx{}, nil,
		f.order.ID, contractor, MaintenanceStatusRequest{Status: to, Resolution: "trocado o fusível", Cost: ptrDecimal(120)}, time.Now())
}

func ptrDecimal(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestChangeMaintenanceStatus_AssetFollowsOrder(t *testing.T) {
	f := newMaintenanceFixture(model.OSOpen, model.AssetActive)

	require.NoError(t, f.change(model.OSInProgress, nil))
	assert.Equal(t, model.AssetInMaintenance, f.assets.assets[f.asset.ID].Status)
	assert.NotNil(t, f.orders.orders[f.order.ID].StartedAt)

	require.NoError(t, f.change(model.OSCompleted, nil))
	stored := f.orders.orders[f.order.ID]
	assert.Equal(t, model.OSCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, "trocado o fusível", stored.Resolution)
	assert.True(t, decimal.NewFromInt(120).Equal(stored.Cost))
	assert.Equal(t, model.AssetActive, f.assets.assets[f.asset.ID].Status)

	assert.ErrorIs(t, f.change(model.OSInProgress, nil), ErrInvalidTransition)
	assert.Len(t, f.audit.entries, 2)
}

func TestChangeMaintenanceStatus_CancelFromOpenKeepsAsset(t *testing.T) {
	f := newMaintenanceFixture(model.OSOpen, model.AssetLoaned)
	require.NoError(t, f.change(model.OSCancelled, nil))
	assert.Equal(t, model.AssetLoaned, f.assets.assets[f.asset.ID].Status)
}

func (f *maintenanceFixture) changeOrder(id uuid.UUID, to string) error {
	return changeMaintenanceStatus(context.Background(), f.orders, f.assets, f.audit, fakeTx{}, nil,
		id, nil, MaintenanceStatusRequest{Status: to}, time.Now())
}

func TestChangeMaintenanceStatus_LoanedAssetReturnsToLoaned(t *testing.T) {
	f := newMaintenanceFixture(model.OSOpen, model.AssetLoaned)

	require.NoError(t, f.change(model.OSInProgress, nil))
	assert.Equal(t, model.AssetInMaintenance, f.assets.assets[f.asset.ID].Status)

	require.NoError(t, f.change(model.OSCompleted, nil))
	assert.Equal(t, model.AssetLoaned, f.assets.assets[f.asset.ID].Status)
	assert.Empty(t, f.orders.orders[f.order.ID].AssetStatusBefore)
}

func TestChangeMaintenanceStatus_AssetStaysInMaintenanceWhileAnotherOrderRuns(t *testing.T) {
	f := newMaintenanceFixture(model.OSOpen, model.AssetLoaned)
	second := &model.MaintenanceOrder{ID: uuid.New(), Number: "OS-000002", Status: model.OSOpen, AssetID: &f.asset.ID}
	f.orders.orders[second.ID] = second

	require.NoError(t, f.change(model.OSInProgress, nil))
	require.NoError(t, f.changeOrder(second.ID, model.OSInProgress))

	// the first order ends while the second still runs
	require.NoError(t, f.change(model.OSCompleted, nil))
	assert.Equal(t, model.AssetInMaintenance, f.assets.assets[f.asset.ID].Status)
	assert.Equal(t, model.AssetLoaned, f.orders.orders[second.ID].AssetStatusBefore)

	require.NoError(t, f.changeOrder(second.ID, model.OSCancelled))
	assert.Equal(t, model.AssetLoaned, f.assets.assets[f.asset.ID].Status)
}

func TestChangeMaintenanceStatus_RetiredAssetCannotStart(t *testing.T) {
	f := newMaintenanceFixture(model.OSOpen, model.AssetRetired)
	assert.ErrorIs(t, f.change(model.OSInProgress, nil), ErrInvalidTransition)
	assert.Equal(t, model.OSOpen, f.orders.orders[f.order.ID].Status)
}

func TestChangeMaintenanceStatus_ScheduleNeedsDate(t *testing.T) {
	f := newMaintenanceFixture(model.OSOpen, model.AssetActive)
	assert.ErrorIs(t, f.change(model.OSScheduled, nil), ErrValidation)
}

func TestChangeMaintenanceStatus_OtherContractorSeesNothing(t *testing.T) {
	f := newMaintenanceFixture(model.OSOpen, model.AssetActive)
	stranger := uuid.New()
	assert.ErrorIs(t, f.change(model.OSInProgress, &stranger), ErrNotFound)
	assert.NoError(t, f.change(model.OSInProgress, f.order.ContractorID))
}

type portalFixture struct {
	client     ClientPortalService
	contractor ContractorPortalService
	tickets    *fakeTickets
	orders     *fakeOrders
	clientUser *model.ExternalUser
	techUser   *model.ExternalUser
	ownTicket  *model.Ticket
	foreign    *model.Ticket
}

func newPortalFixture() *portalFixture {
	company, other, contractor := uuid.New(), uuid.New(), uuid.New()
	clientUser := &model.ExternalUser{ID: uuid.New(), Name: "Cliente", Type: model.ExternalClient, CompanyID: &company, IsActive: true}
	techUser := &model.ExternalUser{ID: uuid.New(), Name: "Terceiro", Type: model.ExternalContractor, ContractorID: &contractor, IsActive: true}
	users := &fakeExternalUsers{users: map[uuid.UUID]*model.ExternalUser{clientUser.ID: clientUser, techUser.ID: techUser}}

	own := &model.Ticket{ID: uuid.New(), Number: "TK-000001", Status: model.TicketOpen, CompanyID: &company}
	foreign := &model.Ticket{ID: uuid.New(), Number: "TK-000002", Status: model.TicketOpen, CompanyID: &other}
	tickets := &fakeTickets{tickets: map[uuid.UUID]*model.Ticket{own.ID: own, foreign.ID: foreign}}
	tickets.comments = []model.TicketComment{
		{TicketID: own.ID, Body: "visível", Internal: false},
		{TicketID: own.ID, Body: "nota interna", Internal: true},
	}

	assigned := &model.MaintenanceOrder{ID: uuid.New(), Number: "OS-000001", Status: model.OSScheduled, ContractorID: &contractor}
	unassigned := &model.MaintenanceOrder{ID: uuid.New(), Number: "OS-000002", Status: model.OSScheduled}
	orders := &fakeOrders{orders: map[uuid.UUID]*model.MaintenanceOrder{assigned.ID: assigned, unassigned.ID: unassigned}}
	assets := &fakeAssets{assets: map[uuid.UUID]*model.Asset{}}

	return &portalFixture{
		client:     NewClientPortalService(users, tickets, assets, &fakeAudit{}, fakeTx{}, nil, zap.NewNop()),
		contractor: NewContractorPortalService(users, orders, assets, &fakeAudit{}, fakeTx{}, nil, zap.NewNop()),
		tickets:    tickets,
		orders:     orders,
		clientUser: clientUser,
		techUser:   techUser,
		ownTicket:  own,
		foreign:    foreign,
	}
}

func actorOf(u *model.ExternalUser) *Actor {
	return &Actor{ID: u.ID, Kind: u.Kind(), Name: u.Name}
}

func TestClientPortal_HidesInternalComments(t *testing.T) {
	f := newPortalFixture()
	ticket, err := f.client.GetTicket(context.Background(), actorOf(f.clientUser), f.ownTicket.ID.String())
	require.NoError(t, err)
	require.Len(t, ticket.Comments, 1)
	assert.Equal(t, "visível", ticket.Comments[0].Body)
}

func TestClientPortal_OtherCompanyTicketIsNotFound(t *testing.T) {
	f := newPortalFixture()
	ctx := context.Background()
	actor := actorOf(f.clientUser)

	_, err := f.client.GetTicket(ctx, actor, f.foreign.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.client.AddComment(ctx, actor, f.foreign.ID.String(), PortalCommentRequest{Body: "olá"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientPortal_CommentsArePublic(t *testing.T) {
	f := newPortalFixture()
	comment, err := f.client.AddComment(context.Background(), actorOf(f.clientUser), f.ownTicket.ID.String(), PortalCommentRequest{Body: "  ainda sem sinal "})
	require.NoError(t, err)
	assert.False(t, comment.Internal)
	assert.Equal(t, "ainda sem sinal", comment.Body)
	assert.Equal(t, model.KindClient, comment.AuthorKind)
}

func TestClientPortal_CreateTicketIsScopedToCompany(t *testing.T) {
	f := newPortalFixture()
	ticket, err := f.client.CreateTicket(context.Background(), actorOf(f.clientUser), PortalTicketRequest{Title: "Impressora parada"})
	require.NoError(t, err)
	assert.Equal(t, *f.clientUser.CompanyID, *ticket.CompanyID)
	assert.Equal(t, f.clientUser.ID, *ticket.OpenedByExternal)
	assert.Equal(t, model.PriorityMedium, ticket.Priority)

	_, err = f.client.CreateTicket(context.Background(), actorOf(f.clientUser), PortalTicketRequest{Title: "x", AssetID: ptrString(uuid.NewString())})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPortals_RejectWrongKind(t *testing.T) {
	f := newPortalFixture()
	_, _, err := f.client.ListTickets(context.Background(), actorOf(f.techUser), repository.TicketFilter{}, 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.contractor.ListOrders(context.Background(), actorOf(f.clientUser), "", 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPortals_DeactivatedUserIsUnauthorized(t *testing.T) {
	f := newPortalFixture()
	f.clientUser.IsActive = false
	_, err := f.client.GetTicket(context.Background(), actorOf(f.clientUser), f.ownTicket.ID.String())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestContractorPortal_OnlyAssignedOrders(t *testing.T) {
	f := newPortalFixture()
	ctx := context.Background()
	actor := actorOf(f.techUser)

	for id, order := range f.orders.orders {
		_, err := f.contractor.GetOrder(ctx, actor, id.String())
		if order.ContractorID == nil {
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = f.contractor.ChangeStatus(ctx, actor, id.String(), ContractorStatusRequest{Status: model.OSInProgress})
			assert.ErrorIs(t, err, ErrNotFound)
			continue
		}
		require.NoError(t, err)

		_, err = f.contractor.ChangeStatus(ctx, actor, id.String(), ContractorStatusRequest{Status: model.OSCancelled})
		assert.ErrorIs(t, err, ErrValidation)

		updated, err := f.contractor.ChangeStatus(ctx, actor, id.String(), ContractorStatusRequest{Status: model.OSInProgress})
		require.NoError(t, err)
		assert.Equal(t, model.OSInProgress, updated.Status)
	}
}

func ptrString(s string) *string { return &s }
