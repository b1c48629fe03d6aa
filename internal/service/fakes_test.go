package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fakes embed the repository interface so tests only implement what they exercise;
// an unexpected call panics on the nil embedded value.

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeAudit struct {
	repository.AuditRepository
	entries []model.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) actions() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(event string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

// --- reference data ---

type fakeRefs[T repository.Reference] struct {
	repository.ReferenceRepository[T]
	items  map[uuid.UUID]*T
	idOf   func(*T) uuid.UUID
	nameOf func(*T) string
}

func newFakeRefs[T repository.Reference](idOf func(*T) uuid.UUID, nameOf func(*T) string, items ...*T) *fakeRefs[T] {
	f := &fakeRefs[T]{items: map[uuid.UUID]*T{}, idOf: idOf, nameOf: nameOf}
	for _, it := range items {
		f.items[idOf(it)] = it
	}
	return f
}

func (f *fakeRefs[T]) FindByID(_ context.Context, id uuid.UUID) (*T, error) {
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRefs[T]) FindByName(_ context.Context, name string) (*T, error) {
	for _, it := range f.items {
		if f.nameOf(it) == name {
			return it, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func newLocations(locs ...*model.Location) *fakeRefs[model.Location] {
	return newFakeRefs(func(l *model.Location) uuid.UUID { return l.ID }, func(l *model.Location) string { return l.Name }, locs...)
}

func newMovementTypes(types ...*model.MovementType) *fakeRefs[model.MovementType] {
	return newFakeRefs(func(t *model.MovementType) uuid.UUID { return t.ID }, func(t *model.MovementType) string { return t.Name }, types...)
}

// --- catalog and stock ---

type fakeSKUs struct {
	repository.SKURepository
	items map[uuid.UUID]*model.SKU
}

func (f *fakeSKUs) FindByID(_ context.Context, id uuid.UUID) (*model.SKU, error) {
	if s, ok := f.items[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSKUs) FindByCode(_ context.Context, code string) (*model.SKU, error) {
	for _, s := range f.items {
		if s.Code == code || (s.Barcode != nil && *s.Barcode == code) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type balanceKey struct{ sku, location uuid.UUID }

type fakeStock struct {
	repository.StockRepository
	movements map[uuid.UUID]*model.StockMovement
	balances  map[balanceKey]int
	locked    []uuid.UUID
}

func newFakeStock() *fakeStock {
	return &fakeStock{movements: map[uuid.UUID]*model.StockMovement{}, balances: map[balanceKey]int{}}
}

func (f *fakeStock) CreateMovement(_ context.Context, mv *model.StockMovement) error {
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	cp := *mv
	f.movements[mv.ID] = &cp
	return nil
}

func (f *fakeStock) UpdateMovement(_ context.Context, mv *model.StockMovement) error {
	cp := *mv
	f.movements[mv.ID] = &cp
	return nil
}

func (f *fakeStock) FindMovement(_ context.Context, id uuid.UUID) (*model.StockMovement, error) {
	if mv, ok := f.movements[id]; ok {
		cp := *mv
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStock) FindMovementForUpdate(ctx context.Context, id uuid.UUID) (*model.StockMovement, error) {
	return f.FindMovement(ctx, id)
}

func (f *fakeStock) LockBalance(_ context.Context, skuID, locationID uuid.UUID) (*model.StockBalance, error) {
	f.locked = append(f.locked, locationID)
	return &model.StockBalance{SKUID: skuID, LocationID: locationID, Quantity: f.balances[balanceKey{skuID, locationID}]}, nil
}

func (f *fakeStock) SaveBalance(_ context.Context, b *model.StockBalance) error {
	f.balances[balanceKey{b.SKUID, b.LocationID}] = b.Quantity
	return nil
}

func (f *fakeStock) AllBalances(_ context.Context, _ repository.BalanceFilter) ([]model.StockBalance, error) {
	out := make([]model.StockBalance, 0, len(f.balances))
	for k, q := range f.balances {
		out = append(out, model.StockBalance{SKUID: k.sku, LocationID: k.location, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID.String() < out[j].LocationID.String() })
	return out, nil
}

// --- access ---

type fakeRoles struct {
	repository.RoleRepository
	roles       map[uuid.UUID]*model.Role
	permissions map[uuid.UUID]model.ScreenPermission
	grants      map[uuid.UUID]map[uuid.UUID]bool
	// runs once after PermissionCodes has read the grants
	afterLoad func()
}

func (f *fakeRoles) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoles) FindPermissionsByIDs(_ context.Context, ids []uuid.UUID) ([]model.ScreenPermission, error) {
	var out []model.ScreenPermission
	for _, id := range ids {
		if p, ok := f.permissions[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRoles) PermissionCodes(_ context.Context, roleID uuid.UUID) ([]string, error) {
	var out []string
	for id := range f.grants[roleID] {
		out = append(out, f.permissions[id].Code())
	}
	sort.Strings(out)
	if hook := f.afterLoad; hook != nil {
		f.afterLoad = nil
		hook()
	}
	return out, nil
}

func (f *fakeRoles) ReplacePermissions(_ context.Context, roleID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	current := f.grants[roleID]
	next := map[uuid.UUID]bool{}
	var added, removed []uuid.UUID
	for _, id := range ids {
		next[id] = true
		if !current[id] {
			added = append(added, id)
		}
	}
	for id := range current {
		if !next[id] {
			removed = append(removed, id)
		}
	}
	f.grants[roleID] = next
	return added, removed, nil
}

type fakeCache struct {
	codes       map[string][]string
	invalidated []string
}

func (c *fakeCache) Get(_ context.Context, roleID string) ([]string, bool, error) {
	codes, ok := c.codes[roleID]
	return codes, ok, nil
}

func (c *fakeCache) Set(_ context.Context, roleID string, codes []string) error {
	c.codes[roleID] = codes
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, roleID string) error {
	delete(c.codes, roleID)
	c.invalidated = append(c.invalidated, roleID)
	return nil
}

// --- purchases ---

type fakePurchases struct {
	repository.PurchaseRepository
	orders map[uuid.UUID]*model.PurchaseOrder
}

func (f *fakePurchases) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	cp.Items = append([]model.PurchaseOrderItem(nil), o.Items...)
	return &cp, nil
}

func (f *fakePurchases) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return f.FindByIDWithItems(ctx, id)
}

func (f *fakePurchases) UpdateItemReceived(_ context.Context, itemID uuid.UUID, received int) error {
	for _, o := range f.orders {
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				o.Items[i].ReceivedQuantity = received
			}
		}
	}
	return nil
}

func (f *fakePurchases) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.orders[id].Status = status
	return nil
}

// --- tickets, assets, maintenance ---

type fakeTickets struct {
	repository.TicketRepository
	tickets  map[uuid.UUID]*model.Ticket
	comments []model.TicketComment
	seq      int
}

func (f *fakeTickets) NextNumber(context.Context) (string, error) {
	f.seq++
	return "TK-" + string(rune('0'+f.seq)), nil
}

func (f *fakeTickets) Create(_ context.Context, t *model.Ticket) error {
	t.ID = uuid.New()
	cp := *t
	f.tickets[t.ID] = &cp
	return nil
}

func (f *fakeTickets) Update(_ context.Context, t *model.Ticket) error {
	cp := *t
	f.tickets[t.ID] = &cp
	return nil
}

func (f *fakeTickets) FindByID(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	if t, ok := f.tickets[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTickets) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeTickets) AddComment(_ context.Context, c *model.TicketComment) error {
	c.ID = uuid.New()
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeTickets) ListComments(_ context.Context, ticketID uuid.UUID, includeInternal bool) ([]model.TicketComment, error) {
	var out []model.TicketComment
	for _, c := range f.comments {
		if c.TicketID == ticketID && (includeInternal || !c.Internal) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAssets struct {
	repository.AssetRepository
	assets map[uuid.UUID]*model.Asset
	tags   int
}

func (f *fakeAssets) Create(_ context.Context, a *model.Asset) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	f.assets[a.ID] = &cp
	return nil
}

func (f *fakeAssets) Update(_ context.Context, a *model.Asset) error {
	cp := *a
	f.assets[a.ID] = &cp
	return nil
}

func (f *fakeAssets) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.assets, id)
	return nil
}

func (f *fakeAssets) NextTag(context.Context) (string, error) {
	f.tags++
	return fmt.Sprintf("PAT-%06d", f.tags), nil
}

func (f *fakeAssets) FindByID(_ context.Context, id uuid.UUID) (*model.Asset, error) {
	if a, ok := f.assets[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssets) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeAssets) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.assets[id].Status = status
	return nil
}

func (f *fakeAssets) All(_ context.Context, _ repository.AssetFilter) ([]model.Asset, error) {
	out := make([]model.Asset, 0, len(f.assets))
	for _, a := range f.assets {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out, nil
}

type fakeOrders struct {
	repository.MaintenanceRepository
	orders map[uuid.UUID]*model.MaintenanceOrder
}

func (f *fakeOrders) FindByID(_ context.Context, id uuid.UUID) (*model.MaintenanceOrder, error) {
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrders) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MaintenanceOrder, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeOrders) Update(_ context.Context, o *model.MaintenanceOrder) error {
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) InProgressForAsset(_ context.Context, assetID, excludeID uuid.UUID) ([]model.MaintenanceOrder, error) {
	var out []model.MaintenanceOrder
	for _, o := range f.orders {
		if o.ID != excludeID && o.Status == model.OSInProgress && o.AssetID != nil && *o.AssetID == assetID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

type fakeExternalUsers struct {
	repository.ExternalUserRepository
	users map[uuid.UUID]*model.ExternalUser
}

func (f *fakeExternalUsers) FindByID(_ context.Context, id uuid.UUID) (*model.ExternalUser, error) {
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeExternalUsers) Create(_ context.Context, u *model.ExternalUser) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeExternalUsers) Update(_ context.Context, u *model.ExternalUser) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

type fakeTokens struct {
	repository.TokenRepository
	revoked []uuid.UUID
}

func (f *fakeTokens) RevokeBySubject(_ context.Context, subjectID uuid.UUID, _ time.Time) error {
	f.revoked = append(f.revoked, subjectID)
	return nil
}

type fakeUsers struct {
	repository.UserRepository
	users map[uuid.UUID]*model.InternalUser
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.InternalUser, error) {
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *model.InternalUser) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}
