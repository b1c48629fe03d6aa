package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DTOs
type PurchaseItemRequest struct {
	SKUID     string          `json:"sku_id" binding:"required,uuid"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PurchaseOrderRequest struct {
	SupplierID string                `json:"supplier_id" binding:"required,uuid"`
	Note       string                `json:"note"`
	ExpectedAt *time.Time            `json:"expected_at"`
	Items      []PurchaseItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ReceiveItemRequest struct {
	ItemID   string `json:"item_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type ReceivePurchaseRequest struct {
	LocationID string               `json:"location_id" binding:"required,uuid"`
	Items      []ReceiveItemRequest `json:"items" binding:"required,min=1,dive"`
}

type PurchaseService interface {
	ListOrders(ctx context.Context, status, supplierID, search string, page, limit int) ([]model.PurchaseOrder, int64, error)
	GetOrder(ctx context.Context, id string) (*model.PurchaseOrder, error)
	CreateOrder(ctx context.Context, actor *Actor, req PurchaseOrderRequest) (*model.PurchaseOrder, error)
	UpdateOrder(ctx context.Context, actor *Actor, id string, req PurchaseOrderRequest) (*model.PurchaseOrder, error)
	DeleteOrder(ctx context.Context, actor *Actor, id string) error
	SendOrder(ctx context.Context, actor *Actor, id string) (*model.PurchaseOrder, error)
	CancelOrder(ctx context.Context, actor *Actor, id string) (*model.PurchaseOrder, error)
	ReceiveOrder(ctx context.Context, actor *Actor, id string, req ReceivePurchaseRequest) (*model.PurchaseOrder, error)
}

type purchaseService struct {
	purchaseRepo repository.PurchaseRepository
	supplierRepo repository.ReferenceRepository[model.Supplier]
	skuRepo      repository.SKURepository
	locationRepo repository.ReferenceRepository[model.Location]
	typeRepo     repository.ReferenceRepository[model.MovementType]
	stockRepo    repository.StockRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	ledger       *stockLedger
	notifier     Notifier
	log          *zap.Logger
	now          func() time.Time
}

func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	supplierRepo repository.ReferenceRepository[model.Supplier],
	skuRepo repository.SKURepository,
	locationRepo repository.ReferenceRepository[model.Location],
	typeRepo repository.ReferenceRepository[model.MovementType],
	stockRepo repository.StockRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		supplierRepo: supplierRepo,
		skuRepo:      skuRepo,
		locationRepo: locationRepo,
		typeRepo:     typeRepo,
		stockRepo:    stockRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		ledger:       &stockLedger{repo: stockRepo},
		notifier:     notifierOrNop(notifier),
		log:          log,
		now:          time.Now,
	}
}

func (s *purchaseService) ListOrders(ctx context.Context, status, supplierID, search string, page, limit int) ([]model.PurchaseOrder, int64, error) {
	page, limit = pageArgs(page, limit)
	supplier, err := parseOptionalID(&supplierID, "supplier")
	if err != nil {
		return nil, 0, err
	}
	orders, total, err := s.purchaseRepo.List(ctx, strings.ToUpper(status), supplier, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	return orders, total, nil
}

func (s *purchaseService) GetOrder(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	orderID, err := parseID(id, "purchase order")
	if err != nil {
		return nil, err
	}
	order, err := s.purchaseRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, "purchase order")
	}
	return order, nil
}

func (s *purchaseService) CreateOrder(ctx context.Context, actor *Actor, req PurchaseOrderRequest) (*model.PurchaseOrder, error) {
	supplierID, items, total, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	order := &model.PurchaseOrder{
		SupplierID: supplierID,
		Status:     model.PurchaseDraft,
		Items:      items,
		Total:      total,
		Note:       req.Note,
		ExpectedAt: req.ExpectedAt,
	}
	if actor != nil {
		id := actor.ID
		order.CreatedBy = &id
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.purchaseRepo.NextNumber(txCtx, repository.DatePrefix("PC", s.now()))
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}
		order.Number = number

		if err := s.purchaseRepo.Create(txCtx, order); err != nil {
			return writeError(err, "create", "purchase order")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "purchase_order", order.ID.String(), order.Number,
			map[string]interface{}{"supplier_id": supplierID, "items": len(items), "total": total})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, order.ID.String())
}

func (s *purchaseService) UpdateOrder(ctx context.Context, actor *Actor, id string, req PurchaseOrderRequest) (*model.PurchaseOrder, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.PurchaseDraft {
		return nil, fmt.Errorf("%w: only DRAFT orders can be edited (order is %s)", ErrInvalidTransition, order.Status)
	}

	supplierID, items, total, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	order.SupplierID = supplierID
	order.Supplier = nil
	order.Total = total
	order.Note = req.Note
	order.ExpectedAt = req.ExpectedAt

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.purchaseRepo.FindByIDForUpdate(txCtx, order.ID)
		if err != nil {
			return lookupError(err, "purchase order")
		}
		if locked.Status != model.PurchaseDraft {
			return fmt.Errorf("%w: only DRAFT orders can be edited (order is %s)", ErrInvalidTransition, locked.Status)
		}
		if err := s.purchaseRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update purchase order: %w", err)
		}
		if err := s.purchaseRepo.ReplaceItems(txCtx, order.ID, items); err != nil {
			return fmt.Errorf("failed to replace purchase order items: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "purchase_order", order.ID.String(), order.Number,
			map[string]interface{}{"supplier_id": supplierID, "items": len(items), "total": total})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *purchaseService) DeleteOrder(ctx context.Context, actor *Actor, id string) error {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != model.PurchaseDraft {
		return fmt.Errorf("%w: only DRAFT orders can be deleted (order is %s)", ErrInvalidTransition, order.Status)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.purchaseRepo.Delete(txCtx, order.ID); err != nil {
			return fmt.Errorf("failed to delete purchase order: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionDelete, "purchase_order", order.ID.String(), order.Number, nil)
	})
}

func (s *purchaseService) SendOrder(ctx context.Context, actor *Actor, id string) (*model.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, model.PurchaseSent, model.PurchaseDraft)
}

func (s *purchaseService) CancelOrder(ctx context.Context, actor *Actor, id string) (*model.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, model.PurchaseCancelled, model.PurchaseDraft, model.PurchaseSent)
}

func (s *purchaseService) transition(ctx context.Context, actor *Actor, id, to string, from ...string) (*model.PurchaseOrder, error) {
	orderID, err := parseID(id, "purchase order")
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.purchaseRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return lookupError(err, "purchase order")
		}
		allowed := false
		for _, f := range from {
			if order.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return transitionError("purchase order", order.Status, to)
		}
		if err := s.purchaseRepo.UpdateStatus(txCtx, orderID, to); err != nil {
			return fmt.Errorf("failed to update purchase order status: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionStatus, "purchase_order", order.ID.String(), order.Number,
			map[string]string{"from": order.Status, "to": to})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

// ReceiveOrder books delivered quantities. Each received line becomes an approved
// "Entrada por Compra" movement and the balances move immediately.
func (s *purchaseService) ReceiveOrder(ctx context.Context, actor *Actor, id string, req ReceivePurchaseRequest) (*model.PurchaseOrder, error) {
	orderID, err := parseID(id, "purchase order")
	if err != nil {
		return nil, err
	}
	locationID, err := parseID(req.LocationID, "location")
	if err != nil {
		return nil, err
	}
	loc, err := s.locationRepo.FindByID(ctx, locationID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("location does not exist")
		}
		return nil, fmt.Errorf("failed to fetch location: %w", err)
	}
	if !loc.IsActive {
		return nil, validationf("location '%s' is inactive", loc.Name)
	}
	mt, err := s.typeRepo.FindByName(ctx, model.MovementTypePurchase)
	if err != nil {
		return nil, lookupError(err, "movement type '"+model.MovementTypePurchase+"'")
	}

	receipts := make(map[uuid.UUID]int, len(req.Items))
	for _, it := range req.Items {
		itemID, err := parseID(it.ItemID, "purchase order item")
		if err != nil {
			return nil, err
		}
		receipts[itemID] += it.Quantity
	}

	var number string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.purchaseRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return lookupError(err, "purchase order")
		}
		number = order.Number
		if order.Status != model.PurchaseSent && order.Status != model.PurchasePartiallyReceived {
			return fmt.Errorf("%w: purchase order in %s cannot be received", ErrInvalidTransition, order.Status)
		}

		byID := make(map[uuid.UUID]*model.PurchaseOrderItem, len(order.Items))
		for i := range order.Items {
			byID[order.Items[i].ID] = &order.Items[i]
		}

		now := s.now()
		var reviewer *uuid.UUID
		if actor != nil {
			id := actor.ID
			reviewer = &id
		}

		for itemID, qty := range receipts {
			item, ok := byID[itemID]
			if !ok {
				return validationf("item %s does not belong to order %s", itemID, order.Number)
			}
			if qty > item.Pending() {
				return validationf("cannot receive %d of item %s: only %d pending", qty, itemID, item.Pending())
			}

			poID := order.ID
			mv := &model.StockMovement{
				SKUID:           item.SKUID,
				MovementTypeID:  mt.ID,
				LocationID:      locationID,
				Quantity:        qty,
				Status:          model.MovementApproved,
				Reference:       order.Number,
				PurchaseOrderID: &poID,
				CreatedBy:       reviewer,
				ReviewedBy:      reviewer,
				ReviewedAt:      &now,
			}
			if err := s.stockRepo.CreateMovement(txCtx, mv); err != nil {
				return fmt.Errorf("failed to create receipt movement: %w", err)
			}
			if err := s.ledger.apply(txCtx, mv, model.DirectionIn); err != nil {
				return err
			}

			item.ReceivedQuantity += qty
			if err := s.purchaseRepo.UpdateItemReceived(txCtx, item.ID, item.ReceivedQuantity); err != nil {
				return fmt.Errorf("failed to update received quantity: %w", err)
			}
		}

		status := model.PurchaseReceived
		for _, item := range order.Items {
			if item.Pending() > 0 {
				status = model.PurchasePartiallyReceived
				break
			}
		}
		if err := s.purchaseRepo.UpdateStatus(txCtx, order.ID, status); err != nil {
			return fmt.Errorf("failed to update purchase order status: %w", err)
		}

		return audit(txCtx, s.auditRepo, actor, model.ActionReceive, "purchase_order", order.ID.String(), order.Number,
			map[string]interface{}{"location_id": locationID, "lines": len(receipts), "status": status})
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(EventPurchaseReceived, map[string]interface{}{"id": order.ID, "number": number, "status": order.Status})
	return order, nil
}

// prepare validates the supplier and items and computes the order total
func (s *purchaseService) prepare(ctx context.Context, req PurchaseOrderRequest) (uuid.UUID, []model.PurchaseOrderItem, decimal.Decimal, error) {
	supplierID, err := parseID(req.SupplierID, "supplier")
	if err != nil {
		return uuid.Nil, nil, decimal.Zero, err
	}
	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		if repository.IsNotFound(err) {
			return uuid.Nil, nil, decimal.Zero, validationf("supplier does not exist")
		}
		return uuid.Nil, nil, decimal.Zero, fmt.Errorf("failed to fetch supplier: %w", err)
	}
	if !supplier.IsActive {
		return uuid.Nil, nil, decimal.Zero, validationf("supplier '%s' is inactive", supplier.Name)
	}
	if len(req.Items) == 0 {
		return uuid.Nil, nil, decimal.Zero, validationf("at least one item is required")
	}

	total := decimal.Zero
	items := make([]model.PurchaseOrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		skuID, err := parseID(it.SKUID, "sku")
		if err != nil {
			return uuid.Nil, nil, decimal.Zero, err
		}
		if it.Quantity <= 0 {
			return uuid.Nil, nil, decimal.Zero, validationf("item %d: quantity must be greater than zero", i+1)
		}
		if it.UnitPrice.IsNegative() {
			return uuid.Nil, nil, decimal.Zero, validationf("item %d: unit price cannot be negative", i+1)
		}
		if _, err := s.skuRepo.FindByID(ctx, skuID); err != nil {
			if repository.IsNotFound(err) {
				return uuid.Nil, nil, decimal.Zero, validationf("item %d: sku does not exist", i+1)
			}
			return uuid.Nil, nil, decimal.Zero, fmt.Errorf("failed to fetch sku: %w", err)
		}
		items = append(items, model.PurchaseOrderItem{
			SKUID:     skuID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return supplierID, items, total, nil
}
