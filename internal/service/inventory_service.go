package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DTOs

// ScanRequest is what a barcode terminal sends for bipar entrada / bipar saída
type ScanRequest struct {
	Code           string  `json:"code" binding:"required"`
	Quantity       int     `json:"quantity" binding:"required,gt=0"`
	LocationID     string  `json:"location_id" binding:"required,uuid"`
	MovementTypeID *string `json:"movement_type_id"`
	Reference      string  `json:"reference" binding:"max=100"`
	Note           string  `json:"note"`
}

type MovementRequest struct {
	SKUID          string  `json:"sku_id" binding:"required,uuid"`
	MovementTypeID string  `json:"movement_type_id" binding:"required,uuid"`
	LocationID     string  `json:"location_id" binding:"required,uuid"`
	ToLocationID   *string `json:"to_location_id"`
	// Signed for ADJUST movements, positive otherwise
	Quantity  int    `json:"quantity" binding:"required"`
	Reference string `json:"reference" binding:"max=100"`
	Note      string `json:"note"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type InventoryService interface {
	RegisterEntry(ctx context.Context, actor *Actor, req ScanRequest) (*model.StockMovement, error)
	RegisterExit(ctx context.Context, actor *Actor, req ScanRequest) (*model.StockMovement, error)
	CreateMovement(ctx context.Context, actor *Actor, req MovementRequest) (*model.StockMovement, error)
	ApproveMovement(ctx context.Context, actor *Actor, id string) (*model.StockMovement, error)
	RejectMovement(ctx context.Context, actor *Actor, id string, req RejectRequest) (*model.StockMovement, error)
	GetMovement(ctx context.Context, id string) (*model.StockMovement, error)
	ListMovements(ctx context.Context, filter repository.MovementFilter, page, limit int) ([]model.StockMovement, int64, error)
	ListBalances(ctx context.Context, filter repository.BalanceFilter, page, limit int) ([]model.StockBalance, int64, error)
}

type inventoryService struct {
	stockRepo    repository.StockRepository
	skuRepo      repository.SKURepository
	typeRepo     repository.ReferenceRepository[model.MovementType]
	locationRepo repository.ReferenceRepository[model.Location]
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	ledger       *stockLedger
	notifier     Notifier
	log          *zap.Logger
	now          func() time.Time
}

func NewInventoryService(
	stockRepo repository.StockRepository,
	skuRepo repository.SKURepository,
	typeRepo repository.ReferenceRepository[model.MovementType],
	locationRepo repository.ReferenceRepository[model.Location],
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) InventoryService {
	return &inventoryService{
		stockRepo:    stockRepo,
		skuRepo:      skuRepo,
		typeRepo:     typeRepo,
		locationRepo: locationRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		ledger:       &stockLedger{repo: stockRepo},
		notifier:     notifierOrNop(notifier),
		log:          log,
		now:          time.Now,
	}
}

func (s *inventoryService) RegisterEntry(ctx context.Context, actor *Actor, req ScanRequest) (*model.StockMovement, error) {
	return s.registerScan(ctx, actor, req, model.MovementTypeEntry, model.DirectionIn)
}

func (s *inventoryService) RegisterExit(ctx context.Context, actor *Actor, req ScanRequest) (*model.StockMovement, error) {
	return s.registerScan(ctx, actor, req, model.MovementTypeExit, model.DirectionOut)
}

func (s *inventoryService) registerScan(ctx context.Context, actor *Actor, req ScanRequest, defaultType, direction string) (*model.StockMovement, error) {
	sku, err := s.skuRepo.FindByCode(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("no sku matches code '%s'", req.Code)
		}
		return nil, fmt.Errorf("failed to fetch sku: %w", err)
	}
	if !sku.IsActive {
		return nil, validationf("sku '%s' is inactive", sku.Code)
	}

	var mt *model.MovementType
	if req.MovementTypeID != nil && *req.MovementTypeID != "" {
		mt, err = s.movementType(ctx, *req.MovementTypeID)
	} else {
		mt, err = s.typeRepo.FindByName(ctx, defaultType)
		if err != nil {
			err = lookupError(err, "movement type '"+defaultType+"'")
		}
	}
	if err != nil {
		return nil, err
	}
	if mt.Direction != direction {
		return nil, validationf("movement type '%s' is not an %s type", mt.Name, direction)
	}

	locationID, err := s.location(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	mv := &model.StockMovement{
		SKUID:          sku.ID,
		MovementTypeID: mt.ID,
		LocationID:     locationID,
		Quantity:       req.Quantity,
		Reference:      req.Reference,
		Note:           req.Note,
	}
	return s.create(ctx, actor, mv)
}

func (s *inventoryService) CreateMovement(ctx context.Context, actor *Actor, req MovementRequest) (*model.StockMovement, error) {
	skuID, err := parseID(req.SKUID, "sku")
	if err != nil {
		return nil, err
	}
	if _, err := s.skuRepo.FindByID(ctx, skuID); err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("sku does not exist")
		}
		return nil, fmt.Errorf("failed to fetch sku: %w", err)
	}

	mt, err := s.movementType(ctx, req.MovementTypeID)
	if err != nil {
		return nil, err
	}

	locationID, err := s.location(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	mv := &model.StockMovement{
		SKUID:          skuID,
		MovementTypeID: mt.ID,
		LocationID:     locationID,
		Quantity:       req.Quantity,
		Reference:      req.Reference,
		Note:           req.Note,
	}

	switch mt.Direction {
	case model.DirectionAdjust:
		if req.Quantity == 0 {
			return nil, validationf("adjustment quantity cannot be zero")
		}
	default:
		if req.Quantity <= 0 {
			return nil, validationf("quantity must be greater than zero")
		}
	}

	if mt.Direction == model.DirectionTransfer {
		if req.ToLocationID == nil || *req.ToLocationID == "" {
			return nil, validationf("transfer requires a destination location")
		}
		toID, err := s.location(ctx, *req.ToLocationID)
		if err != nil {
			return nil, err
		}
		if toID == locationID {
			return nil, validationf("transfer destination must differ from origin")
		}
		mv.ToLocationID = &toID
	}

	return s.create(ctx, actor, mv)
}

func (s *inventoryService) create(ctx context.Context, actor *Actor, mv *model.StockMovement) (*model.StockMovement, error) {
	mv.Status = model.MovementPending
	if actor != nil {
		id := actor.ID
		mv.CreatedBy = &id
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.stockRepo.CreateMovement(txCtx, mv); err != nil {
			return fmt.Errorf("failed to create movement: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "stock_movement", mv.ID.String(), "", map[string]interface{}{
			"sku_id":           mv.SKUID,
			"movement_type_id": mv.MovementTypeID,
			"location_id":      mv.LocationID,
			"to_location_id":   mv.ToLocationID,
			"quantity":         mv.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}

	created, err := s.stockRepo.FindMovement(ctx, mv.ID)
	if err != nil {
		return nil, lookupError(err, "movement")
	}
	s.notifier.Publish(EventMovementCreated, created)
	return created, nil
}

// ApproveMovement applies a pending movement to the balances. It runs under a row lock on the
// movement so concurrent approvals apply it at most once.
func (s *inventoryService) ApproveMovement(ctx context.Context, actor *Actor, id string) (*model.StockMovement, error) {
	movementID, err := parseID(id, "movement")
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		mv, err := s.stockRepo.FindMovementForUpdate(txCtx, movementID)
		if err != nil {
			return lookupError(err, "movement")
		}
		if mv.Status != model.MovementPending {
			return transitionError("movement", mv.Status, model.MovementApproved)
		}

		mt, err := s.typeRepo.FindByID(txCtx, mv.MovementTypeID)
		if err != nil {
			return lookupError(err, "movement type")
		}
		if err := s.ledger.apply(txCtx, mv, mt.Direction); err != nil {
			return err
		}

		now := s.now()
		mv.Status = model.MovementApproved
		mv.ReviewedAt = &now
		if actor != nil {
			reviewer := actor.ID
			mv.ReviewedBy = &reviewer
		}
		if err := s.stockRepo.UpdateMovement(txCtx, mv); err != nil {
			return fmt.Errorf("failed to update movement: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionApprove, "stock_movement", mv.ID.String(), mt.Name,
			map[string]interface{}{"direction": mt.Direction, "quantity": mv.Quantity})
	})
	if err != nil {
		return nil, err
	}

	mv, err := s.stockRepo.FindMovement(ctx, movementID)
	if err != nil {
		return nil, lookupError(err, "movement")
	}
	s.notifier.Publish(EventMovementApproved, mv)
	return mv, nil
}

func (s *inventoryService) RejectMovement(ctx context.Context, actor *Actor, id string, req RejectRequest) (*model.StockMovement, error) {
	movementID, err := parseID(id, "movement")
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, validationf("rejection reason is required")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		mv, err := s.stockRepo.FindMovementForUpdate(txCtx, movementID)
		if err != nil {
			return lookupError(err, "movement")
		}
		if mv.Status != model.MovementPending {
			return transitionError("movement", mv.Status, model.MovementRejected)
		}

		now := s.now()
		mv.Status = model.MovementRejected
		mv.RejectionReason = reason
		mv.ReviewedAt = &now
		if actor != nil {
			reviewer := actor.ID
			mv.ReviewedBy = &reviewer
		}
		if err := s.stockRepo.UpdateMovement(txCtx, mv); err != nil {
			return fmt.Errorf("failed to update movement: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionReject, "stock_movement", mv.ID.String(), "",
			map[string]string{"reason": reason})
	})
	if err != nil {
		return nil, err
	}

	mv, err := s.stockRepo.FindMovement(ctx, movementID)
	if err != nil {
		return nil, lookupError(err, "movement")
	}
	s.notifier.Publish(EventMovementRejected, mv)
	return mv, nil
}

func (s *inventoryService) GetMovement(ctx context.Context, id string) (*model.StockMovement, error) {
	movementID, err := parseID(id, "movement")
	if err != nil {
		return nil, err
	}
	mv, err := s.stockRepo.FindMovement(ctx, movementID)
	if err != nil {
		return nil, lookupError(err, "movement")
	}
	return mv, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter repository.MovementFilter, page, limit int) ([]model.StockMovement, int64, error) {
	if filter.Status != "" {
		filter.Status = strings.ToUpper(filter.Status)
	}
	page, limit = pageArgs(page, limit)
	movements, total, err := s.stockRepo.ListMovements(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, total, nil
}

func (s *inventoryService) ListBalances(ctx context.Context, filter repository.BalanceFilter, page, limit int) ([]model.StockBalance, int64, error) {
	page, limit = pageArgs(page, limit)
	balances, total, err := s.stockRepo.ListBalances(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list balances: %w", err)
	}
	return balances, total, nil
}

func (s *inventoryService) movementType(ctx context.Context, raw string) (*model.MovementType, error) {
	id, err := parseID(raw, "movement type")
	if err != nil {
		return nil, err
	}
	mt, err := s.typeRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("movement type does not exist")
		}
		return nil, fmt.Errorf("failed to fetch movement type: %w", err)
	}
	return mt, nil
}

func (s *inventoryService) location(ctx context.Context, raw string) (uuid.UUID, error) {
	id, err := parseID(raw, "location")
	if err != nil {
		return uuid.Nil, err
	}
	loc, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return uuid.Nil, validationf("location does not exist")
		}
		return uuid.Nil, fmt.Errorf("failed to fetch location: %w", err)
	}
	if !loc.IsActive {
		return uuid.Nil, validationf("location '%s' is inactive", loc.Name)
	}
	return id, nil
}

// stockLedger turns approved movements into balance changes. Callers must hold a transaction.
type stockLedger struct {
	repo repository.StockRepository
}

func (l *stockLedger) apply(ctx context.Context, mv *model.StockMovement, direction string) error {
	switch direction {
	case model.DirectionIn:
		return l.add(ctx, mv.SKUID, mv.LocationID, mv.Quantity)
	case model.DirectionOut:
		return l.add(ctx, mv.SKUID, mv.LocationID, -mv.Quantity)
	case model.DirectionAdjust:
		return l.add(ctx, mv.SKUID, mv.LocationID, mv.Quantity)
	case model.DirectionTransfer:
		if mv.ToLocationID == nil {
			return validationf("transfer has no destination location")
		}
		// lock both rows in a stable order so opposite transfers cannot deadlock
		first, second := mv.LocationID, *mv.ToLocationID
		if strings.Compare(first.String(), second.String()) > 0 {
			first, second = second, first
		}
		if _, err := l.repo.LockBalance(ctx, mv.SKUID, first); err != nil {
			return fmt.Errorf("failed to lock balance: %w", err)
		}
		if _, err := l.repo.LockBalance(ctx, mv.SKUID, second); err != nil {
			return fmt.Errorf("failed to lock balance: %w", err)
		}
		if err := l.add(ctx, mv.SKUID, mv.LocationID, -mv.Quantity); err != nil {
			return err
		}
		return l.add(ctx, mv.SKUID, *mv.ToLocationID, mv.Quantity)
	default:
		return validationf("unknown movement direction '%s'", direction)
	}
}

// add changes one balance by delta, refusing to go below zero
func (l *stockLedger) add(ctx context.Context, skuID, locationID uuid.UUID, delta int) error {
	balance, err := l.repo.LockBalance(ctx, skuID, locationID)
	if err != nil {
		return fmt.Errorf("failed to lock balance: %w", err)
	}
	next := balance.Quantity + delta
	if next < 0 {
		return validationf("insufficient stock: %d available, %d requested", balance.Quantity, -delta)
	}
	balance.Quantity = next
	if err := l.repo.SaveBalance(ctx, balance); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}
