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
type MaintenanceRequest struct {
	Title        string           `json:"title" binding:"required,max=255"`
	Description  string           `json:"description"`
	AssetID      *string          `json:"asset_id"`
	TicketID     *string          `json:"ticket_id"`
	ContractorID *string          `json:"contractor_id"`
	ScheduledFor *time.Time       `json:"scheduled_for"`
	Cost         *decimal.Decimal `json:"cost"`
}

type MaintenanceStatusRequest struct {
	Status       string           `json:"status" binding:"required,oneof=OPEN SCHEDULED IN_PROGRESS COMPLETED CANCELLED"`
	ScheduledFor *time.Time       `json:"scheduled_for"`
	Resolution   string           `json:"resolution"`
	Cost         *decimal.Decimal `json:"cost"`
}

type AssignContractorRequest struct {
	// nil unassigns
	ContractorID *string `json:"contractor_id"`
}

type MaintenanceService interface {
	ListOrders(ctx context.Context, filter repository.MaintenanceFilter, page, limit int) ([]model.MaintenanceOrder, int64, error)
	GetOrder(ctx context.Context, id string) (*model.MaintenanceOrder, error)
	CreateOrder(ctx context.Context, actor *Actor, req MaintenanceRequest) (*model.MaintenanceOrder, error)
	UpdateOrder(ctx context.Context, actor *Actor, id string, req MaintenanceRequest) (*model.MaintenanceOrder, error)
	ChangeStatus(ctx context.Context, actor *Actor, id string, req MaintenanceStatusRequest) (*model.MaintenanceOrder, error)
	AssignContractor(ctx context.Context, actor *Actor, id string, req AssignContractorRequest) (*model.MaintenanceOrder, error)
}

type maintenanceService struct {
	orderRepo      repository.MaintenanceRepository
	assetRepo      repository.AssetRepository
	ticketRepo     repository.TicketRepository
	contractorRepo repository.ReferenceRepository[model.Contractor]
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	notifier       Notifier
	log            *zap.Logger
	now            func() time.Time
}

func NewMaintenanceService(
	orderRepo repository.MaintenanceRepository,
	assetRepo repository.AssetRepository,
	ticketRepo repository.TicketRepository,
	contractorRepo repository.ReferenceRepository[model.Contractor],
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) MaintenanceService {
	return &maintenanceService{
		orderRepo:      orderRepo,
		assetRepo:      assetRepo,
		ticketRepo:     ticketRepo,
		contractorRepo: contractorRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		notifier:       notifierOrNop(notifier),
		log:            log,
		now:            time.Now,
	}
}

func (s *maintenanceService) ListOrders(ctx context.Context, filter repository.MaintenanceFilter, page, limit int) ([]model.MaintenanceOrder, int64, error) {
	filter.Status = strings.ToUpper(filter.Status)
	page, limit = pageArgs(page, limit)
	orders, total, err := s.orderRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list maintenance orders: %w", err)
	}
	return orders, total, nil
}

func (s *maintenanceService) GetOrder(ctx context.Context, id string) (*model.MaintenanceOrder, error) {
	orderID, err := parseID(id, "maintenance order")
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, "maintenance order")
	}
	return order, nil
}

func (s *maintenanceService) CreateOrder(ctx context.Context, actor *Actor, req MaintenanceRequest) (*model.MaintenanceOrder, error) {
	order := &model.MaintenanceOrder{Status: model.OSOpen}
	if err := s.apply(ctx, order, req); err != nil {
		return nil, err
	}
	if actor != nil {
		id := actor.ID
		order.CreatedBy = &id
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.orderRepo.NextNumber(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate OS number: %w", err)
		}
		order.Number = number
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return writeError(err, "create", "maintenance order")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "maintenance_order", order.ID.String(), order.Number, req)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventMaintenanceUpdated, map[string]interface{}{"id": order.ID, "number": order.Number, "status": order.Status})
	return s.GetOrder(ctx, order.ID.String())
}

func (s *maintenanceService) UpdateOrder(ctx context.Context, actor *Actor, id string, req MaintenanceRequest) (*model.MaintenanceOrder, error) {
	orderID, err := parseID(id, "maintenance order")
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return lookupError(err, "maintenance order")
		}
		if maintenanceTerminal(order.Status) {
			return fmt.Errorf("%w: maintenance order %s is %s", ErrInvalidTransition, order.Number, order.Status)
		}
		if order.Status == model.OSInProgress && !sameID(order.AssetID, req.AssetID) {
			return validationf("asset cannot change while the order is in progress")
		}
		if err := s.apply(txCtx, order, req); err != nil {
			return err
		}
		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update maintenance order: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "maintenance_order", order.ID.String(), order.Number, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *maintenanceService) ChangeStatus(ctx context.Context, actor *Actor, id string, req MaintenanceStatusRequest) (*model.MaintenanceOrder, error) {
	orderID, err := parseID(id, "maintenance order")
	if err != nil {
		return nil, err
	}
	if err := changeMaintenanceStatus(ctx, s.orderRepo, s.assetRepo, s.auditRepo, s.txManager, actor, orderID, nil, req, s.now()); err != nil {
		return nil, err
	}
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(EventMaintenanceUpdated, map[string]interface{}{"id": order.ID, "number": order.Number, "status": order.Status})
	return order, nil
}

func (s *maintenanceService) AssignContractor(ctx context.Context, actor *Actor, id string, req AssignContractorRequest) (*model.MaintenanceOrder, error) {
	orderID, err := parseID(id, "maintenance order")
	if err != nil {
		return nil, err
	}
	contractorID, err := s.contractor(ctx, req.ContractorID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return lookupError(err, "maintenance order")
		}
		if maintenanceTerminal(order.Status) {
			return fmt.Errorf("%w: maintenance order %s is %s", ErrInvalidTransition, order.Number, order.Status)
		}
		order.ContractorID = contractorID
		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to assign contractor: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionAssign, "maintenance_order", order.ID.String(), order.Number,
			map[string]interface{}{"contractor_id": contractorID})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *maintenanceService) apply(ctx context.Context, order *model.MaintenanceOrder, req MaintenanceRequest) error {
	assetID, err := parseOptionalID(req.AssetID, "asset")
	if err != nil {
		return err
	}
	if assetID != nil {
		asset, err := s.assetRepo.FindByID(ctx, *assetID)
		if err != nil {
			if repository.IsNotFound(err) {
				return validationf("asset does not exist")
			}
			return fmt.Errorf("failed to fetch asset: %w", err)
		}
		if asset.Status == model.AssetRetired {
			return validationf("retired asset %s cannot go to maintenance", asset.Tag)
		}
	}

	ticketID, err := parseOptionalID(req.TicketID, "ticket")
	if err != nil {
		return err
	}
	if ticketID != nil {
		if _, err := s.ticketRepo.FindByID(ctx, *ticketID); err != nil {
			if repository.IsNotFound(err) {
				return validationf("ticket does not exist")
			}
			return fmt.Errorf("failed to fetch ticket: %w", err)
		}
	}

	contractorID, err := s.contractor(ctx, req.ContractorID)
	if err != nil {
		return err
	}

	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return validationf("cost cannot be negative")
		}
		order.Cost = *req.Cost
	}

	order.Title = strings.TrimSpace(req.Title)
	order.Description = req.Description
	order.AssetID, order.Asset = assetID, nil
	order.TicketID = ticketID
	order.ContractorID, order.Contractor = contractorID, nil
	order.ScheduledFor = req.ScheduledFor
	return nil
}

func (s *maintenanceService) contractor(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID(raw, "contractor")
	if err != nil || id == nil {
		return id, err
	}
	c, err := s.contractorRepo.FindByID(ctx, *id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("contractor does not exist")
		}
		return nil, fmt.Errorf("failed to fetch contractor: %w", err)
	}
	if !c.IsActive {
		return nil, validationf("contractor '%s' is inactive", c.Name)
	}
	return id, nil
}

// changeMaintenanceStatus moves an OS and keeps its asset's status in step.
// contractorID, when set, restricts the change to orders assigned to that contractor.
func changeMaintenanceStatus(
	ctx context.Context,
	orderRepo repository.MaintenanceRepository,
	assetRepo repository.AssetRepository,
	auditRepo repository.AuditRepository,
	tx repository.TransactionManager,
	actor *Actor,
	orderID uuid.UUID,
	contractorID *uuid.UUID,
	req MaintenanceStatusRequest,
	now time.Time,
) error {
	to := strings.ToUpper(req.Status)

	return tx.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return lookupError(err, "maintenance order")
		}
		if contractorID != nil && (order.ContractorID == nil || *order.ContractorID != *contractorID) {
			return notFound("maintenance order")
		}

		from := order.Status
		if !maintenanceTransitions.allows(from, to) {
			return transitionError("maintenance order", from, to)
		}

		switch to {
		case model.OSScheduled:
			if req.ScheduledFor != nil {
				order.ScheduledFor = req.ScheduledFor
			}
			if order.ScheduledFor == nil {
				return validationf("scheduled_for is required to schedule an order")
			}
		case model.OSInProgress:
			order.StartedAt = &now
		case model.OSCompleted:
			order.CompletedAt = &now
		}
		if req.Resolution != "" {
			order.Resolution = req.Resolution
		}
		if req.Cost != nil {
			if req.Cost.IsNegative() {
				return validationf("cost cannot be negative")
			}
			order.Cost = *req.Cost
		}
		order.Status = to

		if order.AssetID != nil {
			if err := syncAssetStatus(txCtx, orderRepo, assetRepo, order, from); err != nil {
				return err
			}
		}

		if err := orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update maintenance order: %w", err)
		}
		return audit(txCtx, auditRepo, actor, model.ActionStatus, "maintenance_order", order.ID.String(), order.Number,
			map[string]string{"from": from, "to": to})
	})
}

// syncAssetStatus puts the asset in maintenance when work starts. When the last
// running order on it ends, the asset returns to the status it had before.
func syncAssetStatus(
	ctx context.Context,
	orderRepo repository.MaintenanceRepository,
	assetRepo repository.AssetRepository,
	order *model.MaintenanceOrder,
	from string,
) error {
	assetID := *order.AssetID
	asset, err := assetRepo.FindByIDForUpdate(ctx, assetID)
	if err != nil {
		return lookupError(err, "asset")
	}

	switch order.Status {
	case model.OSInProgress:
		if asset.Status == model.AssetRetired {
			return fmt.Errorf("%w: retired asset %s cannot go to maintenance", ErrInvalidTransition, asset.Tag)
		}
		order.AssetStatusBefore = ""
		if asset.Status == model.AssetInMaintenance {
			return nil
		}
		order.AssetStatusBefore = asset.Status
		if err := assetRepo.UpdateStatus(ctx, assetID, model.AssetInMaintenance); err != nil {
			return fmt.Errorf("failed to update asset status: %w", err)
		}
	case model.OSCompleted, model.OSCancelled:
		if from != model.OSInProgress {
			return nil
		}
		restore := order.AssetStatusBefore
		order.AssetStatusBefore = ""

		others, err := orderRepo.InProgressForAsset(ctx, assetID, order.ID)
		if err != nil {
			return fmt.Errorf("failed to check running orders: %w", err)
		}
		if len(others) > 0 {
			return handOverAssetStatus(ctx, orderRepo, others, restore)
		}

		if asset.Status != model.AssetInMaintenance {
			return nil
		}
		if restore == "" || restore == model.AssetInMaintenance {
			restore = model.AssetActive
		}
		if err := assetRepo.UpdateStatus(ctx, assetID, restore); err != nil {
			return fmt.Errorf("failed to update asset status: %w", err)
		}
	}
	return nil
}

// handOverAssetStatus passes the status to restore on to a still running order
func handOverAssetStatus(ctx context.Context, orderRepo repository.MaintenanceRepository, running []model.MaintenanceOrder, status string) error {
	if status == "" {
		return nil
	}
	for _, o := range running {
		if o.AssetStatusBefore != "" {
			return nil
		}
	}
	next := running[0]
	next.AssetStatusBefore = status
	if err := orderRepo.Update(ctx, &next); err != nil {
		return fmt.Errorf("failed to update maintenance order: %w", err)
	}
	return nil
}

func sameID(current *uuid.UUID, raw *string) bool {
	if current == nil {
		return raw == nil || *raw == ""
	}
	return raw != nil && *raw == current.String()
}
