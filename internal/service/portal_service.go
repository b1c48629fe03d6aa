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

type PortalTicketRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description string  `json:"description"`
	Priority    string  `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssetID     *string `json:"asset_id"`
}

type PortalCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

type ContractorStatusRequest struct {
	Status     string           `json:"status" binding:"required,oneof=IN_PROGRESS COMPLETED"`
	Resolution string           `json:"resolution"`
	Cost       *decimal.Decimal `json:"cost"`
}

// ClientPortalService serves users of kind client. Every read is scoped to the caller's company.
type ClientPortalService interface {
	ListTickets(ctx context.Context, actor *Actor, filter repository.TicketFilter, page, limit int) ([]model.Ticket, int64, error)
	GetTicket(ctx context.Context, actor *Actor, id string) (*model.Ticket, error)
	CreateTicket(ctx context.Context, actor *Actor, req PortalTicketRequest) (*model.Ticket, error)
	AddComment(ctx context.Context, actor *Actor, id string, req PortalCommentRequest) (*model.TicketComment, error)
	ListAssets(ctx context.Context, actor *Actor, search string, page, limit int) ([]model.Asset, int64, error)
}

// ContractorPortalService serves users of kind contractor. Only assigned orders are visible.
type ContractorPortalService interface {
	ListOrders(ctx context.Context, actor *Actor, status string, page, limit int) ([]model.MaintenanceOrder, int64, error)
	GetOrder(ctx context.Context, actor *Actor, id string) (*model.MaintenanceOrder, error)
	ChangeStatus(ctx context.Context, actor *Actor, id string, req ContractorStatusRequest) (*model.MaintenanceOrder, error)
}

type portalService struct {
	externalRepo repository.ExternalUserRepository
	ticketRepo   repository.TicketRepository
	assetRepo    repository.AssetRepository
	orderRepo    repository.MaintenanceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	notifier     Notifier
	log          *zap.Logger
	now          func() time.Time
}

func newPortalService(
	externalRepo repository.ExternalUserRepository,
	ticketRepo repository.TicketRepository,
	assetRepo repository.AssetRepository,
	orderRepo repository.MaintenanceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) *portalService {
	return &portalService{
		externalRepo: externalRepo,
		ticketRepo:   ticketRepo,
		assetRepo:    assetRepo,
		orderRepo:    orderRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		notifier:     notifierOrNop(notifier),
		log:          log,
		now:          time.Now,
	}
}

func NewClientPortalService(
	externalRepo repository.ExternalUserRepository,
	ticketRepo repository.TicketRepository,
	assetRepo repository.AssetRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) ClientPortalService {
	return &clientPortal{newPortalService(externalRepo, ticketRepo, assetRepo, nil, auditRepo, txManager, notifier, log)}
}

func NewContractorPortalService(
	externalRepo repository.ExternalUserRepository,
	orderRepo repository.MaintenanceRepository,
	assetRepo repository.AssetRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) ContractorPortalService {
	return &contractorPortal{newPortalService(externalRepo, nil, assetRepo, orderRepo, auditRepo, txManager, notifier, log)}
}

// tenant resolves the caller's company or contractor id from the database, so a
// deactivated account or a moved user loses access even with a live token.
func (s *portalService) tenant(ctx context.Context, actor *Actor, kind string) (uuid.UUID, error) {
	if actor == nil {
		return uuid.Nil, ErrUnauthorized
	}
	if actor.Kind != kind {
		return uuid.Nil, fmt.Errorf("%w: %s portal only", ErrForbidden, kind)
	}
	user, err := s.externalRepo.FindByID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return uuid.Nil, ErrUnauthorized
		}
		return uuid.Nil, fmt.Errorf("failed to fetch portal user: %w", err)
	}
	if !user.IsActive || user.Kind() != kind {
		return uuid.Nil, ErrUnauthorized
	}
	id, ok := tenantOf(user)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: account is not linked to a %s", ErrForbidden, kind)
	}
	return id, nil
}

// --- client portal ---

type clientPortal struct {
	*portalService
}

func (p *clientPortal) ListTickets(ctx context.Context, actor *Actor, filter repository.TicketFilter, page, limit int) ([]model.Ticket, int64, error) {
	companyID, err := p.tenant(ctx, actor, model.KindClient)
	if err != nil {
		return nil, 0, err
	}
	filter.CompanyID = &companyID
	filter.AssigneeID = nil
	filter.Status = strings.ToUpper(filter.Status)
	filter.Priority = strings.ToUpper(filter.Priority)
	page, limit = pageArgs(page, limit)

	tickets, total, err := p.ticketRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	for i := range tickets {
		tickets[i].Assignee = nil
	}
	return tickets, total, nil
}

func (p *clientPortal) GetTicket(ctx context.Context, actor *Actor, id string) (*model.Ticket, error) {
	companyID, err := p.tenant(ctx, actor, model.KindClient)
	if err != nil {
		return nil, err
	}
	ticket, err := p.ownTicket(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	ticket.Comments, err = p.ticketRepo.ListComments(ctx, ticket.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket comments: %w", err)
	}
	ticket.Assignee = nil
	return ticket, nil
}

func (p *clientPortal) CreateTicket(ctx context.Context, actor *Actor, req PortalTicketRequest) (*model.Ticket, error) {
	companyID, err := p.tenant(ctx, actor, model.KindClient)
	if err != nil {
		return nil, err
	}

	priority := strings.ToUpper(req.Priority)
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, validationf("unknown priority '%s'", req.Priority)
	}

	assetID, err := parseOptionalID(req.AssetID, "asset")
	if err != nil {
		return nil, err
	}
	if assetID != nil {
		asset, err := p.assetRepo.FindByID(ctx, *assetID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, fmt.Errorf("failed to fetch asset: %w", err)
		}
		if err != nil || asset.CompanyID == nil || *asset.CompanyID != companyID {
			return nil, validationf("asset does not exist")
		}
	}

	openedBy := actor.ID
	ticket := &model.Ticket{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Priority:         priority,
		Status:           model.TicketOpen,
		CompanyID:        &companyID,
		AssetID:          assetID,
		OpenedByExternal: &openedBy,
	}
	if err := createTicket(ctx, p.ticketRepo, p.auditRepo, p.txManager, actor, ticket); err != nil {
		return nil, err
	}

	p.notifier.Publish(EventTicketCreated, map[string]interface{}{"id": ticket.ID, "number": ticket.Number, "company_id": companyID})
	return p.GetTicket(ctx, actor, ticket.ID.String())
}

func (p *clientPortal) AddComment(ctx context.Context, actor *Actor, id string, req PortalCommentRequest) (*model.TicketComment, error) {
	companyID, err := p.tenant(ctx, actor, model.KindClient)
	if err != nil {
		return nil, err
	}
	ticket, err := p.ownTicket(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	comment, err := addComment(ctx, p.ticketRepo, actor, ticket, req.Body, false)
	if err != nil {
		return nil, err
	}
	p.notifier.Publish(EventTicketUpdated, map[string]interface{}{"id": ticket.ID, "comment_id": comment.ID})
	return comment, nil
}

func (p *clientPortal) ListAssets(ctx context.Context, actor *Actor, search string, page, limit int) ([]model.Asset, int64, error) {
	companyID, err := p.tenant(ctx, actor, model.KindClient)
	if err != nil {
		return nil, 0, err
	}
	page, limit = pageArgs(page, limit)
	assets, total, err := p.assetRepo.List(ctx, repository.AssetFilter{Search: search, CompanyID: &companyID}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, total, nil
}

// ownTicket loads a ticket of the company; other tenants' tickets look missing
func (p *clientPortal) ownTicket(ctx context.Context, companyID uuid.UUID, id string) (*model.Ticket, error) {
	ticketID, err := parseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	ticket, err := p.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket")
	}
	if ticket.CompanyID == nil || *ticket.CompanyID != companyID {
		return nil, notFound("ticket")
	}
	return ticket, nil
}

// --- contractor portal ---

type contractorPortal struct {
	*portalService
}

func (p *contractorPortal) ListOrders(ctx context.Context, actor *Actor, status string, page, limit int) ([]model.MaintenanceOrder, int64, error) {
	contractorID, err := p.tenant(ctx, actor, model.KindContractor)
	if err != nil {
		return nil, 0, err
	}
	page, limit = pageArgs(page, limit)
	filter := repository.MaintenanceFilter{Status: strings.ToUpper(status), ContractorID: &contractorID}
	orders, total, err := p.orderRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list maintenance orders: %w", err)
	}
	return orders, total, nil
}

func (p *contractorPortal) GetOrder(ctx context.Context, actor *Actor, id string) (*model.MaintenanceOrder, error) {
	contractorID, err := p.tenant(ctx, actor, model.KindContractor)
	if err != nil {
		return nil, err
	}
	orderID, err := parseID(id, "maintenance order")
	if err != nil {
		return nil, err
	}
	order, err := p.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, "maintenance order")
	}
	if order.ContractorID == nil || *order.ContractorID != contractorID {
		return nil, notFound("maintenance order")
	}
	return order, nil
}

func (p *contractorPortal) ChangeStatus(ctx context.Context, actor *Actor, id string, req ContractorStatusRequest) (*model.MaintenanceOrder, error) {
	contractorID, err := p.tenant(ctx, actor, model.KindContractor)
	if err != nil {
		return nil, err
	}
	orderID, err := parseID(id, "maintenance order")
	if err != nil {
		return nil, err
	}

	to := strings.ToUpper(req.Status)
	if to != model.OSInProgress && to != model.OSCompleted {
		return nil, validationf("contractors may only start or complete orders")
	}

	change := MaintenanceStatusRequest{Status: to, Resolution: req.Resolution, Cost: req.Cost}
	if err := changeMaintenanceStatus(ctx, p.orderRepo, p.assetRepo, p.auditRepo, p.txManager, actor, orderID, &contractorID, change, p.now()); err != nil {
		return nil, err
	}

	order, err := p.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	p.notifier.Publish(EventMaintenanceUpdated, map[string]interface{}{"id": order.ID, "number": order.Number, "status": order.Status})
	return order, nil
}
