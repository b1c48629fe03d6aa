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
type TicketRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description string  `json:"description"`
	Priority    string  `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	CompanyID   *string `json:"company_id"`
	AssetID     *string `json:"asset_id"`
	AssigneeID  *string `json:"assignee_id"`
}

type TicketStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=OPEN IN_PROGRESS RESOLVED CLOSED CANCELLED"`
	Note   string `json:"note"`
}

type AssignTicketRequest struct {
	// nil unassigns
	AssigneeID *string `json:"assignee_id"`
}

type CommentRequest struct {
	Body     string `json:"body" binding:"required"`
	Internal bool   `json:"internal"`
}

type TicketService interface {
	ListTickets(ctx context.Context, filter repository.TicketFilter, page, limit int) ([]model.Ticket, int64, error)
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)
	CreateTicket(ctx context.Context, actor *Actor, req TicketRequest) (*model.Ticket, error)
	UpdateTicket(ctx context.Context, actor *Actor, id string, req TicketRequest) (*model.Ticket, error)
	ChangeStatus(ctx context.Context, actor *Actor, id string, req TicketStatusRequest) (*model.Ticket, error)
	AssignTicket(ctx context.Context, actor *Actor, id string, req AssignTicketRequest) (*model.Ticket, error)
	ListComments(ctx context.Context, id string) ([]model.TicketComment, error)
	AddComment(ctx context.Context, actor *Actor, id string, req CommentRequest) (*model.TicketComment, error)
}

type ticketService struct {
	ticketRepo  repository.TicketRepository
	userRepo    repository.UserRepository
	assetRepo   repository.AssetRepository
	companyRepo repository.ReferenceRepository[model.Company]
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time
}

func NewTicketService(
	ticketRepo repository.TicketRepository,
	userRepo repository.UserRepository,
	assetRepo repository.AssetRepository,
	companyRepo repository.ReferenceRepository[model.Company],
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) TicketService {
	return &ticketService{
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		assetRepo:   assetRepo,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifierOrNop(notifier),
		log:         log,
		now:         time.Now,
	}
}

func (s *ticketService) ListTickets(ctx context.Context, filter repository.TicketFilter, page, limit int) ([]model.Ticket, int64, error) {
	filter.Status = strings.ToUpper(filter.Status)
	filter.Priority = strings.ToUpper(filter.Priority)
	page, limit = pageArgs(page, limit)
	tickets, total, err := s.ticketRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, total, nil
}

func (s *ticketService) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	ticketID, err := parseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket")
	}
	ticket.Comments, err = s.ticketRepo.ListComments(ctx, ticketID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket comments: %w", err)
	}
	return ticket, nil
}

func (s *ticketService) CreateTicket(ctx context.Context, actor *Actor, req TicketRequest) (*model.Ticket, error) {
	ticket := &model.Ticket{Status: model.TicketOpen}
	if err := s.apply(ctx, ticket, req); err != nil {
		return nil, err
	}
	assignee, err := s.assignee(ctx, req.AssigneeID)
	if err != nil {
		return nil, err
	}
	ticket.AssigneeID = assignee
	if actor != nil {
		id := actor.ID
		ticket.OpenedByInternal = &id
	}

	if err := createTicket(ctx, s.ticketRepo, s.auditRepo, s.txManager, actor, ticket); err != nil {
		return nil, err
	}
	s.notifier.Publish(EventTicketCreated, map[string]interface{}{"id": ticket.ID, "number": ticket.Number})
	return s.GetTicket(ctx, ticket.ID.String())
}

func (s *ticketService) UpdateTicket(ctx context.Context, actor *Actor, id string, req TicketRequest) (*model.Ticket, error) {
	ticketID, err := parseID(id, "ticket")
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.ticketRepo.FindByIDForUpdate(txCtx, ticketID)
		if err != nil {
			return lookupError(err, "ticket")
		}
		if ticketTerminal(ticket.Status) {
			return fmt.Errorf("%w: ticket %s is %s", ErrInvalidTransition, ticket.Number, ticket.Status)
		}
		if err := s.apply(txCtx, ticket, req); err != nil {
			return err
		}
		if err := s.ticketRepo.Update(txCtx, ticket); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "ticket", ticket.ID.String(), ticket.Number, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTicket(ctx, id)
}

func (s *ticketService) ChangeStatus(ctx context.Context, actor *Actor, id string, req TicketStatusRequest) (*model.Ticket, error) {
	ticketID, err := parseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	to := strings.ToUpper(req.Status)

	var from string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.ticketRepo.FindByIDForUpdate(txCtx, ticketID)
		if err != nil {
			return lookupError(err, "ticket")
		}
		from = ticket.Status
		if err := moveTicket(ticket, to, s.now()); err != nil {
			return err
		}
		if err := s.ticketRepo.Update(txCtx, ticket); err != nil {
			return fmt.Errorf("failed to update ticket status: %w", err)
		}
		if note := strings.TrimSpace(req.Note); note != "" && actor != nil {
			if err := s.ticketRepo.AddComment(txCtx, &model.TicketComment{
				TicketID:   ticket.ID,
				AuthorID:   actor.ID,
				AuthorKind: actor.Kind,
				AuthorName: actor.Name,
				Body:       note,
				Internal:   true,
			}); err != nil {
				return fmt.Errorf("failed to add status note: %w", err)
			}
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionStatus, "ticket", ticket.ID.String(), ticket.Number,
			map[string]string{"from": from, "to": to})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventTicketUpdated, map[string]interface{}{"id": ticketID, "from": from, "to": to})
	return s.GetTicket(ctx, id)
}

func (s *ticketService) AssignTicket(ctx context.Context, actor *Actor, id string, req AssignTicketRequest) (*model.Ticket, error) {
	ticketID, err := parseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	assignee, err := s.assignee(ctx, req.AssigneeID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.ticketRepo.FindByIDForUpdate(txCtx, ticketID)
		if err != nil {
			return lookupError(err, "ticket")
		}
		if ticketTerminal(ticket.Status) {
			return fmt.Errorf("%w: ticket %s is %s", ErrInvalidTransition, ticket.Number, ticket.Status)
		}
		ticket.AssigneeID = assignee
		if err := s.ticketRepo.Update(txCtx, ticket); err != nil {
			return fmt.Errorf("failed to assign ticket: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionAssign, "ticket", ticket.ID.String(), ticket.Number,
			map[string]interface{}{"assignee_id": assignee})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventTicketUpdated, map[string]interface{}{"id": ticketID, "assignee_id": assignee})
	return s.GetTicket(ctx, id)
}

func (s *ticketService) ListComments(ctx context.Context, id string) ([]model.TicketComment, error) {
	ticketID, err := parseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	if _, err := s.ticketRepo.FindByID(ctx, ticketID); err != nil {
		return nil, lookupError(err, "ticket")
	}
	comments, err := s.ticketRepo.ListComments(ctx, ticketID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *ticketService) AddComment(ctx context.Context, actor *Actor, id string, req CommentRequest) (*model.TicketComment, error) {
	ticketID, err := parseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket")
	}
	return addComment(ctx, s.ticketRepo, actor, ticket, req.Body, req.Internal)
}

func (s *ticketService) apply(ctx context.Context, ticket *model.Ticket, req TicketRequest) error {
	priority := strings.ToUpper(req.Priority)
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return validationf("unknown priority '%s'", req.Priority)
	}

	companyID, err := parseOptionalID(req.CompanyID, "company")
	if err != nil {
		return err
	}
	if companyID != nil {
		if _, err := s.companyRepo.FindByID(ctx, *companyID); err != nil {
			if repository.IsNotFound(err) {
				return validationf("company does not exist")
			}
			return fmt.Errorf("failed to fetch company: %w", err)
		}
	}

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
		if companyID != nil && asset.CompanyID != nil && *asset.CompanyID != *companyID {
			return validationf("asset %s does not belong to the ticket's company", asset.Tag)
		}
	}

	ticket.Title = strings.TrimSpace(req.Title)
	ticket.Description = req.Description
	ticket.Priority = priority
	ticket.CompanyID, ticket.Company = companyID, nil
	ticket.AssetID = assetID
	return nil
}

func (s *ticketService) assignee(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID(raw, "assignee")
	if err != nil || id == nil {
		return id, err
	}
	user, err := s.userRepo.GetByID(ctx, *id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("assignee does not exist")
		}
		return nil, fmt.Errorf("failed to fetch assignee: %w", err)
	}
	if !user.IsActive {
		return nil, validationf("assignee %s is inactive", user.Email)
	}
	return id, nil
}

// moveTicket applies a status change and its timestamps
func moveTicket(ticket *model.Ticket, to string, now time.Time) error {
	if !ticketTransitions.allows(ticket.Status, to) {
		return transitionError("ticket", ticket.Status, to)
	}
	switch to {
	case model.TicketResolved:
		ticket.ResolvedAt = &now
	case model.TicketInProgress:
		if ticket.Status == model.TicketResolved {
			ticket.ResolvedAt = nil
		}
	case model.TicketClosed:
		ticket.ClosedAt = &now
	}
	ticket.Status = to
	ticket.Company, ticket.Assignee = nil, nil
	return nil
}

// createTicket numbers and stores a ticket; shared by staff and the client portal
func createTicket(ctx context.Context, repo repository.TicketRepository, auditRepo repository.AuditRepository, tx repository.TransactionManager, actor *Actor, ticket *model.Ticket) error {
	return tx.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := repo.NextNumber(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate ticket number: %w", err)
		}
		ticket.Number = number
		if err := repo.Create(txCtx, ticket); err != nil {
			return writeError(err, "create", "ticket")
		}
		return audit(txCtx, auditRepo, actor, model.ActionCreate, "ticket", ticket.ID.String(), ticket.Number,
			map[string]interface{}{"title": ticket.Title, "priority": ticket.Priority, "company_id": ticket.CompanyID})
	})
}

func addComment(ctx context.Context, repo repository.TicketRepository, actor *Actor, ticket *model.Ticket, body string, internal bool) (*model.TicketComment, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationf("comment body is required")
	}
	if ticketTerminal(ticket.Status) {
		return nil, fmt.Errorf("%w: ticket %s is %s", ErrInvalidTransition, ticket.Number, ticket.Status)
	}

	comment := &model.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorKind: actor.Kind,
		AuthorName: actor.Name,
		Body:       body,
		Internal:   internal,
	}
	if err := repo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return comment, nil
}
