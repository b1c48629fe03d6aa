package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketFilter narrows ticket listings; CompanyID scopes portal queries
type TicketFilter struct {
	Search     string
	Status     string
	Priority   string
	CompanyID  *uuid.UUID
	AssigneeID *uuid.UUID
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	Update(ctx context.Context, ticket *model.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	List(ctx context.Context, filter TicketFilter, page, limit int) ([]model.Ticket, int64, error)
	AddComment(ctx context.Context, comment *model.TicketComment) error
	ListComments(ctx context.Context, ticketID uuid.UUID, includeInternal bool) ([]model.TicketComment, error)
	NextNumber(ctx context.Context) (string, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(ticket).Error
}

func (r *ticketRepository) Update(ctx context.Context, ticket *model.Ticket) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(ticket).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := GetDB(ctx, r.db).Preload("Company").Preload("Assignee").
		First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter, page, limit int) ([]model.Ticket, int64, error) {
	var tickets []model.Ticket
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Ticket{})
	if filter.Search != "" {
		db = db.Where("number ILIKE ? OR title ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		db = db.Where("priority = ?", filter.Priority)
	}
	if filter.CompanyID != nil {
		db = db.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.AssigneeID != nil {
		db = db.Where("assignee_id = ?", *filter.AssigneeID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Company").Preload("Assignee").Order("created_at desc").
		Offset(offset).Limit(limit).Find(&tickets).Error; err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) AddComment(ctx context.Context, comment *model.TicketComment) error {
	return GetDB(ctx, r.db).Create(comment).Error
}

func (r *ticketRepository) ListComments(ctx context.Context, ticketID uuid.UUID, includeInternal bool) ([]model.TicketComment, error) {
	var comments []model.TicketComment
	db := GetDB(ctx, r.db).Where("ticket_id = ?", ticketID)
	if !includeInternal {
		db = db.Where("internal = ?", false)
	}
	if err := db.Order("created_at asc").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *ticketRepository) NextNumber(ctx context.Context) (string, error) {
	return NextNumber(ctx, r.db, "tickets", "number", "TK-", 6)
}
