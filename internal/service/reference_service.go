package service

import (
	"context"
	"fmt"
	"strings"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type LocationRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Description string `json:"description"`
}

type SupplierRequest struct {
	Name          string `json:"name" binding:"required,max=255"`
	Document      string `json:"document" binding:"max=20"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone"`
	ContactPerson string `json:"contact_person"`
	IsActive      *bool  `json:"is_active"`
}

type MovementTypeRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Direction   string `json:"direction" binding:"required,oneof=IN OUT TRANSFER ADJUST"`
	Description string `json:"description"`
}

type CompanyRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Document string `json:"document" binding:"max=20"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	IsActive *bool  `json:"is_active"`
}

type ContractorRequest struct {
	Name      string `json:"name" binding:"required,max=255"`
	Document  string `json:"document" binding:"max=20"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
	IsActive  *bool  `json:"is_active"`
}

// --- Generic service ---

// ReferenceService is the CRUD surface shared by the lookup tables
type ReferenceService[T repository.Reference, R any] interface {
	List(ctx context.Context, page, limit int, search string) ([]T, int64, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, actor *Actor, req R) (*T, error)
	Update(ctx context.Context, actor *Actor, id string, req R) (*T, error)
	Delete(ctx context.Context, actor *Actor, id string) error
}

// referenceKind describes how one lookup table maps its request onto the model
type referenceKind[T repository.Reference, R any] struct {
	entity string
	apply  func(item *T, req R) error
	key    func(item *T) (uuid.UUID, string)
	// beforeDelete may refuse deletion of rows still in use
	beforeDelete func(ctx context.Context, id uuid.UUID) error
}

type referenceService[T repository.Reference, R any] struct {
	kind      referenceKind[T, R]
	repo      repository.ReferenceRepository[T]
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func (s *referenceService[T, R]) List(ctx context.Context, page, limit int, search string) ([]T, int64, error) {
	page, limit = pageArgs(page, limit)
	items, total, err := s.repo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", s.kind.entity, err)
	}
	return items, total, nil
}

func (s *referenceService[T, R]) Get(ctx context.Context, id string) (*T, error) {
	itemID, err := parseID(id, s.kind.entity)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, lookupError(err, s.kind.entity)
	}
	return item, nil
}

func (s *referenceService[T, R]) Create(ctx context.Context, actor *Actor, req R) (*T, error) {
	var item T
	if err := s.kind.apply(&item, req); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &item); err != nil {
			return writeError(err, "create", s.kind.entity)
		}
		id, name := s.kind.key(&item)
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, s.kind.entity, id.String(), name, req)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *referenceService[T, R]) Update(ctx context.Context, actor *Actor, id string, req R) (*T, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.kind.apply(item, req); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, item); err != nil {
			return writeError(err, "update", s.kind.entity)
		}
		itemID, name := s.kind.key(item)
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, s.kind.entity, itemID.String(), name, req)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *referenceService[T, R]) Delete(ctx context.Context, actor *Actor, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	itemID, name := s.kind.key(item)

	if s.kind.beforeDelete != nil {
		if err := s.kind.beforeDelete(ctx, itemID); err != nil {
			return err
		}
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, itemID); err != nil {
			return writeError(err, "delete", s.kind.entity)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionDelete, s.kind.entity, itemID.String(), name, nil)
	})
}

func activeOr(flag *bool, current bool) bool {
	if flag == nil {
		return current
	}
	return *flag
}

// --- Concrete services ---

type (
	LocationService     = ReferenceService[model.Location, LocationRequest]
	CategoryService     = ReferenceService[model.Category, CategoryRequest]
	SupplierService     = ReferenceService[model.Supplier, SupplierRequest]
	MovementTypeService = ReferenceService[model.MovementType, MovementTypeRequest]
	CompanyService      = ReferenceService[model.Company, CompanyRequest]
	ContractorService   = ReferenceService[model.Contractor, ContractorRequest]
)

func NewLocationService(repo repository.ReferenceRepository[model.Location], auditRepo repository.AuditRepository, txManager repository.TransactionManager) LocationService {
	return &referenceService[model.Location, LocationRequest]{
		kind: referenceKind[model.Location, LocationRequest]{
			entity: "location",
			apply: func(l *model.Location, req LocationRequest) error {
				l.Name = strings.TrimSpace(req.Name)
				l.Description = req.Description
				l.IsActive = activeOr(req.IsActive, l.ID == uuid.Nil || l.IsActive)
				return nil
			},
			key: func(l *model.Location) (uuid.UUID, string) { return l.ID, l.Name },
		},
		repo: repo, auditRepo: auditRepo, txManager: txManager,
	}
}

func NewCategoryService(repo repository.ReferenceRepository[model.Category], auditRepo repository.AuditRepository, txManager repository.TransactionManager) CategoryService {
	return &referenceService[model.Category, CategoryRequest]{
		kind: referenceKind[model.Category, CategoryRequest]{
			entity: "category",
			apply: func(c *model.Category, req CategoryRequest) error {
				c.Name = strings.TrimSpace(req.Name)
				c.Description = req.Description
				return nil
			},
			key: func(c *model.Category) (uuid.UUID, string) { return c.ID, c.Name },
		},
		repo: repo, auditRepo: auditRepo, txManager: txManager,
	}
}

func NewSupplierService(repo repository.ReferenceRepository[model.Supplier], auditRepo repository.AuditRepository, txManager repository.TransactionManager) SupplierService {
	return &referenceService[model.Supplier, SupplierRequest]{
		kind: referenceKind[model.Supplier, SupplierRequest]{
			entity: "supplier",
			apply: func(sp *model.Supplier, req SupplierRequest) error {
				sp.Name = strings.TrimSpace(req.Name)
				sp.Document = req.Document
				sp.Email = req.Email
				sp.Phone = req.Phone
				sp.ContactPerson = req.ContactPerson
				sp.IsActive = activeOr(req.IsActive, sp.ID == uuid.Nil || sp.IsActive)
				return nil
			},
			key: func(sp *model.Supplier) (uuid.UUID, string) { return sp.ID, sp.Name },
		},
		repo: repo, auditRepo: auditRepo, txManager: txManager,
	}
}

func NewMovementTypeService(repo repository.ReferenceRepository[model.MovementType], auditRepo repository.AuditRepository, txManager repository.TransactionManager) MovementTypeService {
	return &referenceService[model.MovementType, MovementTypeRequest]{
		kind: referenceKind[model.MovementType, MovementTypeRequest]{
			entity: "movement type",
			apply: func(mt *model.MovementType, req MovementTypeRequest) error {
				direction := strings.ToUpper(req.Direction)
				if !model.ValidDirection(direction) {
					return validationf("direction must be one of IN, OUT, TRANSFER, ADJUST")
				}
				if mt.ID != uuid.Nil && mt.Direction != direction {
					return validationf("direction of an existing movement type cannot change")
				}
				mt.Name = strings.TrimSpace(req.Name)
				mt.Direction = direction
				mt.Description = req.Description
				return nil
			},
			key: func(mt *model.MovementType) (uuid.UUID, string) { return mt.ID, mt.Name },
		},
		repo: repo, auditRepo: auditRepo, txManager: txManager,
	}
}

func NewCompanyService(repo repository.ReferenceRepository[model.Company], externalRepo repository.ExternalUserRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CompanyService {
	return &referenceService[model.Company, CompanyRequest]{
		kind: referenceKind[model.Company, CompanyRequest]{
			entity: "company",
			apply: func(c *model.Company, req CompanyRequest) error {
				c.Name = strings.TrimSpace(req.Name)
				c.Document = req.Document
				c.Email = req.Email
				c.Phone = req.Phone
				c.Address = req.Address
				c.IsActive = activeOr(req.IsActive, c.ID == uuid.Nil || c.IsActive)
				return nil
			},
			key: func(c *model.Company) (uuid.UUID, string) { return c.ID, c.Name },
			beforeDelete: func(ctx context.Context, id uuid.UUID) error {
				n, err := externalRepo.CountByCompany(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to count company users: %w", err)
				}
				if n > 0 {
					return conflictf("company still has %d portal user(s)", n)
				}
				return nil
			},
		},
		repo: repo, auditRepo: auditRepo, txManager: txManager,
	}
}

func NewContractorService(repo repository.ReferenceRepository[model.Contractor], externalRepo repository.ExternalUserRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) ContractorService {
	return &referenceService[model.Contractor, ContractorRequest]{
		kind: referenceKind[model.Contractor, ContractorRequest]{
			entity: "contractor",
			apply: func(c *model.Contractor, req ContractorRequest) error {
				c.Name = strings.TrimSpace(req.Name)
				c.Document = req.Document
				c.Email = req.Email
				c.Phone = req.Phone
				c.Specialty = req.Specialty
				c.IsActive = activeOr(req.IsActive, c.ID == uuid.Nil || c.IsActive)
				return nil
			},
			key: func(c *model.Contractor) (uuid.UUID, string) { return c.ID, c.Name },
			beforeDelete: func(ctx context.Context, id uuid.UUID) error {
				n, err := externalRepo.CountByContractor(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to count contractor users: %w", err)
				}
				if n > 0 {
					return conflictf("contractor still has %d portal user(s)", n)
				}
				return nil
			},
		},
		repo: repo, auditRepo: auditRepo, txManager: txManager,
	}
}
