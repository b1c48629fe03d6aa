package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zyllen/internal/auth"
	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
)

type CreateExternalUserRequest struct {
	Name         string  `json:"name" binding:"required"`
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=6"`
	Type         string  `json:"type" binding:"required,oneof=CLIENT CONTRACTOR"`
	CompanyID    *string `json:"company_id"`
	ContractorID *string `json:"contractor_id"`
}

type UpdateExternalUserRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email" binding:"omitempty,email"`
	Password     string  `json:"password" binding:"omitempty,min=6"`
	CompanyID    *string `json:"company_id"`
	ContractorID *string `json:"contractor_id"`
	IsActive     *bool   `json:"is_active"`
}

// ExternalUserService manages portal accounts of clients and contractors
type ExternalUserService interface {
	ListUsers(ctx context.Context, userType, search string, page, limit int) ([]PortalUserResponse, int64, error)
	GetUser(ctx context.Context, id string) (*PortalUserResponse, error)
	CreateUser(ctx context.Context, actor *Actor, req CreateExternalUserRequest) (*PortalUserResponse, error)
	UpdateUser(ctx context.Context, actor *Actor, id string, req UpdateExternalUserRequest) (*PortalUserResponse, error)
	DeleteUser(ctx context.Context, actor *Actor, id string) error
}

type externalUserService struct {
	repo           repository.ExternalUserRepository
	companyRepo    repository.ReferenceRepository[model.Company]
	contractorRepo repository.ReferenceRepository[model.Contractor]
	tokenRepo      repository.TokenRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewExternalUserService(
	repo repository.ExternalUserRepository,
	companyRepo repository.ReferenceRepository[model.Company],
	contractorRepo repository.ReferenceRepository[model.Contractor],
	tokenRepo repository.TokenRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ExternalUserService {
	return &externalUserService{
		repo:           repo,
		companyRepo:    companyRepo,
		contractorRepo: contractorRepo,
		tokenRepo:      tokenRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

func (s *externalUserService) ListUsers(ctx context.Context, userType, search string, page, limit int) ([]PortalUserResponse, int64, error) {
	userType = strings.ToUpper(userType)
	if userType != "" && userType != model.ExternalClient && userType != model.ExternalContractor {
		return nil, 0, validationf("unknown user type '%s'", userType)
	}
	page, limit = pageArgs(page, limit)
	users, total, err := s.repo.List(ctx, userType, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list portal users: %w", err)
	}

	res := make([]PortalUserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, toPortalUserResponse(u))
	}
	return res, total, nil
}

func (s *externalUserService) GetUser(ctx context.Context, id string) (*PortalUserResponse, error) {
	userID, err := parseID(id, "portal user")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "portal user")
	}
	resp := toPortalUserResponse(*user)
	return &resp, nil
}

func (s *externalUserService) CreateUser(ctx context.Context, actor *Actor, req CreateExternalUserRequest) (*PortalUserResponse, error) {
	user := &model.ExternalUser{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Type:     strings.ToUpper(req.Type),
		IsActive: true,
	}
	if err := s.bindTenant(ctx, user, req.CompanyID, req.ContractorID); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hashed

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return writeError(err, "create", "portal user with this email")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "external_user", user.ID.String(), user.Email,
			map[string]interface{}{"type": user.Type, "company_id": user.CompanyID, "contractor_id": user.ContractorID})
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID.String())
}

func (s *externalUserService) UpdateUser(ctx context.Context, actor *Actor, id string, req UpdateExternalUserRequest) (*PortalUserResponse, error) {
	userID, err := parseID(id, "portal user")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "portal user")
	}
	user.Company, user.Contractor = nil, nil

	changes := map[string]interface{}{}
	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
		changes["name"] = user.Name
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
		changes["email"] = user.Email
	}
	if req.Password != "" {
		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hashed
		changes["password"] = "changed"
	}
	if req.CompanyID != nil || req.ContractorID != nil {
		companyID, contractorID := req.CompanyID, req.ContractorID
		if companyID == nil && user.CompanyID != nil {
			current := user.CompanyID.String()
			companyID = &current
		}
		if contractorID == nil && user.ContractorID != nil {
			current := user.ContractorID.String()
			contractorID = &current
		}
		if err := s.bindTenant(ctx, user, companyID, contractorID); err != nil {
			return nil, err
		}
		changes["company_id"], changes["contractor_id"] = user.CompanyID, user.ContractorID
	}
	deactivated := false
	if req.IsActive != nil {
		deactivated = user.IsActive && !*req.IsActive
		user.IsActive = *req.IsActive
		changes["is_active"] = user.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, user); err != nil {
			return writeError(err, "update", "portal user with this email")
		}
		if deactivated || req.Password != "" {
			if err := s.tokenRepo.RevokeBySubject(txCtx, user.ID, time.Now()); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "external_user", user.ID.String(), user.Email, changes)
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *externalUserService) DeleteUser(ctx context.Context, actor *Actor, id string) error {
	userID, err := parseID(id, "portal user")
	if err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return lookupError(err, "portal user")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, userID); err != nil {
			return writeError(err, "delete", "portal user")
		}
		if err := s.tokenRepo.RevokeBySubject(txCtx, userID, time.Now()); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionDelete, "external_user", user.ID.String(), user.Email, nil)
	})
}

// bindTenant links the user to exactly the tenant its type requires
func (s *externalUserService) bindTenant(ctx context.Context, user *model.ExternalUser, companyRaw, contractorRaw *string) error {
	switch user.Type {
	case model.ExternalClient:
		companyID, err := parseOptionalID(companyRaw, "company")
		if err != nil {
			return err
		}
		if companyID == nil {
			return validationf("client users require a company")
		}
		company, err := s.companyRepo.FindByID(ctx, *companyID)
		if err != nil {
			if repository.IsNotFound(err) {
				return validationf("company does not exist")
			}
			return fmt.Errorf("failed to fetch company: %w", err)
		}
		if !company.IsActive {
			return validationf("company '%s' is inactive", company.Name)
		}
		user.CompanyID, user.ContractorID = companyID, nil
	case model.ExternalContractor:
		contractorID, err := parseOptionalID(contractorRaw, "contractor")
		if err != nil {
			return err
		}
		if contractorID == nil {
			return validationf("contractor users require a contractor")
		}
		contractor, err := s.contractorRepo.FindByID(ctx, *contractorID)
		if err != nil {
			if repository.IsNotFound(err) {
				return validationf("contractor does not exist")
			}
			return fmt.Errorf("failed to fetch contractor: %w", err)
		}
		if !contractor.IsActive {
			return validationf("contractor '%s' is inactive", contractor.Name)
		}
		user.ContractorID, user.CompanyID = contractorID, nil
	default:
		return validationf("unknown user type '%s'", user.Type)
	}
	return nil
}

// tenantOf returns the id the portal caller is scoped to
func tenantOf(user *model.ExternalUser) (uuid.UUID, bool) {
	switch {
	case user.Type == model.ExternalClient && user.CompanyID != nil:
		return *user.CompanyID, true
	case user.Type == model.ExternalContractor && user.ContractorID != nil:
		return *user.ContractorID, true
	}
	return uuid.Nil, false
}
