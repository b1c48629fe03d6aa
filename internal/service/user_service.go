package service

import (
	"context"
	"fmt"
	"strings"

	"zyllen/internal/auth"
	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	RoleID   string `json:"role_id" binding:"required,uuid"`
}

type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
	RoleID   string `json:"role_id" binding:"omitempty,uuid"`
	IsActive *bool  `json:"is_active"`
}

// UserService manages internal (staff) accounts
type UserService interface {
	CreateUser(ctx context.Context, actor *Actor, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int, search string) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor *Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor *Actor, id string) error
}

type userService struct {
	repo      repository.UserRepository
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

// NewUserService creates a new UserService
func NewUserService(
	repo repository.UserRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) UserService {
	return &userService{repo: repo, roleRepo: roleRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *userService) CreateUser(ctx context.Context, actor *Actor, req CreateUserRequest) (*UserResponse, error) {
	roleID, err := s.requireRole(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.InternalUser{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashed,
		RoleID:       roleID,
		IsActive:     true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return writeError(err, "create", "user with this email")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "user", user.ID.String(), user.Email,
			map[string]string{"name": user.Name, "role_id": roleID.String()})
	})
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, user.ID.String())
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	resp := toUserResponse(*user)
	return &resp, nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int, search string) ([]UserResponse, int64, error) {
	page, limit = pageArgs(page, limit)
	users, total, err := s.repo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	res := make([]UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, toUserResponse(u))
	}
	return res, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor *Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user")
	}

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
	if req.RoleID != "" {
		roleID, err := s.requireRole(ctx, req.RoleID)
		if err != nil {
			return nil, err
		}
		user.RoleID = roleID
		user.Role = nil
		changes["role_id"] = roleID.String()
	}
	if req.IsActive != nil {
		if actor != nil && actor.ID == user.ID && !*req.IsActive {
			return nil, validationf("you cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
		changes["is_active"] = user.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, user); err != nil {
			return writeError(err, "update", "user with this email")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "user", user.ID.String(), user.Email, changes)
	})
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

func (s *userService) DeleteUser(ctx context.Context, actor *Actor, id string) error {
	userID, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if actor != nil && actor.ID == userID {
		return validationf("you cannot delete your own account")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return lookupError(err, "user")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionDelete, "user", user.ID.String(), user.Email, nil)
	})
}

func (s *userService) requireRole(ctx context.Context, raw string) (uuid.UUID, error) {
	roleID, err := parseID(raw, "role")
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.roleRepo.FindByID(ctx, roleID); err != nil {
		if repository.IsNotFound(err) {
			return uuid.Nil, validationf("role does not exist")
		}
		return uuid.Nil, fmt.Errorf("failed to fetch role: %w", err)
	}
	return roleID, nil
}
