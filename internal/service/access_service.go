package service

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"zyllen/internal/cache"
	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name          string   `json:"name" binding:"required,max=50"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description"`
}

type ReplacePermissionsRequest struct {
	// An empty list revokes everything
	PermissionIDs []string `json:"permission_ids"`
}

type PermissionResponse struct {
	ID          string `json:"id"`
	Screen      string `json:"screen"`
	Action      string `json:"action"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type RolePermissionsResponse struct {
	RoleID        string   `json:"role_id"`
	PermissionIDs []string `json:"permission_ids"`
	Added         []string `json:"added,omitempty"`
	Removed       []string `json:"removed,omitempty"`
}

// --- Interface ---

// PermissionResolver answers "which permission strings does this role hold"
type PermissionResolver interface {
	PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]string, error)
}

type AccessService interface {
	PermissionResolver
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, actor *Actor, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actor *Actor, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actor *Actor, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	GetRolePermissionIDs(ctx context.Context, roleID string) (*RolePermissionsResponse, error)
	ReplaceRolePermissions(ctx context.Context, actor *Actor, roleID string, req ReplacePermissionsRequest) (*RolePermissionsResponse, error)
}

type accessService struct {
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	cache     cache.PermissionCache
	log       *zap.Logger

	// bumped on every invalidation; a load that overlaps one is not cached
	generation atomic.Uint64
}

func NewAccessService(
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	permCache cache.PermissionCache,
	log *zap.Logger,
) AccessService {
	return &accessService{
		roleRepo:  roleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		cache:     permCache,
		log:       log,
	}
}

// --- Implementation ---

func (s *accessService) PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	key := roleID.String()
	if codes, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return codes, nil
	} else if err != nil {
		s.log.Warn("permission cache read failed", zap.String("role_id", key), zap.Error(err))
	}

	gen := s.generation.Load()
	codes, err := s.roleRepo.PermissionCodes(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}

	if s.generation.Load() != gen {
		return codes, nil
	}
	if err := s.cache.Set(ctx, key, codes); err != nil {
		s.log.Warn("permission cache write failed", zap.String("role_id", key), zap.Error(err))
	}
	return codes, nil
}

func (s *accessService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *accessService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := parseID(id, "role")
	if err != nil {
		return nil, err
	}

	role, err := s.roleRepo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		return nil, lookupError(err, "role")
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *accessService) CreateRole(ctx context.Context, actor *Actor, req CreateRoleRequest) (*RoleResponse, error) {
	permIDs, err := s.resolvePermissionIDs(ctx, req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	role := model.Role{Name: req.Name, Description: req.Description}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Create(txCtx, &role); err != nil {
			return writeError(err, "create", "role")
		}
		if len(permIDs) > 0 {
			if _, _, err := s.roleRepo.ReplacePermissions(txCtx, role.ID, permIDs); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "role", role.ID.String(), role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, role.ID.String())
}

func (s *accessService) UpdateRole(ctx context.Context, actor *Actor, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := parseID(id, "role")
	if err != nil {
		return nil, err
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, lookupError(err, "role")
	}
	if role.IsSystem && role.Name != req.Name {
		return nil, fmt.Errorf("%w: system roles cannot be renamed", ErrForbidden)
	}

	role.Name = req.Name
	role.Description = req.Description

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Update(txCtx, role); err != nil {
			return writeError(err, "update", "role")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "role", role.ID.String(), role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, id)
}

func (s *accessService) DeleteRole(ctx context.Context, actor *Actor, id string) error {
	roleID, err := parseID(id, "role")
	if err != nil {
		return err
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return lookupError(err, "role")
	}
	if role.IsSystem {
		return fmt.Errorf("%w: cannot delete system role '%s'", ErrForbidden, role.Name)
	}

	users, err := s.roleRepo.CountUsers(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}
	if users > 0 {
		return conflictf("role '%s' is assigned to %d user(s)", role.Name, users)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Delete(txCtx, roleID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionDelete, "role", role.ID.String(), role.Name, nil)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, roleID)
	return nil
}

func (s *accessService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *accessService) GetRolePermissionIDs(ctx context.Context, id string) (*RolePermissionsResponse, error) {
	roleID, err := parseID(id, "role")
	if err != nil {
		return nil, err
	}
	if _, err := s.roleRepo.FindByID(ctx, roleID); err != nil {
		return nil, lookupError(err, "role")
	}

	ids, err := s.roleRepo.PermissionIDs(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role permissions: %w", err)
	}
	return &RolePermissionsResponse{RoleID: id, PermissionIDs: idStrings(ids)}, nil
}

// ReplaceRolePermissions overwrites the role's grant set with the submitted one.
// Last write wins; there is no version check.
func (s *accessService) ReplaceRolePermissions(ctx context.Context, actor *Actor, id string, req ReplacePermissionsRequest) (*RolePermissionsResponse, error) {
	roleID, err := parseID(id, "role")
	if err != nil {
		return nil, err
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, lookupError(err, "role")
	}

	permIDs, err := s.resolvePermissionIDs(ctx, req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	var added, removed []uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		added, removed, err = s.roleRepo.ReplacePermissions(txCtx, roleID, permIDs)
		if err != nil {
			return fmt.Errorf("failed to replace role permissions: %w", err)
		}
		if len(added) == 0 && len(removed) == 0 {
			return nil
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionGrant, "role", role.ID.String(), role.Name, map[string]interface{}{
			"added":   idStrings(added),
			"removed": idStrings(removed),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, roleID)

	return &RolePermissionsResponse{
		RoleID:        id,
		PermissionIDs: idStrings(permIDs),
		Added:         idStrings(added),
		Removed:       idStrings(removed),
	}, nil
}

// resolvePermissionIDs parses and deduplicates ids and checks that each one exists
func (s *accessService) resolvePermissionIDs(ctx context.Context, raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, validationf("invalid permission id '%s'", r)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	found, err := s.roleRepo.FindPermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	if len(found) != len(ids) {
		known := make(map[uuid.UUID]bool, len(found))
		for _, p := range found {
			known[p.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				return nil, validationf("unknown permission id '%s'", id)
			}
		}
	}
	return ids, nil
}

func (s *accessService) invalidate(ctx context.Context, roleID uuid.UUID) {
	s.generation.Add(1)
	if err := s.cache.Invalidate(ctx, roleID.String()); err != nil {
		s.log.Warn("permission cache invalidation failed", zap.String("role_id", roleID.String()), zap.Error(err))
	}
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Code < perms[j].Code })
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.ScreenPermission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID.String(),
		Screen:      p.Screen,
		Action:      p.Action,
		Code:        p.Code(),
		Description: p.Description,
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
