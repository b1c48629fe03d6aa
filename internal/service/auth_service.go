package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zyllen/internal/auth"
	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type PINLoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	PIN   string `json:"pin" binding:"required,len=4,numeric"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type SetPINRequest struct {
	// Empty clears the PIN
	PIN string `json:"pin" binding:"omitempty,len=4,numeric"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	RoleID    string `json:"role_id"`
	RoleName  string `json:"role_name"`
	IsActive  bool   `json:"is_active"`
	HasPIN    bool   `json:"has_pin"`
	CreatedAt string `json:"created_at"`
}

type PortalUserResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Type           string  `json:"type"`
	CompanyID      *string `json:"company_id,omitempty"`
	CompanyName    string  `json:"company_name,omitempty"`
	ContractorID   *string `json:"contractor_id,omitempty"`
	ContractorName string  `json:"contractor_name,omitempty"`
	IsActive       bool    `json:"is_active"`
}

type LoginResponse struct {
	*auth.TokenPair
	User        *UserResponse       `json:"user,omitempty"`
	PortalUser  *PortalUserResponse `json:"portal_user,omitempty"`
	Permissions []string            `json:"permissions,omitempty"`
}

type MeResponse struct {
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
}

// --- Interface ---

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	PINLogin(ctx context.Context, req PINLoginRequest) (*LoginResponse, error)
	PortalLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error)
	Logout(ctx context.Context, req RefreshRequest) error
	Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error)
	PortalMe(ctx context.Context, userID uuid.UUID) (*PortalUserResponse, error)
	SetPIN(ctx context.Context, actor *Actor, req SetPINRequest) error
}

type authService struct {
	userRepo     repository.UserRepository
	externalRepo repository.ExternalUserRepository
	tokenRepo    repository.TokenRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	permissions  PermissionResolver
	tokens       *auth.TokenManager
	now          func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	externalRepo repository.ExternalUserRepository,
	tokenRepo repository.TokenRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	permissions PermissionResolver,
	tokens *auth.TokenManager,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		externalRepo: externalRepo,
		tokenRepo:    tokenRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		permissions:  permissions,
		tokens:       tokens,
		now:          time.Now,
	}
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

// --- Implementation ---

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, errBadCredentials
	}
	return s.loginInternal(ctx, user)
}

// PINLogin serves shared scanner terminals where typing a password is impractical
func (s *authService) PINLogin(ctx context.Context, req PINLoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: invalid email or pin", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if user.PinHash == nil || !auth.CheckPassword(*user.PinHash, req.PIN) {
		return nil, fmt.Errorf("%w: invalid email or pin", ErrUnauthorized)
	}
	return s.loginInternal(ctx, user)
}

func (s *authService) loginInternal(ctx context.Context, user *model.InternalUser) (*LoginResponse, error) {
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", ErrForbidden)
	}

	roleID := user.RoleID
	var pair *auth.TokenPair
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		pair, err = s.issue(txCtx, auth.Subject{ID: user.ID, Kind: model.KindInternal, Name: user.Name, RoleID: &roleID})
		if err != nil {
			return err
		}
		actor := &Actor{ID: user.ID, Kind: model.KindInternal, Name: user.Name}
		return audit(txCtx, s.auditRepo, actor, model.ActionLogin, "user", user.ID.String(), user.Email, nil)
	})
	if err != nil {
		return nil, err
	}

	perms, err := s.permissions.PermissionsForRole(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(*user)
	return &LoginResponse{TokenPair: pair, User: &resp, Permissions: perms}, nil
}

func (s *authService) PortalLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.externalRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("failed to fetch portal user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", ErrForbidden)
	}

	var pair *auth.TokenPair
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		pair, err = s.issue(txCtx, externalSubject(user))
		if err != nil {
			return err
		}
		actor := &Actor{ID: user.ID, Kind: user.Kind(), Name: user.Name}
		return audit(txCtx, s.auditRepo, actor, model.ActionLogin, "external_user", user.ID.String(), user.Email, nil)
	})
	if err != nil {
		return nil, err
	}

	resp := toPortalUserResponse(*user)
	return &LoginResponse{TokenPair: pair, PortalUser: &resp}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued
func (s *authService) Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error) {
	claims, err := s.tokens.Parse(req.RefreshToken, auth.TypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", ErrUnauthorized)
	}

	resp := &LoginResponse{}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		stored, err := s.tokenRepo.FindActiveByHashForUpdate(txCtx, auth.HashTokenID(claims.ID), s.now())
		if err != nil {
			if repository.IsNotFound(err) {
				return fmt.Errorf("%w: refresh token revoked or expired", ErrUnauthorized)
			}
			return fmt.Errorf("failed to fetch refresh token: %w", err)
		}
		if err := s.tokenRepo.Revoke(txCtx, stored.ID, s.now()); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}

		sub, err := s.currentSubject(txCtx, claims.Kind, subjectID, resp)
		if err != nil {
			return err
		}
		resp.TokenPair, err = s.issue(txCtx, sub)
		return err
	})
	if err != nil {
		return nil, err
	}

	if resp.User != nil {
		roleID, _ := uuid.Parse(resp.User.RoleID)
		resp.Permissions, err = s.permissions.PermissionsForRole(ctx, roleID)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// currentSubject reloads the token owner so role or tenant changes apply on refresh
func (s *authService) currentSubject(ctx context.Context, kind string, id uuid.UUID, resp *LoginResponse) (auth.Subject, error) {
	if kind == model.KindInternal {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return auth.Subject{}, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
			}
			return auth.Subject{}, fmt.Errorf("failed to fetch user: %w", err)
		}
		if !user.IsActive {
			return auth.Subject{}, fmt.Errorf("%w: user is inactive", ErrForbidden)
		}
		u := toUserResponse(*user)
		resp.User = &u
		roleID := user.RoleID
		return auth.Subject{ID: user.ID, Kind: model.KindInternal, Name: user.Name, RoleID: &roleID}, nil
	}

	user, err := s.externalRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return auth.Subject{}, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return auth.Subject{}, fmt.Errorf("failed to fetch portal user: %w", err)
	}
	if !user.IsActive {
		return auth.Subject{}, fmt.Errorf("%w: user is inactive", ErrForbidden)
	}
	u := toPortalUserResponse(*user)
	resp.PortalUser = &u
	return externalSubject(user), nil
}

func (s *authService) Logout(ctx context.Context, req RefreshRequest) error {
	claims, err := s.tokens.Parse(req.RefreshToken, auth.TypeRefresh)
	if err != nil {
		// an unusable token is already as good as logged out
		return nil
	}

	stored, err := s.tokenRepo.FindActiveByHashForUpdate(ctx, auth.HashTokenID(claims.ID), s.now())
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to fetch refresh token: %w", err)
	}
	if err := s.tokenRepo.Revoke(ctx, stored.ID, s.now()); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	perms, err := s.permissions.PermissionsForRole(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{User: toUserResponse(*user), Permissions: perms}, nil
}

func (s *authService) PortalMe(ctx context.Context, userID uuid.UUID) (*PortalUserResponse, error) {
	user, err := s.externalRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "portal user")
	}
	resp := toPortalUserResponse(*user)
	return &resp, nil
}

func (s *authService) SetPIN(ctx context.Context, actor *Actor, req SetPINRequest) error {
	if actor == nil || !actor.Internal() {
		return ErrForbidden
	}

	var pinHash *string
	if req.PIN != "" {
		hashed, err := auth.HashPIN(req.PIN)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidPIN) {
				return validationf("%v", err)
			}
			return fmt.Errorf("failed to hash pin: %w", err)
		}
		pinHash = &hashed
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.UpdatePIN(txCtx, actor.ID, pinHash); err != nil {
			return fmt.Errorf("failed to update pin: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "user", actor.ID.String(), actor.Name,
			map[string]bool{"pin_set": pinHash != nil})
	})
}

// issue signs a token pair and persists the refresh token hash
func (s *authService) issue(ctx context.Context, sub auth.Subject) (*auth.TokenPair, error) {
	pair, err := s.tokens.Issue(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	record := &model.RefreshToken{
		SubjectID:   sub.ID,
		SubjectKind: sub.Kind,
		TokenHash:   auth.HashTokenID(pair.RefreshID),
		ExpiresAt:   pair.RefreshExpiresAt,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return pair, nil
}

func externalSubject(u *model.ExternalUser) auth.Subject {
	return auth.Subject{
		ID:           u.ID,
		Kind:         u.Kind(),
		Name:         u.Name,
		CompanyID:    u.CompanyID,
		ContractorID: u.ContractorID,
	}
}

func toUserResponse(u model.InternalUser) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		RoleID:    u.RoleID.String(),
		IsActive:  u.IsActive,
		HasPIN:    u.PinHash != nil,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if u.Role != nil {
		resp.RoleName = u.Role.Name
	}
	return resp
}

func toPortalUserResponse(u model.ExternalUser) PortalUserResponse {
	resp := PortalUserResponse{
		ID:       u.ID.String(),
		Name:     u.Name,
		Email:    u.Email,
		Type:     u.Type,
		IsActive: u.IsActive,
	}
	if u.CompanyID != nil {
		id := u.CompanyID.String()
		resp.CompanyID = &id
	}
	if u.Company != nil {
		resp.CompanyName = u.Company.Name
	}
	if u.ContractorID != nil {
		id := u.ContractorID.String()
		resp.ContractorID = &id
	}
	if u.Contractor != nil {
		resp.ContractorName = u.Contractor.Name
	}
	return resp
}
