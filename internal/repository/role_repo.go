package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	CountUsers(ctx context.Context, roleID uuid.UUID) (int64, error)

	ListPermissions(ctx context.Context) ([]model.ScreenPermission, error)
	FindPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ScreenPermission, error)
	UpsertPermission(ctx context.Context, perm *model.ScreenPermission) error

	PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	PermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error)
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) (added, removed []uuid.UUID, err error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit("Permissions").Create(role).Error
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Model(role).Select("name", "description").Updates(role).Error
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Role{}).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("screen asc, action asc")
	}).First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Order("name asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) CountUsers(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.InternalUser{}).Where("role_id = ?", roleID).Count(&count).Error
	return count, err
}

func (r *roleRepository) ListPermissions(ctx context.Context) ([]model.ScreenPermission, error) {
	var perms []model.ScreenPermission
	if err := GetDB(ctx, r.db).Order("screen asc, action asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *roleRepository) FindPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ScreenPermission, error) {
	var perms []model.ScreenPermission
	if len(ids) == 0 {
		return perms, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// UpsertPermission finds the permission by (screen, action) or creates it; perm.ID is filled either way
func (r *roleRepository) UpsertPermission(ctx context.Context, perm *model.ScreenPermission) error {
	return GetDB(ctx, r.db).
		Where("screen = ? AND action = ?", perm.Screen, perm.Action).
		Assign(model.ScreenPermission{Description: perm.Description}).
		FirstOrCreate(perm).Error
}

func (r *roleRepository) PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.RolePermission{}).
		Where("role_id = ?", roleID).
		Pluck("screen_permission_id", &ids).Error
	return ids, err
}

func (r *roleRepository) PermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	var codes []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT sp.screen || '.' || sp.action AS code
		FROM screen_permissions sp
		INNER JOIN role_permissions rp ON rp.screen_permission_id = sp.id
		WHERE rp.role_id = ?
		ORDER BY code
	`, roleID).Scan(&codes).Error
	return codes, err
}

// ReplacePermissions makes the role's grant set equal to permissionIDs.
// Only the difference against the current set is written.
func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	current, err := r.PermissionIDs(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}

	toAdd, toRemove := diffIDs(current, permissionIDs)
	db := GetDB(ctx, r.db)

	if len(toRemove) > 0 {
		if err := db.Where("role_id = ? AND screen_permission_id IN ?", roleID, toRemove).
			Delete(&model.RolePermission{}).Error; err != nil {
			return nil, nil, err
		}
	}

	if len(toAdd) > 0 {
		rows := make([]model.RolePermission, 0, len(toAdd))
		for _, id := range toAdd {
			rows = append(rows, model.RolePermission{RoleID: roleID, ScreenPermissionID: id})
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return nil, nil, err
		}
	}

	return toAdd, toRemove, nil
}

// diffIDs returns the ids present only in desired (add) and only in current (remove)
func diffIDs(current, desired []uuid.UUID) (add, remove []uuid.UUID) {
	have := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[uuid.UUID]bool, len(desired))
	for _, id := range desired {
		if want[id] {
			continue
		}
		want[id] = true
		if !have[id] {
			add = append(add, id)
		}
	}
	for _, id := range current {
		if !want[id] {
			remove = append(remove, id)
		}
	}
	return add, remove
}
