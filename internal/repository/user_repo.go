package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of internal users
type UserRepository interface {
	Create(ctx context.Context, user *model.InternalUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.InternalUser, error)
	GetByEmail(ctx context.Context, email string) (*model.InternalUser, error)
	ListWithPIN(ctx context.Context) ([]model.InternalUser, error)
	List(ctx context.Context, page, limit int, search string) ([]model.InternalUser, int64, error)
	Update(ctx context.Context, user *model.InternalUser) error
	UpdatePIN(ctx context.Context, id uuid.UUID, pinHash *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.InternalUser) error {
	return GetDB(ctx, r.db).Omit("Role").Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.InternalUser, error) {
	var user model.InternalUser
	if err := GetDB(ctx, r.db).Preload("Role").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.InternalUser, error) {
	var user model.InternalUser
	if err := GetDB(ctx, r.db).Preload("Role").First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListWithPIN returns active users that configured a PIN, for PIN login matching
func (r *userRepository) ListWithPIN(ctx context.Context) ([]model.InternalUser, error) {
	var users []model.InternalUser
	if err := GetDB(ctx, r.db).Preload("Role").
		Where("pin_hash IS NOT NULL AND is_active = ?", true).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, page, limit int, search string) ([]model.InternalUser, int64, error) {
	var users []model.InternalUser
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InternalUser{})
	if search != "" {
		db = db.Where("name ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Role").Order("name asc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.InternalUser) error {
	return GetDB(ctx, r.db).Model(user).
		Select("name", "email", "password_hash", "role_id", "is_active").
		Updates(user).Error
}

func (r *userRepository) UpdatePIN(ctx context.Context, id uuid.UUID, pinHash *string) error {
	return GetDB(ctx, r.db).Model(&model.InternalUser{}).Where("id = ?", id).Update("pin_hash", pinHash).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.InternalUser{}).Error
}
