package repository

import (
	"context"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExternalUserRepository stores portal accounts of clients and contractors
type ExternalUserRepository interface {
	Create(ctx context.Context, user *model.ExternalUser) error
	Update(ctx context.Context, user *model.ExternalUser) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ExternalUser, error)
	FindByEmail(ctx context.Context, email string) (*model.ExternalUser, error)
	List(ctx context.Context, userType, search string, page, limit int) ([]model.ExternalUser, int64, error)
	CountByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
	CountByContractor(ctx context.Context, contractorID uuid.UUID) (int64, error)
}

type externalUserRepository struct {
	db *gorm.DB
}

func NewExternalUserRepository(db *gorm.DB) ExternalUserRepository {
	return &externalUserRepository{db: db}
}

func (r *externalUserRepository) Create(ctx context.Context, user *model.ExternalUser) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(user).Error
}

func (r *externalUserRepository) Update(ctx context.Context, user *model.ExternalUser) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(user).Error
}

func (r *externalUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ExternalUser{}).Error
}

func (r *externalUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ExternalUser, error) {
	var user model.ExternalUser
	if err := GetDB(ctx, r.db).Preload("Company").Preload("Contractor").
		First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *externalUserRepository) FindByEmail(ctx context.Context, email string) (*model.ExternalUser, error) {
	var user model.ExternalUser
	if err := GetDB(ctx, r.db).Preload("Company").Preload("Contractor").
		First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *externalUserRepository) List(ctx context.Context, userType, search string, page, limit int) ([]model.ExternalUser, int64, error) {
	var users []model.ExternalUser
	var total int64

	query := GetDB(ctx, r.db).Model(&model.ExternalUser{})
	if userType != "" {
		query = query.Where("type = ?", userType)
	}
	if search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Company").Preload("Contractor").Order("name asc").
		Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *externalUserRepository) CountByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ExternalUser{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, err
}

func (r *externalUserRepository) CountByContractor(ctx context.Context, contractorID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ExternalUser{}).Where("contractor_id = ?", contractorID).Count(&count).Error
	return count, err
}
