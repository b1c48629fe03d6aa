package repository

import (
	"context"
	"time"

	"zyllen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindActiveByHashForUpdate(ctx context.Context, hash string, now time.Time) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeBySubject(ctx context.Context, subjectID uuid.UUID, at time.Time) error
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *tokenRepository) FindActiveByHashForUpdate(ctx context.Context, hash string, now time.Time) (*model.RefreshToken, error) {
	var token model.RefreshToken
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hash, now).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (r *tokenRepository) RevokeBySubject(ctx context.Context, subjectID uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.RefreshToken{}).
		Where("subject_id = ? AND revoked_at IS NULL", subjectID).
		Update("revoked_at", at).Error
}
