package repository

import (
	"context"
	"errors"
	"time"

	"codeauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationCodeRepository interface {
	Create(ctx context.Context, code *entity.VerificationCode) error
	// FindLatestActive returns the newest unused, unexpired code for the pair,
	// or nil when there is none. Older active rows are superseded.
	FindLatestActive(ctx context.Context, email string, purpose entity.VerificationPurpose, now time.Time) (*entity.VerificationCode, error)
	// MarkUsed flips is_used only if it is still false. ErrNotUpdated means
	// another request consumed the code first.
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) error
}

type verificationCodeRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepository{db: db}
}

func (r *verificationCodeRepository) Create(ctx context.Context, c *entity.VerificationCode) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *verificationCodeRepository) FindLatestActive(
	ctx context.Context,
	email string,
	purpose entity.VerificationPurpose,
	now time.Time,
) (*entity.VerificationCode, error) {

	var code entity.VerificationCode
	err := r.db.WithContext(ctx).
		Where(`
			email = ? AND
			purpose = ? AND
			is_used = false AND
			expires_at > ?
		`, email, purpose, now).
		Order("created_at DESC").
		First(&code).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *verificationCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.VerificationCode{}).
		Where("id = ? AND is_used = false", id).
		Updates(map[string]any{"is_used": true, "used_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotUpdated
	}
	return nil
}
