package repository

import (
	"context"
	"errors"
	"time"

	"codeauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindActiveByID(ctx context.Context, id uuid.UUID, now time.Time) (*entity.Session, error)
	Revoke(ctx context.Context, sessionID uuid.UUID, now time.Time) error
	// RevokeAllByUser revokes every live session of the user except keep
	// (pass uuid.Nil to revoke all) and returns the revoked ids.
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, keep uuid.UUID, now time.Time) ([]uuid.UUID, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepository) FindActiveByID(ctx context.Context, id uuid.UUID, now time.Time) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", id, now).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", now).
		Error
}

func (r *sessionRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID, keep uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID)
	if keep != uuid.Nil {
		query = query.Where("id <> ?", keep)
	}

	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id IN ? AND revoked_at IS NULL", ids).
		Update("revoked_at", now).
		Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&entity.Session{})
	return result.RowsAffected, result.Error
}
