package repository

import (
	"context"
	"errors"

	"codeauth/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingAction = errors.New("security log entry has no action")

// SecurityLogRepository appends audit entries. Entries are never updated.
type SecurityLogRepository interface {
	Record(ctx context.Context, entry *entity.SecurityLog) error
}

type securityLogRepository struct {
	db *gorm.DB
}

func NewSecurityLogRepository(db *gorm.DB) SecurityLogRepository {
	return &securityLogRepository{db: db}
}

// Record inserts only the entry row; a preloaded User is never upserted.
func (r *securityLogRepository) Record(ctx context.Context, entry *entity.SecurityLog) error {
	if entry.Action == "" {
		return errMissingAction
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}
