package memory

import (
	"context"
	"sync"
	"time"

	"codeauth/internal/entity"
	"codeauth/internal/repository"

	"github.com/google/uuid"
)

type codeKey struct {
	email   string
	purpose entity.VerificationPurpose
}

// VerificationCodeRepo keeps rows per (email, purpose) in insertion order.
type VerificationCodeRepo struct {
	mu    sync.Mutex
	codes map[codeKey][]*entity.VerificationCode
	now   func() time.Time
}

func NewVerificationCodeRepo() *VerificationCodeRepo {
	return &VerificationCodeRepo{
		codes: make(map[codeKey][]*entity.VerificationCode),
		now:   time.Now,
	}
}

func (r *VerificationCodeRepo) Create(ctx context.Context, c *entity.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	row := *c
	key := codeKey{email: c.Email, purpose: c.Purpose}
	r.codes[key] = append(r.codes[key], &row)
	return nil
}

func (r *VerificationCodeRepo) FindLatestActive(
	ctx context.Context,
	email string,
	purpose entity.VerificationPurpose,
	now time.Time,
) (*entity.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.codes[codeKey{email: email, purpose: purpose}]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Active(now) {
			found := *rows[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (r *VerificationCodeRepo) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rows := range r.codes {
		for _, row := range rows {
			if row.ID != id {
				continue
			}
			if row.IsUsed {
				return repository.ErrNotUpdated
			}
			row.IsUsed = true
			usedAt := now
			row.UsedAt = &usedAt
			return nil
		}
	}
	return repository.ErrNotUpdated
}

// Latest returns the newest row for the pair regardless of state.
func (r *VerificationCodeRepo) Latest(email string, purpose entity.VerificationPurpose) (*entity.VerificationCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.codes[codeKey{email: email, purpose: purpose}]
	if len(rows) == 0 {
		return nil, false
	}
	found := *rows[len(rows)-1]
	return &found, true
}

// Count returns how many rows were ever issued for the pair.
func (r *VerificationCodeRepo) Count(email string, purpose entity.VerificationPurpose) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes[codeKey{email: email, purpose: purpose}])
}
