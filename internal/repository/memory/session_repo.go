package memory

import (
	"context"
	"sync"
	"time"

	"codeauth/internal/entity"

	"github.com/google/uuid"
)

type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]entity.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[uuid.UUID]entity.Session)}
}

func (r *SessionRepo) Create(ctx context.Context, s *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *SessionRepo) FindActiveByID(ctx context.Context, id uuid.UUID, now time.Time) (*entity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok || !s.Active(now) {
		return nil, nil
	}
	return &s, nil
}

func (r *SessionRepo) Revoke(ctx context.Context, sessionID uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.RevokedAt != nil {
		return nil
	}
	revokedAt := now
	s.RevokedAt = &revokedAt
	r.sessions[sessionID] = s
	return nil
}

func (r *SessionRepo) RevokeAllByUser(ctx context.Context, userID uuid.UUID, keep uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked []uuid.UUID
	for id, s := range r.sessions {
		if s.UserID != userID || s.RevokedAt != nil || id == keep {
			continue
		}
		revokedAt := now
		s.RevokedAt = &revokedAt
		r.sessions[id] = s
		revoked = append(revoked, id)
	}
	return revoked, nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
