package memory

import (
	"context"
	"sync"

	"codeauth/internal/entity"
)

type SecurityLogRepo struct {
	mu   sync.Mutex
	logs []entity.SecurityLog
}

func NewSecurityLogRepo() *SecurityLogRepo {
	return &SecurityLogRepo{}
}

func (r *SecurityLogRepo) Record(ctx context.Context, entry *entity.SecurityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *SecurityLogRepo) Actions() []entity.SecurityAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := make([]entity.SecurityAction, 0, len(r.logs))
	for _, l := range r.logs {
		actions = append(actions, l.Action)
	}
	return actions
}
