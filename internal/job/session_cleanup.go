package job

import (
	"context"
	"time"

	"codeauth/internal/metrics"

	"github.com/sirupsen/logrus"
)

type expiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionCleanupJob removes sessions whose expiry passed more than Retention ago.
type SessionCleanupJob struct {
	Sessions  expiredSessionDeleter
	Retention time.Duration
	Now       func() time.Time
	Logger    logrus.FieldLogger
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	deleted, err := j.Sessions.DeleteExpired(ctx, now().Add(-j.Retention))
	if err != nil {
		return err
	}
	metrics.RecordSessionsPurged(deleted)
	if deleted > 0 && j.Logger != nil {
		j.Logger.WithField("deleted", deleted).Info("expired sessions purged")
	}
	return nil
}
