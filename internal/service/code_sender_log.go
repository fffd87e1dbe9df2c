package service

import (
	"context"
	"time"

	"codeauth/internal/entity"

	"github.com/sirupsen/logrus"
)

// LogCodeSender prints codes to the log. Local development only.
type LogCodeSender struct {
	Logger logrus.FieldLogger
}

func (s LogCodeSender) SendVerificationCode(ctx context.Context, email string, purpose entity.VerificationPurpose, code string, ttl time.Duration) error {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"email":   email,
		"purpose": purpose,
		"code":    code,
		"ttl":     ttl.String(),
	}).Info("verification code (log driver)")
	return nil
}
