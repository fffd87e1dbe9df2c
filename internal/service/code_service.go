package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"codeauth/internal/entity"
	"codeauth/internal/metrics"
	"codeauth/internal/repository"
	"codeauth/internal/utils"

	"github.com/sirupsen/logrus"
)

const maxEmailLength = 255

// IssueCode persists a fresh code for (email, purpose) and hands it to the
// sender. Two concurrent calls may both pass the cooldown check; that race
// only costs an extra email and is accepted.
func (s *AuthService) IssueCode(ctx context.Context, input IssueCodeInput) error {
	email := utils.NormalizeEmail(input.Email)
	if email == "" || len(email) > maxEmailLength {
		return invalidInput("invalid email")
	}
	if !input.Purpose.Valid() {
		return invalidInput("invalid purpose")
	}

	now := s.now()
	latest, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.VerificationCode, error) {
		return s.codes.FindLatestActive(ctx, email, input.Purpose, now)
	})
	if err != nil {
		return s.upstream("find latest code", err)
	}
	if latest != nil {
		if elapsed := now.Sub(latest.CreatedAt); elapsed < s.codeCooldown() {
			metrics.RecordCodeRateLimited(string(input.Purpose))
			return rateLimited(s.codeCooldown() - elapsed)
		}
	}

	code, err := s.codeGen.Generate()
	if err != nil {
		return internal(err)
	}
	row := &entity.VerificationCode{
		Email:     email,
		Purpose:   input.Purpose,
		Code:      code,
		ExpiresAt: now.Add(s.codeTTL()),
		CreatedAt: now,
	}
	err = withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.codes.Create(ctx, row)
	})
	if err != nil {
		return s.upstream("create code", err)
	}

	metrics.RecordCodeIssued(string(input.Purpose))
	s.logSecurity(ctx, nil, input.Client.IPAddress, entity.CodeIssued, map[string]any{
		"email":   email,
		"purpose": input.Purpose,
	})
	s.deliver(ctx, email, input.Purpose, code)
	return nil
}

// VerifyCode consumes the newest active code for (email, purpose) if it
// matches. Every failure collapses to ErrCodeInvalidOrExpired.
func (s *AuthService) VerifyCode(ctx context.Context, email string, purpose entity.VerificationPurpose, code string) error {
	email = utils.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || !purpose.Valid() || !utils.IsNumericCode(code, CodeLength) {
		s.recordVerification(purpose, false)
		return ErrCodeInvalidOrExpired
	}

	now := s.now()
	active, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.VerificationCode, error) {
		return s.codes.FindLatestActive(ctx, email, purpose, now)
	})
	if err != nil {
		return s.upstream("find active code", err)
	}
	if active == nil || subtle.ConstantTimeCompare([]byte(active.Code), []byte(code)) != 1 {
		s.recordVerification(purpose, false)
		return ErrCodeInvalidOrExpired
	}

	err = withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.codes.MarkUsed(ctx, active.ID, now)
	})
	if errors.Is(err, repository.ErrNotUpdated) {
		s.recordVerification(purpose, false)
		return ErrCodeInvalidOrExpired
	}
	if err != nil {
		return s.upstream("mark code used", err)
	}
	s.recordVerification(purpose, true)
	return nil
}

// deliver sends the code in the background with its own deadline. A failed
// delivery leaves the stored row as it is.
func (s *AuthService) deliver(ctx context.Context, email string, purpose entity.VerificationPurpose, code string) {
	if s.codeSender == nil {
		return
	}
	ttl := s.codeTTL()
	deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deliveryTimeout())
	go func() {
		defer cancel()
		if err := s.codeSender.SendVerificationCode(deliveryCtx, email, purpose, code, ttl); err != nil {
			metrics.RecordCodeDeliveryFailed(string(purpose))
			s.logger.WithError(err).WithFields(logrus.Fields{
				"purpose": purpose,
			}).Warn("verification code delivery failed")
		}
	}()
}

func (s *AuthService) recordVerification(purpose entity.VerificationPurpose, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	metrics.RecordCodeVerification(string(purpose), result)
}
