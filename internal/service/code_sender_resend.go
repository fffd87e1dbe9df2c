package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeauth/internal/entity"

	"github.com/resend/resend-go/v2"
)

var errSenderNotConfigured = errors.New("email sender not configured")

type ResendCodeSender struct {
	client *resend.Client
	From   string
}

func NewResendCodeSender(apiKey string, from string) *ResendCodeSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendCodeSender{}
	}
	return &ResendCodeSender{
		client: resend.NewClient(apiKey),
		From:   from,
	}
}

func (s *ResendCodeSender) SendVerificationCode(ctx context.Context, email string, purpose entity.VerificationPurpose, code string, ttl time.Duration) error {
	if s.client == nil {
		return errSenderNotConfigured
	}
	subject, html, text := renderCodeEmail(purpose, code, ttl)
	request := &resend.SendEmailRequest{
		From:    s.From,
		To:      []string{email},
		Subject: subject,
		Html:    html,
		Text:    text,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, request); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func renderCodeEmail(purpose entity.VerificationPurpose, code string, ttl time.Duration) (string, string, string) {
	var subject, action string
	switch purpose {
	case entity.PurposeRegister:
		subject, action = "Confirm your email", "finish creating your account"
	case entity.PurposeChangeEmail:
		subject, action = "Confirm your new email", "confirm your new email address"
	case entity.PurposeResetPassword:
		subject, action = "Reset your password", "reset your password"
	default:
		subject, action = "Your sign-in code", "sign in"
	}
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	html := fmt.Sprintf("<p>Use this code to %s:</p><p><strong>%s</strong></p><p>It expires in %d minutes.</p>", action, code, minutes)
	text := fmt.Sprintf("Use this code to %s: %s (expires in %d minutes)", action, code, minutes)
	return subject, html, text
}
