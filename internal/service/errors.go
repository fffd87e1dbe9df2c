package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind groups errors by how the API layer reports them.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindRateLimited  ErrorKind = "rate_limited"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindUpstream     ErrorKind = "upstream"
	KindInternal     ErrorKind = "internal"
)

// AppError carries a stable machine code and a message that is safe to show
// to end users. Cause is for logs only.
type AppError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches on Code so wrapped copies still compare equal to the sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

var (
	ErrValidation           = &AppError{Kind: KindValidation, Code: "validation_error", Message: "invalid request"}
	ErrRateLimited          = &AppError{Kind: KindRateLimited, Code: "rate_limited", Message: "a code was sent recently, please wait before requesting another"}
	ErrInvalidCredentials   = &AppError{Kind: KindUnauthorized, Code: "invalid_credentials", Message: "invalid email or password"}
	ErrCodeInvalidOrExpired = &AppError{Kind: KindUnauthorized, Code: "code_invalid_or_expired", Message: "verification code is invalid or expired"}
	ErrUnauthorized         = &AppError{Kind: KindUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrConflict             = &AppError{Kind: KindConflict, Code: "email_already_registered", Message: "email already registered"}
	ErrUserNotFound         = &AppError{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrUpstreamUnavailable  = &AppError{Kind: KindUpstream, Code: "upstream_unavailable", Message: "service temporarily unavailable, please retry"}
	ErrAvatarStorage        = &AppError{Kind: KindUpstream, Code: "avatar_storage_unavailable", Message: "avatar storage is unavailable"}
	ErrInternal             = &AppError{Kind: KindInternal, Code: "internal_error", Message: "internal error"}
)

func invalidInput(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: ErrValidation.Code, Message: message}
}

func rateLimited(retryAfter time.Duration) *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Code:       ErrRateLimited.Code,
		Message:    ErrRateLimited.Message,
		RetryAfter: retryAfter,
	}
}

// upstream marks a store or delivery failure as retryable. Domain errors pass
// through untouched.
func upstream(cause error) error {
	var appErr *AppError
	if errors.As(cause, &appErr) {
		return cause
	}
	return &AppError{
		Kind:    KindUpstream,
		Code:    ErrUpstreamUnavailable.Code,
		Message: ErrUpstreamUnavailable.Message,
		Cause:   cause,
	}
}

func internal(cause error) error {
	return &AppError{Kind: KindInternal, Code: ErrInternal.Code, Message: ErrInternal.Message, Cause: cause}
}
