package service

import (
	"io"

	"codeauth/internal/entity"

	"github.com/google/uuid"
)

// ClientInfo is recorded on sessions and audit rows.
type ClientInfo struct {
	IPAddress *string
	UserAgent *string
}

type IssueCodeInput struct {
	Email   string
	Purpose entity.VerificationPurpose
	Client  ClientInfo
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Code     string
	Client   ClientInfo
}

type PasswordLoginInput struct {
	Email    string
	Password string
	Client   ClientInfo
}

type CodeLoginInput struct {
	Email  string
	Code   string
	Client ClientInfo
}

type ResetPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
	Client      ClientInfo
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	Client          ClientInfo
}

type ChangeEmailInput struct {
	NewEmail string
	Code     string
	Client   ClientInfo
}

type AvatarUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

type AuthResult struct {
	User      *entity.User
	Token     string
	ExpiresIn int64
}

// Principal identifies the caller behind a verified access token.
type Principal struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
}
