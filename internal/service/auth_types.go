package service

import (
	"context"
	"io"
	"time"

	"codeauth/internal/entity"
	"codeauth/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	AccessTokenTTL  time.Duration
	CodeTTL         time.Duration
	CodeCooldown    time.Duration
	StoreTimeout    time.Duration
	DeliveryTimeout time.Duration
}

// CodeSender delivers an issued code to its address.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, email string, purpose entity.VerificationPurpose, code string, ttl time.Duration) error
}

type CodeGenerator interface {
	Generate() (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

type AccessTokens interface {
	IssueAccessToken(user entity.User, sessionID uuid.UUID) (string, time.Duration, error)
	ParseAccessToken(token string) (*utils.AccessClaims, error)
}

// SessionCache remembers live sessions so authenticated requests can skip
// the session table. A miss always falls back to the store.
type SessionCache interface {
	Remember(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID, ttl time.Duration) error
	Lookup(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, bool, error)
	Forget(ctx context.Context, sessionIDs ...uuid.UUID) error
}

type AvatarStore interface {
	PutAvatar(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
