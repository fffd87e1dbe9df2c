package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"codeauth/internal/entity"
	"codeauth/internal/metrics"
	"codeauth/internal/repository"
	"codeauth/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type AuthService struct {
	users        repository.UserRepository
	sessions     repository.SessionRepository
	codes        repository.VerificationCodeRepository
	securityLogs repository.SecurityLogRepository

	codeSender   CodeSender
	codeGen      CodeGenerator
	passwordHash PasswordHasher
	accessTokens AccessTokens
	sessionCache SessionCache
	avatars      AvatarStore
	clock        Clock
	logger       logrus.FieldLogger
	config       AuthConfig

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	codes repository.VerificationCodeRepository,
	securityLogs repository.SecurityLogRepository,
	codeSender CodeSender,
	codeGen CodeGenerator,
	passwordHash PasswordHasher,
	accessTokens AccessTokens,
	sessionCache SessionCache,
	avatars AvatarStore,
	clock Clock,
	logger logrus.FieldLogger,
	config AuthConfig,
) *AuthService {
	if logger == nil {
		silent := logrus.New()
		silent.Out = io.Discard
		logger = silent
	}
	if codeGen == nil {
		codeGen = RandomCodeGenerator{}
	}
	return &AuthService{
		users:        users,
		sessions:     sessions,
		codes:        codes,
		securityLogs: securityLogs,
		codeSender:   codeSender,
		codeGen:      codeGen,
		passwordHash: passwordHash,
		accessTokens: accessTokens,
		sessionCache: sessionCache,
		avatars:      avatars,
		clock:        clock,
		logger:       logger,
		config:       config,
	}
}

const (
	minNameLength = 2
	maxNameLength = 50
)

// normalizeName trims surrounding whitespace and checks the rune length of
// what will be stored.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return "", invalidInput("name must be 2 to 50 characters")
	}
	return name, nil
}

// Register consumes the register code before checking for an existing
// account, so a code spent on a duplicate email cannot be replayed.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := utils.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrValidation
	}
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}

	if err := s.VerifyCode(ctx, email, entity.PurposeRegister, input.Code); err != nil {
		return nil, err
	}

	existing, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.User, error) {
		return s.users.FindByEmail(ctx, email)
	})
	if err != nil {
		return nil, s.upstream("find user by email", err)
	}
	if existing != nil {
		return nil, ErrConflict
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, internal(err)
	}

	user := &entity.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		EmailVerified: true,
	}
	err = withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, s.upstream("create user", err)
	}

	result, err := s.issueSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}
	s.logSecurity(ctx, &user.ID, input.Client.IPAddress, entity.Registered, nil)
	return result, nil
}

func (s *AuthService) LoginWithPassword(ctx context.Context, input PasswordLoginInput) (*AuthResult, error) {
	user, err := s.VerifyPassword(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.RecordLogin("password", "rejected")
			s.logSecurity(ctx, nil, input.Client.IPAddress, entity.LoginFailed, map[string]any{"method": "password"})
		}
		return nil, err
	}

	result, err := s.issueSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}
	metrics.RecordLogin("password", "accepted")
	s.logSecurity(ctx, &user.ID, input.Client.IPAddress, entity.LoginSuccess, map[string]any{"method": "password"})
	return result, nil
}

// VerifyPassword never tells a missing account apart from a wrong password.
// A missing account still pays for one bcrypt comparison.
func (s *AuthService) VerifyPassword(ctx context.Context, email string, password string) (*entity.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.User, error) {
		return s.users.FindByEmail(ctx, email)
	})
	if err != nil {
		return nil, s.upstream("find user by email", err)
	}
	if user == nil || user.PasswordHash == "" {
		_ = s.passwordHash.Verify(s.dummyPasswordHash(), password)
		return nil, ErrInvalidCredentials
	}
	if !s.passwordHash.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// LoginWithCode reports an unknown account with the same error as a bad code.
func (s *AuthService) LoginWithCode(ctx context.Context, input CodeLoginInput) (*AuthResult, error) {
	email := utils.NormalizeEmail(input.Email)
	if err := s.VerifyCode(ctx, email, entity.PurposeLogin, input.Code); err != nil {
		if errors.Is(err, ErrCodeInvalidOrExpired) {
			metrics.RecordLogin("code", "rejected")
		}
		return nil, err
	}

	user, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.User, error) {
		return s.users.FindByEmail(ctx, email)
	})
	if err != nil {
		return nil, s.upstream("find user by email", err)
	}
	if user == nil {
		metrics.RecordLogin("code", "rejected")
		s.logSecurity(ctx, nil, input.Client.IPAddress, entity.LoginFailed, map[string]any{"method": "code"})
		return nil, ErrCodeInvalidOrExpired
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		err := withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
			return s.users.Update(ctx, user)
		})
		if err != nil {
			return nil, s.upstream("mark email verified", err)
		}
	}

	result, err := s.issueSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}
	metrics.RecordLogin("code", "accepted")
	s.logSecurity(ctx, &user.ID, input.Client.IPAddress, entity.LoginSuccess, map[string]any{"method": "code"})
	return result, nil
}

func (s *AuthService) Logout(ctx context.Context, principal Principal, client ClientInfo) error {
	err := withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.sessions.Revoke(ctx, principal.SessionID, s.now())
	})
	if err != nil {
		return s.upstream("revoke session", err)
	}
	s.forgetSessions(ctx, principal.SessionID)
	s.logSecurity(ctx, &principal.UserID, client.IPAddress, entity.Logout, nil)
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, principal Principal, client ClientInfo) error {
	if err := s.revokeUserSessions(ctx, principal.UserID, uuid.Nil); err != nil {
		return err
	}
	s.logSecurity(ctx, &principal.UserID, client.IPAddress, entity.SessionRevoked, map[string]any{"scope": "all"})
	return nil
}

// ResetPassword sets a new password after a reset-password code and revokes
// every session of the account.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	email := utils.NormalizeEmail(input.Email)
	if email == "" || input.NewPassword == "" {
		return ErrValidation
	}
	if err := s.VerifyCode(ctx, email, entity.PurposeResetPassword, input.Code); err != nil {
		return err
	}

	user, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.User, error) {
		return s.users.FindByEmail(ctx, email)
	})
	if err != nil {
		return s.upstream("find user by email", err)
	}
	if user == nil {
		return ErrCodeInvalidOrExpired
	}

	if err := s.setPassword(ctx, user, input.NewPassword); err != nil {
		return err
	}
	if err := s.revokeUserSessions(ctx, user.ID, uuid.Nil); err != nil {
		return err
	}
	s.logSecurity(ctx, &user.ID, input.Client.IPAddress, entity.PasswordReset, nil)
	return nil
}

// Authenticate resolves a bearer token to a live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	if s.accessTokens == nil || strings.TrimSpace(token) == "" {
		return Principal{}, ErrUnauthorized
	}
	claims, err := s.accessTokens.ParseAccessToken(token)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	principal := Principal{UserID: userID, SessionID: sessionID}

	if s.sessionCache != nil {
		cachedUser, found, err := s.sessionCache.Lookup(ctx, sessionID)
		if err != nil {
			s.logger.WithError(err).Warn("session cache lookup failed")
		} else if found {
			if cachedUser != userID {
				return Principal{}, ErrUnauthorized
			}
			return principal, nil
		}
	}

	now := s.now()
	session, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.Session, error) {
		return s.sessions.FindActiveByID(ctx, sessionID, now)
	})
	if err != nil {
		return Principal{}, s.upstream("find session", err)
	}
	if session == nil || session.UserID != userID {
		return Principal{}, ErrUnauthorized
	}
	s.rememberSession(ctx, session, now)
	return principal, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *entity.User, client ClientInfo) (*AuthResult, error) {
	if s.accessTokens == nil {
		return nil, internal(errors.New("access token issuer not configured"))
	}
	now := s.now()
	session := &entity.Session{
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		ExpiresAt: now.Add(s.accessTokenTTL()),
		CreatedAt: now,
	}
	err := withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		return nil, s.upstream("create session", err)
	}

	token, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, internal(err)
	}
	s.rememberSession(ctx, session, now)

	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresIn: int64(expiresIn.Seconds()),
	}, nil
}

func (s *AuthService) revokeUserSessions(ctx context.Context, userID uuid.UUID, keep uuid.UUID) error {
	revoked, err := within(ctx, s.storeTimeout(), func(ctx context.Context) ([]uuid.UUID, error) {
		return s.sessions.RevokeAllByUser(ctx, userID, keep, s.now())
	})
	if err != nil {
		return s.upstream("revoke user sessions", err)
	}
	s.forgetSessions(ctx, revoked...)
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, user *entity.User, password string) error {
	hash, err := s.passwordHash.Hash(password)
	if err != nil {
		return internal(err)
	}
	user.PasswordHash = hash
	err = withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return s.upstream("update password", err)
	}
	return nil
}

func (s *AuthService) rememberSession(ctx context.Context, session *entity.Session, now time.Time) {
	if s.sessionCache == nil {
		return
	}
	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return
	}
	if err := s.sessionCache.Remember(ctx, session.ID, session.UserID, ttl); err != nil {
		s.logger.WithError(err).Warn("session cache write failed")
	}
}

func (s *AuthService) forgetSessions(ctx context.Context, ids ...uuid.UUID) {
	if s.sessionCache == nil || len(ids) == 0 {
		return
	}
	if err := s.sessionCache.Forget(ctx, ids...); err != nil {
		s.logger.WithError(err).Warn("session cache eviction failed")
	}
}

func (s *AuthService) logSecurity(
	ctx context.Context,
	userID *uuid.UUID,
	ipAddress *string,
	action entity.SecurityAction,
	metadata map[string]any,
) {
	if s.securityLogs == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			s.logger.WithError(err).Warn("encode security log metadata")
			return
		}
		payload = datatypes.JSON(bytes)
	}

	log := &entity.SecurityLog{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
		CreatedAt: s.now(),
	}
	err := withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.securityLogs.Record(ctx, log)
	})
	if err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("security log write failed")
	}
}

// upstream logs the store failure with its operation and hides it behind a
// generic retryable error.
func (s *AuthService) upstream(op string, err error) error {
	wrapped := upstream(err)
	var appErr *AppError
	if errors.As(wrapped, &appErr) && appErr.Kind == KindUpstream {
		s.logger.WithError(err).WithField("op", op).Error("store call failed")
	}
	return wrapped
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.passwordHash.Hash("codeauth-timing-equalizer")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *AuthService) accessTokenTTL() time.Duration {
	if s.config.AccessTokenTTL > 0 {
		return s.config.AccessTokenTTL
	}
	return 24 * time.Hour
}

func (s *AuthService) codeTTL() time.Duration {
	if s.config.CodeTTL > 0 {
		return s.config.CodeTTL
	}
	return 10 * time.Minute
}

func (s *AuthService) codeCooldown() time.Duration {
	if s.config.CodeCooldown > 0 {
		return s.config.CodeCooldown
	}
	return time.Minute
}

func (s *AuthService) storeTimeout() time.Duration {
	if s.config.StoreTimeout > 0 {
		return s.config.StoreTimeout
	}
	return 3 * time.Second
}

func (s *AuthService) deliveryTimeout() time.Duration {
	if s.config.DeliveryTimeout > 0 {
		return s.config.DeliveryTimeout
	}
	return 10 * time.Second
}

// within bounds a single store call by d.
func within[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func withinErr(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
