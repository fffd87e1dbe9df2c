package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"codeauth/internal/entity"
	"codeauth/internal/repository"
	"codeauth/internal/repository/memory"
	"codeauth/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentCode struct {
	Email   string
	Purpose entity.VerificationPurpose
	Code    string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (s *recordingSender) SendVerificationCode(ctx context.Context, email string, purpose entity.VerificationPurpose, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentCode{Email: email, Purpose: purpose, Code: code})
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeAvatarStore struct {
	keys []string
	err  error
}

func (f *fakeAvatarStore) PutAvatar(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

// blockingCodeRepo never answers before the caller's deadline.
type blockingCodeRepo struct{}

func (blockingCodeRepo) Create(ctx context.Context, _ *entity.VerificationCode) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingCodeRepo) FindLatestActive(ctx context.Context, _ string, _ entity.VerificationPurpose, _ time.Time) (*entity.VerificationCode, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingCodeRepo) MarkUsed(ctx context.Context, _ uuid.UUID, _ time.Time) error {
	<-ctx.Done()
	return ctx.Err()
}

type brokenUserRepo struct {
	repository.UserRepository
}

func (brokenUserRepo) FindByEmail(context.Context, string) (*entity.User, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	svc      *AuthService
	users    *memory.UserRepo
	sessions *memory.SessionRepo
	codes    *memory.VerificationCodeRepo
	logs     *memory.SecurityLogRepo
	sender   *recordingSender
	avatars  *fakeAvatarStore
	clock    *fakeClock
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	users  repository.UserRepository
	codes  repository.VerificationCodeRepository
	cache  SessionCache
	avatar AvatarStore
	config AuthConfig
}

func withCodeRepo(r repository.VerificationCodeRepository) fixtureOption {
	return func(d *fixtureDeps) { d.codes = r }
}

func withUserRepo(r repository.UserRepository) fixtureOption {
	return func(d *fixtureDeps) { d.users = r }
}

func withSessionCache(c SessionCache) fixtureOption {
	return func(d *fixtureDeps) { d.cache = c }
}

func withoutAvatarStore() fixtureOption {
	return func(d *fixtureDeps) { d.avatar = nil }
}

func withConfig(cfg AuthConfig) fixtureOption {
	return func(d *fixtureDeps) { d.config = cfg }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		users:    memory.NewUserRepo(),
		sessions: memory.NewSessionRepo(),
		codes:    memory.NewVerificationCodeRepo(),
		logs:     memory.NewSecurityLogRepo(),
		sender:   &recordingSender{},
		avatars:  &fakeAvatarStore{},
		clock:    newFakeClock(),
	}
	deps := &fixtureDeps{
		users:  f.users,
		codes:  f.codes,
		avatar: f.avatars,
		config: AuthConfig{StoreTimeout: 200 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(deps)
	}

	manager := &utils.JWTManager{
		Secret: []byte("test-secret"),
		Issuer: "codeauth-test",
		Now:    f.clock.Now,
	}
	f.svc = NewAuthService(
		deps.users,
		f.sessions,
		deps.codes,
		f.logs,
		f.sender,
		nil,
		BcryptPasswordHasher{Cost: bcrypt.MinCost},
		JWTAccessIssuer{Manager: manager},
		deps.cache,
		deps.avatar,
		f.clock,
		nil,
		deps.config,
	)
	return f
}

// issue requests a code and returns it as read back from the store.
func (f *fixture) issue(t *testing.T, email string, purpose entity.VerificationPurpose) string {
	t.Helper()
	require.NoError(t, f.svc.IssueCode(context.Background(), IssueCodeInput{Email: email, Purpose: purpose}))
	row, ok := f.codes.Latest(utils.NormalizeEmail(email), purpose)
	require.True(t, ok)
	return row.Code
}

func (f *fixture) register(t *testing.T, email, password, name string) *AuthResult {
	t.Helper()
	code := f.issue(t, email, entity.PurposeRegister)
	result, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		Code:     code,
	})
	require.NoError(t, err)
	return result
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
