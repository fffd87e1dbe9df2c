package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"codeauth/internal/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func TestVerificationCodeRepository_MarkUsed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVerificationCodeRepository(db)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "verification_codes" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkUsed(context.Background(), id, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationCodeRepository_MarkUsed_AlreadyConsumed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVerificationCodeRepository(db)

	mock.ExpectExec(`UPDATE "verification_codes" SET .* WHERE id = .* AND is_used = false`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkUsed(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrNotUpdated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationCodeRepository_FindLatestActive(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVerificationCodeRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "email", "purpose", "code", "expires_at", "is_used", "used_at", "created_at"}).
		AddRow(id, "a@x.com", "login", "012345", now.Add(10*time.Minute), false, nil, now)
	mock.ExpectQuery(`SELECT \* FROM "verification_codes" WHERE .*ORDER BY created_at DESC`).
		WithArgs("a@x.com", entity.PurposeLogin, now, 1).
		WillReturnRows(rows)

	code, err := repo.FindLatestActive(context.Background(), "a@x.com", entity.PurposeLogin, now)
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, id, code.ID)
	assert.Equal(t, "012345", code.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationCodeRepository_FindLatestActive_None(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVerificationCodeRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "verification_codes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	code, err := repo.FindLatestActive(context.Background(), "a@x.com", entity.PurposeLogin, time.Now())
	require.NoError(t, err)
	assert.Nil(t, code)
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &entity.User{Email: "a@x.com", PasswordHash: "h", Name: "Ann"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WithArgs("a@x.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_RevokeAllByUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSessionRepository(db)
	userID, keep, other := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT "id" FROM "sessions" WHERE .*user_id = .*id <> `).
		WithArgs(userID, keep).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(other))
	mock.ExpectExec(`UPDATE "sessions" SET "revoked_at"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ids, err := repo.RevokeAllByUser(context.Background(), userID, keep, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_RevokeAllByUser_NothingToRevoke(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT "id" FROM "sessions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, err := repo.RevokeAllByUser(context.Background(), uuid.New(), uuid.Nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec(`DELETE FROM "sessions" WHERE expires_at < \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSecurityLogRepository_RecordSkipsAssociations(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSecurityLogRepository(db)
	userID := uuid.New()

	mock.ExpectExec(`INSERT INTO "security_logs"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Record(context.Background(), &entity.SecurityLog{
		UserID: &userID,
		User:   &entity.User{ID: userID, Email: "a@x.com"},
		Action: entity.LoginSuccess,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityLogRepository_RecordRequiresAction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSecurityLogRepository(db)

	err := repo.Record(context.Background(), &entity.SecurityLog{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
