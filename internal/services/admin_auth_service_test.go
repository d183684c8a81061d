package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/pkg/jwt"
)

func newAdminAuthService(t *testing.T) (*AdminAuthService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := database.NewUserRepository(&mockDatabase{db: sqlx.NewDb(db, "sqlmock")})
	jwtService := jwt.NewService("test-secret", time.Hour)

	return NewAdminAuthService(userRepo, jwtService, time.Hour), mock
}

func TestStaffLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		svc, mock := newAdminAuthService(t)
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`FROM users`).
			WithArgs("frontdesk").
			WillReturnRows(userRows().AddRow(
				userID, "frontdesk", nil, nil, []byte(`{"staff"}`), string(hash), now, now,
			))

		resp, err := svc.Login(context.Background(), "frontdesk", "correct horse")
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
		assert.Equal(t, "frontdesk", resp.User.UserName)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrong Password", func(t *testing.T) {
		svc, mock := newAdminAuthService(t)
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`FROM users`).
			WithArgs("frontdesk").
			WillReturnRows(userRows().AddRow(
				userID, "frontdesk", nil, nil, []byte(`{"staff"}`), string(hash), now, now,
			))

		resp, err := svc.Login(context.Background(), "frontdesk", "wrong")
		assert.Error(t, err)
		assert.Nil(t, resp)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown User", func(t *testing.T) {
		svc, mock := newAdminAuthService(t)

		mock.ExpectQuery(`FROM users`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		resp, err := svc.Login(context.Background(), "ghost", "whatever")
		assert.Error(t, err)
		assert.Nil(t, resp)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Player Has No Console Access", func(t *testing.T) {
		svc, mock := newAdminAuthService(t)
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`FROM users`).
			WithArgs("alex").
			WillReturnRows(userRows().AddRow(
				userID, "alex", nil, nil, []byte(`{"player"}`), string(hash), now, now,
			))

		resp, err := svc.Login(context.Background(), "alex", "correct horse")
		assert.Error(t, err)
		assert.Nil(t, resp)
		assert.Contains(t, err.Error(), "console access")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("s3cret")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("other")))
}
