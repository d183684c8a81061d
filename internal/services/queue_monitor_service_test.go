package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/pkg/gizmo"
	"github.com/pixelarena/queue-backend/pkg/webpush"
)

// fakeSessionSource serves a canned session list and records calls
type fakeSessionSource struct {
	sessions []gizmo.ActiveSession
	err      error
	calls    int
}

func (f *fakeSessionSource) ActiveSessions(ctx context.Context) ([]gizmo.ActiveSession, error) {
	f.calls++
	return f.sessions, f.err
}

func newMonitorService(t *testing.T, sessions *fakeSessionSource) (*QueueMonitorService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	mockDB := &mockDatabase{db: sqlxDB}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	entries := database.NewQueueEntryRepository(sqlxDB)
	users := database.NewUserRepository(mockDB)
	subscriptions := database.NewPushSubscriptionRepository(mockDB)
	notifier := NewNotificationService(entries, subscriptions, webpush.NoopSender{}, nil, logger)

	return NewQueueMonitorService(entries, users, sessions, notifier, logger), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "phone", "gizmo_id", "roles", "password_hash", "created_at", "updated_at",
	})
}

func TestRemoveUserFromQueueByGizmoID(t *testing.T) {
	t.Run("Removes Linked User", func(t *testing.T) {
		svc, mock := newMonitorService(t, &fakeSessionSource{})
		userID := uuid.New()
		entryID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`FROM users`).
			WithArgs(int64(42)).
			WillReturnRows(userRows().AddRow(
				userID, "alex", nil, int64(42), []byte(`{"player"}`), nil, now, now,
			))
		mock.ExpectQuery(`FROM queue_entries`).
			WithArgs(userID).
			WillReturnRows(entryRows().AddRow(
				entryID, "alex", userID, nil, "top",
				2, false, "waiting", true, nil, now,
			))
		mock.ExpectExec(`DELETE FROM queue_entries`).
			WithArgs(entryID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectNoSubscriptions(mock)

		removed, err := svc.RemoveUserFromQueueByGizmoID(42, "session_login")
		require.NoError(t, err)
		assert.True(t, removed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unlinked Session Is A No-Op", func(t *testing.T) {
		svc, mock := newMonitorService(t, &fakeSessionSource{})

		mock.ExpectQuery(`FROM users`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		removed, err := svc.RemoveUserFromQueueByGizmoID(99, "session_login")
		require.NoError(t, err)
		assert.False(t, removed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("User Not In Queue Is A No-Op", func(t *testing.T) {
		svc, mock := newMonitorService(t, &fakeSessionSource{})
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`FROM users`).
			WithArgs(int64(42)).
			WillReturnRows(userRows().AddRow(
				userID, "alex", nil, int64(42), []byte(`{"player"}`), nil, now, now,
			))
		mock.ExpectQuery(`FROM queue_entries`).
			WithArgs(userID).
			WillReturnError(sql.ErrNoRows)

		removed, err := svc.RemoveUserFromQueueByGizmoID(42, "session_login")
		require.NoError(t, err)
		assert.False(t, removed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Concurrent Removal Already Won", func(t *testing.T) {
		// The sweep and the login event race for the same entry; the
		// loser sees zero rows deleted and treats it as done
		svc, mock := newMonitorService(t, &fakeSessionSource{})
		userID := uuid.New()
		entryID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`FROM users`).
			WithArgs(int64(42)).
			WillReturnRows(userRows().AddRow(
				userID, "alex", nil, int64(42), []byte(`{"player"}`), nil, now, now,
			))
		mock.ExpectQuery(`FROM queue_entries`).
			WithArgs(userID).
			WillReturnRows(entryRows().AddRow(
				entryID, "alex", userID, nil, "top",
				2, false, "waiting", true, nil, now,
			))
		mock.ExpectExec(`DELETE FROM queue_entries`).
			WithArgs(entryID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		removed, err := svc.RemoveUserFromQueueByGizmoID(42, "active session sweep")
		require.NoError(t, err)
		assert.False(t, removed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSweepActiveSessions(t *testing.T) {
	t.Run("Empty Queue Skips The API Call", func(t *testing.T) {
		sessions := &fakeSessionSource{}
		svc, mock := newMonitorService(t, sessions)

		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		svc.SweepActiveSessions(context.Background())
		assert.Equal(t, 0, sessions.calls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Removes Entries For Active Sessions", func(t *testing.T) {
		userID := uuid.New()
		entryID := uuid.New()
		now := time.Now()

		sessions := &fakeSessionSource{
			sessions: []gizmo.ActiveSession{
				{UserSessionID: 1, UserID: 42, HostID: 7},
				{UserSessionID: 2, UserID: 99, HostID: 8},
			},
		}
		svc, mock := newMonitorService(t, sessions)

		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		// Session 42 maps to a queued user
		mock.ExpectQuery(`FROM users`).
			WithArgs(int64(42)).
			WillReturnRows(userRows().AddRow(
				userID, "alex", nil, int64(42), []byte(`{"player"}`), nil, now, now,
			))
		mock.ExpectQuery(`FROM queue_entries`).
			WithArgs(userID).
			WillReturnRows(entryRows().AddRow(
				entryID, "alex", userID, nil, "any",
				1, false, "waiting", true, nil, now,
			))
		mock.ExpectExec(`DELETE FROM queue_entries`).
			WithArgs(entryID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectNoSubscriptions(mock)

		// Session 99 has no linked account
		mock.ExpectQuery(`FROM users`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		svc.SweepActiveSessions(context.Background())
		assert.Equal(t, 1, sessions.calls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Session Fetch Failure Is Tolerated", func(t *testing.T) {
		sessions := &fakeSessionSource{err: fmt.Errorf("gizmo unreachable")}
		svc, mock := newMonitorService(t, sessions)

		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		svc.SweepActiveSessions(context.Background())
		assert.Equal(t, 1, sessions.calls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// mockDatabase adapts a sqlmock-backed sqlx handle to the database.DB interface
type mockDatabase struct {
	db *sqlx.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return m.db.Get(dest, query, args...)
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return m.db.Select(dest, query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}
