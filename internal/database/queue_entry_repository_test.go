package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelarena/queue-backend/internal/models"
)

func newEntryRepo(t *testing.T) (*QueueEntryRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewQueueEntryRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func entryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "user_id", "phone_number", "computer_type",
		"position", "is_physical", "status", "notify_push", "notes", "created_at",
	})
}

func TestNextPosition(t *testing.T) {
	repo, mock := newEntryRepo(t)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT next_queue_position`).
			WillReturnRows(sqlmock.NewRows([]string{"next_queue_position"}).AddRow(4))

		position, err := repo.NextPosition()
		require.NoError(t, err)
		assert.Equal(t, 4, position)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT next_queue_position`).
			WillReturnError(fmt.Errorf("database error"))

		_, err := repo.NextPosition()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get next queue position")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInsertWaiting(t *testing.T) {
	repo, mock := newEntryRepo(t)

	newEntry := func(position int) *models.QueueEntry {
		return &models.QueueEntry{
			ID:           uuid.New(),
			UserName:     "alex",
			UserID:       uuid.NullUUID{UUID: uuid.New(), Valid: true},
			ComputerType: models.ComputerTypeTop,
			Position:     position,
			Status:       models.QueueStatusWaiting,
			NotifyPush:   true,
			CreatedAt:    time.Now(),
		}
	}

	t.Run("Success", func(t *testing.T) {
		entry := newEntry(3)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO queue_entries`).
			WithArgs(
				entry.ID, entry.UserName, entry.UserID, entry.PhoneNumber,
				entry.ComputerType, entry.Position, entry.IsPhysical,
				entry.Status, entry.NotifyPush, entry.Notes, entry.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.InsertWaiting(entry)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Position Held", func(t *testing.T) {
		entry := newEntry(3)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := repo.InsertWaiting(entry)
		assert.ErrorIs(t, err, ErrPositionTaken)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost Insert Race", func(t *testing.T) {
		entry := newEntry(3)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO queue_entries`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := repo.InsertWaiting(entry)
		assert.ErrorIs(t, err, ErrPositionTaken)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetWaitingByUserID(t *testing.T) {
	repo, mock := newEntryRepo(t)

	t.Run("Found", func(t *testing.T) {
		userID := uuid.New()
		entryID := uuid.New()

		mock.ExpectQuery(`FROM queue_entries`).
			WithArgs(userID).
			WillReturnRows(entryRows().AddRow(
				entryID, "alex", userID, nil, "top",
				2, false, "waiting", true, nil, time.Now(),
			))

		entry, err := repo.GetWaitingByUserID(userID)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, entryID, entry.ID)
		assert.Equal(t, 2, entry.Position)
		assert.Equal(t, "top", entry.ComputerType)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		userID := uuid.New()

		mock.ExpectQuery(`FROM queue_entries`).
			WithArgs(userID).
			WillReturnRows(entryRows())

		entry, err := repo.GetWaitingByUserID(userID)
		require.NoError(t, err)
		assert.Nil(t, entry)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListWaiting(t *testing.T) {
	repo, mock := newEntryRepo(t)

	t.Run("Ordered By Position", func(t *testing.T) {
		mock.ExpectQuery(`ORDER BY position ASC`).
			WillReturnRows(entryRows().
				AddRow(uuid.New(), "alex", uuid.New(), nil, "top", 1, false, "waiting", true, nil, time.Now()).
				AddRow(uuid.New(), "kim", nil, "+35799123456", "any", 2, true, "waiting", false, "walk-in", time.Now()))

		entries, err := repo.ListWaiting()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, 1, entries[0].Position)
		assert.Equal(t, 2, entries[1].Position)
		assert.True(t, entries[1].IsPhysical)
		assert.False(t, entries[1].UserID.Valid)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(`ORDER BY position ASC`).
			WillReturnRows(entryRows())

		entries, err := repo.ListWaiting()
		require.NoError(t, err)
		assert.Empty(t, entries)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	repo, mock := newEntryRepo(t)

	t.Run("Removes Row", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectExec(`DELETE FROM queue_entries`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rowsAffected, err := repo.Delete(id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rowsAffected)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Gone", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectExec(`DELETE FROM queue_entries`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		rowsAffected, err := repo.Delete(id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rowsAffected)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSwapPositions(t *testing.T) {
	repo, mock := newEntryRepo(t)

	movingID := uuid.New()
	targetID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Moving entry parks on the temp slot, target takes its place,
		// moving entry lands on the target slot.
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE queue_entries SET position`).
			WithArgs(5, movingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE queue_entries SET position`).
			WithArgs(2, targetID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE queue_entries SET position`).
			WithArgs(1, movingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SwapPositions(movingID, targetID, 2, 1, 5)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Entry Disappeared", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE queue_entries SET position`).
			WithArgs(5, movingID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SwapPositions(movingID, targetID, 2, 1, 5)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disappeared during swap")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
