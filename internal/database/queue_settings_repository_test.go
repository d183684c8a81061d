package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelarena/queue-backend/internal/models"
)

func settingsRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "is_active", "allow_online_joining", "max_queue_size", "automatic_mode", "updated_at",
	})
}

func TestGetQueueSettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueSettingsRepository(&mockDatabase{db: sqlx.NewDb(db, "sqlmock")})

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`FROM queue_settings`).
			WillReturnRows(settingsRows().AddRow(1, true, true, 15, false, time.Now()))

		settings, err := repo.Get()
		require.NoError(t, err)
		require.NotNil(t, settings)
		assert.True(t, settings.IsActive)
		assert.Equal(t, 15, settings.MaxQueueSize)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Row Missing", func(t *testing.T) {
		// sql.ErrNoRows passes through untouched so the service layer can
		// fall back to defaults
		mock.ExpectQuery(`FROM queue_settings`).
			WillReturnError(sql.ErrNoRows)

		settings, err := repo.Get()
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, settings)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateQueueSettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueSettingsRepository(&mockDatabase{db: sqlx.NewDb(db, "sqlmock")})

	boolPtr := func(v bool) *bool { return &v }
	intPtr := func(v int) *int { return &v }

	t.Run("Partial Update", func(t *testing.T) {
		req := models.UpdateQueueSettingsRequest{
			IsActive:     boolPtr(true),
			MaxQueueSize: intPtr(20),
		}

		mock.ExpectExec(`UPDATE queue_settings`).
			WithArgs(req.IsActive, nil, req.MaxQueueSize, nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM queue_settings`).
			WillReturnRows(settingsRows().AddRow(1, true, true, 20, false, time.Now()))

		settings, err := repo.Update(req)
		require.NoError(t, err)
		require.NotNil(t, settings)
		assert.True(t, settings.IsActive)
		assert.Equal(t, 20, settings.MaxQueueSize)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Row Missing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_settings`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		settings, err := repo.Update(models.UpdateQueueSettingsRequest{})
		assert.Error(t, err)
		assert.Nil(t, settings)
		assert.Contains(t, err.Error(), "queue settings row not found")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE queue_settings`).
			WillReturnError(fmt.Errorf("database error"))

		settings, err := repo.Update(models.UpdateQueueSettingsRequest{})
		assert.Error(t, err)
		assert.Nil(t, settings)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
