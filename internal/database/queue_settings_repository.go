package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pixelarena/queue-backend/internal/models"
)

// QueueSettingsRepository handles the singleton queue settings row
type QueueSettingsRepository struct {
	db DB
}

// NewQueueSettingsRepository creates a new queue settings repository
func NewQueueSettingsRepository(db DB) *QueueSettingsRepository {
	return &QueueSettingsRepository{
		db: db,
	}
}

// Get retrieves the settings row. sql.ErrNoRows is passed through so the
// service layer can fall back to defaults explicitly.
func (r *QueueSettingsRepository) Get() (*models.QueueSettings, error) {
	var settings models.QueueSettings

	query := `
		SELECT id, is_active, allow_online_joining, max_queue_size, automatic_mode, updated_at
		FROM queue_settings
		WHERE id = 1
	`

	err := r.db.Get(&settings, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get queue settings: %w", err)
	}

	return &settings, nil
}

// Update applies partial settings changes and returns the updated row
func (r *QueueSettingsRepository) Update(req models.UpdateQueueSettingsRequest) (*models.QueueSettings, error) {
	query := `
		UPDATE queue_settings
		SET is_active = COALESCE($1, is_active),
		    allow_online_joining = COALESCE($2, allow_online_joining),
		    max_queue_size = COALESCE($3, max_queue_size),
		    automatic_mode = COALESCE($4, automatic_mode),
		    updated_at = $5
		WHERE id = 1
	`

	result, err := r.db.Exec(
		query,
		req.IsActive,
		req.AllowOnlineJoin,
		req.MaxQueueSize,
		req.AutomaticMode,
		time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update queue settings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("queue settings row not found")
	}

	return r.Get()
}
