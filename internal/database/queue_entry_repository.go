package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pixelarena/queue-backend/internal/models"
)

// ErrPositionTaken is returned when an insert loses the race for a queue
// position. Callers are expected to retry with a fresh position.
var ErrPositionTaken = errors.New("queue position already taken")

// QueueEntryRepository handles queue entry database operations.
// It takes *sqlx.DB rather than the DB interface because position
// assignment and reorder need transactions.
type QueueEntryRepository struct {
	db *sqlx.DB
}

// NewQueueEntryRepository creates a new queue entry repository
func NewQueueEntryRepository(db *sqlx.DB) *QueueEntryRepository {
	return &QueueEntryRepository{
		db: db,
	}
}

const queueEntryColumns = `
	id, username, user_id, phone_number, computer_type,
	position, is_physical, status, notify_push, notes, created_at
`

// NextPosition calls the store-side atomic next-position function
func (r *QueueEntryRepository) NextPosition() (int, error) {
	var position int

	err := r.db.QueryRow(`SELECT next_queue_position()`).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("failed to get next queue position: %w", err)
	}

	return position, nil
}

// MaxPosition returns the highest position among waiting entries, 0 if empty
func (r *QueueEntryRepository) MaxPosition() (int, error) {
	var position int

	query := `SELECT COALESCE(MAX(position), 0) FROM queue_entries WHERE status = 'waiting'`

	err := r.db.QueryRow(query).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("failed to get max queue position: %w", err)
	}

	return position, nil
}

// PositionTaken reports whether a waiting entry already holds the position
func (r *QueueEntryRepository) PositionTaken(position int) (bool, error) {
	var taken bool

	query := `SELECT EXISTS (SELECT 1 FROM queue_entries WHERE status = 'waiting' AND position = $1)`

	err := r.db.QueryRow(query, position).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check queue position: %w", err)
	}

	return taken, nil
}

// CountWaiting returns the number of waiting entries
func (r *QueueEntryRepository) CountWaiting() (int, error) {
	var count int

	query := `SELECT COUNT(*) FROM queue_entries WHERE status = 'waiting'`

	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count waiting entries: %w", err)
	}

	return count, nil
}

// ListWaiting returns all waiting entries ordered by position ascending
func (r *QueueEntryRepository) ListWaiting() ([]*models.QueueEntry, error) {
	var entries []*models.QueueEntry

	query := `
		SELECT ` + queueEntryColumns + `
		FROM queue_entries
		WHERE status = 'waiting'
		ORDER BY position ASC
	`

	err := r.db.Select(&entries, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting entries: %w", err)
	}

	return entries, nil
}

// GetWaitingByUserID retrieves a user's waiting entry, nil if none
func (r *QueueEntryRepository) GetWaitingByUserID(userID uuid.UUID) (*models.QueueEntry, error) {
	var entry models.QueueEntry

	query := `
		SELECT ` + queueEntryColumns + `
		FROM queue_entries
		WHERE status = 'waiting' AND user_id = $1
	`

	err := r.db.Get(&entry, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get waiting entry by user: %w", err)
	}

	return &entry, nil
}

// GetWaitingByID retrieves a waiting entry by its id, nil if none
func (r *QueueEntryRepository) GetWaitingByID(id uuid.UUID) (*models.QueueEntry, error) {
	var entry models.QueueEntry

	query := `
		SELECT ` + queueEntryColumns + `
		FROM queue_entries
		WHERE status = 'waiting' AND id = $1
	`

	err := r.db.Get(&entry, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get waiting entry: %w", err)
	}

	return &entry, nil
}

// GetWaitingByPosition retrieves the waiting entry holding a position, nil if none
func (r *QueueEntryRepository) GetWaitingByPosition(position int) (*models.QueueEntry, error) {
	var entry models.QueueEntry

	query := `
		SELECT ` + queueEntryColumns + `
		FROM queue_entries
		WHERE status = 'waiting' AND position = $1
	`

	err := r.db.Get(&entry, query, position)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get waiting entry by position: %w", err)
	}

	return &entry, nil
}

// InsertWaiting inserts a new waiting entry. The position free-check and the
// insert share one transaction so the forced-placement path cannot violate
// position uniqueness. Returns ErrPositionTaken if the position is held.
func (r *QueueEntryRepository) InsertWaiting(entry *models.QueueEntry) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	var taken bool
	err = tx.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM queue_entries WHERE status = 'waiting' AND position = $1)`,
		entry.Position,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to verify queue position: %w", err)
	}
	if taken {
		return ErrPositionTaken
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO queue_entries (
			id, username, user_id, phone_number, computer_type,
			position, is_physical, status, notify_push, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.Exec(
		query,
		entry.ID,
		entry.UserName,
		entry.UserID,
		entry.PhoneNumber,
		entry.ComputerType,
		entry.Position,
		entry.IsPhysical,
		entry.Status,
		entry.NotifyPush,
		entry.Notes,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPositionTaken
		}
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrPositionTaken
		}
		return fmt.Errorf("failed to commit queue entry: %w", err)
	}

	return nil
}

// Delete removes an entry and reports how many rows went away.
// Zero rows is not an error: concurrent removal paths tolerate each other.
func (r *QueueEntryRepository) Delete(id uuid.UUID) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM queue_entries WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete queue entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// SwapPositions swaps two waiting entries' positions in one transaction,
// routing the moving entry through a temporary slot so position uniqueness
// holds at every instant.
func (r *QueueEntryRepository) SwapPositions(movingID, targetID uuid.UUID, movingPos, targetPos, tempPos int) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin swap transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		id       uuid.UUID
		position int
	}{
		{movingID, tempPos},
		{targetID, movingPos},
		{movingID, targetPos},
	}

	for _, step := range steps {
		result, err := tx.Exec(
			`UPDATE queue_entries SET position = $1 WHERE id = $2 AND status = 'waiting'`,
			step.position,
			step.id,
		)
		if err != nil {
			return fmt.Errorf("failed to move queue entry: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("queue entry %s disappeared during swap", step.id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit position swap: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint error
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
