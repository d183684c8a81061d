package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pixelarena/queue-backend/internal/models"
)

// UserRepository handles gaming-center account database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

const userColumns = `
	id, username, phone, gizmo_id, roles, password_hash, created_at, updated_at
`

// CreateUser creates a new account with the default player role
func (r *UserRepository) CreateUser(username, phone string) (*models.User, error) {
	user := &models.User{
		ID:        uuid.New(),
		UserName:  username,
		Roles:     []string{"player"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if phone != "" {
		user.Phone = models.NullString{NullString: sql.NullString{String: phone, Valid: true}}
	}

	query := `
		INSERT INTO users (id, username, phone, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(
		query,
		user.ID,
		user.UserName,
		user.Phone,
		pq.Array(user.Roles),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves an account by ID, nil if not found
func (r *UserRepository) GetUserByID(id uuid.UUID) (*models.User, error) {
	var user models.User

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	err := r.db.Get(&user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// GetUserByGizmoID resolves a center-management account reference to an
// internal account, nil if no account is linked to that reference.
func (r *UserRepository) GetUserByGizmoID(gizmoID int64) (*models.User, error) {
	var user models.User

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE gizmo_id = $1
	`

	err := r.db.Get(&user, query, gizmoID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by gizmo ID: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves an account by username, nil if not found
func (r *UserRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1
	`

	err := r.db.Get(&user, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &user, nil
}

// LinkGizmoAccount attaches a center-management account reference to a user
func (r *UserRepository) LinkGizmoAccount(id uuid.UUID, gizmoID int64) error {
	query := `
		UPDATE users
		SET gizmo_id = $1,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, gizmoID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to link gizmo account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}
