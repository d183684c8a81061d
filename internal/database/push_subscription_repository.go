package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelarena/queue-backend/internal/models"
)

// PushSubscriptionRepository handles registered web-push endpoints
type PushSubscriptionRepository struct {
	db DB
}

// NewPushSubscriptionRepository creates a new push subscription repository
func NewPushSubscriptionRepository(db DB) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{
		db: db,
	}
}

// GetByUserID returns all push endpoints registered for a user
func (r *PushSubscriptionRepository) GetByUserID(userID uuid.UUID) ([]*models.PushSubscription, error) {
	var subscriptions []*models.PushSubscription

	query := `
		SELECT id, user_id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		WHERE user_id = $1
	`

	err := r.db.Select(&subscriptions, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get push subscriptions: %w", err)
	}

	return subscriptions, nil
}

// Upsert registers or refreshes a push endpoint for a user
func (r *PushSubscriptionRepository) Upsert(sub *models.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, endpoint)
		DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
	`

	_, err := r.db.Exec(query, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}

	return nil
}

// DeleteByEndpoint drops a dead push endpoint
func (r *PushSubscriptionRepository) DeleteByEndpoint(userID uuid.UUID, endpoint string) error {
	_, err := r.db.Exec(
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`,
		userID,
		endpoint,
	)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}

	return nil
}
