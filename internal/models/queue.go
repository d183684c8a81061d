package models

import (
	"time"

	"github.com/google/uuid"
)

// Computer zones a queue entry can wait for. Entries with an unknown or
// empty type are treated as ComputerTypeAny when read back.
const (
	ComputerTypeAny    = "any"
	ComputerTypeTop    = "top"
	ComputerTypeBottom = "bottom"
)

// Queue entry lifecycle. Waiting rows are deleted outright on leave or
// auto-removal; the column exists so historical rows can be kept later
// without a schema change.
const (
	QueueStatusWaiting = "waiting"
	QueueStatusRemoved = "removed"
)

// ValidComputerType reports whether t is a recognized zone value
func ValidComputerType(t string) bool {
	return t == ComputerTypeAny || t == ComputerTypeTop || t == ComputerTypeBottom
}

// NormalizeComputerType maps unknown or legacy type values to "any"
func NormalizeComputerType(t string) string {
	if ValidComputerType(t) {
		return t
	}
	return ComputerTypeAny
}

// QueueEntry represents one person waiting for a computer.
// Position is unique among waiting entries and strictly defines serving
// order; gaps are allowed after removals.
type QueueEntry struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	UserName     string        `json:"username" db:"username"`
	UserID       uuid.NullUUID `json:"user_id,omitempty" db:"user_id"`
	PhoneNumber  NullString    `json:"phone_number,omitempty" db:"phone_number"`
	ComputerType string        `json:"computer_type" db:"computer_type"`
	Position     int           `json:"position" db:"position"`
	IsPhysical   bool          `json:"is_physical" db:"is_physical"`
	Status       string        `json:"status" db:"status"`
	NotifyPush   bool          `json:"notify_push" db:"notify_push"`
	Notes        NullString    `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// QueueSettings is the singleton configuration row for the queue feature
type QueueSettings struct {
	ID              int       `json:"id" db:"id"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	AllowOnlineJoin bool      `json:"allow_online_joining" db:"allow_online_joining"`
	MaxQueueSize    int       `json:"max_queue_size" db:"max_queue_size"`
	AutomaticMode   bool      `json:"automatic_mode" db:"automatic_mode"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultQueueSettings is the safe fallback when the settings row cannot be
// read: the feature presents as inactive but still joinable, so status reads
// never hard-fail for ordinary callers.
func DefaultQueueSettings() QueueSettings {
	return QueueSettings{
		ID:              1,
		IsActive:        false,
		AllowOnlineJoin: true,
		MaxQueueSize:    10,
		AutomaticMode:   false,
	}
}

// QueueStatus is the derived aggregate returned by status queries.
// The per-zone counts are informational; zone eligibility is decided by
// scanning the ordered entry list, never by these buckets.
type QueueStatus struct {
	IsActive         bool `json:"is_active"`
	AllowOnlineJoin  bool `json:"allow_online_joining"`
	MaxQueueSize     int  `json:"max_queue_size"`
	CurrentQueueSize int  `json:"current_queue_size"`
	AnyQueueCount    int  `json:"any_queue_count"`
	TopQueueCount    int  `json:"top_queue_count"`
	BottomQueueCount int  `json:"bottom_queue_count"`
}

// PushSubscription is one registered web-push endpoint for a user
type PushSubscription struct {
	ID        int64     `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	P256dh    string    `json:"p256dh" db:"p256dh"`
	Auth      string    `json:"auth" db:"auth"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// JoinQueueRequest is the body for self-service join
type JoinQueueRequest struct {
	ComputerType string `json:"computer_type"`
	NotifyPush   *bool  `json:"notify_push"`
}

// JoinQueueResponse reports the assigned slot
type JoinQueueResponse struct {
	Position             int `json:"position"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}

// AddWalkInRequest is the staff body for adding a physical walk-in entry
type AddWalkInRequest struct {
	UserName     string `json:"username" binding:"required"`
	PhoneNumber  string `json:"phone_number"`
	ComputerType string `json:"computer_type"`
	Notes        string `json:"notes"`
}

// ReorderRequest moves an entry one slot up or down
type ReorderRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// NotifyPersonRequest is the staff body for manually notifying an entry
type NotifyPersonRequest struct {
	Message string `json:"message" binding:"required"`
}

// UpdateQueueSettingsRequest carries partial settings updates
type UpdateQueueSettingsRequest struct {
	IsActive        *bool `json:"is_active"`
	AllowOnlineJoin *bool `json:"allow_online_joining"`
	MaxQueueSize    *int  `json:"max_queue_size"`
	AutomaticMode   *bool `json:"automatic_mode"`
}
