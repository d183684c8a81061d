package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t != nil {
		nt.Valid = true
		nt.Time = *t
	} else {
		nt.Valid = false
	}
	return nil
}

// NullInt64 wraps sql.NullInt64 to provide proper JSON marshaling
type NullInt64 struct {
	sql.NullInt64
}

// MarshalJSON implements json.Marshaler
func (ni NullInt64) MarshalJSON() ([]byte, error) {
	if ni.Valid {
		return json.Marshal(ni.Int64)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ni *NullInt64) UnmarshalJSON(data []byte) error {
	var v *int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v != nil {
		ni.Valid = true
		ni.Int64 = *v
	} else {
		ni.Valid = false
	}
	return nil
}

// User represents a gaming-center account.
// GizmoID links the account to the center-management system; walk-in
// customers have no account and never appear in this table.
type User struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	UserName     string         `json:"username" db:"username"`
	Phone        NullString     `json:"phone,omitempty" db:"phone"`
	GizmoID      NullInt64      `json:"gizmo_id,omitempty" db:"gizmo_id"`
	Roles        pq.StringArray `json:"roles" db:"roles"`
	PasswordHash NullString     `json:"-" db:"password_hash"` // staff/admin console logins only
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the user carries the given role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// StaffLoginRequest represents a staff console login attempt
type StaffLoginRequest struct {
	UserName string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StaffLoginResponse represents a successful staff console login
type StaffLoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}

// AuditLog represents one entry in the admin activity log
type AuditLog struct {
	ID          int64         `json:"id" db:"id"`
	Action      string        `json:"action" db:"action"`
	EntityType  NullString    `json:"entity_type,omitempty" db:"entity_type"`
	EntityID    uuid.NullUUID `json:"entity_id,omitempty" db:"entity_id"`
	PerformedBy uuid.NullUUID `json:"performed_by,omitempty" db:"performed_by"`
	IPAddress   NullString    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent   NullString    `json:"user_agent,omitempty" db:"user_agent"`
	Details     NullString    `json:"details,omitempty" db:"details"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
