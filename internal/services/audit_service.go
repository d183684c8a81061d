package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AuditService records staff actions on the queue in the activity log
type AuditService struct {
	db     database.DB
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB, logger *logrus.Logger) *AuditService {
	return &AuditService{
		db:     db,
		logger: logger,
	}
}

// AuditEvent represents one staff action to be logged
type AuditEvent struct {
	Action      string
	EntityType  string
	EntityID    *uuid.UUID
	PerformedBy *uuid.UUID
	IPAddress   string
	UserAgent   string
	Details     map[string]interface{}
}

// LogQueueNotify records a manual notification sent to a queued person
func (s *AuditService) LogQueueNotify(entryID uuid.UUID, entryName, message string, methods []string, performedBy uuid.UUID, ipAddress, userAgent string) {
	s.log(AuditEvent{
		Action:      "queue_notify",
		EntityType:  "queue_entry",
		EntityID:    &entryID,
		PerformedBy: &performedBy,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Details: map[string]interface{}{
			"entry_name": entryName,
			"message":    message,
			"methods":    methods,
		},
	})
}

// LogQueueReorder records an admin position swap
func (s *AuditService) LogQueueReorder(entryID uuid.UUID, direction string, performedBy uuid.UUID, ipAddress, userAgent string) {
	s.log(AuditEvent{
		Action:      "queue_reorder",
		EntityType:  "queue_entry",
		EntityID:    &entryID,
		PerformedBy: &performedBy,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Details: map[string]interface{}{
			"direction": direction,
		},
	})
}

// LogQueueSettingsUpdate records a settings change
func (s *AuditService) LogQueueSettingsUpdate(performedBy uuid.UUID, ipAddress, userAgent string, changes map[string]interface{}) {
	s.log(AuditEvent{
		Action:      "queue_settings_update",
		EntityType:  "queue_settings",
		PerformedBy: &performedBy,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Details:     changes,
	})
}

// LogWalkInAdded records a staff-added physical entry
func (s *AuditService) LogWalkInAdded(entryID uuid.UUID, entryName string, position int, performedBy uuid.UUID, ipAddress, userAgent string) {
	s.log(AuditEvent{
		Action:      "queue_walkin_added",
		EntityType:  "queue_entry",
		EntityID:    &entryID,
		PerformedBy: &performedBy,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Details: map[string]interface{}{
			"entry_name": entryName,
			"position":   position,
		},
	})
}

// log writes one row to audit_logs. Audit failures are logged, never
// propagated: losing an audit row must not fail the staff action.
func (s *AuditService) log(event AuditEvent) {
	if event.Details == nil {
		event.Details = map[string]interface{}{}
	}
	if event.UserAgent != "" {
		event.Details["device_info"] = utils.ParseUserAgent(event.UserAgent)
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal audit details")
		return
	}

	query := `
		INSERT INTO audit_logs (action, entity_type, entity_id, performed_by, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = s.db.Exec(
		query,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.PerformedBy,
		event.IPAddress,
		event.UserAgent,
		details,
	)
	if err != nil {
		s.logger.WithError(err).WithField("action", event.Action).Error("Failed to write audit log")
	}
}

// RecentEvents retrieves recent audit rows for the admin dashboard
func (s *AuditService) RecentEvents(limit int) ([]map[string]interface{}, error) {
	query := `
		SELECT action, entity_type, entity_id, performed_by, ip_address, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent audit events: %w", err)
	}
	defer rows.Close()

	events := []map[string]interface{}{}
	for rows.Next() {
		var action string
		var entityType, entityID, performedBy, ipAddress, details sql.NullString
		var createdAt time.Time

		if err := rows.Scan(&action, &entityType, &entityID, &performedBy, &ipAddress, &details, &createdAt); err != nil {
			continue
		}

		events = append(events, map[string]interface{}{
			"action":       action,
			"entity_type":  entityType.String,
			"entity_id":    entityID.String,
			"performed_by": performedBy.String,
			"ip_address":   ipAddress.String,
			"details":      details.String,
			"created_at":   createdAt,
		})
	}

	return events, nil
}
