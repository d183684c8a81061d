package services

import (
	"context"
	"fmt"

	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/pkg/gizmo"
	"github.com/sirupsen/logrus"
)

// QueueMonitorService reconciles the queue against active computer sessions:
// whoever is logged into a machine no longer needs a waiting entry. Two
// drivers converge on the same idempotent removal: the periodic sweep (the
// resilience backstop) and the synchronous call fired when a login succeeds.
// Whichever runs first wins; the other is a safe no-op.
type QueueMonitorService struct {
	entries  *database.QueueEntryRepository
	users    *database.UserRepository
	sessions gizmo.SessionSource
	notifier *NotificationService
	logger   *logrus.Logger
}

// NewQueueMonitorService creates a new queue monitor service
func NewQueueMonitorService(
	entries *database.QueueEntryRepository,
	users *database.UserRepository,
	sessions gizmo.SessionSource,
	notifier *NotificationService,
	logger *logrus.Logger,
) *QueueMonitorService {
	return &QueueMonitorService{
		entries:  entries,
		users:    users,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
	}
}

// RemoveUserFromQueueByGizmoID removes the waiting entry of the account
// linked to the given center-management user, if both exist. Unlinked
// sessions and already-removed entries are normal no-ops, never errors.
func (s *QueueMonitorService) RemoveUserFromQueueByGizmoID(gizmoID int64, reason string) (bool, error) {
	user, err := s.users.GetUserByGizmoID(gizmoID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve gizmo account: %w", err)
	}
	if user == nil {
		// Walk-in and unregistered sessions are expected
		return false, nil
	}

	entry, err := s.entries.GetWaitingByUserID(user.ID)
	if err != nil {
		return false, fmt.Errorf("failed to look up queue entry: %w", err)
	}
	if entry == nil {
		return false, nil
	}

	rowsAffected, err := s.entries.Delete(entry.ID)
	if err != nil {
		return false, fmt.Errorf("failed to remove queue entry: %w", err)
	}
	if rowsAffected == 0 {
		// The event-driven path and the sweep raced; the other side won.
		return false, nil
	}

	s.logger.WithFields(logrus.Fields{
		"gizmo_id": gizmoID,
		"user_id":  user.ID,
		"username": entry.UserName,
		"position": entry.Position,
		"reason":   reason,
	}).Info("Removed logged-in user from queue")

	s.notifier.QueueTransition(entry.UserID, entry.UserName, entry.Position, 0)

	return true, nil
}

// SweepActiveSessions diffs active computer sessions against the queue and
// removes every entry whose owner is already playing. Errors on individual
// removals are logged and the sweep continues.
func (s *QueueMonitorService) SweepActiveSessions(ctx context.Context) {
	count, err := s.entries.CountWaiting()
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to count queue entries")
		return
	}
	if count == 0 {
		return
	}

	sessions, err := s.sessions.ActiveSessions(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to fetch active sessions")
		return
	}

	removed := 0
	for _, session := range sessions {
		ok, err := s.RemoveUserFromQueueByGizmoID(session.UserID, "active session sweep")
		if err != nil {
			s.logger.WithError(err).WithField("gizmo_id", session.UserID).Error("Sweep removal failed")
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"sessions": len(sessions),
			"removed":  removed,
		}).Info("Queue sweep removed stale entries")
	}
}
