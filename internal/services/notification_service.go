package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/pkg/webpush"
	"github.com/sirupsen/logrus"
)

// NotificationService builds queue-transition payloads and fans them out to
// a user's registered push endpoints. Delivery is strictly best-effort:
// failures are counted and logged, never returned to the triggering caller.
type NotificationService struct {
	entries       *database.QueueEntryRepository
	subscriptions *database.PushSubscriptionRepository
	sender        webpush.Sender
	audit         *AuditService
	logger        *logrus.Logger
	timeout       time.Duration
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	entries *database.QueueEntryRepository,
	subscriptions *database.PushSubscriptionRepository,
	sender webpush.Sender,
	audit *AuditService,
	logger *logrus.Logger,
) *NotificationService {
	return &NotificationService{
		entries:       entries,
		subscriptions: subscriptions,
		sender:        sender,
		audit:         audit,
		logger:        logger,
		timeout:       10 * time.Second,
	}
}

// QueueTransition notifies a user about a queue state change. Exactly one of
// the joined/left/next/improved/declined cases applies per transition,
// selected from the previous and current positions (0 means not queued).
func (s *NotificationService) QueueTransition(userID uuid.NullUUID, username string, prevPosition, currPosition int) {
	if !userID.Valid {
		return // physical walk-ins have no account to notify
	}

	payload, ok := transitionPayload(prevPosition, currPosition)
	if !ok {
		return
	}

	s.dispatch(userID.UUID, username, payload)
}

// transitionPayload selects the single notification for a position change
func transitionPayload(prev, curr int) (webpush.Payload, bool) {
	data := map[string]interface{}{
		"previous_position": prev,
		"current_position":  curr,
	}

	switch {
	case prev == 0 && curr > 0:
		return webpush.Payload{
			Title: "You're in the queue",
			Body:  fmt.Sprintf("You joined the queue at position %d.", curr),
			Tag:   "queue-joined",
			Data:  data,
		}, true
	case prev > 0 && curr == 0:
		return webpush.Payload{
			Title: "Left the queue",
			Body:  "You are no longer waiting for a computer.",
			Tag:   "queue-left",
			Data:  data,
		}, true
	case curr == 1 && prev != 1:
		return webpush.Payload{
			Title: "You're next!",
			Body:  "A computer will be yours as soon as one frees up. Head to the front desk.",
			Tag:   "queue-next",
			Data:  data,
		}, true
	case curr < prev:
		return webpush.Payload{
			Title: "Moving up",
			Body:  fmt.Sprintf("You moved up to position %d.", curr),
			Tag:   "queue-position",
			Data:  data,
		}, true
	case curr > prev:
		return webpush.Payload{
			Title: "Queue update",
			Body:  fmt.Sprintf("Your position changed to %d.", curr),
			Tag:   "queue-position",
			Data:  data,
		}, true
	}

	return webpush.Payload{}, false
}

// dispatch fans a payload out to all of a user's endpoints
func (s *NotificationService) dispatch(userID uuid.UUID, username string, payload webpush.Payload) {
	subs, err := s.subscriptions.GetByUserID(userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to load push subscriptions")
		return
	}
	if len(subs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	successful, failed := 0, 0
	for _, sub := range subs {
		err := s.sender.Send(ctx, webpush.Subscription{
			Endpoint: sub.Endpoint,
			P256dh:   sub.P256dh,
			Auth:     sub.Auth,
		}, payload)
		if err != nil {
			failed++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":  userID,
				"endpoint": sub.Endpoint,
			}).Warn("Push delivery failed")
			continue
		}
		successful++
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"username":   username,
		"tag":        payload.Tag,
		"successful": successful,
		"failed":     failed,
	}).Info("Queue notification dispatched")
}

// NotifyPerson is the staff tool for manually notifying a queued person.
// It always reports at least one method string, falling back to a staff
// call-out when no delivery channel applies, and records the action in the
// audit log.
func (s *NotificationService) NotifyPerson(
	entryID uuid.UUID,
	message string,
	performedBy uuid.UUID,
	ipAddress, userAgent string,
) ([]string, error) {
	entry, err := s.entries.GetWaitingByID(entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up queue entry: %w", err)
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}

	methods := []string{}

	if entry.UserID.Valid {
		subs, err := s.subscriptions.GetByUserID(entry.UserID.UUID)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load push subscriptions for manual notify")
		} else if len(subs) > 0 {
			s.dispatch(entry.UserID.UUID, entry.UserName, webpush.Payload{
				Title: "Message from the front desk",
				Body:  message,
				Tag:   "queue-manual",
				Data: map[string]interface{}{
					"position": entry.Position,
				},
			})
			methods = append(methods, "web_push")
		}
	}

	if entry.PhoneNumber.Valid && entry.NotifyPush {
		// WhatsApp delivery happens through the staff console; we only
		// report that the channel is available for this entry.
		methods = append(methods, "whatsapp")
	}

	if len(methods) == 0 {
		methods = append(methods, "staff_call")
	}

	if s.audit != nil {
		s.audit.LogQueueNotify(entry.ID, entry.UserName, message, methods, performedBy, ipAddress, userAgent)
	}

	return methods, nil
}
