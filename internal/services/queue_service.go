package services

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Business-rule rejections surfaced verbatim to the end user
var (
	ErrJoiningDisabled    = errors.New("online joining is currently disabled")
	ErrQueueFull          = errors.New("the queue is full")
	ErrNotInQueue         = errors.New("no active queue entry found")
	ErrEntryNotFound      = errors.New("queue entry not found")
	ErrInvalidDirection   = errors.New("direction must be 'up' or 'down'")
	ErrOutOfBounds        = errors.New("cannot move entry beyond queue boundaries")
	ErrSwapTargetNotFound = errors.New("no entry holds the adjacent position")
)

// AlreadyInQueueError rejects a duplicate join and carries the position the
// caller already holds.
type AlreadyInQueueError struct {
	Position int
}

func (e *AlreadyInQueueError) Error() string {
	return fmt.Sprintf("already in queue at position %d", e.Position)
}

// QueueService implements the queue domain logic: join, leave, status,
// eligibility and admin reorder. All coordination happens through the store;
// concurrent requests share no in-process state.
type QueueService struct {
	entries  *database.QueueEntryRepository
	settings *database.QueueSettingsRepository
	notifier *NotificationService
	logger   *logrus.Logger

	minutesPerPosition int
	positionRetries    int
	retryBackoff       time.Duration
}

// NewQueueService creates a new queue service
func NewQueueService(
	entries *database.QueueEntryRepository,
	settings *database.QueueSettingsRepository,
	notifier *NotificationService,
	logger *logrus.Logger,
	minutesPerPosition int,
	positionRetries int,
	retryBackoff time.Duration,
) *QueueService {
	if positionRetries <= 0 {
		positionRetries = 3
	}

	return &QueueService{
		entries:            entries,
		settings:           settings,
		notifier:           notifier,
		logger:             logger,
		minutesPerPosition: minutesPerPosition,
		positionRetries:    positionRetries,
		retryBackoff:       retryBackoff,
	}
}

// CurrentSettings reads the settings row, degrading to explicit, logged
// defaults when the row or the store is unavailable. Read paths must never
// hard-fail on settings.
func (s *QueueService) CurrentSettings() models.QueueSettings {
	settings, err := s.settings.Get()
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("Queue settings row missing, using defaults")
		} else {
			s.logger.WithError(err).Error("Failed to read queue settings, using defaults")
		}
		return models.DefaultQueueSettings()
	}
	return *settings
}

// Join attempts to add a self-service waiting entry for the given account.
// Preconditions are checked in order: joining enabled, capacity, no existing
// entry. Returns the assigned position and a rough wait estimate.
func (s *QueueService) Join(userID uuid.UUID, username, phone, computerType string, notifyPush bool) (*models.JoinQueueResponse, error) {
	settings := s.CurrentSettings()

	if !settings.AllowOnlineJoin {
		return nil, ErrJoiningDisabled
	}

	count, err := s.entries.CountWaiting()
	if err != nil {
		return nil, fmt.Errorf("failed to check queue size: %w", err)
	}
	if count >= settings.MaxQueueSize {
		return nil, ErrQueueFull
	}

	existing, err := s.entries.GetWaitingByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing entry: %w", err)
	}
	if existing != nil {
		return nil, &AlreadyInQueueError{Position: existing.Position}
	}

	entry := &models.QueueEntry{
		ID:           uuid.New(),
		UserName:     username,
		UserID:       uuid.NullUUID{UUID: userID, Valid: true},
		ComputerType: models.NormalizeComputerType(computerType),
		IsPhysical:   false,
		Status:       models.QueueStatusWaiting,
		NotifyPush:   notifyPush,
		CreatedAt:    time.Now(),
	}
	if phone != "" {
		entry.PhoneNumber = models.NullString{NullString: sql.NullString{String: phone, Valid: true}}
	}

	position, err := s.insertWithPosition(entry)
	if err != nil {
		return nil, err
	}

	s.notifier.QueueTransition(entry.UserID, entry.UserName, 0, position)

	return &models.JoinQueueResponse{
		Position:             position,
		EstimatedWaitMinutes: position * s.minutesPerPosition,
	}, nil
}

// AddWalkIn adds a staff-created physical entry. Walk-ins bypass the
// online-joining switch but still respect the capacity ceiling.
func (s *QueueService) AddWalkIn(req models.AddWalkInRequest) (*models.QueueEntry, error) {
	settings := s.CurrentSettings()

	count, err := s.entries.CountWaiting()
	if err != nil {
		return nil, fmt.Errorf("failed to check queue size: %w", err)
	}
	if count >= settings.MaxQueueSize {
		return nil, ErrQueueFull
	}

	entry := &models.QueueEntry{
		ID:           uuid.New(),
		UserName:     req.UserName,
		ComputerType: models.NormalizeComputerType(req.ComputerType),
		IsPhysical:   true,
		Status:       models.QueueStatusWaiting,
		NotifyPush:   false,
		CreatedAt:    time.Now(),
	}
	if req.PhoneNumber != "" {
		entry.PhoneNumber = models.NullString{NullString: sql.NullString{String: req.PhoneNumber, Valid: true}}
	}
	if req.Notes != "" {
		entry.Notes = models.NullString{NullString: sql.NullString{String: req.Notes, Valid: true}}
	}

	position, err := s.insertWithPosition(entry)
	if err != nil {
		return nil, err
	}
	entry.Position = position

	return entry, nil
}

// insertWithPosition assigns a position and persists the entry. Collisions
// with concurrent joins are retried a bounded number of times; after the
// bound the entry is forced above the observed maximum with random jitter so
// the operation stays live instead of failing. The free-check runs inside
// the insert transaction, so even forced placement keeps positions unique.
func (s *QueueService) insertWithPosition(entry *models.QueueEntry) (int, error) {
	for attempt := 0; attempt < s.positionRetries; attempt++ {
		position, err := s.entries.NextPosition()
		if err != nil {
			return 0, fmt.Errorf("failed to compute next position: %w", err)
		}

		taken, err := s.entries.PositionTaken(position)
		if err != nil {
			return 0, fmt.Errorf("failed to verify position: %w", err)
		}
		if taken {
			s.logger.WithFields(logrus.Fields{
				"position": position,
				"attempt":  attempt + 1,
			}).Warn("Queue position already held, retrying")
			time.Sleep(s.retryBackoff)
			continue
		}

		entry.Position = position
		err = s.entries.InsertWaiting(entry)
		if err == nil {
			return position, nil
		}
		if !errors.Is(err, database.ErrPositionTaken) {
			return 0, err
		}

		s.logger.WithFields(logrus.Fields{
			"position": position,
			"attempt":  attempt + 1,
		}).Warn("Lost race for queue position, retrying")
		time.Sleep(s.retryBackoff)
	}

	// Retries exhausted: force placement above the observed maximum with
	// jitter. One extra round covers a race the first forced attempt loses.
	for attempt := 0; attempt < 2; attempt++ {
		max, err := s.entries.MaxPosition()
		if err != nil {
			return 0, fmt.Errorf("failed to read max position: %w", err)
		}

		position := max + 1 + rand.Intn(5)
		entry.Position = position

		err = s.entries.InsertWaiting(entry)
		if err == nil {
			s.logger.WithField("position", position).Warn("Forced queue placement after position collisions")
			return position, nil
		}
		if !errors.Is(err, database.ErrPositionTaken) {
			return 0, err
		}
	}

	return 0, fmt.Errorf("failed to assign a queue position, please try again")
}

// Leave deletes the caller's waiting entry. Remaining entries keep their
// positions; gaps do not affect serving order.
func (s *QueueService) Leave(userID uuid.UUID) error {
	entry, err := s.entries.GetWaitingByUserID(userID)
	if err != nil {
		return fmt.Errorf("failed to look up queue entry: %w", err)
	}
	if entry == nil {
		return ErrNotInQueue
	}

	if _, err := s.entries.Delete(entry.ID); err != nil {
		return fmt.Errorf("failed to leave queue: %w", err)
	}

	s.notifier.QueueTransition(entry.UserID, entry.UserName, entry.Position, 0)

	return nil
}

// Status computes the derived queue status plus the raw ordered entry list.
// It never fails for ordinary callers: store errors degrade to defaults.
func (s *QueueService) Status() (models.QueueStatus, []*models.QueueEntry) {
	settings := s.CurrentSettings()

	entries, err := s.entries.ListWaiting()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list queue entries, returning empty status")
		entries = nil
	}

	status := models.QueueStatus{
		IsActive:         settings.IsActive,
		AllowOnlineJoin:  settings.AllowOnlineJoin,
		MaxQueueSize:     settings.MaxQueueSize,
		CurrentQueueSize: len(entries),
	}

	for _, entry := range entries {
		switch models.NormalizeComputerType(entry.ComputerType) {
		case models.ComputerTypeTop:
			status.TopQueueCount++
		case models.ComputerTypeBottom:
			status.BottomQueueCount++
		default:
			status.AnyQueueCount++
		}
	}

	return status, entries
}

// IsNextForZone reports whether the given user owns the first waiting entry
// compatible with zone: the first entry, in position order, whose type is
// "any" or equals the zone.
func IsNextForZone(entries []*models.QueueEntry, userID uuid.UUID, zone string) bool {
	zone = models.NormalizeComputerType(zone)

	for _, entry := range entries {
		entryType := models.NormalizeComputerType(entry.ComputerType)
		if entryType == models.ComputerTypeAny || entryType == zone {
			return entry.UserID.Valid && entry.UserID.UUID == userID
		}
	}

	return false
}

// Reorder swaps a waiting entry with its neighbor one slot up or down.
// The swap routes through a temporary slot inside one transaction, so no
// instant exists where two entries share a position.
func (s *QueueService) Reorder(entryID uuid.UUID, direction string) error {
	if direction != "up" && direction != "down" {
		return ErrInvalidDirection
	}

	entry, err := s.entries.GetWaitingByID(entryID)
	if err != nil {
		return fmt.Errorf("failed to look up queue entry: %w", err)
	}
	if entry == nil {
		return ErrEntryNotFound
	}

	total, err := s.entries.CountWaiting()
	if err != nil {
		return fmt.Errorf("failed to count queue entries: %w", err)
	}

	targetPos := entry.Position - 1
	if direction == "down" {
		targetPos = entry.Position + 1
	}
	if targetPos < 1 || targetPos > total {
		return ErrOutOfBounds
	}

	target, err := s.entries.GetWaitingByPosition(targetPos)
	if err != nil {
		return fmt.Errorf("failed to look up swap target: %w", err)
	}
	if target == nil {
		return ErrSwapTargetNotFound
	}

	// Positions may have gaps, so max+1 is the only slot guaranteed free.
	max, err := s.entries.MaxPosition()
	if err != nil {
		return fmt.Errorf("failed to read max position: %w", err)
	}

	if err := s.entries.SwapPositions(entry.ID, target.ID, entry.Position, target.Position, max+1); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"entry_id":      entry.ID,
		"from_position": entry.Position,
		"to_position":   target.Position,
	}).Info("Queue entry reordered")

	s.notifier.QueueTransition(entry.UserID, entry.UserName, entry.Position, target.Position)
	s.notifier.QueueTransition(target.UserID, target.UserName, target.Position, entry.Position)

	return nil
}
