package notification

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service handles notification logic
type Service struct {
	repo      Repository
	prefsRepo *PreferencesRepository
	realtime  RealtimePublisher
}

// NewService creates notification service
func NewService(repo Repository, prefsRepo *PreferencesRepository) *Service {
	return &Service{repo: repo, prefsRepo: prefsRepo}
}

// SetRealtimePublisher attaches the websocket publisher.
func (s *Service) SetRealtimePublisher(pub RealtimePublisher) {
	s.realtime = pub
}

// Create stores an in-app notification and pushes it over the
// websocket. The user's preferences can suppress the whole event.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, notifType Type, title, body string, data *Data) (*Notification, error) {
	if s.prefsRepo != nil {
		prefs, err := s.prefsRepo.GetByUserID(ctx, userID)
		if err == nil && !prefs.Allows(notifType) {
			return nil, nil
		}
	}

	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if body != "" {
		n.Body = sql.NullString{String: body, Valid: true}
	}
	n.SetData(data)

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.realtime != nil {
		unread, _ := s.repo.CountUnreadByUser(ctx, userID)
		if err := s.realtime.NotifyNew(ctx, userID, ResponseFromEntity(n), unread); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("realtime notification push failed")
		}
	}
	return n, nil
}

// List returns notifications for user
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetUnreadCount returns unread count
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnreadByUser(ctx, userID)
}

// MarkAsRead marks single notification as read
func (s *Service) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

// MarkAllAsRead marks all notifications as read
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetPreferences returns the user's delivery preferences.
func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	return s.prefsRepo.GetByUserID(ctx, userID)
}

// UpdatePreferences saves the user's delivery preferences.
func (s *Service) UpdatePreferences(ctx context.Context, prefs *Preferences) error {
	return s.prefsRepo.Upsert(ctx, prefs)
}

// Cleanup drops notifications past the retention window.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, retention)
}
