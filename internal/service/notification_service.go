package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopcore/internal/model"
	"shopcore/internal/repository"
)

const defaultFeedLimit = 50

type notificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	pusher        Pusher
	logger        zerolog.Logger
}

// NewNotificationService creates the notification service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	pusher Pusher,
	logger zerolog.Logger,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		users:         users,
		pusher:        pusher,
		logger:        logger.With().Str("service", "notification").Logger(),
	}
}

// Notify persists first, then pushes. The durable record is the source
// of truth; the push is a hint to connected clients, and its loss only
// costs immediacy.
func (s *notificationService) Notify(ctx context.Context, n *model.Notification) error {
	if !n.Targeted() {
		return model.NewDomainError(model.ErrCodeInvalidOrder, "Notification has no recipient")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}

	msg := n.Push()
	switch {
	case n.IsGlobal:
		s.pusher.Broadcast(msg)
	default:
		if n.UserID != "" {
			s.pusher.SendToUser(n.UserID, msg)
		}
		if len(n.Roles) > 0 {
			s.pusher.SendToRoles(msg, n.Roles...)
		}
	}

	s.logger.Debug().
		Str("notification_id", n.ID.String()).
		Str("type", string(n.Type)).
		Msg("notification dispatched")

	return nil
}

func (s *notificationService) Feed(ctx context.Context, identity model.Identity, limit int) (*model.NotificationFeed, error) {
	if limit < 1 || limit > defaultFeedLimit {
		limit = defaultFeedLimit
	}

	user, err := s.user(ctx, identity)
	if err != nil {
		return nil, err
	}

	list, err := s.notifications.ListFor(ctx, user, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.UnreadCountFor(ctx, user)
	if err != nil {
		return nil, err
	}

	return &model.NotificationFeed{
		Notifications: list,
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, identity model.Identity, notificationID uuid.UUID) error {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return model.ErrNotificationGone
	}
	if !visibleTo(n, identity) {
		return model.ErrNotOwner
	}
	return s.notifications.MarkRead(ctx, notificationID, identity.ID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, identity model.Identity) error {
	user, err := s.user(ctx, identity)
	if err != nil {
		return err
	}
	return s.notifications.MarkAllRead(ctx, user)
}

func (s *notificationService) user(ctx context.Context, identity model.Identity) (*model.User, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

func visibleTo(n *model.Notification, identity model.Identity) bool {
	if n.IsGlobal || n.UserID == identity.ID {
		return true
	}
	for _, role := range n.Roles {
		if role == identity.Role {
			return true
		}
	}
	return false
}
