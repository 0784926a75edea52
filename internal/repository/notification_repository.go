package repository

import (
	"context"
	"errors"
	"fmt"

	"shopcore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// notificationRepository implements NotificationRepository using PostgreSQL.
//
// The log is append-only; read state lives in notification_reads, one
// row per (notification, reader), which makes markRead naturally
// idempotent. Visibility for a user is: targeted at them, at their
// role, or global, and never older than their account.
type notificationRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewNotificationRepository creates a new PostgreSQL-backed notification repository.
func NewNotificationRepository(pool *pgxpool.Pool, logger zerolog.Logger) NotificationRepository {
	return &notificationRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "notification").Logger(),
	}
}

// visibleFilter matches notifications a user may see. Parameters:
// $1 user id, $2 user role, $3 account creation time.
const visibleFilter = `
	(n.user_id = $1 OR n.is_global OR $2 = ANY(n.roles))
	AND n.created_at >= $3`

// Create appends a notification record.
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, type, title, message, related_id, user_id, roles, is_global, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`, n.ID, n.Type, n.Title, n.Message, n.RelatedID, n.UserID, n.Roles, n.IsGlobal, n.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("type", string(n.Type)).Msg("failed to insert notification")
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by its ID.
func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	err := r.pool.QueryRow(ctx, `
		SELECT id, type, title, message, COALESCE(related_id, ''), COALESCE(user_id, ''), roles, is_global, created_at
		FROM notifications
		WHERE id = $1
	`, id).Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.RelatedID, &n.UserID, &n.Roles, &n.IsGlobal, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("notification_id", id.String()).Msg("failed to query notification")
		return nil, fmt.Errorf("failed to query notification: %w", err)
	}
	return &n, nil
}

// ListFor returns the newest notifications visible to the user.
func (r *notificationRepository) ListFor(ctx context.Context, user *model.User, limit int) ([]model.Notification, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT n.id, n.type, n.title, n.message, COALESCE(n.related_id, ''), COALESCE(n.user_id, ''), n.roles, n.is_global, n.created_at
		FROM notifications n
		WHERE `+visibleFilter+`
		ORDER BY n.created_at DESC
		LIMIT $4
	`, user.ID, user.Role, user.CreatedAt, limit)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to query notifications")
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.RelatedID, &n.UserID, &n.Roles, &n.IsGlobal, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}

	return out, rows.Err()
}

// UnreadCountFor counts visible notifications the user has not read.
func (r *notificationRepository) UnreadCountFor(ctx context.Context, user *model.User) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications n
		WHERE `+visibleFilter+`
		AND NOT EXISTS (
			SELECT 1 FROM notification_reads x
			WHERE x.notification_id = n.id AND x.user_id = $1
		)
	`, user.ID, user.Role, user.CreatedAt).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to count unread notifications")
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead records that the user read the notification. A repeat call
// hits the conflict clause and changes nothing.
func (r *notificationRepository) MarkRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_reads (notification_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (notification_id, user_id) DO NOTHING
	`, notificationID, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("notification_id", notificationID.String()).Msg("failed to mark notification read")
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every visible notification read for the user.
func (r *notificationRepository) MarkAllRead(ctx context.Context, user *model.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_reads (notification_id, user_id)
		SELECT n.id, $1
		FROM notifications n
		WHERE `+visibleFilter+`
		ON CONFLICT (notification_id, user_id) DO NOTHING
	`, user.ID, user.Role, user.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to mark all notifications read")
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}
