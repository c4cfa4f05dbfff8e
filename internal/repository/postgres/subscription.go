package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/pkg/errors"
)

// SubscriptionRepository implements subscription.Repository
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *sql.DB) subscription.Repository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, start_date, end_date, status, cancelled_at, created_at, updated_at`

// ReplaceActive cancels the user's active subscription and inserts s in one
// transaction. A previous subscription that ended before s.StartDate is
// expired instead of cancelled.
func (r *SubscriptionRepository) ReplaceActive(ctx context.Context, s *subscription.Subscription) (bool, error) {
	now := time.Now()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.DatabaseError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE user_id = $3 AND status = $4 AND end_date < $5
	`, string(subscription.StatusExpired), now.Unix(), s.UserID, string(subscription.StatusActive), s.StartDate.Unix())
	if err != nil {
		return false, errors.DatabaseError("Failed to expire previous subscription", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, cancelled_at = $2, updated_at = $2
		WHERE user_id = $3 AND status = $4
	`, string(subscription.StatusCancelled), now.Unix(), s.UserID, string(subscription.StatusActive))
	if err != nil {
		return false, errors.DatabaseError("Failed to cancel previous subscription", err)
	}

	replaced, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $7)
	`, s.ID, s.UserID, s.PlanID, s.StartDate.Unix(), s.EndDate.Unix(), string(s.Status), now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return false, subscription.ErrAlreadyActive
		}
		return false, errors.DatabaseError("Failed to create subscription", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return false, subscription.ErrAlreadyActive
		}
		return false, errors.DatabaseError("Failed to commit subscription", err)
	}

	return replaced > 0, nil
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)

	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get subscription", err)
	}
	return s, nil
}

// GetActiveByUser retrieves the user's active subscription
func (r *SubscriptionRepository) GetActiveByUser(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status = $2
	`, userID, string(subscription.StatusActive))

	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get subscription", err)
	}
	return s, nil
}

// ListByUser retrieves the user's subscriptions, newest first
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]*subscription.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, CASE status WHEN 'active' THEN 0 ELSE 1 END
	`, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list subscriptions", err)
	}
	defer rows.Close()

	subs := []*subscription.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan subscription", err)
		}
		subs = append(subs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate subscriptions", err)
	}

	return subs, nil
}

// CancelActive marks the user's active subscription cancelled.
// A subscription that ended before at is left for expiry.
func (r *SubscriptionRepository) CancelActive(ctx context.Context, userID int64, at time.Time) (*subscription.Subscription, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET status = $1, cancelled_at = $2, updated_at = $2
		WHERE user_id = $3 AND status = $4 AND end_date >= $2
		RETURNING id
	`, string(subscription.StatusCancelled), at.Unix(), userID, string(subscription.StatusActive)).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to cancel subscription", err)
	}

	return r.GetByID(ctx, id)
}

// ExpireLapsed marks the user's active subscription expired if it ended before now.
// Returns nil when nothing lapsed.
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context, userID int64, now time.Time) (*subscription.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE user_id = $3 AND status = $4 AND end_date < $2
		RETURNING `+subscriptionColumns,
		string(subscription.StatusExpired), now.Unix(), userID, string(subscription.StatusActive))

	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to expire subscription", err)
	}
	return s, nil
}

// ExpireOverdue marks active subscriptions whose end date passed as expired
func (r *SubscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE status = $3 AND end_date < $2
		RETURNING `+subscriptionColumns,
		string(subscription.StatusExpired), now.Unix(), string(subscription.StatusActive))
	if err != nil {
		return nil, errors.DatabaseError("Failed to expire subscriptions", err)
	}
	defer rows.Close()

	var expired []*subscription.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan expired subscription", err)
		}
		expired = append(expired, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate expired subscriptions", err)
	}

	return expired, nil
}

func scanSubscription(s scanner) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	var status string
	var startDate, endDate, createdAt, updatedAt int64
	var cancelledAt sql.NullInt64

	err := s.Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &startDate, &endDate, &status,
		&cancelledAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Status = subscription.Status(status)
	sub.StartDate = unixTime(startDate)
	sub.EndDate = unixTime(endDate)
	sub.CreatedAt = unixTime(createdAt)
	sub.UpdatedAt = unixTime(updatedAt)
	if cancelledAt.Valid {
		t := unixTime(cancelledAt.Int64)
		sub.CancelledAt = &t
	}
	sub.RemedyAccess = []subscription.RemedyAccess{}

	return &sub, nil
}
