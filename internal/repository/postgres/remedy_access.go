package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/pkg/errors"
)

// Item kinds in remedy_access_items
const (
	itemView     = "view"
	itemPurchase = "purchase"
)

// RemedyAccessRepository implements subscription.AccessRepository
type RemedyAccessRepository struct {
	db *sql.DB
}

// NewRemedyAccessRepository creates a new remedy access repository
func NewRemedyAccessRepository(db *sql.DB) subscription.AccessRepository {
	return &RemedyAccessRepository{db: db}
}

// ListByUser retrieves every access record of the user ordered by ailment
func (r *RemedyAccessRepository) ListByUser(ctx context.Context, userID int64) ([]subscription.RemedyAccess, error) {
	return r.load(ctx, `WHERE user_id = $1`, userID)
}

// Get retrieves one access record, or nil if the ailment was never touched
func (r *RemedyAccessRepository) Get(ctx context.Context, userID int64, ailmentID string) (*subscription.RemedyAccess, error) {
	list, err := r.load(ctx, `WHERE user_id = $1 AND ailment_id = $2`, userID, ailmentID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *RemedyAccessRepository) load(ctx context.Context, where string, args ...interface{}) ([]subscription.RemedyAccess, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ailment_id, access_count, updated_at
		FROM remedy_access `+where+`
		ORDER BY ailment_id
	`, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load remedy access", err)
	}

	list := []subscription.RemedyAccess{}
	index := make(map[string]int)
	for rows.Next() {
		var a subscription.RemedyAccess
		var updatedAt int64
		if err := rows.Scan(&a.AilmentID, &a.AccessCount, &updatedAt); err != nil {
			rows.Close()
			return nil, errors.DatabaseError("Failed to scan remedy access", err)
		}
		a.UpdatedAt = unixTime(updatedAt)
		a.AccessedRemedies = []string{}
		index[a.AilmentID] = len(list)
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.DatabaseError("Failed to iterate remedy access", err)
	}
	rows.Close()

	if len(list) == 0 {
		return list, nil
	}

	items, err := r.db.QueryContext(ctx, `
		SELECT ailment_id, remedy_id, kind
		FROM remedy_access_items `+where+`
		ORDER BY created_at, remedy_id
	`, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load remedy access items", err)
	}
	defer items.Close()

	for items.Next() {
		var ailmentID, remedyID, kind string
		if err := items.Scan(&ailmentID, &remedyID, &kind); err != nil {
			return nil, errors.DatabaseError("Failed to scan remedy access item", err)
		}
		i, ok := index[ailmentID]
		if !ok {
			continue
		}
		switch kind {
		case itemPurchase:
			list[i].AccessedRemedies = append(list[i].AccessedRemedies, remedyID)
		case itemView:
			list[i].ViewedRemedies = append(list[i].ViewedRemedies, remedyID)
		}
	}

	if err := items.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate remedy access items", err)
	}

	return list, nil
}

// IncrementView counts remedyID against the ailment allowance of max.
// The item insert dedupes repeat views; the conditional update keeps
// access_count from passing max under concurrent requests.
func (r *RemedyAccessRepository) IncrementView(ctx context.Context, userID int64, ailmentID, remedyID string, max int) (bool, error) {
	now := time.Now().Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.DatabaseError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	if err := ensureAccessRow(ctx, tx, userID, ailmentID, now); err != nil {
		return false, err
	}

	inserted, err := insertItem(ctx, tx, userID, ailmentID, remedyID, itemView, now)
	if err != nil {
		return false, err
	}
	if !inserted {
		// Already counted
		if err := tx.Commit(); err != nil {
			return false, errors.DatabaseError("Failed to commit remedy view", err)
		}
		return false, nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE remedy_access
		SET access_count = access_count + 1, updated_at = $1
		WHERE user_id = $2 AND ailment_id = $3 AND access_count < $4
	`, now, userID, ailmentID, max)
	if err != nil {
		return false, errors.DatabaseError("Failed to count remedy view", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	if n == 0 {
		return false, subscription.ErrLimitReached
	}

	if err := tx.Commit(); err != nil {
		return false, errors.DatabaseError("Failed to commit remedy view", err)
	}
	return true, nil
}

// AddPurchase records remedyID as bought. Returns false if it already was.
func (r *RemedyAccessRepository) AddPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (bool, error) {
	now := time.Now().Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.DatabaseError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	if err := ensureAccessRow(ctx, tx, userID, ailmentID, now); err != nil {
		return false, err
	}

	inserted, err := insertItem(ctx, tx, userID, ailmentID, remedyID, itemPurchase, now)
	if err != nil {
		return false, err
	}

	if inserted {
		if _, err := tx.ExecContext(ctx, `
			UPDATE remedy_access SET updated_at = $1 WHERE user_id = $2 AND ailment_id = $3
		`, now, userID, ailmentID); err != nil {
			return false, errors.DatabaseError("Failed to update remedy access", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.DatabaseError("Failed to commit remedy purchase", err)
	}
	return inserted, nil
}

func ensureAccessRow(ctx context.Context, tx *sql.Tx, userID int64, ailmentID string, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO remedy_access (user_id, ailment_id, access_count, updated_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id, ailment_id) DO NOTHING
	`, userID, ailmentID, now)
	if err != nil {
		return errors.DatabaseError("Failed to create remedy access", err)
	}
	return nil
}

func insertItem(ctx context.Context, tx *sql.Tx, userID int64, ailmentID, remedyID, kind string, now int64) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO remedy_access_items (user_id, ailment_id, remedy_id, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, ailment_id, remedy_id, kind) DO NOTHING
	`, userID, ailmentID, remedyID, kind, now)
	if err != nil {
		return false, errors.DatabaseError("Failed to record remedy access", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return n > 0, nil
}
