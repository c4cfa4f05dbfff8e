package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/errors"
)

// UserRepository implements user.Repository
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) user.Repository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, username, full_name, password_hash, role, subscription_status,
	current_plan_id, created_at, updated_at`

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = user.SubscriptionNone
	}

	query := `
		INSERT INTO users (email, username, full_name, password_hash, role, subscription_status,
			current_plan_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		u.Email, u.Username, nullString(u.FullName), u.PasswordHash, u.Role,
		u.SubscriptionStatus, nullString(u.CurrentPlanID), now.Unix(),
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("User with this email already exists")
		}
		return errors.DatabaseError("Failed to create user", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUserRow(row)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUserRow(row)
}

// Update updates a user's profile fields
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET email = $1, username = $2, full_name = $3, role = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		u.Email, u.Username, nullString(u.FullName), u.Role, u.UpdatedAt.Unix(), u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("User with this email already exists")
		}
		return errors.DatabaseError("Failed to update user", err)
	}

	return requireRow(result, "User")
}

// UpdateSubscriptionState sets the denormalized subscription fields
func (r *UserRepository) UpdateSubscriptionState(ctx context.Context, id int64, status string, planID *string) error {
	now := time.Now().Unix()

	var result sql.Result
	var err error
	if planID != nil {
		result, err = r.db.ExecContext(ctx, `
			UPDATE users SET subscription_status = $1, current_plan_id = $2, updated_at = $3 WHERE id = $4
		`, status, *planID, now, id)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE users SET subscription_status = $1, updated_at = $2 WHERE id = $3
		`, status, now, id)
	}
	if err != nil {
		return errors.DatabaseError("Failed to update subscription state", err)
	}

	return requireRow(result, "User")
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.DatabaseError("Failed to delete user", err)
	}

	return requireRow(result, "User")
}

// List retrieves all users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count users", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list users", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan user", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, errors.DatabaseError("Failed to iterate users", err)
	}

	return users, total, nil
}

func scanUserRow(row *sql.Row) (*user.User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}
	return u, nil
}

func scanUser(s scanner) (*user.User, error) {
	var u user.User
	var fullName, planID sql.NullString
	var createdAt, updatedAt int64

	err := s.Scan(
		&u.ID, &u.Email, &u.Username, &fullName, &u.PasswordHash, &u.Role,
		&u.SubscriptionStatus, &planID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.FullName = stringPtr(fullName)
	u.CurrentPlanID = stringPtr(planID)
	u.CreatedAt = unixTime(createdAt)
	u.UpdatedAt = unixTime(updatedAt)

	return &u, nil
}

func requireRow(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
