package postgres

import (
	"context"
	"testing"

	"github.com/remlyo/remlyo/internal/domain/user"
	apperrors "github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/testutil"
)

func newUser(email string) *user.User {
	return &user.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Role:         user.RoleUser,
	}
}

func TestUserRepository_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *user.User
		wantErr bool
	}{
		{
			name:    "create user successfully",
			user:    newUser("test@example.com"),
			wantErr: false,
		},
		{
			name:    "create another user",
			user:    newUser("another@example.com"),
			wantErr: false,
		},
		{
			name:    "duplicate email",
			user:    newUser("test@example.com"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)

			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				if appErr, ok := apperrors.As(err); !ok || appErr.Code != apperrors.ErrCodeConflict {
					t.Errorf("Create() error = %v, want conflict", err)
				}
				return
			}

			if tt.user.ID == 0 {
				t.Error("Create() did not set user ID")
			}
			if tt.user.SubscriptionStatus != user.SubscriptionNone {
				t.Errorf("Create() SubscriptionStatus = %q, want %q", tt.user.SubscriptionStatus, user.SubscriptionNone)
			}
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	fullName := "Test User"
	u := newUser("test@example.com")
	u.FullName = &fullName
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		userID  int64
		wantErr bool
	}{
		{
			name:    "get existing user",
			userID:  u.ID,
			wantErr: false,
		},
		{
			name:    "get non-existing user",
			userID:  999,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByID(ctx, tt.userID)

			if (err != nil) != tt.wantErr {
				t.Errorf("GetByID() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				if !apperrors.IsNotFound(err) {
					t.Errorf("GetByID() error = %v, want not found", err)
				}
				return
			}

			if got.Email != u.Email || got.PasswordHash != u.PasswordHash {
				t.Errorf("GetByID() = %+v", got)
			}
			if got.FullName == nil || *got.FullName != fullName {
				t.Errorf("GetByID() FullName = %v, want %q", got.FullName, fullName)
			}
			if got.CurrentPlanID != nil {
				t.Errorf("GetByID() CurrentPlanID = %v, want nil", *got.CurrentPlanID)
			}
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	email := "test@example.com"
	if err := repo.Create(ctx, newUser(email)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "get existing user by email",
			email:   email,
			wantErr: false,
		},
		{
			name:    "get non-existing user by email",
			email:   "nonexistent@example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByEmail(ctx, tt.email)

			if (err != nil) != tt.wantErr {
				t.Errorf("GetByEmail() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && got.Email != tt.email {
				t.Errorf("GetByEmail() Email = %v, want %v", got.Email, tt.email)
			}
		})
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	u := newUser("test@example.com")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	u.Role = user.RoleAdmin
	u.Username = "renamed"
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	updated, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}

	if updated.Role != user.RoleAdmin || updated.Username != "renamed" {
		t.Errorf("Update() = %+v", updated)
	}

	missing := newUser("ghost@example.com")
	missing.ID = 999
	if err := repo.Update(ctx, missing); !apperrors.IsNotFound(err) {
		t.Errorf("Update() missing user error = %v, want not found", err)
	}
}

func TestUserRepository_UpdateSubscriptionState(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	u := newUser("test@example.com")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	planID := "plan-premium"
	if err := repo.UpdateSubscriptionState(ctx, u.ID, user.SubscriptionActive, &planID); err != nil {
		t.Fatalf("UpdateSubscriptionState() error = %v", err)
	}

	// A nil plan keeps the current plan reference
	if err := repo.UpdateSubscriptionState(ctx, u.ID, user.SubscriptionCancelled, nil); err != nil {
		t.Fatalf("UpdateSubscriptionState() error = %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.SubscriptionStatus != user.SubscriptionCancelled {
		t.Errorf("SubscriptionStatus = %q, want %q", got.SubscriptionStatus, user.SubscriptionCancelled)
	}
	if got.CurrentPlanID == nil || *got.CurrentPlanID != planID {
		t.Errorf("CurrentPlanID = %v, want %q", got.CurrentPlanID, planID)
	}

	if err := repo.UpdateSubscriptionState(ctx, 999, user.SubscriptionActive, nil); !apperrors.IsNotFound(err) {
		t.Errorf("UpdateSubscriptionState() missing user error = %v, want not found", err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	u := newUser("test@example.com")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := repo.GetByID(ctx, u.ID); err == nil {
		t.Error("Delete() user still exists after deletion")
	}
}

func TestUserRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if err := repo.Create(ctx, newUser(email)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	users, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(users) != 2 {
		t.Errorf("List() total = %d, len = %d", total, len(users))
	}
	if users[0].Email != "c@example.com" {
		t.Errorf("List() first = %s, want newest first", users[0].Email)
	}
}
