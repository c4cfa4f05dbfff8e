package mongo

import (
	"time"

	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
)

type userModel struct {
	ID                 int64     `bson:"_id"`
	Email              string    `bson:"email"`
	Username           string    `bson:"username"`
	FullName           *string   `bson:"full_name,omitempty"`
	PasswordHash       string    `bson:"password_hash"`
	Role               string    `bson:"role"`
	SubscriptionStatus string    `bson:"subscription_status"`
	CurrentPlanID      *string   `bson:"current_plan_id,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	return &userModel{
		ID:                 u.ID,
		Email:              u.Email,
		Username:           u.Username,
		FullName:           u.FullName,
		PasswordHash:       u.PasswordHash,
		Role:               u.Role,
		SubscriptionStatus: u.SubscriptionStatus,
		CurrentPlanID:      u.CurrentPlanID,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) *user.User {
	return &user.User{
		ID:                 m.ID,
		Email:              m.Email,
		Username:           m.Username,
		FullName:           m.FullName,
		PasswordHash:       m.PasswordHash,
		Role:               m.Role,
		SubscriptionStatus: m.SubscriptionStatus,
		CurrentPlanID:      m.CurrentPlanID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

type planModel struct {
	ID                    string    `bson:"_id"`
	Name                  string    `bson:"name"`
	Description           string    `bson:"description"`
	Price                 float64   `bson:"price"`
	Currency              string    `bson:"currency"`
	Duration              int       `bson:"duration"`
	MaxRemediesPerAilment int       `bson:"max_remedies_per_ailment"`
	Features              []string  `bson:"features"`
	IsActive              bool      `bson:"is_active"`
	Version               int       `bson:"version"`
	CreatedAt             time.Time `bson:"created_at"`
	UpdatedAt             time.Time `bson:"updated_at"`
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	name, err := plan.ParseName(m.Name)
	if err != nil {
		return nil, err
	}
	features := m.Features
	if features == nil {
		features = []string{}
	}
	return &plan.Plan{
		ID:                    m.ID,
		Name:                  name,
		Description:           m.Description,
		Price:                 m.Price,
		Currency:              m.Currency,
		Duration:              m.Duration,
		MaxRemediesPerAilment: m.MaxRemediesPerAilment,
		Features:              features,
		IsActive:              m.IsActive,
		Version:               m.Version,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}, nil
}

type subscriptionModel struct {
	ID          string     `bson:"_id"`
	UserID      int64      `bson:"user_id"`
	PlanID      string     `bson:"plan_id"`
	StartDate   time.Time  `bson:"start_date"`
	EndDate     time.Time  `bson:"end_date"`
	Status      string     `bson:"status"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:          s.ID,
		UserID:      s.UserID,
		PlanID:      s.PlanID,
		StartDate:   s.StartDate.UTC(),
		EndDate:     s.EndDate.UTC(),
		Status:      string(s.Status),
		CancelledAt: s.CancelledAt,
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
}

func fromSubscriptionModel(m *subscriptionModel) *subscription.Subscription {
	return &subscription.Subscription{
		ID:           m.ID,
		UserID:       m.UserID,
		PlanID:       m.PlanID,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		Status:       subscription.Status(m.Status),
		RemedyAccess: []subscription.RemedyAccess{},
		CancelledAt:  m.CancelledAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type remedyAccessModel struct {
	UserID           int64     `bson:"user_id"`
	AilmentID        string    `bson:"ailment_id"`
	AccessedRemedies []string  `bson:"accessed_remedies"`
	ViewedRemedies   []string  `bson:"viewed_remedies"`
	AccessCount      int       `bson:"access_count"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func fromRemedyAccessModel(m *remedyAccessModel) subscription.RemedyAccess {
	accessed := m.AccessedRemedies
	if accessed == nil {
		accessed = []string{}
	}
	return subscription.RemedyAccess{
		AilmentID:        m.AilmentID,
		AccessedRemedies: accessed,
		AccessCount:      m.AccessCount,
		ViewedRemedies:   m.ViewedRemedies,
		UpdatedAt:        m.UpdatedAt,
	}
}
