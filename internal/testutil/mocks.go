package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/errors"
)

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	mu          sync.Mutex
	Users       map[int64]*user.User
	EmailIndex  map[string]*user.User
	NextID      int64
	CreateError error
	GetError    error
	UpdateError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:      make(map[int64]*user.User),
		EmailIndex: make(map[string]*user.User),
		NextID:     1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, exists := m.EmailIndex[u.Email]; exists {
		return errors.Conflict("User with this email already exists")
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = user.SubscriptionNone
	}
	u.ID = m.NextID
	m.NextID++
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.Users[u.ID] = u
	m.EmailIndex[u.Email] = u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.EmailIndex[email]
	if !ok {
		return nil, errors.NotFound("User")
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Users[u.ID]; !ok {
		return errors.NotFound("User")
	}
	m.Users[u.ID] = u
	m.EmailIndex[u.Email] = u
	return nil
}

func (m *MockUserRepository) UpdateSubscriptionState(ctx context.Context, id int64, status string, planID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	u, ok := m.Users[id]
	if !ok {
		return errors.NotFound("User")
	}
	u.SubscriptionStatus = status
	if planID != nil {
		p := *planID
		u.CurrentPlanID = &p
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return errors.NotFound("User")
	}
	delete(m.EmailIndex, u.Email)
	delete(m.Users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*user.User
	for _, u := range m.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	total := int64(len(users))
	if offset >= len(users) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], total, nil
}

// MockPlanRepository is a mock implementation of plan.Repository
type MockPlanRepository struct {
	mu          sync.Mutex
	Plans       map[string]*plan.Plan
	UpsertError error
	GetError    error
	ListError   error
	// FailNames makes Upsert fail for the listed plan names
	FailNames map[plan.Name]bool
}

func NewMockPlanRepository() *MockPlanRepository {
	return &MockPlanRepository{
		Plans:     make(map[string]*plan.Plan),
		FailNames: make(map[plan.Name]bool),
	}
}

// Seed stores every catalog plan and returns them keyed by name
func (m *MockPlanRepository) Seed() map[plan.Name]*plan.Plan {
	out := make(map[plan.Name]*plan.Plan)
	for _, p := range plan.Defaults() {
		_ = m.Upsert(context.Background(), p)
		out[p.Name] = p
	}
	return out
}

func (m *MockPlanRepository) Upsert(ctx context.Context, p *plan.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return m.UpsertError
	}
	if m.FailNames[p.Name] {
		return fmt.Errorf("upsert %s failed", p.Name)
	}
	now := time.Now()
	for id, existing := range m.Plans {
		if existing.Name == p.Name {
			p.ID = id
			p.CreatedAt = existing.CreatedAt
			p.UpdatedAt = now
			m.Plans[id] = p
			return nil
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	m.Plans[p.ID] = p
	return nil
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id string) (*plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	p, ok := m.Plans[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	return p, nil
}

func (m *MockPlanRepository) GetByName(ctx context.Context, name plan.Name) (*plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, p := range m.Plans {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, plan.ErrNotFound
}

func (m *MockPlanRepository) ListActive(ctx context.Context) ([]*plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	var plans []*plan.Plan
	for _, p := range m.Plans {
		if p.IsActive {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Price != plans[j].Price {
			return plans[i].Price < plans[j].Price
		}
		return plans[i].Name < plans[j].Name
	})
	return plans, nil
}

func (m *MockPlanRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Plans)), nil
}

// MockSubscriptionRepository is a mock implementation of subscription.Repository
type MockSubscriptionRepository struct {
	mu            sync.Mutex
	Subscriptions map[string]*subscription.Subscription
	CreateError   error
	GetError      error
	UpdateError   error
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		Subscriptions: make(map[string]*subscription.Subscription),
	}
}

func (m *MockSubscriptionRepository) ReplaceActive(ctx context.Context, s *subscription.Subscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return false, m.CreateError
	}
	now := time.Now()
	replaced := false
	for _, existing := range m.Subscriptions {
		if existing.UserID != s.UserID || existing.Status != subscription.StatusActive {
			continue
		}
		if existing.EndDate.Before(s.StartDate) {
			existing.Status = subscription.StatusExpired
			existing.UpdatedAt = now
			continue
		}
		existing.Status = subscription.StatusCancelled
		at := now
		existing.CancelledAt = &at
		existing.UpdatedAt = now
		replaced = true
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	cp.Plan = nil
	cp.RemedyAccess = []subscription.RemedyAccess{}
	m.Subscriptions[s.ID] = &cp
	return replaced, nil
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	s, ok := m.Subscriptions[id]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepository) GetActiveByUser(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, s := range m.Subscriptions {
		if s.UserID == userID && s.Status == subscription.StatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, subscription.ErrNoActiveSubscription
}

func (m *MockSubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	subs := []*subscription.Subscription{}
	for _, s := range m.Subscriptions {
		if s.UserID == userID {
			cp := *s
			subs = append(subs, &cp)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].Status == subscription.StatusActive
	})
	return subs, nil
}

func (m *MockSubscriptionRepository) CancelActive(ctx context.Context, userID int64, at time.Time) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	for _, s := range m.Subscriptions {
		if s.UserID == userID && s.Status == subscription.StatusActive && !s.EndDate.Before(at) {
			s.Status = subscription.StatusCancelled
			t := at
			s.CancelledAt = &t
			s.UpdatedAt = at
			cp := *s
			return &cp, nil
		}
	}
	return nil, subscription.ErrNoActiveSubscription
}

func (m *MockSubscriptionRepository) ExpireLapsed(ctx context.Context, userID int64, now time.Time) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	for _, s := range m.Subscriptions {
		if s.UserID == userID && s.Status == subscription.StatusActive && s.EndDate.Before(now) {
			s.Status = subscription.StatusExpired
			s.UpdatedAt = now
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockSubscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	var expired []*subscription.Subscription
	for _, s := range m.Subscriptions {
		if s.Status == subscription.StatusActive && s.EndDate.Before(now) {
			s.Status = subscription.StatusExpired
			s.UpdatedAt = now
			cp := *s
			expired = append(expired, &cp)
		}
	}
	return expired, nil
}

type accessKey struct {
	userID    int64
	ailmentID string
}

// MockAccessRepository is a mock implementation of subscription.AccessRepository
type MockAccessRepository struct {
	mu          sync.Mutex
	Records     map[accessKey]*subscription.RemedyAccess
	GetError    error
	UpdateError error
}

func NewMockAccessRepository() *MockAccessRepository {
	return &MockAccessRepository{
		Records: make(map[accessKey]*subscription.RemedyAccess),
	}
}

func copyAccess(a *subscription.RemedyAccess) subscription.RemedyAccess {
	cp := *a
	cp.AccessedRemedies = append([]string{}, a.AccessedRemedies...)
	cp.ViewedRemedies = append([]string(nil), a.ViewedRemedies...)
	return cp
}

func (m *MockAccessRepository) record(userID int64, ailmentID string) *subscription.RemedyAccess {
	k := accessKey{userID, ailmentID}
	a, ok := m.Records[k]
	if !ok {
		a = &subscription.RemedyAccess{AilmentID: ailmentID, AccessedRemedies: []string{}}
		m.Records[k] = a
	}
	return a
}

func (m *MockAccessRepository) ListByUser(ctx context.Context, userID int64) ([]subscription.RemedyAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	list := []subscription.RemedyAccess{}
	for k, a := range m.Records {
		if k.userID == userID {
			list = append(list, copyAccess(a))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AilmentID < list[j].AilmentID })
	return list, nil
}

func (m *MockAccessRepository) Get(ctx context.Context, userID int64, ailmentID string) (*subscription.RemedyAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	a, ok := m.Records[accessKey{userID, ailmentID}]
	if !ok {
		return nil, nil
	}
	cp := copyAccess(a)
	return &cp, nil
}

func (m *MockAccessRepository) IncrementView(ctx context.Context, userID int64, ailmentID, remedyID string, max int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	a := m.record(userID, ailmentID)
	if a.HasViewed(remedyID) {
		return false, nil
	}
	if a.AccessCount >= max {
		return false, subscription.ErrLimitReached
	}
	a.ViewedRemedies = append(a.ViewedRemedies, remedyID)
	a.AccessCount++
	a.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockAccessRepository) AddPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	a := m.record(userID, ailmentID)
	if a.HasPurchased(remedyID) {
		return false, nil
	}
	a.AccessedRemedies = append(a.AccessedRemedies, remedyID)
	a.UpdatedAt = time.Now()
	return true, nil
}

// MockPaymentProvider is a mock implementation of payment.Provider
type MockPaymentProvider struct {
	mu      sync.Mutex
	Intents []payment.IntentRequest
	Setups  []map[string]string
	Event   *payment.Event
	Error   error
	nextID  int
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) CreateSetupIntent(ctx context.Context, metadata map[string]string) (*payment.SetupIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	m.nextID++
	m.Setups = append(m.Setups, metadata)
	return &payment.SetupIntent{
		ID:           fmt.Sprintf("seti_%d", m.nextID),
		ClientSecret: fmt.Sprintf("seti_%d_secret", m.nextID),
	}, nil
}

func (m *MockPaymentProvider) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	m.nextID++
	m.Intents = append(m.Intents, req)
	return &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", m.nextID),
		ClientSecret: fmt.Sprintf("pi_%d_secret", m.nextID),
		Status:       "requires_payment_method",
	}, nil
}

// ParseWebhook accepts any payload signed "valid" and returns Event
func (m *MockPaymentProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	if m.Event == nil {
		return nil, fmt.Errorf("no event configured")
	}
	ev := *m.Event
	return &ev, nil
}
