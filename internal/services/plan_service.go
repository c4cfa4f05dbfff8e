package services

import (
	"context"
	stderrors "errors"

	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/metrics"
)

// PlanService implements plan.Service
type PlanService struct {
	repo   plan.Repository
	logger *logger.Logger
}

// NewPlanService creates a new plan service
func NewPlanService(repo plan.Repository, log *logger.Logger) plan.Service {
	return &PlanService{
		repo:   repo,
		logger: log,
	}
}

// List returns active plans ordered by price
func (s *PlanService) List(ctx context.Context) ([]*plan.Plan, error) {
	plans, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to list plans")
		return nil, err
	}
	if plans == nil {
		plans = []*plan.Plan{}
	}
	return plans, nil
}

// Get retrieves a plan by ID
func (s *PlanService) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, plan.ErrNotFound) {
			return nil, errors.NotFound("Plan")
		}
		return nil, err
	}
	return p, nil
}

// GetByName retrieves a plan by catalog name
func (s *PlanService) GetByName(ctx context.Context, name plan.Name) (*plan.Plan, error) {
	p, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if stderrors.Is(err, plan.ErrNotFound) {
			return nil, errors.NotFound("Plan")
		}
		return nil, err
	}
	return p, nil
}

// EnsureDefaults upserts every catalog plan and returns how many were written.
// A failing plan is logged and does not stop the others.
func (s *PlanService) EnsureDefaults(ctx context.Context) int {
	written := 0
	for _, p := range plan.Defaults() {
		if err := s.repo.Upsert(ctx, p); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"plan": p.Name,
			}).ErrorWithErr(err, "Failed to seed plan")
			metrics.RecordPlanSeed(p.Name.String(), false)
			continue
		}
		metrics.RecordPlanSeed(p.Name.String(), true)
		written++
	}

	s.logger.WithFields(map[string]interface{}{
		"written": written,
		"version": plan.CatalogVersion,
	}).Info("Default plans ensured")

	return written
}
