package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/rbac"
)

const defaultCurrency = "USD"

type JobService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewJobService(store repository.Store, logger *zap.Logger) *JobService {
	return &JobService{store: store, logger: logger}
}

type JobInput struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Category        string       `json:"category"`
	SkillsRequired  []string     `json:"skills_required"`
	Budget          model.Budget `json:"budget"`
	BudgetType      string       `json:"budget_type"`
	Timeline        string       `json:"timeline"`
	ExperienceLevel string       `json:"experience_level"`
	Location        string       `json:"location"`
}

func (in *JobInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" || in.Category == "" || in.BudgetType == "" ||
		in.Timeline == "" || in.ExperienceLevel == "" {
		return invalid("title, description, category, budget_type, timeline and experience_level are required")
	}
	if !model.Contains(model.JobCategories, in.Category) {
		return invalid("invalid category %q", in.Category)
	}
	if !model.Contains(model.BudgetTypes, in.BudgetType) {
		return invalid("invalid budget_type %q", in.BudgetType)
	}
	if !model.Contains(model.JobTimelines, in.Timeline) {
		return invalid("invalid timeline %q", in.Timeline)
	}
	if !model.Contains(model.ExperienceLevels, in.ExperienceLevel) {
		return invalid("invalid experience_level %q", in.ExperienceLevel)
	}
	if in.Budget.Min < 0 || in.Budget.Max < 0 {
		return invalid("budget must not be negative")
	}
	if in.Budget.Min > in.Budget.Max {
		return invalid("budget.min must not exceed budget.max")
	}
	if in.Budget.Currency == "" {
		in.Budget.Currency = defaultCurrency
	}

	in.SkillsRequired = model.NormalizeSkills(in.SkillsRequired)
	return nil
}

func (in JobInput) apply(j *model.Job) {
	j.Title = in.Title
	j.Description = in.Description
	j.Category = in.Category
	j.SkillsRequired = in.SkillsRequired
	j.Budget = in.Budget
	j.BudgetType = in.BudgetType
	j.Timeline = in.Timeline
	j.ExperienceLevel = in.ExperienceLevel
	j.Location = strings.TrimSpace(in.Location)
}

func (s *JobService) Create(ctx context.Context, caller rbac.Caller, in JobInput) (*model.Job, error) {
	if err := requirePermission(caller, rbac.PermissionCreateJob); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	j := &model.Job{ClientID: caller.ID, Status: model.JobStatusOpen}
	in.apply(j)
	if err := s.store.Jobs().Create(ctx, j); err != nil {
		return nil, fromRepo(err, "job")
	}
	s.logger.Info("Job created", zap.Int64("job_id", j.ID), zap.Int64("client_id", caller.ID))
	return j, nil
}

func (s *JobService) Get(ctx context.Context, id int64) (*model.Job, error) {
	j, err := s.store.Jobs().GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "job")
	}
	return j, nil
}

func (s *JobService) ownedJob(ctx context.Context, caller rbac.Caller, id int64) (*model.Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(rbac.Require(caller, j, rbac.RelationOwner)); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *JobService) Update(ctx context.Context, caller rbac.Caller, id int64, in JobInput) (*model.Job, error) {
	j, err := s.ownedJob(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(j)
	if err := s.store.Jobs().Update(ctx, j); err != nil {
		return nil, fromRepo(err, "job")
	}
	return j, nil
}

func (s *JobService) UpdateStatus(ctx context.Context, caller rbac.Caller, id int64, status string) (*model.Job, error) {
	if !model.Contains(model.JobStatuses, status) {
		return nil, invalid("invalid status %q", status)
	}
	j, err := s.ownedJob(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Jobs().UpdateStatus(ctx, id, status); err != nil {
		return nil, fromRepo(err, "job")
	}
	j.Status = status
	s.logger.Info("Job status changed", zap.Int64("job_id", id), zap.String("status", status))
	return j, nil
}

// Delete removes the job together with its proposals and applications.
func (s *JobService) Delete(ctx context.Context, caller rbac.Caller, id int64) error {
	if _, err := s.ownedJob(ctx, caller, id); err != nil {
		return err
	}

	var removed int64
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		contracts, err := tx.Contracts().CountByJob(ctx, id)
		if err != nil {
			return err
		}
		if contracts > 0 {
			return precondition("job has a contract and cannot be deleted")
		}
		if removed, err = tx.Proposals().DeleteByJob(ctx, id); err != nil {
			return err
		}
		return tx.Jobs().Delete(ctx, id)
	})
	if err != nil {
		return fromRepo(err, "job")
	}
	s.logger.Info("Job deleted", zap.Int64("job_id", id), zap.Int64("proposals_removed", removed))
	return nil
}

type SearchInput struct {
	Query           string
	Category        string
	BudgetType      string
	ExperienceLevel string
	Timeline        string
	Skills          []string
	MinBudget       *float64
	MaxBudget       *float64
	Status          string
	Sort            string
	Page            int
	Limit           int
}

func (s *JobService) Search(ctx context.Context, in SearchInput) ([]model.Job, Page, error) {
	page := newPage(in.Page, in.Limit)

	status := in.Status
	if status == "" {
		status = model.JobStatusOpen
	}
	if !model.Contains(model.JobStatuses, status) {
		return nil, page, invalid("invalid status %q", status)
	}
	if in.MinBudget != nil && in.MaxBudget != nil && *in.MinBudget > *in.MaxBudget {
		return nil, page, invalid("minBudget must not exceed maxBudget")
	}

	jobs, total, err := s.store.Jobs().Search(ctx, model.JobFilter{
		Query:           in.Query,
		Category:        in.Category,
		BudgetType:      in.BudgetType,
		ExperienceLevel: in.ExperienceLevel,
		Timeline:        in.Timeline,
		Skills:          model.NormalizeSkills(in.Skills),
		MinBudget:       in.MinBudget,
		MaxBudget:       in.MaxBudget,
		Status:          status,
		Sort:            in.Sort,
		Offset:          page.Offset(),
		Limit:           page.Limit,
	})
	if err != nil {
		return nil, page, err
	}
	page.Total = total
	return jobs, page, nil
}

func (s *JobService) Mine(ctx context.Context, caller rbac.Caller) ([]model.Job, error) {
	return s.store.Jobs().ListByClient(ctx, caller.ID)
}
