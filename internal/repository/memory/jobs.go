package memory

import (
	"context"
	"sort"
	"strings"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type jobRepo struct{ s *Store }

func (r jobRepo) load(j model.Job) model.Job {
	j.SkillsRequired = cloneStrings(j.SkillsRequired)
	j.ApplicationCount = 0
	for _, a := range r.s.d.applications {
		if a.JobID == j.ID {
			j.ApplicationCount++
		}
	}
	return j
}

func (r jobRepo) Create(_ context.Context, j *model.Job) error {
	defer r.s.lock()()
	now := r.s.now()
	j.ID = r.s.d.nextID()
	j.CreatedAt, j.UpdatedAt = now, now
	stored := *j
	stored.SkillsRequired = cloneStrings(j.SkillsRequired)
	r.s.d.jobs[j.ID] = stored
	return nil
}

func (r jobRepo) GetByID(_ context.Context, id int64) (*model.Job, error) {
	defer r.s.lock()()
	j, ok := r.s.d.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	j = r.load(j)
	return &j, nil
}

func (r jobRepo) Update(_ context.Context, j *model.Job) error {
	defer r.s.lock()()
	stored, ok := r.s.d.jobs[j.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := *j
	updated.ClientID = stored.ClientID
	updated.Status = stored.Status
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = r.s.now()
	updated.SkillsRequired = cloneStrings(j.SkillsRequired)
	r.s.d.jobs[j.ID] = updated
	j.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r jobRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	defer r.s.lock()()
	j, ok := r.s.d.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = status
	j.UpdatedAt = r.s.now()
	r.s.d.jobs[id] = j
	return nil
}

func (r jobRepo) Delete(_ context.Context, id int64) error {
	defer r.s.lock()()
	if _, ok := r.s.d.jobs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.d.jobs, id)
	for aid, a := range r.s.d.applications {
		if a.JobID == id {
			delete(r.s.d.applications, aid)
		}
	}
	for k := range r.s.d.bookmarks {
		if k.jobID == id {
			delete(r.s.d.bookmarks, k)
		}
	}
	return nil
}

func (r jobRepo) Search(_ context.Context, f model.JobFilter) ([]model.Job, int, error) {
	defer r.s.lock()()
	var matched []model.Job
	for _, j := range r.s.d.jobs {
		if matchesFilter(j, f) {
			matched = append(matched, r.load(j))
		}
	}
	sortJobs(matched, f.Sort)
	return paginate(matched, f.Offset, f.Limit), len(matched), nil
}

func (r jobRepo) ListByClient(_ context.Context, clientID int64) ([]model.Job, error) {
	defer r.s.lock()()
	jobs := []model.Job{}
	for _, j := range r.s.d.jobs {
		if j.ClientID == clientID {
			jobs = append(jobs, r.load(j))
		}
	}
	sortJobs(jobs, model.SortNewest)
	return jobs, nil
}

func matchesFilter(j model.Job, f model.JobFilter) bool {
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.Category != "" && j.Category != f.Category {
		return false
	}
	if f.BudgetType != "" && j.BudgetType != f.BudgetType {
		return false
	}
	if f.ExperienceLevel != "" && j.ExperienceLevel != f.ExperienceLevel {
		return false
	}
	if f.Timeline != "" && j.Timeline != f.Timeline {
		return false
	}
	if f.MinBudget != nil && j.Budget.Max < *f.MinBudget {
		return false
	}
	if f.MaxBudget != nil && j.Budget.Min > *f.MaxBudget {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(j.Title), q) && !strings.Contains(strings.ToLower(j.Description), q) {
			return false
		}
	}
	if len(f.Skills) > 0 && !anySkill(j.SkillsRequired, f.Skills) {
		return false
	}
	return true
}

// anySkill mirrors postgres' && overlap on already normalized tags.
func anySkill(have, want []string) bool {
	for _, w := range want {
		if model.Contains(have, w) {
			return true
		}
	}
	return false
}

func sortJobs(jobs []model.Job, order string) {
	sort.SliceStable(jobs, func(a, b int) bool {
		ja, jb := jobs[a], jobs[b]
		switch order {
		case model.SortOldest:
			return ja.ID < jb.ID
		case model.SortBudgetHigh:
			if ja.Budget.Max != jb.Budget.Max {
				return ja.Budget.Max > jb.Budget.Max
			}
		case model.SortBudgetLow:
			if ja.Budget.Min != jb.Budget.Min {
				return ja.Budget.Min < jb.Budget.Min
			}
		}
		return ja.ID > jb.ID
	})
}

func (r jobRepo) AddApplication(_ context.Context, a *model.Application) error {
	defer r.s.lock()()
	if _, ok := r.s.d.jobs[a.JobID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range r.s.d.applications {
		if existing.JobID == a.JobID && existing.FreelancerID == a.FreelancerID {
			return repository.ErrDuplicate
		}
	}
	a.ID = r.s.d.nextID()
	if a.AppliedAt.IsZero() {
		a.AppliedAt = r.s.now()
	}
	r.s.d.applications[a.ID] = *a
	return nil
}

func (r jobRepo) ListApplications(_ context.Context, jobID int64, offset, limit int) ([]model.Application, int, error) {
	defer r.s.lock()()
	apps := []model.Application{}
	for _, a := range r.s.d.applications {
		if a.JobID == jobID {
			apps = append(apps, a)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return paginate(apps, offset, limit), len(apps), nil
}

func (r jobRepo) UpdateApplicationStatus(_ context.Context, proposalID int64, status string) error {
	defer r.s.lock()()
	for id, a := range r.s.d.applications {
		if a.ProposalID == proposalID {
			a.Status = status
			r.s.d.applications[id] = a
			return nil
		}
	}
	return repository.ErrNotFound
}
