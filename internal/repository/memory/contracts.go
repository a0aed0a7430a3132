package memory

import (
	"context"
	"sort"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type contractRepo struct{ s *Store }

func cloneSubmission(sub model.Submission) model.Submission {
	sub.Files = append([]model.SubmissionFile(nil), sub.Files...)
	if sub.FeedbackAt != nil {
		t := *sub.FeedbackAt
		sub.FeedbackAt = &t
	}
	return sub
}

func cloneMilestone(m model.Milestone) model.Milestone {
	if m.CurrentSubmission != nil {
		cur := cloneSubmission(*m.CurrentSubmission)
		m.CurrentSubmission = &cur
	}
	history := make([]model.Submission, 0, len(m.SubmissionHistory))
	for _, sub := range m.SubmissionHistory {
		history = append(history, cloneSubmission(sub))
	}
	m.SubmissionHistory = history
	return m
}

func (r contractRepo) assemble(c model.Contract) model.Contract {
	c.Milestones = []model.Milestone{}
	for _, m := range r.s.d.milestones {
		if m.ContractID == c.ID {
			c.Milestones = append(c.Milestones, cloneMilestone(m))
		}
	}
	sort.Slice(c.Milestones, func(i, j int) bool { return c.Milestones[i].Position < c.Milestones[j].Position })
	return c
}

func (r contractRepo) Create(_ context.Context, c *model.Contract) error {
	defer r.s.lock()()
	for _, existing := range r.s.d.contracts {
		if existing.ProposalID == c.ProposalID {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	c.ID = r.s.d.nextID()
	c.Version = 1
	c.CreatedAt, c.UpdatedAt = now, now

	for i := range c.Milestones {
		m := &c.Milestones[i]
		m.ID = r.s.d.nextID()
		m.ContractID = c.ID
		m.Position = i
		m.Version = 1
		m.CreatedAt, m.UpdatedAt = now, now
		r.s.d.milestones[m.ID] = cloneMilestone(*m)
	}

	stored := *c
	stored.Milestones = nil
	r.s.d.contracts[c.ID] = stored
	return nil
}

func (r contractRepo) GetByID(_ context.Context, id int64) (*model.Contract, error) {
	defer r.s.lock()()
	c, ok := r.s.d.contracts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = r.assemble(c)
	return &c, nil
}

// GetByIDForUpdate is GetByID: the store mutex already serializes transactions.
func (r contractRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Contract, error) {
	return r.GetByID(ctx, id)
}

func (r contractRepo) GetByProposalID(_ context.Context, proposalID int64) (*model.Contract, error) {
	defer r.s.lock()()
	for _, c := range r.s.d.contracts {
		if c.ProposalID == proposalID {
			c = r.assemble(c)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r contractRepo) ListByUser(_ context.Context, userID int64) ([]model.Contract, error) {
	defer r.s.lock()()
	out := []model.Contract{}
	for _, c := range r.s.d.contracts {
		if c.ClientID == userID || c.FreelancerID == userID {
			out = append(out, r.assemble(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r contractRepo) CountByJob(_ context.Context, jobID int64) (int, error) {
	defer r.s.lock()()
	n := 0
	for _, c := range r.s.d.contracts {
		if c.JobID == jobID {
			n++
		}
	}
	return n, nil
}

func (r contractRepo) Update(_ context.Context, c *model.Contract) error {
	defer r.s.lock()()
	stored, ok := r.s.d.contracts[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != c.Version {
		return repository.ErrConflict
	}
	stored.Status = c.Status
	stored.EscrowBalance = c.EscrowBalance
	stored.StartDate = c.StartDate
	stored.EndDate = c.EndDate
	stored.Version++
	stored.UpdatedAt = r.s.now()
	r.s.d.contracts[c.ID] = stored

	c.Version = stored.Version
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r contractRepo) AddMilestone(_ context.Context, m *model.Milestone) error {
	defer r.s.lock()()
	if _, ok := r.s.d.contracts[m.ContractID]; !ok {
		return repository.ErrNotFound
	}
	position := 0
	for _, existing := range r.s.d.milestones {
		if existing.ContractID == m.ContractID && existing.Position >= position {
			position = existing.Position + 1
		}
	}
	now := r.s.now()
	m.ID = r.s.d.nextID()
	m.Position = position
	m.Version = 1
	m.CreatedAt, m.UpdatedAt = now, now
	r.s.d.milestones[m.ID] = cloneMilestone(*m)
	return nil
}

func (r contractRepo) UpdateMilestone(_ context.Context, m *model.Milestone) error {
	defer r.s.lock()()
	stored, ok := r.s.d.milestones[m.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != m.Version {
		return repository.ErrConflict
	}
	updated := cloneMilestone(*m)
	updated.ContractID = stored.ContractID
	updated.Position = stored.Position
	updated.CreatedAt = stored.CreatedAt
	updated.Version = stored.Version + 1
	updated.UpdatedAt = r.s.now()
	r.s.d.milestones[m.ID] = updated

	m.Version = updated.Version
	m.UpdatedAt = updated.UpdatedAt
	return nil
}
