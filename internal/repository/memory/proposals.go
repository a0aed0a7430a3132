package memory

import (
	"context"
	"sort"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type proposalRepo struct{ s *Store }

func (r proposalRepo) Create(_ context.Context, p *model.Proposal) error {
	defer r.s.lock()()
	for _, existing := range r.s.d.proposals {
		if existing.JobID == p.JobID && existing.FreelancerID == p.FreelancerID {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	p.ID = r.s.d.nextID()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.d.proposals[p.ID] = *p
	return nil
}

func (r proposalRepo) GetByID(_ context.Context, id int64) (*model.Proposal, error) {
	defer r.s.lock()()
	p, ok := r.s.d.proposals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r proposalRepo) ListByFreelancer(_ context.Context, freelancerID int64) ([]model.Proposal, error) {
	defer r.s.lock()()
	out := []model.Proposal{}
	for _, p := range r.s.d.proposals {
		if p.FreelancerID == freelancerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r proposalRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	defer r.s.lock()()
	p, ok := r.s.d.proposals[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = r.s.now()
	r.s.d.proposals[id] = p
	return nil
}

func (r proposalRepo) DeleteByJob(_ context.Context, jobID int64) (int64, error) {
	defer r.s.lock()()
	var n int64
	for id, p := range r.s.d.proposals {
		if p.JobID == jobID {
			delete(r.s.d.proposals, id)
			n++
		}
	}
	return n, nil
}
