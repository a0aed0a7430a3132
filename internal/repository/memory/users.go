package memory

import (
	"context"
	"strings"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type userRepo struct{ s *Store }

func cloneUser(u model.User) model.User {
	p := u.Profile
	p.Languages = cloneStrings(p.Languages)
	p.Skills = cloneStrings(p.Skills)
	p.Education = cloneStrings(p.Education)
	p.Certifications = cloneStrings(p.Certifications)
	p.PastProjects = cloneStrings(p.PastProjects)
	u.Profile = p
	return u
}

func (r userRepo) Create(_ context.Context, u *model.User) error {
	defer r.s.lock()()
	for _, existing := range r.s.d.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	u.ID = r.s.d.nextID()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.d.users[u.ID] = cloneUser(*u)
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.d.users {
		if strings.EqualFold(u.Email, email) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) Update(_ context.Context, u *model.User) error {
	defer r.s.lock()()
	stored, ok := r.s.d.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = u.Name
	stored.Profile = u.Profile
	stored.UpdatedAt = r.s.now()
	r.s.d.users[u.ID] = cloneUser(stored)
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r userRepo) SetVerified(_ context.Context, id int64) error {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Verified = true
	u.UpdatedAt = r.s.now()
	r.s.d.users[id] = u
	return nil
}
