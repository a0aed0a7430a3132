package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/rbac"
)

type UserService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewUserService(store repository.Store, logger *zap.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

func (s *UserService) Me(ctx context.Context, caller rbac.Caller) (*model.User, error) {
	u, err := s.store.Users().GetByID(ctx, caller.ID)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	return u, nil
}

func (s *UserService) PublicProfile(ctx context.Context, id int64) (*model.PublicUser, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	p := u.Public()
	return &p, nil
}

type UpdateProfileInput struct {
	Name    string        `json:"name"`
	Profile model.Profile `json:"profile"`
}

// UpdateProfile replaces the profile; fields that belong to the other role are rejected.
func (s *UserService) UpdateProfile(ctx context.Context, caller rbac.Caller, in UpdateProfileInput) (*model.User, error) {
	u, err := s.store.Users().GetByID(ctx, caller.ID)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	if err := validateProfile(u.Role, in.Profile); err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	u.Profile = in.Profile
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, fromRepo(err, "user")
	}
	s.logger.Info("Profile updated", zap.Int64("user_id", u.ID))
	return u, nil
}

func validateProfile(role string, p model.Profile) error {
	freelancerOnly := len(p.Skills) > 0 || len(p.Education) > 0 || len(p.Certifications) > 0
	clientOnly := p.CompanyName != "" || p.CompanyInfo != "" || p.CompanyLink != "" || len(p.PastProjects) > 0

	switch role {
	case model.RoleClient:
		if freelancerOnly {
			return invalid("skills, education and certifications are freelancer-only fields")
		}
	case model.RoleFreelancer:
		if clientOnly {
			return invalid("company details and past projects are client-only fields")
		}
	}
	return nil
}
